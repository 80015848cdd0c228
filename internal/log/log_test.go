// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ariskk/bitcoin-s/txscript"
	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// TestSubsystemLevels ensures levels are applied per subsystem and that
// unknown subsystems are ignored.
func TestSubsystemLevels(t *testing.T) {
	require.Equal(t, []string{"CHCK", "SCRP", "SVAL"}, SupportedSubsystems())

	SetLogLevels("warn")
	for _, id := range SupportedSubsystems() {
		require.Equal(t, btclog.LevelWarn, SubsystemLoggers[id].Level(), id)
	}

	SetLogLevel("SCRP", "trace")
	SetLogLevel("NOPE", "trace")
	require.Equal(t, btclog.LevelTrace, SubsystemLoggers["SCRP"].Level())
	require.Equal(t, btclog.LevelWarn, SubsystemLoggers["SVAL"].Level())

	// Invalid levels fall back to info.
	SetLogLevel("CHCK", "loud")
	require.Equal(t, btclog.LevelInfo, ChckLog.Level())

	SetLogLevels("off")
}

// TestScriptTraceRouting ensures script engine traces reach the backend once
// the subsystem level allows them, and the log file once a rotator is set.
func TestScriptTraceRouting(t *testing.T) {
	var buf bytes.Buffer
	origConsole := console
	console = &buf
	defer func() {
		console = origConsole
		SetLogLevels("off")
	}()

	logFile := filepath.Join(t.TempDir(), "logs", "scriptcheck.log")
	require.NoError(t, InitLogRotator(logFile))
	defer func() {
		LogRotator.Close()
		LogRotator = nil
	}()

	SetLogLevel("SCRP", "trace")
	unlocking, err := txscript.ParseScript([]byte{txscript.OP_1})
	require.NoError(t, err)
	valid, err := txscript.Evaluate(unlocking, nil, nil, 0)
	require.NoError(t, err)
	require.True(t, valid)

	require.True(t, strings.Contains(buf.String(), "[TRC] SCRP:"),
		buf.String())
}
