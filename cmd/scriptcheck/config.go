// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ariskk/bitcoin-s/internal/log"
	"github.com/ariskk/bitcoin-s/internal/version"
	"github.com/ariskk/bitcoin-s/txscript"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogFilename = "scriptcheck.log"
	defaultLogLevel    = "info"
	defaultFlags       = "STANDARD"
)

var (
	appHomeDir    = btcutil.AppDataDir("scriptcheck", false)
	defaultLogDir = filepath.Join(appHomeDir, "logs")
)

// config defines the configuration options for scriptcheck.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	Unlocking     string `short:"u" long:"unlocking" description:"Hex encoded unlocking (signature) script"`
	Locking       string `short:"l" long:"locking" description:"Hex encoded locking (public key) script"`
	Flags         string `short:"f" long:"flags" description:"Comma separated script verification flags such as P2SH,STRICTENC -- NONE, CONSENSUS and STANDARD select presets"`
	Tx            string `short:"t" long:"tx" description:"Hex encoded spending transaction"`
	InputIndex    int    `short:"i" long:"inputindex" description:"Index of the transaction input being validated"`
	Amount        int64  `short:"a" long:"amount" description:"Value in satoshi of the output being spent"`
	Witness       bool   `short:"w" long:"witness" description:"Use the version 0 witness signature hash algorithm"`
	AllInputs     bool   `long:"allinputs" description:"Validate every input of --tx as spending --locking with --amount"`
	Trace         bool   `long:"trace" description:"Print the stacks after every execution step"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	// The fields below are filled in from the options above by
	// loadConfig.
	scriptFlags txscript.ScriptFlags
	unlocking   txscript.Script
	locking     txscript.Script
	lockingRaw  []byte
	tx          *wire.MsgTx
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(appHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		log.SetLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := log.SubsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, log.SupportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		log.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// decodeScript decodes a hex encoded script and tokenizes it.
func decodeScript(name, hexStr string) (txscript.Script, []byte, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, nil, fmt.Errorf("the %s script is not valid hex: %w",
			name, err)
	}
	script, err := txscript.ParseScript(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("the %s script is malformed: %w",
			name, err)
	}
	return script, raw, nil
}

// decodeTx decodes a hex encoded transaction in either the witness or the
// legacy serialization.
func decodeTx(hexStr string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("the transaction is not valid hex: %w", err)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("unable to decode transaction: %w", err)
	}
	return &tx, nil
}

// validateConfig checks the option combinations and decodes the scripts and
// transaction into cfg.
func validateConfig(cfg *config) error {
	var err error
	cfg.scriptFlags, err = txscript.ParseScriptFlags(cfg.Flags)
	if err != nil {
		return err
	}

	if cfg.Locking == "" {
		return errors.New("a locking script must be specified with " +
			"--locking")
	}
	cfg.locking, cfg.lockingRaw, err = decodeScript("locking", cfg.Locking)
	if err != nil {
		return err
	}
	cfg.unlocking, _, err = decodeScript("unlocking", cfg.Unlocking)
	if err != nil {
		return err
	}

	if cfg.Tx == "" {
		switch {
		case cfg.AllInputs:
			return errors.New("--allinputs requires --tx")
		case cfg.Witness:
			return errors.New("--witness requires --tx")
		}
		return nil
	}

	cfg.tx, err = decodeTx(cfg.Tx)
	if err != nil {
		return err
	}
	if cfg.AllInputs {
		if cfg.Unlocking != "" {
			return errors.New("--allinputs takes the unlocking " +
				"scripts from the transaction")
		}
		return nil
	}
	if cfg.InputIndex < 0 || cfg.InputIndex >= len(cfg.tx.TxIn) {
		return fmt.Errorf("input index %d is out of range for a "+
			"transaction with %d inputs", cfg.InputIndex,
			len(cfg.tx.TxIn))
	}
	return nil
}

// loadConfig initializes and parses the config using command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Parse CLI options and overwrite/add any specified options
//  3. Set up logging and decode the scripts
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		Flags:      defaultFlags,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if cfg.ShowVersion {
		fmt.Println(appName, "version", version.String())
		os.Exit(0)
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", log.SupportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	if !cfg.NoFileLogging {
		cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := log.InitLogRotator(logFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("loadConfig: %v", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		err := fmt.Errorf("loadConfig: %v", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}
