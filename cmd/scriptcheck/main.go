// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// scriptcheck evaluates a pair of bitcoin scripts, optionally against a
// spending transaction, and reports whether the spending condition holds
// along with the reason when it does not.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ariskk/bitcoin-s/internal/log"
	"github.com/ariskk/bitcoin-s/scriptval"
	"github.com/ariskk/bitcoin-s/txscript"
	"github.com/davecgh/go-spew/spew"
)

// sigCacheEntries bounds the signature cache shared by the inputs checked
// with --allinputs.
const sigCacheEntries = 1000

// txContext returns the transaction context described by cfg, or nil when no
// transaction was given.
func txContext(cfg *config) *txscript.TxContext {
	if cfg.tx == nil {
		return nil
	}
	sigVersion := txscript.SigVersionBase
	if cfg.Witness {
		sigVersion = txscript.SigVersionWitnessV0
	}
	return &txscript.TxContext{
		Tx:          cfg.tx,
		InputIndex:  cfg.InputIndex,
		InputAmount: cfg.Amount,
		SigVersion:  sigVersion,
	}
}

// writeStep prints one execution step.
func writeStep(w io.Writer, vm *txscript.Engine, info *txscript.StepInfo) {
	next, err := vm.DisasmPC()
	if err != nil {
		next = "(end of script)"
	}
	fmt.Fprintf(w, "script %d, op %d, next %s\n", info.ScriptIndex,
		info.OpcodeIndex, strings.TrimSpace(next))
	if len(info.Stack) != 0 {
		fmt.Fprintf(w, "stack:\n%s", spew.Sdump(info.Stack))
	}
	if len(info.AltStack) != 0 {
		fmt.Fprintf(w, "alt stack:\n%s", spew.Sdump(info.AltStack))
	}
}

// checkScripts runs the check selected by cfg and writes the verdict to w.
// The returned error is only set when the check could not be run at all.
func checkScripts(cfg *config, w io.Writer) (bool, error) {
	if cfg.AllInputs {
		fetcher := scriptval.NewCannedPrevOutputFetcher(cfg.lockingRaw,
			cfg.Amount)
		err := scriptval.ValidateTransactionScripts(cfg.tx, fetcher,
			cfg.scriptFlags, txscript.NewSigCache(sigCacheEntries))
		if err != nil {
			fmt.Fprintf(w, "invalid: %v\n", err)
			return false, nil
		}
		fmt.Fprintf(w, "valid: %d inputs\n", len(cfg.tx.TxIn))
		return true, nil
	}

	var vm *txscript.Engine
	var stepCallback func(*txscript.StepInfo) error
	if cfg.Trace {
		stepCallback = func(info *txscript.StepInfo) error {
			writeStep(w, vm, info)
			return nil
		}
	}
	vm, err := txscript.NewDebugEngine(cfg.unlocking, cfg.locking,
		txContext(cfg), cfg.scriptFlags, nil, stepCallback)
	if err != nil {
		return false, err
	}

	log.ChckLog.Debugf("Evaluating %v %v with flags %v", cfg.unlocking,
		cfg.locking, cfg.scriptFlags)
	if err := vm.Execute(); err != nil {
		fmt.Fprintf(w, "invalid: %v\n", err)
		return false, nil
	}
	fmt.Fprintln(w, "valid")
	return true, nil
}

// realMain is the real main function for the utility.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func realMain() (bool, error) {
	// Load configuration and parse command line.
	cfg, _, err := loadConfig()
	if err != nil {
		return false, err
	}
	defer func() {
		if log.LogRotator != nil {
			log.LogRotator.Close()
		}
	}()

	valid, err := checkScripts(cfg, os.Stdout)
	if err != nil {
		log.ChckLog.Errorf("Unable to evaluate scripts: %v", err)
		return false, err
	}
	return valid, nil
}

func main() {
	valid, err := realMain()
	switch {
	case err != nil:
		os.Exit(2)
	case !valid:
		os.Exit(1)
	}
}
