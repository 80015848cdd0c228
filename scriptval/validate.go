// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package scriptval

import (
	"bytes"
	"fmt"
	"math"
	"runtime"

	"github.com/ariskk/bitcoin-s/txscript"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	// payToWitnessPubKeyHashDataSize is the size of the witness program's
	// data push for a pay-to-witness-pub-key-hash output.
	payToWitnessPubKeyHashDataSize = 20

	// payToWitnessScriptHashDataSize is the size of the witness program's
	// data push for a pay-to-witness-script-hash output.
	payToWitnessScriptHashDataSize = 32
)

// txValidateItem holds a transaction along with which input to validate.
type txValidateItem struct {
	txInIndex int
	txIn      *wire.TxIn
}

// txValidator provides a type which asynchronously validates transaction
// inputs.  It provides several channels for communication and a processing
// function that is intended to be in run multiple goroutines.
type txValidator struct {
	validateChan chan *txValidateItem
	quitChan     chan struct{}
	resultChan   chan error
	tx           *wire.MsgTx
	prevOuts     PrevOutputFetcher
	flags        txscript.ScriptFlags
	sigCache     *txscript.SigCache
	sigHashes    *txscript.TxSigHashes
}

// sendResult sends the result of a script pair validation on the internal
// result channel while respecting the quit channel.  This allows orderly
// shutdown when the validation process is aborted early due to a validation
// error in one of the other goroutines.
func (v *txValidator) sendResult(result error) {
	select {
	case v.resultChan <- result:
	case <-v.quitChan:
	}
}

// witnessProgram returns the version 0 witness program carried by pkScript,
// if any.
func witnessProgram(pkScript txscript.Script) ([]byte, bool) {
	if len(pkScript) != 2 || pkScript[0].Opcode() != txscript.OP_0 {
		return nil, false
	}
	program := pkScript[1].Data()
	switch len(program) {
	case payToWitnessPubKeyHashDataSize, payToWitnessScriptHashDataSize:
		return program, pkScript[1].IsPush()
	}
	return nil, false
}

// witnessPushes converts witness items into the data pushes that seed the
// stack of a witness program.
func witnessPushes(items [][]byte) txscript.Script {
	script := make(txscript.Script, 0, len(items))
	for _, item := range items {
		script = append(script, txscript.PushDataToken(item))
	}
	return script
}

// scriptPair returns the unlocking and locking scripts to evaluate for the
// input along with the signature version that applies to them.  Witness
// programs are expanded into the script their witness commits to.
func (v *txValidator) scriptPair(txIn *wire.TxIn,
	pkScript []byte) (txscript.Script, txscript.Script, txscript.SigVersion, error) {

	locking, err := txscript.ParseScript(pkScript)
	if err != nil {
		str := fmt.Sprintf("unable to parse output script %x: %v",
			pkScript, err)
		return nil, nil, 0, ruleError(ErrScriptMalformed, str, err)
	}

	program, isWitness := witnessProgram(locking)
	if !isWitness {
		if len(txIn.Witness) != 0 {
			return nil, nil, 0, ruleError(ErrBadTxInput,
				"witness supplied for a non-witness output", nil)
		}
		unlocking, err := txscript.ParseScript(txIn.SignatureScript)
		if err != nil {
			str := fmt.Sprintf("unable to parse signature script "+
				"%x: %v", txIn.SignatureScript, err)
			return nil, nil, 0, ruleError(ErrScriptMalformed, str, err)
		}
		return unlocking, locking, txscript.SigVersionBase, nil
	}

	if len(txIn.SignatureScript) != 0 {
		return nil, nil, 0, ruleError(ErrBadTxInput,
			"signature script must be empty for a witness program",
			nil)
	}

	witness := txIn.Witness
	switch len(program) {
	case payToWitnessPubKeyHashDataSize:
		if len(witness) != 2 {
			str := fmt.Sprintf("pay to witness pubkey hash requires "+
				"2 witness items, got %d", len(witness))
			return nil, nil, 0, ruleError(ErrBadTxInput, str, nil)
		}

		// The script code of a witness pubkey hash program is the
		// classic pay to pubkey hash script.
		scriptCode, err := txscript.NewScriptBuilder().
			AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).
			AddData(program).AddOp(txscript.OP_EQUALVERIFY).
			AddOp(txscript.OP_CHECKSIG).Script()
		if err != nil {
			return nil, nil, 0, ruleError(ErrScriptMalformed,
				err.Error(), err)
		}
		return witnessPushes(witness), scriptCode,
			txscript.SigVersionWitnessV0, nil

	default:
		if len(witness) == 0 {
			return nil, nil, 0, ruleError(ErrBadTxInput,
				"pay to witness script hash requires a witness "+
					"script", nil)
		}
		witnessScript := witness[len(witness)-1]
		if !bytes.Equal(chainhash.HashB(witnessScript), program) {
			str := fmt.Sprintf("witness script %x does not match "+
				"program %x", witnessScript, program)
			return nil, nil, 0, ruleError(ErrBadTxInput, str, nil)
		}
		scriptCode, err := txscript.ParseScript(witnessScript)
		if err != nil {
			str := fmt.Sprintf("unable to parse witness script "+
				"%x: %v", witnessScript, err)
			return nil, nil, 0, ruleError(ErrScriptMalformed, str, err)
		}
		return witnessPushes(witness[:len(witness)-1]), scriptCode,
			txscript.SigVersionWitnessV0, nil
	}
}

// validateInput evaluates the scripts of a single input.
func (v *txValidator) validateInput(txVI *txValidateItem) error {
	// Ensure the referenced output is available.
	txIn := txVI.txIn
	prevOut := v.prevOuts.FetchPrevOutput(txIn.PreviousOutPoint)
	if prevOut == nil {
		str := fmt.Sprintf("unable to find output %v referenced "+
			"from transaction %v:%d", txIn.PreviousOutPoint,
			v.tx.TxHash(), txVI.txInIndex)
		return ruleError(ErrMissingTxOut, str, nil)
	}

	unlocking, locking, sigVersion, err := v.scriptPair(txIn,
		prevOut.PkScript)
	if err != nil {
		return err
	}

	// Create a new script engine for the script pair.
	ctx := &txscript.TxContext{
		Tx:          v.tx,
		InputIndex:  txVI.txInIndex,
		InputAmount: prevOut.Value,
		SigVersion:  sigVersion,
		SigHashes:   v.sigHashes,
	}
	vm, err := txscript.NewEngine(unlocking, locking, ctx, v.flags,
		v.sigCache)
	if err != nil {
		str := fmt.Sprintf("failed to parse input %v:%d which "+
			"references output %v - %v (input script bytes %x, "+
			"prev output script bytes %x)", v.tx.TxHash(),
			txVI.txInIndex, txIn.PreviousOutPoint, err,
			txIn.SignatureScript, prevOut.PkScript)
		return ruleError(ErrScriptMalformed, str, err)
	}

	// Execute the script pair.
	if err := vm.Execute(); err != nil {
		str := fmt.Sprintf("failed to validate input %v:%d which "+
			"references output %v - %v (input script bytes %x, "+
			"prev output script bytes %x)", v.tx.TxHash(),
			txVI.txInIndex, txIn.PreviousOutPoint, err,
			txIn.SignatureScript, prevOut.PkScript)
		return ruleError(ErrScriptValidation, str, err)
	}

	log.Tracef("Input %v:%d validated (%v)", v.tx.TxHash(),
		txVI.txInIndex, sigVersion)
	return nil
}

// validateHandler consumes items to validate from the internal validate channel
// and returns the result of the validation on the internal result channel. It
// must be run as a goroutine.
func (v *txValidator) validateHandler() {
out:
	for {
		select {
		case txVI := <-v.validateChan:
			err := v.validateInput(txVI)
			v.sendResult(err)
			if err != nil {
				break out
			}

		case <-v.quitChan:
			break out
		}
	}
}

// Validate validates the scripts for all of the passed transaction inputs using
// multiple goroutines.
func (v *txValidator) Validate(items []*txValidateItem) error {
	if len(items) == 0 {
		return nil
	}

	// Limit the number of goroutines to do script validation based on the
	// number of processor cores.  This helps ensure the system stays
	// reasonably responsive under heavy load.
	maxGoRoutines := runtime.NumCPU() * 3
	if maxGoRoutines <= 0 {
		maxGoRoutines = 1
	}
	if maxGoRoutines > len(items) {
		maxGoRoutines = len(items)
	}

	// Start up validation handlers that are used to asynchronously
	// validate each transaction input.
	for i := 0; i < maxGoRoutines; i++ {
		go v.validateHandler()
	}

	// Validate each of the inputs.  The quit channel is closed when any
	// errors occur so all processing goroutines exit regardless of which
	// input had the validation error.
	numInputs := len(items)
	currentItem := 0
	processedItems := 0
	for processedItems < numInputs {
		// Only send items while there are still items that need to
		// be processed.  The select statement will never select a nil
		// channel.
		var validateChan chan *txValidateItem
		var item *txValidateItem
		if currentItem < numInputs {
			validateChan = v.validateChan
			item = items[currentItem]
		}

		select {
		case validateChan <- item:
			currentItem++

		case err := <-v.resultChan:
			processedItems++
			if err != nil {
				close(v.quitChan)
				return err
			}
		}
	}

	close(v.quitChan)
	return nil
}

// newTxValidator returns a new instance of txValidator to be used for
// validating transaction scripts asynchronously.
func newTxValidator(tx *wire.MsgTx, prevOuts PrevOutputFetcher,
	flags txscript.ScriptFlags, sigCache *txscript.SigCache) *txValidator {

	return &txValidator{
		validateChan: make(chan *txValidateItem),
		quitChan:     make(chan struct{}),
		resultChan:   make(chan error),
		tx:           tx,
		prevOuts:     prevOuts,
		flags:        flags,
		sigCache:     sigCache,
		sigHashes:    txscript.NewTxSigHashes(tx),
	}
}

// ValidateTransactionScripts validates the scripts for the passed transaction
// using multiple goroutines.  Legacy, pay-to-script-hash and version 0
// witness outputs are supported.  Coinbase inputs are skipped.  The
// signature cache is optional.
func ValidateTransactionScripts(tx *wire.MsgTx, prevOuts PrevOutputFetcher,
	flags txscript.ScriptFlags, sigCache *txscript.SigCache) error {

	// Collect all of the transaction inputs and required information for
	// validation.
	txValItems := make([]*txValidateItem, 0, len(tx.TxIn))
	for txInIdx, txIn := range tx.TxIn {
		// Skip coinbases.
		if txIn.PreviousOutPoint.Index == math.MaxUint32 {
			continue
		}

		txVI := &txValidateItem{
			txInIndex: txInIdx,
			txIn:      txIn,
		}
		txValItems = append(txValItems, txVI)
	}

	// Validate all of the inputs.
	validator := newTxValidator(tx, prevOuts, flags, sigCache)
	if err := validator.Validate(txValItems); err != nil {
		log.Debugf("Transaction %v failed validation: %v", tx.TxHash(),
			err)
		return err
	}

	return nil
}
