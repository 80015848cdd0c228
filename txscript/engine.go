// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// ScriptFlags is a bitmask defining additional operations or tests that will
// be done when executing a script pair.
type ScriptFlags uint32

const (
	// ScriptBip16 defines whether the bip16 threshold has passed and thus
	// pay-to-script hash transactions will be fully validated.
	ScriptBip16 ScriptFlags = 1 << iota

	// ScriptStrictMultiSig defines whether to verify the stack item
	// used by CHECKMULTISIG is zero length.
	ScriptStrictMultiSig

	// ScriptDiscourageUpgradableNops defines whether to verify that
	// NOP1 through NOP10 are reserved for future soft-fork upgrades.  This
	// flag must not be used for consensus critical code nor applied to
	// blocks as this flag is only for stricter standard transaction
	// checks.  This flag is only applied when the above opcodes are
	// executed.
	ScriptDiscourageUpgradableNops

	// ScriptVerifyCheckLockTimeVerify defines whether to verify that
	// a transaction output is spendable based on the locktime.
	// This is BIP0065.
	ScriptVerifyCheckLockTimeVerify

	// ScriptVerifyCheckSequenceVerify defines whether to allow execution
	// pathways of a script to be restricted based on the age of the output
	// being spent.  This is BIP0112.
	ScriptVerifyCheckSequenceVerify

	// ScriptVerifyCleanStack defines that the stack must contain only
	// one stack element after evaluation and that the element must be
	// true if interpreted as a boolean.  This is rule 6 of BIP0062.
	// This flag should never be used without the ScriptBip16 flag.
	ScriptVerifyCleanStack

	// ScriptVerifyDERSignatures defines that signatures are required
	// to comply with the DER format.
	ScriptVerifyDERSignatures

	// ScriptVerifyLowS defines that signatures are required to comply with
	// the DER format and whose S value is <= order / 2.  This is rule 5
	// of BIP0062.
	ScriptVerifyLowS

	// ScriptVerifyMinimalData defines that signatures must use the smallest
	// push operator. This is both rules 3 and 4 of BIP0062.
	ScriptVerifyMinimalData

	// ScriptVerifyNullFail defines that signatures must be empty if
	// a CHECKSIG or CHECKMULTISIG operation fails.
	ScriptVerifyNullFail

	// ScriptVerifySigPushOnly defines that signature scripts must contain
	// only pushed data.  This is rule 2 of BIP0062.
	ScriptVerifySigPushOnly

	// ScriptVerifyStrictEncoding defines that signature scripts and
	// public keys must follow the strict encoding requirements.
	ScriptVerifyStrictEncoding

	// ScriptVerifyMinimalIf makes a script with an OP_IF/OP_NOTIF whose
	// operand is anything other than empty vector or [0x01] non-standard.
	// It only applies to witness version 0 scripts.
	ScriptVerifyMinimalIf

	// ScriptVerifySingleElse rejects a second OP_ELSE at the same
	// conditional nesting level.
	ScriptVerifySingleElse
)

const (
	// ConsensusVerifyFlags are the script flags enforced by the consensus
	// rules once every soft fork they cover is active.
	ConsensusVerifyFlags = ScriptBip16 |
		ScriptVerifyDERSignatures |
		ScriptVerifyCheckLockTimeVerify |
		ScriptVerifyCheckSequenceVerify

	// StandardVerifyFlags are the script flags which are used when
	// executing transaction scripts to enforce additional checks which
	// are required for the script to be considered standard.  These checks
	// help reduce issues related to transaction malleability as well as
	// allow pay-to-script hash transactions.  Note these flags are
	// different than what is required for the consensus rules in that they
	// are more strict.
	StandardVerifyFlags = ConsensusVerifyFlags |
		ScriptVerifyStrictEncoding |
		ScriptVerifyMinimalData |
		ScriptStrictMultiSig |
		ScriptDiscourageUpgradableNops |
		ScriptVerifyCleanStack |
		ScriptVerifyLowS |
		ScriptVerifyNullFail |
		ScriptVerifyMinimalIf
)

const (
	// MaxStackSize is the maximum combined height of the data and
	// alternate stacks during execution.
	MaxStackSize = 1000

	// MaxScriptSize is the maximum allowed length of a raw script.
	MaxScriptSize = 10000

	// MaxOpsPerScript is the maximum number of non-push operations.
	MaxOpsPerScript = 201

	// MaxPubKeysPerMultiSig is the maximum number of public keys
	// permitted in a multi-signature check.
	MaxPubKeysPerMultiSig = 20

	// MaxScriptElementSize is the maximum number of bytes that can be
	// pushed to the stack.
	MaxScriptElementSize = 520
)

// finishState applies the end of script rules to a state with no tokens left.
func finishState(s ProgramState) ProgramState {
	if len(s.condStack) != 0 {
		return s.fail(scriptError(ErrUnbalancedConditional,
			"end of script reached in conditional execution"))
	}

	v, err := s.stack.PeekBool(0)
	if err != nil {
		return s.halt(false, scriptError(ErrEmptyStack,
			"stack empty at end of script execution"))
	}
	if !v {
		return s.halt(false, scriptError(ErrEvalFalse,
			"false stack entry at end of script execution"))
	}
	return s.halt(true, nil)
}

// isFinalCheckOpcode returns whether the opcode decides the result on its own
// when it is the last token of the script.
func isFinalCheckOpcode(op byte) bool {
	switch op {
	case OP_EQUAL, OP_CHECKSIG, OP_CHECKMULTISIG:
		return true
	}
	return false
}

// step dispatches the next token of s and returns the resulting state.  The
// passed state is never modified.  States that are no longer running are
// returned unchanged.
//
// A token is subject to the following rules, in order:
//
//   - Disabled opcodes and OP_VERIF/OP_VERNOTIF fail even in a branch that is
//     not executing.
//   - Non-push opcodes count towards MaxOpsPerScript and pushes may not
//     exceed MaxScriptElementSize.
//   - Tokens in a non-executing branch are skipped unless they are
//     conditionals.
//   - With ScriptVerifyMinimalData, pushes must use the smallest encoding.
//   - The combined stack depth may not exceed MaxStackSize afterwards.
//
// When OP_EQUAL, OP_CHECKSIG or OP_CHECKMULTISIG is executed as the final
// token with no open conditional, evaluation halts immediately with the
// boolean it pushed.  A false OP_EQUAL halts with ErrEvalFalse while a false
// signature check halts with ErrSigVerificationFailed, so that callers can
// tell a bad signature apart from a generic false result.
func step(s ProgramState) ProgramState {
	if s.status != StatusRunning {
		return s
	}
	if s.pc >= len(s.script) {
		return finishState(s)
	}

	// Crossing from the unlocking tokens into the locked tokens.  A
	// conditional may not straddle the two, and the alternate stack and
	// operation count do not carry over.
	if s.pc == s.unlockingLen && s.pc != 0 {
		if len(s.condStack) != 0 {
			return s.fail(scriptError(ErrUnbalancedConditional,
				"end of unlocking script reached in conditional "+
					"execution"))
		}
		s.altStack = Stack{verifyMinimalData: s.altStack.verifyMinimalData}
		s.numOps = 0
		s.lastCodeSep = s.unlockingLen
	}

	t := s.script[s.pc]
	op := &opcodeArray[t.op]

	// Disabled opcodes are fail on program counter.
	if isDisabled(t.op) {
		_, err := opcodeDisabled(op, t.data, s)
		return s.fail(err)
	}

	// Always-illegal opcodes are fail on program counter.
	if alwaysIllegal(t.op) {
		_, err := opcodeReserved(op, t.data, s)
		return s.fail(err)
	}

	// Note that this includes OP_RESERVED which counts as a push operation.
	if countsTowardsOps(t.op) {
		s.numOps++
		if s.numOps > MaxOpsPerScript {
			str := fmt.Sprintf("exceeded max operation limit of %d",
				MaxOpsPerScript)
			return s.fail(scriptError(ErrTooManyOperations, str))
		}
	} else if len(t.data) > MaxScriptElementSize {
		str := fmt.Sprintf("element size %d exceeds max allowed size %d",
			len(t.data), MaxScriptElementSize)
		return s.fail(scriptError(ErrElementTooBig, str))
	}

	executing := s.isBranchExecuting()
	s.pc++

	// Nothing left to do when this is not a conditional opcode and it is
	// not in an executing branch.
	if !executing && !isConditional(t.op) {
		return s
	}

	// Ensure all executed data push opcodes use the minimal encoding when
	// the minimal data verification flag is set.
	if executing && s.hasFlag(ScriptVerifyMinimalData) &&
		t.op <= OP_PUSHDATA4 {

		if err := checkMinimalDataPush(t.op, t.data); err != nil {
			return s.fail(err)
		}
	}

	next, err := op.opfunc(op, t.data, s)
	if err != nil {
		return s.fail(err)
	}

	combined := int(next.stack.Depth()) + int(next.altStack.Depth())
	if combined > MaxStackSize {
		str := fmt.Sprintf("combined stack size %d > max allowed %d",
			combined, MaxStackSize)
		return next.fail(scriptError(ErrStackOverflow, str))
	}

	if next.pc == len(next.script) && len(next.condStack) == 0 &&
		isFinalCheckOpcode(t.op) {

		v, err := next.stack.PeekBool(0)
		if err != nil {
			return next.fail(err)
		}
		switch {
		case v:
			return next.halt(true, nil)
		case t.op == OP_EQUAL:
			return next.halt(false, scriptError(ErrEvalFalse,
				"OP_EQUAL evaluated to false as the final opcode"))
		default:
			str := fmt.Sprintf("%s failed as the final opcode",
				op.name)
			return next.halt(false, scriptError(ErrSigVerificationFailed,
				str))
		}
	}

	return next
}

// StepInfo houses the current VM state information that is passed back to the
// stepCallback during script execution.
type StepInfo struct {
	// ScriptIndex is the index of the script currently being executed: 0
	// for the combined unlocking and locked tokens and 1 for a
	// pay-to-script-hash redeem script.
	ScriptIndex int

	// OpcodeIndex is the index of the next token that will be executed.
	OpcodeIndex int

	// Stack is the Engine's current content on the stack.
	Stack [][]byte

	// AltStack is the Engine's current content on the alt stack.
	AltStack [][]byte

	// State is the full immutable snapshot the fields above were taken
	// from.
	State ProgramState
}

// Engine drives the dispatch loop over a pair of scripts.  The machine state
// itself is an immutable ProgramState; the engine only tracks which phase of
// evaluation is running.
type Engine struct {
	unlocking Script
	locking   Script
	redeem    Script

	ctx      *TxContext
	flags    ScriptFlags
	sigCache *SigCache

	state ProgramState

	// bip16 is set when the locked script is a pay-to-script-hash script
	// and the ScriptBip16 flag is set.  savedFirstStack holds the data
	// stack as the unlocking tokens left it.
	bip16           bool
	savedFirstStack Stack
	scriptIdx       int

	stepCallback func(*StepInfo) error
}

// hasFlag returns whether the script engine instance has the passed flag set.
func (vm *Engine) hasFlag(flag ScriptFlags) bool {
	return vm.flags&flag == flag
}

// isWitnessV0 returns whether the scripts are a version 0 witness program
// being evaluated.
func (vm *Engine) isWitnessV0() bool {
	return vm.ctx != nil && vm.ctx.SigVersion == SigVersionWitnessV0
}

// State returns the current machine snapshot.
func (vm *Engine) State() ProgramState {
	return vm.state
}

// GetStack returns the contents of the primary stack as an array, where the
// last item in the array is the top of the stack.
func (vm *Engine) GetStack() [][]byte {
	return vm.state.Stack()
}

// GetAltStack returns the contents of the alternate stack as an array, where
// the last item in the array is the top of the stack.
func (vm *Engine) GetAltStack() [][]byte {
	return vm.state.AltStack()
}

// stepInfo returns a snapshot of the engine for the step callback.
func (vm *Engine) stepInfo() *StepInfo {
	return &StepInfo{
		ScriptIndex: vm.scriptIdx,
		OpcodeIndex: vm.state.pc,
		Stack:       vm.state.Stack(),
		AltStack:    vm.state.AltStack(),
		State:       vm.state,
	}
}

// Step executes the next token and moves the program counter past it.  It
// returns true once evaluation has finished, either because the script pair
// succeeded or because err is set.  Calling Step after it returned true keeps
// returning the same outcome.
func (vm *Engine) Step() (done bool, err error) {
	// Save the stack as the unlocking tokens left it, right before the
	// first locked token runs, for pay-to-script-hash evaluation.
	if vm.bip16 && vm.scriptIdx == 0 &&
		vm.state.status == StatusRunning &&
		vm.state.pc == vm.state.unlockingLen {

		vm.savedFirstStack = vm.state.stack
	}

	vm.state = step(vm.state)

	switch vm.state.status {
	case StatusRunning:
		return false, nil

	case StatusFailed:
		return true, vm.state.err

	case StatusHalted:
		if !vm.state.result {
			return true, vm.state.err
		}
	}

	// The locked script of a pay-to-script-hash output succeeded, so the
	// redeem script that was pushed last by the unlocking script is now
	// evaluated against the remaining stack.
	if vm.bip16 && vm.scriptIdx == 0 {
		if err := vm.startRedeemScript(); err != nil {
			vm.state = vm.state.fail(err)
			return true, err
		}
		return false, nil
	}

	// Witness scripts always require a clean stack.
	cleanStack := vm.hasFlag(ScriptVerifyCleanStack) || vm.isWitnessV0()
	if cleanStack && vm.state.stack.Depth() != 1 {
		str := fmt.Sprintf("stack must contain exactly one item "+
			"(contains %d)", vm.state.stack.Depth())
		err := scriptError(ErrCleanStack, str)
		vm.state = vm.state.fail(err)
		return true, err
	}

	return true, nil
}

// startRedeemScript sets up the pay-to-script-hash phase.
func (vm *Engine) startRedeemScript() error {
	script, rest, err := vm.savedFirstStack.PopByteArray()
	if err != nil {
		return err
	}
	redeem, err := ParseScript(script)
	if err != nil {
		return err
	}

	log.Tracef("%v", newLogClosure(func() string {
		return fmt.Sprintf("evaluating redeem script %v", redeem)
	}))

	s := newProgramState(nil, redeem, vm.ctx, vm.flags, vm.sigCache)
	s.stack = rest
	vm.redeem = redeem
	vm.state = s
	vm.scriptIdx = 1
	return nil
}

// Execute will execute all scripts in the script engine and return either nil
// for successful validation or an error if one occurred.
func (vm *Engine) Execute() (err error) {
	// If the stepCallback is set, we start by making a call back with the
	// initial engine state.
	if vm.stepCallback != nil {
		if err := vm.stepCallback(vm.stepInfo()); err != nil {
			return err
		}
	}

	done := false
	for !done {
		log.Tracef("%v", newLogClosure(func() string {
			dis, err := vm.DisasmPC()
			if err != nil {
				return fmt.Sprintf("stepping (%v)", err)
			}
			return fmt.Sprintf("stepping %v", dis)
		}))

		done, err = vm.Step()
		if err != nil {
			log.Debugf("%v", newLogClosure(func() string {
				return fmt.Sprintf("script failed: %v\nunlocking: "+
					"%v\nlocking: %v\nstate: %s", err,
					vm.unlocking, vm.locking,
					spew.Sdump(vm.GetStack()))
			}))
			return err
		}

		log.Tracef("%v", newLogClosure(func() string {
			var dstr, astr string

			// Log the non-empty stacks when tracing.
			if vm.state.stack.Depth() != 0 {
				dstr = "Stack:\n" + vm.state.stack.String()
			}
			if vm.state.altStack.Depth() != 0 {
				astr = "AltStack:\n" + vm.state.altStack.String()
			}

			return dstr + astr
		}))

		if vm.stepCallback != nil {
			if err := vm.stepCallback(vm.stepInfo()); err != nil {
				return err
			}
		}
	}

	return nil
}

// DisasmPC returns the string for the disassembly of the token that will be
// next to execute when Step is called.
func (vm *Engine) DisasmPC() (string, error) {
	s := vm.state
	if s.pc >= len(s.script) {
		str := fmt.Sprintf("program counter %d is past the end of the "+
			"script (%d)", s.pc, len(s.script))
		return "", scriptError(ErrInvalidIndex, str)
	}
	return fmt.Sprintf("%02x:%04x: %s", vm.scriptIdx, s.pc,
		s.script[s.pc].disasm(false)), nil
}

// DisasmScript returns the disassembly string for the script at index idx,
// one token per line.  Index 0 is the unlocking script, 1 is the locked
// script and 2 is the redeem script once pay-to-script-hash evaluation has
// started.
func (vm *Engine) DisasmScript(idx int) (string, error) {
	var script Script
	switch {
	case idx == 0:
		script = vm.unlocking
	case idx == 1:
		script = vm.locking
	case idx == 2 && vm.scriptIdx == 1:
		script = vm.redeem
	default:
		str := fmt.Sprintf("script index %d is invalid", idx)
		return "", scriptError(ErrInvalidIndex, str)
	}

	var sb strings.Builder
	for i, t := range script {
		fmt.Fprintf(&sb, "%02x:%04x: %s\n", idx, i, t.disasm(false))
	}
	return sb.String(), nil
}

// NewEngine returns a new script engine that evaluates the unlocking tokens
// followed by the locked tokens against the transaction context.  The context
// may be nil for scripts that never check signatures or lock times.  The flags
// modify the behavior of the script engine according to the description
// provided by each flag.  The signature cache is optional.
func NewEngine(unlocking, locking Script, ctx *TxContext, flags ScriptFlags,
	sigCache *SigCache) (*Engine, error) {

	if ctx != nil && ctx.Tx != nil {
		if _, err := ctx.txIn(); err != nil {
			return nil, err
		}
	}

	// The clean stack flag (ScriptVerifyCleanStack) is not allowed without
	// the pay-to-script-hash (P2SH) evaluation (ScriptBip16) flag.
	//
	// Recall that evaluating a P2SH script without the flag set results in
	// non-P2SH evaluation which leaves the P2SH inputs on the stack.
	// Thus, allowing the clean stack flag without the P2SH flag would make
	// it possible to have a situation where P2SH would not be a soft fork
	// when it should be.
	vm := Engine{
		unlocking: unlocking,
		locking:   locking,
		ctx:       ctx,
		flags:     flags,
		sigCache:  sigCache,
	}
	if vm.hasFlag(ScriptVerifyCleanStack) && !vm.hasFlag(ScriptBip16) {
		return nil, scriptError(ErrInvalidFlags,
			"invalid flags combination")
	}

	for _, script := range []Script{unlocking, locking} {
		for _, t := range script {
			if err := t.validate(); err != nil {
				return nil, err
			}
		}
		if size := script.serializeSize(); size > MaxScriptSize {
			str := fmt.Sprintf("script size %d is larger than max "+
				"allowed size %d", size, MaxScriptSize)
			return nil, scriptError(ErrScriptTooBig, str)
		}
	}

	// The signature script must only contain data pushes when the
	// associated flag is set.
	if vm.hasFlag(ScriptVerifySigPushOnly) && !unlocking.IsPushOnly() {
		return nil, scriptError(ErrNotPushOnly,
			"signature script is not push only")
	}

	// The signature script must only contain data pushes for P2SH which is
	// determined based on the form of the public key script.  A witness
	// script is never evaluated as pay-to-script-hash.
	if vm.hasFlag(ScriptBip16) && !vm.isWitnessV0() &&
		locking.isScriptHash() {

		if !unlocking.IsPushOnly() {
			return nil, scriptError(ErrNotPushOnly,
				"pay to script hash is not push only")
		}
		vm.bip16 = true
	}

	vm.state = newProgramState(unlocking, locking, ctx, flags, sigCache)
	return &vm, nil
}

// NewDebugEngine returns a new script engine with a script execution callback
// set.  This is useful for debugging script execution.
func NewDebugEngine(unlocking, locking Script, ctx *TxContext,
	flags ScriptFlags, sigCache *SigCache,
	stepCallback func(*StepInfo) error) (*Engine, error) {

	vm, err := NewEngine(unlocking, locking, ctx, flags, sigCache)
	if err != nil {
		return nil, err
	}

	vm.stepCallback = stepCallback
	return vm, nil
}

// Evaluate runs the unlocking tokens followed by the locked tokens against
// the transaction context and reports whether the spending condition is
// satisfied.  A false result always comes with a non-nil error naming the
// reason.
func Evaluate(unlocking, locking Script, ctx *TxContext,
	flags ScriptFlags) (bool, error) {

	vm, err := NewEngine(unlocking, locking, ctx, flags, nil)
	if err != nil {
		return false, err
	}
	if err := vm.Execute(); err != nil {
		return false, err
	}
	return true, nil
}
