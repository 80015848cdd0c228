// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// SigVersion selects the signature hash algorithm used by the signature
// checking opcodes.
type SigVersion uint8

const (
	// SigVersionBase is the original signature hash algorithm which
	// commits to the subscript with signatures removed.
	SigVersionBase SigVersion = iota

	// SigVersionWitnessV0 is the BIP0143 signature hash algorithm used by
	// version 0 witness programs.  It also commits to the input amount.
	SigVersionWitnessV0
)

// String returns the SigVersion as a human-readable name.
func (v SigVersion) String() string {
	switch v {
	case SigVersionBase:
		return "base"
	case SigVersionWitnessV0:
		return "witness_v0"
	}
	return fmt.Sprintf("Unknown SigVersion (%d)", uint8(v))
}

// TxContext is the read-only view of the spending transaction a script is
// evaluated against.
type TxContext struct {
	// Tx is the spending transaction.  It may be nil for scripts that
	// never check signatures or lock times.
	Tx *wire.MsgTx

	// InputIndex is the index of the input being validated.
	InputIndex int

	// InputAmount is the value in satoshi of the output being spent.  It is
	// only committed to by SigVersionWitnessV0 signatures.
	InputAmount int64

	// SigVersion selects the signature hash algorithm.
	SigVersion SigVersion

	// SigHashes optionally carries the BIP0143 midstate shared by every
	// input of Tx.  It is computed on demand when nil.
	SigHashes *TxSigHashes
}

// txIn returns the input being validated, or an error when the context does
// not carry a transaction.
func (c *TxContext) txIn() (*wire.TxIn, error) {
	if c == nil || c.Tx == nil {
		return nil, scriptError(ErrInvalidIndex,
			"script requires a transaction context")
	}
	if c.InputIndex < 0 || c.InputIndex >= len(c.Tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is negative or "+
			">= %d", c.InputIndex, len(c.Tx.TxIn))
		return nil, scriptError(ErrInvalidIndex, str)
	}
	return c.Tx.TxIn[c.InputIndex], nil
}

// condEntry is one level of the conditional execution stack.
type condEntry struct {
	// executing is true when tokens at this level run.  It already takes
	// every enclosing level into account.
	executing bool

	// elseSeen records whether an OP_ELSE was met at this level.
	elseSeen bool
}

// condStack is a copy-on-write stack of conditional entries.  Pushing and
// replacing always allocate so that slices shared between states are never
// written to.
type condStack []condEntry

func (c condStack) push(e condEntry) condStack {
	n := make(condStack, len(c)+1)
	copy(n, c)
	n[len(c)] = e
	return n
}

func (c condStack) pop() condStack {
	return c[:len(c)-1:len(c)-1]
}

func (c condStack) replaceTop(e condEntry) condStack {
	n := make(condStack, len(c))
	copy(n, c)
	n[len(n)-1] = e
	return n
}

// executing returns whether tokens at the current nesting level execute.
func (c condStack) executing() bool {
	return len(c) == 0 || c[len(c)-1].executing
}

// Status describes where a ProgramState stands in the dispatch loop.
type Status uint8

const (
	// StatusRunning indicates more tokens may be dispatched.
	StatusRunning Status = iota

	// StatusHalted indicates evaluation finished with a boolean result.
	StatusHalted

	// StatusFailed indicates evaluation aborted with an error.
	StatusFailed
)

var statusStrings = map[Status]string{
	StatusRunning: "running",
	StatusHalted:  "halted",
	StatusFailed:  "failed",
}

// String returns the Status as a human-readable name.
func (s Status) String() string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("Unknown Status (%d)", uint8(s))
}

// ProgramState is an immutable snapshot of the script machine.  Every
// transition produces a new ProgramState and leaves its input unchanged, so
// any snapshot may be retained and inspected after evaluation continues.
type ProgramState struct {
	stack    Stack
	altStack Stack

	// script is the full token sequence: the unlocking tokens followed by
	// the locked tokens.  pc indexes the next token to dispatch.
	script       Script
	pc           int
	unlockingLen int

	condStack   condStack
	lastCodeSep int
	numOps      int

	ctx      *TxContext
	flags    ScriptFlags
	sigCache *SigCache

	status Status
	result bool
	err    error
}

// newProgramState returns the initial state for evaluating unlocking
// followed by locking.
func newProgramState(unlocking, locking Script, ctx *TxContext,
	flags ScriptFlags, sigCache *SigCache) ProgramState {

	script := make(Script, 0, len(unlocking)+len(locking))
	script = append(script, unlocking...)
	script = append(script, locking...)

	minimal := flags&ScriptVerifyMinimalData == ScriptVerifyMinimalData
	return ProgramState{
		stack:        Stack{verifyMinimalData: minimal},
		altStack:     Stack{verifyMinimalData: minimal},
		script:       script,
		unlockingLen: len(unlocking),
		lastCodeSep:  len(unlocking),
		ctx:          ctx,
		flags:        flags,
		sigCache:     sigCache,
	}
}

// hasFlag returns whether the state was created with the passed flag set.
func (s ProgramState) hasFlag(flag ScriptFlags) bool {
	return s.flags&flag == flag
}

// isBranchExecuting returns whether tokens at the current nesting level run.
func (s ProgramState) isBranchExecuting() bool {
	return s.condStack.executing()
}

// subScript returns the tokens from the most recent OP_CODESEPARATOR (or the
// start of the locked script) to the end.
func (s ProgramState) subScript() Script {
	return s.script[s.lastCodeSep:]
}

// sigVersion returns the signature hash algorithm in effect.
func (s ProgramState) sigVersion() SigVersion {
	if s.ctx == nil {
		return SigVersionBase
	}
	return s.ctx.SigVersion
}

// fail returns the state transitioned to StatusFailed with err as the reason.
func (s ProgramState) fail(err error) ProgramState {
	s.status = StatusFailed
	s.err = err
	return s
}

// halt returns the state transitioned to StatusHalted.  reason explains a
// false result.
func (s ProgramState) halt(result bool, reason error) ProgramState {
	s.status = StatusHalted
	s.result = result
	if !result {
		s.err = reason
	}
	return s
}

// Stack returns the data stack ordered from bottom to top.
func (s ProgramState) Stack() [][]byte {
	return s.stack.Items()
}

// AltStack returns the alternate stack ordered from bottom to top.
func (s ProgramState) AltStack() [][]byte {
	return s.altStack.Items()
}

// FullScript returns the whole token sequence being evaluated.
func (s ProgramState) FullScript() Script {
	return s.script
}

// RemainingOps returns the tokens that have not been dispatched yet.
func (s ProgramState) RemainingOps() Script {
	return s.script[s.pc:]
}

// CondDepth returns the current conditional nesting depth.
func (s ProgramState) CondDepth() int {
	return len(s.condStack)
}

// NumOps returns the number of counted operations in the current script.
func (s ProgramState) NumOps() int {
	return s.numOps
}

// Status returns where the state stands in the dispatch loop.
func (s ProgramState) Status() Status {
	return s.status
}

// Result returns the boolean a halted state ended with.
func (s ProgramState) Result() bool {
	return s.status == StatusHalted && s.result
}

// Err returns the failure reason of a failed state, or the reason a halted
// state evaluated to false.
func (s ProgramState) Err() error {
	return s.err
}
