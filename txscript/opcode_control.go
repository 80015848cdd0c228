// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
)

// controlOpcodes holds the flow control opcodes, the upgradable NOPs and the
// reserved opcodes.
var controlOpcodes = []opcode{
	{OP_RESERVED, "OP_RESERVED", 1, familyControl, opcodeReserved},
	{OP_NOP, "OP_NOP", 1, familyControl, opcodeNop},
	{OP_VER, "OP_VER", 1, familyControl, opcodeReserved},
	{OP_IF, "OP_IF", 1, familyControl, opcodeIf},
	{OP_NOTIF, "OP_NOTIF", 1, familyControl, opcodeNotIf},
	{OP_VERIF, "OP_VERIF", 1, familyControl, opcodeReserved},
	{OP_VERNOTIF, "OP_VERNOTIF", 1, familyControl, opcodeReserved},
	{OP_ELSE, "OP_ELSE", 1, familyControl, opcodeElse},
	{OP_ENDIF, "OP_ENDIF", 1, familyControl, opcodeEndif},
	{OP_VERIFY, "OP_VERIFY", 1, familyControl, opcodeVerify},
	{OP_RETURN, "OP_RETURN", 1, familyControl, opcodeReturn},
	{OP_RESERVED1, "OP_RESERVED1", 1, familyControl, opcodeReserved},
	{OP_RESERVED2, "OP_RESERVED2", 1, familyControl, opcodeReserved},
	{OP_NOP1, "OP_NOP1", 1, familyControl, opcodeNop},
	{OP_NOP4, "OP_NOP4", 1, familyControl, opcodeNop},
	{OP_NOP5, "OP_NOP5", 1, familyControl, opcodeNop},
	{OP_NOP6, "OP_NOP6", 1, familyControl, opcodeNop},
	{OP_NOP7, "OP_NOP7", 1, familyControl, opcodeNop},
	{OP_NOP8, "OP_NOP8", 1, familyControl, opcodeNop},
	{OP_NOP9, "OP_NOP9", 1, familyControl, opcodeNop},
	{OP_NOP10, "OP_NOP10", 1, familyControl, opcodeNop},
}

// opcodeNop is a common handler for the NOP family of opcodes.  As the name
// implies it generally does nothing, however, it will return an error when
// the flag to discourage use of NOPs is set for select opcodes.
func opcodeNop(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	switch op.value {
	case OP_NOP1, OP_NOP4, OP_NOP5, OP_NOP6, OP_NOP7, OP_NOP8, OP_NOP9,
		OP_NOP10:

		if s.hasFlag(ScriptDiscourageUpgradableNops) {
			str := fmt.Sprintf("%s reserved for soft-fork upgrades",
				op.name)
			return s, scriptError(ErrDiscourageUpgradableNOPs, str)
		}
	}
	return s, nil
}

// popIfBool pops the top item off the stack and returns a bool.  When the
// ScriptVerifyMinimalIf flag is set for a witness v0 script, the item must be
// either an empty vector or [0x01].
func popIfBool(s ProgramState) (bool, Stack, error) {
	if s.sigVersion() != SigVersionWitnessV0 ||
		!s.hasFlag(ScriptVerifyMinimalIf) {

		return s.stack.PopBool()
	}

	so, rest, err := s.stack.PopByteArray()
	if err != nil {
		return false, s.stack, err
	}
	if len(so) > 1 {
		str := fmt.Sprintf("minimal if is active, top element MUST "+
			"have a length of at most 1, instead length is %v",
			len(so))
		return false, s.stack, scriptError(ErrMinimalIf, str)
	}
	if len(so) == 1 && so[0] != 0x01 {
		str := fmt.Sprintf("minimal if is active, top stack item MUST "+
			"be an empty byte array or 0x01, is instead: %v",
			so[0])
		return false, s.stack, scriptError(ErrMinimalIf, str)
	}
	return asBool(so), rest, nil
}

// conditional is the shared body of OP_IF and OP_NOTIF.  The top item is only
// consumed when the enclosing branch executes; otherwise a non-executing
// entry is recorded so the matching OP_ELSE and OP_ENDIF stay balanced.
func conditional(s ProgramState, negate bool) (ProgramState, error) {
	var entry condEntry
	if s.isBranchExecuting() {
		ok, rest, err := popIfBool(s)
		if err != nil {
			return s, err
		}
		s.stack = rest
		entry.executing = ok != negate
	}
	s.condStack = s.condStack.push(entry)
	return s, nil
}

// opcodeIf treats the top item on the data stack as a boolean and removes it.
//
// An appropriate entry is added to the conditional stack depending on whether
// the boolean is true and whether this if is on an executing branch in order
// to allow proper execution of further opcodes depending on the conditional
// logic.  When the boolean is true, the first branch will be executed (unless
// this opcode is nested in a non-executed branch).
//
// <expression> if [statements] [else [statements]] endif
//
// Note that, unlike for all non-conditional opcodes, this is executed even when
// it is on a non-executing branch so proper nesting is maintained.
//
// Data stack transformation: [... bool] -> [...]
// Conditional stack transformation: [...] -> [... entry]
func opcodeIf(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return conditional(s, false)
}

// opcodeNotIf treats the top item on the data stack as a boolean and removes
// it.
//
// An appropriate entry is added to the conditional stack depending on whether
// the boolean is true and whether this if is on an executing branch in order
// to allow proper execution of further opcodes depending on the conditional
// logic.  When the boolean is false, the first branch will be executed (unless
// this opcode is nested in a non-executed branch).
//
// <expression> notif [statements] [else [statements]] endif
//
// Note that, unlike for all non-conditional opcodes, this is executed even when
// it is on a non-executing branch so proper nesting is maintained.
//
// Data stack transformation: [... bool] -> [...]
// Conditional stack transformation: [...] -> [... entry]
func opcodeNotIf(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return conditional(s, true)
}

// opcodeElse inverts conditional execution for other half of if/else/endif.
// The inversion only takes effect when the enclosing branch executes.
//
// An error is returned if there has not already been a matching OP_IF.
// Repeated OP_ELSE opcodes keep toggling the branch unless
// ScriptVerifySingleElse is set.
//
// Conditional stack transformation: [... entry] -> [... !entry]
func opcodeElse(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	if len(s.condStack) == 0 {
		str := fmt.Sprintf("encountered opcode %s with no matching "+
			"opcode to begin conditional execution", op.name)
		return s, scriptError(ErrUnbalancedConditional, str)
	}

	top := s.condStack[len(s.condStack)-1]
	if top.elseSeen && s.hasFlag(ScriptVerifySingleElse) {
		str := fmt.Sprintf("encountered repeated opcode %s in a "+
			"single conditional", op.name)
		return s, scriptError(ErrUnbalancedConditional, str)
	}

	enclosing := s.condStack.pop().executing()
	s.condStack = s.condStack.replaceTop(condEntry{
		executing: enclosing && !top.executing,
		elseSeen:  true,
	})
	return s, nil
}

// opcodeEndif terminates a conditional block, removing the value from the
// conditional execution stack.
//
// An error is returned if there has not already been a matching OP_IF.
//
// Conditional stack transformation: [... entry] -> [...]
func opcodeEndif(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	if len(s.condStack) == 0 {
		str := fmt.Sprintf("encountered opcode %s with no matching "+
			"opcode to begin conditional execution", op.name)
		return s, scriptError(ErrUnbalancedConditional, str)
	}

	s.condStack = s.condStack.pop()
	return s, nil
}

// abstractVerify examines the top item on the data stack as a boolean value and
// verifies it evaluates to true.  An error is returned either when there is no
// item on the stack or when that item evaluates to false.  In the latter case
// where the verification fails specifically due to the top item evaluating
// to false, the returned error will use the passed error code.
func abstractVerify(op *opcode, s ProgramState, c ErrorCode) (ProgramState, error) {
	verified, rest, err := s.stack.PopBool()
	if err != nil {
		return s, err
	}

	if !verified {
		str := fmt.Sprintf("%s failed", op.name)
		return s, scriptError(c, str)
	}
	s.stack = rest
	return s, nil
}

// opcodeVerify examines the top item on the data stack as a boolean value and
// verifies it evaluates to true.  An error is returned if it does not.
//
// Stack transformation: [... x1] -> [...]
func opcodeVerify(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return abstractVerify(op, s, ErrVerify)
}

// opcodeReturn returns an appropriate error since it is always an error to
// return early from a script.
func opcodeReturn(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return s, scriptError(ErrEarlyReturn, "script returned early")
}
