// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
)

// pushOpcodes holds the data push and small integer opcodes.
var pushOpcodes = makePushOpcodes()

func makePushOpcodes() []opcode {
	ops := make([]opcode, 0, OP_PUSHDATA4+1+17)
	ops = append(ops, opcode{OP_0, "OP_0", 1, familyPush, opcodeFalse})
	for i := OP_DATA_1; i <= OP_DATA_75; i++ {
		ops = append(ops, opcode{
			value:  byte(i),
			name:   fmt.Sprintf("OP_DATA_%d", i),
			length: i + 1,
			family: familyPush,
			opfunc: opcodePushData,
		})
	}
	ops = append(ops,
		opcode{OP_PUSHDATA1, "OP_PUSHDATA1", -1, familyPush, opcodePushData},
		opcode{OP_PUSHDATA2, "OP_PUSHDATA2", -2, familyPush, opcodePushData},
		opcode{OP_PUSHDATA4, "OP_PUSHDATA4", -4, familyPush, opcodePushData},
		opcode{OP_1NEGATE, "OP_1NEGATE", 1, familyPush, opcode1Negate},
	)
	for i := OP_1; i <= OP_16; i++ {
		ops = append(ops, opcode{
			value:  byte(i),
			name:   fmt.Sprintf("OP_%d", i-(OP_1-1)),
			length: 1,
			family: familyPush,
			opfunc: opcodeN,
		})
	}
	return ops
}

// opcodeFalse pushes an empty array to the data stack to represent false.
// Note that 0, when encoded as a number according to the numeric encoding
// consensus rules, is an empty array.
func opcodeFalse(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	s.stack = s.stack.PushByteArray(nil)
	return s, nil
}

// opcodePushData is a common handler for the vast majority of opcodes that
// push raw data (bytes) to the data stack.
func opcodePushData(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	s.stack = s.stack.PushByteArray(data)
	return s, nil
}

// opcode1Negate pushes -1, encoded as a number, to the data stack.
func opcode1Negate(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	s.stack = s.stack.PushInt(scriptNum(-1))
	return s, nil
}

// opcodeN is a common handler for the small integer data push opcodes.  It
// pushes the numeric value the opcode represents (which will be from 1 to 16)
// onto the data stack.
func opcodeN(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	// The opcodes are all defined consecutively, so the numeric value is
	// the difference.
	s.stack = s.stack.PushInt(scriptNum(op.value - (OP_1 - 1)))
	return s, nil
}
