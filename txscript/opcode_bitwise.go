// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
)

// bitwiseOpcodes holds the byte comparison opcodes.  The bit manipulation
// opcodes are disabled by consensus.
var bitwiseOpcodes = []opcode{
	{OP_INVERT, "OP_INVERT", 1, familyBitwise, opcodeDisabled},
	{OP_AND, "OP_AND", 1, familyBitwise, opcodeDisabled},
	{OP_OR, "OP_OR", 1, familyBitwise, opcodeDisabled},
	{OP_XOR, "OP_XOR", 1, familyBitwise, opcodeDisabled},
	{OP_EQUAL, "OP_EQUAL", 1, familyBitwise, opcodeEqual},
	{OP_EQUALVERIFY, "OP_EQUALVERIFY", 1, familyBitwise, opcodeEqualVerify},
}

// opcodeEqual removes the top 2 items of the data stack, compares them as raw
// bytes, and pushes the result, encoded as a boolean, back to the stack.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeEqual(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	a, rest, err := s.stack.PopByteArray()
	if err != nil {
		return s, err
	}
	b, rest, err := rest.PopByteArray()
	if err != nil {
		return s, err
	}
	s.stack = rest.PushBool(bytes.Equal(a, b))
	return s, nil
}

// opcodeEqualVerify is a combination of opcodeEqual and opcodeVerify.
// Specifically, it removes the top 2 items of the data stack, compares them,
// and pushes the result, encoded as a boolean, back to the stack.  Then, it
// examines the top item on the data stack as a boolean value and verifies it
// evaluates to true.  An error is returned if it does not.
//
// Stack transformation: [... x1 x2] -> [... bool] -> [...]
func opcodeEqualVerify(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	s, err := opcodeEqual(op, data, s)
	if err != nil {
		return s, err
	}
	return abstractVerify(op, s, ErrEqualVerify)
}
