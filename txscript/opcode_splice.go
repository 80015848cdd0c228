// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// spliceOpcodes holds the byte string opcodes.  Only OP_SIZE survives; the
// rest are disabled by consensus.
var spliceOpcodes = []opcode{
	{OP_CAT, "OP_CAT", 1, familySplice, opcodeDisabled},
	{OP_SUBSTR, "OP_SUBSTR", 1, familySplice, opcodeDisabled},
	{OP_LEFT, "OP_LEFT", 1, familySplice, opcodeDisabled},
	{OP_RIGHT, "OP_RIGHT", 1, familySplice, opcodeDisabled},
	{OP_SIZE, "OP_SIZE", 1, familySplice, opcodeSize},
}

// opcodeSize pushes the size of the top item of the data stack onto the data
// stack.
//
// Stack transformation: [... x1] -> [... x1 len(x1)]
func opcodeSize(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	so, err := s.stack.PeekByteArray(0)
	if err != nil {
		return s, err
	}

	s.stack = s.stack.PushInt(scriptNum(len(so)))
	return s, nil
}
