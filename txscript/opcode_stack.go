// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
)

// stackOpcodes holds the opcodes that rearrange the data and alternate
// stacks.
var stackOpcodes = []opcode{
	{OP_TOALTSTACK, "OP_TOALTSTACK", 1, familyStack, opcodeToAltStack},
	{OP_FROMALTSTACK, "OP_FROMALTSTACK", 1, familyStack, opcodeFromAltStack},
	{OP_2DROP, "OP_2DROP", 1, familyStack, opcode2Drop},
	{OP_2DUP, "OP_2DUP", 1, familyStack, opcode2Dup},
	{OP_3DUP, "OP_3DUP", 1, familyStack, opcode3Dup},
	{OP_2OVER, "OP_2OVER", 1, familyStack, opcode2Over},
	{OP_2ROT, "OP_2ROT", 1, familyStack, opcode2Rot},
	{OP_2SWAP, "OP_2SWAP", 1, familyStack, opcode2Swap},
	{OP_IFDUP, "OP_IFDUP", 1, familyStack, opcodeIfDup},
	{OP_DEPTH, "OP_DEPTH", 1, familyStack, opcodeDepth},
	{OP_DROP, "OP_DROP", 1, familyStack, opcodeDrop},
	{OP_DUP, "OP_DUP", 1, familyStack, opcodeDup},
	{OP_NIP, "OP_NIP", 1, familyStack, opcodeNip},
	{OP_OVER, "OP_OVER", 1, familyStack, opcodeOver},
	{OP_PICK, "OP_PICK", 1, familyStack, opcodePick},
	{OP_ROLL, "OP_ROLL", 1, familyStack, opcodeRoll},
	{OP_ROT, "OP_ROT", 1, familyStack, opcodeRot},
	{OP_SWAP, "OP_SWAP", 1, familyStack, opcodeSwap},
	{OP_TUCK, "OP_TUCK", 1, familyStack, opcodeTuck},
}

// opcodeToAltStack removes the top item from the main data stack and pushes
// it onto the alternate data stack.
//
// Main data stack transformation: [... x1 x2 x3] -> [... x1 x2]
// Alt data stack transformation:  [... y1 y2 y3] -> [... y1 y2 y3 x3]
func opcodeToAltStack(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	so, rest, err := s.stack.PopByteArray()
	if err != nil {
		return s, err
	}
	s.stack = rest
	s.altStack = s.altStack.PushByteArray(so)
	return s, nil
}

// opcodeFromAltStack removes the top item from the alternate data stack and
// pushes it onto the main data stack.
//
// Main data stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 y3]
// Alt data stack transformation:  [... y1 y2 y3] -> [... y1 y2]
func opcodeFromAltStack(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	so, rest, err := s.altStack.PopByteArray()
	if err != nil {
		str := fmt.Sprintf("%s requires a non-empty alternate stack",
			op.name)
		return s, scriptError(ErrStackUnderflow, str)
	}
	s.altStack = rest
	s.stack = s.stack.PushByteArray(so)
	return s, nil
}

// opcode2Drop removes the top 2 items from the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1]
func opcode2Drop(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.DropN(2) })
}

// opcode2Dup duplicates the top 2 items on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x2 x3]
func opcode2Dup(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.DupN(2) })
}

// opcode3Dup duplicates the top 3 items on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x1 x2 x3]
func opcode3Dup(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.DupN(3) })
}

// opcode2Over duplicates the 2 items before the top 2 items on the data stack.
//
// Stack transformation: [... x1 x2 x3 x4] -> [... x1 x2 x3 x4 x1 x2]
func opcode2Over(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.OverN(2) })
}

// opcode2Rot rotates the top 6 items on the data stack to the left twice.
//
// Stack transformation: [... x1 x2 x3 x4 x5 x6] -> [... x3 x4 x5 x6 x1 x2]
func opcode2Rot(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.RotN(2) })
}

// opcode2Swap swaps the top 2 items on the data stack with the 2 that come
// before them.
//
// Stack transformation: [... x1 x2 x3 x4] -> [... x3 x4 x1 x2]
func opcode2Swap(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.SwapN(2) })
}

// opcodeIfDup duplicates the top item of the stack if it is not zero.
//
// Stack transformation (x1==0): [... x1] -> [... x1]
// Stack transformation (x1!=0): [... x1] -> [... x1 x1]
func opcodeIfDup(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	so, err := s.stack.PeekByteArray(0)
	if err != nil {
		return s, err
	}

	// Push copy of data iff it isn't zero
	if asBool(so) {
		s.stack = s.stack.PushByteArray(so)
	}
	return s, nil
}

// opcodeDepth pushes the depth of the data stack prior to executing this
// opcode, encoded as a number, onto the data stack.
//
// Stack transformation: [...] -> [... <num of items on the stack>]
// Example with 2 items: [x1 x2] -> [x1 x2 2]
// Example with 3 items: [x1 x2 x3] -> [x1 x2 x3 3]
func opcodeDepth(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	s.stack = s.stack.PushInt(scriptNum(s.stack.Depth()))
	return s, nil
}

// opcodeDrop removes the top item from the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func opcodeDrop(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.DropN(1) })
}

// opcodeDup duplicates the top item on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x3]
func opcodeDup(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.DupN(1) })
}

// opcodeNip removes the item before the top item on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x3]
func opcodeNip(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.NipN(1) })
}

// opcodeOver duplicates the item before the top item on the data stack.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2 x3 x2]
func opcodeOver(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.OverN(1) })
}

// opcodePick treats the top item on the data stack as an integer and
// duplicates the item on the stack that number of items back to the top.
//
// Stack transformation: [xn ... x2 x1 x0 n] -> [xn ... x2 x1 x0 xn]
// Example with n=1: [x2 x1 x0 1] -> [x2 x1 x0 x1]
// Example with n=2: [x2 x1 x0 2] -> [x2 x1 x0 x2]
func opcodePick(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	val, rest, err := s.stack.PopInt()
	if err != nil {
		return s, err
	}
	rest, err = rest.PickN(val.Int32())
	if err != nil {
		return s, err
	}
	s.stack = rest
	return s, nil
}

// opcodeRoll treats the top item on the data stack as an integer and moves
// the item on the stack that number of items back to the top.
//
// Stack transformation: [xn ... x2 x1 x0 n] -> [... x2 x1 x0 xn]
// Example with n=1: [x2 x1 x0 1] -> [x2 x0 x1]
// Example with n=2: [x2 x1 x0 2] -> [x1 x0 x2]
func opcodeRoll(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	val, rest, err := s.stack.PopInt()
	if err != nil {
		return s, err
	}
	rest, err = rest.RollN(val.Int32())
	if err != nil {
		return s, err
	}
	s.stack = rest
	return s, nil
}

// opcodeRot rotates the top 3 items on the data stack to the left.
//
// Stack transformation: [... x1 x2 x3] -> [... x2 x3 x1]
func opcodeRot(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.RotN(1) })
}

// opcodeSwap swaps the top two items on the stack.
//
// Stack transformation: [... x1 x2] -> [... x2 x1]
func opcodeSwap(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, func(st Stack) (Stack, error) { return st.SwapN(1) })
}

// opcodeTuck inserts a duplicate of the top item of the data stack before the
// second-to-top item.
//
// Stack transformation: [... x1 x2] -> [... x2 x1 x2]
func opcodeTuck(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return withStack(s, Stack.Tuck)
}

// withStack applies f to the data stack of s and returns the state holding
// the result.
func withStack(s ProgramState, f func(Stack) (Stack, error)) (ProgramState, error) {
	st, err := f(s.stack)
	if err != nil {
		return s, err
	}
	s.stack = st
	return s, nil
}
