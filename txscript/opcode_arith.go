// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// arithOpcodes holds the numeric opcodes.  The multiplication, division and
// shift opcodes are disabled by consensus but still belong to this family.
var arithOpcodes = []opcode{
	{OP_1ADD, "OP_1ADD", 1, familyArith, opcode1Add},
	{OP_1SUB, "OP_1SUB", 1, familyArith, opcode1Sub},
	{OP_2MUL, "OP_2MUL", 1, familyArith, opcodeDisabled},
	{OP_2DIV, "OP_2DIV", 1, familyArith, opcodeDisabled},
	{OP_NEGATE, "OP_NEGATE", 1, familyArith, opcodeNegate},
	{OP_ABS, "OP_ABS", 1, familyArith, opcodeAbs},
	{OP_NOT, "OP_NOT", 1, familyArith, opcodeNot},
	{OP_0NOTEQUAL, "OP_0NOTEQUAL", 1, familyArith, opcode0NotEqual},
	{OP_ADD, "OP_ADD", 1, familyArith, opcodeAdd},
	{OP_SUB, "OP_SUB", 1, familyArith, opcodeSub},
	{OP_MUL, "OP_MUL", 1, familyArith, opcodeDisabled},
	{OP_DIV, "OP_DIV", 1, familyArith, opcodeDisabled},
	{OP_MOD, "OP_MOD", 1, familyArith, opcodeDisabled},
	{OP_LSHIFT, "OP_LSHIFT", 1, familyArith, opcodeDisabled},
	{OP_RSHIFT, "OP_RSHIFT", 1, familyArith, opcodeDisabled},
	{OP_BOOLAND, "OP_BOOLAND", 1, familyArith, opcodeBoolAnd},
	{OP_BOOLOR, "OP_BOOLOR", 1, familyArith, opcodeBoolOr},
	{OP_NUMEQUAL, "OP_NUMEQUAL", 1, familyArith, opcodeNumEqual},
	{OP_NUMEQUALVERIFY, "OP_NUMEQUALVERIFY", 1, familyArith, opcodeNumEqualVerify},
	{OP_NUMNOTEQUAL, "OP_NUMNOTEQUAL", 1, familyArith, opcodeNumNotEqual},
	{OP_LESSTHAN, "OP_LESSTHAN", 1, familyArith, opcodeLessThan},
	{OP_GREATERTHAN, "OP_GREATERTHAN", 1, familyArith, opcodeGreaterThan},
	{OP_LESSTHANOREQUAL, "OP_LESSTHANOREQUAL", 1, familyArith, opcodeLessThanOrEqual},
	{OP_GREATERTHANOREQUAL, "OP_GREATERTHANOREQUAL", 1, familyArith, opcodeGreaterThanOrEqual},
	{OP_MIN, "OP_MIN", 1, familyArith, opcodeMin},
	{OP_MAX, "OP_MAX", 1, familyArith, opcodeMax},
	{OP_WITHIN, "OP_WITHIN", 1, familyArith, opcodeWithin},
}

// unaryOp pops one number, applies f and pushes the result.
func unaryOp(s ProgramState, f func(m scriptNum) scriptNum) (ProgramState, error) {
	m, rest, err := s.stack.PopInt()
	if err != nil {
		return s, err
	}
	s.stack = rest.PushInt(f(m))
	return s, nil
}

// binaryOp pops two numbers, applies f with the second-to-top item as a and
// the top item as b, and pushes the result.
//
// Stack transformation: [... a b] -> [... f(a, b)]
func binaryOp(s ProgramState, f func(a, b scriptNum) scriptNum) (ProgramState, error) {
	b, rest, err := s.stack.PopInt()
	if err != nil {
		return s, err
	}
	a, rest, err := rest.PopInt()
	if err != nil {
		return s, err
	}
	s.stack = rest.PushInt(f(a, b))
	return s, nil
}

// compareOp is binaryOp for predicates.  The result is pushed as a canonical
// boolean.
func compareOp(s ProgramState, f func(a, b scriptNum) bool) (ProgramState, error) {
	return binaryOp(s, func(a, b scriptNum) scriptNum {
		if f(a, b) {
			return 1
		}
		return 0
	})
}

// opcode1Add treats the top item on the data stack as an integer and replaces
// it with its incremented value (plus 1).
//
// Stack transformation: [... x1 x2] -> [... x1 x2+1]
func opcode1Add(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return unaryOp(s, func(m scriptNum) scriptNum { return m + 1 })
}

// opcode1Sub treats the top item on the data stack as an integer and replaces
// it with its decremented value (minus 1).
//
// Stack transformation: [... x1 x2] -> [... x1 x2-1]
func opcode1Sub(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return unaryOp(s, func(m scriptNum) scriptNum { return m - 1 })
}

// opcodeNegate treats the top item on the data stack as an integer and
// replaces it with its negation.
//
// Stack transformation: [... x1 x2] -> [... x1 -x2]
func opcodeNegate(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return unaryOp(s, func(m scriptNum) scriptNum { return -m })
}

// opcodeAbs treats the top item on the data stack as an integer and replaces
// it it with its absolute value.
//
// Stack transformation: [... x1 x2] -> [... x1 abs(x2)]
func opcodeAbs(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return unaryOp(s, func(m scriptNum) scriptNum {
		if m < 0 {
			return -m
		}
		return m
	})
}

// opcodeNot treats the top item on the data stack as an integer and replaces
// it with its "inverted" value (0 becomes 1, non-zero becomes 0).
//
// NOTE: While it would probably make more sense to treat the top item as a
// boolean, and push the opposite, which is really what the intention of this
// opcode is, it is extremely important that is not done because integers are
// interpreted differently than booleans and the consensus rules for this
// opcode dictate the item is interpreted as an integer.
//
// Stack transformation (x2==0): [... x1 0] -> [... x1 1]
// Stack transformation (x2!=0): [... x1 1] -> [... x1 0]
// Stack transformation (x2!=0): [... x1 17] -> [... x1 0]
func opcodeNot(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return unaryOp(s, func(m scriptNum) scriptNum {
		if m == 0 {
			return 1
		}
		return 0
	})
}

// opcode0NotEqual treats the top item on the data stack as an integer and
// replaces it with either a 0 if it is zero, or a 1 if it is not zero.
//
// Stack transformation (x2==0): [... x1 0] -> [... x1 0]
// Stack transformation (x2!=0): [... x1 1] -> [... x1 1]
// Stack transformation (x2!=0): [... x1 17] -> [... x1 1]
func opcode0NotEqual(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return unaryOp(s, func(m scriptNum) scriptNum {
		if m != 0 {
			return 1
		}
		return 0
	})
}

// opcodeAdd treats the top two items on the data stack as integers and
// replaces them with their sum.
//
// Stack transformation: [... x1 x2] -> [... x1+x2]
func opcodeAdd(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return binaryOp(s, func(a, b scriptNum) scriptNum { return a + b })
}

// opcodeSub treats the top two items on the data stack as integers and
// replaces them with the result of subtracting the top entry from the second
// entry.
//
// Stack transformation: [... x1 x2] -> [... x1-x2]
func opcodeSub(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return binaryOp(s, func(a, b scriptNum) scriptNum { return a - b })
}

// opcodeBoolAnd treats the top two items on the data stack as integers.  When
// both of them are not zero, they are replaced with a 1, otherwise a 0.
//
// Stack transformation (x1==0, x2==0): [... 0 0] -> [... 0]
// Stack transformation (x1!=0, x2==0): [... 5 0] -> [... 0]
// Stack transformation (x1==0, x2!=0): [... 0 7] -> [... 0]
// Stack transformation (x1!=0, x2!=0): [... 4 8] -> [... 1]
func opcodeBoolAnd(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return compareOp(s, func(a, b scriptNum) bool { return a != 0 && b != 0 })
}

// opcodeBoolOr treats the top two items on the data stack as integers.  When
// either of them are not zero, they are replaced with a 1, otherwise a 0.
//
// Stack transformation (x1==0, x2==0): [... 0 0] -> [... 0]
// Stack transformation (x1!=0, x2==0): [... 5 0] -> [... 1]
// Stack transformation (x1==0, x2!=0): [... 0 7] -> [... 1]
// Stack transformation (x1!=0, x2!=0): [... 4 8] -> [... 1]
func opcodeBoolOr(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return compareOp(s, func(a, b scriptNum) bool { return a != 0 || b != 0 })
}

// opcodeNumEqual treats the top two items on the data stack as integers.  When
// they are equal, they are replaced with a 1, otherwise a 0.
//
// Stack transformation (x1==x2): [... 5 5] -> [... 1]
// Stack transformation (x1!=x2): [... 5 7] -> [... 0]
func opcodeNumEqual(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return compareOp(s, func(a, b scriptNum) bool { return a == b })
}

// opcodeNumEqualVerify is a combination of opcodeNumEqual and opcodeVerify.
//
// Specifically, treats the top two items on the data stack as integers.  When
// they are equal, they are replaced with a 1, otherwise a 0.  Then, it examines
// the top item on the data stack as a boolean value and verifies it evaluates
// to true.  An error is returned if it does not.
//
// Stack transformation: [... x1 x2] -> [... bool] -> [...]
func opcodeNumEqualVerify(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	s, err := opcodeNumEqual(op, data, s)
	if err != nil {
		return s, err
	}
	return abstractVerify(op, s, ErrNumEqualVerify)
}

// opcodeNumNotEqual treats the top two items on the data stack as integers.
// When they are NOT equal, they are replaced with a 1, otherwise a 0.
//
// Stack transformation (x1==x2): [... 5 5] -> [... 0]
// Stack transformation (x1!=x2): [... 5 7] -> [... 1]
func opcodeNumNotEqual(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return compareOp(s, func(a, b scriptNum) bool { return a != b })
}

// opcodeLessThan treats the top two items on the data stack as integers.  When
// the second-to-top item is less than the top item, they are replaced with a 1,
// otherwise a 0.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeLessThan(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return compareOp(s, func(a, b scriptNum) bool { return a < b })
}

// opcodeGreaterThan treats the top two items on the data stack as integers.
// When the second-to-top item is greater than the top item, they are replaced
// with a 1, otherwise a 0.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeGreaterThan(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return compareOp(s, func(a, b scriptNum) bool { return a > b })
}

// opcodeLessThanOrEqual treats the top two items on the data stack as
// integers.  When the second-to-top item is less than or equal to the top item,
// they are replaced with a 1, otherwise a 0.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeLessThanOrEqual(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return compareOp(s, func(a, b scriptNum) bool { return a <= b })
}

// opcodeGreaterThanOrEqual treats the top two items on the data stack as
// integers.  When the second-to-top item is greater than or equal to the top
// item, they are replaced with a 1, otherwise a 0.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeGreaterThanOrEqual(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return compareOp(s, func(a, b scriptNum) bool { return a >= b })
}

// opcodeMin treats the top two items on the data stack as integers and replaces
// them with the minimum of the two.
//
// Stack transformation: [... x1 x2] -> [... min(x1, x2)]
func opcodeMin(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return binaryOp(s, func(a, b scriptNum) scriptNum { return min(a, b) })
}

// opcodeMax treats the top two items on the data stack as integers and replaces
// them with the maximum of the two.
//
// Stack transformation: [... x1 x2] -> [... max(x1, x2)]
func opcodeMax(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return binaryOp(s, func(a, b scriptNum) scriptNum { return max(a, b) })
}

// opcodeWithin treats the top 3 items on the data stack as integers.  When the
// value to test is within the specified range (left inclusive), they are
// replaced with a 1, otherwise a 0.
//
// The top item is the max value, the second-top-item is the minimum value, and
// the third-to-top item is the value to test.
//
// Stack transformation: [... x1 min max] -> [... bool]
func opcodeWithin(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	maxVal, rest, err := s.stack.PopInt()
	if err != nil {
		return s, err
	}
	minVal, rest, err := rest.PopInt()
	if err != nil {
		return s, err
	}
	x, rest, err := rest.PopInt()
	if err != nil {
		return s, err
	}
	s.stack = rest.PushBool(x >= minVal && x < maxVal)
	return s, nil
}
