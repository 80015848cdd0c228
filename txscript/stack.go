// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// asBool gets the boolean value of the byte array.
func asBool(t []byte) bool {
	for i := range t {
		if t[i] != 0 {
			// Negative 0 is also considered false.
			if i == len(t)-1 && t[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

// fromBool converts a boolean into the canonical byte array used on the
// stack: an empty vector for false and [0x01] for true.
func fromBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return nil
}

// stackNode is a single immutable cell of a Stack.  depth counts the node
// itself plus every node below it.
type stackNode struct {
	data  []byte
	below *stackNode
	depth int32
}

// Stack represents a stack of immutable objects to be used with bitcoin
// scripts.  Objects may be shared, therefore in usage if a value is to be
// changed it *must* be deep-copied first to avoid changing other values on
// the stack.
//
// A Stack is itself a persistent value: every operation leaves the receiver
// untouched and returns the resulting stack, sharing all unchanged cells
// with the original.  Copying a Stack is therefore cheap and snapshots taken
// at any point remain valid forever.
type Stack struct {
	top               *stackNode
	verifyMinimalData bool
}

// newStack returns a stack holding items, where the last item is the top.
func newStack(verifyMinimalData bool, items ...[]byte) Stack {
	s := Stack{verifyMinimalData: verifyMinimalData}
	for _, item := range items {
		s = s.PushByteArray(item)
	}
	return s
}

// Depth returns the number of items on the stack.
func (s Stack) Depth() int32 {
	if s.top == nil {
		return 0
	}
	return s.top.depth
}

// PushByteArray adds the given back array to the top of the stack.
//
// Stack transformation: [... x1 x2] -> [... x1 x2 data]
func (s Stack) PushByteArray(so []byte) Stack {
	s.top = &stackNode{data: so, below: s.top, depth: s.Depth() + 1}
	return s
}

// PushInt converts the provided scriptNum to a suitable byte array then
// pushes it onto the top of the stack.
//
// Stack transformation: [... x1 x2] -> [... x1 x2 int]
func (s Stack) PushInt(val scriptNum) Stack {
	return s.PushByteArray(val.Bytes())
}

// PushBool converts the provided boolean to a suitable byte array then pushes
// it onto the top of the stack.
//
// Stack transformation: [... x1 x2] -> [... x1 x2 bool]
func (s Stack) PushBool(val bool) Stack {
	return s.PushByteArray(fromBool(val))
}

// PopByteArray pops the value off the top of the stack and returns it.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s Stack) PopByteArray() ([]byte, Stack, error) {
	return s.nipN(0)
}

// PopInt pops the value off the top of the stack, converts it into a script
// num, and returns it.  The act of converting to a script num enforces the
// consensus rules imposed on data interpreted as numbers.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s Stack) PopInt() (scriptNum, Stack, error) {
	so, rest, err := s.PopByteArray()
	if err != nil {
		return 0, s, err
	}

	n, err := makeScriptNum(so, s.verifyMinimalData, defaultScriptNumLen)
	if err != nil {
		return 0, s, err
	}
	return n, rest, nil
}

// PopBool pops the value off the top of the stack, converts it into a bool,
// and returns it.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s Stack) PopBool() (bool, Stack, error) {
	so, rest, err := s.PopByteArray()
	if err != nil {
		return false, s, err
	}
	return asBool(so), rest, nil
}

// nodeAt returns the node idx positions below the top of the stack.
func (s Stack) nodeAt(idx int32) (*stackNode, error) {
	sz := s.Depth()
	if idx < 0 || idx >= sz {
		str := fmt.Sprintf("index %d is invalid for stack size %d", idx,
			sz)
		return nil, scriptError(ErrStackUnderflow, str)
	}

	n := s.top
	for ; idx > 0; idx-- {
		n = n.below
	}
	return n, nil
}

// PeekByteArray returns the Nth item on the stack without removing it.
func (s Stack) PeekByteArray(idx int32) ([]byte, error) {
	n, err := s.nodeAt(idx)
	if err != nil {
		return nil, err
	}
	return n.data, nil
}

// PeekInt returns the Nth item on the stack as a script num without removing
// it.  The act of converting to a script num enforces the consensus rules
// imposed on data interpreted as numbers.
func (s Stack) PeekInt(idx int32) (scriptNum, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return 0, err
	}
	return makeScriptNum(so, s.verifyMinimalData, defaultScriptNumLen)
}

// PeekBool returns the Nth item on the stack as a bool without removing it.
func (s Stack) PeekBool(idx int32) (bool, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return false, err
	}
	return asBool(so), nil
}

// nipN is an internal function that removes the nth item on the stack and
// returns it along with the resulting stack.  Only the idx cells above the
// removed one are rebuilt; everything below it is shared.
//
// Stack transformation:
// nipN(0): [... x1 x2 x3] -> [... x1 x2]
// nipN(1): [... x1 x2 x3] -> [... x1 x3]
// nipN(2): [... x1 x2 x3] -> [... x2 x3]
func (s Stack) nipN(idx int32) ([]byte, Stack, error) {
	target, err := s.nodeAt(idx)
	if err != nil {
		return nil, s, err
	}

	above := make([][]byte, 0, idx)
	for n := s.top; n != target; n = n.below {
		above = append(above, n.data)
	}

	rest := Stack{top: target.below, verifyMinimalData: s.verifyMinimalData}
	for i := len(above) - 1; i >= 0; i-- {
		rest = rest.PushByteArray(above[i])
	}
	return target.data, rest, nil
}

// NipN removes the Nth object on the stack
//
// Stack transformation:
// NipN(0): [... x1 x2 x3] -> [... x1 x2]
// NipN(1): [... x1 x2 x3] -> [... x1 x3]
// NipN(2): [... x1 x2 x3] -> [... x2 x3]
func (s Stack) NipN(idx int32) (Stack, error) {
	_, rest, err := s.nipN(idx)
	return rest, err
}

// Tuck copies the item at the top of the stack and inserts it before the 2nd
// to top item.
//
// Stack transformation: [... x1 x2] -> [... x2 x1 x2]
func (s Stack) Tuck() (Stack, error) {
	x2, rest, err := s.PopByteArray()
	if err != nil {
		return s, err
	}
	x1, rest, err := rest.PopByteArray()
	if err != nil {
		return s, err
	}
	return rest.PushByteArray(x2).PushByteArray(x1).PushByteArray(x2), nil
}

// DropN removes the top N items from the stack.
//
// Stack transformation:
// DropN(1): [... x1 x2] -> [... x1]
// DropN(2): [... x1 x2] -> [...]
func (s Stack) DropN(n int32) (Stack, error) {
	if n < 1 {
		str := fmt.Sprintf("attempt to drop %d items from stack", n)
		return s, scriptError(ErrInternal, str)
	}

	rest := s
	for ; n > 0; n-- {
		var err error
		_, rest, err = rest.PopByteArray()
		if err != nil {
			return s, err
		}
	}
	return rest, nil
}

// DupN duplicates the top N items on the stack.
//
// Stack transformation:
// DupN(1): [... x1 x2] -> [... x1 x2 x2]
// DupN(2): [... x1 x2] -> [... x1 x2 x1 x2]
func (s Stack) DupN(n int32) (Stack, error) {
	if n < 1 {
		str := fmt.Sprintf("attempt to dup %d stack items", n)
		return s, scriptError(ErrInternal, str)
	}

	// Iteratively duplicate the value n-1 down the stack n times.
	// This leaves an in-order duplicate of the top n items on the stack.
	rest := s
	for i := n; i > 0; i-- {
		so, err := rest.PeekByteArray(n - 1)
		if err != nil {
			return s, err
		}
		rest = rest.PushByteArray(so)
	}
	return rest, nil
}

// RotN rotates the top 3N items on the stack to the left N times.
//
// Stack transformation:
// RotN(1): [... x1 x2 x3] -> [... x2 x3 x1]
// RotN(2): [... x1 x2 x3 x4 x5 x6] -> [... x3 x4 x5 x6 x1 x2]
func (s Stack) RotN(n int32) (Stack, error) {
	if n < 1 {
		str := fmt.Sprintf("attempt to rotate %d stack items", n)
		return s, scriptError(ErrInternal, str)
	}

	// Nip the 3n-1th item from the stack to the top n times to rotate
	// them up to the head of the stack.
	entry := 3*n - 1
	rest := s
	for i := n; i > 0; i-- {
		so, next, err := rest.nipN(entry)
		if err != nil {
			return s, err
		}
		rest = next.PushByteArray(so)
	}
	return rest, nil
}

// SwapN swaps the top N items on the stack with those below them.
//
// Stack transformation:
// SwapN(1): [... x1 x2] -> [... x2 x1]
// SwapN(2): [... x1 x2 x3 x4] -> [... x3 x4 x1 x2]
func (s Stack) SwapN(n int32) (Stack, error) {
	if n < 1 {
		str := fmt.Sprintf("attempt to swap %d stack items", n)
		return s, scriptError(ErrInternal, str)
	}

	entry := 2*n - 1
	rest := s
	for i := n; i > 0; i-- {
		// Swap 2n-1th entry to top.
		so, next, err := rest.nipN(entry)
		if err != nil {
			return s, err
		}
		rest = next.PushByteArray(so)
	}
	return rest, nil
}

// OverN copies N items N items back to the top of the stack.
//
// Stack transformation:
// OverN(1): [... x1 x2 x3] -> [... x1 x2 x3 x2]
// OverN(2): [... x1 x2 x3 x4] -> [... x1 x2 x3 x4 x1 x2]
func (s Stack) OverN(n int32) (Stack, error) {
	if n < 1 {
		str := fmt.Sprintf("attempt to perform over on %d stack items",
			n)
		return s, scriptError(ErrInternal, str)
	}

	// Copy 2n-1th entry to top of the stack.
	entry := 2*n - 1
	rest := s
	for ; n > 0; n-- {
		so, err := rest.PeekByteArray(entry)
		if err != nil {
			return s, err
		}
		rest = rest.PushByteArray(so)
	}
	return rest, nil
}

// PickN copies the item N items back in the stack to the top.
//
// Stack transformation:
// PickN(0): [x1 x2 x3] -> [x1 x2 x3 x3]
// PickN(1): [x1 x2 x3] -> [x1 x2 x3 x2]
// PickN(2): [x1 x2 x3] -> [x1 x2 x3 x1]
func (s Stack) PickN(n int32) (Stack, error) {
	so, err := s.PeekByteArray(n)
	if err != nil {
		return s, err
	}
	return s.PushByteArray(so), nil
}

// RollN moves the item N items back in the stack to the top.
//
// Stack transformation:
// RollN(0): [x1 x2 x3] -> [x1 x2 x3]
// RollN(1): [x1 x2 x3] -> [x1 x3 x2]
// RollN(2): [x1 x2 x3] -> [x2 x3 x1]
func (s Stack) RollN(n int32) (Stack, error) {
	so, rest, err := s.nipN(n)
	if err != nil {
		return s, err
	}
	return rest.PushByteArray(so), nil
}

// Items returns the contents of the stack ordered from bottom to top.
func (s Stack) Items() [][]byte {
	items := make([][]byte, s.Depth())
	i := len(items) - 1
	for n := s.top; n != nil; n = n.below {
		items[i] = n.data
		i--
	}
	return items
}

// String returns the stack in a readable format.
func (s Stack) String() string {
	var sb strings.Builder
	for n := s.top; n != nil; n = n.below {
		if len(n.data) == 0 {
			sb.WriteString("00000000  <empty>\n")
		}
		sb.WriteString(hex.Dump(n.data))
	}
	return sb.String()
}
