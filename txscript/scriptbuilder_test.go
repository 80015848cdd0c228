// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestScriptBuilderAddOp tests that pushing opcodes to a script via the
// ScriptBuilder API works as expected.
func TestScriptBuilderAddOp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opcodes  []byte
		expected []byte
	}{
		{
			name:     "push OP_0",
			opcodes:  []byte{OP_0},
			expected: []byte{OP_0},
		},
		{
			name:     "push OP_1 OP_2",
			opcodes:  []byte{OP_1, OP_2},
			expected: []byte{OP_1, OP_2},
		},
		{
			name:     "push OP_HASH160 OP_EQUAL",
			opcodes:  []byte{OP_HASH160, OP_EQUAL},
			expected: []byte{OP_HASH160, OP_EQUAL},
		},
	}

	// Run tests and individually add each op via AddOp.
	builder := NewScriptBuilder()
	for _, test := range tests {
		builder.Reset()
		for _, opcode := range test.opcodes {
			builder.AddOp(opcode)
		}
		result, err := builder.Bytes()
		require.NoError(t, err, test.name)
		require.Equal(t, test.expected, result, test.name)
	}

	// Run tests and bulk add ops via AddOps.
	for _, test := range tests {
		result, err := builder.Reset().AddOps(test.opcodes).Bytes()
		require.NoError(t, err, test.name)
		require.Equal(t, test.expected, result, test.name)
	}
}

// TestScriptBuilderAddInt64 tests that pushing signed integers to a script via
// the ScriptBuilder API works as expected.
func TestScriptBuilderAddInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		val      int64
		expected []byte
	}{
		{name: "push -1", val: -1, expected: []byte{OP_1NEGATE}},
		{name: "push small int 0", val: 0, expected: []byte{OP_0}},
		{name: "push small int 1", val: 1, expected: []byte{OP_1}},
		{name: "push small int 2", val: 2, expected: []byte{OP_2}},
		{name: "push small int 10", val: 10, expected: []byte{OP_10}},
		{name: "push small int 16", val: 16, expected: []byte{OP_16}},
		{name: "push 17", val: 17, expected: []byte{OP_DATA_1, 0x11}},
		{name: "push 127", val: 127, expected: []byte{OP_DATA_1, 0x7f}},
		{name: "push 128", val: 128, expected: []byte{OP_DATA_2, 0x80, 0}},
		{name: "push 256", val: 256, expected: []byte{OP_DATA_2, 0, 0x01}},
		{name: "push 32767", val: 32767, expected: []byte{OP_DATA_2, 0xff, 0x7f}},
		{name: "push 32768", val: 32768, expected: []byte{OP_DATA_3, 0, 0x80, 0}},
		{name: "push -2", val: -2, expected: []byte{OP_DATA_1, 0x82}},
		{name: "push -127", val: -127, expected: []byte{OP_DATA_1, 0xff}},
		{name: "push -128", val: -128, expected: []byte{OP_DATA_2, 0x80, 0x80}},
		{name: "push -256", val: -256, expected: []byte{OP_DATA_2, 0x00, 0x81}},
		{name: "push -32768", val: -32768, expected: []byte{OP_DATA_3, 0x00, 0x80, 0x80}},
	}

	builder := NewScriptBuilder()
	for i, test := range tests {
		result, err := builder.Reset().AddInt64(test.val).Bytes()
		if err != nil {
			t.Errorf("ScriptBuilder.AddInt64 #%d (%s) unexpected "+
				"error: %v", i, test.name, err)
			continue
		}
		if !bytes.Equal(result, test.expected) {
			t.Errorf("ScriptBuilder.AddInt64 #%d (%s) wrong result\n"+
				"got: %x\nwant: %x", i, test.name, result,
				test.expected)
			continue
		}
	}
}

// TestScriptBuilderAddData tests that pushing data to a script via the
// ScriptBuilder API works as expected and always uses the minimal push.
func TestScriptBuilderAddData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     []byte
		expected []byte
		err      error
	}{
		{name: "push empty byte sequence", data: nil, expected: []byte{OP_0}},
		{name: "push 1 byte 0x00", data: []byte{0x00}, expected: []byte{OP_DATA_1, 0x00}},
		{name: "push 1 byte 0x01", data: []byte{0x01}, expected: []byte{OP_1}},
		{name: "push 1 byte 0x10", data: []byte{0x10}, expected: []byte{OP_16}},
		{name: "push 1 byte 0x81", data: []byte{0x81}, expected: []byte{OP_1NEGATE}},
		{name: "push 1 byte 0x11", data: []byte{0x11}, expected: []byte{OP_DATA_1, 0x11}},
		{name: "push 1 byte 0x80", data: []byte{0x80}, expected: []byte{OP_DATA_1, 0x80}},
		{
			name:     "push data len 75",
			data:     bytes.Repeat([]byte{0x49}, 75),
			expected: append([]byte{OP_DATA_75}, bytes.Repeat([]byte{0x49}, 75)...),
		},
		{
			name:     "push data len 76",
			data:     bytes.Repeat([]byte{0x49}, 76),
			expected: append([]byte{OP_PUSHDATA1, 76}, bytes.Repeat([]byte{0x49}, 76)...),
		},
		{
			name:     "push data len 255",
			data:     bytes.Repeat([]byte{0x49}, 255),
			expected: append([]byte{OP_PUSHDATA1, 255}, bytes.Repeat([]byte{0x49}, 255)...),
		},
		{
			name:     "push data len 256",
			data:     bytes.Repeat([]byte{0x49}, 256),
			expected: append([]byte{OP_PUSHDATA2, 0, 1}, bytes.Repeat([]byte{0x49}, 256)...),
		},
		{
			name:     "push data len 520",
			data:     bytes.Repeat([]byte{0x49}, 520),
			expected: append([]byte{OP_PUSHDATA2, 0x08, 0x02}, bytes.Repeat([]byte{0x49}, 520)...),
		},
		{
			name: "push data len 521",
			data: bytes.Repeat([]byte{0x49}, 521),
			err:  Error{ErrorCode: ErrElementTooBig},
		},
	}

	builder := NewScriptBuilder()
	for i, test := range tests {
		result, err := builder.Reset().AddData(test.data).Bytes()
		if e := tstCheckScriptError(err, test.err); e != nil {
			t.Errorf("ScriptBuilder.AddData #%d (%s): %v", i,
				test.name, e)
			continue
		}
		if test.err != nil {
			require.Empty(t, result, test.name)
			continue
		}
		if !bytes.Equal(result, test.expected) {
			t.Errorf("ScriptBuilder.AddData #%d (%s) wrong result\n"+
				"got: %x\nwant: %x", i, test.name, result,
				test.expected)
		}
	}
}

// TestScriptBuilderAddToken ensures tokens whose data does not match the
// opcode are rejected while well formed tokens are kept as is.
func TestScriptBuilderAddToken(t *testing.T) {
	t.Parallel()

	// A non-minimal push is still a valid token.
	tok, err := NewPushToken(OP_PUSHDATA1, []byte{0x01, 0x02})
	require.NoError(t, err)
	result, err := NewScriptBuilder().AddToken(tok).Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte{OP_PUSHDATA1, 0x02, 0x01, 0x02}, result)

	bad := Token{op: OP_DATA_2, data: []byte{0x01}}
	_, err = NewScriptBuilder().AddToken(bad).Script()
	require.True(t, IsErrorCode(err, ErrMalformedPush))
}

// TestExceedMaxScriptSize ensures that all of the functions that can be used
// to add data to a script don't allow the script to exceed the max allowed
// size.
func TestExceedMaxScriptSize(t *testing.T) {
	t.Parallel()

	// Start off by constructing a max size script.
	full := bytes.Repeat([]byte{OP_NOP}, MaxScriptSize)
	builder := NewScriptBuilder()
	origScript, err := builder.AddOps(full).Bytes()
	require.NoError(t, err)
	require.Len(t, origScript, MaxScriptSize)

	adders := []struct {
		name string
		add  func(*ScriptBuilder) *ScriptBuilder
	}{
		{"AddData", func(b *ScriptBuilder) *ScriptBuilder {
			return b.AddData([]byte{0x00})
		}},
		{"AddOp", func(b *ScriptBuilder) *ScriptBuilder {
			return b.AddOp(OP_0)
		}},
		{"AddInt64", func(b *ScriptBuilder) *ScriptBuilder {
			return b.AddInt64(0)
		}},
	}
	for _, adder := range adders {
		builder.Reset().AddOps(full)
		script, err := adder.add(builder).Bytes()
		require.True(t, IsErrorCode(err, ErrScriptTooBig), adder.name)
		require.Equal(t, origScript, script, adder.name)
	}
}

// TestErroredScript ensures that all of the functions that can be used to add
// data to a script don't modify the script once an error has happened.
func TestErroredScript(t *testing.T) {
	t.Parallel()

	builder := NewScriptBuilder()
	builder.AddOp(OP_DUP).AddData(make([]byte, MaxScriptElementSize+1))
	origScript, err := builder.Bytes()
	require.True(t, IsErrorCode(err, ErrElementTooBig))
	require.Equal(t, []byte{OP_DUP}, origScript)

	builder.AddData([]byte{0x00}).AddOp(OP_0).AddInt64(5)
	builder.AddToken(OpToken(OP_NOP))
	script, err := builder.Bytes()
	require.True(t, IsErrorCode(err, ErrElementTooBig))
	require.Equal(t, origScript, script)

	// Resetting clears the error.
	script, err = builder.Reset().AddOp(OP_1).Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte{OP_1}, script)
}
