// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
)

const (
	// defaultScriptAlloc is the default number of tokens used for the
	// backing array of a script being built by the ScriptBuilder.  The
	// array will dynamically grow as needed, but this figure is intended to
	// provide enough space for the vast majority of scripts without needing
	// to grow the backing array multiple times.
	defaultScriptAlloc = 32
)

// ScriptBuilder provides a facility for building custom scripts.  It allows
// you to push opcodes, ints, and data while respecting canonical encoding.  In
// general it does not ensure the script will execute correctly, however any
// data pushes which would exceed the maximum allowed script engine limits and
// are therefore guaranteed not to execute will not be pushed and will result
// in the Script function returning an error.
//
// For example, the following would build a 2-of-3 multisig script:
//
//	builder := txscript.NewScriptBuilder()
//	builder.AddOp(txscript.OP_2).AddData(pubKey1).AddData(pubKey2)
//	builder.AddData(pubKey3).AddOp(txscript.OP_3)
//	builder.AddOp(txscript.OP_CHECKMULTISIG)
//	script, err := builder.Script()
//	if err != nil {
//		// Handle the error.
//		return
//	}
//	fmt.Printf("Final multi-sig script: %v\n", script)
type ScriptBuilder struct {
	script Script
	size   int
	err    error
}

// addToken appends t while tracking the serialized size of the script.
func (b *ScriptBuilder) addToken(t Token) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	// Pushes that would cause the script to exceed the maximum allowed
	// script size would result in a non-canonical script.
	if b.size+t.serializeSize() > MaxScriptSize {
		str := fmt.Sprintf("adding %s would exceed the maximum allowed "+
			"canonical script length of %d", t.Name(), MaxScriptSize)
		b.err = scriptError(ErrScriptTooBig, str)
		return b
	}

	b.script = append(b.script, t)
	b.size += t.serializeSize()
	return b
}

// AddOp pushes the passed opcode to the end of the script.  The script will
// not be modified if pushing the opcode would cause the script to exceed the
// maximum allowed script engine size.
func (b *ScriptBuilder) AddOp(opcode byte) *ScriptBuilder {
	return b.addToken(OpToken(opcode))
}

// AddOps pushes the passed opcodes to the end of the script.
func (b *ScriptBuilder) AddOps(opcodes []byte) *ScriptBuilder {
	for _, op := range opcodes {
		b.AddOp(op)
	}
	return b
}

// AddData pushes the passed data to the end of the script.  It automatically
// chooses canonical opcodes depending on the length of the data.  A zero length
// buffer will lead to a push of empty data onto the stack (OP_0) and any push
// of data greater than MaxScriptElementSize will not modify the script since
// that is not allowed by the script engine.
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}

	// Pushes larger than the max script element size would result in a
	// script that is not canonical.
	if len(data) > MaxScriptElementSize {
		str := fmt.Sprintf("adding a data element of %d bytes would "+
			"exceed the maximum allowed script element size of %d",
			len(data), MaxScriptElementSize)
		b.err = scriptError(ErrElementTooBig, str)
		return b
	}

	return b.addToken(PushDataToken(data))
}

// AddInt64 pushes the passed integer to the end of the script.
func (b *ScriptBuilder) AddInt64(val int64) *ScriptBuilder {
	return b.addToken(PushIntToken(val))
}

// AddToken pushes an already formed token to the end of the script.  Tokens
// whose data does not match their opcode are rejected with ErrMalformedPush.
func (b *ScriptBuilder) AddToken(t Token) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if err := t.validate(); err != nil {
		b.err = err
		return b
	}
	return b.addToken(t)
}

// Reset resets the script so it has no content.
func (b *ScriptBuilder) Reset() *ScriptBuilder {
	b.script = b.script[0:0]
	b.size = 0
	b.err = nil
	return b
}

// Script returns the currently built script.  When any errors occurred while
// building the script, the script will be returned up the point of the first
// error along with the error.
func (b *ScriptBuilder) Script() (Script, error) {
	script := make(Script, len(b.script))
	copy(script, b.script)
	return script, b.err
}

// Bytes returns the raw serialization of the currently built script along
// with the first error that occurred while building it, if any.
func (b *ScriptBuilder) Bytes() ([]byte, error) {
	return b.script.Bytes(), b.err
}

// NewScriptBuilder returns a new instance of a script builder.  See
// ScriptBuilder for details.
func NewScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{
		script: make(Script, 0, defaultScriptAlloc),
	}
}
