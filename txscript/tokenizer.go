// Copyright (c) 2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"
	"fmt"
)

// ScriptTokenizer provides a facility for tokenizing raw transaction scripts.
// Each successive token is parsed with the Next function, which returns false
// when iteration is complete, either due to successfully tokenizing the entire
// script or encountering a parse error.  In the case of failure, the Err
// function may be used to obtain the specific parse error.
//
// Upon successfully parsing a token, it may be obtained via the Token
// function.  The ByteIndex function may be used to obtain the tokenizer's
// current offset into the raw script.
type ScriptTokenizer struct {
	script []byte
	offset int32
	tok    Token
	err    error
}

// Done returns true when either all opcodes have been exhausted or a parse
// failure was encountered and therefore the state has an associated error.
func (t *ScriptTokenizer) Done() bool {
	return t.err != nil || t.offset >= int32(len(t.script))
}

// Next attempts to parse the next token and returns whether or not it was
// successful.  It will not be successful if invoked when already at the end of
// the script, a parse failure is encountered, or an associated error already
// exists due to a previous parse failure.
//
// In the case of a false return, the offset into the script will either point
// to the failing opcode or the end of the script if the function was invoked
// when already at the end of the script.
func (t *ScriptTokenizer) Next() bool {
	if t.Done() {
		return false
	}

	op := &opcodeArray[t.script[t.offset]]
	switch {
	// No additional data.  Note that some of the opcodes, notably OP_1NEGATE,
	// OP_0, and OP_[1-16] represent the data themselves.
	case op.length == 1:
		t.offset++
		t.tok = Token{op: op.value}
		return true

	// Data pushes of specific lengths -- OP_DATA_[1-75].
	case op.length > 1:
		script := t.script[t.offset:]
		if len(script) < op.length {
			str := fmt.Sprintf("opcode %s requires %d bytes, but script only "+
				"has %d remaining", op.name, op.length, len(script))
			t.err = scriptError(ErrMalformedPush, str)
			return false
		}

		// Move the offset forward and set the token accordingly.
		t.offset += int32(op.length)
		t.tok = Token{op: op.value, data: script[1:op.length:op.length]}
		return true

	// Data pushes with parsed lengths -- OP_PUSHDATA{1,2,4}.
	case op.length < 0:
		script := t.script[t.offset+1:]
		if len(script) < -op.length {
			str := fmt.Sprintf("opcode %s requires %d bytes, but script only "+
				"has %d remaining", op.name, -op.length, len(script))
			t.err = scriptError(ErrMalformedPush, str)
			return false
		}

		// Next -length bytes are little endian length of data.
		var dataLen int64
		switch op.length {
		case -1:
			dataLen = int64(script[0])
		case -2:
			dataLen = int64(binary.LittleEndian.Uint16(script[:2]))
		case -4:
			dataLen = int64(binary.LittleEndian.Uint32(script[:4]))
		}

		// Move to the beginning of the data.
		script = script[-op.length:]

		// Disallow entries that do not fit script.
		if dataLen > int64(len(script)) {
			str := fmt.Sprintf("opcode %s pushes %d bytes, but script only "+
				"has %d remaining", op.name, dataLen, len(script))
			t.err = scriptError(ErrMalformedPush, str)
			return false
		}

		// Move the offset forward and set the token accordingly.
		t.offset += 1 + int32(-op.length) + int32(dataLen)
		t.tok = Token{op: op.value, data: script[:dataLen:dataLen]}
		return true
	}

	str := fmt.Sprintf("opcode %s has invalid length %d", op.name, op.length)
	t.err = scriptError(ErrInternal, str)
	return false
}

// Script returns the full script associated with the tokenizer.
func (t *ScriptTokenizer) Script() []byte {
	return t.script
}

// ByteIndex returns the current offset into the full script that will be parsed
// next and therefore also implies everything before it has already been parsed.
func (t *ScriptTokenizer) ByteIndex() int32 {
	return t.offset
}

// Token returns the most recently successfully parsed token.
func (t *ScriptTokenizer) Token() Token {
	return t.tok
}

// Err returns any errors currently associated with the tokenizer.  This will
// only be non-nil in the case a parsing error was encountered.
func (t *ScriptTokenizer) Err() error {
	return t.err
}

// MakeScriptTokenizer returns a new instance of a script tokenizer.
//
// See the docs for ScriptTokenizer for more details.
func MakeScriptTokenizer(script []byte) ScriptTokenizer {
	return ScriptTokenizer{script: script}
}

// ParseScript tokenizes a raw script.  Truncated pushes are reported with
// ErrMalformedPush.  The returned tokens reference the passed bytes.
func ParseScript(script []byte) (Script, error) {
	var tokens Script
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		tokens = append(tokens, tokenizer.Token())
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// DisasmString formats a disassembled script for one line printing.  When the
// script fails to parse, the returned string will contain the disassembled
// script up to the point the failure occurred along with the string '[error]'
// appended.  In addition, the reason the script failed to parse is returned
// if the caller wants more information about the failure.
func DisasmString(script []byte) (string, error) {
	var tokens Script
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		tokens = append(tokens, tokenizer.Token())
	}
	disbuf := tokens.String()
	if err := tokenizer.Err(); err != nil {
		if len(tokens) > 0 {
			disbuf += " "
		}
		disbuf += "[error]"
		return disbuf, err
	}
	return disbuf, nil
}
