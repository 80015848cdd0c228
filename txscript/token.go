// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// PushEncoding describes how a token places data on the stack.
type PushEncoding uint8

const (
	// PushNone is used by every opcode that does not push data.
	PushNone PushEncoding = iota

	// PushSmallInt is used by OP_0, OP_1NEGATE and OP_1 through OP_16,
	// which push a small constant implied by the opcode itself.
	PushSmallInt

	// PushDirect is used by OP_DATA_1 through OP_DATA_75, where the opcode
	// value is the number of bytes that follow.
	PushDirect

	// PushData1 is used by OP_PUSHDATA1 with a 1-byte length prefix.
	PushData1

	// PushData2 is used by OP_PUSHDATA2 with a 2-byte little-endian
	// length prefix.
	PushData2

	// PushData4 is used by OP_PUSHDATA4 with a 4-byte little-endian
	// length prefix.
	PushData4
)

var pushEncodingStrings = map[PushEncoding]string{
	PushNone:     "none",
	PushSmallInt: "smallint",
	PushDirect:   "direct",
	PushData1:    "pushdata1",
	PushData2:    "pushdata2",
	PushData4:    "pushdata4",
}

// String returns the PushEncoding as a human-readable name.
func (e PushEncoding) String() string {
	if s, ok := pushEncodingStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown PushEncoding (%d)", uint8(e))
}

// pushEncodingFor returns the push encoding implied by an opcode value.
func pushEncodingFor(op byte) PushEncoding {
	switch {
	case op == OP_0 || op == OP_1NEGATE || (op >= OP_1 && op <= OP_16):
		return PushSmallInt
	case op >= OP_DATA_1 && op <= OP_DATA_75:
		return PushDirect
	case op == OP_PUSHDATA1:
		return PushData1
	case op == OP_PUSHDATA2:
		return PushData2
	case op == OP_PUSHDATA4:
		return PushData4
	}
	return PushNone
}

// Token is a single parsed element of a script: an opcode and, for data
// pushes, the bytes it pushes.  Tokens are immutable values.
type Token struct {
	op   byte
	data []byte
}

// OpToken returns a token for the given opcode carrying no data.
func OpToken(op byte) Token {
	return Token{op: op}
}

// NewPushToken returns a data push token using exactly the given push
// opcode.  An error with ErrMalformedPush is returned when the data does not
// fit the encoding.
func NewPushToken(op byte, data []byte) (Token, error) {
	if pushEncodingFor(op) == PushNone {
		str := fmt.Sprintf("opcode %s does not push data",
			opcodeArray[op].name)
		return Token{}, scriptError(ErrMalformedPush, str)
	}
	t := Token{op: op, data: data}
	if err := t.validate(); err != nil {
		return Token{}, err
	}
	return t, nil
}

// PushDataToken returns a token that pushes data using the smallest
// possible encoding.  Empty data and single bytes in the range 1-16 or 0x81
// become the matching small integer opcode.
func PushDataToken(data []byte) Token {
	dataLen := len(data)
	switch {
	case dataLen == 0:
		return Token{op: OP_0}
	case dataLen == 1 && data[0] >= 1 && data[0] <= 16:
		return Token{op: OP_1 - 1 + data[0]}
	case dataLen == 1 && data[0] == 0x81:
		return Token{op: OP_1NEGATE}
	case dataLen <= OP_DATA_75:
		return Token{op: byte(dataLen), data: data}
	case dataLen <= 0xff:
		return Token{op: OP_PUSHDATA1, data: data}
	case dataLen <= 0xffff:
		return Token{op: OP_PUSHDATA2, data: data}
	}
	return Token{op: OP_PUSHDATA4, data: data}
}

// PushIntToken returns a token that pushes the script number n using the
// smallest possible encoding.
func PushIntToken(n int64) Token {
	return PushDataToken(scriptNum(n).Bytes())
}

// Opcode returns the opcode value of the token.
func (t Token) Opcode() byte {
	return t.op
}

// Data returns the bytes pushed by the token, if any.  Small integer
// opcodes report no data here; their value is implied by the opcode.
func (t Token) Data() []byte {
	return t.data
}

// Name returns the human-readable opcode name.
func (t Token) Name() string {
	return opcodeArray[t.op].name
}

// Encoding returns the push encoding of the token.
func (t Token) Encoding() PushEncoding {
	return pushEncodingFor(t.op)
}

// IsPush reports whether the token is considered a push for the purposes of
// push-only checks.  Note that OP_RESERVED is included since it is below
// OP_16.
func (t Token) IsPush() bool {
	return t.op <= OP_16
}

// validate returns ErrMalformedPush when the token data is inconsistent with
// its opcode.
func (t Token) validate() error {
	dataLen := len(t.data)
	var ok bool
	switch pushEncodingFor(t.op) {
	case PushNone, PushSmallInt:
		ok = dataLen == 0
	case PushDirect:
		ok = dataLen == int(t.op)
	case PushData1:
		ok = dataLen <= 0xff
	case PushData2:
		ok = dataLen <= 0xffff
	case PushData4:
		ok = uint64(dataLen) <= 0xffffffff
	}
	if !ok {
		str := fmt.Sprintf("opcode %s carries %d bytes of data which "+
			"does not match its encoding", t.Name(), dataLen)
		return scriptError(ErrMalformedPush, str)
	}
	return nil
}

// serializeSize returns the number of bytes the token occupies in a raw
// script.
func (t Token) serializeSize() int {
	switch pushEncodingFor(t.op) {
	case PushData1:
		return 2 + len(t.data)
	case PushData2:
		return 3 + len(t.data)
	case PushData4:
		return 5 + len(t.data)
	}
	return 1 + len(t.data)
}

// appendBytes appends the raw serialization of the token to b.
func (t Token) appendBytes(b []byte) []byte {
	b = append(b, t.op)
	switch pushEncodingFor(t.op) {
	case PushData1:
		b = append(b, byte(len(t.data)))
	case PushData2:
		b = binary.LittleEndian.AppendUint16(b, uint16(len(t.data)))
	case PushData4:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(t.data)))
	}
	return append(b, t.data...)
}

// canonicalPush returns true if the token is a data push that uses the
// smallest possible opcode for its data.
func (t Token) canonicalPush() bool {
	if t.op > OP_PUSHDATA4 {
		return false
	}
	return checkMinimalDataPush(t.op, t.data) == nil
}

// disasm returns the disassembly of the token.  The compact form, used for
// one-line script disassembly, prints small integers as numbers and data
// pushes as bare hex.
func (t Token) disasm(compact bool) string {
	op := &opcodeArray[t.op]
	if compact {
		switch {
		case t.op == OP_0:
			return "0"
		case t.op == OP_1NEGATE:
			return "-1"
		case t.op >= OP_1 && t.op <= OP_16:
			return fmt.Sprint(int(t.op - (OP_1 - 1)))
		case t.op >= OP_DATA_1 && t.op <= OP_PUSHDATA4:
			if len(t.data) == 0 {
				return "0"
			}
			return hex.EncodeToString(t.data)
		}
		return op.name
	}

	switch pushEncodingFor(t.op) {
	case PushDirect:
		return fmt.Sprintf("%s 0x%x", op.name, t.data)
	case PushData1, PushData2, PushData4:
		return fmt.Sprintf("%s 0x%x 0x%x", op.name, len(t.data), t.data)
	}
	return op.name
}

// String returns the compact disassembly of the token.
func (t Token) String() string {
	return t.disasm(true)
}

// Script is a tokenized script.
type Script []Token

// serializeSize returns the number of bytes of the raw script.
func (s Script) serializeSize() int {
	var size int
	for _, t := range s {
		size += t.serializeSize()
	}
	return size
}

// Bytes returns the raw serialization of the script.
func (s Script) Bytes() []byte {
	b := make([]byte, 0, s.serializeSize())
	for _, t := range s {
		b = t.appendBytes(b)
	}
	return b
}

// String returns the one-line disassembly of the script.
func (s Script) String() string {
	var sb strings.Builder
	for i, t := range s {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.disasm(true))
	}
	return sb.String()
}

// IsPushOnly returns true if the script only pushes data.
func (s Script) IsPushOnly() bool {
	for _, t := range s {
		if !t.IsPush() {
			return false
		}
	}
	return true
}

// isScriptHash returns whether the script is a pay-to-script-hash script:
// OP_HASH160 <20-byte hash> OP_EQUAL.
func (s Script) isScriptHash() bool {
	return len(s) == 3 &&
		s[0].op == OP_HASH160 &&
		s[1].op == OP_DATA_20 && len(s[1].data) == 20 &&
		s[2].op == OP_EQUAL
}

// removeOpcode returns a copy of the script with every token of the given
// opcode removed.
func (s Script) removeOpcode(op byte) Script {
	result := make(Script, 0, len(s))
	for _, t := range s {
		if t.op != op {
			result = append(result, t)
		}
	}
	return result
}

// sigPushOpcode returns the opcode a signature of dataLen bytes is pushed
// with when serialized for removal.  Only the length selects the opcode, so
// a one byte value in 1..16 still uses OP_DATA_1.
func sigPushOpcode(dataLen int) byte {
	switch {
	case dataLen == 0:
		return OP_0
	case dataLen <= OP_DATA_75:
		return byte(dataLen)
	case dataLen <= 0xff:
		return OP_PUSHDATA1
	case dataLen <= 0xffff:
		return OP_PUSHDATA2
	}
	return OP_PUSHDATA4
}

// removeOpcodeByData returns a copy of the script with every push of exactly
// the given data removed, where the push uses the length-selected opcode of
// sigPushOpcode.  This is the signature scrubbing the legacy signature hash
// requires.
func (s Script) removeOpcodeByData(data []byte) Script {
	pushOp := sigPushOpcode(len(data))
	result := make(Script, 0, len(s))
	for _, t := range s {
		if t.op == pushOp && bytes.Equal(t.data, data) {
			continue
		}
		result = append(result, t)
	}
	return result
}

// checkMinimalDataPush returns whether or not the provided opcode is the
// smallest possible way to represent the given data.  For example, the value
// 15 could be pushed with OP_DATA_1 15 (among other variations); however,
// OP_15 is a single opcode that represents the same value and is only a
// single byte versus two bytes.
func checkMinimalDataPush(op byte, data []byte) error {
	dataLen := len(data)
	switch {
	case dataLen == 0 && op != OP_0:
		str := fmt.Sprintf("zero length data push is encoded with "+
			"opcode %s instead of OP_0", opcodeArray[op].name)
		return scriptError(ErrMinimalData, str)
	case dataLen == 1 && data[0] >= 1 && data[0] <= 16:
		if op != OP_1+data[0]-1 {
			str := fmt.Sprintf("data push of the value %d encoded "+
				"with opcode %s instead of OP_%d", data[0],
				opcodeArray[op].name, data[0])
			return scriptError(ErrMinimalData, str)
		}
	case dataLen == 1 && data[0] == 0x81:
		if op != OP_1NEGATE {
			str := fmt.Sprintf("data push of the value -1 encoded "+
				"with opcode %s instead of OP_1NEGATE",
				opcodeArray[op].name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 75:
		if int(op) != dataLen {
			str := fmt.Sprintf("data push of %d bytes encoded "+
				"with opcode %s instead of OP_DATA_%d", dataLen,
				opcodeArray[op].name, dataLen)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 255:
		if op != OP_PUSHDATA1 {
			str := fmt.Sprintf("data push of %d bytes encoded "+
				"with opcode %s instead of OP_PUSHDATA1",
				dataLen, opcodeArray[op].name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 65535:
		if op != OP_PUSHDATA2 {
			str := fmt.Sprintf("data push of %d bytes encoded "+
				"with opcode %s instead of OP_PUSHDATA2",
				dataLen, opcodeArray[op].name)
			return scriptError(ErrMinimalData, str)
		}
	}
	return nil
}
