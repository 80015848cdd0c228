// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha1"
	"fmt"
	"hash"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"
)

// cryptoOpcodes holds the hashing and signature checking opcodes.
var cryptoOpcodes = []opcode{
	{OP_RIPEMD160, "OP_RIPEMD160", 1, familyCrypto, opcodeRipemd160},
	{OP_SHA1, "OP_SHA1", 1, familyCrypto, opcodeSha1},
	{OP_SHA256, "OP_SHA256", 1, familyCrypto, opcodeSha256},
	{OP_HASH160, "OP_HASH160", 1, familyCrypto, opcodeHash160},
	{OP_HASH256, "OP_HASH256", 1, familyCrypto, opcodeHash256},
	{OP_CODESEPARATOR, "OP_CODESEPARATOR", 1, familyCrypto, opcodeCodeSeparator},
	{OP_CHECKSIG, "OP_CHECKSIG", 1, familyCrypto, opcodeCheckSig},
	{OP_CHECKSIGVERIFY, "OP_CHECKSIGVERIFY", 1, familyCrypto, opcodeCheckSigVerify},
	{OP_CHECKMULTISIG, "OP_CHECKMULTISIG", 1, familyCrypto, opcodeCheckMultiSig},
	{OP_CHECKMULTISIGVERIFY, "OP_CHECKMULTISIGVERIFY", 1, familyCrypto, opcodeCheckMultiSigVerify},
}

// calcHash calculates the hash of hasher over buf.
func calcHash(buf []byte, hasher hash.Hash) []byte {
	hasher.Write(buf)
	return hasher.Sum(nil)
}

// hashTop replaces the top item of the data stack with f applied to it.
func hashTop(s ProgramState, f func([]byte) []byte) (ProgramState, error) {
	buf, rest, err := s.stack.PopByteArray()
	if err != nil {
		return s, err
	}
	s.stack = rest.PushByteArray(f(buf))
	return s, nil
}

// opcodeRipemd160 treats the top item of the data stack as raw bytes and
// replaces it with ripemd160(data).
//
// Stack transformation: [... x1] -> [... ripemd160(x1)]
func opcodeRipemd160(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return hashTop(s, func(buf []byte) []byte {
		return calcHash(buf, ripemd160.New())
	})
}

// opcodeSha1 treats the top item of the data stack as raw bytes and replaces it
// with sha1(data).
//
// Stack transformation: [... x1] -> [... sha1(x1)]
func opcodeSha1(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return hashTop(s, func(buf []byte) []byte {
		hash := sha1.Sum(buf)
		return hash[:]
	})
}

// opcodeSha256 treats the top item of the data stack as raw bytes and replaces
// it with sha256(data).
//
// Stack transformation: [... x1] -> [... sha256(x1)]
func opcodeSha256(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return hashTop(s, chainhash.HashB)
}

// opcodeHash160 treats the top item of the data stack as raw bytes and replaces
// it with ripemd160(sha256(data)).
//
// Stack transformation: [... x1] -> [... ripemd160(sha256(x1))]
func opcodeHash160(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return hashTop(s, btcutil.Hash160)
}

// opcodeHash256 treats the top item of the data stack as raw bytes and replaces
// it with sha256(sha256(data)).
//
// Stack transformation: [... x1] -> [... sha256(sha256(x1))]
func opcodeHash256(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	return hashTop(s, chainhash.DoubleHashB)
}

// opcodeCodeSeparator stores the current script offset as the most recently
// seen OP_CODESEPARATOR which is used during signature checking.
//
// This opcode does not change the contents of the data stack.
func opcodeCodeSeparator(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	// The program counter already points past this opcode.
	s.lastCodeSep = s.pc
	return s, nil
}

// parsedSig caches the parse of a raw signature so that OP_CHECKMULTISIG only
// checks the encoding of each signature once.
type parsedSig struct {
	raw       []byte
	parsed    bool
	signature *ecdsa.Signature
	hashType  SigHashType
}

// parse checks the encoding of the raw signature and parses it.  A nil
// signature with a nil error means the signature is well formed as far as the
// active flags care but does not parse, and therefore can never verify.
func (p *parsedSig) parse(s ProgramState) (*ecdsa.Signature, error) {
	if p.parsed {
		return p.signature, nil
	}

	// Split the signature into hash type and signature components.
	p.hashType = SigHashType(p.raw[len(p.raw)-1])
	sigBytes := p.raw[:len(p.raw)-1]

	if err := checkHashTypeEncoding(s, p.hashType); err != nil {
		return nil, err
	}
	if err := checkSignatureEncoding(s, sigBytes); err != nil {
		return nil, err
	}

	var (
		sig *ecdsa.Signature
		err error
	)
	if s.hasFlag(ScriptVerifyStrictEncoding) ||
		s.hasFlag(ScriptVerifyDERSignatures) {

		sig, err = ecdsa.ParseDERSignature(sigBytes)
	} else {
		sig, err = ecdsa.ParseSignature(sigBytes)
	}
	p.parsed = true
	if err == nil {
		p.signature = sig
	}
	return p.signature, nil
}

// verifySig checks the raw signature against the raw public key over the
// signature hash of script.  Encoding violations under the active flags are
// returned as errors; signatures or keys that merely fail to parse or verify
// yield false.
func verifySig(s ProgramState, script Script, sig *parsedSig, pubKey []byte) (bool, error) {
	signature, err := sig.parse(s)
	if err != nil {
		return false, err
	}
	if err := checkPubKeyEncoding(s, pubKey); err != nil {
		return false, err
	}
	if signature == nil {
		return false, nil
	}

	parsedPubKey, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false, nil
	}

	hash, err := calcSigHash(s, script, sig.hashType)
	if err != nil {
		return false, err
	}

	var sigHash chainhash.Hash
	copy(sigHash[:], hash)
	sigBytes := sig.raw[:len(sig.raw)-1]
	if s.sigCache.Exists(sigHash, sigBytes, pubKey) {
		return true, nil
	}
	if !signature.Verify(hash, parsedPubKey) {
		return false, nil
	}
	s.sigCache.Add(sigHash, sigBytes, pubKey)
	return true, nil
}

// scriptForSigning returns the subscript a legacy signature commits to, with
// every push of the given signatures removed since there is no way for a
// signature to sign itself.  Witness v0 signatures commit to the subscript
// unchanged.
func scriptForSigning(s ProgramState, sigs ...[]byte) Script {
	script := s.subScript()
	if s.sigVersion() == SigVersionBase {
		for _, sig := range sigs {
			script = script.removeOpcodeByData(sig)
		}
	}
	return script
}

// opcodeCheckSig treats the top 2 items on the stack as a public key and a
// signature and replaces them with a bool which indicates if the signature was
// successfully verified.
//
// The process of verifying a signature requires calculating a signature hash
// in the same way the transaction signer did.  It involves hashing portions of
// the transaction based on the hash type byte (which is the final byte of the
// signature) and the portion of the script starting from the most recent
// OP_CODESEPARATOR (or the beginning of the locked script if there are none)
// to the end of the script (with any other OP_CODESEPARATORs removed).  Once
// this "script hash" is calculated, the signature is checked using standard
// cryptographic methods against the provided public key.
//
// Stack transformation: [... signature pubkey] -> [... bool]
func opcodeCheckSig(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	pubKey, rest, err := s.stack.PopByteArray()
	if err != nil {
		return s, err
	}
	fullSig, rest, err := rest.PopByteArray()
	if err != nil {
		return s, err
	}

	// The signature actually needs to be longer than this, but at
	// least 1 byte is needed for the hash type below.  The full length is
	// checked depending on the script flags and upon parsing the signature.
	//
	// This only returns an error in the case of a non-empty signature under
	// NULLFAIL which cannot happen here.
	if len(fullSig) < 1 {
		s.stack = rest.PushBool(false)
		return s, nil
	}

	sig := &parsedSig{raw: fullSig}
	valid, err := verifySig(s, scriptForSigning(s, fullSig), sig, pubKey)
	if err != nil {
		return s, err
	}

	if !valid && s.hasFlag(ScriptVerifyNullFail) {
		str := "signature not empty on failed checksig"
		return s, scriptError(ErrNullFail, str)
	}

	s.stack = rest.PushBool(valid)
	return s, nil
}

// opcodeCheckSigVerify is a combination of opcodeCheckSig and opcodeVerify.
// The opcodeCheckSig function is invoked followed by opcodeVerify.  See the
// documentation for each of those opcodes for more details.
//
// Stack transformation: [... signature pubkey] -> [... bool] -> [...]
func opcodeCheckSigVerify(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	s, err := opcodeCheckSig(op, data, s)
	if err != nil {
		return s, err
	}
	return abstractVerify(op, s, ErrCheckSigVerify)
}

// opcodeCheckMultiSig treats the top item on the stack as an integer number of
// public keys, followed by that many entries as raw data representing the public
// keys, followed by the integer number of signatures, followed by that many
// entries as raw data representing the signatures.
//
// Due to a bug in the original Satoshi client implementation, an additional
// dummy argument is also required by the consensus rules, although it is not
// used.  The dummy value SHOULD be an OP_0, although that is not required by
// the consensus rules.  When the ScriptStrictMultiSig flag is set, it must be
// OP_0.
//
// All of the aforementioned stack items are replaced with a bool which
// indicates if the requisite number of signatures were successfully verified.
//
// See the opcodeCheckSigVerify documentation for more details about the process
// for verifying each signature.
//
// Stack transformation:
// [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool]
func opcodeCheckMultiSig(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	numKeys, rest, err := s.stack.PopInt()
	if err != nil {
		return s, err
	}

	numPubKeys := int(numKeys.Int32())
	if numPubKeys < 0 {
		str := fmt.Sprintf("number of pubkeys %d is negative",
			numPubKeys)
		return s, scriptError(ErrInvalidPubKeyCount, str)
	}
	if numPubKeys > MaxPubKeysPerMultiSig {
		str := fmt.Sprintf("too many pubkeys: %d > %d",
			numPubKeys, MaxPubKeysPerMultiSig)
		return s, scriptError(ErrInvalidPubKeyCount, str)
	}
	s.numOps += numPubKeys
	if s.numOps > MaxOpsPerScript {
		str := fmt.Sprintf("exceeded max operation limit of %d",
			MaxOpsPerScript)
		return s, scriptError(ErrTooManyOperations, str)
	}

	// Public keys come off the stack nearest-first, so pubKeys[0] is the
	// last key pushed.
	pubKeys := make([][]byte, 0, numPubKeys)
	for i := 0; i < numPubKeys; i++ {
		var pubKey []byte
		pubKey, rest, err = rest.PopByteArray()
		if err != nil {
			return s, err
		}
		pubKeys = append(pubKeys, pubKey)
	}

	numSigs, rest, err := rest.PopInt()
	if err != nil {
		return s, err
	}
	numSignatures := int(numSigs.Int32())
	if numSignatures < 0 {
		str := fmt.Sprintf("number of signatures %d is negative",
			numSignatures)
		return s, scriptError(ErrInvalidSignatureCount, str)
	}
	if numSignatures > numPubKeys {
		str := fmt.Sprintf("more signatures than pubkeys: %d > %d",
			numSignatures, numPubKeys)
		return s, scriptError(ErrInvalidSignatureCount, str)
	}

	sigs := make([]*parsedSig, 0, numSignatures)
	rawSigs := make([][]byte, 0, numSignatures)
	for i := 0; i < numSignatures; i++ {
		var sig []byte
		sig, rest, err = rest.PopByteArray()
		if err != nil {
			return s, err
		}
		sigs = append(sigs, &parsedSig{raw: sig})
		rawSigs = append(rawSigs, sig)
	}

	// A bug in the original Satoshi client implementation means one more
	// stack value than should be used must be popped.  Unfortunately, this
	// buggy behavior is now part of the consensus and a hard fork would be
	// required to fix it.
	dummy, rest, err := rest.PopByteArray()
	if err != nil {
		return s, err
	}

	// Since the dummy argument is otherwise not checked, it could be any
	// value which unfortunately provides a source of malleability.  Thus,
	// there is a script flag to force an error when the value is NOT 0.
	if s.hasFlag(ScriptStrictMultiSig) && len(dummy) != 0 {
		str := fmt.Sprintf("multisig dummy argument has length %d "+
			"instead of 0", len(dummy))
		return s, scriptError(ErrSigNullDummy, str)
	}

	script := scriptForSigning(s, rawSigs...)

	// Walk the keys and signatures with one cursor each.  A key that fails
	// to verify the current signature is discarded for good, which is why
	// signatures must appear in the same order as their keys.
	success := true
	pubKeyIdx, sigIdx := 0, 0
	for sigIdx < numSignatures {
		// When there are more signatures than public keys remaining,
		// there is no way to succeed since too many signatures are
		// invalid, so exit early.
		if numSignatures-sigIdx > numPubKeys-pubKeyIdx {
			success = false
			break
		}

		sig := sigs[sigIdx]
		pubKey := pubKeys[pubKeyIdx]
		pubKeyIdx++

		// Skip to the next pubkey if signature is empty.
		if len(sig.raw) == 0 {
			continue
		}

		valid, err := verifySig(s, script, sig, pubKey)
		if err != nil {
			return s, err
		}
		if valid {
			// PubKey verified, move on to the next signature.
			sigIdx++
		}
	}

	if !success && s.hasFlag(ScriptVerifyNullFail) {
		for _, sig := range rawSigs {
			if len(sig) > 0 {
				str := "not all signatures empty on failed " +
					"checkmultisig"
				return s, scriptError(ErrNullFail, str)
			}
		}
	}

	s.stack = rest.PushBool(success)
	return s, nil
}

// opcodeCheckMultiSigVerify is a combination of opcodeCheckMultiSig and
// opcodeVerify.  The opcodeCheckMultiSig is invoked followed by opcodeVerify.
// See the documentation for each of those opcodes for more details.
//
// Stack transformation:
// [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool] -> [...]
func opcodeCheckMultiSigVerify(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	s, err := opcodeCheckMultiSig(op, data, s)
	if err != nil {
		return s, err
	}
	return abstractVerify(op, s, ErrCheckMultiSigVerify)
}
