// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// sigFlags are the flags used by the signature tests.  NULLFAIL is left out
// so that failed checks leave a false result instead of an error.
const sigFlags = ScriptBip16 | ScriptVerifyDERSignatures |
	ScriptVerifyStrictEncoding | ScriptStrictMultiSig | ScriptVerifyLowS

// mustScript returns the script held by the builder and panics on error.
func mustScript(b *ScriptBuilder) Script {
	script, err := b.Script()
	if err != nil {
		panic(err)
	}
	return script
}

// newTestKey returns a fresh private key.
func newTestKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

// signLegacy signs input idx of tx for the passed script with the legacy
// algorithm and returns the signature with its hash type byte.
func signLegacy(t *testing.T, key *btcec.PrivateKey, script Script,
	tx *wire.MsgTx, idx int) []byte {

	t.Helper()

	hash, err := CalcSignatureHash(script, SigHashAll, tx, idx)
	require.NoError(t, err)
	sig := ecdsa.Sign(key, hash)
	return append(sig.Serialize(), byte(SigHashAll))
}

// TestEngineEvaluate exercises the one-call entry point.
func TestEngineEvaluate(t *testing.T) {
	t.Parallel()

	valid, err := Evaluate(mustParseScript("2 3"),
		mustParseScript("ADD 5 EQUAL"), nil, StandardVerifyFlags)
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = Evaluate(mustParseScript("2 3"),
		mustParseScript("ADD 6 EQUAL"), nil, StandardVerifyFlags)
	require.True(t, IsErrorCode(err, ErrEvalFalse), "%v", err)
	require.False(t, valid)

	// The alternate stack does not carry over into the locked script.
	valid, err = Evaluate(mustParseScript("1 TOALTSTACK"),
		mustParseScript("FROMALTSTACK"), nil, 0)
	require.True(t, IsErrorCode(err, ErrStackUnderflow), "%v", err)
	require.False(t, valid)
}

// TestNewEngineErrors ensures engine construction rejects bad inputs.
func TestNewEngineErrors(t *testing.T) {
	t.Parallel()

	tx := newTestTx(1, 1)
	tooBig := make(Script, MaxScriptSize+1)
	for i := range tooBig {
		tooBig[i] = OpToken(OP_NOP)
	}

	tests := []struct {
		name      string
		unlocking Script
		locking   Script
		ctx       *TxContext
		flags     ScriptFlags
		err       ErrorCode
	}{{
		name:    "clean stack without bip16",
		locking: mustParseScript("1"),
		flags:   ScriptVerifyCleanStack,
		err:     ErrInvalidFlags,
	}, {
		name:      "sig push only",
		unlocking: mustParseScript("1 DUP"),
		locking:   mustParseScript("EQUAL"),
		flags:     ScriptVerifySigPushOnly,
		err:       ErrNotPushOnly,
	}, {
		name:    "script too big",
		locking: tooBig,
		err:     ErrScriptTooBig,
	}, {
		name:    "malformed token",
		locking: Script{{op: OP_DATA_2, data: []byte{1}}},
		err:     ErrMalformedPush,
	}, {
		name:    "input index out of range",
		locking: mustParseScript("1"),
		ctx:     &TxContext{Tx: tx, InputIndex: 1},
		err:     ErrInvalidIndex,
	}}

	for _, test := range tests {
		_, err := NewEngine(test.unlocking, test.locking, test.ctx,
			test.flags, nil)
		require.True(t, IsErrorCode(err, test.err), "%s: %v", test.name,
			err)
	}
}

// TestPayToScriptHash ensures redeem scripts are evaluated against the stack
// left by the unlocking script once the script hash matches.
func TestPayToScriptHash(t *testing.T) {
	t.Parallel()

	p2sh := func(redeem []byte) Script {
		return mustScript(NewScriptBuilder().AddOp(OP_HASH160).
			AddData(btcutil.Hash160(redeem)).AddOp(OP_EQUAL))
	}
	good := mustParseShortForm("2 ADD 3 EQUAL")
	bad := mustParseShortForm("2 ADD 4 EQUAL")

	tests := []struct {
		name      string
		unlocking Script
		locking   Script
		flags     ScriptFlags
		err       error
	}{{
		name:      "redeem script succeeds",
		unlocking: mustScript(NewScriptBuilder().AddInt64(1).AddData(good)),
		locking:   p2sh(good),
		flags:     ScriptBip16,
	}, {
		name:      "redeem script fails",
		unlocking: mustScript(NewScriptBuilder().AddInt64(1).AddData(bad)),
		locking:   p2sh(bad),
		flags:     ScriptBip16,
		err:       Error{ErrorCode: ErrEvalFalse},
	}, {
		name:      "redeem script not run without bip16",
		unlocking: mustScript(NewScriptBuilder().AddInt64(1).AddData(bad)),
		locking:   p2sh(bad),
	}, {
		name:      "hash mismatch",
		unlocking: mustScript(NewScriptBuilder().AddInt64(1).AddData(bad)),
		locking:   p2sh(good),
		flags:     ScriptBip16,
		err:       Error{ErrorCode: ErrEvalFalse},
	}, {
		name:      "clean stack",
		unlocking: mustScript(NewScriptBuilder().AddInt64(7).AddInt64(1).AddData(good)),
		locking:   p2sh(good),
		flags:     ScriptBip16 | ScriptVerifyCleanStack,
		err:       Error{ErrorCode: ErrCleanStack},
	}, {
		name:      "extra items allowed without clean stack",
		unlocking: mustScript(NewScriptBuilder().AddInt64(7).AddInt64(1).AddData(good)),
		locking:   p2sh(good),
		flags:     ScriptBip16,
	}, {
		name: "unlocking script not push only",
		unlocking: mustScript(NewScriptBuilder().AddInt64(1).AddOp(OP_DUP).
			AddData(good)),
		locking: p2sh(good),
		flags:   ScriptBip16,
		err:     Error{ErrorCode: ErrNotPushOnly},
	}, {
		name:      "redeem script does not parse",
		unlocking: mustScript(NewScriptBuilder().AddData([]byte{OP_PUSHDATA1})),
		locking:   p2sh([]byte{OP_PUSHDATA1}),
		flags:     ScriptBip16,
		err:       Error{ErrorCode: ErrMalformedPush},
	}}

	for _, test := range tests {
		vm, err := NewEngine(test.unlocking, test.locking, nil,
			test.flags, nil)
		if err == nil {
			err = vm.Execute()
		}
		if e := tstCheckScriptError(err, test.err); e != nil {
			t.Errorf("%s: %v", test.name, e)
		}
	}
}

// TestCleanStack ensures exactly one item must remain with the clean stack
// flag set.
func TestCleanStack(t *testing.T) {
	t.Parallel()

	flags := ScriptBip16 | ScriptVerifyCleanStack
	_, err := Evaluate(mustParseScript("1"), mustParseScript("1"), nil, flags)
	require.True(t, IsErrorCode(err, ErrCleanStack), "%v", err)

	valid, err := Evaluate(mustParseScript("1"), mustParseScript("DROP 1"),
		nil, flags)
	require.NoError(t, err)
	require.True(t, valid)
}

// TestCheckSig ensures pay-to-pubkey style scripts verify legacy signatures.
func TestCheckSig(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	pubKey := key.PubKey().SerializeCompressed()
	locking := mustScript(NewScriptBuilder().AddData(pubKey).AddOp(OP_CHECKSIG))

	tx := newTestTx(1, 1)
	ctx := &TxContext{Tx: tx}
	sig := signLegacy(t, key, locking, tx, 0)

	sigCache := NewSigCache(10)
	vm, err := NewEngine(mustScript(NewScriptBuilder().AddData(sig)),
		locking, ctx, sigFlags, sigCache)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())

	// The verified signature is remembered without its hash type byte.
	hash, err := CalcSignatureHash(locking, SigHashAll, tx, 0)
	require.NoError(t, err)
	var sigHash chainhash.Hash
	copy(sigHash[:], hash)
	require.True(t, sigCache.Exists(sigHash, sig[:len(sig)-1], pubKey))

	// A signature over another transaction fails as the final opcode.
	other := newTestTx(1, 2)
	otherSig := signLegacy(t, key, locking, other, 0)
	unlocking := mustScript(NewScriptBuilder().AddData(otherSig))
	valid, err := Evaluate(unlocking, locking, ctx, sigFlags)
	require.False(t, valid)
	require.True(t, IsErrorCode(err, ErrSigVerificationFailed), "%v", err)

	// NULLFAIL turns the failure into an error.
	_, err = Evaluate(unlocking, locking, ctx, sigFlags|ScriptVerifyNullFail)
	require.True(t, IsErrorCode(err, ErrNullFail), "%v", err)

	// An empty signature is simply false and needs no transaction.
	emptySig := mustScript(NewScriptBuilder().AddData(nil))
	_, err = Evaluate(emptySig, locking, nil, sigFlags|ScriptVerifyNullFail)
	require.True(t, IsErrorCode(err, ErrSigVerificationFailed), "%v", err)

	// A real signature cannot be checked without a transaction.
	_, err = Evaluate(mustScript(NewScriptBuilder().AddData(sig)), locking,
		nil, sigFlags)
	require.True(t, IsErrorCode(err, ErrInvalidIndex), "%v", err)

	// CHECKSIGVERIFY reports its own error code.
	verifyLocking := mustScript(NewScriptBuilder().AddData(pubKey).
		AddOp(OP_CHECKSIGVERIFY).AddOp(OP_1))
	_, err = Evaluate(unlocking, verifyLocking, ctx, sigFlags)
	require.True(t, IsErrorCode(err, ErrCheckSigVerify), "%v", err)
}

// TestCheckSigWitness ensures witness v0 contexts verify BIP0143 signatures
// which commit to the spent amount.
func TestCheckSigWitness(t *testing.T) {
	t.Parallel()

	const amount = 50000

	key := newTestKey(t)
	pubKey := key.PubKey().SerializeCompressed()
	locking := mustScript(NewScriptBuilder().AddData(pubKey).AddOp(OP_CHECKSIG))

	tx := newTestTx(2, 1)
	hash, err := CalcWitnessSigHash(locking, nil, SigHashAll, tx, 1, amount)
	require.NoError(t, err)
	sig := append(ecdsa.Sign(key, hash).Serialize(), byte(SigHashAll))
	unlocking := mustScript(NewScriptBuilder().AddData(sig))

	ctx := &TxContext{
		Tx:          tx,
		InputIndex:  1,
		InputAmount: amount,
		SigVersion:  SigVersionWitnessV0,
		SigHashes:   NewTxSigHashes(tx),
	}
	valid, err := Evaluate(unlocking, locking, ctx, sigFlags)
	require.NoError(t, err)
	require.True(t, valid)

	wrongAmount := *ctx
	wrongAmount.InputAmount = amount + 1
	_, err = Evaluate(unlocking, locking, &wrongAmount, sigFlags)
	require.True(t, IsErrorCode(err, ErrSigVerificationFailed), "%v", err)

	legacy := *ctx
	legacy.SigVersion = SigVersionBase
	_, err = Evaluate(unlocking, locking, &legacy, sigFlags)
	require.True(t, IsErrorCode(err, ErrSigVerificationFailed), "%v", err)
}

// TestCheckMultiSig ensures signatures must be given in the order of their
// public keys.
func TestCheckMultiSig(t *testing.T) {
	t.Parallel()

	keys := []*btcec.PrivateKey{newTestKey(t), newTestKey(t), newTestKey(t)}
	builder := NewScriptBuilder().AddInt64(2)
	for _, key := range keys {
		builder.AddData(key.PubKey().SerializeCompressed())
	}
	locking := mustScript(builder.AddInt64(3).AddOp(OP_CHECKMULTISIG))

	tx := newTestTx(1, 1)
	ctx := &TxContext{Tx: tx}
	sig1 := signLegacy(t, keys[0], locking, tx, 0)
	sig2 := signLegacy(t, keys[1], locking, tx, 0)
	sig3 := signLegacy(t, keys[2], locking, tx, 0)

	unlock := func(dummy []byte, sigs ...[]byte) Script {
		b := NewScriptBuilder().AddData(dummy)
		for _, sig := range sigs {
			b.AddData(sig)
		}
		return mustScript(b)
	}

	tests := []struct {
		name      string
		unlocking Script
		flags     ScriptFlags
		err       error
	}{{
		name:      "ordered",
		unlocking: unlock(nil, sig1, sig2),
		flags:     sigFlags,
	}, {
		name:      "ordered skipping a key",
		unlocking: unlock(nil, sig1, sig3),
		flags:     sigFlags,
	}, {
		name:      "reversed",
		unlocking: unlock(nil, sig2, sig1),
		flags:     sigFlags,
		err:       Error{ErrorCode: ErrSigVerificationFailed},
	}, {
		name:      "reversed nullfail",
		unlocking: unlock(nil, sig2, sig1),
		flags:     sigFlags | ScriptVerifyNullFail,
		err:       Error{ErrorCode: ErrNullFail},
	}, {
		name:      "duplicate signature",
		unlocking: unlock(nil, sig1, sig1),
		flags:     sigFlags,
		err:       Error{ErrorCode: ErrSigVerificationFailed},
	}, {
		name:      "non-null dummy",
		unlocking: unlock([]byte{0x01}, sig1, sig2),
		flags:     sigFlags,
		err:       Error{ErrorCode: ErrSigNullDummy},
	}, {
		name:      "non-null dummy allowed",
		unlocking: unlock([]byte{0x01}, sig1, sig2),
		flags:     sigFlags &^ ScriptStrictMultiSig,
	}, {
		name:      "missing dummy",
		unlocking: mustScript(NewScriptBuilder().AddData(sig1).AddData(sig2)),
		flags:     sigFlags,
		err:       Error{ErrorCode: ErrStackUnderflow},
	}}

	for _, test := range tests {
		_, err := Evaluate(test.unlocking, locking, ctx, test.flags)
		if e := tstCheckScriptError(err, test.err); e != nil {
			t.Errorf("%s: %v", test.name, e)
		}
	}
}

// TestCheckMultiSigCounts ensures key and signature counts are bounded.
func TestCheckMultiSigCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		locking string
		err     ErrorCode
	}{
		{"negative keys", "0 0 -1 CHECKMULTISIG", ErrInvalidPubKeyCount},
		{"too many keys", "0 0 21 CHECKMULTISIG", ErrInvalidPubKeyCount},
		{"negative sigs", "0 -1 0 CHECKMULTISIG", ErrInvalidSignatureCount},
		{"more sigs than keys", "0 0x01 0x02 0x21 0x02{33} 1 CHECKMULTISIG",
			ErrInvalidSignatureCount},
	}
	for _, test := range tests {
		_, err := runScripts("", test.locking, 0)
		require.True(t, IsErrorCode(err, test.err), "%s: %v", test.name, err)
	}

	// Zero of zero succeeds and each key counts as an operation.
	_, err := runScripts("", "0 0 0 CHECKMULTISIG", 0)
	require.NoError(t, err)
}

// TestLockTime ensures OP_CHECKLOCKTIMEVERIFY and OP_CHECKSEQUENCEVERIFY
// compare against the spending transaction.
func TestLockTime(t *testing.T) {
	t.Parallel()

	const flags = ScriptVerifyCheckLockTimeVerify |
		ScriptVerifyCheckSequenceVerify

	tests := []struct {
		name     string
		locking  string
		version  int32
		lockTime uint32
		sequence uint32
		err      error
	}{{
		name:     "cltv height satisfied",
		locking:  "50 CHECKLOCKTIMEVERIFY",
		lockTime: 100,
	}, {
		name:     "cltv height unsatisfied",
		locking:  "200 CHECKLOCKTIMEVERIFY",
		lockTime: 100,
		err:      Error{ErrorCode: ErrUnsatisfiedLockTime},
	}, {
		name:     "cltv height against timestamp",
		locking:  "50 CHECKLOCKTIMEVERIFY",
		lockTime: LockTimeThreshold + 1,
		err:      Error{ErrorCode: ErrLockTimeDomainMismatch},
	}, {
		name:     "cltv timestamp satisfied",
		locking:  "500000000 CHECKLOCKTIMEVERIFY",
		lockTime: LockTimeThreshold + 1,
	}, {
		name:     "cltv finalized input",
		locking:  "50 CHECKLOCKTIMEVERIFY",
		lockTime: 100,
		sequence: wire.MaxTxInSequenceNum,
		err:      Error{ErrorCode: ErrLockTimeDisabledBySequence},
	}, {
		name:     "csv satisfied",
		locking:  "5 CHECKSEQUENCEVERIFY",
		version:  2,
		sequence: 10,
	}, {
		name:     "csv unsatisfied",
		locking:  "20 CHECKSEQUENCEVERIFY",
		version:  2,
		sequence: 10,
		err:      Error{ErrorCode: ErrUnsatisfiedLockTime},
	}, {
		name:     "csv old transaction version",
		locking:  "5 CHECKSEQUENCEVERIFY",
		version:  1,
		sequence: 10,
		err:      Error{ErrorCode: ErrUnsatisfiedLockTime},
	}, {
		name:     "csv disabled sequence",
		locking:  "5 CHECKSEQUENCEVERIFY",
		version:  2,
		sequence: wire.SequenceLockTimeDisabled | 10,
		err:      Error{ErrorCode: ErrLockTimeDisabledBySequence},
	}, {
		name:     "csv time against height",
		locking:  "0x03 0x050040 CHECKSEQUENCEVERIFY",
		version:  2,
		sequence: 10,
		err:      Error{ErrorCode: ErrLockTimeDomainMismatch},
	}}

	for _, test := range tests {
		tx := newTestTx(1, 1)
		tx.Version = test.version
		tx.LockTime = test.lockTime
		tx.TxIn[0].Sequence = test.sequence

		vm, err := NewEngine(nil, mustParseScript(test.locking),
			&TxContext{Tx: tx}, flags, nil)
		require.NoError(t, err, test.name)
		err = vm.Execute()
		if e := tstCheckScriptError(err, test.err); e != nil {
			t.Errorf("%s: %v", test.name, e)
		}
	}
}

// TestStateSnapshots ensures earlier states are unaffected by later steps
// and that stepping is a pure function of the state.
func TestStateSnapshots(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(mustParseScript("1 2"),
		mustParseScript("ADD 3 EQUAL"), nil, 0, nil)
	require.NoError(t, err)

	initial := vm.State()
	require.Equal(t, StatusRunning, initial.Status())
	require.Len(t, initial.FullScript(), 5)

	for i := 0; i < 2; i++ {
		done, err := vm.Step()
		require.NoError(t, err)
		require.False(t, done)
	}
	snapshot := vm.State()
	require.Equal(t, [][]byte{{1}, {2}}, snapshot.Stack())
	require.Len(t, snapshot.RemainingOps(), 3)

	require.NoError(t, vm.Execute())
	final := vm.State()
	require.Equal(t, StatusHalted, final.Status())
	require.True(t, final.Result())
	require.NoError(t, final.Err())
	require.Equal(t, [][]byte{{1}}, final.Stack())

	// Earlier snapshots still describe the machine at their point.
	require.Empty(t, initial.Stack())
	require.Equal(t, [][]byte{{1}, {2}}, snapshot.Stack())
	require.Equal(t, StatusRunning, snapshot.Status())

	// Stepping a snapshot twice yields the same state both times.
	a, b := step(snapshot), step(snapshot)
	require.Equal(t, a.Stack(), b.Stack())
	require.Equal(t, [][]byte{{3}}, a.Stack())
	require.Equal(t, [][]byte{{1}, {2}}, snapshot.Stack())

	// Stepping a finished state is a no-op.
	require.Equal(t, final, step(final))

	// A finished engine keeps reporting the same outcome.
	done, err := vm.Step()
	require.True(t, done)
	require.NoError(t, err)
}

// TestDebugEngine ensures the step callback sees every state and can abort
// execution.
func TestDebugEngine(t *testing.T) {
	t.Parallel()

	var indices []int
	vm, err := NewDebugEngine(mustParseScript("1"), mustParseScript("2 ADD"),
		nil, 0, nil, func(info *StepInfo) error {
			require.Equal(t, 0, info.ScriptIndex)
			require.Equal(t, info.State.Stack(), info.Stack)
			indices = append(indices, info.OpcodeIndex)
			return nil
		})
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
	require.Equal(t, []int{0, 1, 2, 3, 3}, indices)

	errStop := errors.New("stop")
	calls := 0
	vm, err = NewDebugEngine(mustParseScript("1"), mustParseScript("2 ADD"),
		nil, 0, nil, func(info *StepInfo) error {
			calls++
			if calls == 2 {
				return errStop
			}
			return nil
		})
	require.NoError(t, err)
	require.ErrorIs(t, vm.Execute(), errStop)
	require.Equal(t, 2, calls)
}

// TestDisasm ensures the engine disassembles the token at the program
// counter and each of its scripts.
func TestDisasm(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(mustParseScript("1"), mustParseScript("2 ADD"),
		nil, 0, nil)
	require.NoError(t, err)

	dis, err := vm.DisasmPC()
	require.NoError(t, err)
	require.Equal(t, "00:0000: OP_1", dis)

	_, err = vm.Step()
	require.NoError(t, err)
	dis, err = vm.DisasmPC()
	require.NoError(t, err)
	require.Equal(t, "00:0001: OP_2", dis)

	dis, err = vm.DisasmScript(0)
	require.NoError(t, err)
	require.Equal(t, "00:0000: OP_1\n", dis)

	dis, err = vm.DisasmScript(1)
	require.NoError(t, err)
	require.Equal(t, "01:0000: OP_2\n01:0001: OP_ADD\n", dis)

	_, err = vm.DisasmScript(2)
	require.True(t, IsErrorCode(err, ErrInvalidIndex), "%v", err)

	require.NoError(t, vm.Execute())
	_, err = vm.DisasmPC()
	require.True(t, IsErrorCode(err, ErrInvalidIndex), "%v", err)
}

// TestWitnessScriptRules ensures version 0 witness scripts always require a
// clean stack and are never evaluated as pay-to-script-hash.
func TestWitnessScriptRules(t *testing.T) {
	t.Parallel()

	tx := newTestTx(1, 1)
	witnessCtx := &TxContext{Tx: tx, SigVersion: SigVersionWitnessV0}
	baseCtx := &TxContext{Tx: tx, SigVersion: SigVersionBase}

	// Leftover stack items fail a witness script even without the clean
	// stack flag.
	unlocking := mustParseScript("1")
	locking := mustParseScript("1")
	_, err := Evaluate(unlocking, locking, witnessCtx, ConsensusVerifyFlags)
	require.True(t, IsErrorCode(err, ErrCleanStack), "%v", err)
	valid, err := Evaluate(unlocking, locking, baseCtx, ConsensusVerifyFlags)
	require.NoError(t, err)
	require.True(t, valid)

	// A witness script shaped like a script hash output is a plain hash
	// comparison.  The legacy rules run the pushed OP_0 as a redeem
	// script, which leaves false.
	redeem := []byte{OP_0}
	unlocking = mustScript(NewScriptBuilder().AddData(redeem))
	locking = mustScript(NewScriptBuilder().AddOp(OP_HASH160).
		AddData(btcutil.Hash160(redeem)).AddOp(OP_EQUAL))
	valid, err = Evaluate(unlocking, locking, witnessCtx, ConsensusVerifyFlags)
	require.NoError(t, err)
	require.True(t, valid)
	_, err = Evaluate(unlocking, locking, baseCtx, ConsensusVerifyFlags)
	require.True(t, IsErrorCode(err, ErrEvalFalse), "%v", err)
}
