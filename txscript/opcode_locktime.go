// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

const (
	// LockTimeThreshold is the number below which a lock time is
	// interpreted to be a block number.  Since an average of one block
	// is generated per 10 minutes, this allows blocks for about 9,512
	// years.
	LockTimeThreshold = 5e8 // Tue Nov 5 00:53:20 1985 UTC
)

// lockTimeOpcodes holds the lock time opcodes.  Both were soft forked in as
// redefinitions of OP_NOP2 and OP_NOP3.
var lockTimeOpcodes = []opcode{
	{OP_CHECKLOCKTIMEVERIFY, "OP_CHECKLOCKTIMEVERIFY", 1, familyLockTime, opcodeCheckLockTimeVerify},
	{OP_CHECKSEQUENCEVERIFY, "OP_CHECKSEQUENCEVERIFY", 1, familyLockTime, opcodeCheckSequenceVerify},
}

// verifyLockTime is a helper function used to validate locktimes.
func verifyLockTime(txLockTime, threshold, lockTime int64) error {
	// The lockTimes in both the script and transaction must be of the same
	// type.
	if !((txLockTime < threshold && lockTime < threshold) ||
		(txLockTime >= threshold && lockTime >= threshold)) {
		str := fmt.Sprintf("mismatched locktime types -- tx locktime "+
			"%d, stack locktime %d", txLockTime, lockTime)
		return scriptError(ErrLockTimeDomainMismatch, str)
	}

	if lockTime > txLockTime {
		str := fmt.Sprintf("locktime requirement not satisfied -- "+
			"locktime is greater than the transaction locktime: "+
			"%d > %d", lockTime, txLockTime)
		return scriptError(ErrUnsatisfiedLockTime, str)
	}

	return nil
}

// peekLockTime decodes the top stack item as a 5-byte script number without
// removing it.
//
// The lock time and sequence fields are uint32 values, while a standard
// 4-byte script number only reaches 2^31-1.  A 5-byte number reaches 2^39-1,
// which covers the whole range.
func peekLockTime(s ProgramState) (int64, error) {
	so, err := s.stack.PeekByteArray(0)
	if err != nil {
		return 0, err
	}
	n, err := makeScriptNum(so, s.stack.verifyMinimalData, cltvScriptNumLen)
	if err != nil {
		return 0, err
	}

	// In the rare event that the argument needs to be < 0 due to some
	// arithmetic being done first, you can always use
	// 0 OP_MAX OP_CHECKLOCKTIMEVERIFY.
	if n < 0 {
		str := fmt.Sprintf("negative lock time: %d", n)
		return 0, scriptError(ErrNegativeLockTime, str)
	}
	return int64(n), nil
}

// opcodeCheckLockTimeVerify compares the top item on the data stack to the
// LockTime field of the transaction containing the script signature
// validating if the transaction outputs are spendable yet.  If flag
// ScriptVerifyCheckLockTimeVerify is not set, the code continues as if OP_NOP2
// were executed.
//
// Stack transformation: [... locktime] -> [... locktime]
func opcodeCheckLockTimeVerify(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	// If the ScriptVerifyCheckLockTimeVerify script flag is not set, treat
	// opcode as OP_NOP2 instead.
	if !s.hasFlag(ScriptVerifyCheckLockTimeVerify) {
		if s.hasFlag(ScriptDiscourageUpgradableNops) {
			return s, scriptError(ErrDiscourageUpgradableNOPs,
				"OP_NOP2 reserved for soft-fork upgrades")
		}
		return s, nil
	}

	lockTime, err := peekLockTime(s)
	if err != nil {
		return s, err
	}
	txIn, err := s.ctx.txIn()
	if err != nil {
		return s, err
	}

	// The lock time field of a transaction is either a block height at
	// which the transaction is finalized or a timestamp depending on if the
	// value is before the LockTimeThreshold.  When it is under the
	// threshold it is a block height.
	err = verifyLockTime(int64(s.ctx.Tx.LockTime), LockTimeThreshold,
		lockTime)
	if err != nil {
		return s, err
	}

	// The lock time feature can also be disabled, thereby bypassing
	// OP_CHECKLOCKTIMEVERIFY, if every transaction input has been finalized
	// by setting its sequence to the maximum value (wire.MaxTxInSequenceNum).
	// This condition would result in the transaction being allowed into the
	// blockchain making the opcode ineffective.
	//
	// This condition is prevented by enforcing that the input being used by
	// the opcode is unlocked (its sequence number is less than the max
	// value).  This is sufficient to prove correctness without having to
	// check every input.
	if txIn.Sequence == wire.MaxTxInSequenceNum {
		return s, scriptError(ErrLockTimeDisabledBySequence,
			"transaction input is finalized")
	}

	return s, nil
}

// opcodeCheckSequenceVerify compares the top item on the data stack to the
// Sequence field of the input being validated to check whether the output
// being spent has reached its relative lock time.  If flag
// ScriptVerifyCheckSequenceVerify is not set, the code continues as if OP_NOP3
// were executed.
//
// Stack transformation: [... sequence] -> [... sequence]
func opcodeCheckSequenceVerify(op *opcode, data []byte, s ProgramState) (ProgramState, error) {
	// If the ScriptVerifyCheckSequenceVerify script flag is not set, treat
	// opcode as OP_NOP3 instead.
	if !s.hasFlag(ScriptVerifyCheckSequenceVerify) {
		if s.hasFlag(ScriptDiscourageUpgradableNops) {
			return s, scriptError(ErrDiscourageUpgradableNOPs,
				"OP_NOP3 reserved for soft-fork upgrades")
		}
		return s, nil
	}

	sequence, err := peekLockTime(s)
	if err != nil {
		return s, err
	}

	// To provide for future soft-fork extensibility, if the operand has
	// the disabled lock-time flag set, CHECKSEQUENCEVERIFY behaves as a
	// NOP.
	if sequence&int64(wire.SequenceLockTimeDisabled) != 0 {
		return s, nil
	}

	txIn, err := s.ctx.txIn()
	if err != nil {
		return s, err
	}

	// Transaction version numbers not high enough to trigger CSV rules must
	// fail.
	if uint32(s.ctx.Tx.Version) < 2 {
		str := fmt.Sprintf("invalid transaction version: %d",
			s.ctx.Tx.Version)
		return s, scriptError(ErrUnsatisfiedLockTime, str)
	}

	// Sequence numbers with their most significant bit set are not
	// consensus constrained.  Testing that the transaction's sequence
	// number does not have this bit set prevents using this property to
	// get around a CHECKSEQUENCEVERIFY check.
	txSequence := int64(txIn.Sequence)
	if txSequence&int64(wire.SequenceLockTimeDisabled) != 0 {
		str := fmt.Sprintf("transaction sequence has sequence "+
			"locktime disabled bit set: 0x%x", txSequence)
		return s, scriptError(ErrLockTimeDisabledBySequence, str)
	}

	// Mask off non-consensus bits before doing comparisons.
	lockTimeMask := int64(wire.SequenceLockTimeIsSeconds |
		wire.SequenceLockTimeMask)
	err = verifyLockTime(txSequence&lockTimeMask,
		wire.SequenceLockTimeIsSeconds, sequence&lockTimeMask)
	if err != nil {
		return s, err
	}
	return s, nil
}
