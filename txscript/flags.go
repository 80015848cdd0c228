// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"strings"
)

// flagNames maps the conventional script verification flag names to their
// ScriptFlags values.
var flagNames = []struct {
	name string
	flag ScriptFlags
}{
	{"P2SH", ScriptBip16},
	{"STRICTENC", ScriptVerifyStrictEncoding},
	{"DERSIG", ScriptVerifyDERSignatures},
	{"LOW_S", ScriptVerifyLowS},
	{"NULLDUMMY", ScriptStrictMultiSig},
	{"SIGPUSHONLY", ScriptVerifySigPushOnly},
	{"MINIMALDATA", ScriptVerifyMinimalData},
	{"DISCOURAGE_UPGRADABLE_NOPS", ScriptDiscourageUpgradableNops},
	{"CLEANSTACK", ScriptVerifyCleanStack},
	{"CHECKLOCKTIMEVERIFY", ScriptVerifyCheckLockTimeVerify},
	{"CHECKSEQUENCEVERIFY", ScriptVerifyCheckSequenceVerify},
	{"MINIMALIF", ScriptVerifyMinimalIf},
	{"NULLFAIL", ScriptVerifyNullFail},
	{"SINGLEELSE", ScriptVerifySingleElse},
}

// ParseScriptFlags parses a comma separated list of flag names such as
// "P2SH,STRICTENC" into ScriptFlags.  The names NONE, CONSENSUS and STANDARD
// are also accepted, the latter two selecting ConsensusVerifyFlags and
// StandardVerifyFlags respectively.
func ParseScriptFlags(flagStr string) (ScriptFlags, error) {
	var flags ScriptFlags

nextFlag:
	for _, name := range strings.Split(flagStr, ",") {
		name = strings.ToUpper(strings.TrimSpace(name))
		switch name {
		case "", "NONE":
			continue
		case "CONSENSUS":
			flags |= ConsensusVerifyFlags
			continue
		case "STANDARD":
			flags |= StandardVerifyFlags
			continue
		}

		for _, fn := range flagNames {
			if fn.name == name {
				flags |= fn.flag
				continue nextFlag
			}
		}
		str := fmt.Sprintf("invalid script flag: %q", name)
		return 0, scriptError(ErrInvalidFlags, str)
	}
	return flags, nil
}

// String returns the flags as the comma separated list of their names.
func (f ScriptFlags) String() string {
	if f == 0 {
		return "NONE"
	}

	var names []string
	for _, fn := range flagNames {
		if f&fn.flag == fn.flag {
			names = append(names, fn.name)
			f &^= fn.flag
		}
	}
	if f != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(f)))
	}
	return strings.Join(names, ",")
}
