// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the bitcoin transaction script language.

This package provides data structures and functions to tokenize and execute
bitcoin transaction scripts.

# Script Overview

Bitcoin transaction scripts are written in a stack-base, FORTH-like language.

The bitcoin script language consists of a number of opcodes which fall into
several categories such pushing and popping data to and from the stack,
performing basic and bitwise arithmetic, conditional branching, comparing
hashes, and checking cryptographic signatures.  Scripts are processed from left
to right and intentionally do not provide loops.

# Execution Model

Scripts are evaluated as a sequence of tokens: the unlocking tokens followed
by the locked tokens.  The machine state is an immutable ProgramState value.
Each opcode handler receives a state and returns a new one, so any snapshot
may be kept and inspected while evaluation goes on.  The Engine drives the
dispatch loop one token at a time and also runs the redeem script of
pay-to-script-hash outputs.  Evaluate is the one-call entry point.

Raw scripts are turned into tokens with ParseScript and built with
ScriptBuilder.

# Errors

Errors returned by this package are of type txscript.Error.  This allows the
caller to programmatically determine the specific error by examining the
ErrorCode field of the type asserted txscript.Error while still providing rich
error messages with contextual information.  A convenience function named
IsErrorCode is also provided to allow callers to easily check for a specific
error code.  See ErrorCode in the package documentation for a full list.
*/
package txscript
