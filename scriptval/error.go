// Copyright (c) 2014-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package scriptval

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of input validation error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrMissingTxOut indicates a transaction input references an output
	// the previous output fetcher does not know about.
	ErrMissingTxOut ErrorCode = iota

	// ErrBadTxInput indicates an input is malformed in a way that keeps
	// its scripts from being evaluated, such as a witness program with
	// the wrong witness stack.
	ErrBadTxInput

	// ErrScriptMalformed indicates a transaction script could not be
	// parsed or the script engine refused to start on it.
	ErrScriptMalformed

	// ErrScriptValidation indicates the result of executing a transaction
	// script failed.
	ErrScriptValidation
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrMissingTxOut:     "ErrMissingTxOut",
	ErrBadTxInput:       "ErrBadTxInput",
	ErrScriptMalformed:  "ErrScriptMalformed",
	ErrScriptValidation: "ErrScriptValidation",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies an input that failed validation.  The caller can use
// type assertions or errors.As to access the ErrorCode field to ascertain the
// specific reason for the failure.  Err holds the underlying script error,
// if any.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error, may be nil
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying script error so errors.As can reach it.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string, err error) RuleError {
	return RuleError{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode returns whether err is a RuleError with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var rerr RuleError
	return errors.As(err, &rerr) && rerr.ErrorCode == c
}
