// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argv

import (
	"errors"
	"fmt"
)

// Kind separates syntactic problems in the token stream from semantic
// problems against the schema.
type Kind int

const (
	KindParse Kind = iota + 1
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinel errors wrapped by *Error. Use errors.Is to classify an issue.
var (
	ErrUnknownOption    = errors.New("unknown option")
	ErrUnexpectedToken  = errors.New("unexpected token")
	ErrBooleanValue     = errors.New("boolean option does not take a value")
	ErrMissingValue     = errors.New("option requires a value")
	ErrMalformedOption  = errors.New("malformed option")
	ErrMalformedCommand = errors.New("malformed command")
	ErrCommandOrder     = errors.New("command out of order")
	ErrArity            = errors.New("wrong number of values")
	ErrChoice           = errors.New("value not in choices")
	ErrRequiredParam    = errors.New("missing required param")
	ErrInvalidParam     = errors.New("invalid param")
)

// Error is one recoverable problem found while parsing. Parse never
// returns these as its error; they are collected in Result.Errors.
type Error struct {
	Kind  Kind
	Err   error  // one of the Err* sentinels, or a Validate hook error
	Token string // offending token, if any
	Index int    // position of Token in the input, -1 if not tied to a token
	Name  string // option name or param label, if any
	Msg   string
}

func (e *Error) Error() string {
	if e.Index < 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s (argument %d)", e.Msg, e.Index)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func parseIssue(sentinel error, index int, token, name, format string, args ...any) *Error {
	return &Error{
		Kind:  KindParse,
		Err:   sentinel,
		Token: token,
		Index: index,
		Name:  name,
		Msg:   fmt.Sprintf(format, args...),
	}
}

func validationIssue(sentinel error, index int, token, name, format string, args ...any) *Error {
	return &Error{
		Kind:  KindValidation,
		Err:   sentinel,
		Token: token,
		Index: index,
		Name:  name,
		Msg:   fmt.Sprintf(format, args...),
	}
}
