// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package errs defines the failure taxonomy shared by every stage of the
// extractor. Each public entry point returns either nil or an *Error whose
// Kind tells the caller what went wrong: bad input, an unreachable service,
// a service that answered badly, a payload that could not be parsed, or a
// result file that could not be written. Anything else is KindUnexpected.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Kinds are disjoint.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindNetwork
	KindPubMedAPI
	KindDataProcessing
	KindOutput
)

var kindNames = map[Kind]string{
	KindUnexpected:     "unexpected error",
	KindValidation:     "validation error",
	KindNetwork:        "network error",
	KindPubMedAPI:      "PubMed API error",
	KindDataProcessing: "data processing error",
	KindOutput:         "output error",
}

// String returns a human-readable kind label.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// exitCodes maps kinds to process exit codes for the CLI.
var exitCodes = map[Kind]int{
	KindUnexpected:     1,
	KindValidation:     2,
	KindNetwork:        3,
	KindPubMedAPI:      4,
	KindDataProcessing: 5,
	KindOutput:         6,
}

// ExitCode returns the process exit code for k.
func (k Kind) ExitCode() int {
	if c, ok := exitCodes[k]; ok {
		return c
	}
	return 1
}

// Error is a classified failure. Op names the operation that failed
// (e.g. "pubmed.search") and Err, if set, is the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Kind and no Op or Msg, so
// errors.Is(err, errs.Network) works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is kind checks.
var (
	Validation     = &Error{Kind: KindValidation}
	Network        = &Error{Kind: KindNetwork}
	PubMedAPI      = &Error{Kind: KindPubMedAPI}
	DataProcessing = &Error{Kind: KindDataProcessing}
	Output         = &Error{Kind: KindOutput}
	Unexpected     = &Error{Kind: KindUnexpected}
)

// New returns an *Error of the given kind with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. If err is already an *Error it is returned
// unchanged so the original kind survives; nil stays nil.
func Wrap(kind Kind, op string, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err. Errors outside the taxonomy are
// KindUnexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Ensure guarantees that a non-nil err crossing a package boundary is an
// *Error, wrapping anything else as KindUnexpected.
func Ensure(op string, err error) error {
	return Wrap(KindUnexpected, op, err, "")
}
