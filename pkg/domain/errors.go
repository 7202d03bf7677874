package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every guard failure the engine can surface. A failed
// call always carries exactly one kind so integrators can build deterministic
// retry and UI logic on top of it.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindPhase         ErrorKind = "PHASE_VIOLATION"
	KindTiming        ErrorKind = "TIMING_VIOLATION"
	KindValueMismatch ErrorKind = "VALUE_MISMATCH"
	KindDuplicate     ErrorKind = "DUPLICATE_ACTION"
	KindIntegrity     ErrorKind = "INTEGRITY_VIOLATION"
	KindAuthorization ErrorKind = "AUTHORIZATION_VIOLATION"
	KindCapacity      ErrorKind = "CAPACITY_VIOLATION"
	KindTransfer      ErrorKind = "TRANSFER_FAILURE"
)

type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func WrapErr(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from any error produced by the engine; errors
// from elsewhere report as an empty kind.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
