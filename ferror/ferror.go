// Package ferror defines the error kinds used across the fastslide module.
//
// Every error returned from a slide-reading operation carries a Kind so
// callers can branch on the failure class (errors.As) without parsing
// message text, and accumulates a short call-site trace as it is wrapped
// on the way back up the stack.
package ferror

import (
	"errors"
	"fmt"
)

// Kind classifies a fastslide error.
type Kind int

const (
	// Internal indicates a bug or an invariant violation.
	Internal Kind = iota
	// InvalidArgument indicates a caller supplied a malformed request.
	InvalidArgument
	// NotFound indicates a referenced file, section, key, or tile is missing.
	NotFound
	// Unimplemented indicates the operation is recognized but not supported
	// for this format or configuration.
	Unimplemented
	// FailedPrecondition indicates the reader was used in a state that
	// violates a documented precondition (e.g. a tile read on a directory
	// that is not tiled).
	FailedPrecondition
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid-argument"
	case NotFound:
		return "not-found"
	case Unimplemented:
		return "unimplemented"
	case FailedPrecondition:
		return "failed-precondition"
	default:
		return "internal"
	}
}

// Error is the concrete error type produced by New and Wrap.
type Error struct {
	kind   Kind
	msg    string
	frames []string
	cause  error
}

// New creates a root error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf creates a root error of the given kind with formatted text.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	s := e.msg
	for _, f := range e.frames {
		s += "\n  at " + f
	}
	if e.cause != nil {
		s += "\ncaused by: " + e.cause.Error()
	}
	return s
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// Kind reports the error's kind.
func (e *Error) Kind() Kind { return e.kind }

// Wrap attaches a call-site frame to err, preserving its Kind if err is
// already a *Error, or defaulting to Internal otherwise.
func Wrap(err error, frame string) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return &Error{kind: fe.kind, msg: fe.msg, frames: append(append([]string{}, fe.frames...), frame), cause: fe.cause}
	}
	return &Error{kind: Internal, msg: err.Error(), frames: []string{frame}, cause: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind == kind
	}
	return false
}
