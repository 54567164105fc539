// Package bverrors is the error taxonomy shared by every component that
// answers command-bridge requests: each error carries a Kind the bridge
// maps to a wire-level error string, without losing the underlying cause.
package bverrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way the command bridge reports it to
// callers. See spec §7.
type Kind string

const (
	KindValidation Kind = "Validation"
	KindNotFound   Kind = "NotFound"
	KindConflict   Kind = "Conflict"
	KindState      Kind = "State"
	KindExternal   Kind = "External"
	KindAuth       Kind = "Auth"
	KindIO         Kind = "IO"
)

// Error is the common shape for every BioVault domain error.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "profile.Switch"
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a bare Error with no wrapped cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an Error that wraps an underlying cause.
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the Kind of err if it (or something it wraps) is a
// *bverrors.Error, otherwise KindExternal.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindExternal
}

// TruncateReference shortens a potentially sensitive string (home path,
// token, fingerprint) for inclusion in an error message or log line.
func TruncateReference(ref string) string {
	switch {
	case ref == "":
		return ""
	case len(ref) > 20:
		return ref[:8] + "***" + ref[len(ref)-4:]
	case len(ref) <= 8:
		return "***"
	default:
		return ref[:4] + "***" + ref[len(ref)-4:]
	}
}
