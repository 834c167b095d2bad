// Package domainerrors provides code-tagged errors shared by all services.
//
// Services return these so transport layers can translate them into HTTP
// statuses without string matching. Infrastructure layers should return
// pkg/platform/sentinel errors instead and let services attach codes.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidInput covers missing or malformed request fields.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound covers absent voters, admins, candidates and elections.
	CodeNotFound Code = "not_found"
	// CodeConflict covers already-voted, duplicate enrollment, duplicate
	// candidate name and duplicate face enrollment.
	CodeConflict Code = "conflict"
	// CodeUnauthorized covers face mismatch and bad credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeExternal covers ledger errors raised before the transaction was
	// confirmed: node unreachable, reverted transaction.
	CodeExternal Code = "external_dependency"
	// CodeExternalTimeout is raised when waiting for ledger confirmation
	// exceeded the configured bound. The transaction may still land.
	CodeExternalTimeout Code = "external_timeout"
	// CodeExternalCommitted marks failures that happened after the ledger
	// confirmed the write but before local state was flipped. Reconciliation
	// must repair the divergence; callers must not resubmit.
	CodeExternalCommitted Code = "external_committed"
	// CodeDataCorruption means stored biometric data is unparsable beyond
	// recovery (no valid embedding remained).
	CodeDataCorruption Code = "data_corruption"
	// CodeInvariantViolation marks broken aggregate invariants.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a classification code.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.wrapped
		de = nil
	}
	return false
}

// Is is shorthand for HasCode; it reads better at call sites that treat the
// code as the error identity.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
