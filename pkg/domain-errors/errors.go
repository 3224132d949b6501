// Package domainerrors provides coded errors for expected business outcomes.
//
// Services return these instead of raw errors so transports can map failures
// to stable, documented codes without string matching. Infrastructure facts
// (row missing, key conflict) travel as pkg/platform/sentinel errors and are
// translated to coded errors at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable failure category.
type Code string

const (
	// CodeInvalidInput flags malformed input at a trust boundary (bad UUID,
	// unparsable payload field).
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest flags a structurally invalid request.
	CodeBadRequest Code = "bad_request"
	// CodeValidation flags input that parsed but violates a business rule.
	CodeValidation Code = "validation"
	// CodeNotFound flags a referenced record that does not exist or is inactive.
	CodeNotFound Code = "not_found"
	// CodeConflict flags uniqueness or singleton violations detected at the
	// persistence layer.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation flags an operation attempted from a state that
	// does not permit it.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnauthorized flags missing or invalid authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden flags an authenticated actor lacking the required role.
	CodeForbidden Code = "forbidden"
	// CodeUnavailable flags an upstream collaborator failure worth retrying
	// by the caller.
	CodeUnavailable Code = "unavailable"
	// CodeTimeout flags a cancelled or deadline-exceeded operation.
	CodeTimeout Code = "timeout"
	// CodeInternal flags unexpected failures; the detail is logged, not shown.
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message naming the offending
// identifiers, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// GetCode extracts the code from an error, defaulting to CodeInternal.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status for the transport layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
