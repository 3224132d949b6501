package classification

import (
	"errors"
	"fmt"
)

// FailureCode is the stable vocabulary for hierarchy validation failures.
// The presentation layer renders these as field-level form messages, so the
// codes distinguish which link of the tuple broke, not just that one did.
type FailureCode string

const (
	// FailureUnknownCorps: corps id does not resolve or the corps is inactive.
	FailureUnknownCorps FailureCode = "unknown_corps"
	// FailureUnknownGrade: grade id does not resolve or the grade is inactive.
	FailureUnknownGrade FailureCode = "unknown_grade"
	// FailureInvalidGrade: the grade resolved but carries an owning corps.
	// Grades in the statutory grid are transversal; an owned grade is a
	// catalog data inconsistency, not a caller mistake.
	FailureInvalidGrade FailureCode = "invalid_grade"
	// FailureUnknownPayScale: pay-scale id does not resolve or is inactive.
	FailureUnknownPayScale FailureCode = "unknown_pay_scale"
	// FailureIncompatiblePayScale: the pay-scale is not the one keyed by
	// (corps category, grade).
	FailureIncompatiblePayScale FailureCode = "incompatible_pay_scale"
	// FailureUnknownStep: step id does not resolve or is inactive.
	FailureUnknownStep FailureCode = "unknown_step"
	// FailureIncompatibleStep: the step belongs to a different pay-scale.
	FailureIncompatibleStep FailureCode = "incompatible_step"
)

// Error reports the first broken link of a classification tuple. Detail
// names the offending identifiers for diagnostics.
type Error struct {
	Code   FailureCode
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("classification %s: %s", e.Code, e.Detail)
}

func newError(code FailureCode, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the failure code from an error, or "" when err is not a
// classification failure.
func CodeOf(err error) FailureCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
