package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an engine error. The kind string travels verbatim in the
// API response envelope so callers can branch on it without parsing messages.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindConflict         Kind = "CONFLICT_ERROR"
	KindNoApplicableRule Kind = "NO_APPLICABLE_RULE"
	KindNotFound         Kind = "NOT_FOUND"
)

// Error is a kinded error returned by the service layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a VALIDATION_ERROR for malformed or out-of-range input.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a CONFLICT_ERROR for stale versions or history-protected deletes.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a NOT_FOUND error for a nonexistent target id.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NoApplicableRule returns a NO_APPLICABLE_RULE error when no active rule
// window contains the trigger date. The calculator never falls back silently.
func NoApplicableRule(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNoApplicableRule, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to an existing kinded error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// KindOf extracts the Kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindNoApplicableRule:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
