// Package apierr centralizes the stable error taxonomy every service
// package (orchestrator, queue, dataset, kvstore, logs) raises, and the
// HTTP status each code maps to at the huma boundary.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable error category callers can switch on without string
// comparison.
type Code string

const (
	CodeNotFound             Code = "NOT_FOUND"
	CodeInvalidState         Code = "INVALID_STATE"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeLockedByOther        Code = "LOCKED_BY_OTHER"
	CodeNotLockOwner         Code = "NOT_LOCK_OWNER"
	CodeValidation           Code = "VALIDATION"
	CodeUnauthenticated      Code = "UNAUTHENTICATED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeConflict             Code = "CONFLICT"
	CodeDependencyUnavailable Code = "DEPENDENCY_UNAVAILABLE"
	CodeInternal             Code = "INTERNAL"

	// CodePartialWrite is PushItems' failure mode when some but not all
	// items in a batch could be persisted to the blob store.
	CodePartialWrite Code = "PARTIAL_WRITE"
)

// httpStatus maps each Code to the HTTP status the API surface returns.
var httpStatus = map[Code]int{
	CodeNotFound:              http.StatusNotFound,
	CodeInvalidState:          http.StatusConflict,
	CodeInvalidTransition:     http.StatusConflict,
	CodeLockedByOther:         http.StatusConflict,
	CodeNotLockOwner:          http.StatusConflict,
	CodeValidation:            http.StatusBadRequest,
	CodeUnauthenticated:       http.StatusUnauthorized,
	CodeUnauthorized:          http.StatusForbidden,
	CodeConflict:              http.StatusConflict,
	CodeDependencyUnavailable: http.StatusServiceUnavailable,
	CodeInternal:              http.StatusInternalServerError,
	CodePartialWrite:          http.StatusConflict,
}

// Error is the typed error every service method returns for an expected
// failure. Unexpected failures (bugs, unreachable branches) should still
// be plain errors wrapped by New(CodeInternal, ...) at the boundary.
type Error struct {
	Code    Code
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// HTTPStatus returns the status code this error maps to at the API boundary.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an Error with the given code and message, optionally
// wrapping a cause.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, err: cause}
}

// NotFound builds a CodeNotFound error naming the missing resource.
func NotFound(resource, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s %q not found", resource, id), nil)
}

// Is reports whether err is an *Error of the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the Code from err, defaulting to CodeInternal for
// untyped errors so every failure still maps to a concrete HTTP status.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
