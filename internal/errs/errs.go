// Package errs implements the error taxonomy shared by every component:
// a single tagged variant instead of one exception type per failure mode.
package errs

import (
	"errors"
	"fmt"
)

// Code is one of the surface error codes from the error handling design.
type Code string

const (
	InvalidInput        Code = "INVALID_INPUT"
	NotFound             Code = "NOT_FOUND"
	Conflict             Code = "CONFLICT"
	PayloadTooLarge      Code = "PAYLOAD_TOO_LARGE"
	RateLimited          Code = "RATE_LIMITED"
	ProviderUnavailable  Code = "PROVIDER_UNAVAILABLE"
	QuotaExceeded        Code = "QUOTA_EXCEEDED"
	InternalError        Code = "INTERNAL_ERROR"
)

// HTTPStatus maps a code to the HTTP status an embedding transport layer
// should use. This module has no HTTP layer of its own (out of scope);
// this is a convenience for whoever wraps it.
func (c Code) HTTPStatus() int {
	switch c {
	case InvalidInput:
		return 400
	case NotFound:
		return 404
	case Conflict:
		return 409
	case PayloadTooLarge:
		return 413
	case RateLimited:
		return 429
	case ProviderUnavailable:
		return 503
	case QuotaExceeded:
		return 503
	case InternalError:
		return 500
	default:
		return 500
	}
}

// Error is the single carrier type for every taxonomy entry. It holds the
// offending id or cause rather than growing one struct per error kind.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a tagged error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap tags an underlying cause with a taxonomy code.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the taxonomy code from err, defaulting to InternalError
// for anything not produced by this package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// Is reports whether err carries the given code, walking the wrap chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
