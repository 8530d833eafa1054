// Package provider wraps the external messaging provider behind a narrow
// capability surface. It is the only package that knows provider wire
// formats; everything above it is provider-agnostic.
package provider

import (
	"errors"
	"fmt"
)

// Error codes attached to provider failures.
const (
	CodeTimeout          = "PROVIDER_TIMEOUT"
	CodeRejected         = "PROVIDER_REJECTED"
	CodeInvalidRecipient = "INVALID_RECIPIENT"
	CodeUnavailable      = "PROVIDER_UNAVAILABLE"
)

// Error is the uniform failure shape returned by every adapter. Provider
// HTTP statuses and network failures are translated into it and never leak
// upward.
type Error struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider: %s: %s", e.Code, e.Message)
}

// Timeout builds a retryable failure (network timeout, 5xx, open breaker).
func Timeout(message string) *Error {
	return &Error{Code: CodeTimeout, Message: message, Retryable: true}
}

// Rejected builds a non-retryable failure (4xx-equivalent).
func Rejected(code, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: false}
}

// IsRetryable reports whether err may succeed on a later attempt. Unknown
// errors count as retryable so transient infrastructure failures are not
// promoted to permanent row failures.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return true
}

// ErrorCode extracts the taxonomy code from err, if any.
func ErrorCode(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
