// Package apperr defines the error taxonomy surfaced at the HTTP boundary.
// Every handler failure is expressed as an *Error carrying a stable string
// code and the HTTP status it maps to; the boundary reporter renders the
// uniform response body.
package apperr

import (
	"errors"
	"net/http"
)

// Stable error codes.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeMissingCredentials    = "MISSING_CREDENTIALS"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeMissingToken          = "MISSING_TOKEN"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeForbidden             = "FORBIDDEN"
	CodeNotFound              = "NOT_FOUND"
	CodeRateLimited           = "RATE_LIMITED"
	CodePayloadTooLarge       = "PAYLOAD_TOO_LARGE"
	CodeInternal              = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Status  int      // HTTP status to respond with.
	Code    string   // Stable machine-readable code.
	Message string   // Human-readable message.
	Details []string // Field-level details, omitted in production responses.
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error for logging purposes.
func (e *Error) WithCause(err error) *Error {
	clone := *e
	clone.cause = err
	return &clone
}

// New constructs a classified error.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Validation builds a 400 VALIDATION_ERROR with field-level details.
func Validation(details ...string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: "validation failed",
		Details: details,
	}
}

// MissingCredentials builds the 400 returned when login input is incomplete.
func MissingCredentials() *Error {
	return New(http.StatusBadRequest, CodeMissingCredentials, "email and password are required")
}

// InvalidCredentials builds the 401 returned on a failed login. The same
// error is used for unknown emails and wrong passwords.
func InvalidCredentials() *Error {
	return New(http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
}

// MissingToken builds the 401 returned when no bearer token is presented.
func MissingToken() *Error {
	return New(http.StatusUnauthorized, CodeMissingToken, "authorization token required")
}

// InvalidToken builds the 401 returned when a presented token fails verification.
func InvalidToken() *Error {
	return New(http.StatusUnauthorized, CodeInvalidToken, "invalid token")
}

// InvalidOrExpiredToken builds the 401 returned when a token is bad or stale.
func InvalidOrExpiredToken() *Error {
	return New(http.StatusUnauthorized, CodeInvalidOrExpiredToken, "invalid or expired token")
}

// Forbidden builds the 403 returned when a valid principal lacks the role.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeForbidden, message)
}

// NotFound builds a 404 for a missing record.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

// Internal wraps an unexpected failure as a 500.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, "internal server error").WithCause(err)
}

// From classifies an arbitrary error, passing *Error values through and
// wrapping anything else as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
