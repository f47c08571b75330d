// Package apperr defines the failure type carried from the point of
// detection to the transport boundary.
package apperr

import (
	"errors"
	"net/http"
)

// Error is a failure with a client-facing message and an HTTP status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New constructs an Error with an arbitrary status code.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Unauthorized reports bad, missing, or expired credentials.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

// Forbidden reports an authenticated caller without permission.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

// NotFound reports an absent user or product.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// Conflict reports a uniqueness violation such as a duplicate email.
func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

// Unprocessable reports a token that failed verification against every secret.
func Unprocessable(message string) *Error {
	return New(http.StatusUnprocessableEntity, message)
}

// From unwraps err into an *Error if one is in its chain.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
