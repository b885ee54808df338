// Package apperr defines the operational error type produced by every
// rejection in the auth and user subsystems. An Error carries an HTTP-style
// status code, a message safe to show to clients, and a flag separating
// expected operational failures from programming or infrastructure faults.
// The boundary handler decides rendering based on that flag.
package apperr

import (
	"fmt"
	"net/http"
)

// Error is a structured operational error.
type Error struct {
	// Status is the HTTP status code this failure maps to.
	Status int

	// Message is safe to display to the client.
	Message string

	// Operational is true for expected failures (bad credentials,
	// expired token, missing input). Non-operational errors must never
	// leak detail to the client in production.
	Operational bool

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an operational error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message, Operational: true}
}

// BadRequest signals malformed or missing input.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

// Unauthorized signals missing, invalid, or stale credentials.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

// Forbidden signals a role that is not permitted to perform the action.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

// NotFound signals an absent user or resource.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// Conflict signals a uniqueness violation such as a duplicate email.
func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

// Internal wraps an unexpected failure. It is not operational: the client
// sees a generic message, the cause is only logged server-side.
func Internal(message string, err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Message: message,
		Err:     err,
	}
}
