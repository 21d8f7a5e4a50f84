// Package siteerr provides the error types of sitewatch.
//
// Use errors.Is to check what kind of error it is.
package siteerr

import (
	"fmt"
)

// Error is an error that has a kind and optionally a cause.
type Error struct {
	kind    error
	cause   error
	message string
}

// New creates a new Error.
// The message is made from format and args, and followed by the cause's message if cause is not nil.
func New(kind error, cause error, format string, args ...interface{}) Error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		if msg != "" {
			msg += ": "
		}
		msg += cause.Error()
	}

	return Error{
		kind:    kind,
		cause:   cause,
		message: msg,
	}
}

// Error implements error interface.
func (e Error) Error() string {
	return e.message
}

// Unwrap implement for errors.Unwrap.
func (e Error) Unwrap() error {
	return e.cause
}

// Is implement for errors.Is.
func (e Error) Is(err error) bool {
	return e.kind == err
}
