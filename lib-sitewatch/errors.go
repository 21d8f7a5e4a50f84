package sitewatch

import (
	"errors"
)

// The errors in this package can check the error type via errors.Is function.
var (
	// ErrEmptyTarget is a error for if the target URL was empty.
	ErrEmptyTarget = errors.New("the target URL is required")

	// ErrInvalidInterval is a error for if an interval ends before it starts.
	ErrInvalidInterval = errors.New("end time is before start time")

	// ErrAlreadyClosed is a error for if closing an incident that has already closed.
	ErrAlreadyClosed = errors.New("incident is already closed")

	// ErrInvalidRecord is a error for if failed to parse a record because it was invalid format.
	ErrInvalidRecord = errors.New("invalid record")
)
