package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrStaleState means the booking changed status between read and write.
	ErrStaleState = errors.New("booking status changed concurrently")
)
