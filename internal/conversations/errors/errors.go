package errors

import "errors"

var (
	ErrNotFound      = errors.New("conversation not found")
	ErrInvalidID     = errors.New("invalid conversation ID")
	ErrDuplicatePair = errors.New("conversation already exists for this pair")
)
