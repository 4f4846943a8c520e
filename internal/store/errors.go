package store

import "errors"

var (
	// ErrInvalidBool is returned when a stored value cannot be read as a boolean.
	ErrInvalidBool = errors.New("store: value is not a boolean")

	// ErrEmptyKey is returned for operations on the empty key.
	ErrEmptyKey = errors.New("store: key is empty")
)
