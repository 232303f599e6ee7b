package dao

import "errors"

var (
	// ErrNotFound is returned when the requested entity is not stored.
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates an empty key.
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when saving a nil pointer.
	ErrNilEntity = errors.New("dao: nil entity")
)
