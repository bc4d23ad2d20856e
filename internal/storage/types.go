// Package storage defines the Record Store contract for the Placemark data
// layer: the storage interfaces, sentinel errors, and the schema migration
// runner shared by its implementations.
package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidation indicates a caller-supplied value that was rejected
	// before any mutation (empty note text, non-future reminder time).
	// State is unchanged when this error is returned.
	ErrValidation = errors.New("validation failed")
)
