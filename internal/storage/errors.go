package storage

import "errors"

// Storage errors. Runs and series are append-only.
var (
	// ErrNotFound is returned when a requested run or series does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a run or series ID is already stored.
	// IDs are derived from the inputs, so a duplicate is a repeated computation.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when a record is nil or has no ID.
	ErrInvalidInput = errors.New("invalid input")
)
