package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a run is not found.
	ErrNotFound = errors.New("run not found")

	// ErrMissingRunID is returned when a batch without a run ID is written.
	ErrMissingRunID = errors.New("batch has no run ID")
)
