package store

import "errors"

var (
	// ErrStoreUnavailable wraps failures of the underlying storage medium.
	// Callers on the begin path must treat it as fatal to the operation.
	ErrStoreUnavailable = errors.New("run store unavailable")

	// ErrNotFound is returned when the referenced run id does not exist.
	ErrNotFound = errors.New("job run not found")

	// ErrAlreadyTerminal is returned when completing a run that has already
	// reached a terminal status. The record is left unchanged.
	ErrAlreadyTerminal = errors.New("job run already terminal")
)
