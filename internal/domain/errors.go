package domain

import "errors"

var (
	// ErrValidation marks input that fails domain validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks lookups for entities that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks state transitions rejected by the current state.
	ErrConflict = errors.New("conflict")
)
