package models

import "errors"

var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing batch, record or entry.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a stale optimistic-lock version or a batch that is
	// already locked by another operation.
	ErrConflict = errors.New("conflict")
)
