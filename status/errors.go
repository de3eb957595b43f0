package status

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record exists for an identity.
	ErrNotFound = errors.New("status not found")

	// ErrAlreadyPaused is returned by Pause when the record is already paused.
	// The record is left untouched.
	ErrAlreadyPaused = errors.New("already paused")

	// ErrNothingToResume is returned by Resume when the record is absent or
	// running. It matches ErrNotFound with errors.Is.
	ErrNothingToResume = fmt.Errorf("nothing to resume: %w", ErrNotFound)

	// ErrInvalidActivity is returned by Start when the activity label is empty.
	ErrInvalidActivity = errors.New("activity label must be non-empty")
)
