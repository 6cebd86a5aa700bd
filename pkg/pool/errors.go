package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when acquiring from a closed pool.
	ErrClosed = errors.New("pool is closed")

	// ErrExhausted is returned when MaxActive instances are already borrowed.
	ErrExhausted = errors.New("pool exhausted")

	// ErrNotBorrowed is returned when releasing an instance the pool did not
	// hand out, or one that was already released.
	ErrNotBorrowed = errors.New("instance is not borrowed from this pool")

	// ErrWrongType is returned by ReleaseAny for a value of the wrong type.
	ErrWrongType = errors.New("instance has the wrong type for this pool")

	// ErrPoolNotFound is returned by Manager lookups for an unknown name.
	ErrPoolNotFound = errors.New("pool not found")
)

// ReleaseError reports a failed Release.
type ReleaseError struct {
	Pool  string // Pool name
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *ReleaseError) Error() string {
	return fmt.Sprintf("release error [pool=%s]: %v", e.Pool, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ReleaseError) Unwrap() error {
	return e.Cause
}

// NewReleaseError creates a new ReleaseError.
func NewReleaseError(pool string, cause error) *ReleaseError {
	return &ReleaseError{
		Pool:  pool,
		Cause: cause,
	}
}
