package store

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotFound is returned when a book does not exist.
	ErrNotFound = errors.New("book not found")

	// ErrNoEmbedding is returned when a book exists but has no embedding,
	// or does not exist at all. Callers treat it as "no embedding available"
	// rather than a fatal condition.
	ErrNoEmbedding = errors.New("no embedding available")

	// ErrStoreClosed is returned when using a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrInvalidRating is returned when a rating is outside the 1-5 range.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// StoreError wraps errors with operation context.
type StoreError struct {
	Op  string // Operation name
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("bookstore: %v", e.Err)
	}
	return fmt.Sprintf("bookstore: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with operation context.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
