package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals malformed input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreFailure signals a persistence or query failure in any backing store.
	ErrStoreFailure = errors.New("store failure")
	// ErrRunInProgress signals that a scheduler run is already executing.
	ErrRunInProgress = errors.New("run already in progress")
	// ErrSearchUnavailable signals that the document search index is missing.
	ErrSearchUnavailable = errors.New("document search unavailable")
)

// NotFoundError wraps ErrNotFound with the kind and id of the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, ErrNotFound.Error())
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a not-found error for the given entity kind and id.
func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// StoreError wraps a backend error as ErrStoreFailure, keeping the cause reachable.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}
