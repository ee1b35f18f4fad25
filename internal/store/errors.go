package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a creature with the same name).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrCreatureNotFound indicates that the requested creature does not exist in the store.
	ErrCreatureNotFound = fmt.Errorf("%w: creature", ErrNotFound)

	// ErrTaskNotFound indicates that the requested import task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: import task", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrCreatureNameExists indicates that a creature with the given name already
	// exists. Name uniqueness is case-insensitive at the storage layer, so a
	// concurrent insert race on the same name surfaces as this error.
	ErrCreatureNameExists = fmt.Errorf("%w: creature name", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
