// Package storage persists the dead-link report and the checked-users
// ledger between runs.
package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the report file does not exist yet, i.e.
	// nothing has been audited.
	ErrNotFound = errors.New("storage: not found")
	// ErrCorrupt indicates persisted state that fails its own integrity
	// checks, e.g. a report block whose declared dead-link count
	// disagrees with its entry lines.
	ErrCorrupt = errors.New("storage: data corruption detected")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details.
type StorageError struct {
	// Op is the operation that failed ("append", "resort", "export", ...).
	Op string
	// Entity is the entity type ("report", "ledger", "block").
	Entity string
	// ID identifies the entity if applicable (e.g. the block's author).
	ID string
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }
