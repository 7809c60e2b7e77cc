package database

import "fmt"

// StorageError wraps any persistence failure from the queue or entry store.
// The orchestrator treats these as fatal: it cannot make progress, or even
// record that it cannot make progress, without the database.
type StorageError struct {
	// Op is the store operation that failed (e.g. "enqueue", "upsert entry").
	Op string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr is a small constructor to keep call sites terse.
func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
