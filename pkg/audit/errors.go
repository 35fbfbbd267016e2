package audit

import "fmt"

// StorageError wraps a failure in the persistence backend.
type StorageError struct {
	// Op is the operation that failed (open, store, query, delete).
	Op string

	// Cause is the underlying error.
	Cause error
}

// Error returns the error message.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError for the given operation.
func NewStorageError(op string, cause error) *StorageError {
	return &StorageError{Op: op, Cause: cause}
}
