package repositories

import "github.com/pkg/errors"

// Common repository errors
var (
	ErrNotFound    = errors.New("record not found")
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceError reports a rolled back write together with its cause
type PersistenceError struct {
	Op    string
	Cause error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Cause.Error()
}

// Unwrap exposes the underlying driver error
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
