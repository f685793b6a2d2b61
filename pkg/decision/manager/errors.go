package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound indicates no table is registered under the requested name.
	ErrTableNotFound = errors.New("table not found")

	// ErrRegistryClosed indicates the registry has been closed.
	ErrRegistryClosed = errors.New("registry closed")
)

// LoadError describes a schema file that could not be loaded or compiled.
type LoadError struct {
	// FilePath is the path to the file that failed to load
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load table file %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load table file %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// RegistryError describes a failed registry operation.
type RegistryError struct {
	Table     string
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("registry %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("registry %s %q: %v", e.Operation, e.Table, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *RegistryError) Unwrap() error {
	return e.Err
}

// LoadErrors collects per-file failures of a directory load.
type LoadErrors []error

// Error implements the error interface.
func (e LoadErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d table files failed to load; first: %v", len(e), e[0])
}

// Unwrap returns the individual errors.
func (e LoadErrors) Unwrap() []error {
	return e
}
