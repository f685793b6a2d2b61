package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecords indicates an evaluation request without records.
	ErrNoRecords = errors.New("no records to evaluate")

	// ErrBatchTooLarge indicates more records than the configured maximum.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrMissingTable indicates a request that names no table.
	ErrMissingTable = errors.New("table name is required")
)

// CompileError wraps a failure to compile an inline schema.
type CompileError struct {
	Table string
	Err   error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("compile inline table: %v", e.Err)
	}
	return fmt.Sprintf("compile inline table %q: %v", e.Table, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}
