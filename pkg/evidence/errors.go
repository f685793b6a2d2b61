package evidence

import (
	"errors"
	"fmt"
)

var (
	// ErrRecorderClosed is reported for batches that arrive after Close.
	ErrRecorderClosed = errors.New("recorder closed")

	// ErrBufferFull is reported when the recorder buffer stayed full for the
	// whole enqueue timeout.
	ErrBufferFull = errors.New("evidence buffer full")

	// ErrUnknownBackend is returned by storage.Open for an unsupported
	// backend or SQLite driver name.
	ErrUnknownBackend = errors.New("unknown evidence backend")
)

// StorageError wraps a backend failure with the backend and operation.
type StorageError struct {
	Backend   string // "memory", "sqlite", "sqlite3" or "postgres"
	Operation string // "open", "store", "query", "count", "delete"
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("evidence %s %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// QueryError reports a query rejected by validation or by the backend.
type QueryError struct {
	Query *Query
	Cause error
}

func (e *QueryError) Error() string { return fmt.Sprintf("evidence query: %v", e.Cause) }

func (e *QueryError) Unwrap() error { return e.Cause }

// NewQueryError creates a QueryError.
func NewQueryError(q *Query, cause error) *QueryError {
	return &QueryError{Query: q, Cause: cause}
}

// RecorderError reports evidence records of one batch that were dropped
// instead of stored. The evaluation itself has already succeeded.
type RecorderError struct {
	BatchID string
	Dropped int
	Cause   error
}

func (e *RecorderError) Error() string {
	if e.BatchID == "" {
		return fmt.Sprintf("evidence dropped %d record(s): %v", e.Dropped, e.Cause)
	}
	return fmt.Sprintf("evidence dropped %d record(s) of batch %s: %v", e.Dropped, e.BatchID, e.Cause)
}

func (e *RecorderError) Unwrap() error { return e.Cause }

// NewRecorderError creates a RecorderError.
func NewRecorderError(batchID string, dropped int, cause error) *RecorderError {
	return &RecorderError{BatchID: batchID, Dropped: dropped, Cause: cause}
}

// RetentionError reports a failed pruning phase ("age" or "count").
type RetentionError struct {
	RetentionDays int
	Phase         string
	Cause         error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("evidence retention (%s, %d days): %v", e.Phase, e.RetentionDays, e.Cause)
}

func (e *RetentionError) Unwrap() error { return e.Cause }

// NewRetentionError creates a RetentionError.
func NewRetentionError(retentionDays int, phase string, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Phase: phase, Cause: cause}
}

// ExportError reports a failed export after Written records were emitted.
type ExportError struct {
	Format  string // "json" or "csv"
	Written int
	Cause   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("evidence %s export after %d record(s): %v", e.Format, e.Written, e.Cause)
}

func (e *ExportError) Unwrap() error { return e.Cause }

// NewExportError creates an ExportError.
func NewExportError(format string, written int, cause error) *ExportError {
	return &ExportError{Format: format, Written: written, Cause: cause}
}
