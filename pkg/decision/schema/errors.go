package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedHitPolicy indicates a hit policy other than UNIQUE, FIRST or COLLECT.
	ErrUnsupportedHitPolicy = errors.New("unsupported hit policy")

	// ErrUnsupportedFormat indicates a schema file extension that is neither YAML nor JSON.
	ErrUnsupportedFormat = errors.New("unsupported schema format")
)

// LoadError wraps a failure to read or decode a schema file.
type LoadError struct {
	Path string
	Err  error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// ValidationError collects the error-severity issues of a table.
type ValidationError struct {
	Table  string
	Issues []Issue
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.String()
	}
	return fmt.Sprintf("table %q is invalid: %s", e.Table, strings.Join(msgs, "; "))
}
