package engine

import (
	"errors"
	"fmt"

	"mercator-hq/tabula/pkg/decision/schema"
)

var (
	// ErrUnsupportedHitPolicy indicates a hit policy other than UNIQUE, FIRST or COLLECT.
	ErrUnsupportedHitPolicy = schema.ErrUnsupportedHitPolicy

	// ErrNilTable indicates a nil compiled table or schema was passed in.
	ErrNilTable = errors.New("nil decision table")

	// ErrTableReleased indicates a compiled table was used after Release.
	ErrTableReleased = errors.New("decision table already released")

	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")
)

// EvaluationError reports a structural failure of a compile or evaluate call.
// Data problems never produce one; they degrade to unknown values instead.
type EvaluationError struct {
	Table string
	Op    string
	Err   error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s table %q: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Err
}
