package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNumber indicates a numeric literal that does not parse to a finite float.
	ErrInvalidNumber = errors.New("invalid number")

	// ErrInvalidBoolean indicates a boolean literal other than true or false.
	ErrInvalidBoolean = errors.New("invalid boolean")

	// ErrInvalidDate indicates a date or datetime literal in no accepted layout.
	ErrInvalidDate = errors.New("invalid date")
)

// LiteralError describes a literal the codec could not parse for its column type.
type LiteralError struct {
	Text    string
	TypeRef TypeRef
	Err     error
}

// Error returns the error message.
func (e *LiteralError) Error() string {
	return fmt.Sprintf("literal %q (%s): %v", e.Text, e.TypeRef, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LiteralError) Unwrap() error {
	return e.Err
}
