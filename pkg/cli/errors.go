package cli

import (
	"errors"
	"fmt"
)

// Process exit codes returned by the tabula command.
const (
	ExitOK         = 0
	ExitCommand    = 1
	ExitConfig     = 2
	ExitValidation = 3
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// ExitCode implements ExitCoder.
func (e *ConfigError) ExitCode() int { return ExitConfig }

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode implements ExitCoder.
func (e *CommandError) ExitCode() int { return ExitCommand }

// ValidationError reports that one or more decision tables failed lint.
type ValidationError struct {
	Files    int
	Errors   int
	Warnings int
	Strict   bool
}

func (e *ValidationError) Error() string {
	if e.Strict && e.Errors == 0 {
		return fmt.Sprintf("validation failed: %d warning(s) in %d file(s) (strict mode)", e.Warnings, e.Files)
	}
	return fmt.Sprintf("validation failed: %d error(s), %d warning(s) in %d file(s)", e.Errors, e.Warnings, e.Files)
}

// ExitCode implements ExitCoder.
func (e *ValidationError) ExitCode() int { return ExitValidation }

// ExitCoder is implemented by errors that carry a process exit code.
type ExitCoder interface {
	ExitCode() int
}

// ExitCode maps err to a process exit code. A nil error is ExitOK and
// errors without a code are ExitCommand.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return ExitCommand
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}
