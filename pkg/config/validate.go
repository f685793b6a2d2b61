package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Has reports whether field has an error.
func (e ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateTables(&cfg.Tables)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(s *ServerConfig) []FieldError {
	var errs []FieldError

	if s.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "must not be empty"})
	} else if _, _, err := net.SplitHostPort(s.ListenAddress); err != nil {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: fmt.Sprintf("must be host:port: %v", err)})
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if s.RequestTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "must not be negative"})
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must not be negative"})
	}
	if s.MaxBatchSize < 1 {
		errs = append(errs, FieldError{Field: "server.max_batch_size", Message: "must be at least 1"})
	}
	if s.MaxBodyBytes < 1 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must be at least 1"})
	}

	return errs
}

func validateEngine(e *EngineConfig) []FieldError {
	var errs []FieldError

	if e.Workers < 0 {
		errs = append(errs, FieldError{Field: "engine.workers", Message: "must not be negative"})
	}
	if e.ParallelThreshold < 0 {
		errs = append(errs, FieldError{Field: "engine.parallel_threshold", Message: "must not be negative"})
	}
	switch e.MissingInput {
	case "zero", "unknown":
	default:
		errs = append(errs, FieldError{Field: "engine.missing_input", Message: fmt.Sprintf("must be \"zero\" or \"unknown\", got %q", e.MissingInput)})
	}

	return errs
}

func validateTables(t *TablesConfig) []FieldError {
	var errs []FieldError

	for _, ext := range t.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, FieldError{Field: "tables.extensions", Message: fmt.Sprintf("extension %q must start with a dot", ext)})
		}
	}
	if t.MaxFileSize < 1 {
		errs = append(errs, FieldError{Field: "tables.max_file_size", Message: "must be at least 1"})
	}
	if t.Debounce < 0 {
		errs = append(errs, FieldError{Field: "tables.debounce", Message: "must not be negative"})
	}

	if t.Git.Enabled {
		if t.Git.Repository == "" {
			errs = append(errs, FieldError{Field: "tables.git.repository", Message: "is required when git is enabled"})
		}
		if t.Git.LocalPath == "" {
			errs = append(errs, FieldError{Field: "tables.git.local_path", Message: "is required when git is enabled"})
		}
		if _, err := cron.ParseStandard(t.Git.PollSchedule); err != nil {
			errs = append(errs, FieldError{Field: "tables.git.poll_schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
		if t.Git.Depth < 0 {
			errs = append(errs, FieldError{Field: "tables.git.depth", Message: "must not be negative"})
		}
	} else if t.Directory == "" {
		errs = append(errs, FieldError{Field: "tables.directory", Message: "must not be empty"})
	}

	return errs
}

func validateEvidence(e *EvidenceConfig) []FieldError {
	var errs []FieldError

	switch e.Backend {
	case "memory":
	case "sqlite":
		if e.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "evidence.sqlite.path", Message: "is required for the sqlite backend"})
		}
		if e.SQLite.Driver != "sqlite" && e.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{Field: "evidence.sqlite.driver", Message: fmt.Sprintf("must be \"sqlite\" or \"sqlite3\", got %q", e.SQLite.Driver)})
		}
	case "postgres":
		if e.Enabled && e.Postgres.DSN == "" {
			errs = append(errs, FieldError{Field: "evidence.postgres.dsn", Message: "is required for the postgres backend"})
		}
	default:
		errs = append(errs, FieldError{Field: "evidence.backend", Message: fmt.Sprintf("must be memory, sqlite or postgres, got %q", e.Backend)})
	}

	if e.BufferSize < 1 {
		errs = append(errs, FieldError{Field: "evidence.buffer_size", Message: "must be at least 1"})
	}
	if e.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.days", Message: "must not be negative"})
	}
	if e.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.max_records", Message: "must not be negative"})
	}
	if e.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(e.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{Field: "evidence.retention.schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	if e.Retention.ArchiveBeforeDelete && e.Retention.ArchivePath == "" {
		errs = append(errs, FieldError{Field: "evidence.retention.archive_path", Message: "is required when archive_before_delete is set"})
	}

	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(t.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.level", Message: fmt.Sprintf("must be debug, info, warn or error, got %q", t.Logging.Level)})
	}
	switch strings.ToLower(t.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.format", Message: fmt.Sprintf("must be json, text or console, got %q", t.Logging.Format)})
	}

	if t.Metrics.Enabled && !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}

	if t.Tracing.Enabled && t.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "is required when tracing is enabled"})
	}
	switch t.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{Field: "telemetry.tracing.sampler", Message: fmt.Sprintf("must be always, never or ratio, got %q", t.Tracing.Sampler)})
	}
	if t.Tracing.SampleRatio < 0 || t.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
	}

	return errs
}
