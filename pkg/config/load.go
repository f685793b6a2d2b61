package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TABULA_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Fields absent from the file keep their defaults. The result is validated.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides (TABULA_SECTION_FIELD). Environment
// variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv builds configuration from defaults and the environment only.
func LoadFromEnv() (*Config, error) {
	return LoadConfigWithEnvOverrides("")
}

// envReader collects malformed values so a typo in a number or duration
// fails loading instead of being silently ignored.
type envReader struct {
	getenv func(string) string
	errs   []FieldError
}

func (r *envReader) str(key string, dst *string) {
	if val := r.getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func (r *envReader) list(key string, dst *[]string) {
	if val := r.getenv(EnvPrefix + key); val != "" {
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}
}

func (r *envReader) boolean(key string, dst *bool) {
	if val := r.getenv(EnvPrefix + key); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			r.fail(key, val, "boolean")
			return
		}
		*dst = b
	}
}

func (r *envReader) integer(key string, dst *int) {
	if val := r.getenv(EnvPrefix + key); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			r.fail(key, val, "integer")
			return
		}
		*dst = i
	}
}

func (r *envReader) integer64(key string, dst *int64) {
	if val := r.getenv(EnvPrefix + key); val != "" {
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			r.fail(key, val, "integer")
			return
		}
		*dst = i
	}
}

func (r *envReader) float(key string, dst *float64) {
	if val := r.getenv(EnvPrefix + key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			r.fail(key, val, "number")
			return
		}
		*dst = f
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if val := r.getenv(EnvPrefix + key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			r.fail(key, val, "duration")
			return
		}
		*dst = d
	}
}

func (r *envReader) fail(key, val, kind string) {
	r.errs = append(r.errs, FieldError{
		Field:   EnvPrefix + key,
		Message: fmt.Sprintf("invalid %s %q", kind, val),
	})
}

// applyEnvOverrides applies TABULA_SECTION_FIELD overrides.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	r := &envReader{getenv: getenv}

	// Server overrides
	r.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	r.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	r.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	r.duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	r.duration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	r.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	r.integer("SERVER_MAX_BATCH_SIZE", &cfg.Server.MaxBatchSize)
	r.integer64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	// Engine overrides
	r.integer("ENGINE_WORKERS", &cfg.Engine.Workers)
	r.integer("ENGINE_PARALLEL_THRESHOLD", &cfg.Engine.ParallelThreshold)
	r.str("ENGINE_MISSING_INPUT", &cfg.Engine.MissingInput)

	// Tables overrides
	r.str("TABLES_DIRECTORY", &cfg.Tables.Directory)
	r.list("TABLES_EXTENSIONS", &cfg.Tables.Extensions)
	r.integer64("TABLES_MAX_FILE_SIZE", &cfg.Tables.MaxFileSize)
	r.boolean("TABLES_WATCH", &cfg.Tables.Watch)
	r.duration("TABLES_DEBOUNCE", &cfg.Tables.Debounce)
	r.boolean("TABLES_GIT_ENABLED", &cfg.Tables.Git.Enabled)
	r.str("TABLES_GIT_REPOSITORY", &cfg.Tables.Git.Repository)
	r.str("TABLES_GIT_BRANCH", &cfg.Tables.Git.Branch)
	r.str("TABLES_GIT_SUBDIRECTORY", &cfg.Tables.Git.Subdirectory)
	r.str("TABLES_GIT_LOCAL_PATH", &cfg.Tables.Git.LocalPath)
	r.str("TABLES_GIT_POLL_SCHEDULE", &cfg.Tables.Git.PollSchedule)
	r.duration("TABLES_GIT_TIMEOUT", &cfg.Tables.Git.Timeout)
	r.integer("TABLES_GIT_DEPTH", &cfg.Tables.Git.Depth)
	r.str("TABLES_GIT_TOKEN", &cfg.Tables.Git.Token)
	r.str("TABLES_GIT_USERNAME", &cfg.Tables.Git.Username)

	// Evidence overrides
	r.boolean("EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	r.str("EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	r.str("EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	r.str("EVIDENCE_SQLITE_DRIVER", &cfg.Evidence.SQLite.Driver)
	r.duration("EVIDENCE_SQLITE_BUSY_TIMEOUT", &cfg.Evidence.SQLite.BusyTimeout)
	r.str("EVIDENCE_POSTGRES_DSN", &cfg.Evidence.Postgres.DSN)
	r.integer("EVIDENCE_POSTGRES_MAX_OPEN_CONNS", &cfg.Evidence.Postgres.MaxOpenConns)
	r.integer("EVIDENCE_POSTGRES_MAX_IDLE_CONNS", &cfg.Evidence.Postgres.MaxIdleConns)
	r.integer("EVIDENCE_BUFFER_SIZE", &cfg.Evidence.BufferSize)
	r.duration("EVIDENCE_WRITE_TIMEOUT", &cfg.Evidence.WriteTimeout)
	r.integer("EVIDENCE_RETENTION_DAYS", &cfg.Evidence.Retention.Days)
	r.str("EVIDENCE_RETENTION_SCHEDULE", &cfg.Evidence.Retention.Schedule)
	r.integer64("EVIDENCE_RETENTION_MAX_RECORDS", &cfg.Evidence.Retention.MaxRecords)
	r.boolean("EVIDENCE_RETENTION_ARCHIVE_BEFORE_DELETE", &cfg.Evidence.Retention.ArchiveBeforeDelete)
	r.str("EVIDENCE_RETENTION_ARCHIVE_PATH", &cfg.Evidence.Retention.ArchivePath)

	// Telemetry overrides
	r.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	r.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	r.boolean("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	r.boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	r.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	r.str("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	r.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	r.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	r.boolean("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	r.str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	r.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	r.str("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)

	if len(r.errs) > 0 {
		return ValidationError{Errors: r.errs}
	}
	return nil
}
