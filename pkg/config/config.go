package config

import "time"

// Config is the root configuration structure for Tabula.
type Config struct {
	// Server contains the HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Engine contains batch evaluator settings.
	Engine EngineConfig `yaml:"engine"`

	// Tables describes where decision tables are loaded from.
	Tables TablesConfig `yaml:"tables"`

	// Evidence contains evidence recording, storage and retention settings.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Telemetry contains logging, metrics and tracing settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// RequestTimeout bounds handler execution (chi Timeout middleware).
	// Default: 15s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout is how long graceful shutdown waits for in-flight
	// requests.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBatchSize is the largest number of records accepted per request.
	// Default: 10000
	MaxBatchSize int `yaml:"max_batch_size"`

	// MaxBodyBytes limits request bodies.
	// Default: 10MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// EngineConfig contains batch evaluator settings.
type EngineConfig struct {
	// Workers is the maximum number of goroutines per evaluation.
	// Default: GOMAXPROCS (0 here)
	Workers int `yaml:"workers"`

	// ParallelThreshold is the number of cells below which evaluation
	// stays on the calling goroutine.
	// Default: 65536
	ParallelThreshold int `yaml:"parallel_threshold"`

	// MissingInput is "zero" or "unknown".
	// Default: "zero"
	MissingInput string `yaml:"missing_input"`
}

// TablesConfig describes the table source.
type TablesConfig struct {
	// Directory holds table files. Ignored when Git is enabled.
	// Default: "./tables"
	Directory string `yaml:"directory"`

	// Extensions lists schema file extensions to load.
	// Default: [".yaml", ".yml", ".json"]
	Extensions []string `yaml:"extensions"`

	// MaxFileSize is the largest table file accepted, in bytes.
	// Default: 10MB
	MaxFileSize int64 `yaml:"max_file_size"`

	// Watch reloads the directory on change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce collapses bursts of file events.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`

	// Git loads tables from a git repository instead of Directory.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures the git table source.
type GitConfig struct {
	// Enabled switches the table source to git.
	Enabled bool `yaml:"enabled"`

	// Repository is the clone URL or a local path.
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Subdirectory holding the table files.
	Subdirectory string `yaml:"subdirectory"`

	// LocalPath is the checkout location.
	// Default: "data/tables-repo"
	LocalPath string `yaml:"local_path"`

	// PollSchedule is a cron expression for pulling.
	// Default: "@every 1m"
	PollSchedule string `yaml:"poll_schedule"`

	// Timeout bounds each clone or pull.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// Depth limits clone history; 0 clones everything.
	Depth int `yaml:"depth"`

	// Token authenticates HTTPS remotes.
	Token string `yaml:"token"`

	// Username for token auth.
	// Default: "git"
	Username string `yaml:"username"`
}

// EvidenceConfig contains evidence settings.
type EvidenceConfig struct {
	// Enabled records one evidence record per evaluated input record.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend is "memory", "sqlite" or "postgres".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres configures the postgres backend.
	Postgres PostgresConfig `yaml:"postgres"`

	// BufferSize is the async recorder queue length.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// WriteTimeout bounds one storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Retention configures pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the sqlite evidence backend.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/evidence.db"
	Path string `yaml:"path"`

	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig configures the postgres evidence backend.
type PostgresConfig struct {
	// DSN is a lib/pq connection string or URL.
	DSN string `yaml:"dsn"`

	// MaxOpenConns limits open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// RetentionConfig configures evidence pruning.
type RetentionConfig struct {
	// Days to keep evidence; 0 keeps forever.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is a cron expression; empty disables scheduled pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// MaxRecords caps stored records; 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// ArchiveBeforeDelete exports pruned records to JSON first.
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the archive directory.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is json, text or console.
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled exposes metrics.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics route.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes metric names.
	// Default: "tabula"
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled exports spans.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector (host:port).
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Sampler is always, never or ratio.
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio for the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as service.name.
	// Default: "tabula"
	ServiceName string `yaml:"service_name"`
}
