package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultRequestTimeout  = 15 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBatchSize    = 10000
	DefaultMaxBodyBytes    = int64(10 << 20)

	// Engine defaults
	DefaultParallelThreshold = 1 << 16
	DefaultMissingInput      = "zero"

	// Tables defaults
	DefaultTablesDirectory   = "./tables"
	DefaultTablesMaxFileSize = int64(10 << 20)
	DefaultTablesDebounce    = 250 * time.Millisecond
	DefaultGitBranch         = "main"
	DefaultGitLocalPath      = "data/tables-repo"
	DefaultGitPollSchedule   = "@every 1m"
	DefaultGitTimeout        = 60 * time.Second
	DefaultGitUsername       = "git"

	// Evidence defaults
	DefaultEvidenceEnabled           = false
	DefaultEvidenceBackend           = "sqlite"
	DefaultEvidenceSQLitePath        = "data/evidence.db"
	DefaultEvidenceSQLiteDriver      = "sqlite"
	DefaultEvidenceSQLiteBusyTimeout = 5 * time.Second
	DefaultPostgresMaxOpenConns      = 10
	DefaultPostgresMaxIdleConns      = 5
	DefaultEvidenceBufferSize        = 1000
	DefaultEvidenceWriteTimeout      = 5 * time.Second
	DefaultRetentionDays             = 90
	DefaultRetentionSchedule         = "0 3 * * *"
	DefaultRetentionArchivePath      = "data/archives/"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "tabula"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "tabula"
)

// DefaultExtensions are the table file extensions loaded by default.
var DefaultExtensions = []string{".yaml", ".yml", ".json"}

// NewDefaultConfig returns a configuration with every default applied,
// including boolean defaults and retention days, where zero is meaningful.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Evidence.Enabled = DefaultEvidenceEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Evidence.Retention.Days = DefaultRetentionDays
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean
// fields are left alone; zero is indistinguishable from an explicit false.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyEngineDefaults(&cfg.Engine)
	applyTablesDefaults(&cfg.Tables)
	applyEvidenceDefaults(&cfg.Evidence)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxBatchSize == 0 {
		s.MaxBatchSize = DefaultMaxBatchSize
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

func applyEngineDefaults(e *EngineConfig) {
	// Workers stays 0 here and resolves to GOMAXPROCS in EvaluatorConfig().
	if e.ParallelThreshold == 0 {
		e.ParallelThreshold = DefaultParallelThreshold
	}
	if e.MissingInput == "" {
		e.MissingInput = DefaultMissingInput
	}
}

func applyTablesDefaults(t *TablesConfig) {
	if t.Directory == "" {
		t.Directory = DefaultTablesDirectory
	}
	if len(t.Extensions) == 0 {
		t.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if t.MaxFileSize == 0 {
		t.MaxFileSize = DefaultTablesMaxFileSize
	}
	if t.Debounce == 0 {
		t.Debounce = DefaultTablesDebounce
	}

	g := &t.Git
	if g.Branch == "" {
		g.Branch = DefaultGitBranch
	}
	if g.LocalPath == "" {
		g.LocalPath = DefaultGitLocalPath
	}
	if g.PollSchedule == "" {
		g.PollSchedule = DefaultGitPollSchedule
	}
	if g.Timeout == 0 {
		g.Timeout = DefaultGitTimeout
	}
	if g.Username == "" {
		g.Username = DefaultGitUsername
	}
}

func applyEvidenceDefaults(e *EvidenceConfig) {
	if e.Backend == "" {
		e.Backend = DefaultEvidenceBackend
	}
	if e.SQLite.Path == "" {
		e.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if e.SQLite.Driver == "" {
		e.SQLite.Driver = DefaultEvidenceSQLiteDriver
	}
	if e.SQLite.BusyTimeout == 0 {
		e.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if e.Postgres.MaxOpenConns == 0 {
		e.Postgres.MaxOpenConns = DefaultPostgresMaxOpenConns
	}
	if e.Postgres.MaxIdleConns == 0 {
		e.Postgres.MaxIdleConns = DefaultPostgresMaxIdleConns
	}
	if e.BufferSize == 0 {
		e.BufferSize = DefaultEvidenceBufferSize
	}
	if e.WriteTimeout == 0 {
		e.WriteTimeout = DefaultEvidenceWriteTimeout
	}
	if e.Retention.Schedule == "" {
		e.Retention.Schedule = DefaultRetentionSchedule
	}
	if e.Retention.ArchivePath == "" {
		e.Retention.ArchivePath = DefaultRetentionArchivePath
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
}
