package config

import (
	"io"
	"time"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/evidence/recorder"
	"mercator-hq/tabula/pkg/evidence/retention"
	"mercator-hq/tabula/pkg/evidence/storage"
	"mercator-hq/tabula/pkg/telemetry/logging"
	"mercator-hq/tabula/pkg/telemetry/metrics"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

// EvaluatorConfig returns the evaluator configuration.
func (e EngineConfig) EvaluatorConfig() *engine.EngineConfig {
	cfg := engine.DefaultEngineConfig().
		WithParallelThreshold(e.ParallelThreshold).
		WithMissingInput(engine.MissingInputMode(e.MissingInput))
	if e.Workers > 0 {
		cfg = cfg.WithWorkers(e.Workers)
	}
	return cfg
}

// LoaderConfig returns the table loader configuration.
func (t TablesConfig) LoaderConfig() *manager.LoaderConfig {
	cfg := manager.DefaultLoaderConfig()
	cfg.Extensions = append([]string(nil), t.Extensions...)
	cfg.MaxFileSize = t.MaxFileSize
	return cfg
}

// ManagerConfig returns the table manager configuration.
func (t TablesConfig) ManagerConfig() *manager.Config {
	cfg := &manager.Config{
		Directory: t.Directory,
		Loader:    t.LoaderConfig(),
		Watch:     t.Watch,
		Debounce:  t.Debounce,
	}
	if t.Git.Enabled {
		cfg.Git = &manager.GitConfig{
			Repository:   t.Git.Repository,
			Branch:       t.Git.Branch,
			Subdirectory: t.Git.Subdirectory,
			LocalPath:    t.Git.LocalPath,
			PollSchedule: t.Git.PollSchedule,
			Timeout:      t.Git.Timeout,
			Depth:        t.Git.Depth,
			Token:        t.Git.Token,
			Username:     t.Git.Username,
		}
	}
	return cfg
}

// StorageConfig returns the evidence storage configuration.
func (e EvidenceConfig) StorageConfig() storage.Config {
	return storage.Config{
		Backend: e.Backend,
		SQLite: storage.SQLiteConfig{
			Path:        e.SQLite.Path,
			Driver:      e.SQLite.Driver,
			BusyTimeout: e.SQLite.BusyTimeout,
		},
		Postgres: storage.PostgresConfig{
			DSN:          e.Postgres.DSN,
			MaxOpenConns: e.Postgres.MaxOpenConns,
			MaxIdleConns: e.Postgres.MaxIdleConns,
		},
	}
}

// RecorderConfig returns the evidence recorder configuration.
func (e EvidenceConfig) RecorderConfig() *recorder.Config {
	cfg := recorder.DefaultConfig()
	cfg.Enabled = e.Enabled
	cfg.AsyncBuffer = e.BufferSize
	cfg.WriteTimeout = e.WriteTimeout
	return cfg
}

// RetentionConfig returns the pruner configuration.
func (e EvidenceConfig) RetentionConfig() *retention.Config {
	return &retention.Config{
		RetentionDays:       e.Retention.Days,
		PruneSchedule:       e.Retention.Schedule,
		MaxRecords:          e.Retention.MaxRecords,
		ArchiveBeforeDelete: e.Retention.ArchiveBeforeDelete,
		ArchivePath:         e.Retention.ArchivePath,
	}
}

// LoggingConfig returns the logger configuration writing to w.
func (t TelemetryConfig) LoggingConfig(w io.Writer) logging.Config {
	return logging.Config{
		Level:     t.Logging.Level,
		Format:    t.Logging.Format,
		AddSource: t.Logging.AddSource,
		Writer:    w,
	}
}

// MetricsConfig returns the collector configuration.
func (t TelemetryConfig) MetricsConfig() *metrics.Config {
	return &metrics.Config{
		Enabled:   t.Metrics.Enabled,
		Namespace: t.Metrics.Namespace,
	}
}

// TracingConfig returns the tracer configuration.
func (t TelemetryConfig) TracingConfig(serviceVersion string) *tracing.Config {
	return &tracing.Config{
		Enabled:        t.Tracing.Enabled,
		Endpoint:       t.Tracing.Endpoint,
		Insecure:       t.Tracing.Insecure,
		Sampler:        t.Tracing.Sampler,
		SampleRatio:    t.Tracing.SampleRatio,
		ServiceName:    t.Tracing.ServiceName,
		ServiceVersion: serviceVersion,
		Timeout:        10 * time.Second,
	}
}
