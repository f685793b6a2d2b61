package storage

import (
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/tabula/pkg/evidence"
)

// Config selects and configures a storage backend.
type Config struct {
	// Backend is "memory", "sqlite" or "postgres".
	Backend string

	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string

	// Driver is "sqlite" (pure Go, default) or "sqlite3" (cgo).
	Driver string

	BusyTimeout time.Duration
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Open creates the backend named by config.Backend.
func Open(config Config, logger *slog.Logger) (evidence.Storage, error) {
	switch config.Backend {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "sqlite":
		driver := config.SQLite.Driver
		if driver == "" {
			driver = "sqlite"
		}
		if driver != "sqlite" && driver != "sqlite3" {
			return nil, evidence.NewStorageError(driver, "open",
				fmt.Errorf("%w: sqlite driver %q", evidence.ErrUnknownBackend, driver))
		}
		return NewSQLStorage(&SQLConfig{
			Driver:      driver,
			DSN:         config.SQLite.Path,
			WALMode:     true,
			BusyTimeout: config.SQLite.BusyTimeout,
		}, logger)
	case "postgres":
		return NewSQLStorage(&SQLConfig{
			Driver:       "postgres",
			DSN:          config.Postgres.DSN,
			MaxOpenConns: config.Postgres.MaxOpenConns,
			MaxIdleConns: config.Postgres.MaxIdleConns,
		}, logger)
	default:
		return nil, evidence.NewStorageError(config.Backend, "open",
			fmt.Errorf("%w: %q", evidence.ErrUnknownBackend, config.Backend))
	}
}
