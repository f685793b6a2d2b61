package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"           // PostgreSQL driver ("postgres")
	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver ("sqlite3")
	_ "modernc.org/sqlite"          // pure Go SQLite driver ("sqlite")

	"mercator-hq/tabula/pkg/evidence"
	"mercator-hq/tabula/pkg/evidence/query"
)

// SQLConfig contains configuration for the SQL storage backend.
type SQLConfig struct {
	// Driver selects the database driver: "sqlite" (pure Go), "sqlite3"
	// (cgo) or "postgres".
	// Default: sqlite
	Driver string

	// DSN is the data source name. For the SQLite drivers this is the
	// database file path.
	DSN string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10 (1 for SQLite)
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5 (1 for SQLite)
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging on SQLite.
	// Default: true
	WALMode bool

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLConfig returns the default SQL configuration.
func DefaultSQLConfig() *SQLConfig {
	return &SQLConfig{
		Driver:       "sqlite",
		DSN:          "data/evidence.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLStorage implements evidence.Storage on database/sql.
type SQLStorage struct {
	db      *sql.DB
	config  *SQLConfig
	dialect dialect
	insert  string
	logger  *slog.Logger
}

// NewSQLStorage opens the database and creates the schema if needed.
func NewSQLStorage(config *SQLConfig, logger *slog.Logger) (*SQLStorage, error) {
	if config == nil {
		config = DefaultSQLConfig()
	}
	if config.Driver == "" {
		config.Driver = "sqlite"
	}
	d, ok := dialects[config.Driver]
	if !ok {
		return nil, evidence.NewStorageError(config.Driver, "open",
			fmt.Errorf("%w: driver %q", evidence.ErrUnknownBackend, config.Driver))
	}
	if config.DSN == "" {
		return nil, evidence.NewStorageError(config.Driver, "open", errors.New("dsn is required"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "evidence.storage", "driver", config.Driver)

	db, err := sql.Open(d.driver, config.DSN)
	if err != nil {
		return nil, evidence.NewStorageError(config.Driver, "open", err)
	}

	if d.numbered {
		db.SetMaxOpenConns(orDefault(config.MaxOpenConns, 10))
		db.SetMaxIdleConns(orDefault(config.MaxIdleConns, 5))
	} else {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		busy := config.BusyTimeout
		if busy <= 0 {
			busy = 5 * time.Second
		}
		d.pragmas = append(d.pragmas, fmt.Sprintf("PRAGMA busy_timeout=%d", busy.Milliseconds()))
		if config.WALMode {
			d.pragmas = append(d.pragmas, "PRAGMA journal_mode=WAL")
		}
	}

	s := &SQLStorage{
		db:      db,
		config:  config,
		dialect: d,
		insert:  d.rebind("INSERT INTO evidence (" + columns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		logger:  logger,
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQL evidence storage initialized",
		"dsn", redactDSN(config.DSN),
		"wal_mode", config.WALMode && !d.numbered,
	)
	return s, nil
}

func (s *SQLStorage) initialize() error {
	for _, p := range s.dialect.pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return evidence.NewStorageError(s.config.Driver, "pragma", err)
		}
	}
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.Exec(stmt); err != nil {
			return evidence.NewStorageError(s.config.Driver, "create_schema", err)
		}
	}
	if _, err := s.db.Exec(s.dialect.insertSchemaVersion(), SchemaVersion, time.Now().UnixNano()); err != nil {
		return evidence.NewStorageError(s.config.Driver, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return evidence.NewStorageError(s.config.Driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError(s.config.Driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	s.logger.Debug("Schema version verified", "version", version)
	return nil
}

// Store persists an evidence record.
func (s *SQLStorage) Store(ctx context.Context, record *evidence.Record) error {
	fired, err := json.Marshal(record.Fired)
	if err != nil {
		return evidence.NewStorageError(s.config.Driver, "store", err)
	}
	var output any
	if len(record.Output) > 0 {
		output = string(record.Output)
	}

	_, err = s.db.ExecContext(ctx, s.insert,
		record.ID, record.BatchID, nullString(record.RequestID), nullString(record.Source),
		record.Table, nullString(record.TableVersion), record.HitPolicy,
		record.RecordIndex, nullString(record.InputHash), string(fired), record.Outcome, output,
		record.EvaluatedAt.UnixNano(), int64(record.Duration), record.RecordedAt.UnixNano(),
	)
	if err != nil {
		return evidence.NewStorageError(s.config.Driver, "store", err)
	}
	return nil
}

// Query retrieves evidence records matching the query filters.
func (s *SQLStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error) {
	stmt, args, err := s.selectStatement(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, evidence.NewStorageError(s.config.Driver, "query", err)
	}
	defer rows.Close()

	records := []*evidence.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, evidence.NewStorageError(s.config.Driver, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError(s.config.Driver, "query", err)
	}
	return records, nil
}

// QueryStream streams matching records over a channel.
func (s *SQLStorage) QueryStream(ctx context.Context, q *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	stmt, args, err := s.selectStatement(q)
	if err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, stmt, args...)
		if err != nil {
			errCh <- evidence.NewStorageError(s.config.Driver, "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				errCh <- evidence.NewStorageError(s.config.Driver, "scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError(s.config.Driver, "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	where, args := buildWhere(q)
	stmt := "SELECT COUNT(*) FROM evidence" + where

	var count int64
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(stmt), args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError(s.config.Driver, "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	where, args := buildWhere(q)
	stmt := "DELETE FROM evidence" + where

	result, err := s.db.ExecContext(ctx, s.dialect.rebind(stmt), args...)
	if err != nil {
		return 0, evidence.NewStorageError(s.config.Driver, "delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError(s.config.Driver, "delete", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError(s.config.Driver, "close", err)
	}
	s.logger.Info("SQL evidence storage closed")
	return nil
}

func (s *SQLStorage) selectStatement(q *evidence.Query) (string, []any, error) {
	qc := *q
	if err := query.Validate(&qc); err != nil {
		return "", nil, err
	}
	query.ApplyDefaults(&qc)

	where, args := buildWhere(&qc)
	stmt := fmt.Sprintf("SELECT %s FROM evidence%s ORDER BY %s %s, id LIMIT %d",
		columns, where, query.SortColumns[qc.SortBy], strings.ToUpper(qc.SortOrder), qc.Limit)
	if qc.Offset > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", qc.Offset)
	}
	return s.dialect.rebind(stmt), args, nil
}

// buildWhere returns the WHERE clause (with leading space) and its arguments.
func buildWhere(q *evidence.Query) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if q.StartTime != nil {
		add("evaluated_at >= ?", q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		add("evaluated_at <= ?", q.EndTime.UnixNano())
	}
	if q.Table != "" {
		add("table_name = ?", q.Table)
	}
	if q.TableVersion != "" {
		add("table_version = ?", q.TableVersion)
	}
	if q.BatchID != "" {
		add("batch_id = ?", q.BatchID)
	}
	if q.RequestID != "" {
		add("request_id = ?", q.RequestID)
	}
	if q.Source != "" {
		add("source = ?", q.Source)
	}
	if q.Outcome != "" {
		add("outcome = ?", q.Outcome)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*evidence.Record, error) {
	var (
		r                                 evidence.Record
		requestID, source, version, hash  sql.NullString
		fired, output                     sql.NullString
		evaluatedAt, duration, recordedAt sql.NullInt64
	)
	err := rows.Scan(
		&r.ID, &r.BatchID, &requestID, &source,
		&r.Table, &version, &r.HitPolicy,
		&r.RecordIndex, &hash, &fired, &r.Outcome, &output,
		&evaluatedAt, &duration, &recordedAt,
	)
	if err != nil {
		return nil, err
	}

	r.RequestID = requestID.String
	r.Source = source.String
	r.TableVersion = version.String
	r.InputHash = hash.String
	if fired.Valid && fired.String != "" {
		if err := json.Unmarshal([]byte(fired.String), &r.Fired); err != nil {
			return nil, fmt.Errorf("decode fired rules of %s: %w", r.ID, err)
		}
	}
	if output.Valid {
		r.Output = json.RawMessage(output.String)
	}
	r.EvaluatedAt = time.Unix(0, evaluatedAt.Int64)
	r.Duration = time.Duration(duration.Int64)
	r.RecordedAt = time.Unix(0, recordedAt.Int64)
	return &r, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// redactDSN hides a password in URL-style DSNs.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		return dsn[:scheme+3] + userinfo[:colon] + ":****" + dsn[at:]
	}
	return dsn
}
