package evidence

import (
	"context"
	"io"
	"time"

	"github.com/goccy/go-json"
)

// Record is the audit entry for one evaluated input record.
type Record struct {
	// Identity
	ID        string `json:"id"`         // UUID v4
	BatchID   string `json:"batch_id"`   // Shared by every record of one Evaluate call
	RequestID string `json:"request_id"` // From the transport, if any
	Source    string `json:"source"`     // "http", "lambda", "cli"

	// Table
	Table        string `json:"table"`
	TableVersion string `json:"table_version"`
	HitPolicy    string `json:"hit_policy"`

	// Evaluation
	RecordIndex int             `json:"record_index"` // Position in the batch
	InputHash   string          `json:"input_hash"`   // SHA-256 of the canonical JSON input
	Fired       []int           `json:"fired"`        // Fired rule indices, ascending
	Outcome     string          `json:"outcome"`      // "matched", "no_match", "ambiguous"
	Output      json.RawMessage `json:"output"`       // Selected row, row list, or null

	// Timing
	EvaluatedAt time.Time     `json:"evaluated_at"`
	Duration    time.Duration `json:"duration"` // Whole-batch evaluation time
	RecordedAt  time.Time     `json:"recorded_at"`
}

// Query defines filter parameters for querying evidence records.
type Query struct {
	// Time range on EvaluatedAt, both inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Filters
	Table        string `json:"table,omitempty"`
	TableVersion string `json:"table_version,omitempty"`
	BatchID      string `json:"batch_id,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	Source       string `json:"source,omitempty"`
	Outcome      string `json:"outcome,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "evaluated_at", "recorded_at", "table", "duration"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Storage defines the interface for evidence storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists an evidence record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves evidence records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream streams matching records. Both channels are closed when
	// the query completes; errCh carries at most one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns the
	// number deleted. Pagination and sorting are ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}

// Exporter writes evidence records in some output format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
