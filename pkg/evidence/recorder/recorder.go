package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/schema"
	"mercator-hq/tabula/pkg/evidence"
)

// Config contains configuration for the evidence recorder.
type Config struct {
	// Enabled enables evidence recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// EnqueueTimeout is how long RecordBatch waits on a full buffer before
	// dropping the remaining records of the batch.
	// Default: 10ms
	EnqueueTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		EnqueueTimeout: 10 * time.Millisecond,
	}
}

// Status values reported to an Observer.
const (
	StatusStored  = "stored"
	StatusFailed  = "failed"
	StatusDropped = "dropped"
)

// Observer is notified of every record outcome.
type Observer interface {
	ObserveEvidence(status string, n int)
}

// Batch is one evaluation call to record.
type Batch struct {
	Table     string
	Version   string
	HitPolicy schema.HitPolicy

	// BatchID defaults to a new UUID.
	BatchID   string
	RequestID string
	Source    string

	Records []engine.Record
	Results []engine.Result

	// EvaluatedAt defaults to now.
	EvaluatedAt time.Time
	Duration    time.Duration
}

// Recorder writes evidence records to storage in the background so that
// evaluations never wait on the database.
type Recorder struct {
	storage    evidence.Storage
	config     *Config
	recordChan chan *evidence.Record
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger
	observer   Observer

	mu     sync.RWMutex
	closed bool
}

// NewRecorder creates a recorder and starts its writer goroutine.
func NewRecorder(storage evidence.Storage, config *Config, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.EnqueueTimeout <= 0 {
		config.EnqueueTimeout = 10 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *evidence.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     logger.With("component", "evidence.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("Evidence recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// SetObserver sets the outcome observer. Call it before recording.
func (r *Recorder) SetObserver(o Observer) {
	r.observer = o
}

// RecordBatch builds one evidence record per evaluated record and enqueues
// them. It returns as soon as the records are buffered. Records that do not
// fit are dropped and reported in a *evidence.RecorderError.
func (r *Recorder) RecordBatch(ctx context.Context, b Batch) error {
	if !r.config.Enabled {
		return nil
	}

	records := BuildRecords(b)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.observe(StatusDropped, len(records))
		return evidence.NewRecorderError(b.BatchID, len(records), evidence.ErrRecorderClosed)
	}

	timer := time.NewTimer(r.config.EnqueueTimeout)
	defer timer.Stop()

	for i, rec := range records {
		select {
		case r.recordChan <- rec:
			continue
		default:
		}

		select {
		case r.recordChan <- rec:
		case <-timer.C:
			dropped := len(records) - i
			r.logger.Error("Evidence buffer full, dropping records",
				"batch_id", rec.BatchID,
				"table", rec.Table,
				"dropped", dropped,
				"channel_capacity", r.config.AsyncBuffer,
			)
			r.observe(StatusDropped, dropped)
			return evidence.NewRecorderError(rec.BatchID, dropped, evidence.ErrBufferFull)
		case <-ctx.Done():
			dropped := len(records) - i
			r.observe(StatusDropped, dropped)
			return evidence.NewRecorderError(rec.BatchID, dropped, ctx.Err())
		}
	}

	r.logger.Debug("Evidence enqueued", "table", b.Table, "records", len(records))
	return nil
}

// BuildRecords converts a batch into evidence records without storing them.
func BuildRecords(b Batch) []*evidence.Record {
	if b.BatchID == "" {
		b.BatchID = uuid.NewString()
	}
	if b.EvaluatedAt.IsZero() {
		b.EvaluatedAt = time.Now()
	}

	records := make([]*evidence.Record, 0, len(b.Results))
	for i, res := range b.Results {
		rec := &evidence.Record{
			ID:           uuid.NewString(),
			BatchID:      b.BatchID,
			RequestID:    b.RequestID,
			Source:       b.Source,
			Table:        b.Table,
			TableVersion: b.Version,
			HitPolicy:    string(b.HitPolicy),
			RecordIndex:  i,
			Fired:        append([]int{}, res.Fired...),
			Outcome:      string(res.Outcome()),
			Output:       outputJSON(res),
			EvaluatedAt:  b.EvaluatedAt,
			Duration:     b.Duration,
		}
		if i < len(b.Records) {
			rec.InputHash = HashRecord(b.Records[i])
		}
		records = append(records, rec)
	}
	return records
}

// HashRecord hashes the canonical JSON form of an input record. Map keys are
// sorted, so equal records hash equally regardless of construction order.
func HashRecord(rec engine.Record) string {
	data, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	return HashContent(data)
}

func outputJSON(res engine.Result) json.RawMessage {
	var (
		data []byte
		err  error
	)
	if res.HitPolicy == schema.HitPolicyCollect {
		data, err = json.Marshal(res.Rows)
	} else {
		data, err = json.Marshal(res.Row)
	}
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// Close stops accepting records, drains the buffer and waits for pending
// writes to complete.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Evidence recorder shut down")
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Debug("Draining evidence channel", "pending_count", len(r.recordChan))
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *evidence.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	record.RecordedAt = time.Now()
	start := time.Now()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("Failed to store evidence record",
			"record_id", record.ID,
			"batch_id", record.BatchID,
			"error", err,
		)
		r.observe(StatusFailed, 1)
		return
	}
	r.observe(StatusStored, 1)

	if d := time.Since(start); d > r.config.WriteTimeout/2 {
		r.logger.Warn("Slow evidence write",
			"record_id", record.ID,
			"duration_ms", d.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

func (r *Recorder) observe(status string, n int) {
	if r.observer != nil && n > 0 {
		r.observer.ObserveEvidence(status, n)
	}
}
