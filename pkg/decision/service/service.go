package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/schema"
	"mercator-hq/tabula/pkg/evidence/recorder"
	"mercator-hq/tabula/pkg/telemetry/logging"
	"mercator-hq/tabula/pkg/telemetry/metrics"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

// Evidence sources.
const (
	SourceHTTP   = "http"
	SourceLambda = "lambda"
	SourceCLI    = "cli"
)

// Request is one batch evaluation against a registered table.
type Request struct {
	Table   string
	Records []engine.Record

	// RequestID defaults to the request ID carried by ctx.
	RequestID string
	Source    string
}

// InlineRequest is one batch evaluation against a schema compiled per call.
type InlineRequest struct {
	Schema  *schema.Table
	Records []engine.Record

	RequestID string
	Source    string
}

// Response is the outcome of one batch.
type Response struct {
	Table     string
	Version   string
	HitPolicy schema.HitPolicy
	BatchID   string
	Results   []engine.Result
	Duration  time.Duration
}

// Service evaluates batches and records their side effects.
type Service struct {
	registry  *manager.Registry
	evaluator *engine.Evaluator
	recorder  *recorder.Recorder
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	logger    *slog.Logger

	maxBatch int
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder records evidence for every evaluated batch.
func WithRecorder(r *recorder.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMetrics records evaluation and compile metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithTracer wraps compile and evaluate calls in spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBatchSize rejects batches with more than n records. Zero means
// no limit.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) { s.maxBatch = n }
}

// New creates a Service. The registry may be nil for inline-only use.
func New(registry *manager.Registry, evaluator *engine.Evaluator, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		evaluator: evaluator,
		tracer:    tracing.Noop(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "decision.service")
	return s
}

// Registry returns the table registry, or nil.
func (s *Service) Registry() *manager.Registry {
	return s.registry
}

// Evaluate evaluates req.Records against the registered table req.Table.
// The table is leased for the duration of the call so a concurrent reload
// cannot release it mid-batch.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Response, error) {
	if req.Table == "" {
		return nil, ErrMissingTable
	}
	if err := s.checkBatch(len(req.Records)); err != nil {
		return nil, err
	}
	if s.registry == nil {
		return nil, fmt.Errorf("%w: %s", manager.ErrTableNotFound, req.Table)
	}

	lease, err := s.registry.Acquire(req.Table)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	info := lease.Info()
	return s.run(ctx, lease.Table(), info.Version, req.Records, req.RequestID, req.Source)
}

// EvaluateInline compiles req.Schema and evaluates req.Records against it.
// The compiled table is released before returning.
func (s *Service) EvaluateInline(ctx context.Context, req InlineRequest) (*Response, error) {
	if req.Schema == nil {
		return nil, &CompileError{Err: engine.ErrNilTable}
	}
	if err := s.checkBatch(len(req.Records)); err != nil {
		return nil, err
	}

	table, err := s.Compile(ctx, req.Schema)
	if err != nil {
		return nil, err
	}
	defer table.Release()

	return s.run(ctx, table, SchemaVersion(req.Schema), req.Records, req.RequestID, req.Source)
}

// Compile compiles src inside an "engine.compile" span and reports the
// outcome to the metrics collector.
func (s *Service) Compile(ctx context.Context, src *schema.Table) (*engine.Table, error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanCompile)
	defer span.End()

	start := s.now()
	table, err := engine.Compile(src, engine.WithLogger(logging.FromContext(ctx, s.logger)))
	elapsed := s.now().Sub(start)

	name := ""
	if src != nil {
		name = src.Name
	}
	if s.metrics != nil {
		s.metrics.ObserveCompile(name, elapsed, err)
	}
	if err != nil {
		tracing.SetError(span, err)
		return nil, &CompileError{Table: name, Err: err}
	}

	tracing.SetTableAttributes(span, table.Name(), "", string(table.HitPolicy()))
	span.SetAttributes(attribute.Int(tracing.AttrRules, table.NumRules()))
	return table, nil
}

func (s *Service) run(ctx context.Context, table *engine.Table, version string, records []engine.Record, requestID, source string) (*Response, error) {
	if requestID == "" {
		requestID = logging.GetRequestID(ctx)
	}
	batchID := uuid.New().String()

	ctx = logging.WithTable(ctx, table.Name())
	ctx = logging.WithBatchID(ctx, batchID)
	logger := logging.FromContext(ctx, s.logger)

	ctx, span := s.tracer.Start(ctx, tracing.SpanEvaluate)
	defer span.End()
	tracing.SetTableAttributes(span, table.Name(), version, string(table.HitPolicy()))
	tracing.SetBatchAttributes(span, batchID, len(records))

	evaluatedAt := s.now()
	results, err := s.evaluator.Evaluate(table, records)
	elapsed := s.now().Sub(evaluatedAt)
	if err != nil {
		tracing.SetError(span, err)
		logger.Error("evaluation failed", "error", err)
		return nil, err
	}

	matched, noMatch, ambiguous := countOutcomes(results)
	tracing.SetOutcomeAttributes(span, matched, noMatch, ambiguous)
	if s.metrics != nil {
		s.metrics.RecordEvaluation(table.Name(), string(table.HitPolicy()), results, elapsed)
	}

	logger.Debug("batch evaluated",
		"records", len(records),
		"matched", matched,
		"no_match", noMatch,
		"ambiguous", ambiguous,
		"duration", elapsed,
	)

	if s.recorder != nil {
		err := s.recorder.RecordBatch(ctx, recorder.Batch{
			Table:       table.Name(),
			Version:     version,
			HitPolicy:   table.HitPolicy(),
			BatchID:     batchID,
			RequestID:   requestID,
			Source:      source,
			Records:     records,
			Results:     results,
			EvaluatedAt: evaluatedAt,
			Duration:    elapsed,
		})
		if err != nil {
			// Evidence loss never fails an evaluation.
			logger.Warn("evidence not fully recorded", "error", err)
		}
	}

	return &Response{
		Table:     table.Name(),
		Version:   version,
		HitPolicy: table.HitPolicy(),
		BatchID:   batchID,
		Results:   results,
		Duration:  elapsed,
	}, nil
}

func (s *Service) checkBatch(n int) error {
	if n == 0 {
		return ErrNoRecords
	}
	if s.maxBatch > 0 && n > s.maxBatch {
		return fmt.Errorf("%w: %d records, limit %d", ErrBatchTooLarge, n, s.maxBatch)
	}
	return nil
}

// SchemaVersion is the short content hash of a schema's canonical JSON.
// Inline tables use it as their version.
func SchemaVersion(src *schema.Table) string {
	data, err := json.Marshal(src)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6])
}

func countOutcomes(results []engine.Result) (matched, noMatch, ambiguous int) {
	for _, r := range results {
		switch r.Outcome() {
		case engine.OutcomeMatched:
			matched++
		case engine.OutcomeAmbiguous:
			ambiguous++
		default:
			noMatch++
		}
	}
	return matched, noMatch, ambiguous
}
