package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/schema"
	"mercator-hq/tabula/pkg/evidence"
	"mercator-hq/tabula/pkg/evidence/recorder"
	"mercator-hq/tabula/pkg/evidence/storage"
	"mercator-hq/tabula/pkg/telemetry/logging"
	"mercator-hq/tabula/pkg/telemetry/metrics"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

func discountSchema() *schema.Table {
	return &schema.Table{
		Name:      "discount",
		HitPolicy: schema.HitPolicyUnique,
		Inputs: []schema.Clause{
			{Name: "amount", TypeRef: "number"},
			{Name: "tier", TypeRef: "string"},
		},
		Outputs: []schema.Clause{{Name: "rate", TypeRef: "number"}},
		Rules: []schema.Rule{
			{Inputs: []schema.Literal{">= 1000", `"gold"`}, Outputs: []schema.Literal{"0.2"}},
			{Inputs: []schema.Literal{">= 500", "-"}, Outputs: []schema.Literal{"0.1"}},
		},
	}
}

type fixture struct {
	svc      *Service
	registry *manager.Registry
	store    *storage.MemoryStorage
	rec      *recorder.Recorder
	metrics  *metrics.Collector
	spans    *tracetest.InMemoryExporter
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	registry := manager.NewRegistry(logging.Discard())
	t.Cleanup(registry.Close)

	table, err := engine.Compile(discountSchema())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := registry.Put(table, manager.NewTableInfo(table, "v1", "discount.yaml")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	evaluator, err := engine.NewEvaluator(nil, logging.Discard())
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	store := storage.NewMemoryStorage()
	rec := recorder.NewRecorder(store, recorder.DefaultConfig(), logging.Discard())
	collector := metrics.NewCollector(&metrics.Config{Enabled: true}, nil)
	rec.SetObserver(collector)

	spans := tracetest.NewInMemoryExporter()
	tracer, err := tracing.NewWithExporter(&tracing.Config{Enabled: true, ServiceName: "test"}, spans)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	opts = append([]Option{
		WithRecorder(rec),
		WithMetrics(collector),
		WithTracer(tracer),
		WithLogger(logging.Discard()),
	}, opts...)

	return &fixture{
		svc:      New(registry, evaluator, opts...),
		registry: registry,
		store:    store,
		rec:      rec,
		metrics:  collector,
		spans:    spans,
	}
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)
	ctx := logging.WithRequestID(context.Background(), "req-1")

	resp, err := f.svc.Evaluate(ctx, Request{
		Table: "discount",
		Records: []engine.Record{
			{"amount": 1200, "tier": "gold"},
			{"amount": 50, "tier": "gold"},
			{"amount": 700, "tier": "silver"},
		},
		Source: SourceHTTP,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if resp.Table != "discount" || resp.Version != "v1" || resp.HitPolicy != schema.HitPolicyUnique {
		t.Errorf("response header = %+v", resp)
	}
	if resp.BatchID == "" {
		t.Error("BatchID is empty")
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(resp.Results))
	}

	wantOutcomes := []engine.Outcome{engine.OutcomeAmbiguous, engine.OutcomeNoMatch, engine.OutcomeMatched}
	for i, want := range wantOutcomes {
		if got := resp.Results[i].Outcome(); got != want {
			t.Errorf("record %d outcome = %s, want %s", i, got, want)
		}
	}

	if err := f.rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	records, err := f.store.Query(context.Background(), &evidence.Query{BatchID: resp.BatchID})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("stored %d evidence records, want 3", len(records))
	}
	for _, r := range records {
		if r.RequestID != "req-1" || r.Source != SourceHTTP || r.TableVersion != "v1" {
			t.Errorf("evidence record = %+v", r)
		}
	}

	n, err := testutil.GatherAndCount(f.metrics.Registry(), "tabula_engine_evaluations_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 3 {
		t.Errorf("evaluations_total series = %d, want 3", n)
	}

	spans := f.spans.GetSpans()
	if len(spans) != 1 || spans[0].Name != tracing.SpanEvaluate {
		t.Fatalf("spans = %v", spans)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	f := newFixture(t, WithMaxBatchSize(2))
	ctx := context.Background()
	one := []engine.Record{{"amount": 1}}

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "unknown table", req: Request{Table: "nope", Records: one}, wantErr: manager.ErrTableNotFound},
		{name: "no table", req: Request{Records: one}, wantErr: ErrMissingTable},
		{name: "no records", req: Request{Table: "discount"}, wantErr: ErrNoRecords},
		{name: "too many records", req: Request{Table: "discount", Records: make([]engine.Record, 3)}, wantErr: ErrBatchTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Evaluate(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Evaluate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvaluate_LeaseSurvivesReplacement(t *testing.T) {
	f := newFixture(t)

	old, err := f.registry.Acquire("discount")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	replacement, err := engine.Compile(discountSchema())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := f.registry.Put(replacement, manager.NewTableInfo(replacement, "v2", "discount.yaml")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if old.Table().Released() {
		t.Fatal("leased table released by Put")
	}
	old.Release()
	if !old.Table().Released() {
		t.Error("retired table not released after its last lease")
	}

	resp, err := f.svc.Evaluate(context.Background(), Request{Table: "discount", Records: []engine.Record{{"amount": 600}}})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if resp.Version != "v2" {
		t.Errorf("Version = %q, want v2", resp.Version)
	}
}

func TestEvaluateInline(t *testing.T) {
	f := newFixture(t)

	src := discountSchema()
	src.Name = "inline"
	src.HitPolicy = schema.HitPolicyCollect

	resp, err := f.svc.EvaluateInline(context.Background(), InlineRequest{
		Schema:  src,
		Records: []engine.Record{{"amount": 1500, "tier": "gold"}},
		Source:  SourceLambda,
	})
	if err != nil {
		t.Fatalf("EvaluateInline() error = %v", err)
	}
	if resp.Version != SchemaVersion(src) || resp.Version == "" {
		t.Errorf("Version = %q", resp.Version)
	}
	if got := len(resp.Results[0].Rows); got != 2 {
		t.Errorf("collected %d rows, want 2", got)
	}
	if f.registry.Len() != 1 {
		t.Errorf("inline table leaked into registry")
	}

	names := map[string]bool{}
	for _, s := range f.spans.GetSpans() {
		names[s.Name] = true
	}
	if !names[tracing.SpanCompile] || !names[tracing.SpanEvaluate] {
		t.Errorf("spans = %v", names)
	}
}

func TestEvaluateInline_CompileError(t *testing.T) {
	f := newFixture(t)

	src := discountSchema()
	src.HitPolicy = "ANY"

	_, err := f.svc.EvaluateInline(context.Background(), InlineRequest{
		Schema:  src,
		Records: []engine.Record{{"amount": 1}},
	})
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *CompileError", err)
	}
	if !errors.Is(err, schema.ErrUnsupportedHitPolicy) {
		t.Errorf("error does not wrap ErrUnsupportedHitPolicy: %v", err)
	}

	if _, err := f.svc.EvaluateInline(context.Background(), InlineRequest{Records: []engine.Record{{}}}); !errors.As(err, &cerr) {
		t.Errorf("nil schema error = %v", err)
	}
}

func TestSchemaVersion(t *testing.T) {
	a, b := discountSchema(), discountSchema()
	if SchemaVersion(a) != SchemaVersion(b) {
		t.Error("equal schemas hash differently")
	}
	b.Rules[0].Outputs[0] = "0.3"
	if SchemaVersion(a) == SchemaVersion(b) {
		t.Error("different schemas hash equally")
	}
	if len(SchemaVersion(a)) != 12 {
		t.Errorf("version length = %d, want 12", len(SchemaVersion(a)))
	}
}

func TestService_WithoutOptionalComponents(t *testing.T) {
	evaluator, err := engine.NewEvaluator(nil, nil)
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}

	svc := New(nil, evaluator)
	if _, err := svc.Evaluate(context.Background(), Request{Table: "x", Records: []engine.Record{{}}}); !errors.Is(err, manager.ErrTableNotFound) {
		t.Errorf("Evaluate() without registry error = %v", err)
	}

	resp, err := svc.EvaluateInline(context.Background(), InlineRequest{
		Schema:  discountSchema(),
		Records: []engine.Record{{"amount": 600}},
	})
	if err != nil {
		t.Fatalf("EvaluateInline() error = %v", err)
	}
	if !resp.Results[0].Matched() {
		t.Errorf("result = %+v", resp.Results[0])
	}
}
