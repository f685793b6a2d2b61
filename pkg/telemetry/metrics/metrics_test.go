package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/evidence/recorder"
)

// Compile-time interface checks.
var (
	_ manager.CompileObserver = (*Collector)(nil)
	_ recorder.Observer       = (*Collector)(nil)
)

func testCollector(t *testing.T, cfg *Config) *Collector {
	t.Helper()
	if cfg == nil {
		cfg = &Config{Enabled: true}
	}
	return NewCollector(cfg, prometheus.NewRegistry())
}

func results() []engine.Result {
	row := engine.NewOutputRow([]string{"rate"}, []any{0.1})
	return []engine.Result{
		{HitPolicy: "FIRST", Row: &row, Fired: []int{1, 2}},
		{HitPolicy: "FIRST", Row: &row, Fired: []int{2}},
		{HitPolicy: "FIRST"},
		{HitPolicy: "FIRST", Fired: []int{0, 1}, Ambiguous: true},
	}
}

func TestCollector_Defaults(t *testing.T) {
	c := NewCollector(nil, nil)
	if c.Registry() == nil {
		t.Fatal("Registry() = nil")
	}
	if c.config.Namespace != "tabula" {
		t.Errorf("Namespace = %q, want tabula", c.config.Namespace)
	}
	if c.config.MaxTables != 1000 {
		t.Errorf("MaxTables = %d, want 1000", c.config.MaxTables)
	}
}

func TestCollector_RecordEvaluation(t *testing.T) {
	c := testCollector(t, nil)
	c.RecordEvaluation("discount", "FIRST", results(), 2*time.Millisecond)

	tests := []struct {
		outcome string
		want    float64
	}{
		{"matched", 2},
		{"no_match", 1},
		{"ambiguous", 1},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			got := testutil.ToFloat64(c.engineMetrics.evaluationsTotal.WithLabelValues("discount", "FIRST", tt.outcome))
			if got != tt.want {
				t.Errorf("evaluations_total{outcome=%s} = %v, want %v", tt.outcome, got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(c.engineMetrics.batchSize); n != 1 {
		t.Errorf("batch_size series = %d, want 1", n)
	}
	if n := testutil.CollectAndCount(c.engineMetrics.rulesFired); n != 1 {
		t.Errorf("rules_fired series = %d, want 1", n)
	}
}

func TestCollector_ObserveCompile(t *testing.T) {
	c := testCollector(t, nil)
	c.ObserveCompile("a", time.Millisecond, nil)
	c.ObserveCompile("b", time.Millisecond, nil)
	c.ObserveCompile("c", time.Millisecond, errors.New("bad literal"))

	if got := testutil.ToFloat64(c.engineMetrics.compilationsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("compilations_total{success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.engineMetrics.compilationsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("compilations_total{error} = %v, want 1", got)
	}
}

func TestCollector_ObserveEvidence(t *testing.T) {
	c := testCollector(t, nil)
	c.ObserveEvidence(recorder.StatusStored, 10)
	c.ObserveEvidence(recorder.StatusDropped, 3)

	if got := testutil.ToFloat64(c.evidenceMetrics.recordsTotal.WithLabelValues(recorder.StatusStored)); got != 10 {
		t.Errorf("evidence_records_total{stored} = %v, want 10", got)
	}
	if got := testutil.ToFloat64(c.evidenceMetrics.recordsTotal.WithLabelValues(recorder.StatusDropped)); got != 3 {
		t.Errorf("evidence_records_total{dropped} = %v, want 3", got)
	}
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := testCollector(t, nil)
	c.RecordHTTPRequest("/api/v1/tables/{name}/evaluate", "POST", 200, 5*time.Millisecond)
	c.RecordHTTPRequest("/api/v1/tables/{name}/evaluate", "POST", 404, time.Millisecond)

	if got := testutil.ToFloat64(c.httpMetrics.requestsTotal.WithLabelValues("/api/v1/tables/{name}/evaluate", "POST", "404")); got != 1 {
		t.Errorf("http_requests_total{404} = %v, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	c := testCollector(t, &Config{Enabled: false})
	c.RecordEvaluation("discount", "FIRST", results(), time.Millisecond)
	c.ObserveCompile("discount", time.Millisecond, nil)
	c.ObserveEvidence(recorder.StatusStored, 1)
	c.RecordHTTPRequest("/health", "GET", 200, time.Millisecond)

	if n := testutil.CollectAndCount(c.engineMetrics.evaluationsTotal); n != 0 {
		t.Errorf("disabled collector recorded %d evaluation series", n)
	}
	if n := testutil.CollectAndCount(c.httpMetrics.requestsTotal); n != 0 {
		t.Errorf("disabled collector recorded %d http series", n)
	}
}

func TestCollector_TableCardinality(t *testing.T) {
	c := testCollector(t, &Config{Enabled: true, MaxTables: 2})
	for _, name := range []string{"a", "b", "c", "d", "a"} {
		c.RecordEvaluation(name, "UNIQUE", results()[:1], time.Millisecond)
	}

	if got := testutil.ToFloat64(c.engineMetrics.evaluationsTotal.WithLabelValues(OtherLabel, "UNIQUE", "matched")); got != 2 {
		t.Errorf("evaluations for %q = %v, want 2", OtherLabel, got)
	}
	if got := testutil.ToFloat64(c.engineMetrics.evaluationsTotal.WithLabelValues("a", "UNIQUE", "matched")); got != 2 {
		t.Errorf("evaluations for a = %v, want 2", got)
	}
}

func TestCollector_TableGauge(t *testing.T) {
	c := testCollector(t, nil)
	n := 3
	c.RegisterTableGauge(func() float64 { return float64(n) })
	c.RegisterTableGauge(func() float64 { return -1 })

	expected := `
# HELP tabula_registry_tables Number of tables currently registered
# TYPE tabula_registry_tables gauge
tabula_registry_tables 3
`
	if err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "tabula_registry_tables"); err != nil {
		t.Error(err)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := testCollector(t, nil)
	c.ObserveCompile("discount", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tabula_engine_compilations_total") {
		t.Error("metrics output missing tabula_engine_compilations_total")
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)
	if !cl.Allow("a") || !cl.Allow("b") || !cl.Allow("a") {
		t.Fatal("expected first two values to be allowed")
	}
	if cl.Allow("c") {
		t.Error("third value allowed past the limit")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}

func BenchmarkCollector_RecordEvaluation(b *testing.B) {
	c := NewCollector(&Config{Enabled: true}, prometheus.NewRegistry())
	rs := results()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.RecordEvaluation("discount", "FIRST", rs, time.Millisecond)
	}
}
