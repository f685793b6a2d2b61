package main

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestCalculatePercentiles(t *testing.T) {
	latencies := make([]time.Duration, 100)
	for i := range latencies {
		// Reverse order to check sorting.
		latencies[i] = time.Duration(100-i) * time.Millisecond
	}

	lo, mean, median, p95, p99, hi := calculatePercentiles(latencies)

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"min", lo, 1 * time.Millisecond},
		{"mean", mean, 50500 * time.Microsecond},
		{"median", median, 51 * time.Millisecond},
		{"p95", p95, 96 * time.Millisecond},
		{"p99", p99, 100 * time.Millisecond},
		{"max", hi, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if latencies[0] != 100*time.Millisecond {
		t.Error("calculatePercentiles() modified its input")
	}

	lo, _, _, _, _, hi = calculatePercentiles(nil)
	if lo != 0 || hi != 0 {
		t.Errorf("empty input = (%v, %v), want zeros", lo, hi)
	}
}

func setBenchmarkFlags(t *testing.T) {
	t.Helper()
	orig := benchmarkFlags
	t.Cleanup(func() { benchmarkFlags = orig })
	benchmarkFlags.table = ""
	benchmarkFlags.inputs = 3
	benchmarkFlags.outputs = 1
	benchmarkFlags.rules = 12
	benchmarkFlags.hitPolicy = "UNIQUE"
	benchmarkFlags.dontCare = 0.5
	benchmarkFlags.batch = 50
	benchmarkFlags.iterations = 3
	benchmarkFlags.workers = 2
	benchmarkFlags.seed = 7
	benchmarkFlags.format = "json"
}

func TestBenchmark_Generated(t *testing.T) {
	setBenchmarkFlags(t)

	out, err := execute(t, runBenchmark, "")
	if err != nil {
		t.Fatalf("runBenchmark() error = %v", err)
	}

	var report BenchmarkReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, out)
	}
	if report.Inputs != 3 || report.Rules != 12 || report.HitPolicy != "UNIQUE" {
		t.Errorf("table = %d inputs, %d rules, %s", report.Inputs, report.Rules, report.HitPolicy)
	}
	if report.Batch != 50 || report.Iterations != 3 || report.Workers != 2 {
		t.Errorf("run = %+v", report)
	}
	if got := report.Matched + report.NoMatch + report.Ambiguous; got != 50 {
		t.Errorf("outcome tally = %d, want 50", got)
	}
	if report.Min > report.Max {
		t.Errorf("min %v > max %v", report.Min, report.Max)
	}
}

func TestBenchmark_TableFileText(t *testing.T) {
	setBenchmarkFlags(t)
	benchmarkFlags.table = "testdata/discount.yaml"
	benchmarkFlags.format = "text"

	out, err := execute(t, runBenchmark, "")
	if err != nil {
		t.Fatalf("runBenchmark() error = %v", err)
	}
	for _, want := range []string{"Table:           discount (FIRST, 2 inputs, 3 rules)", "Batches:         3 x 50 records", "ambiguous: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBenchmark_InvalidFlags(t *testing.T) {
	setBenchmarkFlags(t)
	benchmarkFlags.iterations = 0
	if _, err := execute(t, runBenchmark, ""); err == nil {
		t.Error("zero iterations: error = nil")
	}

	setBenchmarkFlags(t)
	benchmarkFlags.hitPolicy = "ANY"
	if _, err := execute(t, runBenchmark, ""); err == nil {
		t.Error("unsupported hit policy: error = nil")
	}
}
