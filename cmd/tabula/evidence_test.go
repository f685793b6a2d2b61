package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/evidence"
	"mercator-hq/tabula/pkg/evidence/storage"
)

// seedEvidence points the configuration at a fresh SQLite file holding six
// records: four recent and two older than 90 days.
func seedEvidence(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evidence.db")
	withConfig(t, func(cfg *config.Config) {
		cfg.Evidence.Backend = "sqlite"
		cfg.Evidence.SQLite.Path = path
		cfg.Evidence.Retention.Days = 0
		cfg.Evidence.Retention.MaxRecords = 0
		cfg.Evidence.Retention.ArchiveBeforeDelete = false
	})

	store, err := storage.Open(config.GetConfig().Evidence.StorageConfig(), nil)
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	defer store.Close()

	now := time.Now().UTC().Truncate(time.Second)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		at := now.Add(-time.Duration(i) * time.Minute)
		if i >= 4 {
			at = now.AddDate(0, 0, -100)
		}
		outcome := "matched"
		if i%3 == 2 {
			outcome = "no_match"
		}
		rec := &evidence.Record{
			ID:           fmt.Sprintf("rec-%d", i),
			BatchID:      fmt.Sprintf("batch-%d", i/2),
			Source:       "cli",
			Table:        "discount",
			TableVersion: "v1",
			HitPolicy:    "FIRST",
			RecordIndex:  i % 2,
			InputHash:    "hash",
			Fired:        []int{0, 2},
			Outcome:      outcome,
			Output:       json.RawMessage(`{"rate":0.1}`),
			EvaluatedAt:  at,
			Duration:     time.Millisecond,
			RecordedAt:   at,
		}
		if err := store.Store(ctx, rec); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
}

func setEvidenceFlags(t *testing.T) {
	t.Helper()
	orig := evidenceFlags
	t.Cleanup(func() { evidenceFlags = orig })
	evidenceFlags = orig
	evidenceFlags.backend = ""
	evidenceFlags.timeRange = ""
	evidenceFlags.table = ""
	evidenceFlags.version = ""
	evidenceFlags.batch = ""
	evidenceFlags.request = ""
	evidenceFlags.source = ""
	evidenceFlags.outcome = ""
	evidenceFlags.limit = 100
	evidenceFlags.offset = 0
	evidenceFlags.sortBy = "evaluated_at"
	evidenceFlags.sortOrder = "desc"
	evidenceFlags.format = "text"
	evidenceFlags.output = ""
	evidenceFlags.days = -1
	evidenceFlags.maxRecords = -1
	evidenceFlags.dryRun = false
}

func TestEvidenceQuery_Text(t *testing.T) {
	seedEvidence(t)
	setEvidenceFlags(t)
	evidenceFlags.batch = "batch-0"

	out, err := execute(t, queryEvidence, "")
	if err != nil {
		t.Fatalf("queryEvidence() error = %v", err)
	}
	if !strings.Contains(out, "batch-0") || !strings.Contains(out, "0 2") {
		t.Errorf("output missing record fields:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n2 record(s)\n") {
		t.Errorf("output = %q, want 2 record(s) footer", out)
	}
}

func TestEvidenceQuery_JSON(t *testing.T) {
	seedEvidence(t)
	setEvidenceFlags(t)
	evidenceFlags.format = "json"
	evidenceFlags.outcome = "no_match"

	out, err := execute(t, queryEvidence, "")
	if err != nil {
		t.Fatalf("queryEvidence() error = %v", err)
	}
	var records []evidence.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.Outcome != "no_match" {
			t.Errorf("record %s outcome = %s", r.ID, r.Outcome)
		}
	}
}

func TestEvidenceQuery_Empty(t *testing.T) {
	seedEvidence(t)
	setEvidenceFlags(t)
	evidenceFlags.table = "shipping"

	out, err := execute(t, queryEvidence, "")
	if err != nil {
		t.Fatalf("queryEvidence() error = %v", err)
	}
	if out != "No evidence records found\n" {
		t.Errorf("output = %q", out)
	}
}

func TestEvidenceQuery_InvalidFlags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func()
	}{
		{"bad time range", func() { evidenceFlags.timeRange = "yesterday" }},
		{"bad sort field", func() { evidenceFlags.sortBy = "input_hash" }},
		{"bad format", func() { evidenceFlags.format = "xml" }},
		{"bad backend", func() { evidenceFlags.backend = "mongo" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seedEvidence(t)
			setEvidenceFlags(t)
			tt.mutate()
			if _, err := execute(t, queryEvidence, ""); err == nil {
				t.Error("queryEvidence() error = nil, want error")
			}
		})
	}
}

func TestEvidenceCount(t *testing.T) {
	seedEvidence(t)
	setEvidenceFlags(t)

	out, err := execute(t, countEvidence, "")
	if err != nil {
		t.Fatalf("countEvidence() error = %v", err)
	}
	if out != "6\n" {
		t.Errorf("count = %q, want 6", out)
	}

	evidenceFlags.outcome = "matched"
	out, err = execute(t, countEvidence, "")
	if err != nil {
		t.Fatalf("countEvidence() error = %v", err)
	}
	if out != "4\n" {
		t.Errorf("matched count = %q, want 4", out)
	}
}

func TestEvidencePrune(t *testing.T) {
	seedEvidence(t)
	setEvidenceFlags(t)
	evidenceFlags.days = 30
	evidenceFlags.dryRun = true

	out, err := execute(t, pruneEvidence, "")
	if err != nil {
		t.Fatalf("pruneEvidence() dry run error = %v", err)
	}
	for _, want := range []string{"Records:          6", "Older than 30 days: 2", "nothing deleted"} {
		if !strings.Contains(out, want) {
			t.Errorf("dry run output missing %q:\n%s", want, out)
		}
	}

	evidenceFlags.dryRun = false
	out, err = execute(t, pruneEvidence, "")
	if err != nil {
		t.Fatalf("pruneEvidence() error = %v", err)
	}
	if out != "✓ Pruned 2 evidence record(s)\n" {
		t.Errorf("output = %q", out)
	}

	evidenceFlags.days = -1
	evidenceFlags.maxRecords = 1
	out, err = execute(t, pruneEvidence, "")
	if err != nil {
		t.Fatalf("pruneEvidence() by count error = %v", err)
	}
	if out != "✓ Pruned 3 evidence record(s)\n" {
		t.Errorf("output = %q", out)
	}
}

func TestParseTimeRange(t *testing.T) {
	start, end, err := parseTimeRange("2025-11-19T00:00:00Z/2025-11-20T00:00:00Z")
	if err != nil {
		t.Fatalf("parseTimeRange() error = %v", err)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("range = %v..%v", start, end)
	}

	for _, bad := range []string{"", "2025-11-19", "x/2025-11-20T00:00:00Z", "2025-11-19T00:00:00Z/x"} {
		if _, _, err := parseTimeRange(bad); err == nil {
			t.Errorf("parseTimeRange(%q) error = nil", bad)
		}
	}
}
