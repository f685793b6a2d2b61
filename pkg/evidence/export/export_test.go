package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"mercator-hq/tabula/pkg/evidence"
)

func sample() []*evidence.Record {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []*evidence.Record{
		{ID: "a", BatchID: "b1", Table: "discount", HitPolicy: "FIRST", Fired: []int{0, 2}, Outcome: "matched", Output: json.RawMessage(`{"rate":0.2}`), EvaluatedAt: at, Duration: 1500 * time.Microsecond},
		{ID: "b", BatchID: "b1", Table: "discount", HitPolicy: "FIRST", RecordIndex: 1, Outcome: "no_match", Output: json.RawMessage(`null`), EvaluatedAt: at},
	}
}

func TestJSONExporter_Export(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer
		if err := NewJSONExporter(pretty).Export(context.Background(), sample(), &buf); err != nil {
			t.Fatalf("Export(pretty=%v) error = %v", pretty, err)
		}
		var got []evidence.Record
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("Export(pretty=%v) produced invalid JSON: %v", pretty, err)
		}
		if len(got) != 2 || got[0].ID != "a" || got[1].Outcome != "no_match" {
			t.Errorf("Export(pretty=%v) round trip = %+v", pretty, got)
		}
	}

	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(context.Background(), nil, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[]" {
		t.Errorf("Export(nil) = %q, want []", buf.String())
	}
}

func TestJSONExporter_ExportStream(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		ch := make(chan *evidence.Record, 2)
		for _, r := range sample() {
			ch <- r
		}
		close(ch)

		var buf bytes.Buffer
		if err := NewJSONExporter(pretty).ExportStream(context.Background(), ch, &buf); err != nil {
			t.Fatalf("ExportStream() error = %v", err)
		}
		var got []evidence.Record
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("ExportStream(pretty=%v) produced invalid JSON: %v\n%s", pretty, err, buf.String())
		}
		if len(got) != 2 {
			t.Errorf("streamed %d records, want 2", len(got))
		}
	}
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), sample(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(Header, ",") {
		t.Errorf("header = %v", rows[0])
	}

	col := func(name string) int {
		for i, h := range Header {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	first := rows[1]
	if first[col("fired")] != "0;2" {
		t.Errorf("fired = %q, want 0;2", first[col("fired")])
	}
	if first[col("output")] != `{"rate":0.2}` {
		t.Errorf("output = %q", first[col("output")])
	}
	if first[col("duration_ms")] != "1.500" {
		t.Errorf("duration_ms = %q, want 1.500", first[col("duration_ms")])
	}
	if first[col("evaluated_at")] != "2025-01-02T03:04:05Z" {
		t.Errorf("evaluated_at = %q", first[col("evaluated_at")])
	}
	if rows[2][col("recorded_at")] != "" {
		t.Errorf("zero recorded_at = %q, want empty", rows[2][col("recorded_at")])
	}
}

func TestCSVExporter_ExportStream(t *testing.T) {
	ch := make(chan *evidence.Record, 2)
	for _, r := range sample() {
		ch <- r
	}
	close(ch)

	var buf bytes.Buffer
	if err := NewCSVExporter(false).ExportStream(context.Background(), ch, &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("lines = %d, want 2", n)
	}
}
