package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/tabula/pkg/evidence"
)

// CSVExporter writes evidence records as CSV.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header is the CSV column list.
var Header = []string{
	"id", "batch_id", "request_id", "source",
	"table", "table_version", "hit_policy",
	"record_index", "input_hash", "fired", "outcome", "output",
	"evaluated_at", "duration_ms", "recorded_at",
}

// Export writes records as CSV.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}
	for _, record := range records {
		if err := writer.Write(Row(record)); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel as CSV, flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			writer.Flush()
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
				return nil
			}
			if err := writer.Write(Row(record)); err != nil {
				return evidence.NewExportError("csv", count, err)
			}
			count++
			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
			}
		}
	}
}

// Row converts a record to CSV fields in Header order.
func Row(r *evidence.Record) []string {
	fired := make([]string, len(r.Fired))
	for i, f := range r.Fired {
		fired[i] = strconv.Itoa(f)
	}
	return []string{
		r.ID,
		r.BatchID,
		r.RequestID,
		r.Source,
		r.Table,
		r.TableVersion,
		r.HitPolicy,
		strconv.Itoa(r.RecordIndex),
		r.InputHash,
		strings.Join(fired, ";"),
		r.Outcome,
		string(r.Output),
		formatTime(r.EvaluatedAt),
		strconv.FormatFloat(float64(r.Duration)/float64(time.Millisecond), 'f', 3, 64),
		formatTime(r.RecordedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
