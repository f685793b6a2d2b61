package export

import (
	"context"
	"io"

	"github.com/goccy/go-json"

	"mercator-hq/tabula/pkg/evidence"
)

// JSONExporter writes evidence records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records as a JSON array. An empty slice writes [].
func (e *JSONExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	if records == nil {
		records = []*evidence.Record{}
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return evidence.NewExportError("json", len(records), err)
	}
	if _, err := w.Write(data); err != nil {
		return evidence.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel as a JSON array without holding
// them all in memory.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return evidence.NewExportError("json", 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				if _, err := io.WriteString(w, "]"); err != nil {
					return evidence.NewExportError("json", count, err)
				}
				return nil
			}

			sep := ""
			if count > 0 {
				sep = ","
			}
			if e.Pretty {
				sep += "\n  "
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return evidence.NewExportError("json", count, err)
			}

			var (
				data []byte
				err  error
			)
			if e.Pretty {
				data, err = json.MarshalIndent(record, "  ", "  ")
			} else {
				data, err = json.Marshal(record)
			}
			if err != nil {
				return evidence.NewExportError("json", count, err)
			}
			if _, err := w.Write(data); err != nil {
				return evidence.NewExportError("json", count, err)
			}
			count++
		}
	}
}
