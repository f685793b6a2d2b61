package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"mercator-hq/tabula/pkg/api"
	"mercator-hq/tabula/pkg/cli"
	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/schema"
	"mercator-hq/tabula/pkg/decision/service"
)

var evaluateFlags struct {
	table   string
	records string
	format  string
	trace   bool
	output  string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate records against a decision table",
	Long: `Evaluate a batch of records against a decision table file.

Records are read from a JSON file (an array of objects, or an object with a
"records" array) or from a CSV file whose header row names the inputs. Empty
CSV cells are treated as missing inputs. Use "-" to read JSON from stdin.

Examples:
  # Evaluate a CSV batch and print a table
  tabula evaluate --table tables/discount.yaml --records customers.csv

  # JSON output with the fired rules of every record
  tabula evaluate --table tables/discount.yaml --records batch.json --format json --trace

  # Write CSV results to a file
  tabula evaluate --table tables/discount.yaml --records batch.json --format csv -o results.csv`,
	RunE: evaluateRecords,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.table, "table", "t", "", "decision table file (.yaml, .yml, .json)")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.records, "records", "r", "", "records file (.json or .csv, - for stdin)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json, csv")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.trace, "trace", false, "include fired rule indices")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.output, "output", "o", "", "output file (default: stdout)")
}

func evaluateRecords(cmd *cobra.Command, args []string) error {
	if evaluateFlags.table == "" || evaluateFlags.records == "" {
		return cli.NewCommandError("evaluate", errors.New("--table and --records are required"))
	}
	format, err := cli.ParseFormat(evaluateFlags.format)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := quietLogger()

	loaded, err := manager.NewLoader(cfg.Tables.LoaderConfig(), logger).LoadFile(evaluateFlags.table, "")
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	outputs := loaded.Table.Outputs()

	registry := manager.NewRegistry(logger)
	defer registry.Close()
	if err := registry.Put(loaded.Table, loaded.Info); err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	evaluator, err := engine.NewEvaluator(cfg.Engine.EvaluatorConfig(), logger)
	if err != nil {
		return cli.NewConfigError("engine", err.Error())
	}

	records, err := readRecords(evaluateFlags.records, commandInput(cmd))
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	svc := service.New(registry, evaluator, service.WithLogger(logger))
	resp, err := svc.Evaluate(context.Background(), service.Request{
		Table:   loaded.Info.Name,
		Records: records,
		Source:  service.SourceCLI,
	})
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	out := commandOutput(cmd)
	if evaluateFlags.output != "" {
		f, err := os.Create(evaluateFlags.output)
		if err != nil {
			return cli.NewCommandError("evaluate", fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	var data any = newEvaluationTable(resp, outputs, evaluateFlags.trace)
	if format == cli.FormatJSON {
		data = api.NewEvaluateResponse(resp, evaluateFlags.trace)
	}
	return cli.NewFormatter(format).FormatTo(out, data)
}

// readRecords reads a batch from a JSON or CSV file. path "-" reads JSON
// from stdin.
func readRecords(path string, stdin io.Reader) ([]engine.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return decodeCSVRecords(data)
	}
	return decodeJSONRecords(data)
}

func decodeJSONRecords(data []byte) ([]engine.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var records []engine.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid records JSON: %w", err)
		}
		return records, nil
	}

	var body struct {
		Records []engine.Record `json:"records"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("invalid records JSON: %w", err)
	}
	return body.Records, nil
}

func decodeCSVRecords(data []byte) ([]engine.Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid records CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("records CSV has no header row")
	}

	header := rows[0]
	records := make([]engine.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(engine.Record, len(header))
		for i, cell := range row {
			if i < len(header) && cell != "" {
				rec[header[i]] = cell
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// evaluationTable renders a response as one line per output row. Records
// without output still get a line; COLLECT records repeat their index.
type evaluationTable struct {
	resp    *service.Response
	outputs []engine.Column
	trace   bool
}

func newEvaluationTable(resp *service.Response, outputs []engine.Column, trace bool) evaluationTable {
	return evaluationTable{resp: resp, outputs: outputs, trace: trace}
}

func (t evaluationTable) Header() []string {
	header := []string{"index", "outcome"}
	if t.trace {
		header = append(header, "fired")
	}
	for _, c := range t.outputs {
		header = append(header, c.Name)
	}
	return header
}

func (t evaluationTable) Rows() [][]string {
	var rows [][]string
	for i, r := range t.resp.Results {
		prefix := []string{strconv.Itoa(i), string(r.Outcome())}
		if t.trace {
			prefix = append(prefix, formatFired(r.Fired))
		}

		var outRows []engine.OutputRow
		switch {
		case r.HitPolicy == schema.HitPolicyCollect:
			outRows = r.Rows
		case r.Row != nil:
			outRows = []engine.OutputRow{*r.Row}
		}
		if len(outRows) == 0 {
			rows = append(rows, t.line(prefix, nil))
			continue
		}
		for _, row := range outRows {
			rows = append(rows, t.line(prefix, &row))
		}
	}
	return rows
}

func (t evaluationTable) line(prefix []string, row *engine.OutputRow) []string {
	line := append([]string(nil), prefix...)
	for _, c := range t.outputs {
		cell := ""
		if row != nil {
			if v, ok := row.Get(c.Name); ok {
				cell = cli.FormatCell(v)
			}
		}
		line = append(line, cell)
	}
	return line
}

func formatFired(fired []int) string {
	parts := make([]string, len(fired))
	for i, r := range fired {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, " ")
}
