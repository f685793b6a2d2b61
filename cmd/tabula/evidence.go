package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/tabula/pkg/cli"
	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/evidence"
	"mercator-hq/tabula/pkg/evidence/export"
	"mercator-hq/tabula/pkg/evidence/query"
	"mercator-hq/tabula/pkg/evidence/retention"
	"mercator-hq/tabula/pkg/evidence/storage"
)

var evidenceFlags struct {
	backend    string
	timeRange  string
	table      string
	version    string
	batch      string
	request    string
	source     string
	outcome    string
	limit      int
	offset     int
	sortBy     string
	sortOrder  string
	format     string
	output     string
	days       int
	maxRecords int64
	dryRun     bool
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Query evidence database",
	Long: `Query, count and prune evidence records.

Every evaluated record produces one evidence record holding the table
version, a hash of the input, the fired rules, the outcome and the output.

Subcommands:
  query   - List evidence records with filters
  count   - Count evidence records with filters
  prune   - Apply the retention policy now

Examples:
  # Ambiguous results of one table in a day
  tabula evidence query --table discount --outcome ambiguous \
    --time-range "2025-11-19T00:00:00Z/2025-11-20T00:00:00Z"

  # Export one batch as CSV
  tabula evidence query --batch 4b1d... --format csv --output batch.csv

  # Delete evidence older than 30 days
  tabula evidence prune --days 30`,
}

var evidenceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query evidence records",
	Long: `Query evidence records with filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2025-11-19T00:00:00Z/2025-11-20T00:00:00Z"`,
	RunE: queryEvidence,
}

var evidenceCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count evidence records",
	RunE:  countEvidence,
}

var evidencePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete evidence outside the retention policy",
	Long: `Delete evidence records older than the retention period and the oldest
records beyond the maximum count. Defaults come from evidence.retention in
the config file.`,
	RunE: pruneEvidence,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceQueryCmd, evidenceCountCmd, evidencePruneCmd)

	evidenceCmd.PersistentFlags().StringVar(&evidenceFlags.backend, "backend", "", "backend: memory, sqlite, postgres (uses config if not specified)")

	for _, c := range []*cobra.Command{evidenceQueryCmd, evidenceCountCmd} {
		c.Flags().StringVar(&evidenceFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		c.Flags().StringVar(&evidenceFlags.table, "table", "", "filter by table name")
		c.Flags().StringVar(&evidenceFlags.version, "table-version", "", "filter by table version")
		c.Flags().StringVar(&evidenceFlags.batch, "batch", "", "filter by batch ID")
		c.Flags().StringVar(&evidenceFlags.request, "request", "", "filter by request ID")
		c.Flags().StringVar(&evidenceFlags.source, "source", "", "filter by source (http, lambda, cli)")
		c.Flags().StringVar(&evidenceFlags.outcome, "outcome", "", "filter by outcome (matched, no_match, ambiguous)")
	}

	evidenceQueryCmd.Flags().IntVar(&evidenceFlags.limit, "limit", query.DefaultLimit, "max results")
	evidenceQueryCmd.Flags().IntVar(&evidenceFlags.offset, "offset", 0, "pagination offset")
	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.sortBy, "sort-by", "evaluated_at", "sort field: evaluated_at, recorded_at, table, duration")
	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.sortOrder, "sort-order", "desc", "sort order: asc, desc")
	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.format, "format", "text", "output format: text, json, csv")
	evidenceQueryCmd.Flags().StringVarP(&evidenceFlags.output, "output", "o", "", "output file (default: stdout)")

	evidencePruneCmd.Flags().IntVar(&evidenceFlags.days, "days", -1, "retention period in days (0 keeps forever; default from config)")
	evidencePruneCmd.Flags().Int64Var(&evidenceFlags.maxRecords, "max-records", -1, "maximum records to keep (0 unlimited; default from config)")
	evidencePruneCmd.Flags().BoolVar(&evidenceFlags.dryRun, "dry-run", false, "report what would be deleted without deleting")
}

// openEvidenceStore opens the configured backend, or the --backend override.
func openEvidenceStore() (evidence.Storage, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	sc := cfg.Evidence.StorageConfig()
	if evidenceFlags.backend != "" {
		sc.Backend = evidenceFlags.backend
	}
	store, err := storage.Open(sc, quietLogger())
	if err != nil {
		return nil, nil, cli.NewCommandError("evidence", err)
	}
	return store, cfg, nil
}

// buildEvidenceQuery turns the filter flags into a query.
func buildEvidenceQuery() (*evidence.Query, error) {
	q := &evidence.Query{
		Table:        evidenceFlags.table,
		TableVersion: evidenceFlags.version,
		BatchID:      evidenceFlags.batch,
		RequestID:    evidenceFlags.request,
		Source:       evidenceFlags.source,
		Outcome:      evidenceFlags.outcome,
	}
	if evidenceFlags.timeRange != "" {
		start, end, err := parseTimeRange(evidenceFlags.timeRange)
		if err != nil {
			return nil, err
		}
		q.StartTime = &start
		q.EndTime = &end
	}
	return q, nil
}

func parseTimeRange(s string) (time.Time, time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, errors.New("invalid time range format (expected: start/end)")
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}

func queryEvidence(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evidenceFlags.format)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}
	q, err := buildEvidenceQuery()
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}
	q.Limit = evidenceFlags.limit
	q.Offset = evidenceFlags.offset
	q.SortBy = evidenceFlags.sortBy
	q.SortOrder = evidenceFlags.sortOrder
	query.ApplyDefaults(q)
	if err := query.Validate(q); err != nil {
		return cli.NewCommandError("evidence", err)
	}

	store, _, err := openEvidenceStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}

	out := commandOutput(cmd)
	if evidenceFlags.output != "" {
		f, err := os.Create(evidenceFlags.output)
		if err != nil {
			return cli.NewCommandError("evidence", fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		out = f
	}
	return writeEvidence(ctx, out, format, records)
}

func writeEvidence(ctx context.Context, w io.Writer, format cli.OutputFormat, records []*evidence.Record) error {
	switch format {
	case cli.FormatJSON:
		return export.NewJSONExporter(true).Export(ctx, records, w)
	case cli.FormatCSV:
		return export.NewCSVExporter(true).Export(ctx, records, w)
	default:
		if len(records) == 0 {
			_, err := fmt.Fprintln(w, "No evidence records found")
			return err
		}
		if err := cli.NewFormatter(cli.FormatText).FormatTo(w, evidenceTable(records)); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%d record(s)\n", len(records))
		return err
	}
}

// evidenceTable is the text rendering of evidence records.
type evidenceTable []*evidence.Record

func (t evidenceTable) Header() []string {
	return []string{"evaluated_at", "table", "version", "batch_id", "index", "outcome", "fired", "source"}
}

func (t evidenceTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, r := range t {
		rows[i] = []string{
			r.EvaluatedAt.UTC().Format(time.RFC3339),
			r.Table,
			r.TableVersion,
			r.BatchID,
			strconv.Itoa(r.RecordIndex),
			r.Outcome,
			formatFired(r.Fired),
			r.Source,
		}
	}
	return rows
}

func countEvidence(cmd *cobra.Command, args []string) error {
	q, err := buildEvidenceQuery()
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}
	if err := query.Validate(q); err != nil {
		return cli.NewCommandError("evidence", err)
	}

	store, _, err := openEvidenceStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(context.Background(), q)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}
	_, err = fmt.Fprintln(commandOutput(cmd), n)
	return err
}

func pruneEvidence(cmd *cobra.Command, args []string) error {
	store, cfg, err := openEvidenceStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rc := cfg.Evidence.RetentionConfig()
	rc.PruneSchedule = ""
	if evidenceFlags.days >= 0 {
		rc.RetentionDays = evidenceFlags.days
	}
	if evidenceFlags.maxRecords >= 0 {
		rc.MaxRecords = evidenceFlags.maxRecords
	}

	out := commandOutput(cmd)
	ctx := context.Background()
	if evidenceFlags.dryRun {
		return reportPrunable(ctx, out, store, rc)
	}

	deleted, err := retention.NewPruner(store, rc, quietLogger()).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}
	_, err = fmt.Fprintf(out, "✓ Pruned %d evidence record(s)\n", deleted)
	return err
}

// reportPrunable prints how many records each retention rule would delete.
func reportPrunable(ctx context.Context, w io.Writer, store evidence.Storage, rc *retention.Config) error {
	total, err := store.Count(ctx, &evidence.Query{})
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}

	var byAge int64
	if rc.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -rc.RetentionDays)
		byAge, err = store.Count(ctx, &evidence.Query{EndTime: &cutoff})
		if err != nil {
			return cli.NewCommandError("evidence", err)
		}
	}
	var byCount int64
	if rc.MaxRecords > 0 {
		byCount = max(total-byAge-rc.MaxRecords, 0)
	}

	fmt.Fprintf(w, "Records:          %d\n", total)
	fmt.Fprintf(w, "Older than %d days: %d\n", rc.RetentionDays, byAge)
	fmt.Fprintf(w, "Beyond max %d:    %d\n", rc.MaxRecords, byCount)
	fmt.Fprintln(w, "Dry run: nothing deleted")
	return nil
}
