package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/tabula/pkg/cli"
	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/schema"
)

var benchmarkFlags struct {
	table      string
	inputs     int
	outputs    int
	rules      int
	hitPolicy  string
	dontCare   float64
	batch      int
	iterations int
	workers    int
	seed       uint64
	format     string
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Measure evaluation throughput",
	Long: `Measure in-process evaluation throughput and latency.

The benchmark compiles a table (a file, or a randomly generated one) and
evaluates generated record batches against it repeatedly. Generation is
seeded, so runs with the same flags evaluate the same data.

Metrics Collected:
  - Records per second
  - Batch latency percentiles (p50, p95, p99, max)
  - Outcome counts

Examples:
  # Generated 10 x 500 table, batches of 1000 records
  tabula benchmark --inputs 10 --rules 500 --batch 1000

  # Benchmark a real table with generated records
  tabula benchmark --table tables/discount.yaml --iterations 200

  # Single-threaded baseline
  tabula benchmark --workers 1 --format json`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().StringVarP(&benchmarkFlags.table, "table", "t", "", "table file (default: generated)")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.inputs, "inputs", 8, "generated table inputs")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.outputs, "outputs", 2, "generated table outputs")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.rules, "rules", 200, "generated table rules")
	benchmarkCmd.Flags().StringVar(&benchmarkFlags.hitPolicy, "hit-policy", "COLLECT", "generated table hit policy")
	benchmarkCmd.Flags().Float64Var(&benchmarkFlags.dontCare, "dont-care", 0.5, "generated don't-care cell ratio")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.batch, "batch", 1000, "records per batch")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.iterations, "iterations", 100, "batches to evaluate")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.workers, "workers", 0, "evaluator workers (default: config)")
	benchmarkCmd.Flags().Uint64Var(&benchmarkFlags.seed, "seed", 1, "generator seed")
	benchmarkCmd.Flags().StringVar(&benchmarkFlags.format, "format", "text", "output format: text, json")
}

// BenchmarkReport summarizes a benchmark run.
type BenchmarkReport struct {
	Table      string           `json:"table"`
	HitPolicy  schema.HitPolicy `json:"hit_policy"`
	Inputs     int              `json:"inputs"`
	Rules      int              `json:"rules"`
	Batch      int              `json:"batch"`
	Iterations int              `json:"iterations"`
	Workers    int              `json:"workers"`

	Duration      time.Duration `json:"duration_ns"`
	RecordsPerSec float64       `json:"records_per_sec"`

	Min    time.Duration `json:"min_ns"`
	Mean   time.Duration `json:"mean_ns"`
	Median time.Duration `json:"p50_ns"`
	P95    time.Duration `json:"p95_ns"`
	P99    time.Duration `json:"p99_ns"`
	Max    time.Duration `json:"max_ns"`

	Matched   int `json:"matched"`
	NoMatch   int `json:"no_match"`
	Ambiguous int `json:"ambiguous"`
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	if benchmarkFlags.batch < 1 || benchmarkFlags.iterations < 1 {
		return cli.NewCommandError("benchmark", errors.New("--batch and --iterations must be positive"))
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gen := schema.NewGenerator(benchmarkFlags.seed)
	src, err := benchmarkSource(gen)
	if err != nil {
		return cli.NewCommandError("benchmark", err)
	}

	logger := quietLogger()
	t, err := engine.Compile(src, engine.WithLogger(logger))
	if err != nil {
		return cli.NewCommandError("benchmark", err)
	}
	defer t.Release()

	ecfg := cfg.Engine.EvaluatorConfig()
	if benchmarkFlags.workers > 0 {
		ecfg = ecfg.WithWorkers(benchmarkFlags.workers)
	}
	evaluator, err := engine.NewEvaluator(ecfg, logger)
	if err != nil {
		return cli.NewConfigError("engine", err.Error())
	}

	generated := gen.Records(src, benchmarkFlags.batch, 0)
	records := make([]engine.Record, len(generated))
	for i, m := range generated {
		records[i] = engine.Record(m)
	}

	report := &BenchmarkReport{
		Table:      t.Name(),
		HitPolicy:  t.HitPolicy(),
		Inputs:     t.NumInputs(),
		Rules:      t.NumRules(),
		Batch:      benchmarkFlags.batch,
		Iterations: benchmarkFlags.iterations,
		Workers:    ecfg.Workers,
	}

	progress := cli.NewProgressReporter(nil, "records")
	progress.Start(int64(benchmarkFlags.batch * benchmarkFlags.iterations))

	latencies := make([]time.Duration, 0, benchmarkFlags.iterations)
	start := time.Now()
	for i := 0; i < benchmarkFlags.iterations; i++ {
		batchStart := time.Now()
		results, err := evaluator.Evaluate(t, records)
		if err != nil {
			progress.Error(err)
			return cli.NewCommandError("benchmark", err)
		}
		latencies = append(latencies, time.Since(batchStart))
		if i == 0 {
			tallyOutcomes(report, results)
		}
		progress.Add(int64(len(records)))
	}
	report.Duration = time.Since(start)
	progress.Finish()

	total := float64(benchmarkFlags.batch * benchmarkFlags.iterations)
	if secs := report.Duration.Seconds(); secs > 0 {
		report.RecordsPerSec = total / secs
	}
	report.Min, report.Mean, report.Median, report.P95, report.P99, report.Max = calculatePercentiles(latencies)

	out := commandOutput(cmd)
	if benchmarkFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(out, report)
	}
	displayResults(out, report)
	return nil
}

func benchmarkSource(gen *schema.Generator) (*schema.Table, error) {
	if benchmarkFlags.table != "" {
		return schema.Load(benchmarkFlags.table)
	}
	policy, err := schema.ParseHitPolicy(benchmarkFlags.hitPolicy)
	if err != nil {
		return nil, err
	}
	return gen.Table(schema.GeneratorConfig{
		Inputs:        benchmarkFlags.inputs,
		Outputs:       benchmarkFlags.outputs,
		Rules:         benchmarkFlags.rules,
		HitPolicy:     policy,
		DontCareRatio: benchmarkFlags.dontCare,
	}), nil
}

func tallyOutcomes(report *BenchmarkReport, results []engine.Result) {
	for _, r := range results {
		switch r.Outcome() {
		case engine.OutcomeMatched:
			report.Matched++
		case engine.OutcomeAmbiguous:
			report.Ambiguous++
		default:
			report.NoMatch++
		}
	}
}

func displayResults(w io.Writer, r *BenchmarkReport) {
	fmt.Fprintln(w, "Results:")
	fmt.Fprintln(w, "--------")
	fmt.Fprintf(w, "Table:           %s (%s, %d inputs, %d rules)\n", r.Table, r.HitPolicy, r.Inputs, r.Rules)
	fmt.Fprintf(w, "Batches:         %d x %d records, %d workers\n", r.Iterations, r.Batch, r.Workers)
	fmt.Fprintf(w, "Duration:        %.2fs\n", r.Duration.Seconds())
	fmt.Fprintf(w, "Throughput:      %.0f records/s\n", r.RecordsPerSec)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Batch latency:")
	fmt.Fprintf(w, "  Min:     %s\n", r.Min)
	fmt.Fprintf(w, "  Mean:    %s\n", r.Mean)
	fmt.Fprintf(w, "  Median:  %s\n", r.Median)
	fmt.Fprintf(w, "  p95:     %s\n", r.P95)
	fmt.Fprintf(w, "  p99:     %s\n", r.P99)
	fmt.Fprintf(w, "  Max:     %s\n", r.Max)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Outcomes (first batch):")
	fmt.Fprintf(w, "  matched:   %d\n", r.Matched)
	fmt.Fprintf(w, "  no_match:  %d\n", r.NoMatch)
	fmt.Fprintf(w, "  ambiguous: %d\n", r.Ambiguous)
}

func calculatePercentiles(latencies []time.Duration) (lo, mean, median, p95, p99, hi time.Duration) {
	if len(latencies) == 0 {
		return
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	lo = sorted[0]
	hi = sorted[len(sorted)-1]

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}
	mean = sum / time.Duration(len(sorted))

	median = sorted[len(sorted)/2]
	p95 = sorted[int(float64(len(sorted))*0.95)]
	p99 = sorted[int(float64(len(sorted))*0.99)]
	return
}
