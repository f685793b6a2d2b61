package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tabula/pkg/decision/engine"
)

// EngineMetrics tracks compilation and evaluation.
//
// Metrics:
//   - tabula_engine_evaluations_total: Evaluated records by table, hit policy, outcome
//   - tabula_engine_evaluation_duration_seconds: Batch duration histogram
//   - tabula_engine_batch_size: Records per batch
//   - tabula_engine_rules_fired: Rules fired per record
//   - tabula_engine_compilations_total: Compile attempts by status
//   - tabula_engine_compile_duration_seconds: Compile duration histogram
type EngineMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	batchSize          *prometheus.HistogramVec
	rulesFired         *prometheus.HistogramVec
	compilationsTotal  *prometheus.CounterVec
	compileDuration    prometheus.Histogram
}

// NewEngineMetrics creates and registers engine metrics with the provided registry.
func NewEngineMetrics(cfg *Config, registry *prometheus.Registry) *EngineMetrics {
	em := &EngineMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "evaluations_total",
				Help:      "Total number of records evaluated",
			},
			[]string{"table", "hit_policy", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of batch evaluations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"table"},
		),

		batchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "batch_size",
				Help:      "Number of records per evaluated batch",
				Buckets:   cfg.BatchSizeBuckets,
			},
			[]string{"table"},
		),

		rulesFired: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "rules_fired",
				Help:      "Number of rules fired per record",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50},
			},
			[]string{"table"},
		),

		compilationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "compilations_total",
				Help:      "Total number of table compilations",
			},
			[]string{"status"},
		),

		compileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "compile_duration_seconds",
				Help:      "Duration of table compilations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.batchSize,
		em.rulesFired,
		em.compilationsTotal,
		em.compileDuration,
	)

	return em
}

// RecordBatch records one evaluated batch.
func (em *EngineMetrics) RecordBatch(table, hitPolicy string, results []engine.Result, duration time.Duration) {
	em.evaluationDuration.WithLabelValues(table).Observe(duration.Seconds())
	em.batchSize.WithLabelValues(table).Observe(float64(len(results)))

	var matched, noMatch, ambiguous float64
	fired := em.rulesFired.WithLabelValues(table)
	for i := range results {
		switch results[i].Outcome() {
		case engine.OutcomeMatched:
			matched++
		case engine.OutcomeAmbiguous:
			ambiguous++
		default:
			noMatch++
		}
		fired.Observe(float64(len(results[i].Fired)))
	}

	if matched > 0 {
		em.evaluationsTotal.WithLabelValues(table, hitPolicy, string(engine.OutcomeMatched)).Add(matched)
	}
	if noMatch > 0 {
		em.evaluationsTotal.WithLabelValues(table, hitPolicy, string(engine.OutcomeNoMatch)).Add(noMatch)
	}
	if ambiguous > 0 {
		em.evaluationsTotal.WithLabelValues(table, hitPolicy, string(engine.OutcomeAmbiguous)).Add(ambiguous)
	}
}

// RecordCompile records a compile attempt.
func (em *EngineMetrics) RecordCompile(status string, duration time.Duration) {
	em.compilationsTotal.WithLabelValues(status).Inc()
	em.compileDuration.Observe(duration.Seconds())
}
