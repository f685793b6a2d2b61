package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tabula/pkg/decision/engine"
)

// OtherLabel replaces table names beyond the cardinality limit.
const OtherLabel = "other"

// Config contains metrics configuration.
type Config struct {
	// Enabled turns recording on. A disabled collector still registers
	// its metrics so /metrics stays well-formed.
	Enabled bool

	// Namespace prefixes every metric name (default "tabula").
	Namespace string

	// DurationBuckets are histogram buckets for evaluation and compile
	// durations in seconds.
	DurationBuckets []float64

	// BatchSizeBuckets are histogram buckets for records per batch.
	BatchSizeBuckets []float64

	// RequestDurationBuckets are histogram buckets for HTTP latency.
	RequestDurationBuckets []float64

	// MaxTables caps distinct table label values.
	MaxTables int
}

// Collector is the orchestrator for all Prometheus metrics in Tabula.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	engineMetrics   *EngineMetrics
	httpMetrics     *HTTPMetrics
	evidenceMetrics *EvidenceMetrics

	tablesOnce sync.Once

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a metrics collector and registers its metrics on
// registry. A nil registry gets a fresh prometheus.Registry.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &Config{Enabled: true}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "tabula"
	}
	if len(cfg.DurationBuckets) == 0 {
		// Table evaluation is sub-millisecond to tens of milliseconds.
		cfg.DurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}
	}
	if len(cfg.BatchSizeBuckets) == 0 {
		cfg.BatchSizeBuckets = prometheus.ExponentialBuckets(1, 4, 9)
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = prometheus.DefBuckets
	}
	if cfg.MaxTables <= 0 {
		cfg.MaxTables = 1000
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(cfg.MaxTables),
	}

	c.engineMetrics = NewEngineMetrics(cfg, registry)
	c.httpMetrics = NewHTTPMetrics(cfg, registry)
	c.evidenceMetrics = NewEvidenceMetrics(cfg, registry)

	return c
}

// RecordEvaluation records one evaluated batch.
//
// Parameters:
//   - table: Table name
//   - hitPolicy: Table hit policy ("UNIQUE", "FIRST", "COLLECT")
//   - results: One result per evaluated record
//   - duration: Wall time for the whole batch
func (c *Collector) RecordEvaluation(table, hitPolicy string, results []engine.Result, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.engineMetrics.RecordBatch(c.tableLabel(table), hitPolicy, results, duration)
}

// ObserveCompile records a compile attempt. It implements
// manager.CompileObserver.
func (c *Collector) ObserveCompile(table string, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	c.engineMetrics.RecordCompile(status, duration)
}

// ObserveEvidence records evidence write outcomes. It implements
// recorder.Observer.
func (c *Collector) ObserveEvidence(status string, n int) {
	if !c.config.Enabled {
		return
	}

	c.evidenceMetrics.RecordRecords(status, n)
}

// RecordHTTPRequest records a served HTTP request.
//
// Parameters:
//   - route: chi route pattern (e.g. "/api/v1/tables/{name}/evaluate")
//   - method: HTTP method
//   - status: Response status code
//   - duration: Time to serve the request
func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.httpMetrics.RecordRequest(route, method, strconv.Itoa(status), duration)
}

// RegisterTableGauge registers tabula_registry_tables backed by fn.
// Only the first call has effect.
func (c *Collector) RegisterTableGauge(fn func() float64) {
	c.tablesOnce.Do(func() {
		c.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: c.config.Namespace,
				Subsystem: "registry",
				Name:      "tables",
				Help:      "Number of tables currently registered",
			},
			fn,
		))
	})
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) tableLabel(table string) string {
	if c.cardinalityLimiter.Allow(table) {
		return table
	}
	return OtherLabel
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
