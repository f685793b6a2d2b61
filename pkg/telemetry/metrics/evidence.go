package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EvidenceMetrics tracks evidence persistence.
//
// Metrics:
//   - tabula_evidence_records_total: Evidence records by status (stored, failed, dropped)
type EvidenceMetrics struct {
	recordsTotal *prometheus.CounterVec
}

// NewEvidenceMetrics creates and registers evidence metrics with the provided registry.
func NewEvidenceMetrics(cfg *Config, registry *prometheus.Registry) *EvidenceMetrics {
	em := &EvidenceMetrics{
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "evidence",
				Name:      "records_total",
				Help:      "Total number of evidence records by write status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(em.recordsTotal)

	return em
}

// RecordRecords adds n records with the given status.
func (em *EvidenceMetrics) RecordRecords(status string, n int) {
	em.recordsTotal.WithLabelValues(status).Add(float64(n))
}
