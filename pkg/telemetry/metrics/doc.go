// Package metrics provides Prometheus metrics collection for Tabula.
//
// # Overview
//
// The Collector owns every Tabula metric and registers them on a
// caller-supplied registry. It implements the observer interfaces of the
// table loader (manager.CompileObserver) and the evidence recorder
// (recorder.Observer), so wiring is a pair of SetObserver calls.
//
// # Metrics
//
//	tabula_engine_evaluations_total{table,hit_policy,outcome}
//	tabula_engine_evaluation_duration_seconds{table}
//	tabula_engine_batch_size{table}
//	tabula_engine_rules_fired{table}
//	tabula_engine_compilations_total{status}
//	tabula_engine_compile_duration_seconds
//	tabula_registry_tables
//	tabula_http_requests_total{route,method,status}
//	tabula_http_request_duration_seconds{route,method}
//	tabula_evidence_records_total{status}
//
// # Usage
//
//	collector := metrics.NewCollector(&metrics.Config{Enabled: true}, nil)
//	loader.SetObserver(collector)
//	rec.SetObserver(collector)
//	collector.RegisterTableGauge(func() float64 { return float64(registry.Len()) })
//
//	collector.RecordEvaluation("discount", "FIRST", results, elapsed)
//
//	router.Handle("/metrics", collector.Handler())
//
// # Cardinality Management
//
// Table names are user-controlled, so the collector caps the number of
// distinct table labels (MaxTables, default 1000). Tables beyond the cap
// are recorded under the label "other".
package metrics
