// Package server provides the HTTP API for evaluating decision tables.
//
// The server is a chi router in front of a decision service. It decodes
// requests, hands them to the service and encodes the results; evaluation,
// evidence and engine metrics all live in the service.
//
// # Basic Usage
//
//	svc := service.New(registry, evaluator, service.WithRecorder(rec))
//	srv := server.NewServer(&cfg.Server, svc,
//	    server.WithHealth(checker),
//	    server.WithMetrics(collector, cfg.Telemetry.Metrics.Path),
//	    server.WithTracer(tracer),
//	    server.WithLogger(logger),
//	)
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until ctx is cancelled, then shuts down gracefully within
// ShutdownTimeout.
//
// # Routes
//
//   - GET  /health                          - Liveness probe
//   - GET  /ready                           - Readiness probe (tables loaded, evidence reachable)
//   - GET  /version                         - Build information
//   - GET  /metrics                         - Prometheus metrics (path configurable)
//   - GET  /api/v1/tables                   - Registered tables
//   - GET  /api/v1/tables/{name}            - Table metadata and rule IDs
//   - POST /api/v1/tables/{name}/evaluate   - Evaluate records against a registered table
//   - POST /api/v1/evaluate                 - Evaluate records against an inline schema
//
// # Status Codes
//
//   - 400: malformed JSON, no records, oversize batch, inline schema that fails to compile
//   - 404: unknown table
//   - 413: body larger than MaxBodyBytes
//   - 503: registry closed during shutdown
//   - 504: request timeout
//
// # Middleware Chain
//
// Requests pass through the following middleware (outermost first):
//  1. RequestID: chi request ID, honoring an incoming X-Request-Id
//  2. RealIP: client address from X-Forwarded-For / X-Real-IP
//  3. Request context: request ID into the logging context and response header
//  4. Instrumentation: http.request span and request metrics by route pattern
//  5. Logging: one structured line per completed request
//  6. Recovery: JSON 500 on handler panics
//  7. Timeout: per-request deadline
package server
