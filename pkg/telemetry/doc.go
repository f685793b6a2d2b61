// Package telemetry groups Tabula's observability packages.
//
//   - logging: slog logger construction and request-scoped fields
//   - metrics: Prometheus collector for engine, registry, HTTP, evidence
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness probes
package telemetry
