// Package tracing wires OpenTelemetry tracing for Tabula.
//
// # Overview
//
// A Tracer exports spans over OTLP gRPC when enabled and is a noop
// otherwise. The engine service opens these spans:
//
//   - engine.compile: inline table compilation
//   - engine.evaluate: one batch evaluation (table, version, hit policy,
//     batch id and size, outcome counts)
//   - http.request: one served HTTP request (method, route, status)
//
// Incoming W3C traceparent headers are honored through Extract, so a
// caller's trace continues into Tabula.
//
// # Usage
//
//	tracer, err := tracing.New(&tracing.Config{
//	    Enabled:  true,
//	    Endpoint: "otel-collector:4317",
//	    Insecure: true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, tracing.SpanEvaluate)
//	tracing.SetTableAttributes(span, "discount", version, "FIRST")
//	defer span.End()
//
// # Sampling
//
//   - always: sample every trace (default)
//   - never: sample nothing
//   - ratio: TraceIDRatioBased(sample_ratio)
//
// All samplers respect the parent span's decision.
package tracing
