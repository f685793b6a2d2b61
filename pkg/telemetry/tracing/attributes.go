package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanCompile  = "engine.compile"
	SpanEvaluate = "engine.evaluate"
	SpanRequest  = "http.request"
)

// Attribute keys use the "tabula.*" namespace.
const (
	AttrTable        = "tabula.table"
	AttrTableVersion = "tabula.table.version"
	AttrHitPolicy    = "tabula.hit_policy"
	AttrBatchSize    = "tabula.batch.size"
	AttrBatchID      = "tabula.batch.id"
	AttrRequestID    = "tabula.request_id"
	AttrRules        = "tabula.rules"
	AttrMatched      = "tabula.outcome.matched"
	AttrNoMatch      = "tabula.outcome.no_match"
	AttrAmbiguous    = "tabula.outcome.ambiguous"

	AttrHTTPMethod = "http.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"
)

// SetTableAttributes records which table a span works on.
func SetTableAttributes(span trace.Span, table, version, hitPolicy string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrTable, table),
		attribute.String(AttrHitPolicy, hitPolicy),
	}
	if version != "" {
		attrs = append(attrs, attribute.String(AttrTableVersion, version))
	}
	span.SetAttributes(attrs...)
}

// SetBatchAttributes records the batch identity and size.
func SetBatchAttributes(span trace.Span, batchID string, size int) {
	span.SetAttributes(
		attribute.String(AttrBatchID, batchID),
		attribute.Int(AttrBatchSize, size),
	)
}

// SetOutcomeAttributes records outcome counts for an evaluated batch.
func SetOutcomeAttributes(span trace.Span, matched, noMatch, ambiguous int) {
	span.SetAttributes(
		attribute.Int(AttrMatched, matched),
		attribute.Int(AttrNoMatch, noMatch),
		attribute.Int(AttrAmbiguous, ambiguous),
	)
}

// SetHTTPAttributes records the route and final status of a request.
func SetHTTPAttributes(span trace.Span, method, route string, status int) {
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatus, status),
	)
}

// TraceID returns the hex trace id carried by ctx, or "" outside a trace.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// SetError records err on span and marks it failed. A nil err is ignored.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetStatus marks span failed with err, or Ok when err is nil.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		SetError(span, err)
		return
	}
	span.SetStatus(codes.Ok, "")
}
