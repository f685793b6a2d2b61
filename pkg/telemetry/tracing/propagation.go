package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

// remote reads W3C traceparent, tracestate and baggage. It is independent of
// the global propagator so incoming trace ids reach the logs even when
// export is disabled.
var remote = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Extract returns ctx carrying the caller's span context from HTTP headers.
// ctx is returned unchanged when the headers carry none.
func Extract(ctx context.Context, h http.Header) context.Context {
	return remote.Extract(ctx, propagation.HeaderCarrier(h))
}

// ExtractFromMap is Extract for API Gateway events, whose header names are
// already lowercased.
func ExtractFromMap(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return remote.Extract(ctx, propagation.MapCarrier(headers))
}

// InjectToMap writes the span context of ctx into headers.
func InjectToMap(ctx context.Context, headers map[string]string) {
	remote.Inject(ctx, propagation.MapCarrier(headers))
}
