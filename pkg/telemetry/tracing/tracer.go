package tracing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	instrumentationName = "mercator-hq/tabula"
	defaultServiceName  = "tabula"
	exporterDialTimeout = 10 * time.Second
)

var errNilConfig = errors.New("tracing config is nil")

// Config selects where spans go and how many are kept.
type Config struct {
	Enabled bool

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string
	Insecure bool

	// Sampler is "always", "never" or "ratio"; SampleRatio applies to
	// "ratio" only.
	Sampler     string
	SampleRatio float64

	ServiceName    string
	ServiceVersion string

	// Timeout bounds each export call. Zero keeps the exporter default.
	Timeout time.Duration
}

// Tracer starts spans for compile, evaluate and request handling. The zero
// of *Tracer (nil) and Noop both produce non-recording spans.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// New returns a tracer exporting over OTLP gRPC, or Noop when cfg is
// disabled. Call Shutdown before exit to flush buffered spans.
func New(cfg *Config) (*Tracer, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	if !cfg.Enabled {
		return Noop(), nil
	}
	if err := ValidateSampling(cfg.Sampler, cfg.SampleRatio); err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}
	exporter, err := dialCollector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}
	return NewWithExporter(cfg, exporter)
}

// NewWithExporter returns an enabled tracer over exporter. OTLP exporters
// are batched; any other exporter (tests use tracetest.InMemoryExporter)
// receives each span synchronously at End.
func NewWithExporter(cfg *Config, exporter sdktrace.SpanExporter) (*Tracer, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	sampler, err := newSampler(cfg.Sampler, cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
		)),
	}
	if _, batched := exporter.(*otlptrace.Exporter); batched {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	} else {
		opts = append(opts, sdktrace.WithSyncer(exporter))
	}
	provider := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(remote)

	return &Tracer{
		tracer:   provider.Tracer(instrumentationName),
		provider: provider,
	}, nil
}

// Noop returns a tracer whose spans record nothing.
func Noop() *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
}

// Start opens a span as a child of the span in ctx, if any.
//
//	ctx, span := tracer.Start(ctx, SpanEvaluate)
//	defer span.End()
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil {
		return Noop().Start(ctx, name, opts...)
	}
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes pending spans. It is a no-op for disabled tracers.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Enabled reports whether spans are exported.
func (t *Tracer) Enabled() bool {
	return t != nil && t.provider != nil
}

func dialCollector(cfg *Config) (*otlptrace.Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("tracing endpoint is required")
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(instrumentationName)),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}

	ctx, cancel := context.WithTimeout(context.Background(), exporterDialTimeout)
	defer cancel()
	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}
