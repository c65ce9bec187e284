package trace

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps an OTel TracerProvider configured with the selected span
// exporter (day-partitioned JSONL by default). One Tracer serves the whole process;
// no in-memory mutable state is shared across queries except caches,
// metrics, and the tracer's own current-span bookkeeping.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	enabled  bool
}

// New constructs a Tracer using the day-partitioned JSONL exporter.
// When enabled is false, spans go to a no-op tracer and are neither
// recorded nor exported — callers still get a working trace.Tracer so
// instrumentation code never needs a nil check.
func New(ctx context.Context, serviceName, traceDir string, enabled bool) (*Tracer, error) {
	return newWithExporterKind(ctx, serviceName, traceDir, "jsonl", enabled)
}

// NewWithExporter is New, but lets the caller pick the span exporter:
// "jsonl" (default, day-partitioned file) or "stdout" (pretty-printed
// to the process's stdout, useful for local debugging), mirroring
// pkg/observability/tracer.go's exporter-by-name switch.
func NewWithExporter(ctx context.Context, serviceName, traceDir, exporterKind string, enabled bool) (*Tracer, error) {
	return newWithExporterKind(ctx, serviceName, traceDir, exporterKind, enabled)
}

// buildExporter picks the span exporter by name: "jsonl" (default) writes
// day-partitioned JSONL files under traceDir; "stdout" pretty-prints spans
// to the process's stdout.
func buildExporter(traceDir, exporterKind string) (sdktrace.SpanExporter, error) {
	switch exporterKind {
	case "", "jsonl":
		return NewJSONLExporter(traceDir), nil
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("trace: unsupported exporter %q", exporterKind)
	}
}

func newWithExporterKind(ctx context.Context, serviceName, traceDir, exporterKind string, enabled bool) (*Tracer, error) {
	if !enabled {
		return &Tracer{provider: sdktrace.NewTracerProvider(), tracer: noop.NewTracerProvider().Tracer(serviceName), enabled: false}, nil
	}

	exporter, err := buildExporter(traceDir, exporterKind)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("trace: building resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	return &Tracer{provider: provider, tracer: provider.Tracer(serviceName), enabled: true}, nil
}

// Shutdown flushes and releases the underlying provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Span begins a span for a pipeline stage. The returned end function
// closes it with the given error (nil for success), recording duration
// and status before the span ends.
func (t *Tracer) Span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	start := time.Now()
	return spanCtx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.SetAttributes(attribute.Float64("duration_ms", float64(time.Since(start))/float64(time.Millisecond)))
		span.End()
	}
}
