// Package trace implements the Tracer & Monitor (C13). The Tracer
// wraps an OpenTelemetry SDK TracerProvider, grounded on
// pkg/observability/tracer.go's InitGlobalTracer (resource + sampler +
// provider wiring), but swaps that file's OTLP-gRPC exporter for a
// custom day-partitioned JSONL exporter, since the core has no
// external collector to ship to.
package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// spanRecord is one exported span's on-disk shape.
type spanRecord struct {
	TraceID    string            `json:"trace_id"`
	SpanID     string            `json:"span_id"`
	Name       string            `json:"name"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	DurationMs float64           `json:"duration_ms"`
	Status     string            `json:"status"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// JSONLExporter implements sdktrace.SpanExporter, appending one JSON
// object per span to a day-partitioned file under dir
// (traces_YYYYMMDD.jsonl).
type JSONLExporter struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewJSONLExporter constructs an exporter writing under dir.
func NewJSONLExporter(dir string) *JSONLExporter {
	return &JSONLExporter{dir: dir, now: time.Now}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *JSONLExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("trace: creating trace dir: %w", err)
	}

	path := filepath.Join(e.dir, "traces_"+e.now().Format("20060102")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("trace: opening %q: %w", path, err)
	}
	defer f.Close()

	for _, span := range spans {
		attrs := make(map[string]string, len(span.Attributes()))
		for _, kv := range span.Attributes() {
			attrs[string(kv.Key)] = kv.Value.Emit()
		}
		errMsg := ""
		for _, ev := range span.Events() {
			if ev.Name == "exception" {
				for _, kv := range ev.Attributes {
					if string(kv.Key) == "exception.message" {
						errMsg = kv.Value.Emit()
					}
				}
			}
		}
		rec := spanRecord{
			TraceID:    span.SpanContext().TraceID().String(),
			SpanID:     span.SpanContext().SpanID().String(),
			Name:       span.Name(),
			Start:      span.StartTime(),
			End:        span.EndTime(),
			DurationMs: float64(span.EndTime().Sub(span.StartTime())) / float64(time.Millisecond),
			Status:     span.Status().Code.String(),
			Attributes: attrs,
			Error:      errMsg,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("trace: writing span record: %w", err)
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter; the exporter holds no
// persistent resources between exports.
func (e *JSONLExporter) Shutdown(ctx context.Context) error {
	return nil
}
