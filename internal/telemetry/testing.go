package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// TestTelemetry records spans and metrics in memory.
type TestTelemetry struct {
	Spans  *tracetest.SpanRecorder
	Reader *sdkmetric.ManualReader

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// NewTestTelemetry returns in-memory providers.
func NewTestTelemetry() *TestTelemetry {
	rec := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	return &TestTelemetry{
		Spans:  rec,
		Reader: reader,
		tp:     sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)),
		mp:     sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// Tracer returns a recording tracer.
func (t *TestTelemetry) Tracer(name string) trace.Tracer {
	return t.tp.Tracer(name)
}

// Meter returns a recording meter.
func (t *TestTelemetry) Meter(name string) metric.Meter {
	return t.mp.Meter(name)
}

// AssertSpanExists fails tb unless an ended span has name.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	var names []string
	for _, s := range t.Spans.Ended() {
		if s.Name() == name {
			return
		}
		names = append(names, s.Name())
	}
	tb.Errorf("expected span %q, got %v", name, names)
}

// CounterValue sums an int64 counter across all attribute sets.
func (t *TestTelemetry) CounterValue(tb testing.TB, name string) int64 {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	if err := t.Reader.Collect(context.Background(), &rm); err != nil {
		tb.Fatalf("collect metrics: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
