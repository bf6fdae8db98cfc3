package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

const instrumentationName = "github.com/fyrsmithlabs/meetextract/internal/mcp"

// errTranscriptRequired is returned when a tool call carries no transcript text.
var errTranscriptRequired = errors.New("transcript is required")

// Metrics records tool call outcomes and extracted item counts.
// Instruments that fail to register stay nil and are skipped.
type Metrics struct {
	calls    metric.Int64Counter
	latency  metric.Float64Histogram
	inflight metric.Int64UpDownCounter
	items    metric.Int64Counter
}

// NewMetrics registers the instruments on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(otel.Meter(instrumentationName), logger)
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	warn := func(name string, err error) {
		if err != nil {
			logger.Warn("failed to create instrument", zap.String("instrument", name), zap.Error(err))
		}
	}

	m := &Metrics{}
	var err error

	m.calls, err = meter.Int64Counter("meetextract.mcp.tool.calls_total",
		metric.WithDescription("MCP tool calls by tool and outcome"),
		metric.WithUnit("{call}"))
	warn("calls", err)

	m.latency, err = meter.Float64Histogram("meetextract.mcp.tool.duration_seconds",
		metric.WithDescription("Duration of MCP tool calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60))
	warn("latency", err)

	m.inflight, err = meter.Int64UpDownCounter("meetextract.mcp.tool.inflight",
		metric.WithDescription("MCP tool calls currently running"),
		metric.WithUnit("{call}"))
	warn("inflight", err)

	m.items, err = meter.Int64Counter("meetextract.mcp.extracted_items_total",
		metric.WithDescription("Items returned by extract_meeting by kind"),
		metric.WithUnit("{item}"))
	warn("items", err)

	return m
}

// observe marks a tool call as started. The returned func records its
// outcome and must be called exactly once.
func (m *Metrics) observe(ctx context.Context, tool string) func(error) {
	toolAttr := attribute.String("tool", tool)
	start := time.Now()
	if m.inflight != nil {
		m.inflight.Add(ctx, 1, metric.WithAttributes(toolAttr))
	}
	return func(err error) {
		if m.inflight != nil {
			m.inflight.Add(ctx, -1, metric.WithAttributes(toolAttr))
		}
		if m.latency != nil {
			m.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(toolAttr))
		}
		if m.calls != nil {
			m.calls.Add(ctx, 1, metric.WithAttributes(toolAttr, attribute.String("outcome", outcome(err))))
		}
	}
}

// recordItems counts the records in an extraction result.
func (m *Metrics) recordItems(ctx context.Context, res *extraction.Result) {
	if m.items == nil || res == nil {
		return
	}
	source := attribute.String("source", res.Stats.Source)
	for kind, n := range map[string]int{
		"decision": len(res.Decisions),
		"action":   len(res.Actions),
		"risk":     len(res.Risks),
	} {
		m.items.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind), source))
	}
}

// outcome maps a tool error onto a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errTranscriptRequired),
		errors.Is(err, transcript.ErrUnsupportedFormat),
		errors.Is(err, extraction.ErrUnknownMode):
		return "invalid_input"
	case errors.Is(err, transcript.ErrEmptyInput):
		return "empty_transcript"
	case errors.Is(err, services.ErrGenerativeUnavailable):
		return "generative_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
