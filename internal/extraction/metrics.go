package extraction

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/meetextract/internal/extraction"

// Metrics counts extracted items and degraded calls.
type Metrics struct {
	items     metric.Int64Counter
	fallbacks metric.Int64Counter
}

// NewMetrics creates instruments on meter. A nil meter uses the global provider.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{}
	var err error
	m.items, err = meter.Int64Counter(
		"meetextract.extract.items",
		metric.WithDescription("Extracted records by kind (decision, action, risk)"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		logger.Warn("failed to create items counter", zap.Error(err))
	}
	m.fallbacks, err = meter.Int64Counter(
		"meetextract.extract.fallbacks",
		metric.WithDescription("Calls that degraded to a heuristic, by stage and reason"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		logger.Warn("failed to create fallbacks counter", zap.Error(err))
	}
	return m
}

func (m *Metrics) recordItems(ctx context.Context, kind string, n int) {
	if m == nil || m.items == nil || n == 0 {
		return
	}
	m.items.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) recordFallback(ctx context.Context, stage string, reason FailureReason) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("reason", string(reason)),
	))
}

// degradeLog applies the degrade policy bookkeeping for one run: every
// failed external call is logged, counted and summarized in Stats.
type degradeLog struct {
	logger  *zap.Logger
	metrics *Metrics
	counts  map[FailureReason]int
}

func newDegradeLog(logger *zap.Logger, metrics *Metrics) *degradeLog {
	return &degradeLog{logger: logger, metrics: metrics, counts: map[FailureReason]int{}}
}

func (d *degradeLog) note(ctx context.Context, stage string, reason FailureReason, err error) {
	if reason == ReasonNone {
		return
	}
	d.counts[reason]++
	d.metrics.recordFallback(ctx, stage, reason)
	if reason == ReasonUnavailable {
		d.logger.Debug("service unavailable, using heuristic", zap.String("stage", stage))
		return
	}
	d.logger.Warn("service call degraded to heuristic",
		zap.String("stage", stage),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
}

func (d *degradeLog) summary() map[FailureReason]int {
	if len(d.counts) == 0 {
		return nil
	}
	out := make(map[FailureReason]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}
