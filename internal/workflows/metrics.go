package workflows

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/meetextract/internal/workflows"

var (
	metricsOnce      sync.Once
	activityDuration metric.Float64Histogram
	activityErrors   metric.Int64Counter
)

// initMetrics creates the activity instruments on the global meter. It
// runs on first use so the worker's meter provider is already installed.
func initMetrics() {
	meter := otel.Meter(instrumentationName)
	activityDuration, _ = meter.Float64Histogram(
		"meetextract.workflows.activity.duration",
		metric.WithDescription("Duration of workflow activity executions"),
		metric.WithUnit("s"),
	)
	activityErrors, _ = meter.Int64Counter(
		"meetextract.workflows.activity.errors",
		metric.WithDescription("Number of activity execution errors"),
		metric.WithUnit("{error}"),
	)
}

// observe records one activity execution.
func observe(ctx context.Context, activity string, start time.Time, err error) {
	metricsOnce.Do(initMetrics)
	attrs := metric.WithAttributes(attribute.String("activity", activity))
	if activityDuration != nil {
		activityDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if err != nil && activityErrors != nil {
		activityErrors.Add(ctx, 1, attrs)
	}
}
