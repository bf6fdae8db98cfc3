package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/meetextract/internal/http"

// extractionsTotal counts served extractions.
// Labels: source (heuristic, generative), cached (true, false)
var extractionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "meetextract",
		Subsystem: "http",
		Name:      "extractions_total",
		Help:      "Extractions served over HTTP by result source and cache hit",
	},
	[]string{"source", "cached"},
)

func countExtraction(source string, cached bool) {
	extractionsTotal.WithLabelValues(source, strconv.FormatBool(cached)).Inc()
}

// requestMetrics records per-route request counts, latency and body sizes
// through OpenTelemetry. Nil instruments are skipped.
type requestMetrics struct {
	requests  metric.Int64Counter
	inflight  metric.Int64UpDownCounter
	latency   metric.Float64Histogram
	bodyBytes metric.Int64Histogram
}

func newRequestMetrics(meter metric.Meter, logger *zap.Logger) *requestMetrics {
	if meter == nil {
		meter = otel.Meter(httpInstrumentationName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	warn := func(name string, err error) {
		if err != nil {
			logger.Warn("failed to create instrument", zap.String("instrument", name), zap.Error(err))
		}
	}

	m := &requestMetrics{}
	var err error

	m.requests, err = meter.Int64Counter("meetextract.http.requests_total",
		metric.WithDescription("HTTP requests by route, method and status class"),
		metric.WithUnit("{request}"))
	warn("requests", err)

	m.inflight, err = meter.Int64UpDownCounter("meetextract.http.inflight_requests",
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"))
	warn("inflight", err)

	// Generative extraction can take tens of seconds.
	m.latency, err = meter.Float64Histogram("meetextract.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration by route"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60))
	warn("latency", err)

	m.bodyBytes, err = meter.Int64Histogram("meetextract.http.request_body_bytes",
		metric.WithDescription("Size of transcript request bodies"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(1<<10, 8<<10, 64<<10, 256<<10, 1<<20, 4<<20))
	warn("body_bytes", err)

	return m
}

// middleware records one data point per request. Handler errors are
// resolved to their HTTP status before recording.
func (m *requestMetrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()
		route := attribute.String("route", routeOf(c))
		start := time.Now()

		if m.inflight != nil {
			m.inflight.Add(ctx, 1, metric.WithAttributes(route))
			defer m.inflight.Add(ctx, -1, metric.WithAttributes(route))
		}
		if m.bodyBytes != nil && req.ContentLength > 0 {
			m.bodyBytes.Record(ctx, req.ContentLength, metric.WithAttributes(route))
		}

		err := next(c)

		status := c.Response().Status
		if err != nil {
			status = statusOf(err)
		}
		if m.requests != nil {
			m.requests.Add(ctx, 1, metric.WithAttributes(route,
				attribute.String("method", req.Method),
				attribute.String("status_class", statusClass(status))))
		}
		if m.latency != nil {
			m.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(route))
		}
		return err
	}
}

// routeOf returns the matched route template. Unmatched requests share one
// label so arbitrary paths cannot grow cardinality.
func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" && p != "/*" {
		return p
	}
	return "unmatched"
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
