package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRequestMetrics_Middleware(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	e := echo.New()
	e.Use(newRequestMetrics(mp.Meter(httpInstrumentationName), nil).middleware)
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/api/v1/extract", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(`{"content":"x"}`)))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byClass := map[string]int64{}
	var durations uint64
	var bodies uint64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch md.Name {
			case "meetextract.http.requests_total":
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					class, _ := dp.Attributes.Value(attribute.Key("status_class"))
					byClass[class.AsString()] += dp.Value
				}
			case "meetextract.http.request_duration_seconds":
				hist, ok := md.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				for _, dp := range hist.DataPoints {
					durations += dp.Count
				}
			case "meetextract.http.request_body_bytes":
				hist, ok := md.Data.(metricdata.Histogram[int64])
				require.True(t, ok)
				for _, dp := range hist.DataPoints {
					bodies += dp.Count
				}
			}
		}
	}
	assert.Equal(t, map[string]int64{"2xx": 1, "4xx": 2}, byClass)
	assert.Equal(t, uint64(3), durations)
	assert.Equal(t, uint64(1), bodies)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(echo.NewHTTPError(http.StatusServiceUnavailable)))
	assert.Equal(t, http.StatusNotFound, statusOf(echo.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "unknown", statusClass(0))
}
