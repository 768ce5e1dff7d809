package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/donaldgifford/stock-monitor/internal/api/middleware"
	"github.com/donaldgifford/stock-monitor/internal/metrics"
)

func TestMetricsMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		route      string
		target     string
		handler    echo.HandlerFunc
		wantRoute  string
		wantStatus int
	}{
		{
			name:   "records 200 response",
			method: http.MethodGet,
			route:  "/api/v1/state",
			target: "/api/v1/state",
			handler: func(c echo.Context) error {
				return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
			},
			wantRoute:  "/api/v1/state",
			wantStatus: http.StatusOK,
		},
		{
			name:   "labels by route template, not URL",
			method: http.MethodGet,
			route:  "/api/v1/state/:key",
			target: "/api/v1/state/581472460_28841260015",
			handler: func(c echo.Context) error {
				return c.NoContent(http.StatusNotFound)
			},
			wantRoute:  "/api/v1/state/:key",
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "records POST request",
			method: http.MethodPost,
			route:  "/api/v1/check",
			target: "/api/v1/check",
			handler: func(c echo.Context) error {
				return c.NoContent(http.StatusAccepted)
			},
			wantRoute:  "/api/v1/check",
			wantStatus: http.StatusAccepted,
		},
		{
			name:   "handler error is recorded with its status",
			method: http.MethodPost,
			route:  "/api/v1/check/busy",
			target: "/api/v1/check/busy",
			handler: func(echo.Context) error {
				return echo.NewHTTPError(http.StatusConflict, "cycle running")
			},
			wantRoute:  "/api/v1/check/busy",
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unknown URL collapses to unmatched",
			method:     http.MethodGet,
			target:     "/wp-admin/setup-config.php",
			wantRoute:  "unmatched",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(mw.Metrics())
			if tt.route != "" {
				e.Add(tt.method, tt.route, tt.handler)
			}

			req := httptest.NewRequest(tt.method, tt.target, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			statusStr := strconv.Itoa(tt.wantStatus)

			counter, err := metrics.HTTPRequestsTotal.GetMetricWithLabelValues(
				tt.method, tt.wantRoute, statusStr,
			)
			require.NoError(t, err)

			m := &io_prometheus_client.Metric{}
			require.NoError(t, counter.Write(m))
			assert.Greater(t, m.GetCounter().GetValue(), float64(0))

			observer, err := metrics.HTTPRequestDuration.GetMetricWithLabelValues(
				tt.method, tt.wantRoute, statusStr,
			)
			require.NoError(t, err)

			hm := &io_prometheus_client.Metric{}
			require.NoError(t, observer.(prometheus.Metric).Write(hm))
			assert.Positive(t, hm.GetHistogram().GetSampleCount())

			assert.InDelta(t, 0, testutil.ToFloat64(metrics.HTTPRequestsInFlight), 0)
		})
	}
}

func TestMetricsMiddleware_InFlight(t *testing.T) {
	e := echo.New()
	e.Use(mw.Metrics())

	var during float64
	e.GET("/api/v1/state", func(c echo.Context) error {
		during = testutil.ToFloat64(metrics.HTTPRequestsInFlight)
		return c.NoContent(http.StatusOK)
	})

	before := testutil.ToFloat64(metrics.HTTPRequestsInFlight)
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/state", http.NoBody))

	assert.InDelta(t, before+1, during, 0)
	assert.InDelta(t, before, testutil.ToFloat64(metrics.HTTPRequestsInFlight), 0)
}

func TestMetricsMiddleware_HealthGauges(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		gauge  prometheus.Gauge
		want   float64
	}{
		{name: "healthz up", path: "/healthz", status: http.StatusOK, gauge: metrics.HealthzUp, want: 1},
		{name: "readyz down", path: "/readyz", status: http.StatusServiceUnavailable, gauge: metrics.ReadyzUp, want: 0},
		{name: "readyz up", path: "/readyz", status: http.StatusOK, gauge: metrics.ReadyzUp, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(mw.Metrics())
			e.GET(tt.path, func(c echo.Context) error {
				return c.NoContent(tt.status)
			})

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			assert.Equal(t, tt.status, rec.Code)
			assert.InDelta(t, tt.want, testutil.ToFloat64(tt.gauge), 0)
		})
	}
}
