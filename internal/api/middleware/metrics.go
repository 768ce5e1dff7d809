// Package middleware provides Echo middleware for the ops API.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/stock-monitor/internal/metrics"
)

// unmatchedRoute labels requests the router could not place, so scanners
// hitting random URLs cannot grow the label set.
const unmatchedRoute = "unmatched"

// healthGauges replace request metrics for the polled health routes with a
// single up/down gauge each. /metrics is skipped entirely.
var healthGauges = map[string]prometheus.Gauge{
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
}

// Route returns the registered route template that served c, such as
// "/api/v1/state/:key", or "unmatched".
func Route(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return unmatchedRoute
}

// Metrics returns Echo middleware that records request counts, latency and
// concurrency labeled by route template.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := Route(c)
			if route == "/metrics" {
				return next(c)
			}
			if gauge, ok := healthGauges[route]; ok {
				err := next(c)
				gauge.Set(boolGauge(c.Response().Status < 300))
				return err
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			start := time.Now()
			err := next(c)
			if err != nil {
				// Write the error now so the recorded status is the one the
				// client sees. echo skips committed responses when the error
				// reaches its handler again.
				c.Error(err)
			}

			labels := prometheus.Labels{
				"method": c.Request().Method,
				"route":  route,
				"status": strconv.Itoa(c.Response().Status),
			}
			metrics.HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.With(labels).Inc()

			return err
		}
	}
}

func boolGauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
