package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RequestRate charts ops API requests per second.
func RequestRate() *timeseries.PanelBuilder {
	return series("Request Rate", "Ops API requests per second", thirdWidth, "mean", "max").
		WithTarget(query(0, "stockmon:http_requests:rate5m", "req/s")).
		Unit("reqps")
}

// LatencyPercentiles charts p50, p95 and p99 ops API latency.
func LatencyPercentiles() *timeseries.PanelBuilder {
	b := series("Latency Percentiles", "Ops API request duration percentiles", thirdWidth, "mean", "max").
		Unit("s")
	for i, q := range []float64{0.50, 0.95, 0.99} {
		b.WithTarget(query(i, Quantile(q, "stockmon_http_request_duration_seconds"), percentile(q)))
	}
	return b
}

// ErrorRate charts 5xx responses as a share of all requests.
func ErrorRate() *timeseries.PanelBuilder {
	return series("Error Rate %", "Ops API 5xx responses as percentage of total requests", thirdWidth).
		WithTarget(query(0, "stockmon:http_errors:rate5m / stockmon:http_requests:rate5m * 100", "error %")).
		Unit("percent").
		Thresholds(escalating(1, 5)).
		ColorScheme(thresholdColors())
}

// RequestsByRoute charts request rate per route template and status.
func RequestsByRoute() *timeseries.PanelBuilder {
	return series("Requests by Route", "Ops API requests per second by route template and status",
		halfWidth, "mean", "max").
		WithTarget(query(0,
			`sum by (route, status) (rate(`+Sel("stockmon_http_requests_total")+`[5m]))`,
			"{{route}} {{status}}")).
		Unit("reqps")
}

// HandlerPanics counts recovered handler panics over the last day.
func HandlerPanics() *stat.PanelBuilder {
	return single("Handler Panics (24h)", "Ops API requests that panicked and were answered with 500",
		statWidth, rowHeight, "sum(increase("+Sel("stockmon_http_panics_total")+"[24h]))").
		Thresholds(escalating(1, 5)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}

// InFlight shows requests currently being served.
func InFlight() *stat.PanelBuilder {
	return single("In Flight", "Ops API requests being served right now",
		statWidth, rowHeight, Sel("stockmon_http_requests_in_flight")).
		GraphMode(common.BigValueGraphModeArea)
}

func percentile(q float64) string {
	switch q {
	case 0.50:
		return "p50"
	case 0.95:
		return "p95"
	default:
		return "p99"
	}
}
