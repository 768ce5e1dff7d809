package rules

// RecordingRules returns the pre-computed rates the dashboard and alerts
// read.
func RecordingRules() PrometheusRule {
	return resource("stockmon-recording-rules",
		group("stockmon-recording",
			record("stockmon:http_requests:rate5m", `sum(rate(stockmon_http_requests_total[5m]))`),
			record("stockmon:http_errors:rate5m", `sum(rate(stockmon_http_requests_total{status=~"5.."}[5m]))`),
			record("stockmon:cycles:rate5m", `sum(rate(stockmon_cycles_total[5m]))`),
			record("stockmon:cycle_errors:rate5m", `sum(rate(stockmon_cycles_total{outcome!="ok"}[5m]))`),
			record("stockmon:fetch_misses:rate5m", `rate(stockmon_fetch_failures_total[5m])`),
			record("stockmon:notification_failures:rate5m", `rate(stockmon_notification_failures_total[5m])`),
		),
	)
}
