package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// NotificationsSent charts successful sends per hour, priority repeats
// included.
func NotificationsSent() *timeseries.PanelBuilder {
	return series("Notifications Sent (1h)", "Successful notification sends, counting priority repeats", thirdWidth).
		WithTarget(query(0, "increase("+Sel("stockmon_notifications_sent_total")+"[1h])", "sent")).
		DrawStyle(common.GraphDrawStyleBars)
}

// NotificationLatency charts the p95 latency of one send.
func NotificationLatency() *timeseries.PanelBuilder {
	return series("Notification Latency (p95)", "95th percentile latency of a single notification send", thirdWidth).
		WithTarget(query(0, Quantile(0.95, "stockmon_notification_duration_seconds"), "p95")).
		Unit("s").
		Thresholds(escalating(1, 5))
}

// NotificationFailures counts failed sends over the last day.
func NotificationFailures() *stat.PanelBuilder {
	return single("Notification Failures (24h)", "Failed notification sends in the last 24 hours",
		thirdWidth, rowHeight, "increase("+Sel("stockmon_notification_failures_total")+"[24h])").
		Thresholds(escalating(1, 5)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
