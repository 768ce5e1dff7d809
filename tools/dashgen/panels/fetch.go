package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// StrategyResults charts strategy attempts per minute by strategy and hit
// or miss.
func StrategyResults() *timeseries.PanelBuilder {
	return series("Strategy Attempts", "Fetch strategy attempts per minute by strategy and result",
		thirdWidth, "mean", "max").
		WithTarget(query(0,
			PerMinute(`sum by (strategy, result) (rate(`+Sel("stockmon_fetch_attempts_total")+`[5m]))`),
			"{{strategy}} {{result}}"))
}

// FetchFailures charts fetches where every strategy missed.
func FetchFailures() *timeseries.PanelBuilder {
	return series("Fetch Failures / min", "Item fetches where every strategy missed", thirdWidth).
		WithTarget(query(0, PerMinute("stockmon:fetch_misses:rate5m"), "failures/min")).
		Thresholds(escalating(0.1, 1)).
		ColorScheme(thresholdColors())
}

// UpstreamRequests counts marketplace requests over the last day.
func UpstreamRequests() *stat.PanelBuilder {
	return single("Upstream Requests (24h)",
		"HTTP requests sent to the marketplace, including retries and warm-ups",
		thirdWidth, rowHeight, "increase("+Sel("stockmon_upstream_requests_total")+"[24h])").
		GraphMode(common.BigValueGraphModeArea)
}
