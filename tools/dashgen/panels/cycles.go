package panels

import "github.com/grafana/grafana-foundation-sdk/go/timeseries"

// CyclesByOutcome charts cycles per minute by outcome (ok, error, panic).
func CyclesByOutcome() *timeseries.PanelBuilder {
	return series("Cycles / min", "Monitoring cycles per minute by outcome", halfWidth, "mean", "max").
		WithTarget(query(0,
			PerMinute(`sum by (outcome) (rate(`+Sel("stockmon_cycles_total")+`[5m]))`),
			"{{outcome}}"))
}

// CycleDuration charts the p95 cycle duration.
func CycleDuration() *timeseries.PanelBuilder {
	return series("Cycle Duration (p95)", "95th percentile monitoring cycle duration", halfWidth).
		WithTarget(query(0, Quantile(0.95, "stockmon_cycle_duration_seconds"), "p95")).
		Unit("s")
}
