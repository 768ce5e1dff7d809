package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

// HealthzStat shows whether the process answers /healthz.
func HealthzStat() *stat.PanelBuilder {
	return upDown("Healthz", "Health check status (1 = ok, 0 = failing)", Sel("stockmon_healthz_up"))
}

// ReadyzStat shows whether the first cycle has completed.
func ReadyzStat() *stat.PanelBuilder {
	return upDown("Readyz", "Readiness (1 = first cycle completed, 0 = not yet)", Sel("stockmon_readyz_up"))
}

// NextCycleStat counts down to the next scheduled cycle.
func NextCycleStat() *stat.PanelBuilder {
	return single("Next Cycle", "Time until the next scheduled monitoring cycle",
		statWidth, statHeight, Sel("stockmon_next_cycle_timestamp_seconds")+" - time()").
		Unit("s").
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}

// UptimeStat shows time since process start.
func UptimeStat() *stat.PanelBuilder {
	return single("Uptime", "Time since process start",
		statWidth, statHeight, "time() - "+Sel("process_start_time_seconds")).
		Unit("s").
		GraphMode(common.BigValueGraphModeNone)
}
