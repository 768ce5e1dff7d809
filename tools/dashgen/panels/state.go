package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

func stateCounter(title, desc, metric string) *stat.PanelBuilder {
	return single(title, desc, thirdWidth, statHeight, "increase("+Sel(metric)+"[24h])").
		Thresholds(escalating(1, 10)).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// StateLoadFailures counts loads that failed or found corrupt data.
func StateLoadFailures() *stat.PanelBuilder {
	return stateCounter("State Load Failures (24h)",
		"Availability state loads that failed or found corrupt data",
		"stockmon_state_load_failures_total")
}

// StateSaveFailures counts failed saves.
func StateSaveFailures() *stat.PanelBuilder {
	return stateCounter("State Save Failures (24h)",
		"Availability state saves that failed",
		"stockmon_state_save_failures_total")
}

// StateSaveSkips counts cycles that held back a save because no load had
// succeeded yet.
func StateSaveSkips() *stat.PanelBuilder {
	return stateCounter("State Saves Held Back (24h)",
		"Cycles that skipped saving because the store has not been read since start",
		"stockmon_state_save_skipped_total")
}
