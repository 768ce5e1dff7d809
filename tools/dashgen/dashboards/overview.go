// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/stock-monitor/tools/dashgen/panels"
)

// BuildOverview constructs the Stock Monitor Overview dashboard with all
// metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Stock Monitor Overview").
		Uid("stockmon-overview").
		Tags([]string{"stockmon", "stock-monitor"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	// Row 1: Overview.
	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.NextCycleStat()).
		WithPanel(panels.UptimeStat()))

	// Row 2: Cycles.
	b.WithRow(dashboard.NewRowBuilder("Cycles").
		WithPanel(panels.CyclesByOutcome()).
		WithPanel(panels.CycleDuration()))

	// Row 3: Items.
	b.WithRow(dashboard.NewRowBuilder("Items").
		WithPanel(panels.ItemAvailability()).
		WithPanel(panels.ItemStock()).
		WithPanel(panels.Transitions()))

	// Row 4: Fetching.
	b.WithRow(dashboard.NewRowBuilder("Fetching").
		WithPanel(panels.StrategyResults()).
		WithPanel(panels.FetchFailures()).
		WithPanel(panels.UpstreamRequests()))

	// Row 5: Notifications.
	b.WithRow(dashboard.NewRowBuilder("Notifications").
		WithPanel(panels.NotificationsSent()).
		WithPanel(panels.NotificationLatency()).
		WithPanel(panels.NotificationFailures()))

	// Row 6: State store.
	b.WithRow(dashboard.NewRowBuilder("State").
		WithPanel(panels.StateLoadFailures()).
		WithPanel(panels.StateSaveFailures()).
		WithPanel(panels.StateSaveSkips()))

	// Row 7: HTTP.
	b.WithRow(dashboard.NewRowBuilder("Ops API").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()).
		WithPanel(panels.RequestsByRoute()).
		WithPanel(panels.HandlerPanics()).
		WithPanel(panels.InFlight()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
