package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// ItemAvailability shows one in-stock tile per tracked item.
func ItemAvailability() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Availability").
		Description("1 = in stock at the last successful fetch").
		Datasource(dsRef()).
		Height(rowHeight).
		Span(thirdWidth).
		WithTarget(query(0, Sel("stockmon_item_available"), "{{item}}")).
		Thresholds(steps(dashboard.Threshold{Color: "red"}, at(1, "green"))).
		ColorScheme(thresholdColors()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		TextMode(common.BigValueTextModeValueAndName)
}

// ItemStock charts units in stock per item.
func ItemStock() *timeseries.PanelBuilder {
	return series("Stock", "Units in stock per item", thirdWidth, "last", "min", "max").
		WithTarget(query(0, Sel("stockmon_item_stock"), "{{item}}"))
}

// Transitions charts availability flips per hour by direction.
func Transitions() *timeseries.PanelBuilder {
	return series("Availability Flips (1h)", "Items coming back in stock or selling out", thirdWidth).
		WithTarget(query(0,
			`sum by (direction) (increase(`+Sel("stockmon_transitions_total")+`[1h]))`,
			"{{direction}}")).
		DrawStyle(common.GraphDrawStyleBars)
}
