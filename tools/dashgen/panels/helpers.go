// Package panels builds the Grafana panels for the stock-monitor overview
// dashboard.
package panels

import (
	"fmt"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/cog"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// job is the scrape job every panel query is scoped to.
const job = "stock-monitor"

// Grid sizes on Grafana's 24-column layout.
const (
	statHeight = 4
	statWidth  = 6
	rowHeight  = 8
	halfWidth  = 12
	thirdWidth = 8
)

// Sel returns a selector for metric scoped to the stock-monitor job, with
// extra label matchers such as `outcome!="ok"` appended.
func Sel(metric string, matchers ...string) string {
	all := append([]string{fmt.Sprintf("job=%q", job)}, matchers...)
	return metric + "{" + strings.Join(all, ",") + "}"
}

// Quantile is the q quantile over 5m of the histogram named base, without
// its _bucket suffix.
func Quantile(q float64, base string) string {
	return fmt.Sprintf("histogram_quantile(%g, sum(rate(%s[5m])) by (le))", q, Sel(base+"_bucket"))
}

// PerMinute turns a per-second rate expression into a per-minute one.
func PerMinute(expr string) string {
	return expr + " * 60"
}

func dsRef() dashboard.DataSourceRef {
	return dashboard.DataSourceRef{
		Type: cog.ToPtr("prometheus"),
		Uid:  cog.ToPtr("${datasource}"),
	}
}

// query builds a target. Ref IDs are assigned A, B, C in call order.
func query(ref int, expr, legend string) *prometheus.DataqueryBuilder {
	return prometheus.NewDataqueryBuilder().
		Expr(expr).
		LegendFormat(legend).
		RefId(string(rune('A' + ref)))
}

// series is the base for line and bar charts: palette colors and a
// table legend with the given calculations.
func series(title, desc string, width uint32, legendCalcs ...string) *timeseries.PanelBuilder {
	b := timeseries.NewPanelBuilder().
		Title(title).
		Description(desc).
		Datasource(dsRef()).
		Height(rowHeight).
		Span(width).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(greenOnly()).
		ColorScheme(paletteColors()).
		DrawStyle(common.GraphDrawStyleLine)
	if len(legendCalcs) > 0 {
		b.Legend(common.NewVizLegendOptionsBuilder().
			DisplayMode(common.LegendDisplayModeTable).
			Placement(common.LegendPlacementBottom).
			Calcs(legendCalcs)).
			Tooltip(common.NewVizTooltipOptionsBuilder().
				Mode(common.TooltipDisplayModeMulti).
				Sort(common.SortOrderDescending))
	}
	return b
}

// single is the base for one-number panels colored by threshold.
func single(title, desc string, width, height uint32, expr string) *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title(title).
		Description(desc).
		Datasource(dsRef()).
		Height(height).
		Span(width).
		WithTarget(query(0, expr, "")).
		Thresholds(greenOnly()).
		ColorScheme(thresholdColors())
}

// upDown colors a 0/1 gauge red at 0 and green at 1.
func upDown(title, desc, expr string) *stat.PanelBuilder {
	return single(title, desc, statWidth, statHeight, expr).
		Thresholds(steps(dashboard.Threshold{Color: "red"}, at(1, "green"))).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		TextMode(common.BigValueTextModeValue)
}

// escalating turns yellow at warn and red at crit.
func escalating(warn, crit float64) cog.Builder[dashboard.ThresholdsConfig] {
	return steps(dashboard.Threshold{Color: "green"}, at(warn, "yellow"), at(crit, "red"))
}

func greenOnly() cog.Builder[dashboard.ThresholdsConfig] {
	return steps(dashboard.Threshold{Color: "green"})
}

func at(v float64, color string) dashboard.Threshold {
	return dashboard.Threshold{Value: cog.ToPtr(v), Color: color}
}

func steps(s ...dashboard.Threshold) cog.Builder[dashboard.ThresholdsConfig] {
	return dashboard.NewThresholdsConfigBuilder().
		Mode(dashboard.ThresholdsModeAbsolute).
		Steps(s)
}

func thresholdColors() cog.Builder[dashboard.FieldColor] {
	return dashboard.NewFieldColorBuilder().Mode(dashboard.FieldColorModeIdThresholds)
}

func paletteColors() cog.Builder[dashboard.FieldColor] {
	return dashboard.NewFieldColorBuilder().Mode(dashboard.FieldColorModeIdPaletteClassic)
}
