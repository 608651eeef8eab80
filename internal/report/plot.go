package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/clonebench/internal/evaluate"
)

const (
	plotPageTitle   = "clonebench evaluation"
	plotChartWidth  = "100%"
	plotChartHeight = "500px"
	plotPieHeight   = "400px"
	plotPieRadius   = "60%"
	xAxisRotate     = 45
)

func renderPlot(w io.Writer, res *evaluate.Result) error {
	page := components.NewPage()
	page.PageTitle = plotPageTitle
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(outcomePie(res), groupBar(res))

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

func outcomePie(res *evaluate.Result) *charts.Pie {
	m := res.Metrics

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Outcomes",
			Subtitle: fmt.Sprintf("precision %.4f, recall %.4f, F1 %.4f", m.Precision, m.Recall, m.F1),
			Left:     "center",
		}),
		charts.WithInitializationOpts(opts.Initialization{Width: plotChartWidth, Height: plotPieHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)

	pie.AddSeries("Outcomes", []opts.PieData{
		{Name: "True positives", Value: m.TP},
		{Name: "False positives", Value: m.FP},
		{Name: "False negatives", Value: m.FN},
	}).SetSeriesOptions(
		charts.WithPieChartOpts(opts.PieChart{Radius: plotPieRadius}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
	)

	return pie
}

func groupBar(res *evaluate.Result) *charts.Bar {
	labels := make([]string, len(res.Groups))
	precision := make([]opts.BarData, len(res.Groups))
	recall := make([]opts.BarData, len(res.Groups))
	f1 := make([]opts.BarData, len(res.Groups))

	for i, g := range res.Groups {
		labels[i] = g.Group
		if labels[i] == "" {
			labels[i] = ungroupedLabel
		}

		precision[i] = opts.BarData{Value: g.Metrics.Precision}
		recall[i] = opts.BarData{Value: g.Metrics.Recall}
		f1[i] = opts.BarData{Value: g.Metrics.F1}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Per task", Subtitle: "precision, recall and F1 by task group", Left: "center"}),
		charts.WithInitializationOpts(opts.Initialization{Width: plotChartWidth, Height: plotChartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score", Min: 0, Max: 1}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}, opts.DataZoom{Type: "inside"}),
	)
	bar.SetXAxis(labels).
		AddSeries("Precision", precision).
		AddSeries("Recall", recall).
		AddSeries("F1", f1)

	return bar
}
