// Package plot renders benchmark series as an HTML page with one line
// chart per device.
package plot

import (
	"errors"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/karlbench/karlbench/report"
)

// Render writes a chart page for data to w.
func Render(w io.Writer, title string, data []report.DeviceSeries) error {
	if len(data) == 0 {
		return errors.New("no series to plot")
	}

	page := components.NewPage()
	page.PageTitle = title

	for _, dev := range data {
		page.AddCharts(deviceChart(dev))
	}

	return page.Render(w)
}

func deviceChart(dev report.DeviceSeries) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    dev.Disk.Label,
			Subtitle: dev.Disk.Mountpoint,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Bytes written", Type: "value"}),
	)

	for _, run := range dev.Runs {
		for _, s := range run {
			line.AddSeries(s.Label, points(s))
		}
	}

	return line
}

func points(s report.Series) []opts.LineData {
	data := make([]opts.LineData, 0, len(s.X))
	for i := range s.X {
		data = append(data, opts.LineData{Value: []interface{}{s.X[i], s.Y[i]}})
	}

	return data
}
