// Package report renders derived trajectory data for humans: interactive
// HTML charts for the API and static PNG plots for batch output.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/impulse-data/trajectory.report/internal/physics"
)

// RenderTrajectoryChart writes an HTML scatter of the track's path in
// meters, coloured by speed so fast segments stand out.
func RenderTrajectoryChart(w io.Writer, trackID int64, records []physics.Record) error {
	data := make([]opts.ScatterData, 0, len(records))
	maxSpeed := 0.0
	for _, r := range records {
		if r.Speed > maxSpeed {
			maxSpeed = r.Speed
		}
		data = append(data, opts.ScatterData{Value: []interface{}{r.XM, r.YM, r.Speed}})
	}
	if maxSpeed == 0 {
		maxSpeed = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Trajectory", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Track %d trajectory", trackID),
			Subtitle: fmt.Sprintf("%d samples", len(records)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxSpeed),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("position", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	return scatter.Render(w)
}

// RenderEnergyChart writes an HTML line chart of kinetic, potential and
// total energy over time.
func RenderEnergyChart(w io.Writer, trackID int64, records []physics.Record) error {
	times := make([]string, len(records))
	ke := make([]opts.LineData, len(records))
	pe := make([]opts.LineData, len(records))
	te := make([]opts.LineData, len(records))
	for i, r := range records {
		times[i] = fmt.Sprintf("%.3f", r.TimeS)
		ke[i] = opts.LineData{Value: r.KineticEnergy}
		pe[i] = opts.LineData{Value: r.PotentialEnergy}
		te[i] = opts.LineData{Value: r.TotalEnergy}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Energy", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Track %d energy", trackID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "E (J)"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(times).
		AddSeries("kinetic", ke).
		AddSeries("potential", pe).
		AddSeries("total", te)

	return line.Render(w)
}

// RenderSpeedChart writes an HTML line chart of speed and acceleration
// magnitude over time.
func RenderSpeedChart(w io.Writer, trackID int64, records []physics.Record) error {
	times := make([]string, len(records))
	speed := make([]opts.LineData, len(records))
	accel := make([]opts.LineData, len(records))
	for i, r := range records {
		times[i] = fmt.Sprintf("%.3f", r.TimeS)
		speed[i] = opts.LineData{Value: r.Speed}
		accel[i] = opts.LineData{Value: r.AccelMag}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Speed", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Track %d speed and acceleration", trackID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "m/s, m/s²"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(times).
		AddSeries("speed", speed).
		AddSeries("acceleration", accel)

	return line.Render(w)
}
