package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/impulse-data/trajectory.report/internal/physics"
)

// SavePlots writes static PNG plots for one track into dir: the path in
// meters, the energy balance over time, and speed over time. Returns the
// written file paths.
func SavePlots(dir string, trackID int64, records []physics.Record) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}

	var written []string

	trajectory := plot.New()
	trajectory.Title.Text = fmt.Sprintf("Track %d trajectory", trackID)
	trajectory.X.Label.Text = "x (m)"
	trajectory.Y.Label.Text = "y (m)"

	raw := make(plotter.XYs, len(records))
	smooth := make(plotter.XYs, len(records))
	for i, r := range records {
		raw[i] = plotter.XY{X: r.XM, Y: r.YM}
		smooth[i] = plotter.XY{X: r.XMSmooth, Y: r.YMSmooth}
	}
	rawLine, err := plotter.NewLine(raw)
	if err != nil {
		return written, fmt.Errorf("failed to build trajectory line: %w", err)
	}
	rawLine.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	smoothLine, err := plotter.NewLine(smooth)
	if err != nil {
		return written, fmt.Errorf("failed to build smoothed line: %w", err)
	}
	smoothLine.Color = color.RGBA{R: 220, G: 90, B: 60, A: 255}
	trajectory.Add(rawLine, smoothLine)
	trajectory.Legend.Add("raw", rawLine)
	trajectory.Legend.Add("smoothed", smoothLine)

	path := filepath.Join(dir, fmt.Sprintf("track_%d_trajectory.png", trackID))
	if err := trajectory.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return written, fmt.Errorf("failed to save trajectory plot: %w", err)
	}
	written = append(written, path)

	energy := plot.New()
	energy.Title.Text = fmt.Sprintf("Track %d energy", trackID)
	energy.X.Label.Text = "t (s)"
	energy.Y.Label.Text = "E (J)"

	series := []struct {
		name  string
		get   func(physics.Record) float64
		color color.RGBA
	}{
		{"kinetic", func(r physics.Record) float64 { return r.KineticEnergy }, color.RGBA{R: 70, G: 130, B: 180, A: 255}},
		{"potential", func(r physics.Record) float64 { return r.PotentialEnergy }, color.RGBA{R: 60, G: 160, B: 90, A: 255}},
		{"total", func(r physics.Record) float64 { return r.TotalEnergy }, color.RGBA{R: 220, G: 90, B: 60, A: 255}},
	}
	for _, s := range series {
		pts := make(plotter.XYs, len(records))
		for i, r := range records {
			pts[i] = plotter.XY{X: r.TimeS, Y: s.get(r)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return written, fmt.Errorf("failed to build %s energy line: %w", s.name, err)
		}
		line.Color = s.color
		energy.Add(line)
		energy.Legend.Add(s.name, line)
	}

	path = filepath.Join(dir, fmt.Sprintf("track_%d_energy.png", trackID))
	if err := energy.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return written, fmt.Errorf("failed to save energy plot: %w", err)
	}
	written = append(written, path)

	speed := plot.New()
	speed.Title.Text = fmt.Sprintf("Track %d speed", trackID)
	speed.X.Label.Text = "t (s)"
	speed.Y.Label.Text = "speed (m/s)"

	pts := make(plotter.XYs, len(records))
	for i, r := range records {
		pts[i] = plotter.XY{X: r.TimeS, Y: r.Speed}
	}
	speedLine, err := plotter.NewLine(pts)
	if err != nil {
		return written, fmt.Errorf("failed to build speed line: %w", err)
	}
	speedLine.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	speed.Add(speedLine)

	path = filepath.Join(dir, fmt.Sprintf("track_%d_speed.png", trackID))
	if err := speed.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return written, fmt.Errorf("failed to save speed plot: %w", err)
	}
	written = append(written, path)

	return written, nil
}
