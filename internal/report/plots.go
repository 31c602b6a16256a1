package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot file names written by WritePlots.
const (
	TrajectoryPlot = "trajectory.png"
	RangePlot      = "range.png"
	FrequencyPlot  = "frequency.png"
)

// ErrEmptyRun is returned when there is nothing to draw.
var ErrEmptyRun = errors.New("run has no recorded ticks")

var (
	cwColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	beatColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// WritePlots renders the run's PNG plots into outputDir and returns the paths written.
func WritePlots(run Run, outputDir string) ([]string, error) {
	if len(run.Track) == 0 {
		return nil, ErrEmptyRun
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}

	var written []string
	save := func(p *plot.Plot, name string) error {
		path := filepath.Join(outputDir, name)
		if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	traj, err := trajectoryPlot(run)
	if err != nil {
		return written, err
	}
	if err := save(traj, TrajectoryPlot); err != nil {
		return written, err
	}

	// Chirp plots need at least one chirp; a flight-time run has none.
	if len(run.Chirps) == 0 {
		return written, nil
	}

	rng, err := rangePlot(run)
	if err != nil {
		return written, err
	}
	if err := save(rng, RangePlot); err != nil {
		return written, err
	}

	freq, err := frequencyPlot(run)
	if err != nil {
		return written, err
	}
	if err := save(freq, FrequencyPlot); err != nil {
		return written, err
	}
	return written, nil
}

func trajectoryPlot(run Run) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Target Trajectory", run.Name)
	p.X.Label.Text = "Downrange (m)"
	p.Y.Label.Text = "Altitude (m)"

	pts := make(plotter.XYs, 0, len(run.Track))
	for _, t := range run.Track {
		if !t.Active {
			break
		}
		pts = append(pts, plotter.XY{X: t.Downrange, Y: t.Altitude})
	}
	if len(pts) == 0 {
		// Inactive from the first tick; show where it sits.
		t := run.Track[0]
		pts = append(pts, plotter.XY{X: t.Downrange, Y: t.Altitude})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	line.Color = cwColor
	p.Add(line, plotter.NewGrid())
	return p, nil
}

func rangePlot(run Run) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Range", run.Name)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Range (m)"

	pts := make(plotter.XYs, 0, len(run.Chirps))
	for _, c := range run.Chirps {
		pts = append(pts, plotter.XY{X: c.TimeS, Y: c.RangeM})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	line.Color = cwColor
	p.Add(line, plotter.NewGrid())
	return p, nil
}

func frequencyPlot(run Run) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - Doppler and Beat", run.Name)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Frequency (Hz)"

	cw := make(plotter.XYs, 0, len(run.Chirps))
	beat := make(plotter.XYs, 0, len(run.Chirps))
	for _, c := range run.Chirps {
		cw = append(cw, plotter.XY{X: c.TimeS, Y: c.DopplerCWHz})
		beat = append(beat, plotter.XY{X: c.TimeS, Y: c.ActiveBeatHz})
	}

	cwLine, err := plotter.NewLine(cw)
	if err != nil {
		return nil, err
	}
	cwLine.Width = vg.Points(1)
	cwLine.Color = cwColor

	beatLine, err := plotter.NewLine(beat)
	if err != nil {
		return nil, err
	}
	beatLine.Width = vg.Points(1)
	beatLine.Color = beatColor

	p.Add(cwLine, beatLine, plotter.NewGrid())
	p.Legend.Add("CW Doppler", cwLine)
	p.Legend.Add("FMCW beat", beatLine)
	p.Legend.Top = true
	return p, nil
}
