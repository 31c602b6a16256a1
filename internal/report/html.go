package report

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func xyLine(title, subtitle, xName, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "iqsim", Theme: "dark", Width: "1200px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xName, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName, NameLocation: "middle", NameGap: 50}),
	)
	return line
}

// RenderHTML writes an interactive chart page for the run.
func RenderHTML(w io.Writer, run Run) error {
	if len(run.Track) == 0 {
		return ErrEmptyRun
	}

	traj := xyLine("Target Trajectory", run.Name, "Downrange (m)", "Altitude (m)")
	track := make([]opts.LineData, 0, len(run.Track))
	for _, t := range run.Track {
		if !t.Active && len(track) > 0 {
			break
		}
		track = append(track, opts.LineData{Value: []interface{}{t.Downrange, t.Altitude}})
	}
	traj.AddSeries("target", track, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("iqsim %s", run.Name)
	page.AddCharts(traj)

	if len(run.Chirps) > 0 {
		rng := xyLine("Range", fmt.Sprintf("chirps=%d", len(run.Chirps)), "Time (s)", "Range (m)")
		freq := xyLine("Doppler and Beat", fmt.Sprintf("chirps=%d", len(run.Chirps)), "Time (s)", "Frequency (Hz)")

		ranges := make([]opts.LineData, 0, len(run.Chirps))
		cw := make([]opts.LineData, 0, len(run.Chirps))
		beat := make([]opts.LineData, 0, len(run.Chirps))
		for _, c := range run.Chirps {
			ranges = append(ranges, opts.LineData{Value: []interface{}{c.TimeS, c.RangeM}})
			cw = append(cw, opts.LineData{Value: []interface{}{c.TimeS, c.DopplerCWHz}})
			beat = append(beat, opts.LineData{Value: []interface{}{c.TimeS, c.ActiveBeatHz}})
		}
		rng.AddSeries("range", ranges)
		freq.AddSeries("CW Doppler", cw).AddSeries("FMCW beat", beat)
		page.AddCharts(rng, freq)
	}

	return page.Render(w)
}

// RunLoader fetches a run by ID for the chart handler.
type RunLoader func(runID string) (Run, error)

// Handler serves the chart page for ?run_id=<id>.
func Handler(load RunLoader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runID := r.URL.Query().Get("run_id")
		if runID == "" {
			http.Error(w, "missing run_id", http.StatusBadRequest)
			return
		}
		run, err := load(runID)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to load run: %v", err), http.StatusInternalServerError)
			return
		}
		if len(run.Track) == 0 {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		var buf bytes.Buffer
		if err := RenderHTML(&buf, run); err != nil {
			http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
}
