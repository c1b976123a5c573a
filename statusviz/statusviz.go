// Package statusviz renders an aligner.Status snapshot as an HTML bar
// chart: one category per stream, with buffer fill and release latency (ms)
// as two bar series sharing a single value axis. It is a debugging aid, not part of the engine's hot path —
// nothing in aligner or transformer imports it.
package statusviz

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/saarnold/drivers-transformer/aligner"
)

// Render writes an HTML page containing a bar chart of status to w: one bar
// per stream showing its current buffer fill, with release latency
// (milliseconds) plotted as a second series on the same categories.
func Render(w io.Writer, status aligner.Status) error {
	names := make([]string, 0, len(status.Streams))
	fill := make([]opts.BarData, 0, len(status.Streams))
	latencyMs := make([]opts.BarData, 0, len(status.Streams))

	for _, s := range status.Streams {
		label := s.Name
		if !s.Enabled {
			label += " (disabled)"
		}
		names = append(names, label)
		fill = append(fill, opts.BarData{Value: s.BufferFill})
		latencyMs = append(latencyMs, opts.BarData{Value: float64(s.Latency) / float64(time.Millisecond)})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Stream Aligner Status", Theme: "dark"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Stream Aligner Status",
			Subtitle: fmt.Sprintf("snapshot at %s, %d streams", status.Time.Format(time.RFC3339), len(status.Streams)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "buffer fill / latency (ms)"}),
	)
	bar.SetXAxis(names).
		AddSeries("buffer fill", fill).
		AddSeries("latency (ms)", latencyMs)

	return bar.Render(w)
}
