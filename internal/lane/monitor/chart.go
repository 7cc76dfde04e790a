package monitor

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane"
)

// ChartOptions controls the HTML coefficient chart.
type ChartOptions struct {
	Title string
	// AssetsHost overrides the echarts JavaScript location, e.g. for
	// offline viewing. Empty uses the go-echarts default CDN.
	AssetsHost string
}

// RenderCoefficientChart writes an HTML page with one line chart per
// polynomial coefficient and one for the per-frame pixel counts, each
// showing the left and right lanes.
func RenderCoefficientChart(w io.Writer, samples []CoefficientSample, o ChartOptions) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to chart")
	}
	title := o.Title
	if title == "" {
		title = "Lane fits"
	}

	frames := make([]string, len(samples))
	for i, s := range samples {
		frames[i] = strconv.Itoa(s.FrameIdx)
	}

	coeff := func(name string, value func(lane.LaneFit) float64) *charts.Line {
		left := make([]opts.LineData, len(samples))
		right := make([]opts.LineData, len(samples))
		for i, s := range samples {
			left[i] = opts.LineData{Value: value(s.Left)}
			right[i] = opts.LineData{Value: value(s.Right)}
		}
		return newLineChart(title, name, frames, left, right, o.AssetsHost)
	}

	leftPx := make([]opts.LineData, len(samples))
	rightPx := make([]opts.LineData, len(samples))
	for i, s := range samples {
		leftPx[i] = opts.LineData{Value: s.LeftPixels}
		rightPx[i] = opts.LineData{Value: s.RightPixels}
	}

	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(
		coeff("a (quadratic)", func(f lane.LaneFit) float64 { return f.A }),
		coeff("b (linear)", func(f lane.LaneFit) float64 { return f.B }),
		coeff("c (intercept)", func(f lane.LaneFit) float64 { return f.C }),
		newLineChart(title, "pixels found", frames, leftPx, rightPx, o.AssetsHost),
	)
	return page.Render(w)
}

func newLineChart(title, subtitle string, frames []string, left, right []opts.LineData, assetsHost string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "360px", AssetsHost: assetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(frames).
		AddSeries("left", left, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#dc322f"})).
		AddSeries("right", right, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#268bd2"}))
	return line
}
