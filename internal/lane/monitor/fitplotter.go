package monitor

import (
	"fmt"
	"image/color"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/fsutil"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane"
)

// maxScatterPoints caps the lane pixels drawn by PlotFrame.
const maxScatterPoints = 20000

var (
	leftColor   = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	rightColor  = color.RGBA{R: 38, G: 139, B: 210, A: 255}
	pixelColor  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	marginColor = color.RGBA{R: 133, G: 153, B: 0, A: 255}
	windowColor = color.RGBA{R: 211, G: 54, B: 130, A: 255}
)

// CoefficientSample is the outcome of one successfully identified frame.
type CoefficientSample struct {
	FrameIdx    int
	Strategy    lane.Strategy
	Left        lane.LaneFit
	Right       lane.LaneFit
	LeftPixels  int
	RightPixels int
	LeftReused  bool
	RightReused bool
}

// FitPlotter records per-frame lane fits for plotting after a run.
type FitPlotter struct {
	mu        sync.Mutex
	fs        fsutil.FileSystem
	enabled   bool
	outputDir string
	samples   []CoefficientSample
}

// NewFitPlotter creates a plotter that writes through fs.
func NewFitPlotter(fs fsutil.FileSystem) *FitPlotter {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &FitPlotter{fs: fs}
}

// Start creates outputDir and begins recording a new run.
func (fp *FitPlotter) Start(outputDir string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := fp.fs.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	fp.outputDir = outputDir
	fp.enabled = true
	fp.samples = nil
	return nil
}

// Stop disables recording. Call GeneratePlots to produce output files.
func (fp *FitPlotter) Stop() {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (fp *FitPlotter) IsEnabled() bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.enabled
}

// Record stores the fits of a successfully identified frame.
func (fp *FitPlotter) Record(frameIdx int, res lane.Result) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if !fp.enabled {
		return
	}
	fp.samples = append(fp.samples, CoefficientSample{
		FrameIdx:    frameIdx,
		Strategy:    res.Strategy,
		Left:        res.Left,
		Right:       res.Right,
		LeftPixels:  res.LeftPixels,
		RightPixels: res.RightPixels,
		LeftReused:  res.LeftReused,
		RightReused: res.RightReused,
	})
}

// Samples returns a copy of the recorded samples in recording order.
func (fp *FitPlotter) Samples() []CoefficientSample {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	out := make([]CoefficientSample, len(fp.samples))
	copy(out, fp.samples)
	return out
}

// OutputDir returns the current output directory for plots.
func (fp *FitPlotter) OutputDir() string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.outputDir
}

// GeneratePlots writes one time-series PNG per coefficient plus one for
// the per-frame pixel counts. Returns the number of plots written.
func (fp *FitPlotter) GeneratePlots() (int, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(fp.samples) == 0 {
		return 0, nil
	}

	series := []struct {
		name, title, ylabel string
		value               func(lane.LaneFit) float64
	}{
		{"coeff_a.png", "Quadratic term a", "a", func(f lane.LaneFit) float64 { return f.A }},
		{"coeff_b.png", "Linear term b", "b", func(f lane.LaneFit) float64 { return f.B }},
		{"coeff_c.png", "Intercept c", "c (px)", func(f lane.LaneFit) float64 { return f.C }},
	}

	count := 0
	for _, s := range series {
		leftPts := make(plotter.XYs, len(fp.samples))
		rightPts := make(plotter.XYs, len(fp.samples))
		for i, sample := range fp.samples {
			leftPts[i] = plotter.XY{X: float64(sample.FrameIdx), Y: s.value(sample.Left)}
			rightPts[i] = plotter.XY{X: float64(sample.FrameIdx), Y: s.value(sample.Right)}
		}
		p, err := newSeriesPlot(s.title, s.ylabel, leftPts, rightPts)
		if err != nil {
			return count, fmt.Errorf("%s: %w", s.name, err)
		}
		if err := fp.save(p, 14*vg.Inch, 6*vg.Inch, filepath.Join(fp.outputDir, s.name)); err != nil {
			return count, err
		}
		count++
	}

	leftPts := make(plotter.XYs, len(fp.samples))
	rightPts := make(plotter.XYs, len(fp.samples))
	for i, sample := range fp.samples {
		leftPts[i] = plotter.XY{X: float64(sample.FrameIdx), Y: float64(sample.LeftPixels)}
		rightPts[i] = plotter.XY{X: float64(sample.FrameIdx), Y: float64(sample.RightPixels)}
	}
	p, err := newSeriesPlot("Pixels found per frame", "Pixels", leftPts, rightPts)
	if err != nil {
		return count, fmt.Errorf("pixels.png: %w", err)
	}
	if err := fp.save(p, 14*vg.Inch, 6*vg.Inch, filepath.Join(fp.outputDir, "pixels.png")); err != nil {
		return count, err
	}
	count++

	return count, nil
}

// PlotFrame renders the lane pixels of frame, the fitted curves of res and
// the ±margin band around each curve. Blind-search windows are outlined.
// The y axis is inverted so the plot reads like the image.
func (fp *FitPlotter) PlotFrame(frame *lane.Frame, res lane.Result, margin int, name string) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s search", res.Strategy)
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.X.Min, p.X.Max = 0, float64(frame.Width)
	p.Y.Min, p.Y.Max = 0, float64(frame.Height)
	p.Y.Scale = plot.InvertedScale{Normalizer: p.Y.Scale}

	pixels := frame.Nonzero()
	if n := pixels.Len(); n > 0 {
		stride := n/maxScatterPoints + 1
		pts := make(plotter.XYs, 0, n/stride+1)
		for i := 0; i < n; i += stride {
			pts = append(pts, plotter.XY{X: float64(pixels.Xs[i]), Y: float64(pixels.Ys[i])})
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = pixelColor
		scatter.GlyphStyle.Radius = vg.Points(0.5)
		p.Add(scatter)
	}

	for _, w := range res.Windows {
		outline, err := plotter.NewLine(plotter.XYs{
			{X: float64(w.XLow), Y: float64(w.YLow)},
			{X: float64(w.XHigh), Y: float64(w.YLow)},
			{X: float64(w.XHigh), Y: float64(w.YHigh)},
			{X: float64(w.XLow), Y: float64(w.YHigh)},
			{X: float64(w.XLow), Y: float64(w.YLow)},
		})
		if err != nil {
			return err
		}
		outline.Color = windowColor
		outline.Width = vg.Points(0.75)
		p.Add(outline)
	}

	for _, c := range []struct {
		label string
		fit   lane.LaneFit
		color color.Color
	}{
		{"left", res.Left, leftColor},
		{"right", res.Right, rightColor},
	} {
		for _, offset := range []float64{0, -float64(margin), float64(margin)} {
			line, err := plotter.NewLine(curvePoints(c.fit, frame.Height, offset))
			if err != nil {
				return err
			}
			if offset == 0 {
				line.Color = c.color
				line.Width = vg.Points(2)
				p.Legend.Add(c.label, line)
			} else {
				line.Color = marginColor
				line.Width = vg.Points(1)
				line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
			}
			p.Add(line)
		}
	}

	p.Legend.Top = true
	return fp.save(p, 8*vg.Inch, 4.5*vg.Inch, name)
}

// curvePoints samples x = fit(y) + offset down the frame height.
func curvePoints(fit lane.LaneFit, height int, offset float64) plotter.XYs {
	step := height / 64
	if step < 1 {
		step = 1
	}
	pts := make(plotter.XYs, 0, height/step+2)
	for y := 0; y < height; y += step {
		pts = append(pts, plotter.XY{X: fit.X(float64(y)) + offset, Y: float64(y)})
	}
	last := float64(height - 1)
	pts = append(pts, plotter.XY{X: fit.X(last) + offset, Y: last})
	return pts
}

func newSeriesPlot(title, ylabel string, left, right plotter.XYs) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = ylabel

	for _, s := range []struct {
		label string
		pts   plotter.XYs
		color color.Color
	}{
		{"left", left, leftColor},
		{"right", right, rightColor},
	} {
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return nil, err
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.label, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func (fp *FitPlotter) save(p *plot.Plot, w, h vg.Length, name string) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	f, err := fp.fs.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}
