package lane

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Strategy identifies which scan located the lane pixels of a frame.
type Strategy int

const (
	// StrategyBlind is the histogram-seeded sliding-window search used
	// while either lane lacks a fit.
	StrategyBlind Strategy = iota
	// StrategySelective accepts pixels within Margin of the previous fits.
	StrategySelective
)

func (s Strategy) String() string {
	switch s {
	case StrategyBlind:
		return "blind"
	case StrategySelective:
		return "selective"
	default:
		return "unknown"
	}
}

// SearchWindow is one sliding-window box. X and Y bounds are half-open:
// a pixel is inside when XLow <= x < XHigh and YLow <= y < YHigh.
type SearchWindow struct {
	Band   int
	Left   bool
	XLow   int
	XHigh  int
	YLow   int
	YHigh  int
	Pixels int
}

// selectStrategy picks the blind search unless both lanes are fitted.
func selectStrategy(left, right *LaneFit) Strategy {
	if left == nil || right == nil {
		return StrategyBlind
	}
	return StrategySelective
}

// blindScan is the output of the sliding-window search.
type blindScan struct {
	leftIdx  []int
	rightIdx []int
	windows  []SearchWindow
	leftX    int // Final window centres after the topmost band
	rightX   int
}

// histogramBases returns the starting x for each lane: the column with the
// most candidate pixels over the bottom half of the frame, searched
// separately on either side of the midpoint. Ties go to the leftmost column.
func histogramBases(f *Frame) (leftX, rightX int) {
	hist := make([]float64, f.Width)
	for y := f.Height / 2; y < f.Height; y++ {
		row := f.Pix[y*f.Width : (y+1)*f.Width]
		for x, v := range row {
			if v != 0 {
				hist[x]++
			}
		}
	}
	midpoint := f.Width / 2
	leftX = floats.MaxIdx(hist[:midpoint])
	rightX = floats.MaxIdx(hist[midpoint:]) + midpoint
	return leftX, rightX
}

// blindSearch runs the sliding-window scan from the histogram bases,
// processing nwindows equal bands from the bottom of the frame upwards.
// Rows above nwindows*windowHeight are never searched.
func blindSearch(f *Frame, ps PixelSet, cfg SearchConfig) blindScan {
	leftX, rightX := histogramBases(f)
	windowHeight := f.Height / cfg.NWindows

	scan := blindScan{windows: make([]SearchWindow, 0, 2*cfg.NWindows)}
	for band := 0; band < cfg.NWindows; band++ {
		yLow := f.Height - (band+1)*windowHeight
		yHigh := f.Height - band*windowHeight

		// Ys is sorted, so the band is one contiguous index range.
		start := sort.SearchInts(ps.Ys, yLow)
		end := sort.SearchInts(ps.Ys, yHigh)

		left := SearchWindow{Band: band, Left: true, XLow: leftX - cfg.Margin, XHigh: leftX + cfg.Margin, YLow: yLow, YHigh: yHigh}
		right := SearchWindow{Band: band, XLow: rightX - cfg.Margin, XHigh: rightX + cfg.Margin, YLow: yLow, YHigh: yHigh}

		var leftSum, rightSum int
		for i := start; i < end; i++ {
			x := ps.Xs[i]
			if x >= left.XLow && x < left.XHigh {
				scan.leftIdx = append(scan.leftIdx, i)
				leftSum += x
				left.Pixels++
			}
			if x >= right.XLow && x < right.XHigh {
				scan.rightIdx = append(scan.rightIdx, i)
				rightSum += x
				right.Pixels++
			}
		}
		scan.windows = append(scan.windows, left, right)

		if left.Pixels > cfg.MinPix {
			leftX = int(float64(leftSum) / float64(left.Pixels))
		}
		if right.Pixels > cfg.MinPix {
			rightX = int(float64(rightSum) / float64(right.Pixels))
		}
	}
	scan.leftX, scan.rightX = leftX, rightX
	return scan
}

// selectiveSearch accepts every pixel strictly within margin of each fit.
// Both lanes scan the full set independently; a pixel may match both.
func selectiveSearch(ps PixelSet, left, right LaneFit, margin int) (leftIdx, rightIdx []int) {
	m := float64(margin)
	for i := range ps.Xs {
		x := float64(ps.Xs[i])
		y := float64(ps.Ys[i])
		if lx := left.X(y); x > lx-m && x < lx+m {
			leftIdx = append(leftIdx, i)
		}
		if rx := right.X(y); x > rx-m && x < rx+m {
			rightIdx = append(rightIdx, i)
		}
	}
	return leftIdx, rightIdx
}
