package lane

// columnsFrame draws one-pixel-wide vertical lines spanning the full height.
func columnsFrame(width, height int, xs ...int) *Frame {
	f := NewFrame(width, height)
	for _, x := range xs {
		for y := 0; y < height; y++ {
			f.Set(x, y, 1)
		}
	}
	return f
}

// curveFrame draws one pixel per row along each fit.
func curveFrame(width, height int, fits ...LaneFit) *Frame {
	f := NewFrame(width, height)
	for _, fit := range fits {
		for y := 0; y < height; y++ {
			x := int(fit.X(float64(y)) + 0.5)
			f.Set(x, y, 1)
		}
	}
	return f
}

// fillRect marks every pixel in [x0, x1) × [y0, y1).
func fillRect(f *Frame, x0, y0, x1, y1 int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			f.Set(x, y, 1)
		}
	}
}

func testConfig() SearchConfig {
	return SearchConfig{
		NWindows:     9,
		Margin:       100,
		MinPix:       50,
		Filter:       100,
		SmoothFactor: 15,
	}
}
