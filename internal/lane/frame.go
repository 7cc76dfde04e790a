package lane

import (
	"fmt"
	"image"
	"image/color"
)

// Pixel is an integer (x, y) coordinate in warped frame space.
type Pixel struct {
	X, Y int
}

// Frame is a binary bird's-eye image. Nonzero entries mark lane candidates.
// Pix is row-major: the value at (x, y) is Pix[y*Width+x].
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates an all-background frame.
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// FrameFromImage converts any image to a binary frame. A pixel is a lane
// candidate when its gray luminance is nonzero.
func FrameFromImage(img image.Image) *Frame {
	return FrameFromImageThreshold(img, 0)
}

// FrameFromImageThreshold converts an image to a binary frame, marking
// pixels whose gray luminance exceeds threshold. Lossy encodings need a
// threshold above zero to suppress compression noise.
func FrameFromImageThreshold(img image.Image, threshold uint8) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < f.Height; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+f.Width]
			for x, v := range row {
				if v > threshold {
					f.Pix[y*f.Width+x] = 1
				}
			}
		}
		return f
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y > threshold {
				f.Pix[y*f.Width+x] = 1
			}
		}
	}
	return f
}

// Set writes v at (x, y). Out-of-range coordinates are ignored.
func (f *Frame) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	f.Pix[y*f.Width+x] = v
}

// At returns the value at (x, y), or 0 outside the frame.
func (f *Frame) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Pix[y*f.Width+x]
}

// Bounds returns the frame rectangle with its origin at (0, 0).
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Validate checks the frame is searchable: at least two columns (so the
// histogram splits into two halves), one row, and a matching buffer.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Width < 2 || f.Height < 1 {
		return fmt.Errorf("%w: %dx%d is too small", ErrInvalidFrame, f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height {
		return fmt.Errorf("%w: buffer holds %d values, want %d", ErrInvalidFrame, len(f.Pix), f.Width*f.Height)
	}
	return nil
}

// PixelSet holds the coordinates of every nonzero pixel of one frame in
// row-major scan order, so Ys is non-decreasing.
type PixelSet struct {
	Xs []int
	Ys []int
}

// Len returns the number of nonzero pixels.
func (ps PixelSet) Len() int {
	return len(ps.Xs)
}

// Gather returns the pixels at the given indices, in index order.
func (ps PixelSet) Gather(indices []int) []Pixel {
	if len(indices) == 0 {
		return nil
	}
	out := make([]Pixel, len(indices))
	for i, idx := range indices {
		out[i] = Pixel{X: ps.Xs[idx], Y: ps.Ys[idx]}
	}
	return out
}

// Nonzero derives the frame's PixelSet.
func (f *Frame) Nonzero() PixelSet {
	var ps PixelSet
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Width : (y+1)*f.Width]
		for x, v := range row {
			if v != 0 {
				ps.Xs = append(ps.Xs, x)
				ps.Ys = append(ps.Ys, y)
			}
		}
	}
	return ps
}
