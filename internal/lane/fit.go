package lane

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LaneFit is a second-order polynomial x = A·y² + B·y + C describing one
// lane boundary in warped frame coordinates.
type LaneFit struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// X evaluates the polynomial at row y.
func (f LaneFit) X(y float64) float64 {
	return f.A*y*y + f.B*y + f.C
}

// Coefficients returns [A, B, C].
func (f LaneFit) Coefficients() [3]float64 {
	return [3]float64{f.A, f.B, f.C}
}

func (f LaneFit) String() string {
	return fmt.Sprintf("x = %.6g·y² + %.6g·y + %.6g", f.A, f.B, f.C)
}

// minFitRows is the number of distinct rows a quadratic needs.
const minFitRows = 3

// PolyFit2 least-squares fits x = a·y² + b·y + c to the pixels.
// Returns ErrDegenerateFit when fewer than three distinct y values exist.
func PolyFit2(pixels []Pixel) (LaneFit, error) {
	if distinctRows(pixels) < minFitRows {
		return LaneFit{}, fmt.Errorf("%w: need %d distinct rows", ErrDegenerateFit, minFitRows)
	}

	n := len(pixels)
	ys := make([]float64, n)
	xs := make([]float64, n)
	for i, p := range pixels {
		ys[i] = float64(p.Y)
		xs[i] = float64(p.X)
	}

	// Normalise y to t = (y-m)/s so the Vandermonde columns stay well
	// conditioned, then map the coefficients back.
	m := stat.Mean(ys, nil)
	s := (floats.Max(ys) - floats.Min(ys)) / 2

	a := mat.NewDense(n, 3, nil)
	for i, y := range ys {
		t := (y - m) / s
		a.Set(i, 0, t*t)
		a.Set(i, 1, t)
		a.Set(i, 2, 1)
	}
	b := mat.NewVecDense(n, xs)

	var qr mat.QR
	qr.Factorize(a)
	var p mat.VecDense
	if err := qr.SolveVecTo(&p, false, b); err != nil {
		return LaneFit{}, fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}

	p0, p1, p2 := p.AtVec(0), p.AtVec(1), p.AtVec(2)
	s2 := s * s
	return LaneFit{
		A: p0 / s2,
		B: -2*p0*m/s2 + p1/s,
		C: p0*m*m/s2 - p1*m/s + p2,
	}, nil
}

// distinctRows counts distinct y values, stopping once minFitRows is reached.
func distinctRows(pixels []Pixel) int {
	seen := make(map[int]struct{}, minFitRows)
	for _, p := range pixels {
		seen[p.Y] = struct{}{}
		if len(seen) >= minFitRows {
			break
		}
	}
	return len(seen)
}
