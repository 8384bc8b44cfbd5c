package detector

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Shape selects the expected spectral footprint of a channel
type Shape string

const (
	ShapeRectangular Shape = "rect"
	ShapeCosine      Shape = "cos"
)

// ParseShape accepts the short names used on the command line as well as
// the long forms "rectangular" and "raised-cosine".
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rect", "rectangular":
		return ShapeRectangular, nil
	case "cos", "cosine", "raised-cosine":
		return ShapeCosine, nil
	default:
		return "", configurationError("unknown template shape %q", s)
	}
}

// Template is a normalized correlation template. Positive taps sum to 1 and
// negative taps sum to -1.
type Template []float64

// RectTaps returns taps for a signal with a rectangular spectrum occupying
// the middle half of the template. The outer quarters mark the noise floor.
func RectTaps(ntaps int) []float64 {
	taps := make([]float64, ntaps)
	for i := range taps {
		taps[i] = -1
	}
	for i := ntaps / 4; i < ntaps*3/4; i++ {
		taps[i] = 1
	}
	return taps
}

// CosTaps returns one period of a cosine centered on the template: a
// positive lobe in the middle and negative side lobes.
func CosTaps(ntaps int) []float64 {
	taps := make([]float64, ntaps)
	mid := float64(ntaps-1) / 2
	for x := range taps {
		taps[x] = math.Cos((float64(x) - mid) / float64(ntaps-1) * 2 * math.Pi)
	}
	return taps
}

// Normalize scales positive taps so they sum to 1 and negative taps so they
// sum to -1. Zero taps are left as they are.
func Normalize(taps []float64) (Template, error) {
	abs := make([]float64, len(taps))
	for i, t := range taps {
		abs[i] = math.Abs(t)
	}
	a := floats.Sum(abs)
	b := floats.Sum(taps)

	if a+b == 0 || a-b == 0 {
		return nil, NewDetectorError(ErrCodeDegenerateTemplate,
			fmt.Sprintf("template needs both positive and negative taps (sum |t| = %g, sum t = %g)", a, b), nil)
	}

	p := 1 / ((a + b) / 2)
	n := 1 / ((a - b) / 2)

	tmpl := make(Template, len(taps))
	for i, t := range taps {
		if t > 0 {
			tmpl[i] = t * p
		} else {
			tmpl[i] = t * n
		}
	}
	return tmpl, nil
}

// BuildTemplate builds and normalizes a template of the given shape
func BuildTemplate(shape Shape, ntaps int) (Template, error) {
	if ntaps < 2 {
		return nil, configurationError("template needs at least 2 taps, got %d", ntaps)
	}

	switch shape {
	case ShapeRectangular:
		return Normalize(RectTaps(ntaps))
	case ShapeCosine:
		return Normalize(CosTaps(ntaps))
	default:
		return nil, configurationError("unknown template shape %q", shape)
	}
}

// Positive returns the sum of the positive taps
func (t Template) Positive() float64 {
	var sum float64
	for _, v := range t {
		if v > 0 {
			sum += v
		}
	}
	return sum
}

// Negative returns the sum of the negative taps
func (t Template) Negative() float64 {
	var sum float64
	for _, v := range t {
		if v < 0 {
			sum += v
		}
	}
	return sum
}
