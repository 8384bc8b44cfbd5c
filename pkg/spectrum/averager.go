// Package spectrum turns complex baseband samples into averaged log-power
// spectrum frames suitable for the peak detector.
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// DefaultFloorDB is the value reported for bins with no power
const DefaultFloorDB = -200.0

// WindowFunc generates window coefficients of length L
type WindowFunc func(L int) []float64

// Window returns the named window function
func Window(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "", "blackmanharris", "blackman-harris":
		return BlackmanHarris, nil
	case "blackman":
		return window.Blackman, nil
	case "hann", "hanning":
		return window.Hann, nil
	case "hamming":
		return window.Hamming, nil
	case "bartlett":
		return window.Bartlett, nil
	case "flattop":
		return window.FlatTop, nil
	case "rectangular", "rect", "none":
		return window.Rectangular, nil
	default:
		return nil, fmt.Errorf("unknown window function: %s", name)
	}
}

// BlackmanHarris returns a symmetric 4-term Blackman-Harris window
// (-92 dB sidelobes).
func BlackmanHarris(L int) []float64 {
	const (
		a0 = 0.35875
		a1 = 0.48829
		a2 = 0.14128
		a3 = 0.01168
	)

	w := make([]float64, L)
	if L == 1 {
		w[0] = 1
		return w
	}

	den := float64(L - 1)
	for n := range w {
		x := 2 * math.Pi * float64(n) / den
		w[n] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x) - a3*math.Cos(3*x)
	}
	return w
}

// Averager accumulates windowed FFT power over a number of blocks and emits
// one log-power frame per decimation period. Frames are shifted so index 0
// is the lowest frequency (center - sampleRate/2).
type Averager struct {
	fftSize    int
	decimation int
	floorDB    float64
	offsetDB   float64
	coeffs     []float64

	pending []complex128
	acc     []float64
	blocks  int
}

// AveragerOption configures an Averager
type AveragerOption func(*Averager)

// WithWindow selects the window applied to each block
func WithWindow(fn WindowFunc) AveragerOption {
	return func(a *Averager) {
		if fn != nil {
			a.coeffs = fn(a.fftSize)
		}
	}
}

// WithFloorDB sets the value used for bins with zero power
func WithFloorDB(floor float64) AveragerOption {
	return func(a *Averager) {
		a.floorDB = floor
	}
}

// NewAverager creates an averager producing frames of fftSize bins, each
// the mean of decimation FFT blocks.
func NewAverager(fftSize, decimation int, opts ...AveragerOption) (*Averager, error) {
	if fftSize <= 0 {
		return nil, fmt.Errorf("fft size must be positive, got %d", fftSize)
	}
	if decimation <= 0 {
		return nil, fmt.Errorf("decimation must be positive, got %d", decimation)
	}

	a := &Averager{
		fftSize:    fftSize,
		decimation: decimation,
		floorDB:    DefaultFloorDB,
		offsetDB:   -10 * math.Log10(float64(decimation)),
		coeffs:     BlackmanHarris(fftSize),
		pending:    make([]complex128, 0, fftSize),
		acc:        make([]float64, fftSize),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Push consumes samples and returns any frames completed by them
func (a *Averager) Push(samples []complex64) [][]float64 {
	var frames [][]float64

	for _, s := range samples {
		a.pending = append(a.pending, complex128(s))
		if len(a.pending) < a.fftSize {
			continue
		}

		a.accumulate(a.pending)
		a.pending = a.pending[:0]

		if a.blocks == a.decimation {
			frames = append(frames, a.emit())
		}
	}
	return frames
}

// Pending returns how many samples are buffered toward the next block
func (a *Averager) Pending() int {
	return len(a.pending)
}

// Reset drops buffered samples and partial averages
func (a *Averager) Reset() {
	a.pending = a.pending[:0]
	for i := range a.acc {
		a.acc[i] = 0
	}
	a.blocks = 0
}

// FFTSize returns the frame length
func (a *Averager) FFTSize() int { return a.fftSize }

// Decimation returns the number of blocks averaged per frame
func (a *Averager) Decimation() int { return a.decimation }

func (a *Averager) accumulate(block []complex128) {
	windowed := make([]complex128, a.fftSize)
	for i, v := range block {
		windowed[i] = v * complex(a.coeffs[i], 0)
	}

	spec := fft.FFT(windowed)

	// fftshift: negative frequencies first.
	half := a.fftSize / 2
	for i := range spec {
		src := (i + a.fftSize - half) % a.fftSize
		mag := cmplx.Abs(spec[src])
		a.acc[i] += mag * mag
	}
	a.blocks++
}

func (a *Averager) emit() []float64 {
	frame := make([]float64, a.fftSize)
	for i, p := range a.acc {
		if p > 0 {
			frame[i] = 10*math.Log10(p) + a.offsetDB
		} else {
			frame[i] = a.floorDB
		}
		a.acc[i] = 0
	}
	a.blocks = 0
	return frame
}
