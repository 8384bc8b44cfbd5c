package detector

import (
	"fmt"
	"math"
	"slices"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"gonum.org/v1/gonum/floats"
)

// Detection is a candidate channel found in a single spectrum frame
type Detection struct {
	Freq float64 `json:"freq"`
	SSI  float64 `json:"ssi"`
}

// SpectrumObserver receives every frame passed to Detect. It is a diagnostic
// hook and must not modify the frame.
type SpectrumObserver func(frame []float64)

// PeakDetector scores spectrum frames against a template and picks
// non-overlapping peaks above the low threshold. It holds no per-frame
// state, so one instance may be reused for every frame.
type PeakDetector struct {
	cfg            Config
	taps           Template
	channelSpacing int
	padding        float64
	pointBW        float64
	freqOffset     float64
	observer       SpectrumObserver
	logger         logging.Logger
}

// Option configures a PeakDetector
type Option func(*PeakDetector)

// WithSpectrumObserver registers a hook notified with each raw frame
func WithSpectrumObserver(observer SpectrumObserver) Option {
	return func(d *PeakDetector) {
		d.observer = observer
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger logging.Logger) Option {
	return func(d *PeakDetector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

type scoredPoint struct {
	score   float64
	pointNo int
}

// NewPeakDetector creates a detector for frames described by cfg. When
// tmpl is nil the template is built from cfg.Shape and cfg.NTaps.
func NewPeakDetector(cfg Config, tmpl Template, opts ...Option) (*PeakDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if tmpl == nil {
		var err error
		tmpl, err = BuildTemplate(cfg.Shape, cfg.NTaps)
		if err != nil {
			return nil, err
		}
	} else {
		normalized, err := Normalize(tmpl)
		if err != nil {
			return nil, err
		}
		tmpl = normalized
	}

	if len(tmpl) >= cfg.FFTBins {
		return nil, configurationError("template width %d must be smaller than frame length %d", len(tmpl), cfg.FFTBins)
	}

	d := &PeakDetector{
		cfg:            cfg,
		taps:           tmpl,
		channelSpacing: int(math.Round(float64(len(tmpl)) * (1 - cfg.MaxOverlap))),
		padding:        float64(len(tmpl)-1) / 2,
		pointBW:        cfg.PointBW(),
		freqOffset:     cfg.FreqOffset(),
		logger: logging.WithFields(logging.Fields{
			"component": "peak_detector",
		}),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.logger.Debug("Peak detector initialized", logging.Fields{
		"ntaps":           len(d.taps),
		"fft_bins":        cfg.FFTBins,
		"channel_spacing": d.channelSpacing,
		"point_bw":        d.pointBW,
		"freq_offset":     d.freqOffset,
		"threshold":       cfg.LowThreshold,
	})

	return d, nil
}

// Detect returns the peaks of one frame ordered by descending strength
func (d *PeakDetector) Detect(frame []float64) ([]Detection, error) {
	if len(frame) != d.cfg.FFTBins {
		return nil, NewDetectorError(ErrCodeFrameSizeMismatch,
			fmt.Sprintf("frame has %d bins, expected %d", len(frame), d.cfg.FFTBins), nil)
	}

	if d.observer != nil {
		d.observer(frame)
	}

	corr := d.Correlate(frame)
	points := make([]scoredPoint, len(corr))
	for i, score := range corr {
		points[i] = scoredPoint{score: score, pointNo: i}
	}

	// Descending by score, ties go to the higher bin.
	slices.SortFunc(points, func(a, b scoredPoint) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return b.pointNo - a.pointNo
		}
	})

	var accepted []scoredPoint
	for _, p := range points {
		if p.score < d.cfg.LowThreshold {
			break
		}
		if d.overlaps(accepted, p.pointNo) {
			continue
		}
		accepted = append(accepted, p)
	}

	detections := make([]Detection, 0, len(accepted))
	for _, p := range accepted {
		detections = append(detections, Detection{
			Freq: d.FrequencyOf(p.pointNo),
			SSI:  p.score,
		})
	}
	return detections, nil
}

// Correlate returns the template score at every alignment of the frame.
// The result has len(frame) - ntaps + 1 entries.
func (d *PeakDetector) Correlate(frame []float64) []float64 {
	n := len(frame) - len(d.taps) + 1
	if n <= 0 {
		return nil
	}
	corr := make([]float64, n)
	for i := range corr {
		corr[i] = floats.Dot(frame[i:i+len(d.taps)], d.taps)
	}
	return corr
}

// FrequencyOf maps a correlation offset to an absolute frequency in Hz
func (d *PeakDetector) FrequencyOf(pointNo int) float64 {
	return (float64(pointNo)+d.padding)*d.pointBW + d.freqOffset
}

func (d *PeakDetector) overlaps(accepted []scoredPoint, pointNo int) bool {
	for _, a := range accepted {
		dist := a.pointNo - pointNo
		if dist < 0 {
			dist = -dist
		}
		if dist < d.channelSpacing {
			return true
		}
	}
	return false
}

// Config returns the configuration the detector was built with
func (d *PeakDetector) Config() Config { return d.cfg }

// Template returns a copy of the normalized taps
func (d *PeakDetector) Template() Template { return slices.Clone(d.taps) }

// ChannelSpacing is the minimum distance in bins between accepted peaks
func (d *PeakDetector) ChannelSpacing() int { return d.channelSpacing }

// Padding is the number of bins the correlation trims from each edge
func (d *PeakDetector) Padding() float64 { return d.padding }

// PointBW is the bin width in Hz
func (d *PeakDetector) PointBW() float64 { return d.pointBW }

// FreqOffset is the absolute frequency of bin 0 in Hz
func (d *PeakDetector) FreqOffset() float64 { return d.freqOffset }
