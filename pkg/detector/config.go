package detector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Config holds the immutable parameters shared by the peak detector and the
// signal tracker. It is read-only once a detector has been constructed.
type Config struct {
	SampleRate    float64 `json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`
	ChannelBW     float64 `json:"channel_bw" yaml:"channel_bw" mapstructure:"channel_bw"`
	FFTBins       int     `json:"fft_bins" yaml:"fft_bins" mapstructure:"fft_bins"`
	NTaps         int     `json:"ntaps" yaml:"ntaps" mapstructure:"ntaps"`
	MaxOverlap    float64 `json:"max_overlap" yaml:"max_overlap" mapstructure:"max_overlap"`
	LowThreshold  float64 `json:"low_threshold" yaml:"low_threshold" mapstructure:"low_threshold"`
	HighThreshold float64 `json:"high_threshold" yaml:"high_threshold" mapstructure:"high_threshold"`
	TTL           int     `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
	CenterFreq    float64 `json:"center_freq" yaml:"center_freq" mapstructure:"center_freq"`
	Shape         Shape   `json:"shape" yaml:"shape" mapstructure:"shape"`
}

// DefaultConfig returns a configuration for 12.5 kHz channels sampled at
// 1.024 MS/s. NTaps and FFTBins are derived from those rates.
func DefaultConfig() Config {
	cfg := Config{
		SampleRate:    1024000,
		ChannelBW:     12500,
		MaxOverlap:    0.25,
		LowThreshold:  4,
		HighThreshold: 6,
		TTL:           1,
		Shape:         ShapeCosine,
	}
	cfg.FFTBins = DefaultFFTBins(cfg.SampleRate, cfg.ChannelBW)
	cfg.NTaps = TapsForBandwidth(cfg.SampleRate, cfg.FFTBins, cfg.ChannelBW)
	return cfg
}

// Validate checks the configuration and returns a configuration error
// describing the first problem found.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return configurationError("sample rate must be positive, got %g", c.SampleRate)
	}
	if c.ChannelBW <= 0 {
		return configurationError("channel bandwidth must be positive, got %g", c.ChannelBW)
	}
	if c.FFTBins <= 0 {
		return configurationError("fft bins must be positive, got %d", c.FFTBins)
	}
	if c.NTaps < 2 {
		return configurationError("template needs at least 2 taps, got %d", c.NTaps)
	}
	if c.NTaps >= c.FFTBins {
		return configurationError("template width %d must be smaller than frame length %d", c.NTaps, c.FFTBins)
	}
	if c.MaxOverlap < 0 || c.MaxOverlap >= 1 {
		return configurationError("max overlap must be in [0, 1), got %g", c.MaxOverlap)
	}
	if c.LowThreshold > c.HighThreshold {
		return configurationError("low threshold %g is above high threshold %g", c.LowThreshold, c.HighThreshold)
	}
	if c.TTL < 1 {
		return configurationError("ttl must be at least 1, got %d", c.TTL)
	}
	return nil
}

// PointBW is the width of one frequency bin in Hz
func (c Config) PointBW() float64 {
	return c.SampleRate / float64(c.FFTBins)
}

// FreqOffset is the absolute frequency of bin 0
func (c Config) FreqOffset() float64 {
	return c.CenterFreq - c.SampleRate/2
}

// DefaultFFTBins returns the smallest power of two giving at least 10 bins
// per channel.
func DefaultFFTBins(sampleRate, channelBW float64) int {
	bins := 10 * sampleRate / channelBW
	return 1 << int(math.Ceil(math.Log2(bins)))
}

// DefaultDecimation returns how many FFT frames to average so one detection
// pass covers roughly one second of samples.
func DefaultDecimation(sampleRate float64, fftBins int) int {
	return int(math.Ceil(sampleRate / float64(fftBins)))
}

// TapsForBandwidth returns a template width covering two channel widths
func TapsForBandwidth(sampleRate float64, fftBins int, channelBW float64) int {
	return int(2 * float64(fftBins) * channelBW / sampleRate)
}

// ParseThreshold parses "<dB>" or "<dB_lo>:<dB_hi>". A single value is used
// for both thresholds. The returned pair is always ordered low, high.
func ParseThreshold(s string) (float64, float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 2 {
		return 0, 0, configurationError("invalid threshold %q: expected <dB> or <dB_lo>:<dB_hi>", s)
	}

	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, NewDetectorError(ErrCodeConfiguration, fmt.Sprintf("invalid threshold %q", s), err)
		}
		values = append(values, v)
	}

	if len(values) == 1 {
		return values[0], values[0], nil
	}
	return math.Min(values[0], values[1]), math.Max(values[0], values[1]), nil
}
