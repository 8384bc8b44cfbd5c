package configs

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// ConfigDir is searched first for channel-detector.yaml
	ConfigDir string `mapstructure:"config_dir" yaml:"config_dir"`

	// Spectrum analysis and detection settings
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector"`

	// Sample input settings
	Source SourceConfig `mapstructure:"source" yaml:"source"`

	// Report output settings
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// Remote control server
	Control ControlConfig `mapstructure:"control" yaml:"control"`

	// Run totals reporting
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector"`
}

// DetectorConfig contains spectrum and detection settings. Zero values for
// FFTBins, Decimation and NTaps are derived from the sample rate and channel
// bandwidth.
type DetectorConfig struct {
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	ChannelBW  float64 `mapstructure:"channel_bw" yaml:"channel_bw"`
	CenterFreq float64 `mapstructure:"center_freq" yaml:"center_freq"`
	FFTBins    int     `mapstructure:"fft_bins" yaml:"fft_bins"`
	Decimation int     `mapstructure:"decimation" yaml:"decimation"`
	NTaps      int     `mapstructure:"ntaps" yaml:"ntaps"`
	Threshold  string  `mapstructure:"threshold" yaml:"threshold"`
	MaxOverlap float64 `mapstructure:"max_overlap" yaml:"max_overlap"`
	TTL        int     `mapstructure:"ttl" yaml:"ttl"`
	Shape      string  `mapstructure:"shape" yaml:"shape"`
	Window     string  `mapstructure:"window" yaml:"window"`
	Rounds     int     `mapstructure:"rounds" yaml:"rounds"`
}

// SourceConfig contains sample input settings
type SourceConfig struct {
	URL        string `mapstructure:"url" yaml:"url"`
	ReadSize   int    `mapstructure:"read_size" yaml:"read_size"`
	FrameQueue int    `mapstructure:"frame_queue" yaml:"frame_queue"`
}

// OutputConfig contains report output settings
type OutputConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	Format      string `mapstructure:"format" yaml:"format"`
	SpectrumOut string `mapstructure:"spectrum_out" yaml:"spectrum_out"`
}

// ControlConfig contains the control server settings
type ControlConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// CollectorConfig contains root collector settings
type CollectorConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom decodes v into a Config
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Detector.SampleRate <= 0 {
		return fmt.Errorf("detector sample rate must be positive")
	}

	if config.Detector.ChannelBW <= 0 {
		return fmt.Errorf("detector channel bandwidth must be positive")
	}

	if config.Detector.FFTBins < 0 || config.Detector.Decimation < 0 || config.Detector.NTaps < 0 {
		return fmt.Errorf("fft bins, decimation and ntaps cannot be negative")
	}

	if config.Detector.MaxOverlap < 0 || config.Detector.MaxOverlap >= 1 {
		return fmt.Errorf("max overlap must be in [0, 1)")
	}

	if config.Detector.TTL < 1 {
		return fmt.Errorf("ttl must be at least 1")
	}

	if config.Source.ReadSize < 0 || config.Source.FrameQueue < 0 {
		return fmt.Errorf("source read size and frame queue cannot be negative")
	}

	switch strings.ToLower(config.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", config.LogLevel)
	}

	switch strings.ToLower(config.Output.Format) {
	case "", "json", "json-pretty", "yaml", "csv", "table":
	default:
		return fmt.Errorf("unsupported output format: %s", config.Output.Format)
	}

	if config.Control.Enabled {
		if _, _, err := net.SplitHostPort(config.Control.Addr); err != nil {
			return fmt.Errorf("invalid control address %q: %w", config.Control.Addr, err)
		}
	}

	return nil
}
