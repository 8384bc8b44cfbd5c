package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/channel-detector/configs"
	"github.com/RyanBlaney/channel-detector/internal/pipeline"
	"github.com/RyanBlaney/channel-detector/pkg/detector"
)

// ResolvePipelineConfig turns the loaded settings into a pipeline
// configuration. FFT bins, decimation and template width are derived when
// left at zero.
func ResolvePipelineConfig(cfg *configs.Config) (pipeline.Config, error) {
	d := cfg.Detector

	lo, hi, err := detector.ParseThreshold(d.Threshold)
	if err != nil {
		return pipeline.Config{}, err
	}

	shape, err := detector.ParseShape(d.Shape)
	if err != nil {
		return pipeline.Config{}, err
	}

	bins := d.FFTBins
	if bins == 0 {
		// at least 10 bins per channel
		bins = detector.DefaultFFTBins(d.SampleRate, d.ChannelBW)
	}

	decimation := d.Decimation
	if decimation == 0 {
		// roughly one frame per second
		decimation = detector.DefaultDecimation(d.SampleRate, bins)
	}

	ntaps := d.NTaps
	if ntaps == 0 {
		ntaps = detector.TapsForBandwidth(d.SampleRate, bins, d.ChannelBW)
	}

	detCfg := detector.Config{
		SampleRate:    d.SampleRate,
		ChannelBW:     d.ChannelBW,
		FFTBins:       bins,
		NTaps:         ntaps,
		MaxOverlap:    d.MaxOverlap,
		LowThreshold:  lo,
		HighThreshold: hi,
		TTL:           d.TTL,
		CenterFreq:    d.CenterFreq,
		Shape:         shape,
	}
	if err := detCfg.Validate(); err != nil {
		return pipeline.Config{}, err
	}

	return pipeline.Config{
		Detector:   detCfg,
		Decimation: decimation,
		Window:     d.Window,
		Rounds:     d.Rounds,
		FrameQueue: cfg.Source.FrameQueue,
		ReadSize:   cfg.Source.ReadSize,
	}, nil
}

// LoadConfigFile loads a configuration file without going through viper.
// Keys missing from the file keep their default values.
func LoadConfigFile(filePath string) (*configs.Config, error) {
	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file does not exist: %s", filePath)
	}

	// Determine file format
	ext := filepath.Ext(filePath)
	switch ext {
	case ".yaml", ".yml":
		return loadConfigFromYAML(filePath)
	case ".json":
		return loadConfigFromJSON(filePath)
	default:
		// Try YAML first, then JSON
		if cfg, err := loadConfigFromYAML(filePath); err == nil {
			return cfg, nil
		}
		return loadConfigFromJSON(filePath)
	}
}

// loadConfigFromYAML loads config from YAML file
func loadConfigFromYAML(filePath string) (*configs.Config, error) {
	data, err := readConfigFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML config file: %w", err)
	}

	config := configs.GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return config, nil
}

// loadConfigFromJSON loads config from JSON file
func loadConfigFromJSON(filePath string) (*configs.Config, error) {
	data, err := readConfigFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON config file: %w", err)
	}

	// JSON keys follow the YAML names, so decode through a generic map
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	asYAML, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert JSON config: %w", err)
	}

	config := configs.GetDefaultConfig()
	if err := yaml.Unmarshal(asYAML, config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}

	return config, nil
}

func readConfigFile(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// GenerateExampleConfig writes an example YAML configuration
func GenerateExampleConfig(filePath string) error {
	config := configs.GetDefaultConfig()
	config.Source.URL = "udp://0.0.0.0:5000"
	config.Detector.CenterFreq = 393e6
	config.Control.Enabled = true

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	header := []byte("# channel-detector configuration\n" +
		"# fft_bins, decimation and ntaps are derived when set to 0\n")

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(filePath, append(header, data...), 0644); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}

	return nil
}

// BuildTemplate returns the template for cfg. With raw set the taps are
// returned before normalization.
func BuildTemplate(cfg detector.Config, raw bool) ([]float64, error) {
	if !raw {
		return detector.BuildTemplate(cfg.Shape, cfg.NTaps)
	}

	switch cfg.Shape {
	case detector.ShapeRectangular:
		return detector.RectTaps(cfg.NTaps), nil
	case detector.ShapeCosine:
		return detector.CosTaps(cfg.NTaps), nil
	default:
		return nil, fmt.Errorf("unknown template shape: %s", cfg.Shape)
	}
}
