package configs

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// SetDefaults registers default values on v for every key not yet set
func SetDefaults(v *viper.Viper) {
	setDefaults(v)
}

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	defaults := GetDefaultConfig()

	// Application defaults
	if !v.IsSet("verbose") {
		v.SetDefault("verbose", defaults.Verbose)
	}
	if !v.IsSet("log_level") {
		v.SetDefault("log_level", defaults.LogLevel)
	}
	if !v.IsSet("config_dir") {
		v.SetDefault("config_dir", defaults.ConfigDir)
	}

	setDetectorDefaults(v, defaults.Detector)
	setSourceDefaults(v, defaults.Source)

	// Output defaults
	if !v.IsSet("output.url") {
		v.SetDefault("output.url", defaults.Output.URL)
	}
	if !v.IsSet("output.format") {
		v.SetDefault("output.format", defaults.Output.Format)
	}
	if !v.IsSet("output.spectrum_out") {
		v.SetDefault("output.spectrum_out", defaults.Output.SpectrumOut)
	}

	// Control server defaults
	if !v.IsSet("control.enabled") {
		v.SetDefault("control.enabled", defaults.Control.Enabled)
	}
	if !v.IsSet("control.addr") {
		v.SetDefault("control.addr", defaults.Control.Addr)
	}

	// Root collector defaults
	if !v.IsSet("collector.enabled") {
		v.SetDefault("collector.enabled", defaults.Collector.Enabled)
	}
	if !v.IsSet("collector.log_file") {
		v.SetDefault("collector.log_file", defaults.Collector.LogFile)
	}
}

// setDetectorDefaults sets spectrum and detection defaults
func setDetectorDefaults(v *viper.Viper, d DetectorConfig) {
	if !v.IsSet("detector.sample_rate") {
		v.SetDefault("detector.sample_rate", d.SampleRate)
	}
	if !v.IsSet("detector.channel_bw") {
		v.SetDefault("detector.channel_bw", d.ChannelBW)
	}
	if !v.IsSet("detector.center_freq") {
		v.SetDefault("detector.center_freq", d.CenterFreq)
	}
	// 0 means derive from sample rate and channel bandwidth
	if !v.IsSet("detector.fft_bins") {
		v.SetDefault("detector.fft_bins", d.FFTBins)
	}
	if !v.IsSet("detector.decimation") {
		v.SetDefault("detector.decimation", d.Decimation)
	}
	if !v.IsSet("detector.ntaps") {
		v.SetDefault("detector.ntaps", d.NTaps)
	}
	if !v.IsSet("detector.threshold") {
		v.SetDefault("detector.threshold", d.Threshold)
	}
	if !v.IsSet("detector.max_overlap") {
		v.SetDefault("detector.max_overlap", d.MaxOverlap)
	}
	if !v.IsSet("detector.ttl") {
		v.SetDefault("detector.ttl", d.TTL)
	}
	if !v.IsSet("detector.shape") {
		v.SetDefault("detector.shape", d.Shape)
	}
	if !v.IsSet("detector.window") {
		v.SetDefault("detector.window", d.Window)
	}
	if !v.IsSet("detector.rounds") {
		v.SetDefault("detector.rounds", d.Rounds)
	}
}

// setSourceDefaults sets sample input defaults
func setSourceDefaults(v *viper.Viper, s SourceConfig) {
	if !v.IsSet("source.url") {
		v.SetDefault("source.url", s.URL)
	}
	if !v.IsSet("source.read_size") {
		v.SetDefault("source.read_size", s.ReadSize)
	}
	if !v.IsSet("source.frame_queue") {
		v.SetDefault("source.frame_queue", s.FrameQueue)
	}
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Verbose:   false,
		LogLevel:  "info",
		ConfigDir: filepath.Join(home, ".config", "channel-detector"),

		Detector:  GetDefaultDetectorConfig(),
		Source:    GetDefaultSourceConfig(),
		Output:    GetDefaultOutputConfig(),
		Control:   GetDefaultControlConfig(),
		Collector: GetDefaultCollectorConfig(),
	}
}

// GetDefaultDetectorConfig returns default detection settings for 12.5 kHz
// channels at 1.024 MS/s
func GetDefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		SampleRate: 1024000,
		ChannelBW:  12500,
		CenterFreq: 0,
		FFTBins:    0,
		Decimation: 0,
		NTaps:      0,
		Threshold:  "4:6",
		MaxOverlap: 0.25,
		TTL:        1,
		Shape:      "cos",
		Window:     "blackmanharris",
		Rounds:     -1,
	}
}

// GetDefaultSourceConfig returns default sample input settings
func GetDefaultSourceConfig() SourceConfig {
	return SourceConfig{
		URL:        "",
		ReadSize:   16384,
		FrameQueue: 4,
	}
}

// GetDefaultOutputConfig returns default report output settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		URL:         "stdout://",
		Format:      "json",
		SpectrumOut: "",
	}
}

// GetDefaultControlConfig returns default control server settings
func GetDefaultControlConfig() ControlConfig {
	return ControlConfig{
		Enabled: false,
		Addr:    "127.0.0.1:60100",
	}
}

// GetDefaultCollectorConfig returns default root collector settings
func GetDefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		Enabled: false,
		LogFile: "/tmp/channel-detector-metrics.log",
	}
}

// ConfigSearchPaths lists the directories searched for
// channel-detector.yaml, configDir first when it is set.
func ConfigSearchPaths(configDir, home string) []string {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	return append(paths,
		filepath.Join(home, ".config", "channel-detector"),
		home,
		"/etc/channel-detector",
		"./configs",
	)
}
