package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/channel-detector/configs"
	"github.com/RyanBlaney/channel-detector/internal/app"
)

var (
	configTestFile string
	titleCaser     = cases.Title(language.English)
)

// configTestCmd represents the config test command
var configTestCmd = &cobra.Command{
	Use:   "config-test",
	Short: "Test and display all configuration values",
	Long: `Test configuration loading and display all values to verify proper parsing.

This command loads the configuration, derives the spectrum sizes that the
detector would use and displays everything in a structured format.

Examples:
  # Test with default config file
  channel-detector config-test

  # Test with specific config file
  channel-detector --config /path/to/config.yaml config-test

  # Check a file without merging flags and environment
  channel-detector config-test --file ./channel-detector.json`,
	RunE: runConfigTest,
}

func init() {
	rootCmd.AddCommand(configTestCmd)
	configTestCmd.Flags().StringVar(&configTestFile, "file", "", "validate this file on its own")
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	fmt.Println(ColorBold + "CHANNEL DETECTOR CONFIGURATION TEST" + ColorReset)
	fmt.Println(strings.Repeat("=", 80))

	// Load configuration
	var (
		config *configs.Config
		err    error
	)
	if configTestFile != "" {
		config, err = app.LoadConfigFile(configTestFile)
	} else {
		config, err = loadConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printSection("application settings")
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Config Directory", config.ConfigDir)

	printSection("detector configuration")
	printKeyValue("Sample Rate", fmt.Sprintf("%.0f Hz", config.Detector.SampleRate))
	printKeyValue("Channel Bandwidth", fmt.Sprintf("%.0f Hz", config.Detector.ChannelBW))
	printKeyValue("Center Frequency", fmt.Sprintf("%.0f Hz", config.Detector.CenterFreq))
	printKeyValue("FFT Bins", autoInt(config.Detector.FFTBins))
	printKeyValue("Decimation", autoInt(config.Detector.Decimation))
	printKeyValue("Template Taps", autoInt(config.Detector.NTaps))
	printKeyValue("Threshold", config.Detector.Threshold)
	printKeyValue("Max Overlap", fmt.Sprintf("%.2f", config.Detector.MaxOverlap))
	printKeyValue("TTL", fmt.Sprintf("%d frames", config.Detector.TTL))
	printKeyValue("Template Shape", config.Detector.Shape)
	printKeyValue("Window Function", config.Detector.Window)
	printKeyValue("Rounds", fmt.Sprintf("%d", config.Detector.Rounds))

	printSection("source configuration")
	printKeyValue("URL", config.Source.URL)
	printKeyValue("Read Size", fmt.Sprintf("%d samples", config.Source.ReadSize))
	printKeyValue("Frame Queue", fmt.Sprintf("%d frames", config.Source.FrameQueue))

	printSection("output configuration")
	printKeyValue("URL", config.Output.URL)
	printKeyValue("Format", config.Output.Format)
	printKeyValue("Spectrum Dump", config.Output.SpectrumOut)

	printSection("control server")
	printKeyValue("Enabled", fmt.Sprintf("%t", config.Control.Enabled))
	printKeyValue("Address", config.Control.Addr)

	printSection("root collector")
	printKeyValue("Enabled", fmt.Sprintf("%t", config.Collector.Enabled))
	printKeyValue("Log File", config.Collector.LogFile)

	fmt.Println(strings.Repeat("-", 80))

	if err := configs.ValidateConfig(config); err != nil {
		fmt.Printf("%sConfiguration invalid: %v%s\n", ColorRed, err, ColorReset)
		return err
	}

	pc, err := app.ResolvePipelineConfig(config)
	if err != nil {
		fmt.Printf("%sDetector configuration invalid: %v%s\n", ColorRed, err, ColorReset)
		return err
	}

	printSection("derived detector settings")
	printKeyValue("FFT Bins", fmt.Sprintf("%d", pc.Detector.FFTBins))
	printKeyValue("Bin Width", fmt.Sprintf("%.2f Hz", pc.Detector.PointBW()))
	printKeyValue("Decimation", fmt.Sprintf("%d", pc.Decimation))
	printKeyValue("Frame Period", fmt.Sprintf("%.3f s", float64(pc.Decimation*pc.Detector.FFTBins)/pc.Detector.SampleRate))
	printKeyValue("Template Taps", fmt.Sprintf("%d", pc.Detector.NTaps))
	printKeyValue("Thresholds", fmt.Sprintf("low %.2f dB, high %.2f dB", pc.Detector.LowThreshold, pc.Detector.HighThreshold))

	fmt.Println(ColorGreen + strings.Repeat("-", 80))
	fmt.Println("Configuration is valid")
	fmt.Println(strings.Repeat("=", 80) + ColorReset)

	return nil
}

func autoInt(v int) string {
	if v == 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", v)
}

func printSection(title string) {
	title = titleCaser.String(title)
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("-", len(title)))
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}
