package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/channel-detector/configs"
)

const envPrefix = "CHANNEL_DETECTOR"

// Terminal colors used by the diagnostic commands
const (
	ColorReset = "\033[0m"
	ColorRed   = "\033[31m"
	ColorGreen = "\033[32m"
	ColorBold  = "\033[1m"
)

var (
	configFile   string
	verbose      bool
	logLevel     string
	outputFormat string
	configDir    string
)

// rootCmd is the channel-detector entry point
var rootCmd = &cobra.Command{
	Use:   "channel-detector",
	Short: "Narrowband radio channel detector",
	Long: `Detect occupied narrowband radio channels in a wideband IQ stream.

Samples are averaged into power spectrum frames, each frame is correlated
against a channel-shaped template and the strongest non-overlapping peaks are
debounced into a table of active channels.

Key features:
- File and UDP IQ inputs (interleaved float32)
- Rectangular and raised-cosine channel templates
- Hysteresis thresholds and TTL based signal tracking
- JSON, YAML, CSV and table reports
- Spectrum dumps and offline plotting
- HTTP control endpoint with Prometheus metrics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"config directory (default is $HOME/.config/channel-detector)")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/channel-detector/channel-detector.yaml)")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error); --verbose forces debug")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "json",
		"report format (json, json-pretty, yaml, csv, table)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("config_dir", rootCmd.PersistentFlags().Lookup("config-dir"))

	bindFlag("log-level", "log_level")
	bindFlag("format", "output.format")
	bindFlag("config-dir", "config_dir")
}

// loadConfig decodes the merged flag, environment and file settings
func loadConfig() (*configs.Config, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config, nil
}

// initConfig locates the config file and enables CHANNEL_DETECTOR_* variables
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		for _, dir := range configs.ConfigSearchPaths(configDir, home) {
			viper.AddConfigPath(dir)
		}
		viper.SetConfigName("channel-detector")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configs.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}
}

// initializeConfig binds the executing command's flags once they are parsed
func initializeConfig(cmd *cobra.Command) error {
	return bindFlags(cmd, viper.GetViper())
}

// flagKeys maps command flags to their configuration keys. Flags not listed
// bind under their own name.
var flagKeys = map[string]string{}

// bindFlag registers the configuration key a flag is bound to
func bindFlag(flag, key string) {
	flagKeys[flag] = key
}

// bindFlags ties every flag of cmd to its viper key and environment variable
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			key = f.Name
		}

		envVarSuffix := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))

		// Config file and environment values win over flag defaults
		if !f.Changed && v.IsSet(key) {
			val := v.Get(key)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}

		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}

		if err := v.BindEnv(key, envPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}
