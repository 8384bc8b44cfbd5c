package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/channel-detector/internal/app"
)

var tapsRaw bool

// tapsCmd prints the detection template
var tapsCmd = &cobra.Command{
	Use:   "taps",
	Short: "Print the detection template",
	Long: `Print the normalized template used by the peak detector for the current
configuration, one tap per line.

Examples:
  channel-detector taps --samp-rate 1024000 --channel-bw 12500
  channel-detector taps --shape rect --ntaps 16`,
	RunE: runTaps,
}

var (
	tapsNTaps      int
	tapsShape      string
	tapsSampleRate float64
	tapsChannelBW  float64
	tapsBins       int
)

func init() {
	rootCmd.AddCommand(tapsCmd)

	tapsCmd.Flags().IntVar(&tapsNTaps, "ntaps", 0, "template width (0 = derived from the channel bandwidth)")
	tapsCmd.Flags().StringVar(&tapsShape, "shape", "cos", "template shape (cos, rect)")
	tapsCmd.Flags().Float64Var(&tapsSampleRate, "samp-rate", 1024000, "input sample rate [Hz]")
	tapsCmd.Flags().Float64Var(&tapsChannelBW, "channel-bw", 12500, "channel bandwidth [Hz]")
	tapsCmd.Flags().IntVar(&tapsBins, "bins", 0, "number of FFT bins")
	tapsCmd.Flags().BoolVar(&tapsRaw, "raw", false, "print taps before normalization")

	bindFlag("ntaps", "detector.ntaps")
}

func runTaps(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	pc, err := app.ResolvePipelineConfig(config)
	if err != nil {
		return err
	}

	tmpl, err := app.BuildTemplate(pc.Detector, tapsRaw)
	if err != nil {
		return err
	}

	fmt.Printf("# shape=%s ntaps=%d bins=%d\n", pc.Detector.Shape, len(tmpl), pc.Detector.FFTBins)
	for i, tap := range tmpl {
		fmt.Printf("%3d %+.6f\n", i, tap)
	}
	return nil
}
