package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/channel-detector/internal/app"
)

// Version is set at build time
var Version = "dev"

var (
	// Detect command flags
	detectInput       string
	detectOutput      string
	detectSampleRate  float64
	detectChannelBW   float64
	detectBins        int
	detectDecimation  int
	detectFrequency   float64
	detectThreshold   string
	detectRounds      int
	detectSpectrumOut string
	detectTTL         int
	detectShape       string
	detectWindow      string
	detectMaxOverlap  float64
	detectControl     bool
	detectControlAddr string
)

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect active channels in an IQ stream",
	Long: `Read complex baseband samples, average them into spectrum frames and
report the channels detected in every frame.

Inputs:
  file://<PATH> or <PATH>   interleaved little-endian float32 I/Q
  udp://<HOST>:<PORT>       the same format received as datagrams

Each report is a list of {"freq", "ssi", "ttl", "new"} records.

Examples:
  # Scan a recording captured at 1.024 MS/s around 393 MHz
  channel-detector detect -i capture.iq -s 1024000 -f 393e6

  # Listen on UDP, stop after 10 frames and dump the spectrum
  channel-detector detect -i udp://0.0.0.0:5000 -s 2048000 -r 10 -p spectrum.csv

  # Use a single threshold and keep signals for 3 frames
  channel-detector detect -i capture.iq -s 1024000 -t 5 --ttl 3

  # Expose the control endpoint
  channel-detector detect -i udp://0.0.0.0:5000 -s 1024000 --control --control-addr 127.0.0.1:60100`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	flags := detectCmd.Flags()
	flags.StringVarP(&detectInput, "input", "i", "",
		"input URL (file://<PATH> | udp://<HOST>:<PORT>)")
	flags.StringVarP(&detectOutput, "output", "o", "stdout://",
		"URL to send detected channels (stdout:// | file://<PATH>)")
	flags.Float64VarP(&detectSampleRate, "samp-rate", "s", 1024000,
		"input sample rate [Hz]")
	flags.Float64VarP(&detectChannelBW, "channel-bw", "B", 12500,
		"channel bandwidth [Hz]")
	flags.IntVarP(&detectBins, "bins", "b", 0,
		"number of FFT bins (0 = at least 10 bins per channel)")
	flags.IntVarP(&detectDecimation, "decimation", "d", 0,
		"FFT blocks averaged per detection pass (0 = about one second)")
	flags.Float64VarP(&detectFrequency, "frequency", "f", 0,
		"center frequency of the input [Hz]")
	flags.StringVarP(&detectThreshold, "threshold", "t", "4:6",
		"detection threshold: <dB> | <dB_lo>:<dB_hi>")
	flags.IntVarP(&detectRounds, "rounds", "r", -1,
		"exit after N detection passes (-1 = infinite)")
	flags.StringVarP(&detectSpectrumOut, "spectrum-out", "p", "",
		"write the power spectrum of every frame into a CSV file")
	flags.IntVar(&detectTTL, "ttl", 1,
		"frames a signal is kept after its last strong detection")
	flags.StringVar(&detectShape, "shape", "cos",
		"template shape (cos, rect)")
	flags.StringVar(&detectWindow, "window", "blackmanharris",
		"FFT window (blackmanharris, blackman, hann, hamming, bartlett, flattop, rectangular)")
	flags.Float64Var(&detectMaxOverlap, "max-overlap", 0.25,
		"maximum fraction of overlap between neighbouring channels")
	flags.BoolVar(&detectControl, "control", false,
		"serve the HTTP control endpoint")
	flags.StringVar(&detectControlAddr, "control-addr", "127.0.0.1:60100",
		"address of the HTTP control endpoint")

	bindFlag("input", "source.url")
	bindFlag("output", "output.url")
	bindFlag("samp-rate", "detector.sample_rate")
	bindFlag("channel-bw", "detector.channel_bw")
	bindFlag("bins", "detector.fft_bins")
	bindFlag("decimation", "detector.decimation")
	bindFlag("frequency", "detector.center_freq")
	bindFlag("threshold", "detector.threshold")
	bindFlag("rounds", "detector.rounds")
	bindFlag("spectrum-out", "output.spectrum_out")
	bindFlag("ttl", "detector.ttl")
	bindFlag("shape", "detector.shape")
	bindFlag("window", "detector.window")
	bindFlag("max-overlap", "detector.max_overlap")
	bindFlag("control", "control.enabled")
	bindFlag("control-addr", "control.addr")
}

func runDetect(cmd *cobra.Command, args []string) error {
	if detectInput == "" {
		return fmt.Errorf("an input URL is required (-i)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &app.Context{
		ConfigFile: configFile,
		Verbose:    verbose,
		Version:    Version,
	}

	detectorApp, err := newDetectorApp(appCtx)
	if err != nil {
		return err
	}

	_, err = detectorApp.Run(ctx)
	return err
}

func newDetectorApp(appCtx *app.Context) (*app.DetectorApp, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	appCtx.Config = config

	return app.NewDetectorApp(appCtx)
}
