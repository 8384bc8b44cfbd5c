package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/channel-detector/internal/app"
	"github.com/RyanBlaney/channel-detector/pkg/detector"
	"github.com/RyanBlaney/channel-detector/pkg/output"
)

var (
	plotSpectrum   string
	plotFrame      int
	plotOut        string
	plotSampleRate float64
	plotChannelBW  float64
	plotFrequency  float64
	plotThreshold  string
)

// plotCmd re-runs detection on a dumped spectrum frame and plots it
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot a frame from a spectrum dump",
	Long: `Load a spectrum dump written with --spectrum-out, run the peak detector
on one frame and render the spectrum with the detections marked.

The FFT size is taken from the dump, so only the sample rate and channel
bandwidth need to match the run that wrote the dump.

Examples:
  channel-detector plot --spectrum spectrum.csv --frame 3 --out frame3.png -s 1024000
  channel-detector plot --spectrum spectrum.csv --out last.svg --frame -1`,
	RunE: runPlot,
}

func init() {
	rootCmd.AddCommand(plotCmd)

	flags := plotCmd.Flags()
	flags.StringVar(&plotSpectrum, "spectrum", "", "spectrum dump to read")
	flags.IntVar(&plotFrame, "frame", 0, "frame index (negative counts from the end)")
	flags.StringVar(&plotOut, "out", "spectrum.png", "image to write (.png, .svg, .pdf)")
	flags.Float64VarP(&plotSampleRate, "samp-rate", "s", 1024000, "sample rate of the dumped run [Hz]")
	flags.Float64VarP(&plotChannelBW, "channel-bw", "B", 12500, "channel bandwidth [Hz]")
	flags.Float64VarP(&plotFrequency, "frequency", "f", 0, "center frequency of the dumped run [Hz]")
	flags.StringVarP(&plotThreshold, "threshold", "t", "4:6", "detection threshold: <dB> | <dB_lo>:<dB_hi>")

	plotCmd.MarkFlagRequired("spectrum")
}

func runPlot(cmd *cobra.Command, args []string) error {
	frames, err := output.ReadSpectrumDump(plotSpectrum)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("spectrum dump %s has no frames", plotSpectrum)
	}

	index := plotFrame
	if index < 0 {
		index += len(frames)
	}
	if index < 0 || index >= len(frames) {
		return fmt.Errorf("frame %d out of range, dump has %d frames", plotFrame, len(frames))
	}
	frame := frames[index]

	config, err := loadConfig()
	if err != nil {
		return err
	}
	config.Detector.FFTBins = len(frame)

	pc, err := app.ResolvePipelineConfig(config)
	if err != nil {
		return err
	}

	det, err := detector.NewPeakDetector(pc.Detector, nil)
	if err != nil {
		return err
	}

	detections, err := det.Detect(frame)
	if err != nil {
		return err
	}

	if err := output.PlotSpectrum(plotOut, frame, detections, output.GridFromConfig(pc.Detector)); err != nil {
		return err
	}

	fmt.Printf("%sFrame %d: %d detections, plot written to %s%s\n", ColorGreen, index, len(detections), plotOut, ColorReset)
	for _, d := range detections {
		fmt.Printf("  %12.0f Hz  %6.2f dB\n", d.Freq, d.SSI)
	}
	return nil
}
