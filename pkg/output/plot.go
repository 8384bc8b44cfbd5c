package output

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/RyanBlaney/channel-detector/pkg/detector"
)

// FrequencyGrid maps frame bins to absolute frequency
type FrequencyGrid struct {
	PointBW    float64
	FreqOffset float64
}

// GridFromConfig returns the bin grid described by cfg
func GridFromConfig(cfg detector.Config) FrequencyGrid {
	return FrequencyGrid{PointBW: cfg.PointBW(), FreqOffset: cfg.FreqOffset()}
}

// Freq returns the frequency of bin in Hz
func (g FrequencyGrid) Freq(bin int) float64 {
	return float64(bin)*g.PointBW + g.FreqOffset
}

// Bin returns the bin nearest to freq
func (g FrequencyGrid) Bin(freq float64) int {
	if g.PointBW == 0 {
		return 0
	}
	return int((freq-g.FreqOffset)/g.PointBW + 0.5)
}

// PlotSpectrum renders one frame with markers on each detection and saves
// it as an image. The file extension selects the image format.
func PlotSpectrum(path string, frame []float64, detections []detector.Detection, grid FrequencyGrid) error {
	if len(frame) == 0 {
		return fmt.Errorf("empty spectrum frame")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Spectrum - %d detections", len(detections))
	p.X.Label.Text = "Frequency (MHz)"
	p.Y.Label.Text = "Power (dB)"

	pts := make(plotter.XYs, len(frame))
	for i, v := range frame {
		pts[i] = plotter.XY{X: grid.Freq(i) / 1e6, Y: v}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to create spectrum line: %w", err)
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)
	p.Legend.Add("spectrum", line)

	if len(detections) > 0 {
		peaks := make(plotter.XYs, 0, len(detections))
		for _, det := range detections {
			bin := min(max(grid.Bin(det.Freq), 0), len(frame)-1)
			peaks = append(peaks, plotter.XY{X: det.Freq / 1e6, Y: frame[bin]})
		}

		scatter, err := plotter.NewScatter(peaks)
		if err != nil {
			return fmt.Errorf("failed to create detection markers: %w", err)
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		scatter.GlyphStyle.Radius = vg.Points(3)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add("detections", scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
