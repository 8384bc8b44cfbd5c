package pipeline

import (
	"bytes"
	"context"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/RyanBlaney/channel-detector/internal/observe"
	"github.com/RyanBlaney/channel-detector/pkg/detector"
	"github.com/RyanBlaney/channel-detector/pkg/output"
	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
	"github.com/RyanBlaney/channel-detector/pkg/stream/iqfile"
	"github.com/RyanBlaney/channel-detector/pkg/tracker"
)

type memorySink struct {
	mu      sync.Mutex
	reports [][]tracker.TrackedSignal
	closed  bool
}

func (s *memorySink) Emit(signals []tracker.TrackedSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, signals)
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func (s *memorySink) Reports() [][]tracker.TrackedSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]tracker.TrackedSignal{}, s.reports...)
}

func testConfig() Config {
	return Config{
		Detector: detector.Config{
			SampleRate:    1024000,
			ChannelBW:     12500,
			FFTBins:       1024,
			NTaps:         41,
			MaxOverlap:    0.25,
			LowThreshold:  4,
			HighThreshold: 6,
			TTL:           1,
			Shape:         detector.ShapeRectangular,
		},
		Decimation: 2,
		Rounds:     -1,
	}
}

// carrierFrame returns a flat frame with a 20 dB carrier on bins [290, 310),
// which the 41-tap rect template aligns at offset 280.
func carrierFrame() []float64 {
	frame := make([]float64, 1024)
	for i := 290; i < 310; i++ {
		frame[i] = 20
	}
	return frame
}

func feed(frames ...[]float64) <-chan []float64 {
	ch := make(chan []float64, len(frames))
	for _, f := range frames {
		ch <- f
	}
	close(ch)
	return ch
}

func TestProcessEmitsOneReportPerFrame(t *testing.T) {
	sink := &memorySink{}
	p, err := New(testConfig(), nil, sink)
	require.NoError(t, err)

	err = p.Process(context.Background(), feed(carrierFrame(), carrierFrame(), make([]float64, 1024)))
	require.NoError(t, err)

	reports := sink.Reports()
	require.Len(t, reports, 3)

	require.Len(t, reports[0], 1)
	assert.Equal(t, tracker.TrackedSignal{Freq: -212000, SSI: 20, TTL: 1, IsNew: true}, reports[0][0])

	require.Len(t, reports[1], 1)
	assert.False(t, reports[1][0].IsNew)

	assert.Empty(t, reports[2])

	snap := p.Snapshot()
	assert.Equal(t, int64(3), snap.FramesProcessed)
	assert.Equal(t, int64(2), snap.Detections)
	assert.Equal(t, int64(1), snap.NewSignals)
	assert.Empty(t, snap.Signals)
	assert.False(t, snap.Running)
}

func TestProcessSkipsMalformedFrames(t *testing.T) {
	sink := &memorySink{}
	p, err := New(testConfig(), nil, sink)
	require.NoError(t, err)

	err = p.Process(context.Background(), feed(make([]float64, 10), carrierFrame()))
	require.NoError(t, err)

	assert.Len(t, sink.Reports(), 1)
	snap := p.Snapshot()
	assert.Equal(t, int64(1), snap.FramesSkipped)
	assert.Equal(t, int64(1), snap.FramesProcessed)
}

func TestProcessStopsAfterRounds(t *testing.T) {
	cfg := testConfig()
	cfg.Rounds = 2

	sink := &memorySink{}
	p, err := New(cfg, nil, sink)
	require.NoError(t, err)

	frames := make(chan []float64)
	go func() {
		for {
			select {
			case frames <- carrierFrame():
			case <-time.After(time.Second):
				return
			}
		}
	}()

	require.NoError(t, p.Process(context.Background(), frames))
	assert.Len(t, sink.Reports(), 2)
	assert.Zero(t, p.Snapshot().RoundsLeft)
}

func TestProcessZeroRoundsStopsAfterFirstFrame(t *testing.T) {
	cfg := testConfig()
	cfg.Rounds = 0

	sink := &memorySink{}
	p, err := New(cfg, nil, sink)
	require.NoError(t, err)

	require.NoError(t, p.Process(context.Background(), feed(carrierFrame(), carrierFrame())))
	assert.Len(t, sink.Reports(), 1)
}

func TestProcessHonoursContext(t *testing.T) {
	p, err := New(testConfig(), nil, &memorySink{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.Process(ctx, make(chan []float64))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetuneAppliesAtNextFrame(t *testing.T) {
	sink := &memorySink{}
	p, err := New(testConfig(), nil, sink)
	require.NoError(t, err)

	frames := make(chan []float64, 2)
	frames <- carrierFrame()
	p.Retune(390e6)
	frames <- carrierFrame()
	close(frames)

	require.NoError(t, p.Process(context.Background(), frames))

	reports := sink.Reports()
	require.Len(t, reports, 2)
	require.Len(t, reports[1], 1)

	// The retune lands before the first frame, so both reports are shifted
	// and the second frame refreshes the same channel.
	assert.Equal(t, 390e6-212000, reports[0][0].Freq)
	assert.True(t, reports[0][0].IsNew)
	assert.False(t, reports[1][0].IsNew)

	snap := p.Snapshot()
	assert.Equal(t, 390e6, snap.CenterFreq)
	assert.Equal(t, 390e6, p.Config().Detector.CenterFreq)
}

func TestRetuneClearsSignalTable(t *testing.T) {
	sink := &memorySink{}
	p, err := New(testConfig(), nil, sink)
	require.NoError(t, err)

	require.NoError(t, p.Process(context.Background(), feed(carrierFrame())))
	p.Retune(1e6)
	require.NoError(t, p.Process(context.Background(), feed(carrierFrame())))

	reports := sink.Reports()
	require.Len(t, reports, 2)
	require.Len(t, reports[1], 1)
	assert.True(t, reports[1][0].IsNew)
	assert.Equal(t, 1e6-212000, reports[1][0].Freq)
}

func TestRunReadsSourceUntilEOF(t *testing.T) {
	cfg := testConfig()
	samples := make([]complex64, cfg.Detector.FFTBins*cfg.Decimation*3)
	src := iqfile.NewSourceFromReader(bytes.NewReader(common.EncodeSamples(nil, samples)))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	var dump bytes.Buffer
	sink := &memorySink{}
	p, err := New(cfg, src, sink,
		WithMetrics(metrics),
		WithSpectrumWriter(output.NewSpectrumWriterTo(&dump)),
	)
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background()))

	reports := sink.Reports()
	assert.Len(t, reports, 3)
	for _, r := range reports {
		assert.Empty(t, r)
	}

	frames, err := output.ParseSpectrumDump(&dump)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Len(t, frames[0], cfg.Detector.FFTBins)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var framesCounted int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "detector.frames" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				framesCounted += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), framesCounted)
}

// channelSamples returns a noise floor with one 11 kHz wide channel made of
// bin-centered tones around offset Hz. Seeded so every run is identical.
func channelSamples(n int, sampleRate, offset float64) []complex64 {
	rng := rand.New(rand.NewPCG(7, 11))

	var freqs, phases []float64
	for k := -5; k <= 5; k++ {
		freqs = append(freqs, offset+float64(k)*1000)
		phases = append(phases, rng.Float64()*2*math.Pi)
	}

	samples := make([]complex64, n)
	for i := range samples {
		v := complex(0.1*rng.NormFloat64(), 0.1*rng.NormFloat64())
		for k, f := range freqs {
			v += 0.1 * cmplx.Exp(complex(0, 2*math.Pi*f*float64(i)/sampleRate+phases[k]))
		}
		samples[i] = complex64(v)
	}
	return samples
}

func TestRunReportsCarrierAtAbsoluteFrequency(t *testing.T) {
	cfg := Config{
		Detector: detector.Config{
			SampleRate:    1024000,
			ChannelBW:     12500,
			FFTBins:       1024,
			NTaps:         25,
			MaxOverlap:    0.25,
			LowThreshold:  4,
			HighThreshold: 6,
			TTL:           1,
			CenterFreq:    390e6,
			Shape:         detector.ShapeCosine,
		},
		Decimation: 16,
		Rounds:     -1,
	}

	samples := channelSamples(cfg.Detector.FFTBins*cfg.Decimation*3, cfg.Detector.SampleRate, 100e3)
	src := iqfile.NewSourceFromReader(bytes.NewReader(common.EncodeSamples(nil, samples)))

	sink := &memorySink{}
	p, err := New(cfg, src, sink)
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	reports := sink.Reports()
	require.Len(t, reports, 3)
	for i, report := range reports {
		require.Len(t, report, 1, "frame %d", i)
		sig := report[0]
		assert.InDelta(t, 390.1e6, sig.Freq, cfg.Detector.PointBW(), "frame %d", i)
		assert.GreaterOrEqual(t, sig.SSI, cfg.Detector.HighThreshold, "frame %d", i)
		assert.Equal(t, i == 0, sig.IsNew, "frame %d", i)
	}

	snap := p.Snapshot()
	assert.Equal(t, int64(3), snap.FramesProcessed)
	assert.Equal(t, int64(1), snap.NewSignals)
}

func TestRunRequiresSource(t *testing.T) {
	p, err := New(testConfig(), nil, &memorySink{})
	require.NoError(t, err)
	assert.Error(t, p.Run(context.Background()))
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Detector.ChannelBW = 0
	_, err := New(cfg, nil, &memorySink{})
	assert.ErrorIs(t, err, detector.ErrConfiguration)

	_, err = New(testConfig(), nil, nil)
	assert.Error(t, err)
}
