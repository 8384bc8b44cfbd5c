// Package pipeline runs the frame-synchronous detection loop: samples are
// averaged into spectrum frames, each frame is scored by the peak detector
// and merged by the signal tracker, and the resulting report is emitted
// before the next frame is touched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/channel-detector/internal/observe"
	"github.com/RyanBlaney/channel-detector/pkg/detector"
	"github.com/RyanBlaney/channel-detector/pkg/output"
	"github.com/RyanBlaney/channel-detector/pkg/spectrum"
	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
	"github.com/RyanBlaney/channel-detector/pkg/tracker"
)

const (
	defaultFrameQueue = 4
	defaultReadSize   = 1 << 14
)

// errRoundsDone stops the processing loop once the round budget is spent
var errRoundsDone = errors.New("rounds completed")

// Config holds the pipeline settings
type Config struct {
	Detector   detector.Config `json:"detector"`
	Decimation int             `json:"decimation"`
	Window     string          `json:"window"`
	// Rounds is the number of frames to process; a negative value runs
	// until the source ends or the context is cancelled. Zero stops after
	// the first frame.
	Rounds     int `json:"rounds"`
	FrameQueue int `json:"frame_queue"`
	ReadSize   int `json:"read_size"`
}

// Snapshot is a point-in-time view of the pipeline
type Snapshot struct {
	CenterFreq      float64                 `json:"center_freq"`
	FramesProcessed int64                   `json:"frames_processed"`
	FramesSkipped   int64                   `json:"frames_skipped"`
	Detections      int64                   `json:"detections"`
	NewSignals      int64                   `json:"new_signals"`
	RoundsLeft      int                     `json:"rounds_left"`
	Running         bool                    `json:"running"`
	LastUpdate      time.Time               `json:"last_update"`
	Signals         []tracker.TrackedSignal `json:"signals"`
}

// Pipeline owns the detector and tracker. Only the processing goroutine
// touches them; everything else goes through Snapshot and Retune.
type Pipeline struct {
	cfg      Config
	source   common.SampleSource
	sink     output.Sink
	spectrum *output.SpectrumWriter
	metrics  *observe.Metrics
	logger   logging.Logger

	detector *detector.PeakDetector
	tracker  *tracker.SignalTracker

	mu       sync.RWMutex
	snapshot Snapshot
	retune   *float64
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithSpectrumWriter dumps every frame before detection
func WithSpectrumWriter(sw *output.SpectrumWriter) Option {
	return func(p *Pipeline) {
		p.spectrum = sw
	}
}

// WithMetrics records per-frame metrics
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLogger sets the pipeline logger
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pipeline reading from source and emitting to sink. source
// may be nil when frames are fed through Process directly.
func New(cfg Config, source common.SampleSource, sink output.Sink, opts ...Option) (*Pipeline, error) {
	if sink == nil {
		return nil, fmt.Errorf("pipeline requires a sink")
	}
	if cfg.Decimation <= 0 {
		cfg.Decimation = detector.DefaultDecimation(cfg.Detector.SampleRate, cfg.Detector.FFTBins)
	}
	if cfg.FrameQueue <= 0 {
		cfg.FrameQueue = defaultFrameQueue
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = defaultReadSize
	}

	p := &Pipeline{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logging.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithFields(logging.Fields{
		"component": "pipeline",
	})

	if err := p.rebuild(cfg.Detector); err != nil {
		return nil, err
	}

	p.snapshot = Snapshot{
		CenterFreq: cfg.Detector.CenterFreq,
		RoundsLeft: cfg.Rounds,
		Signals:    []tracker.TrackedSignal{},
	}
	return p, nil
}

// Run reads the source until it ends, the round budget is spent or ctx is
// cancelled. Completing all rounds is not an error.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.source == nil {
		return fmt.Errorf("pipeline has no sample source")
	}

	avg, err := p.newAverager()
	if err != nil {
		return err
	}

	frames := make(chan []float64, p.cfg.FrameQueue)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(frames)
		return p.acquire(gctx, avg, frames)
	})
	g.Go(func() error {
		return p.process(gctx, frames)
	})

	err = g.Wait()
	if errors.Is(err, errRoundsDone) {
		return nil
	}
	return err
}

// Process runs detection over frames until the channel closes, the round
// budget is spent or ctx is cancelled.
func (p *Pipeline) Process(ctx context.Context, frames <-chan []float64) error {
	if err := p.process(ctx, frames); !errors.Is(err, errRoundsDone) {
		return err
	}
	return nil
}

func (p *Pipeline) process(ctx context.Context, frames <-chan []float64) error {
	p.setRunning(true)
	defer p.setRunning(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			done, err := p.processFrame(ctx, frame)
			if err != nil {
				return err
			}
			if done {
				p.logger.Info("Requested rounds completed", logging.Fields{
					"rounds": p.cfg.Rounds,
				})
				return errRoundsDone
			}
		}
	}
}

// Retune queues a new center frequency. The detector and tracker are
// rebuilt at the next frame boundary, which clears the signal table.
func (p *Pipeline) Retune(centerFreq float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retune = &centerFreq
}

// Snapshot returns the current state and last emitted report
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := p.snapshot
	s.Signals = append([]tracker.TrackedSignal{}, p.snapshot.Signals...)
	return s
}

// Config returns the current configuration, including any retune
func (p *Pipeline) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

func (p *Pipeline) acquire(ctx context.Context, avg *spectrum.Averager, frames chan<- []float64) error {
	buf := make([]complex64, p.cfg.ReadSize)
	sourceType := p.source.Type()

	for {
		n, err := p.source.ReadSamples(ctx, buf)
		for _, frame := range avg.Push(buf[:n]) {
			select {
			case frames <- frame:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				p.logger.Info("Sample source exhausted", logging.Fields{
					"source": string(sourceType),
				})
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read samples: %w", err)
		}
	}
}

func (p *Pipeline) processFrame(ctx context.Context, frame []float64) (bool, error) {
	p.applyRetune()

	start := time.Now()
	source := p.sourceName()

	detections, err := p.detector.Detect(frame)
	if err != nil {
		if errors.Is(err, detector.ErrFrameSizeMismatch) {
			p.logger.Warn("Skipping malformed frame", logging.Fields{
				"bins":     len(frame),
				"expected": p.cfg.Detector.FFTBins,
			})
			p.mu.Lock()
			p.snapshot.FramesSkipped++
			p.mu.Unlock()
			if p.metrics != nil {
				p.metrics.RecordSkipped(ctx, source, "frame_size")
			}
			return false, nil
		}
		return false, fmt.Errorf("peak detection failed: %w", err)
	}

	report := p.tracker.Update(detections)

	if err := p.sink.Emit(report); err != nil {
		return false, fmt.Errorf("failed to emit signals: %w", err)
	}

	newSignals := 0
	for _, sig := range report {
		if sig.IsNew {
			newSignals++
		}
	}

	p.mu.Lock()
	p.snapshot.FramesProcessed++
	p.snapshot.Detections += int64(len(detections))
	p.snapshot.NewSignals += int64(newSignals)
	p.snapshot.LastUpdate = time.Now()
	p.snapshot.Signals = report
	if p.snapshot.RoundsLeft > 0 {
		p.snapshot.RoundsLeft--
	}
	done := p.cfg.Rounds >= 0 && p.snapshot.RoundsLeft == 0
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordFrame(ctx, source, observe.FrameResult{
			Detections: len(detections),
			NewSignals: newSignals,
			Tracked:    len(report),
			Duration:   time.Since(start),
		})
	}

	if newSignals > 0 {
		p.logger.Debug("New signals detected", logging.Fields{
			"new":     newSignals,
			"tracked": len(report),
		})
	}

	return done, nil
}

func (p *Pipeline) applyRetune() {
	p.mu.Lock()
	freq := p.retune
	p.retune = nil
	p.mu.Unlock()

	if freq == nil {
		return
	}

	cfg := p.cfg.Detector
	cfg.CenterFreq = *freq
	if err := p.rebuild(cfg); err != nil {
		p.logger.Error(err, "Failed to retune detector")
		return
	}

	p.mu.Lock()
	p.snapshot.CenterFreq = *freq
	p.snapshot.Signals = []tracker.TrackedSignal{}
	p.mu.Unlock()

	p.logger.Info("Retuned detector", logging.Fields{
		"center_freq": *freq,
	})
}

// rebuild replaces the detector and tracker pair for cfg
func (p *Pipeline) rebuild(cfg detector.Config) error {
	var opts []detector.Option
	if p.spectrum != nil {
		opts = append(opts, detector.WithSpectrumObserver(p.dumpFrame))
	}

	det, err := detector.NewPeakDetector(cfg, nil, opts...)
	if err != nil {
		return fmt.Errorf("failed to create peak detector: %w", err)
	}

	p.detector = det
	p.tracker = tracker.NewSignalTracker(cfg, p.logger)

	p.mu.Lock()
	p.cfg.Detector = cfg
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) dumpFrame(frame []float64) {
	if err := p.spectrum.WriteFrame(frame); err != nil {
		p.logger.Warn("Failed to write spectrum frame", logging.Fields{
			"error": err.Error(),
		})
	}
}

func (p *Pipeline) newAverager() (*spectrum.Averager, error) {
	win, err := spectrum.Window(p.cfg.Window)
	if err != nil {
		return nil, err
	}
	return spectrum.NewAverager(p.cfg.Detector.FFTBins, p.cfg.Decimation, spectrum.WithWindow(win))
}

func (p *Pipeline) sourceName() string {
	if p.source == nil {
		return "frames"
	}
	return string(p.source.Type())
}

func (p *Pipeline) setRunning(running bool) {
	p.mu.Lock()
	p.snapshot.Running = running
	p.mu.Unlock()
}
