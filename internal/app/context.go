package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/tunein/go-logging/v7/pkg/logger"
	"github.com/tunein/go-logging/v7/pkg/logger/logtypes"
	"github.com/tunein/go-logging/v7/pkg/rootcollector"
	"github.com/tunein/go-logging/v7/pkg/rootlogger"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/channel-detector/configs"
	"github.com/RyanBlaney/channel-detector/internal/control"
	"github.com/RyanBlaney/channel-detector/internal/observe"
	"github.com/RyanBlaney/channel-detector/internal/pipeline"
	"github.com/RyanBlaney/channel-detector/pkg/output"
	"github.com/RyanBlaney/channel-detector/pkg/stream"
	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile string
	Verbose    bool
	Version    string

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
}

// DetectorApp handles the detector application lifecycle
type DetectorApp struct {
	ctx      *Context
	config   *configs.Config
	pipeline pipeline.Config
	logger   logging.Logger
	factory  *stream.Factory
}

// Summary holds the totals of a finished run
type Summary struct {
	Source   common.SourceType
	Duration time.Duration
	Snapshot pipeline.Snapshot
}

// NewDetectorApp creates a new detector application
func NewDetectorApp(ctx *Context) (*DetectorApp, error) {
	// Load configuration
	config := ctx.Config
	if config == nil {
		var err error
		config, err = configs.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		ctx.Config = config
	}

	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Set up logging
	logger, err := setupLogging(ctx, config)
	if err != nil {
		return nil, err
	}
	ctx.Logger = logger

	pipelineConfig, err := ResolvePipelineConfig(config)
	if err != nil {
		return nil, fmt.Errorf("invalid detector configuration: %w", err)
	}

	logger.Debug("Detector application initialized", logging.Fields{
		"config_file": ctx.ConfigFile,
		"source":      config.Source.URL,
		"output":      config.Output.URL,
		"sample_rate": pipelineConfig.Detector.SampleRate,
		"fft_bins":    pipelineConfig.Detector.FFTBins,
		"decimation":  pipelineConfig.Decimation,
		"ntaps":       pipelineConfig.Detector.NTaps,
	})

	return &DetectorApp{
		ctx:      ctx,
		config:   config,
		pipeline: pipelineConfig,
		logger:   logger,
		factory:  stream.NewFactory(),
	}, nil
}

// PipelineConfig returns the resolved pipeline configuration
func (app *DetectorApp) PipelineConfig() pipeline.Config {
	return app.pipeline
}

// Run executes detection until the source ends, the requested rounds are
// done or ctx is cancelled
func (app *DetectorApp) Run(ctx context.Context) (*Summary, error) {
	if app.config.Source.URL == "" {
		return nil, fmt.Errorf("input URL is required")
	}

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: app.ctx.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise metrics: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			app.logger.Warn("Metrics shutdown failed", logging.Fields{"error": err.Error()})
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	source, err := app.factory.DetectAndOpen(ctx, app.config.Source.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer source.Close()

	sink, err := output.NewSink(app.config.Output.URL, app.config.Output.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	defer sink.Close()

	opts := []pipeline.Option{
		pipeline.WithLogger(app.logger),
		pipeline.WithMetrics(metrics),
	}
	if app.config.Output.SpectrumOut != "" {
		sw, err := output.NewSpectrumWriter(app.config.Output.SpectrumOut)
		if err != nil {
			return nil, err
		}
		defer sw.Close()
		opts = append(opts, pipeline.WithSpectrumWriter(sw))
	}

	p, err := pipeline.New(app.pipeline, source, sink, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	app.logger.Info("Starting channel detection", logging.Fields{
		"source":      source.Metadata().URL,
		"source_type": string(source.Type()),
		"center_freq": app.pipeline.Detector.CenterFreq,
		"rounds":      app.pipeline.Rounds,
	})

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	serverCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	g.Go(func() error {
		defer stopServer()
		return p.Run(gctx)
	})

	if app.config.Control.Enabled {
		server := control.NewServer(p, app.logger)
		g.Go(func() error {
			return server.ListenAndServe(serverCtx, app.config.Control.Addr)
		})
	}

	err = g.Wait()
	summary := &Summary{
		Source:   source.Type(),
		Duration: time.Since(start),
		Snapshot: p.Snapshot(),
	}

	app.logger.Info("Channel detection finished", logging.Fields{
		"frames_processed": summary.Snapshot.FramesProcessed,
		"frames_skipped":   summary.Snapshot.FramesSkipped,
		"new_signals":      summary.Snapshot.NewSignals,
		"duration":         summary.Duration.Seconds(),
	})

	app.collectRunMetrics(summary)

	if err != nil && !errors.Is(err, context.Canceled) {
		return summary, fmt.Errorf("detection failed: %w", err)
	}
	return summary, nil
}

// ParseLogLevel maps a configured level name to a logging level. An empty
// name is info; verbose always selects debug.
func ParseLogLevel(name string, verbose bool) (logging.Level, error) {
	if verbose {
		return logging.DebugLevel, nil
	}

	switch strings.ToLower(name) {
	case "debug":
		return logging.DebugLevel, nil
	case "", "info":
		return logging.InfoLevel, nil
	case "warn", "warning":
		return logging.WarnLevel, nil
	case "error":
		return logging.ErrorLevel, nil
	default:
		return logging.InfoLevel, fmt.Errorf("unsupported log level: %s", name)
	}
}

// setupLogging applies the configured level to the global logger, which
// components without an explicit logger use, and to the application logger
func setupLogging(ctx *Context, config *configs.Config) (logging.Logger, error) {
	level, err := ParseLogLevel(config.LogLevel, ctx.Verbose || config.Verbose)
	if err != nil {
		return nil, err
	}

	logging.SetLevel(level)
	logger := logging.NewDefaultLogger()
	logger.SetLevel(level)
	return logger, nil
}

// collectRunMetrics sends run totals to rootcollector
func (app *DetectorApp) collectRunMetrics(summary *Summary) {
	if !app.config.Collector.Enabled || summary == nil {
		return
	}

	err := rootlogger.Configure(logger.LogOptions{
		Out:          app.config.Collector.LogFile,
		ReopenSignal: syscall.SIGHUP,
		Level:        logtypes.InfoLevel,
	})
	if err != nil {
		logging.Error(err, "Failed configuring log writer")
		return
	}

	tags := []string{
		"source:" + string(summary.Source),
		"center_freq:" + strconv.FormatFloat(summary.Snapshot.CenterFreq, 'f', 0, 64),
	}

	rootcollector.Metric("channel_detector.frames.processed", summary.Snapshot.FramesProcessed, tags)
	rootcollector.Metric("channel_detector.frames.skipped", summary.Snapshot.FramesSkipped, tags)
	rootcollector.Metric("channel_detector.detections", summary.Snapshot.Detections, tags)
	rootcollector.Metric("channel_detector.signals.new", summary.Snapshot.NewSignals, tags)
	rootcollector.Metric("channel_detector.signals.tracked", int64(len(summary.Snapshot.Signals)), tags)
	rootcollector.Metric("channel_detector.run.duration.milliseconds", summary.Duration.Milliseconds(), tags)
}
