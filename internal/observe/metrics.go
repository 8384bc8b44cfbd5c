// Package observe provides OpenTelemetry metrics for the detection pipeline.
//
// Instruments are created from a [metric.MeterProvider]. [InitProvider]
// installs a global provider backed by a Prometheus exporter so the control
// server can expose /metrics. Tests should call [NewMetrics] with their own
// provider to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/RyanBlaney/channel-detector"

// Metrics holds the pipeline instruments. All fields are safe for
// concurrent use.
type Metrics struct {
	// Frames counts spectrum frames passed to the peak detector.
	Frames metric.Int64Counter

	// FramesSkipped counts frames dropped because their size did not match
	// the detector configuration.
	FramesSkipped metric.Int64Counter

	// Detections counts raw peaks found, before the tracker filters them.
	Detections metric.Int64Counter

	// NewSignals counts tracked signals reported with the new flag set.
	NewSignals metric.Int64Counter

	// TrackedSignals is the size of the signal table after each frame.
	TrackedSignals metric.Int64Gauge

	// FrameDuration is the time spent detecting and tracking one frame.
	FrameDuration metric.Float64Histogram
}

var frameBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates all instruments from mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("detector.frames",
		metric.WithDescription("Spectrum frames processed."),
	); err != nil {
		return nil, err
	}
	if met.FramesSkipped, err = m.Int64Counter("detector.frames.skipped",
		metric.WithDescription("Spectrum frames rejected for a size mismatch."),
	); err != nil {
		return nil, err
	}
	if met.Detections, err = m.Int64Counter("detector.detections",
		metric.WithDescription("Peaks found above the low threshold."),
	); err != nil {
		return nil, err
	}
	if met.NewSignals, err = m.Int64Counter("detector.signals.new",
		metric.WithDescription("Signals reported for the first time."),
	); err != nil {
		return nil, err
	}
	if met.TrackedSignals, err = m.Int64Gauge("detector.signals.tracked",
		metric.WithDescription("Signals held in the tracker table."),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("detector.frame.duration",
		metric.WithDescription("Time spent detecting and tracking one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level instance built from the global
// meter provider. Call InitProvider first for the instruments to be
// exported.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// FrameResult summarises one processed frame
type FrameResult struct {
	Detections int
	NewSignals int
	Tracked    int
	Duration   time.Duration
}

// RecordFrame records a processed frame. source tags every data point.
func (m *Metrics) RecordFrame(ctx context.Context, source string, res FrameResult) {
	attrs := metric.WithAttributes(attribute.String("source", source))

	m.Frames.Add(ctx, 1, attrs)
	m.Detections.Add(ctx, int64(res.Detections), attrs)
	m.NewSignals.Add(ctx, int64(res.NewSignals), attrs)
	m.TrackedSignals.Record(ctx, int64(res.Tracked), attrs)
	m.FrameDuration.Record(ctx, res.Duration.Seconds(), attrs)
}

// RecordSkipped records a frame dropped before detection
func (m *Metrics) RecordSkipped(ctx context.Context, source, reason string) {
	m.FramesSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("reason", reason),
	))
}
