// Package tracker debounces per-frame channel detections into a table of
// known signals gated by a time-to-live countdown.
//
// Persistence: a signal that stops being confirmed above the high threshold
// stays in the report for TTL frames in total, counting the frame in which
// it was last confirmed. With TTL=1 an unconfirmed signal disappears on the
// very next frame.
package tracker

import (
	"math"
	"slices"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/RyanBlaney/channel-detector/pkg/detector"
)

// TrackedSignal is a channel held in the tracker table
type TrackedSignal struct {
	Freq  float64 `json:"freq" yaml:"freq"`
	SSI   float64 `json:"ssi" yaml:"ssi"`
	TTL   int     `json:"ttl" yaml:"ttl"`
	IsNew bool    `json:"new" yaml:"new"`
}

// SignalTracker merges detections into a persistent signal table. It is not
// safe for concurrent use; Update must be called once per frame, in frame
// order, from a single goroutine.
type SignalTracker struct {
	channelBW     float64
	highThreshold float64
	ttl           int

	signals []TrackedSignal
	logger  logging.Logger
}

// NewSignalTracker creates a tracker with an empty table. Only ChannelBW,
// HighThreshold and TTL are read from cfg.
func NewSignalTracker(cfg detector.Config, logger logging.Logger) *SignalTracker {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SignalTracker{
		channelBW:     cfg.ChannelBW,
		highThreshold: cfg.HighThreshold,
		ttl:           cfg.TTL,
		logger: logger.WithFields(logging.Fields{
			"component": "signal_tracker",
		}),
	}
}

// Update applies one frame of detections and returns the resulting table.
func (t *SignalTracker) Update(detections []detector.Detection) []TrackedSignal {
	for i := range t.signals {
		t.signals[i].TTL--
	}

	// New-ness is decided against the table before eviction.
	tagged := make([]TrackedSignal, 0, len(detections))
	for _, det := range detections {
		tagged = append(tagged, TrackedSignal{
			Freq:  det.Freq,
			SSI:   det.SSI,
			TTL:   t.ttl,
			IsNew: !t.matches(t.signals, det.Freq),
		})
	}

	strong := tagged[:0]
	for _, sig := range tagged {
		if sig.SSI >= t.highThreshold {
			strong = append(strong, sig)
		}
	}

	survivors := t.signals[:0]
	for _, sig := range t.signals {
		if sig.TTL != 0 {
			survivors = append(survivors, sig)
		}
	}

	next := slices.Clone(strong)
	for _, old := range survivors {
		if !t.matches(strong, old.Freq) {
			old.IsNew = false
			next = append(next, old)
		}
	}
	t.signals = next

	t.logger.Debug("Tracker updated", logging.Fields{
		"detections": len(detections),
		"strong":     len(strong),
		"tracked":    len(next),
	})

	return slices.Clone(next)
}

// Signals returns a copy of the current table
func (t *SignalTracker) Signals() []TrackedSignal {
	return slices.Clone(t.signals)
}

// Len returns the number of tracked signals
func (t *SignalTracker) Len() int {
	return len(t.signals)
}

func (t *SignalTracker) matches(signals []TrackedSignal, freq float64) bool {
	for _, s := range signals {
		if math.Abs(s.Freq-freq) < t.channelBW/2 {
			return true
		}
	}
	return false
}
