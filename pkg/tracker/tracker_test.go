package tracker

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/channel-detector/pkg/detector"
)

type TrackerTestSuite struct {
	suite.Suite
	cfg detector.Config
}

func (s *TrackerTestSuite) SetupTest() {
	s.cfg = detector.Config{
		SampleRate:    1024000,
		ChannelBW:     12500,
		FFTBins:       1024,
		NTaps:         25,
		MaxOverlap:    0.25,
		LowThreshold:  4,
		HighThreshold: 6,
		TTL:           2,
	}
}

func (s *TrackerTestSuite) newTracker(ttl int) *SignalTracker {
	cfg := s.cfg
	cfg.TTL = ttl
	return NewSignalTracker(cfg, nil)
}

func (s *TrackerTestSuite) TestEndToEndScenario() {
	tr := s.newTracker(2)

	out := tr.Update([]detector.Detection{{Freq: 100000, SSI: 7}})
	s.Require().Len(out, 1)
	s.Equal(TrackedSignal{Freq: 100000, SSI: 7, TTL: 2, IsNew: true}, out[0])

	out = tr.Update(nil)
	s.Require().Len(out, 1)
	s.Equal(TrackedSignal{Freq: 100000, SSI: 7, TTL: 1, IsNew: false}, out[0])

	out = tr.Update(nil)
	s.Empty(out)
	s.Zero(tr.Len())
}

func (s *TrackerTestSuite) TestEvictionAfterTTLFrames() {
	for _, ttl := range []int{1, 2, 3, 5} {
		tr := s.newTracker(ttl)

		out := tr.Update([]detector.Detection{{Freq: 5000, SSI: 10}})
		s.Require().Len(out, 1, "ttl=%d frame 0", ttl)

		for frame := 1; frame < ttl; frame++ {
			out = tr.Update(nil)
			s.Len(out, 1, "ttl=%d frame %d", ttl, frame)
		}

		out = tr.Update(nil)
		s.Empty(out, "ttl=%d frame %d", ttl, ttl)
	}
}

func (s *TrackerTestSuite) TestWeakDetectionNeverCreatesSignal() {
	tr := s.newTracker(3)

	out := tr.Update([]detector.Detection{{Freq: 100000, SSI: 5}})
	s.Empty(out)

	out = tr.Update([]detector.Detection{{Freq: 100000, SSI: 5.99}})
	s.Empty(out)
}

func (s *TrackerTestSuite) TestWeakDetectionDoesNotRefresh() {
	tr := s.newTracker(2)

	tr.Update([]detector.Detection{{Freq: 100000, SSI: 8}})

	// A weak detection on the same channel neither refreshes nor replaces it.
	out := tr.Update([]detector.Detection{{Freq: 100200, SSI: 5}})
	s.Require().Len(out, 1)
	s.Equal(100000.0, out[0].Freq)
	s.Equal(8.0, out[0].SSI)
	s.Equal(1, out[0].TTL)

	out = tr.Update([]detector.Detection{{Freq: 100200, SSI: 5}})
	s.Empty(out)
}

func (s *TrackerTestSuite) TestStrongDetectionRefreshes() {
	tr := s.newTracker(2)

	tr.Update([]detector.Detection{{Freq: 100000, SSI: 8}})
	tr.Update(nil)

	out := tr.Update([]detector.Detection{{Freq: 101000, SSI: 9}})
	s.Require().Len(out, 1)
	s.Equal(TrackedSignal{Freq: 101000, SSI: 9, TTL: 2, IsNew: false}, out[0])
}

func (s *TrackerTestSuite) TestRefreshOnEvictionFrameIsNotNew() {
	tr := s.newTracker(1)

	tr.Update([]detector.Detection{{Freq: 100000, SSI: 8}})

	// The old entry hits ttl 0 in this frame but still counts for matching.
	out := tr.Update([]detector.Detection{{Freq: 100000, SSI: 8}})
	s.Require().Len(out, 1)
	s.False(out[0].IsNew)
}

func (s *TrackerTestSuite) TestMatchWindowIsHalfChannel() {
	tr := s.newTracker(3)
	tr.Update([]detector.Detection{{Freq: 100000, SSI: 8}})

	out := tr.Update([]detector.Detection{
		{Freq: 100000 + 6249, SSI: 7},
		{Freq: 100000 + 6250, SSI: 7},
	})

	want := []TrackedSignal{
		{Freq: 106249, SSI: 7, TTL: 3, IsNew: false},
		{Freq: 106250, SSI: 7, TTL: 3, IsNew: true},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		s.Failf("unexpected report", "(-want +got):\n%s", diff)
	}
}

func (s *TrackerTestSuite) TestMultipleChannelsIndependent() {
	tr := s.newTracker(2)

	out := tr.Update([]detector.Detection{
		{Freq: 100000, SSI: 10},
		{Freq: 200000, SSI: 12},
	})
	s.Len(out, 2)
	for _, sig := range out {
		s.True(sig.IsNew)
	}

	// Only the second channel is confirmed, the first is carried.
	out = tr.Update([]detector.Detection{{Freq: 200000, SSI: 11}})
	want := []TrackedSignal{
		{Freq: 200000, SSI: 11, TTL: 2, IsNew: false},
		{Freq: 100000, SSI: 10, TTL: 1, IsNew: false},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		s.Failf("unexpected report", "(-want +got):\n%s", diff)
	}

	out = tr.Update([]detector.Detection{{Freq: 200000, SSI: 11}})
	s.Require().Len(out, 1)
	s.Equal(200000.0, out[0].Freq)
}

func (s *TrackerTestSuite) TestReturnedSliceIsACopy() {
	tr := s.newTracker(2)
	out := tr.Update([]detector.Detection{{Freq: 100000, SSI: 10}})
	out[0].Freq = 1

	s.Equal(100000.0, tr.Signals()[0].Freq)
}

func TestTrackerTestSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}

func TestNewSignalTrackerStartsEmpty(t *testing.T) {
	tr := NewSignalTracker(detector.DefaultConfig(), nil)
	require.NotNil(t, tr)
	assert.Zero(t, tr.Len())
	assert.Empty(t, tr.Update(nil))
}
