package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
	"github.com/RyanBlaney/channel-detector/pkg/stream/iqfile"
	"github.com/RyanBlaney/channel-detector/pkg/stream/iqudp"
)

// Factory maps source kinds to constructors. Safe for concurrent use.
type Factory struct {
	sources  map[common.SourceType]func() common.SampleSource
	detector common.SourceDetector
	mu       sync.RWMutex
}

// NewFactory returns a Factory that knows file:// and udp:// sources.
func NewFactory() *Factory {
	f := &Factory{
		sources:  make(map[common.SourceType]func() common.SampleSource),
		detector: NewDetector(),
	}

	f.RegisterSourceFactory(common.SourceTypeFile, func() common.SampleSource {
		return iqfile.NewSource()
	})
	f.RegisterSourceFactory(common.SourceTypeUDP, func() common.SampleSource {
		return iqudp.NewSource()
	})

	return f
}

// CreateSource returns an unopened source of the given kind.
func (f *Factory) CreateSource(sourceType common.SourceType) (common.SampleSource, error) {
	f.mu.RLock()
	sourceFactory, exists := f.sources[sourceType]
	f.mu.RUnlock()

	if !exists {
		return nil, common.NewSourceError(
			sourceType, "", common.ErrCodeUnsupported,
			fmt.Sprintf("unsupported source type: %s", sourceType),
			nil,
		)
	}

	return sourceFactory(), nil
}

// DetectAndOpen picks the source kind from the URL scheme and opens it.
func (f *Factory) DetectAndOpen(ctx context.Context, url string) (common.SampleSource, error) {
	sourceType, err := f.detector.DetectType(url)
	if err != nil {
		return nil, fmt.Errorf("failed to detect source type: %w", err)
	}

	source, err := f.CreateSource(sourceType)
	if err != nil {
		return nil, err
	}

	if err := source.Open(ctx, url); err != nil {
		return nil, err
	}

	return source, nil
}

// RegisterSourceFactory adds or replaces the constructor for sourceType.
func (f *Factory) RegisterSourceFactory(sourceType common.SourceType, factory func() common.SampleSource) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sources[sourceType] = factory
	return nil
}

// SupportedTypes lists the registered kinds in no particular order.
func (f *Factory) SupportedTypes() []common.SourceType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]common.SourceType, 0, len(f.sources))
	for sourceType := range f.sources {
		types = append(types, sourceType)
	}
	return types
}
