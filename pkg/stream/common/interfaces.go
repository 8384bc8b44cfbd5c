package common

import "context"

// SourceType represents the kind of IQ sample source
type SourceType string

const (
	SourceTypeFile        SourceType = "file"
	SourceTypeUDP         SourceType = "udp"
	SourceTypeOsmoSDR     SourceType = "osmo-sdr"
	SourceTypeUnsupported SourceType = "unsupported"
)

// SourceMetadata contains information about an opened source
type SourceMetadata struct {
	URL         string     `json:"url"`
	Type        SourceType `json:"type"`
	Address     string     `json:"address,omitempty"`
	SampleBytes int        `json:"sample_bytes"`
}

// SampleSource delivers complex baseband samples. ReadSamples fills buf and
// returns the number of samples written; io.EOF marks the end of a finite
// source.
type SampleSource interface {
	Type() SourceType
	Open(ctx context.Context, url string) error
	ReadSamples(ctx context.Context, buf []complex64) (int, error)
	Metadata() *SourceMetadata
	Close() error
}

// SourceDetector resolves a source URL to a source type
type SourceDetector interface {
	DetectType(url string) (SourceType, error)
}
