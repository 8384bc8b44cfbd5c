package stream

import (
	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
	"github.com/RyanBlaney/channel-detector/pkg/stream/iqfile"
	"github.com/RyanBlaney/channel-detector/pkg/stream/iqudp"
)

// Detector resolves source URLs by scheme
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// DetectType returns the source type for a URL. A bare path is a file.
func (sd *Detector) DetectType(sourceURL string) (common.SourceType, error) {
	if iqfile.DetectFromURL(sourceURL) == common.SourceTypeFile {
		return common.SourceTypeFile, nil
	}

	if iqudp.DetectFromURL(sourceURL) == common.SourceTypeUDP {
		return common.SourceTypeUDP, nil
	}

	scheme, _ := common.SplitURL(sourceURL)
	if scheme == string(common.SourceTypeOsmoSDR) {
		return common.SourceTypeOsmoSDR, nil
	}

	return common.SourceTypeUnsupported, common.NewSourceError(
		common.SourceTypeUnsupported, sourceURL, common.ErrCodeUnsupported,
		"unsupported schema: "+scheme,
		nil,
	)
}
