package stream

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
)

func TestDetectType(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		url     string
		want    common.SourceType
		wantErr bool
	}{
		{url: "file:///tmp/capture.iq", want: common.SourceTypeFile},
		{url: "/tmp/capture.iq", want: common.SourceTypeFile},
		{url: "udp://0.0.0.0:5000", want: common.SourceTypeUDP},
		{url: "osmo-sdr://rtl=0", want: common.SourceTypeOsmoSDR},
		{url: "rtsp://camera", want: common.SourceTypeUnsupported, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := d.DetectType(tt.url)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported schema: rtsp")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFactorySupportedTypes(t *testing.T) {
	f := NewFactory()
	assert.ElementsMatch(t, []common.SourceType{common.SourceTypeFile, common.SourceTypeUDP}, f.SupportedTypes())
}

func TestFactoryRejectsOsmoSDR(t *testing.T) {
	_, err := NewFactory().DetectAndOpen(context.Background(), "osmo-sdr://")
	var srcErr *common.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, common.ErrCodeUnsupported, srcErr.Code)
}

func TestFactoryDetectAndOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.iq")
	require.NoError(t, os.WriteFile(path, common.EncodeSamples(nil, []complex64{1, 2}), 0o644))

	src, err := NewFactory().DetectAndOpen(context.Background(), path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, common.SourceTypeFile, src.Type())
	buf := make([]complex64, 4)
	n, err := src.ReadSamples(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, []complex64{1, 2}, buf[:n])
}
