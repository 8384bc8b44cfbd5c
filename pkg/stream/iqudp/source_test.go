package iqudp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
)

func TestDetectFromURL(t *testing.T) {
	assert.Equal(t, common.SourceTypeUDP, DetectFromURL("udp://127.0.0.1:5000"))
	assert.Equal(t, common.SourceTypeUDP, DetectFromURL("udp://:5000"))
	assert.Equal(t, common.SourceTypeUnsupported, DetectFromURL("udp://localhost"))
	assert.Equal(t, common.SourceTypeUnsupported, DetectFromURL("file:///tmp/x"))
}

func TestSourceReceivesSplitDatagrams(t *testing.T) {
	src := NewSource()
	require.NoError(t, src.Open(context.Background(), "udp://127.0.0.1:0"))
	defer src.Close()

	conn, err := net.Dial("udp", src.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	samples := []complex64{1 + 1i, 2 - 2i, 3 + 0.5i}
	raw := common.EncodeSamples(nil, samples)

	// Split the second sample across two datagrams.
	_, err = conn.Write(raw[:12])
	require.NoError(t, err)
	_, err = conn.Write(raw[12:])
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []complex64
	buf := make([]complex64, 8)
	for len(got) < len(samples) {
		n, err := src.ReadSamples(ctx, buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, samples, got)
	assert.Equal(t, common.SourceTypeUDP, src.Metadata().Type)
}

func TestSourceHonoursContext(t *testing.T) {
	src := NewSource()
	require.NoError(t, src.Open(context.Background(), "udp://127.0.0.1:0"))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := src.ReadSamples(ctx, make([]complex64, 4))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSourceOpenInvalidAddress(t *testing.T) {
	err := NewSource().Open(context.Background(), "udp://not-an-address")
	var srcErr *common.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, common.ErrCodeInvalidFormat, srcErr.Code)
}
