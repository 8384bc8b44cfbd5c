// Package iqudp receives complex baseband samples as UDP datagrams of
// interleaved little-endian float32 I/Q pairs.
package iqudp

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
)

const (
	maxDatagramSize = 65536
	pollInterval    = 250 * time.Millisecond
)

// DetectFromURL reports SourceTypeUDP for udp://host:port URLs
func DetectFromURL(url string) common.SourceType {
	scheme, args := common.SplitURL(url)
	if scheme != "udp" {
		return common.SourceTypeUnsupported
	}
	if _, _, err := net.SplitHostPort(args); err != nil {
		return common.SourceTypeUnsupported
	}
	return common.SourceTypeUDP
}

// Source listens on a UDP address. Bytes of a sample split across
// datagrams are carried over to the next read.
type Source struct {
	url     string
	address string
	conn    *net.UDPConn
	packet  []byte
	pending []byte
}

func NewSource() *Source {
	return &Source{
		packet: make([]byte, maxDatagramSize),
	}
}

func (s *Source) Type() common.SourceType {
	return common.SourceTypeUDP
}

// Open binds the listening socket named by url
func (s *Source) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, args := common.SplitURL(url)
	addr, err := net.ResolveUDPAddr("udp", args)
	if err != nil {
		return common.NewSourceError(common.SourceTypeUDP, url, common.ErrCodeInvalidFormat,
			"invalid udp address", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return common.NewSourceError(common.SourceTypeUDP, url, common.ErrCodeConnection,
			"failed to listen on udp address", err)
	}

	s.url = url
	s.address = conn.LocalAddr().String()
	s.conn = conn
	return nil
}

// LocalAddr returns the bound address, useful when listening on port 0
func (s *Source) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// ReadSamples blocks until at least one full sample is available or ctx is
// done. It never returns io.EOF.
func (s *Source) ReadSamples(ctx context.Context, buf []complex64) (int, error) {
	if s.conn == nil {
		return 0, common.NewSourceError(common.SourceTypeUDP, s.url, common.ErrCodeRead,
			"source is not open", nil)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	for len(s.pending) < common.BytesPerSample {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return 0, common.NewSourceError(common.SourceTypeUDP, s.url, common.ErrCodeRead,
				"failed to set read deadline", err)
		}

		n, _, err := s.conn.ReadFromUDP(s.packet)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return 0, common.NewSourceError(common.SourceTypeUDP, s.url, common.ErrCodeRead,
				"failed to read datagram", err)
		}
		s.pending = append(s.pending, s.packet[:n]...)
	}

	count := common.DecodeSamples(buf, s.pending)
	s.pending = append(s.pending[:0], s.pending[count*common.BytesPerSample:]...)
	return count, nil
}

func (s *Source) Metadata() *common.SourceMetadata {
	return &common.SourceMetadata{
		URL:         s.url,
		Type:        common.SourceTypeUDP,
		Address:     s.address,
		SampleBytes: common.BytesPerSample,
	}
}

func (s *Source) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
