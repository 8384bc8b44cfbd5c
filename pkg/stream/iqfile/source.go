// Package iqfile reads complex baseband samples from files of interleaved
// little-endian float32 I/Q pairs.
package iqfile

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
)

const readBufferSize = 1 << 16

// DetectFromURL reports SourceTypeFile for file:// URLs and bare paths
func DetectFromURL(url string) common.SourceType {
	scheme, args := common.SplitURL(url)
	if (scheme == "" || scheme == "file") && args != "" {
		return common.SourceTypeFile
	}
	return common.SourceTypeUnsupported
}

// Source reads samples from a file
type Source struct {
	url    string
	path   string
	file   *os.File
	reader *bufio.Reader
	carry  []byte
	raw    []byte
}

func NewSource() *Source {
	return &Source{}
}

// NewSourceFromReader wraps an already open reader, mainly for tests and
// stdin.
func NewSourceFromReader(r io.Reader) *Source {
	return &Source{
		url:    "file://-",
		path:   "-",
		reader: bufio.NewReaderSize(r, readBufferSize),
	}
}

func (s *Source) Type() common.SourceType {
	return common.SourceTypeFile
}

// Open opens the file named by url. The path "-" reads stdin.
func (s *Source) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, path := common.SplitURL(url)
	if path == "" {
		return common.NewSourceError(common.SourceTypeFile, url, common.ErrCodeInvalidFormat,
			"missing file path", nil)
	}

	s.url = url
	s.path = path

	if path == "-" {
		s.reader = bufio.NewReaderSize(os.Stdin, readBufferSize)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return common.NewSourceError(common.SourceTypeFile, url, common.ErrCodeConnection,
			"failed to open sample file", err)
	}
	s.file = f
	s.reader = bufio.NewReaderSize(f, readBufferSize)
	return nil
}

// ReadSamples fills buf with samples. It returns io.EOF once the file is
// exhausted; a trailing partial sample is dropped.
func (s *Source) ReadSamples(ctx context.Context, buf []complex64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.reader == nil {
		return 0, common.NewSourceError(common.SourceTypeFile, s.url, common.ErrCodeRead,
			"source is not open", nil)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	need := len(buf)*common.BytesPerSample - len(s.carry)
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	n, err := io.ReadAtLeast(s.reader, raw, min(need, common.BytesPerSample-len(s.carry)))
	data := append(s.carry, raw[:n]...)

	count := common.DecodeSamples(buf, data)
	s.carry = append(s.carry[:0], data[count*common.BytesPerSample:]...)

	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if count > 0 {
				return count, nil
			}
			return 0, io.EOF
		}
		return count, common.NewSourceError(common.SourceTypeFile, s.url, common.ErrCodeRead,
			"failed to read sample file", err)
	}
	return count, nil
}

func (s *Source) Metadata() *common.SourceMetadata {
	return &common.SourceMetadata{
		URL:         s.url,
		Type:        common.SourceTypeFile,
		Address:     s.path,
		SampleBytes: common.BytesPerSample,
	}
}

func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.reader = nil
	return err
}
