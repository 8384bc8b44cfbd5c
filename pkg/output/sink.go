// Package output delivers tracked signal reports and spectrum diagnostics.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/RyanBlaney/latency-benchmark-common/output"

	"github.com/RyanBlaney/channel-detector/pkg/stream/common"
	"github.com/RyanBlaney/channel-detector/pkg/tracker"
)

// Supported report formats
const (
	FormatJSON       = "json"
	FormatJSONPretty = "json-pretty"
	FormatYAML       = "yaml"
	FormatCSV        = "csv"
	FormatTable      = "table"
)

// Sink receives one report per processed frame
type Sink interface {
	Emit(signals []tracker.TrackedSignal) error
	Close() error
}

// NewSink opens the destination named by url. stdout:// writes to standard
// output; file://<path> or a bare path writes to a file, truncating it.
func NewSink(url, format string) (Sink, error) {
	encode, err := encoderFor(format)
	if err != nil {
		return nil, err
	}

	scheme, path := common.SplitURL(url)
	switch scheme {
	case "stdout":
		return &writerSink{w: os.Stdout, encode: encode}, nil
	case "", "file":
		if path == "" {
			return nil, fmt.Errorf("missing output path in %q", url)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open output file: %w", err)
		}
		return &writerSink{w: f, closer: f, encode: encode}, nil
	default:
		return nil, fmt.Errorf("unsupported schema: %q", url)
	}
}

// NewWriterSink wraps an arbitrary writer. The writer is not closed.
func NewWriterSink(w io.Writer, format string) (Sink, error) {
	encode, err := encoderFor(format)
	if err != nil {
		return nil, err
	}
	return &writerSink{w: w, encode: encode}, nil
}

type encoder func(signals []tracker.TrackedSignal) ([]byte, error)

type writerSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	encode encoder
}

func (s *writerSink) Emit(signals []tracker.TrackedSignal) error {
	data, err := s.encode(signals)
	if err != nil {
		return fmt.Errorf("failed to format signals: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write signals: %w", err)
	}
	return nil
}

func (s *writerSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

func encoderFor(format string) (encoder, error) {
	var formatter output.Formatter
	pretty := true

	switch strings.ToLower(format) {
	case "", FormatJSON:
		return encodeRecordList, nil
	case FormatJSONPretty:
		formatter = &output.JSONFormatter{}
	case FormatYAML:
		formatter = &output.YAMLFormatter{}
	case FormatCSV:
		formatter = &output.CSVFormatter{}
	case FormatTable:
		formatter = &output.TableFormatter{}
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	return func(signals []tracker.TrackedSignal) ([]byte, error) {
		return formatter.Format(signalRecords(signals), pretty)
	}, nil
}

// encodeRecordList writes one JSON object per line wrapped in brackets, the
// format downstream decoders consume.
func encodeRecordList(signals []tracker.TrackedSignal) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, sig := range signals {
		if i > 0 {
			buf.WriteString(",\n")
		}
		line, err := json.Marshal(sig)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
	}
	buf.WriteString("\n]\n")
	return buf.Bytes(), nil
}

func signalRecords(signals []tracker.TrackedSignal) []map[string]any {
	records := make([]map[string]any, 0, len(signals))
	for _, sig := range signals {
		records = append(records, map[string]any{
			"freq": sig.Freq,
			"ssi":  sig.SSI,
			"ttl":  sig.TTL,
			"new":  sig.IsNew,
		})
	}
	return records
}
