package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

const spectrumSeparator = ", "

// SpectrumWriter dumps raw spectrum frames, one separator-joined line per
// frame. Each frame is flushed as soon as it is written.
type SpectrumWriter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	line   []byte
}

// NewSpectrumWriter creates (or truncates) the dump file at path
func NewSpectrumWriter(path string) (*SpectrumWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create spectrum dump: %w", err)
	}
	sw := NewSpectrumWriterTo(f)
	sw.closer = f
	return sw, nil
}

// NewSpectrumWriterTo writes frames to w
func NewSpectrumWriterTo(w io.Writer) *SpectrumWriter {
	return &SpectrumWriter{w: bufio.NewWriter(w)}
}

// WriteFrame appends one frame to the dump
func (sw *SpectrumWriter) WriteFrame(frame []float64) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.line = sw.line[:0]
	for i, v := range frame {
		if i > 0 {
			sw.line = append(sw.line, spectrumSeparator...)
		}
		sw.line = strconv.AppendFloat(sw.line, v, 'g', -1, 64)
	}
	sw.line = append(sw.line, '\n')

	if _, err := sw.w.Write(sw.line); err != nil {
		return fmt.Errorf("failed to write spectrum frame: %w", err)
	}
	return sw.w.Flush()
}

func (sw *SpectrumWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	err := sw.w.Flush()
	if sw.closer != nil {
		if cerr := sw.closer.Close(); err == nil {
			err = cerr
		}
		sw.closer = nil
	}
	return err
}

// ReadSpectrumDump loads every frame written by a SpectrumWriter
func ReadSpectrumDump(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spectrum dump: %w", err)
	}
	defer f.Close()

	return ParseSpectrumDump(f)
}

// ParseSpectrumDump reads frames from r, skipping blank lines
func ParseSpectrumDump(r io.Reader) ([][]float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var frames [][]float64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		frame := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, bin %d: %w", lineNo, i, err)
			}
			frame[i] = v
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read spectrum dump: %w", err)
	}
	return frames, nil
}
