package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/channel-detector/pkg/tracker"
)

var testSignals = []tracker.TrackedSignal{
	{Freq: 393012500, SSI: 9.5, TTL: 1, IsNew: true},
	{Freq: 393100000, SSI: 6, TTL: 0, IsNew: false},
}

func TestJSONRecordList(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewWriterSink(&buf, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, sink.Emit(testSignals))

	want := "[\n" +
		`{"freq":393012500,"ssi":9.5,"ttl":1,"new":true}` + ",\n" +
		`{"freq":393100000,"ssi":6,"ttl":0,"new":false}` +
		"\n]\n"
	assert.Equal(t, want, buf.String())
}

func TestJSONRecordListEmpty(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewWriterSink(&buf, "")
	require.NoError(t, err)

	require.NoError(t, sink.Emit(nil))
	assert.Equal(t, "[\n\n]\n", buf.String())
}

func TestJSONRecordsDecode(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewWriterSink(&buf, FormatJSON)
	require.NoError(t, err)
	require.NoError(t, sink.Emit(testSignals))

	var decoded []tracker.TrackedSignal
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, testSignals, decoded)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "signals.json")

	sink, err := NewSink("file://"+path, FormatJSON)
	require.NoError(t, err)
	require.NoError(t, sink.Emit(testSignals[:1]))
	require.NoError(t, sink.Emit(testSignals[1:]))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "[\n"))
}

func TestFormattedSinks(t *testing.T) {
	for _, format := range []string{FormatJSONPretty, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			sink, err := NewWriterSink(&buf, format)
			require.NoError(t, err)
			require.NoError(t, sink.Emit(testSignals))
			assert.NotEmpty(t, buf.String())
		})
	}
}

func TestNewSinkErrors(t *testing.T) {
	_, err := NewSink("tcp://localhost:1234", FormatJSON)
	assert.ErrorContains(t, err, "unsupported schema")

	_, err = NewSink("stdout://", "xml")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = NewSink("file://", FormatJSON)
	assert.Error(t, err)
}
