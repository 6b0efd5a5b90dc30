package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGenerateSample_VariesStreetNumbers(t *testing.T) {
	records := GenerateSample(7)
	require.Len(t, records, 7)

	assert.Equal(t, "100 Market St", records[0]["line1"])
	assert.Equal(t, "101 Elm Street", records[1]["street"])
	assert.Equal(t, "103 N Main St, Springfield, IL 62701", records[3]["raw"])
	assert.Equal(t, "PO Box 104", records[4]["street_line_1"])
	// Sixth record reuses the first template with a new number.
	assert.Equal(t, "105 Market St", records[5]["line1"])
}

func TestWriteSample_JSONLRoundTrip(t *testing.T) {
	records := GenerateSample(4)

	var buf bytes.Buffer
	require.NoError(t, WriteSample(&buf, records, "jsonl"))
	assert.Equal(t, 4, strings.Count(buf.String(), "\n"))

	decoded, err := ReadRecords(&buf, "jsonl")
	require.NoError(t, err)
	assert.Equal(t, records, decoded)
}

func TestWriteSample_YAML(t *testing.T) {
	records := GenerateSample(2)

	var buf bytes.Buffer
	require.NoError(t, WriteSample(&buf, records, "yaml"))

	var decoded []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "100 Market St", decoded[0]["line1"])
}

func TestWriteSample_UnsupportedFormat(t *testing.T) {
	err := WriteSample(&bytes.Buffer{}, GenerateSample(1), "csv")
	require.Error(t, err)
}

func TestReadRecords_JSONArray(t *testing.T) {
	in := strings.NewReader(`[{"line1": "1 A St"}, {"line1": "2 B St"}]`)
	records, err := ReadRecords(in, "json")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2 B St", records[1]["line1"])
}

func TestReadRecords_JSONRequiresArray(t *testing.T) {
	_, err := ReadRecords(strings.NewReader(`{"line1": "1 A St"}`), "json")
	require.Error(t, err)
}

func TestReadRecords_JSONLSkipsBlankLines(t *testing.T) {
	in := strings.NewReader("{\"line1\": \"1 A St\"}\n\n{\"line1\": \"2 B St\"}\n")
	records, err := ReadRecords(in, "jsonl")
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestReadRecords_UnsupportedFormat(t *testing.T) {
	_, err := ReadRecords(strings.NewReader(""), "xml")
	require.Error(t, err)
}
