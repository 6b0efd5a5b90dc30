package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// sampleTemplates are legacy-shaped records covering the field aliases the
// ingester accepts: canonical names, django-address names, and raw-only rows.
var sampleTemplates = []map[string]any{
	{
		"line1":       "%d Market St",
		"line2":       "Suite 400",
		"city":        "San Francisco",
		"state_code":  "CA",
		"postal_code": "94105",
		"country":     "United States",
	},
	{
		"street":  "%d Elm Street",
		"apt":     "2B",
		"city":    "Dayton",
		"state":   "Ohio",
		"zipcode": "45402",
	},
	{
		"address1":    "%d Congress Ave",
		"locality":    "Austin",
		"province":    "TX",
		"zip":         "78701",
		"country_iso": "US",
	},
	{
		"raw": "%d N Main St, Springfield, IL 62701",
	},
	{
		"street_line_1": "PO Box %d",
		"city":          "Helena",
		"state_iso":     "MT",
		"postal_code":   "59601",
	},
}

// GenerateSample returns n legacy records suitable for exercising the ingest
// pipeline end to end. Street numbers vary so records deduplicate only when
// the run is repeated.
func GenerateSample(n int) []map[string]any {
	records := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		template := sampleTemplates[i%len(sampleTemplates)]
		record := make(map[string]any, len(template))
		for k, v := range template {
			if s, ok := v.(string); ok {
				record[k] = expandSampleField(s, 100+i)
			} else {
				record[k] = v
			}
		}
		records = append(records, record)
	}
	return records
}

func expandSampleField(s string, n int) string {
	if !strings.Contains(s, "%d") {
		return s
	}
	return fmt.Sprintf(s, n)
}

// WriteSample writes records to w in the given format, "jsonl" or "yaml".
func WriteSample(w io.Writer, records []map[string]any, format string) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		for _, record := range records {
			if err := enc.Encode(record); err != nil {
				return eris.Wrap(err, "ingest: encode sample record")
			}
		}
		return nil
	case "yaml":
		if err := yaml.NewEncoder(w).Encode(records); err != nil {
			return eris.Wrap(err, "ingest: encode sample yaml")
		}
		return nil
	default:
		return eris.Errorf("ingest: unsupported sample format %q", format)
	}
}

// ReadRecords decodes legacy records from r. Format "jsonl" reads one JSON
// object per line, skipping blank lines; "json" expects a top-level array.
func ReadRecords(r io.Reader, format string) ([]map[string]any, error) {
	switch format {
	case "jsonl":
		return readJSONL(r)
	case "json":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read input")
		}
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, eris.Wrap(err, "ingest: input must be a JSON array of objects")
		}
		return records, nil
	default:
		return nil, eris.Errorf("ingest: unsupported input format %q", format)
	}
}

func readJSONL(r io.Reader) ([]map[string]any, error) {
	var records []map[string]any
	dec := json.NewDecoder(r)
	for line := 0; ; line++ {
		var record map[string]any
		if err := dec.Decode(&record); err == io.EOF {
			return records, nil
		} else if err != nil {
			return nil, eris.Wrapf(err, "ingest: decode record %d", line)
		}
		records = append(records, record)
	}
}
