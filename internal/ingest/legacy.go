// Package ingest imports legacy address payloads (django-address style field
// names) into the normalized pipeline, with batch skip-and-report semantics.
package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/addresskit/internal/model"
	"github.com/sells-group/addresskit/internal/resilience"
	"github.com/sells-group/addresskit/internal/resolver"
	"github.com/sells-group/addresskit/internal/usaddr"
	"github.com/sells-group/addresskit/pkg/geocode"
)

// Options configures legacy ingestion.
type Options struct {
	// GeocodeMissing routes records without structured fields through the
	// Adapter instead of the offline parser.
	GeocodeMissing bool
	Adapter        geocode.Adapter
	Retry          resilience.RetryConfig
}

// Ingester imports legacy payloads through a Resolver.
type Ingester struct {
	resolver *resolver.Resolver
	opts     Options
}

// New creates an Ingester.
func New(r *resolver.Resolver, opts Options) *Ingester {
	return &Ingester{resolver: r, opts: opts}
}

// legacyAliases maps each normalized field to the legacy keys that may carry
// it, in precedence order.
var legacyAliases = map[string][]string{
	"line1":        {"line1", "street", "street_line_1", "street1", "address1"},
	"line2":        {"line2", "street_line_2", "street2", "address2"},
	"city":         {"city", "locality"},
	"state":        {"state", "state_name"},
	"state_code":   {"state_code", "province", "state_iso"},
	"postal_code":  {"postal_code", "zip", "zipcode"},
	"country":      {"country", "country_name"},
	"country_code": {"country_code", "country_iso"},
	"unit":         {"unit", "suite", "apartment", "apt", "unit_number"},
}

type legacyFields struct {
	streetNumber string
	route        string
	unitNumber   string
	formatted    string
	raw          string
	location     resolver.LocationInput
}

// IngestLegacy imports one legacy payload. Records carrying a street line and
// a locality with state context take the structured path; otherwise the raw
// string is geocoded (when enabled and an adapter is available) or parsed
// offline. Repeated ingestion of the same record deduplicates.
func (i *Ingester) IngestLegacy(ctx context.Context, payload map[string]any) (*model.Address, bool, error) {
	fields := normalizeLegacyPayload(payload)
	if fields.raw == "" {
		return nil, false, model.NewValidationError("legacy.raw", "legacy payload carries no address data")
	}

	hasStreet := fields.streetNumber != "" || fields.route != ""
	hasLocality := fields.location.Locality != "" &&
		(fields.location.StateCode != "" || fields.location.StateName != "")

	if hasStreet && hasLocality {
		rawPayload, err := json.Marshal(payload)
		if err != nil {
			return nil, false, eris.Wrap(err, "ingest: marshal legacy payload")
		}
		comp := resolver.Components{
			StreetNumber: fields.streetNumber,
			StreetName:   fields.route,
			Route:        fields.route,
			UnitNumber:   fields.unitNumber,
			Formatted:    fields.formatted,
			Provider:     "legacy",
			RawPayload:   rawPayload,
		}
		return i.resolver.CreateFromComponents(ctx, comp, fields.location, fields.raw)
	}

	if !i.opts.GeocodeMissing || i.opts.Adapter == nil {
		return i.resolver.CreateFromRaw(ctx, fields.raw)
	}
	return i.resolver.CreateFromRaw(ctx, fields.raw,
		resolver.WithAdapter(i.opts.Adapter),
		resolver.WithRetry(i.opts.Retry),
	)
}

// Report summarizes a batch ingestion run.
type Report struct {
	Created      int       `json:"created"`
	Deduplicated int       `json:"deduplicated"`
	Failed       int       `json:"failed"`
	Failures     []Failure `json:"failures,omitempty"`
}

// Failure records one skipped record.
type Failure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// IngestBatch imports records with bounded concurrency. A failing record is
// skipped and reported; it never aborts the batch.
func (i *Ingester) IngestBatch(ctx context.Context, records []map[string]any, concurrency int) *Report {
	if concurrency <= 0 {
		concurrency = 1
	}

	var mu sync.Mutex
	report := &Report{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for idx, record := range records {
		g.Go(func() error {
			_, created, err := i.IngestLegacy(ctx, record)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
				report.Failures = append(report.Failures, Failure{Index: idx, Reason: err.Error()})
				zap.L().Warn("legacy record skipped",
					zap.Int("index", idx),
					zap.Error(err),
				)
			case created:
				report.Created++
			default:
				report.Deduplicated++
			}
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func normalizeLegacyPayload(payload map[string]any) legacyFields {
	get := func(field string) string {
		return firstNonEmpty(payload, legacyAliases[field])
	}

	line1 := get("line1")
	line2 := get("line2")
	city := get("city")
	state := get("state")
	stateCode := get("state_code")
	if stateCode == "" {
		stateCode = state
	}
	postalCode := get("postal_code")
	country := get("country")
	countryCode := get("country_code")
	unit := get("unit")

	var fields legacyFields
	fields.streetNumber, fields.route = splitLine(line1)
	fields.unitNumber = unit
	fields.location = resolver.LocationInput{
		CountryName: country,
		CountryCode: countryCode,
		StateName:   state,
		StateCode:   stateCode,
		Locality:    city,
		PostalCode:  postalCode,
	}

	var rawInput string
	if v, ok := payload["raw"].(string); ok && strings.TrimSpace(v) != "" {
		rawInput = usaddr.NormalizeString(v)
	}

	fields.formatted = usaddr.NormalizeString(strings.TrimSpace(strings.Join(nonEmpty(line1, line2), " ")))
	if fields.formatted == "" {
		fields.formatted = rawInput
	}

	fields.raw = rawInput
	if fields.raw == "" {
		fields.raw = buildRawString(line1, line2, city, stateCode, postalCode, country)
	}

	return fields
}

func buildRawString(line1, line2, city, state, postalCode, country string) string {
	cityState := strings.Join(nonEmpty(city, state), ", ")
	segments := nonEmpty(line1, line2, cityState, postalCode, country)
	return usaddr.NormalizeString(strings.Join(segments, ", "))
}

// splitLine separates a leading house number from the rest of a street line.
func splitLine(line string) (number, route string) {
	parts := strings.Fields(usaddr.NormalizeString(line))
	if len(parts) == 0 {
		return "", ""
	}
	if isDigits(parts[0]) {
		return parts[0], strings.Join(parts[1:], " ")
	}
	return "", strings.Join(parts, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func firstNonEmpty(payload map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := payload[key].(string); ok && strings.TrimSpace(v) != "" {
			return usaddr.NormalizeString(v)
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
