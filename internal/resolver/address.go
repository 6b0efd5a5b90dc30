package resolver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addresskit/internal/model"
	"github.com/sells-group/addresskit/internal/resilience"
	"github.com/sells-group/addresskit/internal/usaddr"
	"github.com/sells-group/addresskit/pkg/geocode"
)

// Components is the normalized street-level payload handed to the resolver.
// Pointer fields distinguish "absent" from "explicitly false/zero": a nil
// flag leaves the stored value alone.
type Components struct {
	StreetNumber    string
	StreetName      string
	Route           string
	StreetType      string
	StreetDirection string
	UnitType        string
	UnitNumber      string

	Formatted string
	Latitude  *float64
	Longitude *float64

	IsPOBox    *bool
	IsMilitary *bool

	// Provider attribution. Provenance is recorded only when Provider is
	// non-empty; Identifier feeds the per-provider identifier upsert.
	Provider   string
	Identifier string
	RawPayload json.RawMessage
	Metadata   map[string]any
}

// CreateFromComponents resolves the location hierarchy, finds or creates the
// address by its dedup tuple, refreshes mutable fields from the payload, and
// records provenance when the payload names a provider.
func (r *Resolver) CreateFromComponents(ctx context.Context, comp Components, loc LocationInput, raw string) (*model.Address, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, model.NewValidationError("address.raw", "addresses may not have a blank raw field")
	}

	resolved, err := r.ResolveLocation(ctx, loc)
	if err != nil {
		return nil, false, err
	}
	localityID := ""
	if resolved.Locality != nil {
		localityID = resolved.Locality.ID
	}

	var addr *model.Address
	created := false

	// A known provider identifier resolves straight to its address without
	// touching the dedup tuple.
	if comp.Provider != "" && comp.Identifier != "" {
		id, err := r.store.FindAddressIDByIdentifier(ctx, comp.Provider, comp.Identifier)
		if err != nil {
			return nil, false, err
		}
		if id != "" {
			addr, err = r.store.GetAddress(ctx, id)
			if err != nil {
				return nil, false, err
			}
		}
	}

	if addr == nil {
		candidate := buildAddress(comp, raw, localityID)
		addr, created, err = r.store.FindOrCreateAddress(ctx, candidate)
		if err != nil {
			return nil, false, err
		}
	}

	if !created && applyComponents(addr, comp, raw, localityID) {
		if err := r.store.UpdateAddress(ctx, addr); err != nil {
			return nil, false, err
		}
	}

	if comp.Provider != "" {
		if err := r.recordProvenance(ctx, addr, comp, loc); err != nil {
			return nil, false, err
		}
	}

	return addr, created, nil
}

// CreateOption configures CreateFromRaw.
type CreateOption func(*createOptions)

type createOptions struct {
	adapter geocode.Adapter
	parser  func(string) usaddr.Components
	retry   resilience.RetryConfig
}

// WithAdapter routes the raw string through a geocoding provider before
// falling back to the offline parser.
func WithAdapter(a geocode.Adapter) CreateOption {
	return func(o *createOptions) {
		o.adapter = a
	}
}

// WithParser overrides the offline component parser.
func WithParser(p func(string) usaddr.Components) CreateOption {
	return func(o *createOptions) {
		o.parser = p
	}
}

// WithRetry overrides the rate-limit backoff configuration for geocode calls.
func WithRetry(cfg resilience.RetryConfig) CreateOption {
	return func(o *createOptions) {
		o.retry = cfg
	}
}

// CreateFromRaw creates or reuses an address from a free-form string. The
// string is standardized first; with an adapter configured the geocoded
// components win, retried on rate limits and falling back to the offline
// parser on transport failures or no-match. An exhausted rate limit surfaces
// to the caller.
func (r *Resolver) CreateFromRaw(ctx context.Context, raw string, opts ...CreateOption) (*model.Address, bool, error) {
	o := createOptions{
		parser: usaddr.ParseComponents,
		retry:  resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	normalized := usaddr.StandardizeAddress(raw)
	if normalized == "" {
		return nil, false, model.NewValidationError("address.raw", "address string cannot be empty")
	}

	if o.adapter != nil {
		retry := o.retry
		if retry.OnRetry == nil {
			retry.OnRetry = resilience.RetryLogger(o.adapter.Name(), "geocode")
		}
		norm, err := resilience.Do(ctx, retry, func(ctx context.Context) (*geocode.Normalized, error) {
			return o.adapter.Geocode(ctx, normalized)
		})
		switch {
		case err == nil && norm != nil:
			comp, loc := fromGeocode(norm, o.adapter.Name())
			rawOut := usaddr.StandardizeAddress(norm.Formatted)
			if rawOut == "" {
				rawOut = normalized
			}
			return r.CreateFromComponents(ctx, comp, loc, rawOut)
		case err == nil:
			// No match; the offline parser still gets a shot.
		case resilience.IsTransport(err):
			zap.L().Warn("geocode unavailable, falling back to parser",
				zap.String("provider", o.adapter.Name()),
				zap.Error(err),
			)
		default:
			return nil, false, err
		}
	}

	parsed := o.parser(normalized)
	if parsed.Empty() {
		// Nothing extractable; keep the raw string without a parser snapshot.
		return r.CreateFromComponents(ctx, Components{}, LocationInput{}, normalized)
	}
	comp, loc, err := fromParsed(parsed)
	if err != nil {
		return nil, false, err
	}
	return r.CreateFromComponents(ctx, comp, loc, normalized)
}

// fromGeocode translates an adapter result into resolver inputs.
func fromGeocode(norm *geocode.Normalized, provider string) (Components, LocationInput) {
	comp := Components{
		StreetNumber:    norm.Components.StreetNumber,
		StreetName:      norm.Components.StreetName,
		Route:           norm.Components.Route,
		StreetType:      norm.Components.StreetType,
		StreetDirection: norm.Components.StreetDirection,
		UnitType:        norm.Components.UnitType,
		UnitNumber:      norm.Components.UnitNumber,
		Formatted:       norm.Formatted,
		Latitude:        norm.Latitude,
		Longitude:       norm.Longitude,
		Provider:        provider,
		Identifier:      norm.Identifier,
		RawPayload:      norm.Payload,
		Metadata:        norm.Metadata,
	}
	if norm.IsPOBox {
		v := true
		comp.IsPOBox = &v
	}
	if norm.IsMilitary {
		v := true
		comp.IsMilitary = &v
	}
	if norm.Confidence != "" {
		if comp.Metadata == nil {
			comp.Metadata = map[string]any{}
		}
		comp.Metadata["confidence"] = norm.Confidence
	}

	loc := LocationInput{
		CountryName: norm.Location.Country,
		CountryCode: norm.Location.CountryCode,
		StateName:   norm.Location.State,
		StateCode:   norm.Location.StateCode,
		Locality:    norm.Location.Locality,
		PostalCode:  norm.Location.PostalCode,
	}
	return comp, loc
}

// fromParsed translates offline parser output into resolver inputs. A PO-Box
// match maps to street fields so the dedup tuple still discriminates between
// boxes in the same locality.
func fromParsed(parsed usaddr.Components) (Components, LocationInput, error) {
	payload, err := json.Marshal(parsed)
	if err != nil {
		return Components{}, LocationInput{}, eris.Wrap(err, "resolver: marshal parsed components")
	}

	isPOBox := parsed.POBox != ""
	comp := Components{
		StreetNumber:    parsed.StreetNumber,
		StreetName:      parsed.StreetName,
		Route:           parsed.StreetName,
		StreetType:      parsed.StreetType,
		StreetDirection: parsed.StreetDirection,
		UnitType:        parsed.UnitType,
		UnitNumber:      parsed.UnitNumber,
		IsPOBox:         &isPOBox,
		Provider:        "parser",
		RawPayload:      payload,
	}
	if isPOBox && comp.StreetName == "" {
		comp.StreetName = "PO Box"
		comp.Route = "PO Box"
		comp.StreetNumber = parsed.POBox
	}

	loc := LocationInput{
		Locality:   parsed.City,
		StateCode:  parsed.State,
		PostalCode: parsed.PostalCode,
	}
	return comp, loc, nil
}

func buildAddress(comp Components, raw, localityID string) *model.Address {
	addr := &model.Address{
		StreetNumber:    comp.StreetNumber,
		StreetName:      comp.StreetName,
		StreetType:      comp.StreetType,
		StreetDirection: comp.StreetDirection,
		UnitType:        comp.UnitType,
		UnitNumber:      comp.UnitNumber,
		Route:           comp.Route,
		Raw:             raw,
		Formatted:       comp.Formatted,
		Latitude:        comp.Latitude,
		Longitude:       comp.Longitude,
		LocalityID:      localityID,
	}
	if addr.Formatted == "" {
		addr.Formatted = raw
	}
	if comp.IsPOBox != nil {
		addr.IsPOBox = *comp.IsPOBox
	}
	if comp.IsMilitary != nil {
		addr.IsMilitary = *comp.IsMilitary
	}
	return addr
}

// applyComponents refreshes an existing address from a new payload. Incoming
// blanks never clear stored values; only non-empty fields win.
func applyComponents(addr *model.Address, comp Components, raw, localityID string) bool {
	changed := false

	setString := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	setString(&addr.Raw, raw)
	setString(&addr.StreetNumber, comp.StreetNumber)
	setString(&addr.StreetName, comp.StreetName)
	setString(&addr.Route, comp.Route)
	setString(&addr.StreetType, comp.StreetType)
	setString(&addr.StreetDirection, strings.ToUpper(comp.StreetDirection))
	setString(&addr.UnitType, comp.UnitType)
	setString(&addr.UnitNumber, comp.UnitNumber)
	setString(&addr.Formatted, comp.Formatted)
	setString(&addr.LocalityID, localityID)

	if comp.Latitude != nil && (addr.Latitude == nil || *addr.Latitude != *comp.Latitude) {
		addr.Latitude = comp.Latitude
		changed = true
	}
	if comp.Longitude != nil && (addr.Longitude == nil || *addr.Longitude != *comp.Longitude) {
		addr.Longitude = comp.Longitude
		changed = true
	}
	if comp.IsPOBox != nil && addr.IsPOBox != *comp.IsPOBox {
		addr.IsPOBox = *comp.IsPOBox
		changed = true
	}
	if comp.IsMilitary != nil && addr.IsMilitary != *comp.IsMilitary {
		addr.IsMilitary = *comp.IsMilitary
		changed = true
	}

	return changed
}

// componentSnapshot is the normalized_components payload persisted with each
// provider source row.
type componentSnapshot struct {
	Address  snapshotAddress `json:"address"`
	Location LocationInput   `json:"location"`
}

type snapshotAddress struct {
	StreetNumber    string `json:"street_number"`
	StreetName      string `json:"street_name"`
	StreetType      string `json:"street_type"`
	StreetDirection string `json:"street_direction"`
	UnitType        string `json:"unit_type"`
	UnitNumber      string `json:"unit_number"`
	Route           string `json:"route"`
	Formatted       string `json:"formatted"`
}

func (r *Resolver) recordProvenance(ctx context.Context, addr *model.Address, comp Components, loc LocationInput) error {
	snapshot, err := json.Marshal(componentSnapshot{
		Address: snapshotAddress{
			StreetNumber:    addr.StreetNumber,
			StreetName:      addr.StreetName,
			StreetType:      addr.StreetType,
			StreetDirection: addr.StreetDirection,
			UnitType:        addr.UnitType,
			UnitNumber:      addr.UnitNumber,
			Route:           addr.Route,
			Formatted:       addr.Formatted,
		},
		Location: loc,
	})
	if err != nil {
		return eris.Wrap(err, "resolver: marshal component snapshot")
	}

	var metadata json.RawMessage
	if len(comp.Metadata) > 0 {
		metadata, err = json.Marshal(comp.Metadata)
		if err != nil {
			return eris.Wrap(err, "resolver: marshal source metadata")
		}
	}

	if err := r.store.RecordSource(ctx, &model.AddressSource{
		AddressID:            addr.ID,
		Provider:             comp.Provider,
		RawPayload:           comp.RawPayload,
		NormalizedComponents: snapshot,
		Metadata:             metadata,
	}); err != nil {
		return err
	}

	if comp.Identifier != "" {
		return r.store.UpsertIdentifier(ctx, &model.AddressIdentifier{
			AddressID:  addr.ID,
			Provider:   comp.Provider,
			Identifier: comp.Identifier,
		})
	}
	return nil
}
