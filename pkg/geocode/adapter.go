// Package geocode provides address geocoding adapters (Google, Loqate) that
// translate provider payloads into a single normalized shape.
package geocode

import (
	"context"
	"encoding/json"
)

// Components holds the street-level parts of a normalized address.
type Components struct {
	StreetNumber    string `json:"street_number,omitempty"`
	StreetName      string `json:"street_name,omitempty"`
	Route           string `json:"route,omitempty"`
	StreetType      string `json:"street_type,omitempty"`
	StreetDirection string `json:"street_direction,omitempty"`
	UnitType        string `json:"unit_type,omitempty"`
	UnitNumber      string `json:"unit_number,omitempty"`
}

// Location holds the administrative hierarchy of a normalized address.
type Location struct {
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	State       string `json:"state,omitempty"`
	StateCode   string `json:"state_code,omitempty"`
	Locality    string `json:"locality,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
}

// Normalized is the provider-independent geocoding result.
type Normalized struct {
	Components Components `json:"components"`
	Location   Location   `json:"location"`

	Formatted string   `json:"formatted,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	IsPOBox    bool `json:"is_po_box,omitempty"`
	IsMilitary bool `json:"is_military,omitempty"`

	// Identifier is the provider's stable external ID for the match
	// (Google place_id, Loqate Id). Empty when the provider returned none.
	Identifier string `json:"identifier,omitempty"`

	// Confidence is the match quality: "rooftop", "range", "centroid",
	// or "approximate".
	Confidence string `json:"confidence,omitempty"`

	// Payload is the provider's raw response body, kept for provenance.
	Payload json.RawMessage `json:"-"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Adapter geocodes a raw address string against one provider.
//
// A (nil, nil) return means the provider had no match for the query; it is
// not an error.
type Adapter interface {
	// Name identifies the provider ("google", "loqate").
	Name() string

	// Geocode resolves raw into a normalized result.
	Geocode(ctx context.Context, raw string) (*Normalized, error)
}
