// Package model defines the persisted entities of the address pipeline: the
// Country → State → Locality hierarchy, the resolved Address, and the
// per-provider provenance rows (AddressSource, AddressIdentifier).
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a malformed or missing required field. It is fatal
// to the resolution that produced it and is never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Country is the top of the location hierarchy. Rows are created lazily and
// treated as immutable once referenced, except that a blank code may be
// backfilled when a later payload supplies one.
type Country struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// State belongs to exactly one Country. Codes are stored upper-cased and are
// unique within their country.
type State struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	CountryID string `json:"country_id"`
}

// Normalize trims and upper-cases the state fields in place.
func (s *State) Normalize() {
	s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
	s.Name = strings.TrimSpace(s.Name)
}

// Validate enforces the state invariants after normalization. A blank code is
// a validation failure, never silently accepted.
func (s *State) Validate() error {
	if s.Code == "" {
		return NewValidationError("state.code", "state code cannot be blank")
	}
	if s.Name == "" {
		return NewValidationError("state.name", "state name cannot be blank")
	}
	if s.CountryID == "" {
		return NewValidationError("state.country", "state requires a country")
	}
	return nil
}

// Locality belongs to exactly one State; rows are reused by
// (state, name, postal_code) equality.
type Locality struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PostalCode string `json:"postal_code"`
	StateID    string `json:"state_id"`
}

// Address is the resolved entity. Duplicate detection uses the normalized
// (street_number, street_name, street_type, unit_number, locality) tuple.
type Address struct {
	ID              string    `json:"id"`
	StreetNumber    string    `json:"street_number"`
	StreetName      string    `json:"street_name"`
	StreetType      string    `json:"street_type"`
	StreetDirection string    `json:"street_direction"`
	UnitType        string    `json:"unit_type"`
	UnitNumber      string    `json:"unit_number"`
	Route           string    `json:"route"`
	Raw             string    `json:"raw"`
	Formatted       string    `json:"formatted"`
	IsPOBox         bool      `json:"is_po_box"`
	IsMilitary      bool      `json:"is_military"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	LocalityID      string    `json:"locality_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Normalize trims component fields, keeps the legacy route field in sync with
// the structured street fields, and auto-detects PO Box addresses.
func (a *Address) Normalize() {
	a.StreetNumber = strings.TrimSpace(a.StreetNumber)
	street := strings.TrimSpace(a.StreetName)
	route := strings.TrimSpace(a.Route)

	switch {
	case street != "" && route == "":
		route = street
	case route != "" && street == "":
		street = route
	}
	a.StreetName = street
	a.Route = route

	a.StreetType = strings.TrimSpace(a.StreetType)
	a.StreetDirection = strings.ToUpper(strings.TrimSpace(a.StreetDirection))
	a.UnitType = strings.TrimSpace(a.UnitType)
	a.UnitNumber = strings.TrimSpace(a.UnitNumber)
	a.Raw = strings.TrimSpace(a.Raw)
	a.Formatted = strings.TrimSpace(a.Formatted)

	a.detectPOBox()
}

// Validate enforces the address invariants after normalization.
func (a *Address) Validate() error {
	if a.Raw == "" {
		return NewValidationError("address.raw", "addresses may not have a blank raw field")
	}
	return nil
}

// Label returns a human-readable one-line rendering for logs and CLI output.
func (a *Address) Label() string {
	if a.Formatted != "" {
		return a.Formatted
	}

	primary := strings.Join(nonEmpty(
		a.StreetNumber,
		a.StreetDirection,
		firstNonEmpty(a.StreetName, a.Route),
		a.StreetType,
	), " ")
	unit := strings.Join(nonEmpty(a.UnitType, a.UnitNumber), " ")

	label := strings.Join(nonEmpty(primary, unit), ", ")
	if label == "" {
		return a.Raw
	}
	return label
}

func (a *Address) detectPOBox() {
	if a.IsPOBox {
		return
	}
	hints := strings.ToLower(strings.Join(nonEmpty(a.StreetNumber, a.StreetName, a.Raw), " "))
	a.IsPOBox = strings.Contains(hints, "po box") || strings.Contains(hints, "post office box")
}

// AddressSource is one retained provider snapshot for an address. History is
// bounded to the three highest versions per (address, provider).
type AddressSource struct {
	ID                   string          `json:"id"`
	AddressID            string          `json:"address_id"`
	Provider             string          `json:"provider"`
	Version              int             `json:"version"`
	RawPayload           json.RawMessage `json:"raw_payload"`
	NormalizedComponents json.RawMessage `json:"normalized_components"`
	Metadata             json.RawMessage `json:"metadata"`
	CreatedAt            time.Time       `json:"created_at"`
}

// SourceHistoryLimit is the number of provider snapshots retained per
// (address, provider) pair. Older versions are evicted on insert.
const SourceHistoryLimit = 3

// AddressIdentifier holds the most recent stable provider identifier for an
// address; exactly one row exists per (address, provider), overwritten on
// every successful geocode.
type AddressIdentifier struct {
	ID         string    `json:"id"`
	AddressID  string    `json:"address_id"`
	Provider   string    `json:"provider"`
	Identifier string    `json:"identifier"`
	CreatedAt  time.Time `json:"created_at"`
}

// AddressView is the read model exposed for audit/display: the address plus
// its resolved hierarchy, latest-per-provider sources, and identifiers.
type AddressView struct {
	Address     Address             `json:"address"`
	Locality    *Locality           `json:"locality,omitempty"`
	State       *State              `json:"state,omitempty"`
	Country     *Country            `json:"country,omitempty"`
	Sources     []AddressSource     `json:"sources"`
	Identifiers []AddressIdentifier `json:"identifiers"`
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
