// Package resolver turns loosely structured address payloads into persisted
// Address rows backed by the Country/State/Locality hierarchy, recording
// provider provenance along the way.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/addresskit/internal/model"
	"github.com/sells-group/addresskit/internal/store"
	"github.com/sells-group/addresskit/internal/usaddr"
)

// LocationInput is the administrative hierarchy extracted from a payload.
type LocationInput struct {
	CountryName string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	StateName   string `json:"state,omitempty"`
	StateCode   string `json:"state_code,omitempty"`
	Locality    string `json:"locality,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
}

// ResolvedLocation holds the rows the hierarchy resolved to. Any level may be
// nil when the input carried no data for it.
type ResolvedLocation struct {
	Country  *model.Country
	State    *model.State
	Locality *model.Locality
}

// Resolver resolves addresses and their location hierarchy against a Store.
type Resolver struct {
	store store.Store
}

// New creates a Resolver backed by the given store.
func New(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// ResolveLocation gets or creates the country, state, and locality rows for
// the input. Each level reuses an existing row before inserting; concurrent
// resolvers converge on the same rows. A state with no country context
// defaults to the United States, since parsed payloads carry US state codes
// with no country of their own. A locality with no resolvable state is a
// ValidationError, as are a 2-letter US state code outside the USPS tables
// and a malformed US postal code.
func (r *Resolver) ResolveLocation(ctx context.Context, in LocationInput) (*ResolvedLocation, error) {
	out := &ResolvedLocation{}

	hasCountry := strings.TrimSpace(in.CountryName) != "" || strings.TrimSpace(in.CountryCode) != ""
	hasState := strings.TrimSpace(in.StateName) != "" || strings.TrimSpace(in.StateCode) != ""
	hasLocality := strings.TrimSpace(in.Locality) != ""

	if hasState && !hasCountry {
		in.CountryName, in.CountryCode = "United States", "US"
		hasCountry = true
	}

	if hasCountry {
		country, err := r.store.GetOrCreateCountry(ctx, in.CountryName, in.CountryCode)
		if err != nil {
			return nil, err
		}
		out.Country = country
	}

	isUS := out.Country != nil && out.Country.Code == "US"

	if hasState {
		// A 2-letter code in the US must be a real state, territory, or
		// military code. Longer codes pass through; legacy payloads use the
		// state name as the code.
		code := strings.ToUpper(strings.TrimSpace(in.StateCode))
		if isUS && len(code) == 2 && !usaddr.ValidStateCode(code) {
			return nil, model.NewValidationError("state.code",
				fmt.Sprintf("%q is not a US state, territory, or military code", in.StateCode))
		}
		state, err := r.store.GetOrCreateState(ctx, out.Country.ID, in.StateName, in.StateCode)
		if err != nil {
			return nil, err
		}
		out.State = state
	}

	if hasLocality {
		if out.State == nil {
			return nil, model.NewValidationError("locality.state", "cannot resolve a locality without state context")
		}
		postal := strings.TrimSpace(in.PostalCode)
		if isUS && postal != "" && !usaddr.ValidPostalCode(postal) {
			return nil, model.NewValidationError("locality.postal_code",
				fmt.Sprintf("%q is not a 5-digit or ZIP+4 postal code", in.PostalCode))
		}
		locality, err := r.store.GetOrCreateLocality(ctx, out.State.ID, in.Locality, in.PostalCode)
		if err != nil {
			return nil, err
		}
		out.Locality = locality
	}

	return out, nil
}
