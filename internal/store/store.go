// Package store persists the location hierarchy, resolved addresses, and
// per-provider provenance. Postgres is the primary backend; SQLite backs
// single-machine and test deployments.
package store

import (
	"context"

	"github.com/sells-group/addresskit/internal/model"
)

// AddressFilter specifies criteria for listing addresses.
type AddressFilter struct {
	LocalityID string `json:"locality_id,omitempty"`
	Search     string `json:"search,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the address pipeline.
//
// The get-or-create operations are safe under concurrent writers: a losing
// insert re-fetches the winning row instead of surfacing the conflict.
type Store interface {
	// Location hierarchy
	GetOrCreateCountry(ctx context.Context, name, code string) (*model.Country, error)
	GetOrCreateState(ctx context.Context, countryID, name, code string) (*model.State, error)
	GetOrCreateLocality(ctx context.Context, stateID, name, postalCode string) (*model.Locality, error)

	// Addresses. FindOrCreateAddress deduplicates on the normalized
	// (street_number, street_name, street_type, unit_number, locality)
	// tuple and reports whether a new row was created.
	FindOrCreateAddress(ctx context.Context, addr *model.Address) (*model.Address, bool, error)
	UpdateAddress(ctx context.Context, addr *model.Address) error
	GetAddress(ctx context.Context, id string) (*model.Address, error)
	GetAddressView(ctx context.Context, id string) (*model.AddressView, error)
	ListAddresses(ctx context.Context, filter AddressFilter) ([]model.Address, error)

	// Provenance. RecordSource assigns the next version for the
	// (address, provider) pair and evicts rows beyond the retention
	// limit; UpsertIdentifier overwrites the single identifier row.
	RecordSource(ctx context.Context, src *model.AddressSource) error
	UpsertIdentifier(ctx context.Context, ident *model.AddressIdentifier) error
	FindAddressIDByIdentifier(ctx context.Context, provider, identifier string) (string, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
