package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/addresskit/internal/db"
	"github.com/sells-group/addresskit/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; tests inject pgxmock here.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS countries (
	id   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name TEXT NOT NULL,
	code TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_countries_name ON countries(lower(name));
CREATE UNIQUE INDEX IF NOT EXISTS idx_countries_code ON countries(upper(code)) WHERE code <> '';

CREATE TABLE IF NOT EXISTS states (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	code       TEXT NOT NULL,
	country_id TEXT NOT NULL REFERENCES countries(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_states_country_code ON states(country_id, upper(code));

CREATE TABLE IF NOT EXISTS localities (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	postal_code TEXT NOT NULL DEFAULT '',
	state_id    TEXT NOT NULL REFERENCES states(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_localities_key ON localities(state_id, lower(name), postal_code);

CREATE TABLE IF NOT EXISTS addresses (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	street_number    TEXT NOT NULL DEFAULT '',
	street_name      TEXT NOT NULL DEFAULT '',
	street_type      TEXT NOT NULL DEFAULT '',
	street_direction TEXT NOT NULL DEFAULT '',
	unit_type        TEXT NOT NULL DEFAULT '',
	unit_number      TEXT NOT NULL DEFAULT '',
	route            TEXT NOT NULL DEFAULT '',
	raw              TEXT NOT NULL,
	formatted        TEXT NOT NULL DEFAULT '',
	is_po_box        BOOLEAN NOT NULL DEFAULT false,
	is_military      BOOLEAN NOT NULL DEFAULT false,
	latitude         DOUBLE PRECISION,
	longitude        DOUBLE PRECISION,
	locality_id      TEXT REFERENCES localities(id),
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_dedup
	ON addresses(street_number, street_name, street_type, unit_number, COALESCE(locality_id, ''));
CREATE INDEX IF NOT EXISTS idx_addresses_locality ON addresses(locality_id);

CREATE TABLE IF NOT EXISTS address_sources (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	address_id            TEXT NOT NULL REFERENCES addresses(id) ON DELETE CASCADE,
	provider              TEXT NOT NULL,
	version               INTEGER NOT NULL,
	raw_payload           JSONB,
	normalized_components JSONB,
	metadata              JSONB,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_address_sources_version
	ON address_sources(address_id, provider, version);

CREATE TABLE IF NOT EXISTS address_identifiers (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	address_id TEXT NOT NULL REFERENCES addresses(id) ON DELETE CASCADE,
	provider   TEXT NOT NULL,
	identifier TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_address_identifiers_pair
	ON address_identifiers(address_id, provider);
CREATE INDEX IF NOT EXISTS idx_address_identifiers_lookup
	ON address_identifiers(provider, identifier);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetOrCreateCountry(ctx context.Context, name, code string) (*model.Country, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" {
		name = code
	}
	if name == "" {
		return nil, model.NewValidationError("country", "country requires a name or code")
	}

	found, err := s.findCountry(ctx, name, code)
	if err != nil {
		return nil, err
	}
	if found != nil {
		// Backfill a blank code when a later payload supplies one.
		if found.Code == "" && code != "" {
			if _, err := s.pool.Exec(ctx,
				`UPDATE countries SET code = $1 WHERE id = $2`, code, found.ID,
			); err != nil {
				return nil, eris.Wrap(err, "postgres: backfill country code")
			}
			found.Code = code
		}
		return found, nil
	}

	c := &model.Country{ID: uuid.New().String(), Name: name, Code: code}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO countries (id, name, code) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.Code,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return s.findCountry(ctx, name, code)
		}
		return nil, eris.Wrap(err, "postgres: insert country")
	}
	return c, nil
}

func (s *PostgresStore) findCountry(ctx context.Context, name, code string) (*model.Country, error) {
	var c model.Country
	if code != "" {
		err := s.pool.QueryRow(ctx,
			`SELECT id, name, code FROM countries WHERE upper(code) = $1`, code,
		).Scan(&c.ID, &c.Name, &c.Code)
		if err == nil {
			return &c, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(err, "postgres: find country by code")
		}
	}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, code FROM countries WHERE lower(name) = lower($1)`, name,
	).Scan(&c.ID, &c.Name, &c.Code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find country by name")
	}
	return &c, nil
}

func (s *PostgresStore) GetOrCreateState(ctx context.Context, countryID, name, code string) (*model.State, error) {
	st := &model.State{Name: name, Code: code, CountryID: countryID}
	st.Normalize()

	found, err := s.findState(ctx, countryID, st.Name, st.Code)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	if st.Name == "" {
		st.Name = st.Code
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	st.ID = uuid.New().String()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO states (id, name, code, country_id) VALUES ($1, $2, $3, $4)`,
		st.ID, st.Name, st.Code, st.CountryID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return s.findState(ctx, countryID, st.Name, st.Code)
		}
		return nil, eris.Wrap(err, "postgres: insert state")
	}
	return st, nil
}

func (s *PostgresStore) findState(ctx context.Context, countryID, name, code string) (*model.State, error) {
	var st model.State
	if code != "" {
		err := s.pool.QueryRow(ctx,
			`SELECT id, name, code, country_id FROM states WHERE country_id = $1 AND upper(code) = $2`,
			countryID, code,
		).Scan(&st.ID, &st.Name, &st.Code, &st.CountryID)
		if err == nil {
			return &st, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(err, "postgres: find state by code")
		}
	}
	if name == "" {
		return nil, nil
	}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, code, country_id FROM states WHERE country_id = $1 AND lower(name) = lower($2)`,
		countryID, name,
	).Scan(&st.ID, &st.Name, &st.Code, &st.CountryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find state by name")
	}
	return &st, nil
}

func (s *PostgresStore) GetOrCreateLocality(ctx context.Context, stateID, name, postalCode string) (*model.Locality, error) {
	name = strings.TrimSpace(name)
	postalCode = strings.TrimSpace(postalCode)
	if name == "" {
		return nil, model.NewValidationError("locality.name", "locality name cannot be blank")
	}

	found, err := s.findLocality(ctx, stateID, name, postalCode)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return found, nil
	}

	l := &model.Locality{ID: uuid.New().String(), Name: name, PostalCode: postalCode, StateID: stateID}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO localities (id, name, postal_code, state_id) VALUES ($1, $2, $3, $4)`,
		l.ID, l.Name, l.PostalCode, l.StateID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return s.findLocality(ctx, stateID, name, postalCode)
		}
		return nil, eris.Wrap(err, "postgres: insert locality")
	}
	return l, nil
}

func (s *PostgresStore) findLocality(ctx context.Context, stateID, name, postalCode string) (*model.Locality, error) {
	var l model.Locality
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, postal_code, state_id FROM localities
		 WHERE state_id = $1 AND lower(name) = lower($2) AND postal_code = $3`,
		stateID, name, postalCode,
	).Scan(&l.ID, &l.Name, &l.PostalCode, &l.StateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find locality")
	}
	return &l, nil
}

const addressColumns = `id, street_number, street_name, street_type, street_direction,
	unit_type, unit_number, route, raw, formatted, is_po_box, is_military,
	latitude, longitude, locality_id, created_at, updated_at`

func (s *PostgresStore) FindOrCreateAddress(ctx context.Context, addr *model.Address) (*model.Address, bool, error) {
	addr.Normalize()
	if err := addr.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.findAddressByTuple(ctx, addr)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	now := time.Now().UTC()
	addr.ID = uuid.New().String()
	addr.CreatedAt, addr.UpdatedAt = now, now

	_, err = s.pool.Exec(ctx,
		`INSERT INTO addresses (`+addressColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		addr.ID, addr.StreetNumber, addr.StreetName, addr.StreetType, addr.StreetDirection,
		addr.UnitType, addr.UnitNumber, addr.Route, addr.Raw, addr.Formatted,
		addr.IsPOBox, addr.IsMilitary, addr.Latitude, addr.Longitude,
		nullIfEmpty(addr.LocalityID), addr.CreatedAt, addr.UpdatedAt,
	)
	if err != nil {
		// A concurrent writer won the dedup tuple; adopt its row.
		if db.IsUniqueViolation(err) {
			existing, ferr := s.findAddressByTuple(ctx, addr)
			if ferr != nil {
				return nil, false, ferr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, eris.Wrap(err, "postgres: insert address")
	}
	return addr, true, nil
}

func (s *PostgresStore) findAddressByTuple(ctx context.Context, addr *model.Address) (*model.Address, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses
		 WHERE street_number = $1 AND street_name = $2 AND street_type = $3
		   AND unit_number = $4 AND COALESCE(locality_id, '') = $5`,
		addr.StreetNumber, addr.StreetName, addr.StreetType, addr.UnitNumber, addr.LocalityID,
	)
	found, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find address by tuple")
	}
	return found, nil
}

func (s *PostgresStore) UpdateAddress(ctx context.Context, addr *model.Address) error {
	addr.Normalize()
	if err := addr.Validate(); err != nil {
		return err
	}
	addr.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE addresses SET street_number = $1, street_name = $2, street_type = $3,
		   street_direction = $4, unit_type = $5, unit_number = $6, route = $7,
		   raw = $8, formatted = $9, is_po_box = $10, is_military = $11,
		   latitude = $12, longitude = $13, locality_id = $14, updated_at = $15
		 WHERE id = $16`,
		addr.StreetNumber, addr.StreetName, addr.StreetType, addr.StreetDirection,
		addr.UnitType, addr.UnitNumber, addr.Route, addr.Raw, addr.Formatted,
		addr.IsPOBox, addr.IsMilitary, addr.Latitude, addr.Longitude,
		nullIfEmpty(addr.LocalityID), addr.UpdatedAt, addr.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update address %s", addr.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("address not found: %s", addr.ID)
	}
	return nil
}

func (s *PostgresStore) GetAddress(ctx context.Context, id string) (*model.Address, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id,
	)
	addr, err := scanAddress(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get address %s", id)
	}
	return addr, nil
}

func (s *PostgresStore) GetAddressView(ctx context.Context, id string) (*model.AddressView, error) {
	addr, err := s.GetAddress(ctx, id)
	if err != nil || addr == nil {
		return nil, err
	}
	view := &model.AddressView{Address: *addr}

	if addr.LocalityID != "" {
		var l model.Locality
		var st model.State
		var c model.Country
		err := s.pool.QueryRow(ctx,
			`SELECT l.id, l.name, l.postal_code, l.state_id,
			        s.id, s.name, s.code, s.country_id,
			        c.id, c.name, c.code
			 FROM localities l
			 JOIN states s ON s.id = l.state_id
			 JOIN countries c ON c.id = s.country_id
			 WHERE l.id = $1`,
			addr.LocalityID,
		).Scan(&l.ID, &l.Name, &l.PostalCode, &l.StateID,
			&st.ID, &st.Name, &st.Code, &st.CountryID,
			&c.ID, &c.Name, &c.Code)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: get address hierarchy")
		}
		view.Locality, view.State, view.Country = &l, &st, &c
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, address_id, provider, version, raw_payload, normalized_components, metadata, created_at
		 FROM address_sources WHERE address_id = $1 ORDER BY provider, version DESC`,
		id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sources")
	}
	defer rows.Close()
	for rows.Next() {
		var src model.AddressSource
		var rawPayload, components, metadata []byte
		if err := rows.Scan(&src.ID, &src.AddressID, &src.Provider, &src.Version,
			&rawPayload, &components, &metadata, &src.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source")
		}
		src.RawPayload = json.RawMessage(rawPayload)
		src.NormalizedComponents = json.RawMessage(components)
		src.Metadata = json.RawMessage(metadata)
		view.Sources = append(view.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list sources iterate")
	}

	identRows, err := s.pool.Query(ctx,
		`SELECT id, address_id, provider, identifier, created_at
		 FROM address_identifiers WHERE address_id = $1 ORDER BY provider`,
		id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list identifiers")
	}
	defer identRows.Close()
	for identRows.Next() {
		var ident model.AddressIdentifier
		if err := identRows.Scan(&ident.ID, &ident.AddressID, &ident.Provider,
			&ident.Identifier, &ident.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan identifier")
		}
		view.Identifiers = append(view.Identifiers, ident)
	}
	return view, eris.Wrap(identRows.Err(), "postgres: list identifiers iterate")
}

func (s *PostgresStore) ListAddresses(ctx context.Context, filter AddressFilter) ([]model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.LocalityID != "" {
		query += fmt.Sprintf(` AND locality_id = $%d`, argIdx)
		args = append(args, filter.LocalityID)
		argIdx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (raw ILIKE $%d OR formatted ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list addresses")
	}
	defer rows.Close()

	var addrs []model.Address
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan address")
		}
		addrs = append(addrs, *addr)
	}
	return addrs, eris.Wrap(rows.Err(), "postgres: list addresses iterate")
}

// RecordSource appends a provider snapshot at the next version and evicts
// rows beyond the retention limit, all within one transaction.
func (s *PostgresStore) RecordSource(ctx context.Context, src *model.AddressSource) error {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin record source")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var maxVersion int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM address_sources WHERE address_id = $1 AND provider = $2`,
		src.AddressID, src.Provider,
	).Scan(&maxVersion); err != nil {
		return eris.Wrap(err, "postgres: max source version")
	}
	src.Version = maxVersion + 1

	if _, err := tx.Exec(ctx,
		`INSERT INTO address_sources (id, address_id, provider, version, raw_payload, normalized_components, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		src.ID, src.AddressID, src.Provider, src.Version,
		jsonArg(src.RawPayload), jsonArg(src.NormalizedComponents), jsonArg(src.Metadata),
		src.CreatedAt,
	); err != nil {
		return eris.Wrap(err, "postgres: insert source")
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM address_sources
		 WHERE address_id = $1 AND provider = $2 AND id NOT IN (
		   SELECT id FROM address_sources WHERE address_id = $1 AND provider = $2
		   ORDER BY version DESC LIMIT $3
		 )`,
		src.AddressID, src.Provider, model.SourceHistoryLimit,
	); err != nil {
		return eris.Wrap(err, "postgres: trim source history")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit record source")
}

func (s *PostgresStore) UpsertIdentifier(ctx context.Context, ident *model.AddressIdentifier) error {
	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO address_identifiers (id, address_id, provider, identifier, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (address_id, provider) DO UPDATE
		   SET identifier = EXCLUDED.identifier, created_at = EXCLUDED.created_at`,
		ident.ID, ident.AddressID, ident.Provider, ident.Identifier, ident.CreatedAt,
	)
	return eris.Wrap(err, "postgres: upsert identifier")
}

func (s *PostgresStore) FindAddressIDByIdentifier(ctx context.Context, provider, identifier string) (string, error) {
	var addressID string
	err := s.pool.QueryRow(ctx,
		`SELECT address_id FROM address_identifiers WHERE provider = $1 AND identifier = $2 LIMIT 1`,
		provider, identifier,
	).Scan(&addressID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrap(err, "postgres: find address by identifier")
	}
	return addressID, nil
}

func scanAddress(row pgx.Row) (*model.Address, error) {
	var a model.Address
	var locality *string
	err := row.Scan(&a.ID, &a.StreetNumber, &a.StreetName, &a.StreetType, &a.StreetDirection,
		&a.UnitType, &a.UnitNumber, &a.Route, &a.Raw, &a.Formatted,
		&a.IsPOBox, &a.IsMilitary, &a.Latitude, &a.Longitude,
		&locality, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if locality != nil {
		a.LocalityID = *locality
	}
	return &a, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func jsonArg(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
