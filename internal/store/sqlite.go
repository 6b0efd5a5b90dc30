package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/addresskit/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per-connection; a single connection keeps them in force
	// and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS countries (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	code TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_countries_name ON countries(lower(name));
CREATE UNIQUE INDEX IF NOT EXISTS idx_countries_code ON countries(upper(code)) WHERE code <> '';

CREATE TABLE IF NOT EXISTS states (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	code       TEXT NOT NULL,
	country_id TEXT NOT NULL REFERENCES countries(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_states_country_code ON states(country_id, upper(code));

CREATE TABLE IF NOT EXISTS localities (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	postal_code TEXT NOT NULL DEFAULT '',
	state_id    TEXT NOT NULL REFERENCES states(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_localities_key ON localities(state_id, lower(name), postal_code);

CREATE TABLE IF NOT EXISTS addresses (
	id               TEXT PRIMARY KEY,
	street_number    TEXT NOT NULL DEFAULT '',
	street_name      TEXT NOT NULL DEFAULT '',
	street_type      TEXT NOT NULL DEFAULT '',
	street_direction TEXT NOT NULL DEFAULT '',
	unit_type        TEXT NOT NULL DEFAULT '',
	unit_number      TEXT NOT NULL DEFAULT '',
	route            TEXT NOT NULL DEFAULT '',
	raw              TEXT NOT NULL,
	formatted        TEXT NOT NULL DEFAULT '',
	is_po_box        BOOLEAN NOT NULL DEFAULT 0,
	is_military      BOOLEAN NOT NULL DEFAULT 0,
	latitude         REAL,
	longitude        REAL,
	locality_id      TEXT REFERENCES localities(id),
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_dedup
	ON addresses(street_number, street_name, street_type, unit_number, COALESCE(locality_id, ''));
CREATE INDEX IF NOT EXISTS idx_addresses_locality ON addresses(locality_id);

CREATE TABLE IF NOT EXISTS address_sources (
	id                    TEXT PRIMARY KEY,
	address_id            TEXT NOT NULL REFERENCES addresses(id) ON DELETE CASCADE,
	provider              TEXT NOT NULL,
	version               INTEGER NOT NULL,
	raw_payload           TEXT,
	normalized_components TEXT,
	metadata              TEXT,
	created_at            DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_address_sources_version
	ON address_sources(address_id, provider, version);

CREATE TABLE IF NOT EXISTS address_identifiers (
	id         TEXT PRIMARY KEY,
	address_id TEXT NOT NULL REFERENCES addresses(id) ON DELETE CASCADE,
	provider   TEXT NOT NULL,
	identifier TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_address_identifiers_pair
	ON address_identifiers(address_id, provider);
CREATE INDEX IF NOT EXISTS idx_address_identifiers_lookup
	ON address_identifiers(provider, identifier);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetOrCreateCountry(ctx context.Context, name, code string) (*model.Country, error) {
	name = trimmed(name)
	code = upperTrimmed(code)
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
		if found.Code == "" && code != "" {
			if _, err := s.db.ExecContext(ctx,
				`UPDATE countries SET code = ? WHERE id = ?`, code, found.ID,
			); err != nil {
				return nil, eris.Wrap(err, "sqlite: backfill country code")
			}
			found.Code = code
		}
		return found, nil
	}

	c := &model.Country{ID: uuid.New().String(), Name: name, Code: code}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO countries (id, name, code) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.Code,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert country")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.findCountry(ctx, name, code)
	}
	return c, nil
}

func (s *SQLiteStore) findCountry(ctx context.Context, name, code string) (*model.Country, error) {
	var c model.Country
	if code != "" {
		err := s.db.QueryRowContext(ctx,
			`SELECT id, name, code FROM countries WHERE upper(code) = ?`, code,
		).Scan(&c.ID, &c.Name, &c.Code)
		if err == nil {
			return &c, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrap(err, "sqlite: find country by code")
		}
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, code FROM countries WHERE lower(name) = lower(?)`, name,
	).Scan(&c.ID, &c.Name, &c.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find country by name")
	}
	return &c, nil
}

func (s *SQLiteStore) GetOrCreateState(ctx context.Context, countryID, name, code string) (*model.State, error) {
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
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO states (id, name, code, country_id) VALUES (?, ?, ?, ?)`,
		st.ID, st.Name, st.Code, st.CountryID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert state")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.findState(ctx, countryID, st.Name, st.Code)
	}
	return st, nil
}

func (s *SQLiteStore) findState(ctx context.Context, countryID, name, code string) (*model.State, error) {
	var st model.State
	if code != "" {
		err := s.db.QueryRowContext(ctx,
			`SELECT id, name, code, country_id FROM states WHERE country_id = ? AND upper(code) = ?`,
			countryID, code,
		).Scan(&st.ID, &st.Name, &st.Code, &st.CountryID)
		if err == nil {
			return &st, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrap(err, "sqlite: find state by code")
		}
	}
	if name == "" {
		return nil, nil
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, code, country_id FROM states WHERE country_id = ? AND lower(name) = lower(?)`,
		countryID, name,
	).Scan(&st.ID, &st.Name, &st.Code, &st.CountryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find state by name")
	}
	return &st, nil
}

func (s *SQLiteStore) GetOrCreateLocality(ctx context.Context, stateID, name, postalCode string) (*model.Locality, error) {
	name = trimmed(name)
	postalCode = trimmed(postalCode)
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
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO localities (id, name, postal_code, state_id) VALUES (?, ?, ?, ?)`,
		l.ID, l.Name, l.PostalCode, l.StateID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert locality")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.findLocality(ctx, stateID, name, postalCode)
	}
	return l, nil
}

func (s *SQLiteStore) findLocality(ctx context.Context, stateID, name, postalCode string) (*model.Locality, error) {
	var l model.Locality
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, postal_code, state_id FROM localities
		 WHERE state_id = ? AND lower(name) = lower(?) AND postal_code = ?`,
		stateID, name, postalCode,
	).Scan(&l.ID, &l.Name, &l.PostalCode, &l.StateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find locality")
	}
	return &l, nil
}

func (s *SQLiteStore) FindOrCreateAddress(ctx context.Context, addr *model.Address) (*model.Address, bool, error) {
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

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO addresses (`+addressColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		addr.ID, addr.StreetNumber, addr.StreetName, addr.StreetType, addr.StreetDirection,
		addr.UnitType, addr.UnitNumber, addr.Route, addr.Raw, addr.Formatted,
		addr.IsPOBox, addr.IsMilitary, addr.Latitude, addr.Longitude,
		nullIfEmpty(addr.LocalityID), addr.CreatedAt, addr.UpdatedAt,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: insert address")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		existing, err := s.findAddressByTuple(ctx, addr)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, eris.New("sqlite: insert address conflict without winner")
		}
		return existing, false, nil
	}
	return addr, true, nil
}

func (s *SQLiteStore) findAddressByTuple(ctx context.Context, addr *model.Address) (*model.Address, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses
		 WHERE street_number = ? AND street_name = ? AND street_type = ?
		   AND unit_number = ? AND COALESCE(locality_id, '') = ?`,
		addr.StreetNumber, addr.StreetName, addr.StreetType, addr.UnitNumber, addr.LocalityID,
	)
	found, err := scanAddressSQL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find address by tuple")
	}
	return found, nil
}

func (s *SQLiteStore) UpdateAddress(ctx context.Context, addr *model.Address) error {
	addr.Normalize()
	if err := addr.Validate(); err != nil {
		return err
	}
	addr.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE addresses SET street_number = ?, street_name = ?, street_type = ?,
		   street_direction = ?, unit_type = ?, unit_number = ?, route = ?,
		   raw = ?, formatted = ?, is_po_box = ?, is_military = ?,
		   latitude = ?, longitude = ?, locality_id = ?, updated_at = ?
		 WHERE id = ?`,
		addr.StreetNumber, addr.StreetName, addr.StreetType, addr.StreetDirection,
		addr.UnitType, addr.UnitNumber, addr.Route, addr.Raw, addr.Formatted,
		addr.IsPOBox, addr.IsMilitary, addr.Latitude, addr.Longitude,
		nullIfEmpty(addr.LocalityID), addr.UpdatedAt, addr.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update address %s", addr.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("address not found: %s", addr.ID)
	}
	return nil
}

func (s *SQLiteStore) GetAddress(ctx context.Context, id string) (*model.Address, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = ?`, id,
	)
	addr, err := scanAddressSQL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get address %s", id)
	}
	return addr, nil
}

func (s *SQLiteStore) GetAddressView(ctx context.Context, id string) (*model.AddressView, error) {
	addr, err := s.GetAddress(ctx, id)
	if err != nil || addr == nil {
		return nil, err
	}
	view := &model.AddressView{Address: *addr}

	if addr.LocalityID != "" {
		var l model.Locality
		var st model.State
		var c model.Country
		err := s.db.QueryRowContext(ctx,
			`SELECT l.id, l.name, l.postal_code, l.state_id,
			        s.id, s.name, s.code, s.country_id,
			        c.id, c.name, c.code
			 FROM localities l
			 JOIN states s ON s.id = l.state_id
			 JOIN countries c ON c.id = s.country_id
			 WHERE l.id = ?`,
			addr.LocalityID,
		).Scan(&l.ID, &l.Name, &l.PostalCode, &l.StateID,
			&st.ID, &st.Name, &st.Code, &st.CountryID,
			&c.ID, &c.Name, &c.Code)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: get address hierarchy")
		}
		view.Locality, view.State, view.Country = &l, &st, &c
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, address_id, provider, version, raw_payload, normalized_components, metadata, created_at
		 FROM address_sources WHERE address_id = ? ORDER BY provider, version DESC`,
		id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sources")
	}
	defer rows.Close()
	for rows.Next() {
		var src model.AddressSource
		var rawPayload, components, metadata sql.NullString
		if err := rows.Scan(&src.ID, &src.AddressID, &src.Provider, &src.Version,
			&rawPayload, &components, &metadata, &src.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source")
		}
		if rawPayload.Valid {
			src.RawPayload = json.RawMessage(rawPayload.String)
		}
		if components.Valid {
			src.NormalizedComponents = json.RawMessage(components.String)
		}
		if metadata.Valid {
			src.Metadata = json.RawMessage(metadata.String)
		}
		view.Sources = append(view.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list sources iterate")
	}

	identRows, err := s.db.QueryContext(ctx,
		`SELECT id, address_id, provider, identifier, created_at
		 FROM address_identifiers WHERE address_id = ? ORDER BY provider`,
		id,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list identifiers")
	}
	defer identRows.Close()
	for identRows.Next() {
		var ident model.AddressIdentifier
		if err := identRows.Scan(&ident.ID, &ident.AddressID, &ident.Provider,
			&ident.Identifier, &ident.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan identifier")
		}
		view.Identifiers = append(view.Identifiers, ident)
	}
	return view, eris.Wrap(identRows.Err(), "sqlite: list identifiers iterate")
}

func (s *SQLiteStore) ListAddresses(ctx context.Context, filter AddressFilter) ([]model.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM addresses WHERE true`
	args := []any{}

	if filter.LocalityID != "" {
		query += ` AND locality_id = ?`
		args = append(args, filter.LocalityID)
	}
	if filter.Search != "" {
		query += ` AND (raw LIKE ? OR formatted LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list addresses")
	}
	defer rows.Close()

	var addrs []model.Address
	for rows.Next() {
		addr, err := scanAddressSQL(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan address")
		}
		addrs = append(addrs, *addr)
	}
	return addrs, eris.Wrap(rows.Err(), "sqlite: list addresses iterate")
}

func (s *SQLiteStore) RecordSource(ctx context.Context, src *model.AddressSource) error {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin record source")
	}
	defer tx.Rollback() //nolint:errcheck

	var maxVersion int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM address_sources WHERE address_id = ? AND provider = ?`,
		src.AddressID, src.Provider,
	).Scan(&maxVersion); err != nil {
		return eris.Wrap(err, "sqlite: max source version")
	}
	src.Version = maxVersion + 1

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO address_sources (id, address_id, provider, version, raw_payload, normalized_components, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.AddressID, src.Provider, src.Version,
		jsonTextArg(src.RawPayload), jsonTextArg(src.NormalizedComponents), jsonTextArg(src.Metadata),
		src.CreatedAt,
	); err != nil {
		return eris.Wrap(err, "sqlite: insert source")
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM address_sources
		 WHERE address_id = ?1 AND provider = ?2 AND id NOT IN (
		   SELECT id FROM address_sources WHERE address_id = ?1 AND provider = ?2
		   ORDER BY version DESC LIMIT ?3
		 )`,
		src.AddressID, src.Provider, model.SourceHistoryLimit,
	); err != nil {
		return eris.Wrap(err, "sqlite: trim source history")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit record source")
}

func (s *SQLiteStore) UpsertIdentifier(ctx context.Context, ident *model.AddressIdentifier) error {
	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO address_identifiers (id, address_id, provider, identifier, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (address_id, provider) DO UPDATE
		   SET identifier = excluded.identifier, created_at = excluded.created_at`,
		ident.ID, ident.AddressID, ident.Provider, ident.Identifier, ident.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: upsert identifier")
}

func (s *SQLiteStore) FindAddressIDByIdentifier(ctx context.Context, provider, identifier string) (string, error) {
	var addressID string
	err := s.db.QueryRowContext(ctx,
		`SELECT address_id FROM address_identifiers WHERE provider = ? AND identifier = ? LIMIT 1`,
		provider, identifier,
	).Scan(&addressID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrap(err, "sqlite: find address by identifier")
	}
	return addressID, nil
}

// sqlRow lets one scanner serve both *sql.Row and *sql.Rows.
type sqlRow interface {
	Scan(dest ...any) error
}

func scanAddressSQL(row sqlRow) (*model.Address, error) {
	var a model.Address
	var locality sql.NullString
	err := row.Scan(&a.ID, &a.StreetNumber, &a.StreetName, &a.StreetType, &a.StreetDirection,
		&a.UnitType, &a.UnitNumber, &a.Route, &a.Raw, &a.Formatted,
		&a.IsPOBox, &a.IsMilitary, &a.Latitude, &a.Longitude,
		&locality, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if locality.Valid {
		a.LocalityID = locality.String
	}
	return &a, nil
}

func jsonTextArg(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

func upperTrimmed(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
