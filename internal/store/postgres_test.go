package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addresskit/internal/model"
)

func now() time.Time { return time.Now().UTC() }

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresGetOrCreateCountry_FoundByCode(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, name, code FROM countries WHERE upper\(code\) = \$1`).
		WithArgs("US").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}).
			AddRow("c1", "United States", "US"))

	c, err := s.GetOrCreateCountry(context.Background(), "United States", "us")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "US", c.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetOrCreateCountry_CreatesWhenMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, name, code FROM countries WHERE upper\(code\) = \$1`).
		WithArgs("US").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}))
	mock.ExpectQuery(`SELECT id, name, code FROM countries WHERE lower\(name\) = lower\(\$1\)`).
		WithArgs("United States").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}))
	mock.ExpectExec(`INSERT INTO countries \(id, name, code\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(pgxmock.AnyArg(), "United States", "US").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c, err := s.GetOrCreateCountry(context.Background(), "United States", "US")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "United States", c.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetOrCreateCountry_BackfillsBlankCode(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, name, code FROM countries WHERE upper\(code\) = \$1`).
		WithArgs("US").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}))
	mock.ExpectQuery(`SELECT id, name, code FROM countries WHERE lower\(name\) = lower\(\$1\)`).
		WithArgs("United States").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}).
			AddRow("c1", "United States", ""))
	mock.ExpectExec(`UPDATE countries SET code = \$1 WHERE id = \$2`).
		WithArgs("US", "c1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	c, err := s.GetOrCreateCountry(context.Background(), "United States", "US")
	require.NoError(t, err)
	assert.Equal(t, "US", c.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetOrCreateState_BlankCodeFailsValidation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, name, code, country_id FROM states WHERE country_id = \$1 AND lower\(name\) = lower\(\$2\)`).
		WithArgs("c1", "California").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code", "country_id"}))

	_, err := s.GetOrCreateState(context.Background(), "c1", "California", "")
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordSource_AssignsNextVersionAndTrims(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) FROM address_sources`).
		WithArgs("a1", "google").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectExec(`INSERT INTO address_sources`).
		WithArgs(pgxmock.AnyArg(), "a1", "google", 4,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM address_sources`).
		WithArgs("a1", "google", model.SourceHistoryLimit).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	src := &model.AddressSource{
		AddressID:  "a1",
		Provider:   "google",
		RawPayload: []byte(`{"status":"OK"}`),
	}
	require.NoError(t, s.RecordSource(context.Background(), src))
	assert.Equal(t, 4, src.Version)
	assert.NotEmpty(t, src.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertIdentifier(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO address_identifiers .+ ON CONFLICT \(address_id, provider\) DO UPDATE`).
		WithArgs(pgxmock.AnyArg(), "a1", "google", "place-123", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertIdentifier(context.Background(), &model.AddressIdentifier{
		AddressID:  "a1",
		Provider:   "google",
		Identifier: "place-123",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindAddressIDByIdentifier_NoneIsEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT address_id FROM address_identifiers`).
		WithArgs("google", "place-404").
		WillReturnRows(pgxmock.NewRows([]string{"address_id"}))

	id, err := s.FindAddressIDByIdentifier(context.Background(), "google", "place-404")
	require.NoError(t, err)
	assert.Empty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindOrCreateAddress_ExistingTupleNotRecreated(t *testing.T) {
	s, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "street_number", "street_name", "street_type", "street_direction",
		"unit_type", "unit_number", "route", "raw", "formatted", "is_po_box", "is_military",
		"latitude", "longitude", "locality_id", "created_at", "updated_at",
	}).AddRow("a1", "123", "Main", "St", "", "", "", "Main", "123 Main St", "",
		false, false, nil, nil, nil, now(), now())

	mock.ExpectQuery(`SELECT .+ FROM addresses\s+WHERE street_number = \$1`).
		WithArgs("123", "Main", "St", "", "").
		WillReturnRows(rows)

	addr := &model.Address{StreetNumber: "123", StreetName: "Main", StreetType: "St", Raw: "123 Main St"}
	got, created, err := s.FindOrCreateAddress(context.Background(), addr)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "a1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
