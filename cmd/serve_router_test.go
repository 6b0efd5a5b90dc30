package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addresskit/internal/model"
	"github.com/sells-group/addresskit/internal/resolver"
	"github.com/sells-group/addresskit/internal/store"
)

func newRouterWithStore(t *testing.T) (http.Handler, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return newRouter(st), st
}

func TestRouter_Health(t *testing.T) {
	router, _ := newRouterWithStore(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_ListAddresses_EmptyStore(t *testing.T) {
	router, _ := newRouterWithStore(t)

	req := httptest.NewRequest(http.MethodGet, "/addresses", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Addresses []model.Address `json:"addresses"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Empty(t, body.Addresses)
	assert.Contains(t, rr.Body.String(), `"addresses":[]`)
}

func TestRouter_ListAndGetAddress(t *testing.T) {
	router, st := newRouterWithStore(t)
	ctx := context.Background()

	r := resolver.New(st)
	addr, _, err := r.CreateFromRaw(ctx, "123 N Main St, Springfield, IL 62701")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/addresses?search=main", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var list struct {
		Addresses []model.Address `json:"addresses"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Addresses, 1)
	assert.Equal(t, addr.ID, list.Addresses[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/addresses/"+addr.ID, nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var view model.AddressView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, addr.ID, view.Address.ID)
	require.NotNil(t, view.State)
	assert.Equal(t, "IL", view.State.Code)
	require.Len(t, view.Sources, 1)
	assert.Equal(t, "parser", view.Sources[0].Provider)
}

func TestRouter_GetAddress_NotFound(t *testing.T) {
	router, _ := newRouterWithStore(t)

	req := httptest.NewRequest(http.MethodGet, "/addresses/no-such-id", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "address not found")
}
