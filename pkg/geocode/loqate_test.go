package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addresskit/internal/resilience"
)

const loqateOKResponse = `{
	"Items": [{
		"Id": "US|LQ|A|12345678",
		"Type": "Address",
		"Text": "525 S Winchester Blvd, San Jose, CA 95128",
		"BuildingNumber": "525",
		"Street": "Winchester",
		"StreetType": "Blvd",
		"SecondaryStreetType": "",
		"SecondaryStreetNumber": "",
		"City": "San Jose",
		"Province": "CA",
		"ProvinceName": "California",
		"PostalCode": "95128",
		"CountryName": "United States",
		"CountryIso2": "US",
		"Latitude": 37.3184,
		"Longitude": -121.9511
	}]
}`

func newLoqateTestAdapter(t *testing.T, handler http.HandlerFunc) *Loqate {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	l, err := NewLoqate("test-key", WithLoqateEndpoint(server.URL))
	require.NoError(t, err)
	l.limiter = newTestLimiter()
	return l
}

func TestLoqateGeocode_NormalizesItem(t *testing.T) {
	l := newLoqateTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("Key"))
		assert.Equal(t, "525 S Winchester Blvd, San Jose, CA 95128", q.Get("Text"))
		assert.Equal(t, "false", q.Get("IsMiddleware"))
		assert.Equal(t, "USA", q.Get("Countries"))
		w.Write([]byte(loqateOKResponse)) //nolint:errcheck
	})

	norm, err := l.Geocode(context.Background(), "525 S Winchester Blvd, San Jose, CA 95128")
	require.NoError(t, err)
	require.NotNil(t, norm)

	assert.Equal(t, "525", norm.Components.StreetNumber)
	assert.Equal(t, "Winchester", norm.Components.StreetName)
	assert.Equal(t, "Blvd", norm.Components.StreetType)
	assert.Equal(t, "San Jose", norm.Location.Locality)
	assert.Equal(t, "California", norm.Location.State)
	assert.Equal(t, "CA", norm.Location.StateCode)
	assert.Equal(t, "95128", norm.Location.PostalCode)
	assert.Equal(t, "United States", norm.Location.Country)
	assert.Equal(t, "US", norm.Location.CountryCode)
	assert.Equal(t, "US|LQ|A|12345678", norm.Identifier)
	assert.Equal(t, "525 S Winchester Blvd, San Jose, CA 95128", norm.Formatted)

	require.NotNil(t, norm.Latitude)
	assert.InDelta(t, 37.3184, *norm.Latitude, 1e-6)
	assert.NotEmpty(t, norm.Payload)
}

func TestLoqateGeocode_EmptyItemsIsNoMatch(t *testing.T) {
	l := newLoqateTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Items": []}`)) //nolint:errcheck
	})

	norm, err := l.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Nil(t, norm)
}

func TestLoqateGeocode_RateLimitErrorCodes(t *testing.T) {
	for _, code := range []string{"1006", "1023", "429"} {
		l := newLoqateTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"Items": [{"Error": "` + code + `", "Description": "Account out of credit"}]}`)) //nolint:errcheck
		})

		_, err := l.Geocode(context.Background(), "123 Main St")
		require.Error(t, err, code)
		assert.True(t, resilience.IsRateLimit(err), code)
	}
}

func TestLoqateGeocode_OtherErrorCodeIsTransport(t *testing.T) {
	l := newLoqateTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Items": [{"Error": "1001", "Description": "Key is missing"}]}`)) //nolint:errcheck
	})

	_, err := l.Geocode(context.Background(), "123 Main St")
	require.Error(t, err)
	assert.True(t, resilience.IsTransport(err))
	assert.False(t, resilience.IsRateLimit(err))
}

func TestLoqateGeocode_HTTP429IsRateLimit(t *testing.T) {
	l := newLoqateTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := l.Geocode(context.Background(), "123 Main St")
	require.Error(t, err)
	assert.True(t, resilience.IsRateLimit(err))
}

func TestLoqateGeocode_ProvinceFallbackForState(t *testing.T) {
	l := newLoqateTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Items": [{"Id": "x", "Type": "Address", "Province": "TX", "City": "Austin"}]}`)) //nolint:errcheck
	})

	norm, err := l.Geocode(context.Background(), "Austin TX")
	require.NoError(t, err)
	require.NotNil(t, norm)
	assert.Equal(t, "TX", norm.Location.State)
	assert.Equal(t, "TX", norm.Location.StateCode)
	assert.Nil(t, norm.Latitude)
}

func TestNewLoqate_RequiresKey(t *testing.T) {
	_, err := NewLoqate("")
	require.Error(t, err)
}
