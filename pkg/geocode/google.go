package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/addresskit/internal/resilience"
	"github.com/sells-group/addresskit/internal/usaddr"
)

const defaultGoogleBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Google geocodes addresses using the Google Geocoding API.
type Google struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// GoogleOption configures the Google adapter.
type GoogleOption func(*Google)

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(g *Google) {
		g.httpClient = hc
	}
}

// WithGoogleBaseURL overrides the geocoding endpoint.
func WithGoogleBaseURL(u string) GoogleOption {
	return func(g *Google) {
		g.baseURL = strings.TrimRight(u, "/")
	}
}

// WithGoogleRateLimit sets the requests-per-second limit for API calls.
func WithGoogleRateLimit(rps float64) GoogleOption {
	return func(g *Google) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// NewGoogle creates a Google adapter with the given options.
func NewGoogle(apiKey string, opts ...GoogleOption) (*Google, error) {
	if apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}
	g := &Google{
		apiKey:     apiKey,
		baseURL:    defaultGoogleBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Name identifies the provider.
func (g *Google) Name() string { return "google" }

// googleResponse is the JSON response from the Google Geocoding API.
type googleResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	AddressComponents []googleComponent `json:"address_components"`
	FormattedAddress  string            `json:"formatted_address"`
	PlaceID           string            `json:"place_id"`
	Types             []string          `json:"types"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
}

type googleComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Geocode resolves raw via the Geocoding API. OVER_QUERY_LIMIT and HTTP 429
// surface as a RateLimitError so callers can back off; ZERO_RESULTS is a
// (nil, nil) no-match.
func (g *Google) Geocode(ctx context.Context, raw string) (*Normalized, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, eris.New("geocode: google empty query")
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: google rate limit wait")
	}

	params := url.Values{
		"address": {raw},
		"key":     {g.apiKey},
	}
	reqURL := g.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransportError("google", eris.Wrap(err, "geocode: google request"))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resilience.NewRateLimitError("google", eris.Errorf("geocode: google returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewTransportError("google", eris.Errorf("geocode: google returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransportError("google", eris.Wrap(err, "geocode: google read body"))
	}

	var gr googleResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, resilience.NewTransportError("google", eris.Wrap(err, "geocode: google parse response"))
	}

	switch gr.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	case "OVER_QUERY_LIMIT":
		return nil, resilience.NewRateLimitError("google", eris.Errorf("geocode: google status %s: %s", gr.Status, gr.ErrorMessage))
	default:
		return nil, resilience.NewTransportError("google", eris.Errorf("geocode: google status %s: %s", gr.Status, gr.ErrorMessage))
	}
	if len(gr.Results) == 0 {
		return nil, nil
	}

	result := gr.Results[0]
	norm := normalizeGoogleResult(result)
	norm.Payload = json.RawMessage(body)
	return norm, nil
}

func normalizeGoogleResult(result googleResult) *Normalized {
	norm := &Normalized{
		Formatted:  result.FormattedAddress,
		Identifier: result.PlaceID,
		Confidence: googleLocationTypeToConfidence(result.Geometry.LocationType),
		Metadata: map[string]any{
			"place_id":      result.PlaceID,
			"types":         result.Types,
			"location_type": result.Geometry.LocationType,
		},
	}
	lat, lng := result.Geometry.Location.Lat, result.Geometry.Location.Lng
	norm.Latitude, norm.Longitude = &lat, &lng

	for _, comp := range result.AddressComponents {
		types := make(map[string]bool, len(comp.Types))
		for _, t := range comp.Types {
			types[t] = true
		}

		switch {
		case types["street_number"]:
			norm.Components.StreetNumber = comp.LongName
		case types["route"]:
			norm.Components.Route = comp.LongName
			name, sType, direction := splitRoute(comp.LongName)
			if norm.Components.StreetName == "" {
				norm.Components.StreetName = name
			}
			if norm.Components.StreetType == "" {
				norm.Components.StreetType = sType
			}
			if norm.Components.StreetDirection == "" {
				norm.Components.StreetDirection = direction
			}
		case types["subpremise"]:
			norm.Components.UnitType = "Unit"
			norm.Components.UnitNumber = comp.LongName
		case types["locality"]:
			norm.Location.Locality = comp.LongName
		case types["administrative_area_level_1"]:
			norm.Location.State = comp.LongName
			norm.Location.StateCode = comp.ShortName
			if _, ok := usaddr.MilitaryStates[comp.ShortName]; ok {
				norm.IsMilitary = true
			}
		case types["postal_code"]:
			norm.Location.PostalCode = comp.LongName
		case types["country"]:
			norm.Location.Country = comp.LongName
			norm.Location.CountryCode = comp.ShortName
		case types["post_box"]:
			norm.IsPOBox = true
		}
	}

	if norm.Components.StreetName == "" {
		norm.Components.StreetName = norm.Components.Route
	}
	return norm
}

// splitRoute breaks a Google route like "North Main Street" or "NE 5th Ave"
// into name, type, and direction.
func splitRoute(route string) (name, streetType, direction string) {
	parts := strings.Fields(route)
	if len(parts) == 0 {
		return "", "", ""
	}
	if len(parts) == 1 {
		return parts[0], "", ""
	}

	upper := strings.ToUpper(parts[0])
	switch upper {
	case "N", "S", "E", "W", "NE", "NW", "SE", "SW":
		direction = upper
		parts = parts[1:]
	}

	if len(parts) == 1 {
		return parts[0], "", direction
	}
	streetType = parts[len(parts)-1]
	name = strings.Join(parts[:len(parts)-1], " ")
	return name, streetType, direction
}

// googleLocationTypeToConfidence maps Google's location_type to our quality taxonomy.
func googleLocationTypeToConfidence(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}
