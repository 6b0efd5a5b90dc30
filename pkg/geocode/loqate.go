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
)

const defaultLoqateEndpoint = "https://api.addressy.com/Capture/Interactive/Find/v1.10/json3.ws"

// loqateRateLimitCodes are the Item error codes Loqate uses for quota and
// throughput limits.
var loqateRateLimitCodes = map[string]bool{
	"1006": true,
	"1023": true,
	"429":  true,
}

// Loqate geocodes addresses using Loqate's Interactive Find service.
type Loqate struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// LoqateOption configures the Loqate adapter.
type LoqateOption func(*Loqate)

// WithLoqateHTTPClient sets a custom HTTP client.
func WithLoqateHTTPClient(hc *http.Client) LoqateOption {
	return func(l *Loqate) {
		l.httpClient = hc
	}
}

// WithLoqateEndpoint overrides the Find endpoint.
func WithLoqateEndpoint(u string) LoqateOption {
	return func(l *Loqate) {
		l.endpoint = strings.TrimRight(u, "/")
	}
}

// WithLoqateRateLimit sets the requests-per-second limit for API calls.
func WithLoqateRateLimit(rps float64) LoqateOption {
	return func(l *Loqate) {
		l.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// NewLoqate creates a Loqate adapter with the given options.
func NewLoqate(apiKey string, opts ...LoqateOption) (*Loqate, error) {
	if apiKey == "" {
		return nil, eris.New("geocode: loqate api key not configured")
	}
	l := &Loqate{
		apiKey:     apiKey,
		endpoint:   defaultLoqateEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Name identifies the provider.
func (l *Loqate) Name() string { return "loqate" }

// loqateResponse is the JSON response from the Find service.
type loqateResponse struct {
	Items []loqateItem `json:"Items"`
}

type loqateItem struct {
	ID                    string   `json:"Id"`
	Type                  string   `json:"Type"`
	Text                  string   `json:"Text"`
	BuildingNumber        string   `json:"BuildingNumber"`
	Street                string   `json:"Street"`
	StreetType            string   `json:"StreetType"`
	SecondaryStreetType   string   `json:"SecondaryStreetType"`
	SecondaryStreetNumber string   `json:"SecondaryStreetNumber"`
	City                  string   `json:"City"`
	Province              string   `json:"Province"`
	ProvinceName          string   `json:"ProvinceName"`
	PostalCode            string   `json:"PostalCode"`
	CountryName           string   `json:"CountryName"`
	CountryIso2           string   `json:"CountryIso2"`
	Latitude              *float64 `json:"Latitude"`
	Longitude             *float64 `json:"Longitude"`
	Error                 string   `json:"Error"`
	Description           string   `json:"Description"`
}

// Geocode resolves raw via the Find service. Item error codes 1006, 1023,
// and 429 (and HTTP 429) surface as a RateLimitError; an empty Items array
// is a (nil, nil) no-match.
func (l *Loqate) Geocode(ctx context.Context, raw string) (*Normalized, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, eris.New("geocode: loqate empty query")
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: loqate rate limit wait")
	}

	params := url.Values{
		"Key":          {l.apiKey},
		"Text":         {raw},
		"IsMiddleware": {"false"},
		"Countries":    {"USA"},
	}
	reqURL := l.endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: loqate build request")
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransportError("loqate", eris.Wrap(err, "geocode: loqate request"))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resilience.NewRateLimitError("loqate", eris.Errorf("geocode: loqate returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewTransportError("loqate", eris.Errorf("geocode: loqate returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransportError("loqate", eris.Wrap(err, "geocode: loqate read body"))
	}

	var lr loqateResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, resilience.NewTransportError("loqate", eris.Wrap(err, "geocode: loqate parse response"))
	}
	if len(lr.Items) == 0 {
		return nil, nil
	}

	first := lr.Items[0]
	if first.Error != "" {
		if loqateRateLimitCodes[strings.ToUpper(first.Error)] {
			return nil, resilience.NewRateLimitError("loqate", eris.Errorf("geocode: loqate error %s: %s", first.Error, first.Description))
		}
		return nil, resilience.NewTransportError("loqate", eris.Errorf("geocode: loqate error %s: %s", first.Error, first.Description))
	}

	norm := normalizeLoqateItem(first)
	norm.Payload = json.RawMessage(body)
	return norm, nil
}

func normalizeLoqateItem(item loqateItem) *Normalized {
	state := item.ProvinceName
	if state == "" {
		state = item.Province
	}
	return &Normalized{
		Components: Components{
			StreetNumber: item.BuildingNumber,
			StreetName:   item.Street,
			StreetType:   item.StreetType,
			UnitType:     item.SecondaryStreetType,
			UnitNumber:   item.SecondaryStreetNumber,
		},
		Location: Location{
			Locality:    item.City,
			State:       state,
			StateCode:   item.Province,
			PostalCode:  item.PostalCode,
			Country:     item.CountryName,
			CountryCode: item.CountryIso2,
		},
		Formatted:  item.Text,
		Latitude:   item.Latitude,
		Longitude:  item.Longitude,
		Identifier: item.ID,
		Metadata: map[string]any{
			"id":   item.ID,
			"type": item.Type,
		},
	}
}
