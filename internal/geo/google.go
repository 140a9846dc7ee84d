package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GoogleGeocoder calls a Google-compatible reverse geocoding endpoint.
type GoogleGeocoder struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGoogleGeocoder(baseURL, apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, c Coordinate) (GeocodeResult, error) {
	q := url.Values{}
	q.Set("latlng", c.String())
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return GeocodeResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return GeocodeResult{}, fmt.Errorf("%w: %v", ErrGeocodeTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GeocodeResult{}, fmt.Errorf("%w: status %d", ErrGeocodeTransport, resp.StatusCode)
	}

	var out GeocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return GeocodeResult{}, fmt.Errorf("%w: decode: %v", ErrGeocodeTransport, err)
	}
	return out, nil
}
