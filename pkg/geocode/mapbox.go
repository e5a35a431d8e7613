package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/mowthos/cluster-engine/internal/resilience"
)

const mapboxPlacesURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// mapboxResponse is the JSON response from the Mapbox Places API.
// Feature centers are [longitude, latitude].
type mapboxResponse struct {
	Features []struct {
		Center    [2]float64 `json:"center"`
		PlaceName string     `json:"place_name"`
	} `json:"features"`
}

// geocodeMapbox geocodes a single address using the Mapbox Places API.
func (g *geocoder) geocodeMapbox(ctx context.Context, addr AddressInput) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox rate limit")
	}

	params := url.Values{
		"access_token": {g.mapboxToken},
		"limit":        {"1"},
		"types":        {"address"},
	}
	reqURL := g.mapboxBaseURL + "/" + url.PathEscape(addr.OneLine()) + ".json?" + params.Encode()

	body, err := resilience.Retry(ctx, resilience.DefaultPolicy(), func(ctx context.Context) ([]byte, error) {
		return g.get(ctx, reqURL)
	})
	if err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox request")
	}

	var resp mapboxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "geocode: mapbox parse response")
	}

	if len(resp.Features) == 0 {
		return &Result{Matched: false, Source: "mapbox"}, nil
	}

	center := resp.Features[0].Center
	return &Result{
		Latitude:  center[1],
		Longitude: center[0],
		Source:    "mapbox",
		Matched:   true,
	}, nil
}

// get performs a GET and classifies retryable status codes as transient.
func (g *geocoder) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	return io.ReadAll(resp.Body)
}
