// Package geocode resolves street addresses to coordinates via Mapbox
// (primary) with the free Census Geocoder as fallback.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes a single address. An unmatched address is not an error:
// the Result comes back with Matched=false.
type Client interface {
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput represents an address to geocode.
type AddressInput struct {
	Street string
	City   string
	State  string
}

// OneLine returns the "{street}, {city}, {state}" query form.
func (a AddressInput) OneLine() string {
	return a.Street + ", " + a.City + ", " + a.State
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "mapbox" or "census"
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithMapboxToken enables the Mapbox Places API as the primary provider.
func WithMapboxToken(token string) Option {
	return func(g *geocoder) {
		g.mapboxToken = token
	}
}

// WithHTTPClient sets a custom HTTP client for all provider requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit across providers.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
}

type geocoder struct {
	httpClient  *http.Client
	mapboxToken string
	limiter     *rate.Limiter

	// Overridable endpoints for tests.
	mapboxBaseURL string
	censusBaseURL string
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		limiter:       rate.NewLimiter(10, 11),
		mapboxBaseURL: mapboxPlacesURL,
		censusBaseURL: censusOneLineURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode tries Mapbox first when a token is configured, then the Census
// Geocoder. No match from any provider is Matched=false, not an error.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	if g.mapboxToken != "" {
		result, err := g.geocodeMapbox(ctx, addr)
		if err == nil && result.Matched {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	result, err := g.geocodeCensus(ctx, addr)
	if err != nil {
		return nil, err
	}
	return result, nil
}
