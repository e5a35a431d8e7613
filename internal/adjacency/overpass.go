package adjacency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mowthos/cluster-engine/internal/model"
	"github.com/mowthos/cluster-engine/internal/resilience"
)

// drivableHighways are the OSM highway classes that count as a road barrier.
// Footways, cycleways, and driveways do not split a cluster.
const drivableHighways = "motorway|trunk|primary|secondary|tertiary|unclassified|residential|living_street|service"

// OverpassConfig configures the live OSM road oracle.
type OverpassConfig struct {
	BaseURL       string
	SearchRadiusM float64
	Timeout       time.Duration
	RateLimit     float64
	MaxRetries    int
	HTTPClient    *http.Client
}

// OverpassOracle determines road crossings by fetching drivable ways around
// the first point from an Overpass API endpoint and testing the straight
// path between the points against each way's geometry.
type OverpassOracle struct {
	cfg     OverpassConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	policy  resilience.Policy
}

// NewOverpass creates an OverpassOracle.
func NewOverpass(cfg OverpassConfig) *OverpassOracle {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://overpass-api.de/api/interpreter"
	}
	if cfg.SearchRadiusM <= 0 {
		cfg.SearchRadiusM = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &OverpassOracle{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		breaker: resilience.NewBreaker(5, 30*time.Second),
		policy:  resilience.PolicyWithAttempts(cfg.MaxRetries + 1),
	}
}

// overpassResponse is the JSON shape of an `out geom` way query.
type overpassResponse struct {
	Elements []struct {
		Type     string `json:"type"`
		Geometry []struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"geometry"`
	} `json:"elements"`
}

// IsAdjacent implements Oracle. Any provider failure, including an open
// circuit breaker, yields ReasonIndeterminate.
func (o *OverpassOracle) IsAdjacent(ctx context.Context, a, b model.Coordinate) Result {
	if err := o.breaker.Allow(); err != nil {
		zap.L().Debug("overpass oracle: circuit open, skipping call")
		return indeterminate
	}

	segs, err := o.fetchRoads(ctx, a)
	o.breaker.Record(err)
	if err != nil {
		zap.L().Warn("overpass oracle: road fetch failed",
			zap.Float64("lat", a.Lat),
			zap.Float64("lon", a.Lon),
			zap.Error(err),
		)
		return indeterminate
	}

	return verdict(crossesAny(a, b, segs))
}

// fetchRoads queries drivable ways within the search radius of p and returns
// their centerline segments.
func (o *OverpassOracle) fetchRoads(ctx context.Context, p model.Coordinate) ([]segment, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:%d];way(around:%.0f,%.7f,%.7f)["highway"~"^(%s)$"];out geom;`,
		int(o.cfg.Timeout.Seconds()), o.cfg.SearchRadiusM, p.Lat, p.Lon, drivableHighways,
	)

	body, err := resilience.Retry(ctx, o.policy, func(ctx context.Context) ([]byte, error) {
		return o.post(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}

	var segs []segment
	for _, el := range resp.Elements {
		if el.Type != "way" {
			continue
		}
		points := make([]geom.Coord, 0, len(el.Geometry))
		for _, g := range el.Geometry {
			points = append(points, geom.Coord{g.Lon, g.Lat})
		}
		segs = append(segs, segmentsFromPoints(points)...)
	}
	return segs, nil
}

func (o *OverpassOracle) post(ctx context.Context, query string) ([]byte, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("overpass: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	return io.ReadAll(resp.Body)
}
