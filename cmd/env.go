package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mowthos/cluster-engine/internal/adjacency"
	"github.com/mowthos/cluster-engine/internal/cluster"
	"github.com/mowthos/cluster-engine/internal/config"
	"github.com/mowthos/cluster-engine/internal/store"
	"github.com/mowthos/cluster-engine/pkg/geocode"
)

// appEnv bundles the wired components shared by the commands.
type appEnv struct {
	Store    store.Store
	Geocoder geocode.Client
	Oracle   adjacency.Oracle
	Service  *cluster.Service
}

// initEnv constructs the store, geocoder, oracle, and service from cfg.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	geocoder := newGeocoder(cfg.Geocode)

	oracle, err := newOracle(cfg.Adjacency)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engine := cluster.NewEngine(oracle, cfg.Cluster.RadiusM)

	zap.L().Info("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("adjacency", cfg.Adjacency.Provider),
		zap.Float64("radius_m", cfg.Cluster.RadiusM),
	)
	return &appEnv{
		Store:    st,
		Geocoder: geocoder,
		Oracle:   oracle,
		Service:  cluster.NewService(st, geocoder, engine),
	}, nil
}

func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close", zap.Error(err))
	}
}

func newGeocoder(gc config.GeocodeConfig) geocode.Client {
	opts := []geocode.Option{
		geocode.WithRateLimit(gc.RateLimit),
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(gc.TimeoutSecs) * time.Second}),
	}
	if gc.MapboxToken != "" {
		opts = append(opts, geocode.WithMapboxToken(gc.MapboxToken))
	}
	return geocode.NewClient(opts...)
}

func newOracle(ac config.AdjacencyConfig) (adjacency.Oracle, error) {
	switch ac.Provider {
	case "shapefile":
		if ac.RoadsShapefile == "" {
			return nil, eris.New("adjacency.roads_shapefile is required for the shapefile provider (MOWTHOS_ADJACENCY_ROADS_SHAPEFILE)")
		}
		return adjacency.NewShapefile(ac.RoadsShapefile)
	case "overpass", "":
		return adjacency.NewOverpass(adjacency.OverpassConfig{
			BaseURL:       ac.OverpassURL,
			SearchRadiusM: ac.SearchRadiusM,
			Timeout:       time.Duration(ac.TimeoutSecs) * time.Second,
			RateLimit:     ac.RateLimit,
			MaxRetries:    ac.MaxRetries,
		}), nil
	default:
		return nil, eris.Errorf("unknown adjacency provider %q", ac.Provider)
	}
}
