// Package store persists the two registered address collections: host homes
// and neighbor homes. Both collections are append-only; records are never
// updated or deleted, and duplicate (address, city, state) tuples may
// coexist.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/mowthos/cluster-engine/internal/config"
	"github.com/mowthos/cluster-engine/internal/model"
)

// Store is the persistence interface over the host and neighbor collections.
type Store interface {
	ListHosts(ctx context.Context) ([]model.AddressRecord, error)
	ListNeighbors(ctx context.Context) ([]model.AddressRecord, error)
	AppendHost(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error)
	AppendNeighbor(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "csv", "":
		return NewCSV(cfg.HostsCSV, cfg.NeighborsCSV), nil
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
