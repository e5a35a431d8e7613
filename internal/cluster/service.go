package cluster

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mowthos/cluster-engine/internal/model"
	"github.com/mowthos/cluster-engine/internal/store"
	"github.com/mowthos/cluster-engine/pkg/geocode"
)

// ErrResolution indicates the subject address could not be resolved to
// coordinates by any means: none supplied, no stored record matches, and
// geocoding failed or returned no match.
var ErrResolution = eris.New("could not resolve address to coordinates")

// Service ties the registered address collections, the geocoder, and the
// qualification engine together behind the operations the CLI and HTTP
// layers expose.
type Service struct {
	store    store.Store
	geocoder geocode.Client
	engine   *Engine
}

// NewService creates a Service. geocoder may be nil, in which case
// registration requires explicit coordinates and subject resolution falls
// back to stored records only.
func NewService(st store.Store, geocoder geocode.Client, engine *Engine) *Service {
	return &Service{store: st, geocoder: geocoder, engine: engine}
}

// RegisterHost appends a host home record, geocoding the address first when
// the caller did not supply coordinates. Registration never deduplicates:
// re-registering an existing address appends another record.
func (s *Service) RegisterHost(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error) {
	resolved, err := s.ensureCoordinates(ctx, rec)
	if err != nil {
		return nil, err
	}
	return s.store.AppendHost(ctx, resolved)
}

// RegisterNeighbor appends a neighbor home record, geocoding first when
// coordinates are absent.
func (s *Service) RegisterNeighbor(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error) {
	resolved, err := s.ensureCoordinates(ctx, rec)
	if err != nil {
		return nil, err
	}
	return s.store.AppendNeighbor(ctx, resolved)
}

// DiscoverNeighborsForHost returns up to MaxClusterSize registered neighbor
// homes that qualify as cluster partners for the host, nearest-first. The
// host does not need to be registered; its coordinates are resolved from the
// request, the host collection, or the geocoder, in that order.
func (s *Service) DiscoverNeighborsForHost(ctx context.Context, host model.AddressRecord) ([]model.AddressRecord, error) {
	subject, err := s.resolveSubject(ctx, host, model.PoolHosts)
	if err != nil {
		return nil, err
	}
	pool, err := s.store.ListNeighbors(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "discover neighbors: list neighbor homes")
	}
	return s.engine.Qualify(ctx, subject, pool, model.MaxClusterSize)
}

// FindQualifiedHostsForNeighbor returns the registered host homes the
// neighbor could join, nearest-first, capped at MaxClusterSize. This is the
// mirror of DiscoverNeighborsForHost with the collections swapped.
func (s *Service) FindQualifiedHostsForNeighbor(ctx context.Context, neighbor model.AddressRecord) ([]model.AddressRecord, error) {
	subject, err := s.resolveSubject(ctx, neighbor, model.PoolNeighbors)
	if err != nil {
		return nil, err
	}
	pool, err := s.store.ListHosts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "find hosts: list host homes")
	}
	return s.engine.Qualify(ctx, subject, pool, model.MaxClusterSize)
}

// resolveSubject fills in the subject's coordinates. Order: coordinates on
// the request, then a stored record in the subject's own collection matching
// the (address, city, state) key, then live geocoding. All three failing is
// ErrResolution.
func (s *Service) resolveSubject(ctx context.Context, rec model.AddressRecord, pool model.Pool) (model.AddressRecord, error) {
	if rec.HasCoordinates() {
		return rec, nil
	}

	records, err := s.listPool(ctx, pool)
	if err != nil {
		return model.AddressRecord{}, eris.Wrapf(err, "resolve subject: list %s", pool)
	}
	for _, stored := range records {
		if stored.HasCoordinates() && stored.SameAddress(rec) {
			rec.Latitude = stored.Latitude
			rec.Longitude = stored.Longitude
			return rec, nil
		}
	}

	return s.geocodeRecord(ctx, rec)
}

// ensureCoordinates geocodes a registration request that arrived without
// coordinates. Supplied coordinates are trusted as-is.
func (s *Service) ensureCoordinates(ctx context.Context, rec model.AddressRecord) (model.AddressRecord, error) {
	if rec.HasCoordinates() {
		return rec, nil
	}
	return s.geocodeRecord(ctx, rec)
}

func (s *Service) geocodeRecord(ctx context.Context, rec model.AddressRecord) (model.AddressRecord, error) {
	if s.geocoder == nil {
		return model.AddressRecord{}, eris.Wrapf(ErrResolution, "no geocoder configured for %s", rec.FullAddress())
	}

	result, err := s.geocoder.Geocode(ctx, geocode.AddressInput{
		Street: rec.Address,
		City:   rec.City,
		State:  rec.State,
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.AddressRecord{}, ctx.Err()
		}
		zap.L().Warn("geocoding failed",
			zap.String("address", rec.FullAddress()),
			zap.Error(err),
		)
		return model.AddressRecord{}, eris.Wrapf(ErrResolution, "geocode %s", rec.FullAddress())
	}
	if !result.Matched {
		return model.AddressRecord{}, eris.Wrapf(ErrResolution, "no geocoding match for %s", rec.FullAddress())
	}

	rec.Latitude = result.Latitude
	rec.Longitude = result.Longitude
	return rec, nil
}

func (s *Service) listPool(ctx context.Context, pool model.Pool) ([]model.AddressRecord, error) {
	if pool == model.PoolHosts {
		return s.store.ListHosts(ctx)
	}
	return s.store.ListNeighbors(ctx)
}
