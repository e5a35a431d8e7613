package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mowthos/cluster-engine/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cluster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_AppendAssignsID(t *testing.T) {
	s := newTestSQLite(t)

	rec, err := s.AppendHost(context.Background(), model.AddressRecord{
		Address: "123 Main St", City: "Rochester", State: "MN",
		Latitude: 44.0123, Longitude: -92.1234,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
}

func TestSQLiteStore_CollectionsAreSeparate(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.AppendHost(ctx, model.AddressRecord{Address: "1 Host Way", City: "Rochester", State: "MN", Latitude: 44, Longitude: -92})
	require.NoError(t, err)
	_, err = s.AppendNeighbor(ctx, model.AddressRecord{Address: "2 Neighbor Ln", City: "Rochester", State: "MN", Latitude: 44, Longitude: -92})
	require.NoError(t, err)

	hosts, err := s.ListHosts(ctx)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "1 Host Way", hosts[0].Address)

	neighbors, err := s.ListNeighbors(ctx)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "2 Neighbor Ln", neighbors[0].Address)
}

func TestSQLiteStore_DuplicatesCoexist(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := model.AddressRecord{Address: "123 Main St", City: "Rochester", State: "MN", Latitude: 44, Longitude: -92}
	first, err := s.AppendHost(ctx, rec)
	require.NoError(t, err)
	second, err := s.AppendHost(ctx, rec)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	hosts, err := s.ListHosts(ctx)
	require.NoError(t, err)
	assert.Len(t, hosts, 2)
}

func TestSQLiteStore_PreservesRegistrationOrder(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	// All appends land within the same second; list order must still be
	// insertion order so equidistant candidates tie-break deterministically.
	for i := 0; i < 12; i++ {
		_, err := s.AppendHost(ctx, model.AddressRecord{
			Address: fmt.Sprintf("%d Elm St", i), City: "Rochester", State: "MN",
			Latitude: 44, Longitude: -92,
		})
		require.NoError(t, err)
	}

	hosts, err := s.ListHosts(ctx)
	require.NoError(t, err)
	require.Len(t, hosts, 12)
	for i, rec := range hosts {
		assert.Equal(t, fmt.Sprintf("%d Elm St", i), rec.Address)
	}
}

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestOpen_SelectsDriver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	csvStore, err := Open(ctx, configFor("csv", dir))
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, csvStore)

	sqliteStore, err := Open(ctx, configFor("sqlite", dir))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqliteStore)
	_ = sqliteStore.Close()

	_, err = Open(ctx, configFor("mongodb", dir))
	require.Error(t, err)
}
