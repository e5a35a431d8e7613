package cluster

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mowthos/cluster-engine/internal/model"
	"github.com/mowthos/cluster-engine/internal/store"
	"github.com/mowthos/cluster-engine/pkg/geocode"
)

// fakeGeocoder returns a scripted result, or Matched=false by default.
type fakeGeocoder struct {
	result *geocode.Result
	err    error
	calls  int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &geocode.Result{Matched: false}, nil
}

func newTestService(t *testing.T, geocoder geocode.Client) *Service {
	t.Helper()
	dir := t.TempDir()
	st := store.NewCSV(filepath.Join(dir, "host_homes.csv"), filepath.Join(dir, "neighbor_homes.csv"))
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, geocoder, NewEngine(&scriptedOracle{}, 80))
}

func TestRegisterHost_GeocodesMissingCoordinates(t *testing.T) {
	gc := &fakeGeocoder{result: &geocode.Result{
		Latitude: 44.0123, Longitude: -92.1234, Source: "census", Matched: true,
	}}
	svc := newTestService(t, gc)

	rec, err := svc.RegisterHost(context.Background(), model.AddressRecord{
		Address: "4012 Oakview Ln", City: "Rochester", State: "MN",
	})
	require.NoError(t, err)
	assert.Equal(t, 44.0123, rec.Latitude)
	assert.Equal(t, -92.1234, rec.Longitude)
	assert.Equal(t, 1, gc.calls)
}

func TestRegisterHost_KeepsSuppliedCoordinates(t *testing.T) {
	gc := &fakeGeocoder{}
	svc := newTestService(t, gc)

	rec, err := svc.RegisterHost(context.Background(), model.AddressRecord{
		Address: "4012 Oakview Ln", City: "Rochester", State: "MN",
		Latitude: 44.5, Longitude: -92.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 44.5, rec.Latitude)
	assert.Equal(t, 0, gc.calls)
}

func TestRegisterNeighbor_UnmatchedAddress(t *testing.T) {
	svc := newTestService(t, &fakeGeocoder{})

	_, err := svc.RegisterNeighbor(context.Background(), model.AddressRecord{
		Address: "1 Nowhere Rd", City: "Atlantis", State: "MN",
	})
	require.ErrorIs(t, err, ErrResolution)
}

func TestRegister_NoGeocoderConfigured(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.RegisterHost(context.Background(), model.AddressRecord{
		Address: "4012 Oakview Ln", City: "Rochester", State: "MN",
	})
	require.ErrorIs(t, err, ErrResolution)
}

func TestDiscoverNeighborsForHost(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		_, err := svc.RegisterNeighbor(ctx, northOf(float64(i*10), i))
		require.NoError(t, err)
	}

	got, err := svc.DiscoverNeighborsForHost(ctx, hostRecord)
	require.NoError(t, err)
	require.Len(t, got, model.MaxClusterSize)
	assert.Equal(t, "1 Elm St, Rochester, MN", got[0].FullAddress())
}

func TestDiscoverNeighborsForHost_ResolvesFromStoredRecord(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.RegisterHost(ctx, hostRecord)
	require.NoError(t, err)
	_, err = svc.RegisterNeighbor(ctx, northOf(30, 1))
	require.NoError(t, err)

	// Same address, no coordinates on the request. Case differences do not
	// break the lookup.
	got, err := svc.DiscoverNeighborsForHost(ctx, model.AddressRecord{
		Address: "4012 OAKVIEW LN", City: "rochester", State: "mn",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestDiscoverNeighborsForHost_UnresolvableSubject(t *testing.T) {
	svc := newTestService(t, &fakeGeocoder{})

	_, err := svc.DiscoverNeighborsForHost(context.Background(), model.AddressRecord{
		Address: "1 Nowhere Rd", City: "Atlantis", State: "MN",
	})
	require.ErrorIs(t, err, ErrResolution)
}

func TestDiscoverNeighborsForHost_GeocodesUnknownSubject(t *testing.T) {
	gc := &fakeGeocoder{result: &geocode.Result{
		Latitude: hostRecord.Latitude, Longitude: hostRecord.Longitude, Matched: true,
	}}
	svc := newTestService(t, gc)
	ctx := context.Background()

	_, err := svc.RegisterNeighbor(ctx, northOf(25, 1))
	require.NoError(t, err)

	got, err := svc.DiscoverNeighborsForHost(ctx, model.AddressRecord{
		Address: "4012 Oakview Ln", City: "Rochester", State: "MN",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, gc.calls)
}

func TestFindQualifiedHostsForNeighbor(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.RegisterHost(ctx, hostRecord)
	require.NoError(t, err)
	farHost := hostRecord
	farHost.Address = "900 Far Ave"
	farHost.Latitude += 500 / 111320.0
	_, err = svc.RegisterHost(ctx, farHost)
	require.NoError(t, err)

	got, err := svc.FindQualifiedHostsForNeighbor(ctx, northOf(30, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hostRecord.FullAddress(), got[0].FullAddress())
}

func TestFindQualifiedHostsForNeighbor_EmptyResult(t *testing.T) {
	svc := newTestService(t, nil)

	got, err := svc.FindQualifiedHostsForNeighbor(context.Background(), northOf(30, 1))
	require.NoError(t, err)
	assert.Empty(t, got)
}
