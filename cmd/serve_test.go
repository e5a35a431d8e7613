package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mowthos/cluster-engine/internal/adjacency"
	"github.com/mowthos/cluster-engine/internal/cluster"
	"github.com/mowthos/cluster-engine/internal/model"
	"github.com/mowthos/cluster-engine/internal/store"
	"github.com/mowthos/cluster-engine/pkg/geocode"
)

// clearOracle approves every pair.
type clearOracle struct{}

func (clearOracle) IsAdjacent(_ context.Context, _, _ model.Coordinate) adjacency.Result {
	return adjacency.Result{Adjacent: true, Reason: adjacency.ReasonClearPath}
}

// stubGeocoder returns a fixed result for every address.
type stubGeocoder struct {
	result geocode.Result
}

func (s stubGeocoder) Geocode(_ context.Context, _ geocode.AddressInput) (*geocode.Result, error) {
	r := s.result
	return &r, nil
}

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()
	dir := t.TempDir()
	st := store.NewCSV(filepath.Join(dir, "hosts.csv"), filepath.Join(dir, "neighbors.csv"))
	t.Cleanup(func() { _ = st.Close() })

	oracle := clearOracle{}
	geocoder := stubGeocoder{result: geocode.Result{Matched: false}}
	engine := cluster.NewEngine(oracle, 80)
	return &appEnv{
		Store:    st,
		Geocoder: geocoder,
		Oracle:   oracle,
		Service:  cluster.NewService(st, geocoder, engine),
	}
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestServeHealth(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeRegisterHost(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, body := postJSON(t, srv, "/clusters/register-host",
		`{"address":"4012 Oakview Ln","city":"Rochester","state":"MN","latitude":44.0123,"longitude":-92.1234}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "4012 Oakview Ln", body["address"])
	assert.Equal(t, 44.0123, body["latitude"])
}

func TestServeRegisterHost_MissingFields(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, body := postJSON(t, srv, "/clusters/register-host", `{"address":"4012 Oakview Ln"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "required")
}

func TestServeRegisterNeighbor_UnresolvableIs422(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, _ := postJSON(t, srv, "/clusters/register-neighbor",
		`{"address":"1 Nowhere Rd","city":"Atlantis","state":"MN"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServeDiscoverNeighbors(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	ctx := context.Background()
	for i, lat := range []float64{44.01233, 44.01236, 44.01239} {
		_, err := env.Store.AppendNeighbor(ctx, model.AddressRecord{
			Address: string(rune('A'+i)) + " Elm St", City: "Rochester", State: "MN",
			Latitude: lat, Longitude: -92.1234,
		})
		require.NoError(t, err)
	}

	resp, body := postJSON(t, srv, "/clusters/discover-neighbors",
		`{"address":"4012 Oakview Ln","city":"Rochester","state":"MN","latitude":44.0123,"longitude":-92.1234}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, true, body["viable"])

	neighbors, ok := body["qualified_neighbors"].([]any)
	require.True(t, ok)
	assert.Equal(t, "A Elm St, Rochester, MN", neighbors[0])
}

func TestServeFindHosts_Empty(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, body := postJSON(t, srv, "/clusters/find-hosts",
		`{"address":"B Elm St","city":"Rochester","state":"MN","latitude":44.0124,"longitude":-92.1234}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["count"])
}

func TestServeGeocode(t *testing.T) {
	env := newTestEnv(t)
	env.Geocoder = stubGeocoder{result: geocode.Result{
		Latitude: 44.0123, Longitude: -92.1234, Source: "census", Matched: true,
	}}
	srv := httptest.NewServer(newRouter(env))
	defer srv.Close()

	resp, body := postJSON(t, srv, "/clusters/geocode",
		`{"address":"4012 Oakview Ln","city":"Rochester","state":"MN"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, "census", body["source"])
}

func TestServeTestAdjacency(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, body := postJSON(t, srv, "/clusters/test-adjacency",
		`{"a":{"lat":44.0123,"lon":-92.1234},"b":{"lat":44.0125,"lon":-92.1236}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["adjacent"])
	assert.Equal(t, "clear_path", body["reason"])
}

func TestServeInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestEnv(t)))
	defer srv.Close()

	resp, _ := postJSON(t, srv, "/clusters/discover-neighbors", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
