package cluster

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mowthos/cluster-engine/internal/adjacency"
	"github.com/mowthos/cluster-engine/internal/model"
)

// scriptedOracle answers from a per-coordinate script and counts provider
// calls. Unscripted pairs are clear.
type scriptedOracle struct {
	calls   atomic.Int32
	verdict func(b model.Coordinate) adjacency.Result
}

func (o *scriptedOracle) IsAdjacent(ctx context.Context, a, b model.Coordinate) adjacency.Result {
	o.calls.Add(1)
	if o.verdict != nil {
		return o.verdict(b)
	}
	return adjacency.Result{Adjacent: true, Reason: adjacency.ReasonClearPath}
}

var hostRecord = model.AddressRecord{
	Address:  "4012 Oakview Ln",
	City:     "Rochester",
	State:    "MN",
	Latitude: 44.0123, Longitude: -92.1234,
}

// northOf returns a record offset the given meters north of the host.
func northOf(meters float64, n int) model.AddressRecord {
	return model.AddressRecord{
		Address:   fmt.Sprintf("%d Elm St", n),
		City:      "Rochester",
		State:     "MN",
		Latitude:  hostRecord.Latitude + meters/111320.0,
		Longitude: hostRecord.Longitude,
	}
}

func TestQualify_CapsAtClusterSizeNearestFirst(t *testing.T) {
	// Seven candidates inside the radius, all adjacent. Only the five
	// nearest come back, in distance order, and the two farthest are never
	// checked against the provider.
	pool := make([]model.AddressRecord, 0, 7)
	for i := 1; i <= 7; i++ {
		pool = append(pool, northOf(float64(i*10), i))
	}
	// Shuffle registration order so the sort is doing the work.
	pool[0], pool[6] = pool[6], pool[0]
	pool[2], pool[4] = pool[4], pool[2]

	oracle := &scriptedOracle{}
	engine := NewEngine(oracle, 80)

	got, err := engine.Qualify(context.Background(), hostRecord, pool, model.MaxClusterSize)
	require.NoError(t, err)
	require.Len(t, got, model.MaxClusterSize)

	for i, rec := range got {
		assert.Equal(t, fmt.Sprintf("%d Elm St", i+1), rec.Address)
	}
	assert.Equal(t, int32(5), oracle.calls.Load())
}

func TestQualify_RadiusAndRoadCrossing(t *testing.T) {
	near := northOf(30, 1)
	acrossRoad := northOf(60, 2)
	far := northOf(200, 3)
	pool := []model.AddressRecord{far, acrossRoad, near}

	oracle := &scriptedOracle{verdict: func(b model.Coordinate) adjacency.Result {
		if b == acrossRoad.Coordinate() {
			return adjacency.Result{Adjacent: false, Reason: adjacency.ReasonRoadCrossing}
		}
		return adjacency.Result{Adjacent: true, Reason: adjacency.ReasonClearPath}
	}}
	engine := NewEngine(oracle, 80)

	got, err := engine.Qualify(context.Background(), hostRecord, pool, model.MaxClusterSize)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.Address, got[0].Address)
	// The 200 m candidate never reaches the oracle.
	assert.Equal(t, int32(2), oracle.calls.Load())
}

func TestQualify_IndeterminateExcludes(t *testing.T) {
	near := northOf(20, 1)
	unsure := northOf(40, 2)
	pool := []model.AddressRecord{near, unsure}

	oracle := &scriptedOracle{verdict: func(b model.Coordinate) adjacency.Result {
		if b == unsure.Coordinate() {
			return adjacency.Result{Adjacent: false, Reason: adjacency.ReasonIndeterminate}
		}
		return adjacency.Result{Adjacent: true, Reason: adjacency.ReasonClearPath}
	}}
	engine := NewEngine(oracle, 80)

	got, err := engine.Qualify(context.Background(), hostRecord, pool, model.MaxClusterSize)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.Address, got[0].Address)
}

func TestQualify_ExcludesSamePoint(t *testing.T) {
	self := hostRecord
	self.Address = "Duplicate of host"
	pool := []model.AddressRecord{self, northOf(25, 1)}

	oracle := &scriptedOracle{}
	engine := NewEngine(oracle, 80)

	got, err := engine.Qualify(context.Background(), hostRecord, pool, model.MaxClusterSize)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1 Elm St", got[0].Address)
	assert.Equal(t, int32(1), oracle.calls.Load())
}

func TestQualify_MemoizesRepeatedCoordinates(t *testing.T) {
	// Duplicate registrations at the same point cost one provider call.
	dup := northOf(30, 1)
	pool := []model.AddressRecord{dup, dup, northOf(50, 2)}

	oracle := &scriptedOracle{}
	engine := NewEngine(oracle, 80)

	got, err := engine.Qualify(context.Background(), hostRecord, pool, model.MaxClusterSize)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, int32(2), oracle.calls.Load())
}

func TestQualify_EmptyPool(t *testing.T) {
	engine := NewEngine(&scriptedOracle{}, 80)
	got, err := engine.Qualify(context.Background(), hostRecord, nil, model.MaxClusterSize)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQualify_Deterministic(t *testing.T) {
	pool := []model.AddressRecord{northOf(30, 1), northOf(30, 2), northOf(60, 3)}
	engine := NewEngine(&scriptedOracle{}, 80)

	first, err := engine.Qualify(context.Background(), hostRecord, pool, model.MaxClusterSize)
	require.NoError(t, err)
	second, err := engine.Qualify(context.Background(), hostRecord, pool, model.MaxClusterSize)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Equidistant candidates keep registration order.
	assert.Equal(t, "1 Elm St", first[0].Address)
	assert.Equal(t, "2 Elm St", first[1].Address)
}

func TestQualify_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	oracle := &scriptedOracle{}
	engine := NewEngine(oracle, 80)

	_, err := engine.Qualify(ctx, hostRecord, []model.AddressRecord{northOf(30, 1)}, model.MaxClusterSize)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), oracle.calls.Load())
}
