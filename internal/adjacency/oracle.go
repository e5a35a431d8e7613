// Package adjacency decides whether the direct path between two homes
// crosses a drivable road. Provider failures never surface as errors: they
// fold into an indeterminate result and the qualification engine fails
// closed, so an outage shrinks clusters instead of growing them.
package adjacency

import (
	"context"
	"sync"

	"github.com/mowthos/cluster-engine/internal/model"
)

// Reason explains an adjacency verdict.
type Reason string

const (
	// ReasonClearPath: the straight path between the points crosses no road.
	ReasonClearPath Reason = "clear_path"
	// ReasonRoadCrossing: a drivable road separates the points.
	ReasonRoadCrossing Reason = "road_crossing"
	// ReasonIndeterminate: the road provider failed, timed out, or returned
	// garbage; adjacency could not be established.
	ReasonIndeterminate Reason = "indeterminate"
)

// Result is the outcome of one adjacency check.
type Result struct {
	Adjacent bool   `json:"adjacent"`
	Reason   Reason `json:"reason"`
}

// Oracle answers whether two coordinates are connected without crossing a
// road. Implementations must absorb provider failures into
// ReasonIndeterminate rather than panicking or returning an error.
type Oracle interface {
	IsAdjacent(ctx context.Context, a, b model.Coordinate) Result
}

type pairKey struct {
	aLat, aLon, bLat, bLon float64
}

// memoOracle caches verdicts for repeated identical pairs. The engine wraps
// the shared oracle in a fresh memo per qualification computation, so the
// cache never outlives one query.
type memoOracle struct {
	inner Oracle

	mu   sync.Mutex
	seen map[pairKey]Result
}

// NewMemo wraps an Oracle so identical (a, b) pairs within one computation
// hit the provider once.
func NewMemo(inner Oracle) Oracle {
	return &memoOracle{inner: inner, seen: make(map[pairKey]Result)}
}

func (m *memoOracle) IsAdjacent(ctx context.Context, a, b model.Coordinate) Result {
	key := pairKey{a.Lat, a.Lon, b.Lat, b.Lon}

	m.mu.Lock()
	if r, ok := m.seen[key]; ok {
		m.mu.Unlock()
		return r
	}
	m.mu.Unlock()

	r := m.inner.IsAdjacent(ctx, a, b)

	m.mu.Lock()
	m.seen[key] = r
	m.mu.Unlock()
	return r
}
