// Package cluster implements neighborhood cluster qualification: deciding
// which registered homes qualify as physically-adjacent partners for a host,
// and the symmetric host lookup for a neighbor.
package cluster

import (
	"context"

	"go.uber.org/zap"

	"github.com/mowthos/cluster-engine/internal/adjacency"
	"github.com/mowthos/cluster-engine/internal/model"
	"github.com/mowthos/cluster-engine/internal/proximity"
)

// Engine computes qualification results from a proximity window and a road
// oracle. It is stateless across calls and safe for concurrent use.
type Engine struct {
	oracle  adjacency.Oracle
	radiusM float64
}

// NewEngine creates an Engine with the given oracle and proximity radius in
// meters.
func NewEngine(oracle adjacency.Oracle, radiusM float64) *Engine {
	return &Engine{oracle: oracle, radiusM: radiusM}
}

// Qualify returns the pool entries that qualify as cluster partners for the
// reference address, nearest-first, capped at capacity.
//
// Candidates are evaluated in nearest-first order and accepted only on an
// affirmative road-oracle verdict: an indeterminate result excludes the
// candidate (fail closed), so a provider outage can only shrink a cluster,
// never grow it. Evaluation stops once capacity candidates are accepted,
// which both preserves nearest-first priority and bounds external calls.
// Fewer than MinClusterSize accepted candidates is a valid outcome, not an
// error.
func (e *Engine) Qualify(ctx context.Context, reference model.AddressRecord, pool []model.AddressRecord, capacity int) ([]model.AddressRecord, error) {
	if capacity <= 0 || capacity > model.MaxClusterSize {
		capacity = model.MaxClusterSize
	}

	refCoord := reference.Coordinate()
	narrowed := proximity.Narrow(refCoord, pool, e.radiusM)

	// Fresh memo per computation: identical pairs hit the provider once,
	// and nothing is cached across queries.
	oracle := adjacency.NewMemo(e.oracle)

	accepted := make([]model.AddressRecord, 0, capacity)
	evaluated := 0
	for _, cand := range narrowed {
		if len(accepted) >= capacity {
			break
		}
		// Results of in-flight checks must not be used after cancellation.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := oracle.IsAdjacent(ctx, refCoord, cand.Record.Coordinate())
		evaluated++
		if res.Adjacent {
			accepted = append(accepted, cand.Record)
		}
	}

	zap.L().Debug("qualification computed",
		zap.String("reference", reference.FullAddress()),
		zap.Int("pool", len(pool)),
		zap.Int("narrowed", len(narrowed)),
		zap.Int("evaluated", evaluated),
		zap.Int("accepted", len(accepted)),
	)
	return accepted, nil
}
