// Package proximity narrows candidate address pools by great-circle distance.
package proximity

import (
	"math"
	"sort"

	"github.com/mowthos/cluster-engine/internal/model"
)

// earthRadiusM is the mean Earth radius used for haversine distance.
const earthRadiusM = 6371000.0

// HaversineMeters returns the great-circle distance between two points in
// meters.
func HaversineMeters(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// Candidate pairs a pool record with its distance from the reference point.
type Candidate struct {
	Record    model.AddressRecord
	DistanceM float64
}

// Narrow returns the pool entries within radiusMeters of reference, ordered
// nearest-first. The radius boundary is inclusive. The sort is stable, so
// equidistant entries keep their registration order. Entries whose
// coordinates equal the reference exactly are excluded as self-matches.
// An empty pool or radius window yields an empty result, never an error.
func Narrow(reference model.Coordinate, pool []model.AddressRecord, radiusMeters float64) []Candidate {
	var survivors []Candidate
	for _, rec := range pool {
		c := rec.Coordinate()
		if c.Lat == reference.Lat && c.Lon == reference.Lon {
			continue
		}
		d := HaversineMeters(reference, c)
		if d > radiusMeters {
			continue
		}
		survivors = append(survivors, Candidate{Record: rec, DistanceM: d})
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].DistanceM < survivors[j].DistanceM
	})
	return survivors
}

// Records strips distances from a narrowed candidate list, preserving order.
func Records(candidates []Candidate) []model.AddressRecord {
	out := make([]model.AddressRecord, len(candidates))
	for i, c := range candidates {
		out[i] = c.Record
	}
	return out
}
