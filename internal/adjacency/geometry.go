package adjacency

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/lineintersector"

	"github.com/mowthos/cluster-engine/internal/model"
)

// segment is one piece of road centerline in lon/lat order, matching
// go-geom's XY convention.
type segment struct {
	start geom.Coord
	end   geom.Coord
}

// segmentsFromPoints converts a road polyline (ordered lon/lat vertices)
// into consecutive segments.
func segmentsFromPoints(points []geom.Coord) []segment {
	if len(points) < 2 {
		return nil
	}
	segs := make([]segment, 0, len(points)-1)
	for i := 0; i < len(points)-1; i++ {
		segs = append(segs, segment{start: points[i], end: points[i+1]})
	}
	return segs
}

// crossesAny reports whether the straight path a→b intersects any road
// segment. At lawn scale (tens of meters) treating lon/lat as planar is
// accurate enough for an intersection test.
func crossesAny(a, b model.Coordinate, segs []segment) bool {
	p1 := geom.Coord{a.Lon, a.Lat}
	p2 := geom.Coord{b.Lon, b.Lat}
	strategy := lineintersector.RobustLineIntersector{}

	for _, s := range segs {
		r := lineintersector.LineIntersectsLine(strategy, p1, p2, s.start, s.end)
		if r.HasIntersection() {
			return true
		}
	}
	return false
}

// verdict maps a crossing test outcome to a Result.
func verdict(crossed bool) Result {
	if crossed {
		return Result{Adjacent: false, Reason: ReasonRoadCrossing}
	}
	return Result{Adjacent: true, Reason: ReasonClearPath}
}

var indeterminate = Result{Adjacent: false, Reason: ReasonIndeterminate}
