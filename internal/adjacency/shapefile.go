package adjacency

import (
	"context"
	"math"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/mowthos/cluster-engine/internal/model"
)

// ShapefileOracle answers road-crossing checks from a local TIGER/Line
// roads shapefile, loaded once into memory. It never fails after load, so
// it is also the deterministic oracle of choice for offline evaluation.
type ShapefileOracle struct {
	segs []segment
}

// NewShapefile loads all polyline shapes from the given .shp file.
// TIGER/Line road geometry is already in lon/lat (EPSG:4269), which at this
// precision is interchangeable with WGS84.
func NewShapefile(path string) (*ShapefileOracle, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile oracle: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	var segs []segment
	for reader.Next() {
		_, shape := reader.Shape()
		pl, ok := shape.(*shp.PolyLine)
		if !ok {
			continue
		}
		segs = append(segs, polyLineSegments(pl)...)
	}

	zap.L().Info("loaded roads shapefile",
		zap.String("path", path),
		zap.Int("segments", len(segs)),
	)
	return &ShapefileOracle{segs: segs}, nil
}

// polyLineSegments splits a shapefile PolyLine into segments, respecting
// part boundaries so unrelated road pieces are not joined.
func polyLineSegments(pl *shp.PolyLine) []segment {
	var segs []segment
	for part := 0; part < int(pl.NumParts); part++ {
		start := int(pl.Parts[part])
		end := len(pl.Points)
		if part+1 < int(pl.NumParts) {
			end = int(pl.Parts[part+1])
		}
		points := make([]geom.Coord, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, geom.Coord{pl.Points[i].X, pl.Points[i].Y})
		}
		segs = append(segs, segmentsFromPoints(points)...)
	}
	return segs
}

// IsAdjacent implements Oracle. Only segments near the queried pair are
// tested; everything else is culled by bounding box.
func (o *ShapefileOracle) IsAdjacent(ctx context.Context, a, b model.Coordinate) Result {
	minLon := math.Min(a.Lon, b.Lon) - bboxPaddingDeg
	maxLon := math.Max(a.Lon, b.Lon) + bboxPaddingDeg
	minLat := math.Min(a.Lat, b.Lat) - bboxPaddingDeg
	maxLat := math.Max(a.Lat, b.Lat) + bboxPaddingDeg

	var nearby []segment
	for _, s := range o.segs {
		if segmentInBBox(s, minLon, minLat, maxLon, maxLat) {
			nearby = append(nearby, s)
		}
	}
	return verdict(crossesAny(a, b, nearby))
}

// bboxPaddingDeg is ~100 m in latitude degrees; generous enough that no
// crossing segment is culled at lawn scale.
const bboxPaddingDeg = 0.001

func segmentInBBox(s segment, minLon, minLat, maxLon, maxLat float64) bool {
	segMinLon := math.Min(s.start[0], s.end[0])
	segMaxLon := math.Max(s.start[0], s.end[0])
	segMinLat := math.Min(s.start[1], s.end[1])
	segMaxLat := math.Max(s.start[1], s.end[1])
	return segMinLon <= maxLon && segMaxLon >= minLon &&
		segMinLat <= maxLat && segMaxLat >= minLat
}
