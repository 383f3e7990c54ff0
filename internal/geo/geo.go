// Package geo provides the geometry primitives the clustering pipeline is
// built on: geodesic-approximate buffering, heterogeneous centroid, and a
// pure position-to-run-convention classifier. It deliberately does not
// claim precision beyond the upstream GeoJSON coordinate resolution.
package geo

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/skicluster/engine/internal/domain"
)

const kmPerDegreeLat = 111.32

// Buffer expands geometry outward by km on a geodesic approximation,
// returning a rectangular polygon bounding the input plus margin. It
// returns (nil, false) for a degenerate input (empty ring, zero-length
// line, nil geometry) rather than erroring, matching the store adapter's
// tolerant handling of bad geometry elsewhere in the pipeline.
func Buffer(g orb.Geometry, km float64) (orb.Geometry, bool) {
	if isDegenerate(g) {
		return nil, false
	}

	b := g.Bound()
	centerLat := (b.Min[1] + b.Max[1]) / 2

	dLat := km / kmPerDegreeLat
	dLon := kmToDegreesLon(km, centerLat)

	minLon, minLat := b.Min[0]-dLon, b.Min[1]-dLat
	maxLon, maxLat := b.Max[0]+dLon, b.Max[1]+dLat

	ring := orb.Ring{
		{minLon, minLat},
		{maxLon, minLat},
		{maxLon, maxLat},
		{minLon, maxLat},
		{minLon, minLat},
	}

	return orb.Polygon{ring}, true
}

func kmToDegreesLon(km, latDeg float64) float64 {
	cos := math.Cos(latDeg * math.Pi / 180)
	if math.Abs(cos) < 1e-6 {
		// Near the poles a degree of longitude collapses to near zero
		// distance; fall back to the latitude scale so buffering never
		// divides by (near) zero.
		return km / kmPerDegreeLat
	}
	return km / (kmPerDegreeLat * cos)
}

// Centroid accepts a heterogeneous collection of geometries (points,
// lines, polygons mixed) and returns the mean of every vertex across all
// of them. Returns (zero point, false) when geoms is empty or every
// member is degenerate.
func Centroid(geoms []orb.Geometry) (orb.Point, bool) {
	var sumLon, sumLat float64
	var n int

	for _, g := range geoms {
		for _, p := range vertices(g) {
			sumLon += p[0]
			sumLat += p[1]
			n++
		}
	}

	if n == 0 {
		return orb.Point{}, false
	}

	return orb.Point{sumLon / float64(n), sumLat / float64(n)}, true
}

// Vertices flattens any geometry down to its constituent points. Used by
// store adapters that need a point-membership approximation of a
// geometry (e.g. the in-memory test store's containment check).
func Vertices(g orb.Geometry) []orb.Point {
	return vertices(g)
}

func vertices(g orb.Geometry) []orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}
	case orb.MultiPoint:
		return []orb.Point(v)
	case orb.LineString:
		return []orb.Point(v)
	case orb.MultiLineString:
		var out []orb.Point
		for _, ls := range v {
			out = append(out, []orb.Point(ls)...)
		}
		return out
	case orb.Ring:
		return []orb.Point(v)
	case orb.Polygon:
		var out []orb.Point
		for _, ring := range v {
			out = append(out, []orb.Point(ring)...)
		}
		return out
	case orb.MultiPolygon:
		var out []orb.Point
		for _, poly := range v {
			for _, ring := range poly {
				out = append(out, []orb.Point(ring)...)
			}
		}
		return out
	case orb.Collection:
		var out []orb.Point
		for _, child := range v {
			out = append(out, vertices(child)...)
		}
		return out
	default:
		return nil
	}
}

func isDegenerate(g orb.Geometry) bool {
	if g == nil {
		return true
	}
	switch v := g.(type) {
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) < 2
	case orb.MultiLineString:
		return len(v) == 0
	case orb.Ring:
		return len(v) < 3
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) < 3
	case orb.MultiPolygon:
		if len(v) == 0 {
			return true
		}
		for _, poly := range v {
			if len(poly) > 0 && len(poly[0]) >= 3 {
				return false
			}
		}
		return true
	case orb.Collection:
		return len(v) == 0
	default:
		return true
	}
}

// Region bounding boxes are coarse, hand-tuned approximations — run
// convention classification is inherently heuristic (spec non-goal:
// perfect boundaries), not a gazetteer lookup.
var regionBoxes = []struct {
	convention domain.RunConvention
	minLat     float64
	maxLat     float64
	minLon     float64
	maxLon     float64
}{
	{domain.RunConventionJapanese, 24, 46, 122, 146},
	{domain.RunConventionNorthAmerican, 15, 72, -170, -50},
	{domain.RunConventionEuropean, 34, 72, -25, 45},
}

// RunConvention derives the regional run-difficulty colour convention
// from a position. It is a pure function of coordinates.
func RunConvention(p orb.Point) domain.RunConvention {
	lon, lat := p[0], p[1]
	for _, box := range regionBoxes {
		if lat >= box.minLat && lat <= box.maxLat && lon >= box.minLon && lon <= box.maxLon {
			return box.convention
		}
	}
	return domain.RunConventionUnknown
}
