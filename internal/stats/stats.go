// Package stats computes the Statistics summary P5 attaches to each
// surviving ski area.
package stats

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
)

// BasicStatsComputer counts members by type and sums run length via a
// planar distance approximation. Elevation fields are left at zero: this
// pipeline's input geometries carry no elevation data.
type BasicStatsComputer struct{}

var _ repository.StatsComputer = BasicStatsComputer{}

func (BasicStatsComputer) Compute(members []*domain.MapObject) (domain.Statistics, error) {
	var out domain.Statistics
	for _, m := range members {
		switch {
		case m.IsLift():
			out.LiftCount++
		case m.IsRun():
			out.RunCount++
			out.RunLengthKm += lineLengthKm(m.Geometry)
		}
	}
	return out, nil
}

// kmPerDegree approximates degrees-of-arc to kilometers at mid latitudes,
// matching the same coarse conversion internal/geo uses for buffering.
const kmPerDegree = 111.32

// lineLengthKm sums planar segment distances along a run's geometry and
// converts the degree-scale sum to an approximate kilometer length. A
// run is expected to be a LineString; any other geometry contributes 0.
func lineLengthKm(g orb.Geometry) float64 {
	ls, ok := g.(orb.LineString)
	if !ok || len(ls) < 2 {
		return 0
	}

	var degrees float64
	for i := 1; i < len(ls); i++ {
		degrees += planar.Distance(ls[i-1], ls[i])
	}
	return degrees * kmPerDegree
}
