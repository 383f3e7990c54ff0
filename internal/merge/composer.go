// Package merge implements the cross-source ski-area merge operation: an
// injected Composer decides how several ski areas combine into one
// survivor, and Merge carries out the transactional rewrite-and-remove
// that makes the survivor the sole reference target.
package merge

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/skicluster/engine/internal/domain"
)

// Composer combines survivor with others into one merged ski area, or
// returns (nil, false) when no merge is possible (a no-op for the
// caller). It is a pure function: no I/O, no store access — Merge owns
// the side effects.
type Composer func(survivor *domain.MapObject, others []*domain.MapObject) (*domain.MapObject, bool)

// DefaultComposer picks a deterministic survivor when several ski areas
// merge: the crowdsourced-sourced input survives when one is present (ties
// broken by lexicographically earliest Key); sources and activities
// union across every input; polygon geometry is preferred over point
// geometry whenever any input carried one.
func DefaultComposer(survivor *domain.MapObject, others []*domain.MapObject) (*domain.MapObject, bool) {
	all := append([]*domain.MapObject{survivor}, others...)
	if len(all) == 0 {
		return nil, false
	}

	best := all[0]
	for _, a := range all[1:] {
		if rank(a.Source) < rank(best.Source) {
			best = a
			continue
		}
		if rank(a.Source) == rank(best.Source) && a.Key < best.Key {
			best = a
		}
	}

	merged := best.Clone()
	if merged.Properties == nil {
		merged.Properties = &domain.SkiAreaProperties{}
	}

	sourceSeen := map[domain.Source]struct{}{}
	activities := domain.NewActivitySet()
	var polygonGeom orb.Geometry
	hasPolygon := false

	for _, a := range all {
		sourceSeen[a.Source] = struct{}{}
		if a.Properties != nil {
			for _, s := range a.Properties.Sources {
				sourceSeen[s] = struct{}{}
			}
		}
		activities = activities.Union(a.Activities)
		if a.IsPolygon && !hasPolygon {
			polygonGeom, hasPolygon = a.Geometry, true
		}
	}

	sources := make([]domain.Source, 0, len(sourceSeen))
	for s := range sourceSeen {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	merged.Properties.Sources = sources
	merged.Activities = activities

	if hasPolygon {
		merged.Geometry = polygonGeom
		merged.IsPolygon = true
	}

	return merged, true
}

func rank(s domain.Source) int {
	if s == domain.SourceCrowdsourced {
		return 0
	}
	return 1
}
