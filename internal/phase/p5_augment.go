package phase

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/geo"
)

// RunP5 augments every surviving ski area with computed statistics,
// recentred geometry, run convention, and an optional geocoded location,
// removing ski areas that ended up with no members and no registry
// provenance.
func RunP5(ctx context.Context, deps Deps) (PhaseReport, error) {
	var report PhaseReport

	areas, err := drainSkiAreas(ctx, deps.Store, repository.SkiAreaFilter{})
	if err != nil {
		return report, fmt.Errorf("phase p5: list ski areas: %w", err)
	}

	var processed, removed int64
	var geocoderWarned atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency(deps))

	for _, area := range areas {
		area := area
		g.Go(func() error {
			atomic.AddInt64(&processed, 1)
			wasRemoved, err := runP5One(gctx, deps, area, &geocoderWarned)
			if err != nil {
				return err
			}
			if wasRemoved {
				atomic.AddInt64(&removed, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("phase p5: %w", err)
	}

	report.Processed = int(processed)
	report.Removed = int(removed)
	return report, nil
}

func runP5One(ctx context.Context, deps Deps, s *domain.MapObject, geocoderWarned *atomic.Bool) (removed bool, err error) {
	members, err := deps.Store.MembersOf(ctx, s.ID)
	if err != nil {
		return false, fmt.Errorf("members of %s: %w", s.ID, err)
	}

	if len(members) == 0 && !hasRegistrySource(s) {
		if err := deps.Store.Remove(ctx, s.Key); err != nil {
			return false, fmt.Errorf("remove orphan ski area %s: %w", s.ID, err)
		}
		return true, nil
	}

	newGeom := s.Geometry
	if len(members) > 0 {
		geoms := make([]orb.Geometry, 0, len(members))
		for _, m := range members {
			geoms = append(geoms, m.Geometry)
		}
		if c, ok := geo.Centroid(geoms); ok {
			newGeom = c
		}
	}

	if s.Properties == nil {
		s.Properties = &domain.SkiAreaProperties{}
	}

	if stats, err := deps.StatsComputer.Compute(members); err != nil {
		deps.Logger.Warn("p5: stats computation failed", zap.String("ski_area_id", s.ID), zap.Error(err))
	} else {
		s.Properties.Statistics = &stats
	}

	s.Geometry = newGeom
	s.IsPolygon = false

	if pt, ok := representativePoint(newGeom); ok {
		s.Properties.RunConvention = geo.RunConvention(pt)

		if deps.Geocoder != nil {
			loc, err := deps.Geocoder.ReverseGeocode(ctx, pt)
			if err != nil {
				if !geocoderWarned.Swap(true) {
					deps.Logger.Warn("p5: geocoder failed, leaving location unset", zap.Error(err))
				}
			} else {
				s.Properties.Location = loc
			}
		}
	}

	if err := deps.Store.SaveSkiArea(ctx, s); err != nil {
		return false, fmt.Errorf("save augmented ski area %s: %w", s.ID, err)
	}
	return false, nil
}

func representativePoint(g orb.Geometry) (orb.Point, bool) {
	if pt, ok := g.(orb.Point); ok {
		return pt, true
	}
	return geo.Centroid([]orb.Geometry{g})
}

func hasRegistrySource(s *domain.MapObject) bool {
	if s.Source == domain.SourceRegistry {
		return true
	}
	if s.Properties != nil {
		for _, src := range s.Properties.Sources {
			if src == domain.SourceRegistry {
				return true
			}
		}
	}
	return false
}
