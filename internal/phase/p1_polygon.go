package phase

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/traversal"
)

// RunP1 claims everything a crowdsourced polygon contains: traverse once
// with CONTAINS, apply the two ordered removal rules, and mark survivors.
func RunP1(ctx context.Context, deps Deps) (PhaseReport, error) {
	var report PhaseReport

	crowdsourced := domain.SourceCrowdsourced
	areas, err := drainSkiAreas(ctx, deps.Store, repository.SkiAreaFilter{
		Source:       &crowdsourced,
		OnlyPolygons: true,
	})
	if err != nil {
		return report, fmt.Errorf("phase p1: list polygons: %w", err)
	}

	var processed, removed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency(deps))

	for _, area := range areas {
		area := area
		g.Go(func() error {
			atomic.AddInt64(&processed, 1)
			wasRemoved, err := runP1One(gctx, deps, area)
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
		return report, fmt.Errorf("phase p1: %w", err)
	}

	report.Processed = int(processed)
	report.Removed = int(removed)
	return report, nil
}

func runP1One(ctx context.Context, deps Deps, area *domain.MapObject) (removed bool, err error) {
	if area.ID == "" {
		// A missing ski-area id on a polygon pass is a programmer
		// error, not a recoverable data condition.
		panic("phase p1: ski area has empty id")
	}

	originallyEmpty := area.Activities.Empty()
	seedActivities := area.Activities.Clone()
	if originallyEmpty {
		seedActivities = domain.SkiAreaActivities.Clone()
	}

	vctx := &repository.VisitContext{
		ID:                                    area.ID,
		Activities:                            seedActivities,
		SearchPolygon:                         area.Geometry,
		ExcludeObjectsAlreadyInSkiAreaPolygon: false,
		AlreadyVisited:                        domain.NewStringSet(area.Key),
	}

	// Visit narrows the context by the seed's own activities, so an area
	// with none is seeded through a copy carrying the widened set.
	seed := area
	if originallyEmpty {
		seed = area.Clone()
		seed.Activities = seedActivities.Clone()
	}

	visited, err := traversal.Visit(ctx, deps.Store, vctx, seed, deps.PolygonBufferKM)
	if err != nil {
		return false, fmt.Errorf("traverse ski area %s: %w", area.ID, err)
	}

	var members []*domain.MapObject
	for _, o := range visited {
		if o.Key == area.Key || o.IsSkiArea() {
			continue
		}
		members = append(members, o)
	}

	if len(members) == 0 {
		if err := deps.Store.Remove(ctx, area.Key); err != nil {
			return false, fmt.Errorf("remove empty polygon ski area %s: %w", area.ID, err)
		}
		return true, nil
	}

	siteCount := 0
	for _, m := range members {
		if m.IsInSkiAreaSite {
			siteCount++
		}
	}
	ratio := deps.SiteRemovalRatio
	if ratio <= 0 {
		ratio = 0.5
	}
	if float64(siteCount)/float64(len(members)) > ratio {
		if err := deps.Store.Remove(ctx, area.Key); err != nil {
			return false, fmt.Errorf("remove site-dominated ski area %s: %w", area.ID, err)
		}
		return true, nil
	}

	if err := deps.Store.MarkSkiArea(ctx, area.ID, true, members); err != nil {
		return false, fmt.Errorf("mark ski area %s: %w", area.ID, err)
	}

	if originallyEmpty {
		union := area.Activities.Clone()
		for _, m := range members {
			union = union.Union(m.Activities.Intersect(domain.SkiAreaActivities))
		}
		area.Activities = union
		if err := deps.Store.SaveSkiArea(ctx, area); err != nil {
			return false, fmt.Errorf("persist widened activities for %s: %w", area.ID, err)
		}
	}

	return false, nil
}
