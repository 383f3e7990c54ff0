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

// RunP2 grows each crowdsourced ski area's membership outward from its
// polygon by half-kilometre buffered hops, skipping anything already
// claimed by a polygon pass. Unlike P1 there are no removal rules and
// activities are never widened.
func RunP2(ctx context.Context, deps Deps) (PhaseReport, error) {
	var report PhaseReport

	crowdsourced := domain.SourceCrowdsourced
	areas, err := drainSkiAreas(ctx, deps.Store, repository.SkiAreaFilter{
		Source:       &crowdsourced,
		OnlyPolygons: true,
	})
	if err != nil {
		return report, fmt.Errorf("phase p2: list polygons: %w", err)
	}

	var processed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency(deps))

	for _, area := range areas {
		area := area
		g.Go(func() error {
			atomic.AddInt64(&processed, 1)
			return runP2One(gctx, deps, area)
		})
	}

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("phase p2: %w", err)
	}

	report.Processed = int(processed)
	return report, nil
}

func runP2One(ctx context.Context, deps Deps, area *domain.MapObject) error {
	if area.ID == "" {
		panic("phase p2: ski area has empty id")
	}

	vctx := &repository.VisitContext{
		ID:                                    area.ID,
		Activities:                            area.Activities.Clone(),
		SearchPolygon:                         nil,
		ExcludeObjectsAlreadyInSkiAreaPolygon: true,
		AlreadyVisited:                        domain.NewStringSet(area.Key),
	}

	visited, err := traversal.Visit(ctx, deps.Store, vctx, area, deps.PolygonBufferKM)
	if err != nil {
		return fmt.Errorf("traverse ski area %s: %w", area.ID, err)
	}

	var members []*domain.MapObject
	for _, o := range visited {
		if o.Key == area.Key || o.IsSkiArea() {
			continue
		}
		members = append(members, o)
	}

	if len(members) == 0 {
		return nil
	}

	if err := deps.Store.MarkSkiArea(ctx, area.ID, false, members); err != nil {
		return fmt.Errorf("mark ski area %s: %w", area.ID, err)
	}
	return nil
}
