package phase

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/geo"
	"github.com/skicluster/engine/internal/merge"
	"github.com/skicluster/engine/internal/traversal"
)

// RunP3 processes each registry ski area: if a nearby crowdsourced-or-other
// source ski area is found within the merge buffer, the two are merged
// and B's own traversal is skipped entirely. A merged ski area does not
// absorb further unassigned objects in a follow-up pass within the same run.
// Otherwise B is traversed with buffered semantics exactly like P2.
func RunP3(ctx context.Context, deps Deps) (PhaseReport, error) {
	var report PhaseReport

	registry := domain.SourceRegistry
	areas, err := drainSkiAreas(ctx, deps.Store, repository.SkiAreaFilter{Source: &registry})
	if err != nil {
		return report, fmt.Errorf("phase p3: list registry ski areas: %w", err)
	}

	var processed, merged int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency(deps))

	for _, area := range areas {
		area := area
		g.Go(func() error {
			atomic.AddInt64(&processed, 1)
			didMerge, err := runP3One(gctx, deps, area)
			if err != nil {
				return err
			}
			if didMerge {
				atomic.AddInt64(&merged, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("phase p3: %w", err)
	}

	report.Processed = int(processed)
	report.Merged = int(merged)
	return report, nil
}

func runP3One(ctx context.Context, deps Deps, b *domain.MapObject) (merged bool, err error) {
	if b.ID == "" {
		panic("phase p3: ski area has empty id")
	}

	candidates, err := mergeCandidates(ctx, deps, b)
	if err != nil {
		return false, err
	}

	if len(candidates) > 0 {
		composer := deps.Composer
		if composer == nil {
			composer = merge.DefaultComposer
		}
		_, ok, err := merge.Merge(ctx, deps.Store, composer, b, candidates)
		if err != nil {
			return false, fmt.Errorf("merge ski area %s: %w", b.ID, err)
		}
		return ok, nil
	}

	vctx := &repository.VisitContext{
		ID:                                    b.ID,
		Activities:                            b.Activities.Clone(),
		SearchPolygon:                         nil,
		ExcludeObjectsAlreadyInSkiAreaPolygon: true,
		AlreadyVisited:                        domain.NewStringSet(b.Key),
	}

	visited, err := traversal.Visit(ctx, deps.Store, vctx, b, deps.PolygonBufferKM)
	if err != nil {
		return false, fmt.Errorf("traverse registry ski area %s: %w", b.ID, err)
	}

	var members []*domain.MapObject
	for _, o := range visited {
		if o.Key == b.Key || o.IsSkiArea() {
			continue
		}
		members = append(members, o)
	}
	if len(members) == 0 {
		return false, nil
	}

	if err := deps.Store.MarkSkiArea(ctx, b.ID, false, members); err != nil {
		return false, fmt.Errorf("mark registry ski area %s: %w", b.ID, err)
	}
	return false, nil
}

// mergeCandidates buffers B by the merge distance, queries everything it
// intersects, collects the union of ski-area ids those objects already
// reference, and keeps only the ones sourced differently than B.
func mergeCandidates(ctx context.Context, deps Deps, b *domain.MapObject) ([]*domain.MapObject, error) {
	buffered, ok := geo.Buffer(b.Geometry, deps.MergeBufferKM)
	if !ok {
		return nil, nil
	}

	vctx := &repository.VisitContext{
		ID:             b.ID,
		Activities:     b.Activities.Clone(),
		AlreadyVisited: domain.NewStringSet(),
	}

	found, err := deps.Store.Nearby(ctx, buffered, repository.PredicateIntersects, vctx)
	if err != nil {
		return nil, fmt.Errorf("merge candidates for %s: %w", b.ID, err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	referenced := domain.NewStringSet()
	for _, f := range found {
		for _, id := range f.SkiAreas.Slice() {
			referenced.Add(id)
		}
	}
	if len(referenced) == 0 {
		return nil, nil
	}

	cursor, err := deps.Store.SkiAreasByID(ctx, referenced.Slice())
	if err != nil {
		return nil, fmt.Errorf("resolve merge candidates for %s: %w", b.ID, err)
	}
	defer cursor.Close()

	var candidates []*domain.MapObject
	for {
		obj, ok, err := cursor.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("merge candidates cursor for %s: %w", b.ID, err)
		}
		if !ok {
			break
		}
		if obj.Source != b.Source {
			candidates = append(candidates, obj)
		}
	}

	return candidates, nil
}
