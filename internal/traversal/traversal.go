// Package traversal implements the pipeline's breadth-first flood fill
// over a per-ski-area VisitContext, rewritten as an explicit work queue
// so a dense resort cluster cannot exhaust the call stack.
package traversal

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/geo"
)

// DefaultBufferKM is the half-kilometre hop each seed is buffered by
// when no fixed search polygon is set.
const DefaultBufferKM = 0.5

// Visit runs the flood fill from seed under vctx, returning every object
// reached (including seed). vctx.AlreadyVisited must already contain
// seed.Key before calling Visit.
func Visit(ctx context.Context, store repository.ClusterStore, vctx *repository.VisitContext, seed *domain.MapObject, bufferKM float64) ([]*domain.MapObject, error) {
	queue := []*domain.MapObject{seed}
	var result []*domain.MapObject

	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]
		result = append(result, obj)

		var searchArea orb.Geometry
		if vctx.SearchPolygon != nil {
			searchArea = vctx.SearchPolygon
		} else {
			buffered, ok := geo.Buffer(obj.Geometry, bufferKM)
			if !ok {
				continue
			}
			searchArea = buffered
		}

		// Activity intersection narrows only: the traversal never
		// broadens the seed's activity filter as it moves outward.
		vctx.Activities = vctx.Activities.Intersect(obj.Activities)

		found, err := visitSearchArea(ctx, store, vctx, searchArea)
		if err != nil {
			return nil, err
		}

		if vctx.SearchPolygon != nil {
			// Polygon phase: one containment query suffices, no recursion.
			result = append(result, found...)
		} else {
			queue = append(queue, found...)
		}
	}

	return result, nil
}

func visitSearchArea(ctx context.Context, store repository.ClusterStore, vctx *repository.VisitContext, area orb.Geometry) ([]*domain.MapObject, error) {
	switch g := area.(type) {
	case orb.Polygon:
		return visitPolygon(ctx, store, vctx, g)
	case orb.MultiPolygon:
		var all []*domain.MapObject
		for _, poly := range g {
			found, err := visitPolygon(ctx, store, vctx, poly)
			if err != nil {
				return nil, err
			}
			all = append(all, found...)
		}
		return all, nil
	default:
		panic(fmt.Sprintf("traversal: unexpected search-area geometry type %T", area))
	}
}

func visitPolygon(ctx context.Context, store repository.ClusterStore, vctx *repository.VisitContext, poly orb.Polygon) ([]*domain.MapObject, error) {
	predicate := repository.PredicateIntersects
	if vctx.SearchPolygon != nil {
		predicate = repository.PredicateContains
	}

	found, err := store.Nearby(ctx, poly, predicate, vctx)
	if err != nil {
		return nil, err
	}

	for _, f := range found {
		vctx.AlreadyVisited.Add(f.Key)
	}

	return found, nil
}
