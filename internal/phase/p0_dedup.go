package phase

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/geo"
)

// RunP0 removes crowdsourced ski-area polygons that enclose more than one
// registry ski area's centroid. Such a polygon is a shared-ticketing
// super-relation rather than a single ski area.
func RunP0(ctx context.Context, deps Deps) (PhaseReport, error) {
	var report PhaseReport

	crowdsourced := domain.SourceCrowdsourced
	candidates, err := drainSkiAreas(ctx, deps.Store, repository.SkiAreaFilter{
		Source:       &crowdsourced,
		OnlyPolygons: true,
	})
	if err != nil {
		return report, fmt.Errorf("phase p0: list crowdsourced polygons: %w", err)
	}

	registry := domain.SourceRegistry
	registryAreas, err := drainSkiAreas(ctx, deps.Store, repository.SkiAreaFilter{Source: &registry})
	if err != nil {
		return report, fmt.Errorf("phase p0: list registry ski areas: %w", err)
	}

	var registryCentroids []orb.Point
	for _, ra := range registryAreas {
		if c, ok := geo.Centroid([]orb.Geometry{ra.Geometry}); ok {
			registryCentroids = append(registryCentroids, c)
		}
	}

	var toRemove []string
	for _, a := range candidates {
		report.Processed++

		poly, ok := a.Geometry.(orb.Polygon)
		if !ok {
			// OnlyPolygons should guarantee this, but degraded input (a
			// crowdsourced "polygon" ski area with bad geometry) is
			// tolerated rather than treated as fatal here.
			continue
		}

		count := 0
		for _, c := range registryCentroids {
			if planar.PolygonContains(poly, c) {
				count++
			}
		}
		if count > 1 {
			toRemove = append(toRemove, a.Key)
			deps.Logger.Warn("p0: removing ambiguous super-relation polygon",
				zap.String("ski_area_id", a.ID), zap.Int("contained_registry_count", count))
		}
	}

	if len(toRemove) > 0 {
		if err := deps.Store.RemoveBatch(ctx, toRemove); err != nil {
			return report, fmt.Errorf("phase p0: remove ambiguous polygons: %w", err)
		}
		report.Removed = len(toRemove)
	}

	return report, nil
}

// drainSkiAreas exhausts a cursor into a slice; every phase driver pages
// the same way since batches never need to outlive one phase pass.
func drainSkiAreas(ctx context.Context, store repository.ClusterStore, filter repository.SkiAreaFilter) ([]*domain.MapObject, error) {
	cursor, err := store.SkiAreas(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var out []*domain.MapObject
	for {
		obj, ok, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, obj)
	}
}
