package phase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/geo"
	"github.com/skicluster/engine/internal/traversal"
)

// RunP4 drains nextUnassignedRun one run at a time — this phase is
// inherently sequential, since consuming a run changes what the store
// hands back next — synthesizing a generated ski area from each
// reachable cluster of lifts/runs.
func RunP4(ctx context.Context, deps Deps) (PhaseReport, error) {
	var report PhaseReport

	for {
		r, ok, err := deps.Store.NextUnassignedRun(ctx)
		if err != nil {
			return report, fmt.Errorf("phase p4: next unassigned run: %w", err)
		}
		if !ok {
			break
		}
		report.Processed++

		created, err := synthesizeOne(ctx, deps, r)
		if err != nil {
			deps.Logger.Error("p4: synthesis failed, run left orphan",
				zap.String("run_key", r.Key), zap.Error(err))
			if clearErr := deps.Store.ClearBasisForNewSkiArea(ctx, r.Key); clearErr != nil {
				return report, fmt.Errorf("phase p4: clear failed-synthesis run %s: %w", r.Key, clearErr)
			}
			continue
		}
		if created {
			report.Created++
		}
	}

	return report, nil
}

func synthesizeOne(ctx context.Context, deps Deps, r *domain.MapObject) (created bool, err error) {
	activities := r.Activities.Intersect(domain.SkiAreaActivities)

	vctx := &repository.VisitContext{
		ID:             uuid.NewString(), // no ski area exists yet to exclude by id
		Activities:     activities.Clone(),
		AlreadyVisited: domain.NewStringSet(r.Key),
	}

	visited, err := traversal.Visit(ctx, deps.Store, vctx, r, deps.PolygonBufferKM)
	if err != nil {
		return false, fmt.Errorf("traverse run %s: %w", r.Key, err)
	}

	var members []*domain.MapObject
	for _, o := range visited {
		if !o.IsSkiArea() {
			members = append(members, o)
		}
	}

	if activities.Has(domain.ActivityDownhill) {
		hasLift := false
		for _, m := range members {
			if m.IsLift() {
				hasLift = true
				break
			}
		}
		if !hasLift {
			activities.Remove(domain.ActivityDownhill)
			var kept []*domain.MapObject
			for _, m := range members {
				if m.Activities.IntersectsAny(activities) {
					kept = append(kept, m)
				}
			}
			members = kept
		}
	}

	if activities.Empty() || len(members) == 0 {
		if err := deps.Store.ClearBasisForNewSkiArea(ctx, r.Key); err != nil {
			return false, fmt.Errorf("orphan run %s: %w", r.Key, err)
		}
		return false, nil
	}

	geoms := make([]orb.Geometry, 0, len(members))
	for _, m := range members {
		geoms = append(geoms, m.Geometry)
	}
	centroid, ok := geo.Centroid(geoms)
	if !ok {
		return false, fmt.Errorf("centroid of run %s's members: no usable geometry", r.Key)
	}

	newID := uuid.NewString()
	generated := &domain.MapObject{
		ID:         newID,
		Type:       domain.ObjectTypeSkiArea,
		Geometry:   centroid,
		Activities: activities,
		Source:     domain.SourceCrowdsourced,
		SkiAreas:   domain.NewStringSet(),
		IsPolygon:  true,
		Properties: &domain.SkiAreaProperties{
			Sources:   []domain.Source{domain.SourceCrowdsourced},
			Status:    domain.SkiAreaStatusProposed,
			Generated: true,
		},
	}

	if err := deps.Store.PersistGeneratedSkiArea(ctx, generated); err != nil {
		return false, fmt.Errorf("persist generated ski area for run %s: %w", r.Key, err)
	}

	if err := deps.Store.MarkSkiArea(ctx, newID, false, members); err != nil {
		return false, fmt.Errorf("mark members of generated ski area %s: %w", newID, err)
	}

	return true, nil
}
