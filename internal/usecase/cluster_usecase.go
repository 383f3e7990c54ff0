package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	"github.com/skicluster/engine/internal/pipeline"
)

// ClusterUseCase exposes the clustering pipeline and its resulting ski
// areas to delivery-layer handlers.
type ClusterUseCase struct {
	pipeline *pipeline.Pipeline
	store    repository.ClusterStore
	logger   *zap.Logger
}

func NewClusterUseCase(p *pipeline.Pipeline, store repository.ClusterStore, logger *zap.Logger) *ClusterUseCase {
	return &ClusterUseCase{pipeline: p, store: store, logger: logger}
}

// RunPipeline executes one full pass of the clustering pipeline.
func (uc *ClusterUseCase) RunPipeline(ctx context.Context) (pipeline.Report, error) {
	uc.logger.Info("cluster pipeline run requested via API")
	report, err := uc.pipeline.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("run pipeline: %w", err)
	}
	return report, nil
}

// ListSkiAreas pages over ski areas matching filter, draining the cursor
// into a slice capped at limit (0 means unlimited).
func (uc *ClusterUseCase) ListSkiAreas(ctx context.Context, filter repository.SkiAreaFilter, limit int) ([]*domain.MapObject, error) {
	cursor, err := uc.store.SkiAreas(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list ski areas: %w", err)
	}
	defer cursor.Close()

	var out []*domain.MapObject
	for {
		obj, ok, err := cursor.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("list ski areas: %w", err)
		}
		if !ok {
			break
		}
		out = append(out, obj)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetSkiArea resolves a single ski area by id.
func (uc *ClusterUseCase) GetSkiArea(ctx context.Context, id string) (*domain.MapObject, error) {
	cursor, err := uc.store.SkiAreasByID(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("get ski area: %w", err)
	}
	defer cursor.Close()

	obj, ok, err := cursor.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("get ski area: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return obj, nil
}
