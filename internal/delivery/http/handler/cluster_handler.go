package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/domain"
	"github.com/skicluster/engine/internal/domain/repository"
	domainErrors "github.com/skicluster/engine/internal/pkg/errors"
	"github.com/skicluster/engine/internal/pkg/utils"
	"github.com/skicluster/engine/internal/pkg/validator"
	"github.com/skicluster/engine/internal/usecase"
)

// ClusterHandler exposes the clustering pipeline over HTTP.
type ClusterHandler struct {
	clusterUC *usecase.ClusterUseCase
	logger    *zap.Logger
}

// listSkiAreasRequest validates the ListSkiAreas query params.
type listSkiAreasRequest struct {
	Source       string `validate:"omitempty,oneof=crowdsourced registry generated"`
	OnlyPolygons bool
	Limit        int `validate:"min=0,max=1000"`
}

func NewClusterHandler(clusterUC *usecase.ClusterUseCase, logger *zap.Logger) *ClusterHandler {
	return &ClusterHandler{clusterUC: clusterUC, logger: logger}
}

// RunPipeline triggers a synchronous end-to-end clustering run.
func (h *ClusterHandler) RunPipeline(c *fiber.Ctx) error {
	ctx := c.Context()

	report, err := h.clusterUC.RunPipeline(ctx)
	if err != nil {
		h.logger.Error("pipeline run failed", zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, report, nil)
}

// ListSkiAreas returns the ski areas known to the clustering store,
// optionally filtered by source and restricted to polygon geometries.
func (h *ClusterHandler) ListSkiAreas(c *fiber.Ctx) error {
	ctx := c.Context()

	req := listSkiAreasRequest{
		Source:       c.Query("source"),
		OnlyPolygons: c.QueryBool("only_polygons", false),
		Limit:        c.QueryInt("limit", 100),
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	filter := repository.SkiAreaFilter{}
	if req.Source != "" {
		s := domain.Source(req.Source)
		filter.Source = &s
	}
	if req.OnlyPolygons {
		filter.OnlyPolygons = true
	}

	areas, err := h.clusterUC.ListSkiAreas(ctx, filter, req.Limit)
	if err != nil {
		h.logger.Error("list ski areas failed", zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, areas, &utils.Meta{Total: len(areas)})
}

// GetSkiArea resolves a single ski area by id.
func (h *ClusterHandler) GetSkiArea(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	area, err := h.clusterUC.GetSkiArea(ctx, id)
	if err != nil {
		h.logger.Error("get ski area failed", zap.Error(err))
		return utils.SendError(c, err)
	}
	if area == nil {
		return utils.SendError(c, domainErrors.ErrSkiAreaNotFound)
	}

	return utils.SendSuccess(c, area, nil)
}
