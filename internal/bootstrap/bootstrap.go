// Package bootstrap wires together the concrete adapters (PostGIS store,
// Redis cache, Mapbox geocoder) that back the clustering pipeline, shared
// by every cmd/ entrypoint.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/config"
	"github.com/skicluster/engine/internal/infrastructure/mapbox"
	"github.com/skicluster/engine/internal/merge"
	"github.com/skicluster/engine/internal/phase"
	"github.com/skicluster/engine/internal/pipeline"
	"github.com/skicluster/engine/internal/repository/cache"
	"github.com/skicluster/engine/internal/repository/postgis"
	"github.com/skicluster/engine/internal/stats"
)

// App bundles the live connections so main() can close them on shutdown.
type App struct {
	DB       *postgis.DB
	Redis    *cache.Redis
	Pipeline *pipeline.Pipeline
}

func Build(cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := postgis.NewDB(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgis: %w", err)
	}

	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap: connect redis: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Health(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: postgis health check: %w", err)
	}
	if err := redisClient.Health(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: redis health check: %w", err)
	}

	store := postgis.NewStore(db, cfg.Cluster.BatchSize).WithTTLs(cfg.Cluster.TraversalTTL, cfg.Cluster.EnumerationTTL)
	cacheRepo := cache.NewCacheRepository(redisClient)

	var geocoder = mapbox.NewMapboxGeocoder(&cfg.Mapbox, cacheRepo, log)
	if !cfg.Cluster.GeocoderEnabled {
		geocoder = mapbox.NopGeocoder{}
	}

	deps := phase.Deps{
		Store:            store,
		Geocoder:         geocoder,
		StatsComputer:    stats.BasicStatsComputer{},
		Logger:           log,
		Composer:         merge.DefaultComposer,
		PolygonBufferKM:  cfg.Cluster.PolygonBufferKM,
		MergeBufferKM:    cfg.Cluster.MergeBufferKM,
		SiteRemovalRatio: cfg.Cluster.SiteRemovalRatio,
		BatchSize:        cfg.Cluster.BatchSize,
	}

	return &App{
		DB:       db,
		Redis:    redisClient,
		Pipeline: pipeline.New(deps),
	}, nil
}

func (a *App) Close(log *zap.Logger) {
	if err := a.DB.Close(); err != nil {
		log.Error("failed to close postgis connection", zap.Error(err))
	}
	if err := a.Redis.Close(); err != nil {
		log.Error("failed to close redis connection", zap.Error(err))
	}
}
