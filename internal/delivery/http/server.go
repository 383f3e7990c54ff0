package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/config"
	"github.com/skicluster/engine/internal/delivery/http/handler"
	"github.com/skicluster/engine/internal/delivery/http/middleware"
)

// Server is the HTTP surface over the clustering pipeline, built on Fiber.
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	clusterHandler *handler.ClusterHandler
}

func NewServer(cfg *config.Config, logger *zap.Logger, clusterHandler *handler.ClusterHandler) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Ski Cluster Engine",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		clusterHandler: clusterHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api := s.app.Group("/v1")

	api.Post("/cluster/run", s.clusterHandler.RunPipeline)
	api.Get("/cluster/ski-areas", s.clusterHandler.ListSkiAreas)
	api.Get("/cluster/ski-areas/:id", s.clusterHandler.GetSkiArea)
}

func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("http error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": err.Error(),
			},
		})
	}
}
