package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/bootstrap"
	"github.com/skicluster/engine/internal/config"
	httpDelivery "github.com/skicluster/engine/internal/delivery/http"
	"github.com/skicluster/engine/internal/delivery/http/handler"
	"github.com/skicluster/engine/internal/pkg/logger"
	"github.com/skicluster/engine/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting ski cluster engine API",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.GetServerAddr()),
	)

	app, err := bootstrap.Build(cfg, log)
	if err != nil {
		log.Fatal("failed to build application", zap.Error(err))
	}
	defer app.Close(log)

	clusterUC := usecase.NewClusterUseCase(app.Pipeline, app.Pipeline.Deps.Store, log)
	clusterHandler := handler.NewClusterHandler(clusterUC, log)

	server := httpDelivery.NewServer(cfg, log, clusterHandler)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	log.Info("server started successfully", zap.String("address", cfg.GetServerAddr()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped successfully")
}
