package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/bootstrap"
	"github.com/skicluster/engine/internal/config"
	"github.com/skicluster/engine/internal/pkg/logger"
	"github.com/skicluster/engine/internal/worker"
	clusterworker "github.com/skicluster/engine/internal/worker/cluster"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Worker.Enabled {
		fmt.Println("worker is disabled in configuration; set WORKER_ENABLED=true to enable")
		os.Exit(0)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting cluster pipeline worker",
		zap.Duration("interval", cfg.Worker.RunInterval),
		zap.Int("max_retries", cfg.Worker.MaxRetries),
	)

	app, err := bootstrap.Build(cfg, log)
	if err != nil {
		log.Fatal("failed to build application", zap.Error(err))
	}
	defer app.Close(log)

	w := clusterworker.New(app.Pipeline, cfg.Worker.RunInterval, cfg.Worker.MaxRetries, log)

	manager := worker.NewWorkerManager(log)
	manager.Register(w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		log.Fatal("failed to start worker manager", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker gracefully")
	cancel()

	if err := manager.Stop(); err != nil {
		log.Error("worker manager shutdown error", zap.Error(err))
	}

	log.Info("worker stopped successfully")
}
