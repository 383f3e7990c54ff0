// Package cluster runs the clustering pipeline on a schedule as a
// background Worker.
package cluster

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skicluster/engine/internal/pipeline"
	"github.com/skicluster/engine/internal/worker"
)

// Worker periodically runs the clustering pipeline and also accepts
// on-demand triggers (e.g. from the HTTP API) via Trigger.
type Worker struct {
	*worker.BaseWorker

	pipeline *pipeline.Pipeline
	interval time.Duration
	maxRetries int

	mu      sync.Mutex
	running bool

	trigger chan struct{}
}

func New(p *pipeline.Pipeline, interval time.Duration, maxRetries int, logger *zap.Logger) *Worker {
	return &Worker{
		BaseWorker: worker.NewBaseWorker("cluster-pipeline", "", logger),
		pipeline:   p,
		interval:   interval,
		maxRetries: maxRetries,
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger requests an out-of-band pipeline run. It never blocks: if a
// run is already queued the request is dropped; a request made while a
// run is in progress is queued and runs after it.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.StopChan():
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.trigger:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.Logger().Warn("cluster pipeline run requested while one is already in progress")
		return
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			w.Logger().Warn("retrying cluster pipeline run",
				zap.Int("attempt", attempt), zap.Error(lastErr))
		}

		report, err := w.pipeline.Run(ctx)
		if err == nil {
			w.Logger().Info("cluster pipeline run complete",
				zap.Int("p0_processed", report.P0.Processed),
				zap.Int("p5_processed", report.P5.Processed),
			)
			return
		}
		lastErr = err
	}

	w.Logger().Error("cluster pipeline run failed after retries",
		zap.Int("retries", w.maxRetries), zap.Error(lastErr))
}

// IsRunning reports whether a pipeline run is currently in flight.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
