// Package main is the entry point for the shopstock background worker.
// It relays outbox events and cleans up idempotency keys.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"shopstock/internal/app"
	"shopstock/internal/infrastructure/storage/postgres"
	"shopstock/pkg/logger"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.UsesPostgres() {
		fmt.Fprintln(os.Stderr, "worker requires STORE_BACKEND=postgres")
		os.Exit(1)
	}

	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting shopstock worker")

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to assemble application", "error", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warnw("close application", "error", err)
		}
	}()

	w := &Worker{
		relay:       postgres.NewOutboxRelay(application.TxManager, cfg.OutboxBatchSize, app.EventRelayHandler(application.Metrics)),
		idempotency: application.Idempotency,
		interval:    cfg.OutboxInterval,
		retention:   cfg.OutboxRetention,
		log:         log.WithComponent("worker"),
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerAddr,
		Handler:           application.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Infow("worker metrics listening", "addr", cfg.WorkerAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppShutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Errorw("worker stopped with error", "error", err)
		return
	}
	log.Info("worker stopped")
}

// Worker polls the outbox and runs periodic cleanup.
type Worker struct {
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	interval    time.Duration
	retention   time.Duration
	log         *logger.Logger
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	// Drain while full batches keep coming.
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Errorw("outbox batch failed", "error", err)
			}
			return
		}
		if n == 0 {
			return
		}
		w.log.Debugw("processed outbox batch", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("move failed events to dlq", "error", err)
	} else if moved > 0 {
		w.log.Warnw("moved failed events to dlq", "count", moved)
	}

	if purged, err := w.relay.PurgePublished(ctx, w.retention); err != nil {
		w.log.Errorw("purge published events", "error", err)
	} else if purged > 0 {
		w.log.Infow("purged published events", "count", purged)
	}

	if w.idempotency == nil {
		return
	}
	if removed, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("cleanup idempotency keys", "error", err)
	} else if removed > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", removed)
	}
}
