package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/matercare-assistant/internal/bootstrap"
	"github.com/kirillkom/matercare-assistant/internal/config"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/matercare-assistant/internal/observability/logging"
	"github.com/kirillkom/matercare-assistant/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, workerMetrics.BreakerStateChange)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSAnswerSubject, nats.Options{
		QueueGroup:         cfg.NATSQueueGroup,
		ResilienceExecutor: app.Executor,
	})
	if err != nil {
		slog.Error("nats_connect_failed", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	worker := nats.NewWorker(app.Answerer, workerMetrics, time.Duration(cfg.WorkerTimeoutSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.Serve(gctx, worker)
	})
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("worker_error", "error", err)
		os.Exit(1)
	}
	slog.Info("worker_stopped")
}
