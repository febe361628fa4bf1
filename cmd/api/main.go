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

	httpadapter "github.com/kirillkom/matercare-assistant/internal/adapters/http"
	"github.com/kirillkom/matercare-assistant/internal/bootstrap"
	"github.com/kirillkom/matercare-assistant/internal/config"
	"github.com/kirillkom/matercare-assistant/internal/observability/logging"
	"github.com/kirillkom/matercare-assistant/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, httpMetrics.BreakerStateChange)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	router := httpadapter.NewRouter(cfg, app.Answerer, httpMetrics).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.APIRequestTimeoutSeconds+10) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("api_server_error", "error", err)
		os.Exit(1)
	}
	slog.Info("api_stopped")
}
