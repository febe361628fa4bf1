package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	mcpadapter "github.com/kirillkom/matercare-assistant/internal/adapters/mcp"
	"github.com/kirillkom/matercare-assistant/internal/bootstrap"
	"github.com/kirillkom/matercare-assistant/internal/config"
	"github.com/kirillkom/matercare-assistant/internal/observability/logging"
	"github.com/kirillkom/matercare-assistant/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	// stdout carries MCP frames.
	slog.SetDefault(logging.New(os.Stderr, "mcp", cfg.LogLevel))
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	answerMetrics := metrics.NewAnswerMetrics("mcp", prometheus.NewRegistry())
	app, err := bootstrap.New(context.Background(), cfg, answerMetrics.BreakerStateChange)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	if err := server.ServeStdio(mcpadapter.NewServer(app.Answerer, answerMetrics)); err != nil {
		slog.Error("mcp_server_error", "error", err)
		os.Exit(1)
	}
}
