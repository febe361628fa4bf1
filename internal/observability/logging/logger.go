package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger logs JSON lines to stdout.
func NewJSONLogger(service, level string) *slog.Logger {
	return New(os.Stdout, service, level)
}

// New logs JSON lines to w. Stdio transports (the MCP server) pass
// os.Stderr since stdout carries protocol frames.
func New(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
