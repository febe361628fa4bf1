package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/matercare-assistant/internal/core/ports"
)

// GenerationClient wraps a TextGenerator so that callers never see an
// error: any failure is logged and reported as an empty string.
type GenerationClient struct {
	backend ports.TextGenerator
}

func NewGenerationClient(backend ports.TextGenerator) *GenerationClient {
	return &GenerationClient{backend: backend}
}

func (c *GenerationClient) Generate(ctx context.Context, req ports.GenerationRequest) string {
	if c == nil || c.backend == nil {
		return ""
	}
	text, err := c.backend.Generate(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "generation_failed", "error", err, "temperature", req.Temperature)
		return ""
	}
	return strings.TrimSpace(text)
}
