package ports

import (
	"context"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

// Embedder builds vectors for query or document text. The result is
// one-to-one and order-preserving with texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error)
}

// VectorIndex performs similarity search inside one namespace.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, namespace string) ([]domain.Candidate, error)
}

type GenerationRequest struct {
	System      string
	Prompt      string
	Temperature float32
	// JSON asks the backend for a JSON-only response where it supports it.
	JSON bool
}

// TextGenerator performs one completion against a generation backend.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
