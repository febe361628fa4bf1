package usecase

import (
	"context"
	"errors"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
)

// VectorSearch embeds the query text in query mode and runs one similarity
// query against the configured namespace.
type VectorSearch struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	namespace string
}

func NewVectorSearch(embedder ports.Embedder, index ports.VectorIndex, namespace string) *VectorSearch {
	return &VectorSearch{
		embedder:  embedder,
		index:     index,
		namespace: namespace,
	}
}

// Search returns at most k candidates. Zero matches is a normal empty
// result; embedding or index failures are *domain.RetrievalError.
func (s *VectorSearch) Search(ctx context.Context, queryText string, k int) ([]domain.Candidate, error) {
	vectors, err := s.embedder.Embed(ctx, []string{queryText}, domain.EmbeddingModeQuery)
	if err != nil {
		return nil, domain.NewRetrievalError("embed", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, domain.NewRetrievalError("embed", errors.New("empty query vector"))
	}

	candidates, err := s.index.Query(ctx, vectors[0], k, s.namespace)
	if err != nil {
		return nil, domain.NewRetrievalError("query", err)
	}
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}
