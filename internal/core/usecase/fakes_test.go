package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
)

var errBackendDown = errors.New("backend down")

// generatorFake answers by system prompt so one fake serves every branch.
type generatorFake struct {
	mu sync.Mutex

	classify string
	chitchat string
	grounded string
	err      error

	calls []ports.GenerationRequest
}

func (f *generatorFake) Generate(_ context.Context, req ports.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	switch req.System {
	case classifierSystemPrompt:
		return f.classify, nil
	case chitchatSystemPrompt:
		return f.chitchat, nil
	case groundedSystemPrompt:
		return f.grounded, nil
	default:
		return "", nil
	}
}

func (f *generatorFake) callsFor(system string) []ports.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.GenerationRequest, 0)
	for _, c := range f.calls {
		if c.System == system {
			out = append(out, c)
		}
	}
	return out
}

type embedderFake struct {
	vector []float32
	err    error

	texts []string
	mode  domain.EmbeddingMode
}

func (f *embedderFake) Embed(_ context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error) {
	f.texts = append(f.texts, texts...)
	f.mode = mode
	if f.err != nil {
		return nil, f.err
	}
	if f.vector == nil {
		return [][]float32{{}}, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

type indexFake struct {
	candidates []domain.Candidate
	err        error

	calls     int
	topK      int
	namespace string
}

func (f *indexFake) Query(_ context.Context, _ []float32, topK int, namespace string) ([]domain.Candidate, error) {
	f.calls++
	f.topK = topK
	f.namespace = namespace
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func candidate(id, text string) domain.Candidate {
	return domain.Candidate{
		ID:    id,
		Score: 0.5,
		Metadata: domain.CandidateMetadata{
			URL:    "https://example.org/" + id,
			Source: "source-" + id,
			DocID:  id,
			Text:   text,
		},
	}
}
