package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/resilience"
)

// nomic-embed-text style task prefixes keep query and document vectors
// asymmetric.
const (
	queryPrefix    = "search_query: "
	documentPrefix = "search_document: "
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string, mode domain.EmbeddingMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prefix := documentPrefix
	if mode == domain.EmbeddingModeQuery {
		prefix = queryPrefix
	}
	input := make([]string, len(texts))
	for i, text := range texts {
		input[i] = prefix + text
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": input,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d vectors, got %d", len(texts), len(response.Embeddings))
	}
	return response.Embeddings, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": req.Prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.System != "" {
		reqBody["system"] = req.System
	}
	if req.JSON {
		reqBody["format"] = "json"
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.call(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

// call runs postJSON behind the executor's breaker for ollama.<operation>.
func (c *Client) call(ctx context.Context, path string, payload any, out any, operation string) error {
	op := "ollama." + operation
	if c.executor == nil {
		return resilience.WrapTemporary(op, c.postJSON(ctx, path, payload, out, operation), resilience.ClassifyHTTPError)
	}
	err := c.executor.Execute(ctx, op, func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}, resilience.ClassifyHTTPError)
	return resilience.WrapTemporary(op, err, resilience.ClassifyHTTPError)
}
