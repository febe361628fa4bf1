package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/resilience"
)

const (
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// modelsAPI is the slice of *genai.Models this package calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Options struct {
	APIKey          string
	Model           string
	EmbedModel      string
	EmbedDimensions int
}

// Client is safe for concurrent use; the underlying genai client is.
type Client struct {
	models     modelsAPI
	model      string
	embedModel string
	dimensions int
	executor   *resilience.Executor
}

func New(ctx context.Context, opts Options, executor *resilience.Executor) (*Client, error) {
	if opts.APIKey == "" {
		return nil, domain.WrapError(domain.ErrConfigurationMissing, "gemini client", fmt.Errorf("GOOGLE_API_KEY is empty"))
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newWithModels(client.Models, opts, executor), nil
}

func newWithModels(models modelsAPI, opts Options, executor *resilience.Executor) *Client {
	return &Client{
		models:     models,
		model:      opts.Model,
		embedModel: opts.EmbedModel,
		dimensions: opts.EmbedDimensions,
		executor:   executor,
	}
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := resilience.Do(ctx, g.client.executor, "gemini.generate",
		func(ctx context.Context) (*genai.GenerateContentResponse, error) {
			return g.client.models.GenerateContent(ctx, g.client.model, genai.Text(req.Prompt), config)
		}, classifyError)
	if err != nil {
		return "", resilience.WrapTemporary("gemini.generate", fmt.Errorf("gemini generate: %w", err), classifyError)
	}
	return extractText(resp), nil
}

// extractText prefers the SDK accessor and falls back to walking the first
// candidate's parts.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text
		}
	}
	return ""
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

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	config := &genai.EmbedContentConfig{TaskType: taskRetrievalDocument}
	if mode == domain.EmbeddingModeQuery {
		config.TaskType = taskRetrievalQuery
	}
	if e.client.dimensions > 0 {
		dim := int32(e.client.dimensions)
		config.OutputDimensionality = &dim
	}

	resp, err := resilience.Do(ctx, e.client.executor, "gemini.embed",
		func(ctx context.Context) (*genai.EmbedContentResponse, error) {
			return e.client.models.EmbedContent(ctx, e.client.embedModel, contents, config)
		}, classifyError)
	if err != nil {
		return nil, resilience.WrapTemporary("gemini.embed", fmt.Errorf("gemini embed: %w", err), classifyError)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini embed: expected %d vectors, got %d", len(texts), got)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini embed: vector %d missing", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
