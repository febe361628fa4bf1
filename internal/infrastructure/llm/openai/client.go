package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/resilience"
)

type Options struct {
	APIKey          string
	BaseURL         string
	Model           string
	EmbedModel      string
	EmbedDimensions int
}

// Client talks to the OpenAI API or any server that speaks its chat and
// embeddings endpoints.
type Client struct {
	api        *goopenai.Client
	model      string
	embedModel string
	dimensions int
	executor   *resilience.Executor
}

func New(opts Options, executor *resilience.Executor) (*Client, error) {
	if opts.APIKey == "" && opts.BaseURL == "" {
		return nil, domain.WrapError(domain.ErrConfigurationMissing, "openai client", fmt.Errorf("OPENAI_API_KEY is empty"))
	}
	config := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	return &Client{
		api:        goopenai.NewClientWithConfig(config),
		model:      opts.Model,
		embedModel: opts.EmbedModel,
		dimensions: opts.EmbedDimensions,
		executor:   executor,
	}, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       g.client.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	// go-openai drops a zero temperature; the API then defaults to 1.
	if chatReq.Temperature == 0 {
		chatReq.Temperature = math.SmallestNonzeroFloat32
	}
	if req.JSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := resilience.Do(ctx, g.client.executor, "openai.generate",
		func(ctx context.Context) (goopenai.ChatCompletionResponse, error) {
			return g.client.api.CreateChatCompletion(ctx, chatReq)
		}, classifyError)
	if err != nil {
		return "", resilience.WrapTemporary("openai.generate", fmt.Errorf("openai generate: %w", err), classifyError)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Embed ignores mode; OpenAI embeddings are symmetric.
func (e *Embedder) Embed(ctx context.Context, texts []string, _ domain.EmbeddingMode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embedReq := goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(e.client.embedModel),
	}
	if e.client.dimensions > 0 {
		embedReq.Dimensions = e.client.dimensions
	}

	resp, err := resilience.Do(ctx, e.client.executor, "openai.embed",
		func(ctx context.Context) (goopenai.EmbeddingResponse, error) {
			return e.client.api.CreateEmbeddings(ctx, embedReq)
		}, classifyError)
	if err != nil {
		return nil, resilience.WrapTemporary("openai.embed", fmt.Errorf("openai embed: %w", err), classifyError)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: expected %d vectors, got %d", len(texts), len(resp.Data))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, item := range data {
		out[i] = item.Embedding
	}
	return out, nil
}

func classifyError(err error) resilience.ErrorClassification {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPError(&resilience.HTTPStatusError{
			Backend:    "openai",
			StatusCode: apiErr.HTTPStatusCode,
			Status:     http.StatusText(apiErr.HTTPStatusCode),
			Body:       apiErr.Message,
		})
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return resilience.ClassifyHTTPError(&resilience.HTTPStatusError{
			Backend:    "openai",
			StatusCode: reqErr.HTTPStatusCode,
			Status:     http.StatusText(reqErr.HTTPStatusCode),
		})
	}
	return resilience.ClassifyHTTPError(err)
}
