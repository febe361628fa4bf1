package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/matercare-assistant/internal/config"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
	"github.com/kirillkom/matercare-assistant/internal/core/usecase"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/vector/pinecone"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config   config.Config
	Answerer ports.Answerer
	Executor *resilience.Executor
}

// New validates cfg and assembles the answer pipeline. observer may be nil.
func New(ctx context.Context, cfg config.Config, observer resilience.StateObserver) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))
	if observer != nil {
		executor.WithStateObserver(observer)
	}

	b := &backends{cfg: cfg, executor: executor}
	generator, err := b.generator(ctx)
	if err != nil {
		return nil, err
	}
	embedder, err := b.embedder(ctx)
	if err != nil {
		return nil, err
	}
	index, err := b.vectorIndex()
	if err != nil {
		return nil, err
	}

	genClient := usecase.NewGenerationClient(generator)
	orchestrator := usecase.NewOrchestrator(
		usecase.NewIntentClassifier(genClient),
		usecase.NewVectorSearch(embedder, index, cfg.RAGNamespace),
		usecase.NewResponders(genClient),
		usecase.OrchestratorOptions{
			TopK:             cfg.RAGTopK,
			FinalK:           cfg.RAGFinalK,
			SnippetSentences: cfg.RAGSnippetSentences,
		},
	)

	slog.Info("pipeline_ready",
		"generation_backend", cfg.GenerationBackend,
		"embedding_backend", cfg.EmbeddingBackend,
		"vector_backend", cfg.VectorBackend,
		"namespace", cfg.RAGNamespace,
		"top_k", cfg.RAGTopK,
	)

	return &App{
		Config:   cfg,
		Answerer: orchestrator,
		Executor: executor,
	}, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.RetryMaxAttempts
	rc.BreakerEnabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		rc.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	rc.BreakerFailureRatio = cfg.BreakerFailureRatio
	rc.BreakerOpenTimeout = time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second
	rc.CallTimeout = time.Duration(cfg.BackendCallTimeoutSeconds) * time.Second
	return rc
}

// backends builds each provider client at most once.
type backends struct {
	cfg      config.Config
	executor *resilience.Executor

	geminiClient *gemini.Client
	ollamaClient *ollama.Client
	openaiClient *openai.Client
}

func (b *backends) generator(ctx context.Context) (ports.TextGenerator, error) {
	switch b.cfg.GenerationBackend {
	case config.BackendGemini:
		client, err := b.gemini(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewGenerator(client), nil
	case config.BackendOllama:
		return ollama.NewGenerator(b.ollama()), nil
	case config.BackendOpenAI:
		client, err := b.openai()
		if err != nil {
			return nil, err
		}
		return openai.NewGenerator(client), nil
	default:
		return nil, fmt.Errorf("unsupported generation backend %q", b.cfg.GenerationBackend)
	}
}

func (b *backends) embedder(ctx context.Context) (ports.Embedder, error) {
	switch b.cfg.EmbeddingBackend {
	case config.BackendGemini:
		client, err := b.gemini(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewEmbedder(client), nil
	case config.BackendOllama:
		return ollama.NewEmbedder(b.ollama()), nil
	case config.BackendOpenAI:
		client, err := b.openai()
		if err != nil {
			return nil, err
		}
		return openai.NewEmbedder(client), nil
	default:
		return nil, fmt.Errorf("unsupported embedding backend %q", b.cfg.EmbeddingBackend)
	}
}

func (b *backends) vectorIndex() (ports.VectorIndex, error) {
	switch b.cfg.VectorBackend {
	case config.BackendPinecone:
		return pinecone.New(b.cfg.PineconeIndexHost, b.cfg.PineconeAPIKey, b.cfg.PineconeAPIVersion, b.executor), nil
	case config.BackendQdrant:
		return qdrant.New(b.cfg.QdrantURL, b.cfg.QdrantCollection, b.executor), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", b.cfg.VectorBackend)
	}
}

func (b *backends) gemini(ctx context.Context) (*gemini.Client, error) {
	if b.geminiClient != nil {
		return b.geminiClient, nil
	}
	client, err := gemini.New(ctx, gemini.Options{
		APIKey:          b.cfg.GoogleAPIKey,
		Model:           b.cfg.GeminiModel,
		EmbedModel:      b.cfg.GeminiEmbedModel,
		EmbedDimensions: b.cfg.EmbedDimensions,
	}, b.executor)
	if err != nil {
		return nil, fmt.Errorf("init gemini: %w", err)
	}
	b.geminiClient = client
	return client, nil
}

func (b *backends) ollama() *ollama.Client {
	if b.ollamaClient == nil {
		b.ollamaClient = ollama.New(b.cfg.OllamaURL, b.cfg.OllamaGenModel, b.cfg.OllamaEmbedModel, b.executor)
	}
	return b.ollamaClient
}

func (b *backends) openai() (*openai.Client, error) {
	if b.openaiClient != nil {
		return b.openaiClient, nil
	}
	client, err := openai.New(openai.Options{
		APIKey:          b.cfg.OpenAIAPIKey,
		BaseURL:         b.cfg.OpenAIBaseURL,
		Model:           b.cfg.OpenAIModel,
		EmbedModel:      b.cfg.OpenAIEmbedModel,
		EmbedDimensions: b.cfg.EmbedDimensions,
	}, b.executor)
	if err != nil {
		return nil, fmt.Errorf("init openai: %w", err)
	}
	b.openaiClient = client
	return client, nil
}
