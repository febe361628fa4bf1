package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

const (
	BackendGemini   = "gemini"
	BackendOllama   = "ollama"
	BackendOpenAI   = "openai"
	BackendPinecone = "pinecone"
	BackendQdrant   = "qdrant"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	GenerationBackend string `yaml:"generation_backend"`
	EmbeddingBackend  string `yaml:"embedding_backend"`
	VectorBackend     string `yaml:"vector_backend"`

	GoogleAPIKey     string `yaml:"google_api_key"`
	GeminiModel      string `yaml:"gemini_model"`
	GeminiEmbedModel string `yaml:"gemini_embed_model"`
	EmbedDimensions  int    `yaml:"embed_dimensions"`

	OllamaURL        string `yaml:"ollama_url"`
	OllamaGenModel   string `yaml:"ollama_gen_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`

	OpenAIAPIKey     string `yaml:"openai_api_key"`
	OpenAIBaseURL    string `yaml:"openai_base_url"`
	OpenAIModel      string `yaml:"openai_model"`
	OpenAIEmbedModel string `yaml:"openai_embed_model"`

	PineconeAPIKey     string `yaml:"pinecone_api_key"`
	PineconeIndexHost  string `yaml:"pinecone_index_host"`
	PineconeAPIVersion string `yaml:"pinecone_api_version"`

	QdrantURL        string `yaml:"qdrant_url"`
	QdrantCollection string `yaml:"qdrant_collection"`

	RAGNamespace        string `yaml:"rag_namespace"`
	RAGTopK             int    `yaml:"rag_top_k"`
	RAGFinalK           int    `yaml:"rag_final_k"`
	RAGSnippetSentences int    `yaml:"rag_snippet_sentences"`

	RetryMaxAttempts          int     `yaml:"retry_max_attempts"`
	BreakerEnabled            bool    `yaml:"breaker_enabled"`
	BreakerMinRequests        int     `yaml:"breaker_min_requests"`
	BreakerFailureRatio       float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeoutSeconds int     `yaml:"breaker_open_timeout_seconds"`
	BackendCallTimeoutSeconds int     `yaml:"backend_call_timeout_seconds"`

	ChatAPIKey                 string  `yaml:"chat_api_key"`
	APIRateLimitRPS            float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst          int     `yaml:"api_rate_limit_burst"`
	APIBackpressureMaxInFlight int     `yaml:"api_backpressure_max_in_flight"`
	APIBackpressureWaitMS      int     `yaml:"api_backpressure_wait_ms"`
	APIRequestTimeoutSeconds   int     `yaml:"api_request_timeout_seconds"`
	APIRequestValidation       bool    `yaml:"api_request_validation"`

	NATSURL              string `yaml:"nats_url"`
	NATSAnswerSubject    string `yaml:"nats_answer_subject"`
	NATSQueueGroup       string `yaml:"nats_queue_group"`
	WorkerMetricsPort    string `yaml:"worker_metrics_port"`
	WorkerTimeoutSeconds int    `yaml:"worker_timeout_seconds"`
}

func Defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		GenerationBackend: BackendGemini,
		EmbeddingBackend:  BackendGemini,
		VectorBackend:     BackendPinecone,

		GeminiModel:      "gemini-2.0-flash",
		GeminiEmbedModel: "text-embedding-004",
		EmbedDimensions:  768,

		OllamaURL:        "http://localhost:11434",
		OllamaGenModel:   "llama3.1:8b",
		OllamaEmbedModel: "nomic-embed-text",

		OpenAIModel:      "gpt-4o-mini",
		OpenAIEmbedModel: "text-embedding-3-small",

		PineconeAPIVersion: "2025-01",

		QdrantURL:        "http://localhost:6333",
		QdrantCollection: "perinatal_kb",

		RAGNamespace:        "ppd",
		RAGTopK:             18,
		RAGFinalK:           6,
		RAGSnippetSentences: 3,

		RetryMaxAttempts:          1,
		BreakerEnabled:            true,
		BreakerMinRequests:        10,
		BreakerFailureRatio:       0.5,
		BreakerOpenTimeoutSeconds: 30,
		BackendCallTimeoutSeconds: 30,

		APIRateLimitRPS:            0,
		APIRateLimitBurst:          0,
		APIBackpressureMaxInFlight: 64,
		APIBackpressureWaitMS:      250,
		APIRequestTimeoutSeconds:   60,
		APIRequestValidation:       true,

		NATSURL:              "nats://localhost:4222",
		NATSAnswerSubject:    "assistant.answer",
		NATSQueueGroup:       "workers",
		WorkerMetricsPort:    "9090",
		WorkerTimeoutSeconds: 60,
	}
}

// Load starts from Defaults, applies the YAML file named by CONFIG_FILE if
// set, then applies environment variables.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.APIPort = mustEnv("API_PORT", c.APIPort)
	c.LogLevel = mustEnv("LOG_LEVEL", c.LogLevel)

	c.GenerationBackend = strings.ToLower(mustEnv("GENERATION_BACKEND", c.GenerationBackend))
	c.EmbeddingBackend = strings.ToLower(mustEnv("EMBEDDING_BACKEND", c.EmbeddingBackend))
	c.VectorBackend = strings.ToLower(mustEnv("VECTOR_BACKEND", c.VectorBackend))

	c.GoogleAPIKey = mustEnv("GOOGLE_API_KEY", c.GoogleAPIKey)
	c.GeminiModel = mustEnv("GEMINI_MODEL", c.GeminiModel)
	c.GeminiEmbedModel = mustEnv("GEMINI_EMBED_MODEL", c.GeminiEmbedModel)
	c.EmbedDimensions = mustEnvInt("EMBED_DIMENSIONS", c.EmbedDimensions)

	c.OllamaURL = mustEnv("OLLAMA_URL", c.OllamaURL)
	c.OllamaGenModel = mustEnv("OLLAMA_GEN_MODEL", c.OllamaGenModel)
	c.OllamaEmbedModel = mustEnv("OLLAMA_EMBED_MODEL", c.OllamaEmbedModel)

	c.OpenAIAPIKey = mustEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = mustEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIModel = mustEnv("OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIEmbedModel = mustEnv("OPENAI_EMBED_MODEL", c.OpenAIEmbedModel)

	c.PineconeAPIKey = mustEnv("PINECONE_API_KEY", c.PineconeAPIKey)
	c.PineconeIndexHost = mustEnv("PINECONE_INDEX_HOST", c.PineconeIndexHost)
	c.PineconeAPIVersion = mustEnv("PINECONE_API_VERSION", c.PineconeAPIVersion)

	c.QdrantURL = mustEnv("QDRANT_URL", c.QdrantURL)
	c.QdrantCollection = mustEnv("QDRANT_COLLECTION", c.QdrantCollection)

	c.RAGNamespace = mustEnv("RAG_NAMESPACE", c.RAGNamespace)
	c.RAGTopK = mustEnvInt("RAG_TOP_K", c.RAGTopK)
	c.RAGFinalK = mustEnvInt("RAG_FINAL_K", c.RAGFinalK)
	c.RAGSnippetSentences = mustEnvInt("RAG_SNIPPET_SENTENCES", c.RAGSnippetSentences)

	c.RetryMaxAttempts = mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", c.RetryMaxAttempts)
	c.BreakerEnabled = mustEnvBool("RESILIENCE_BREAKER_ENABLED", c.BreakerEnabled)
	c.BreakerMinRequests = mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", c.BreakerMinRequests)
	c.BreakerFailureRatio = mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", c.BreakerFailureRatio)
	c.BreakerOpenTimeoutSeconds = mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_SECONDS", c.BreakerOpenTimeoutSeconds)
	c.BackendCallTimeoutSeconds = mustEnvInt("BACKEND_CALL_TIMEOUT_SECONDS", c.BackendCallTimeoutSeconds)

	c.ChatAPIKey = mustEnv("CHAT_API_KEY", c.ChatAPIKey)
	c.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", c.APIRateLimitRPS)
	c.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", c.APIRateLimitBurst)
	c.APIBackpressureMaxInFlight = mustEnvInt("API_BACKPRESSURE_MAX_IN_FLIGHT", c.APIBackpressureMaxInFlight)
	c.APIBackpressureWaitMS = mustEnvInt("API_BACKPRESSURE_WAIT_MS", c.APIBackpressureWaitMS)
	c.APIRequestTimeoutSeconds = mustEnvInt("API_REQUEST_TIMEOUT_SECONDS", c.APIRequestTimeoutSeconds)
	c.APIRequestValidation = mustEnvBool("API_REQUEST_VALIDATION", c.APIRequestValidation)

	c.NATSURL = mustEnv("NATS_URL", c.NATSURL)
	c.NATSAnswerSubject = mustEnv("NATS_ANSWER_SUBJECT", c.NATSAnswerSubject)
	c.NATSQueueGroup = mustEnv("NATS_QUEUE_GROUP", c.NATSQueueGroup)
	c.WorkerMetricsPort = mustEnv("WORKER_METRICS_PORT", c.WorkerMetricsPort)
	c.WorkerTimeoutSeconds = mustEnvInt("WORKER_TIMEOUT_SECONDS", c.WorkerTimeoutSeconds)
}

// Validate reports every credential the selected backends need but do not
// have. The returned error wraps domain.ErrConfigurationMissing.
func (c Config) Validate() error {
	var missing []string
	var problems []error

	usesGemini := c.GenerationBackend == BackendGemini || c.EmbeddingBackend == BackendGemini
	usesOpenAI := c.GenerationBackend == BackendOpenAI || c.EmbeddingBackend == BackendOpenAI
	if usesGemini && c.GoogleAPIKey == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if usesOpenAI && c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	switch c.VectorBackend {
	case BackendPinecone:
		if c.PineconeAPIKey == "" {
			missing = append(missing, "PINECONE_API_KEY")
		}
		if c.PineconeIndexHost == "" {
			missing = append(missing, "PINECONE_INDEX_HOST")
		}
	case BackendQdrant:
		if c.QdrantCollection == "" {
			missing = append(missing, "QDRANT_COLLECTION")
		}
	default:
		problems = append(problems, fmt.Errorf("unsupported VECTOR_BACKEND %q", c.VectorBackend))
	}

	for _, sel := range []struct{ key, backend string }{
		{"GENERATION_BACKEND", c.GenerationBackend},
		{"EMBEDDING_BACKEND", c.EmbeddingBackend},
	} {
		switch sel.backend {
		case BackendGemini, BackendOllama, BackendOpenAI:
		default:
			problems = append(problems, fmt.Errorf("unsupported %s %q", sel.key, sel.backend))
		}
	}
	if c.RAGNamespace == "" {
		missing = append(missing, "RAG_NAMESPACE")
	}

	if len(missing) > 0 {
		problems = append(problems, fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}
	if len(problems) == 0 {
		return nil
	}
	return domain.WrapError(domain.ErrConfigurationMissing, "validate config", errors.Join(problems...))
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
