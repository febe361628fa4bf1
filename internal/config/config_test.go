package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("RAG_FINAL_K", "")
	t.Setenv("RAG_NAMESPACE", "")
	t.Setenv("RAG_SNIPPET_SENTENCES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 18 {
		t.Fatalf("expected default top k 18, got %d", cfg.RAGTopK)
	}
	if cfg.RAGFinalK != 6 {
		t.Fatalf("expected default final k 6, got %d", cfg.RAGFinalK)
	}
	if cfg.RAGNamespace != "ppd" {
		t.Fatalf("expected default namespace ppd, got %q", cfg.RAGNamespace)
	}
	if cfg.RAGSnippetSentences != 3 {
		t.Fatalf("expected default snippet sentences 3, got %d", cfg.RAGSnippetSentences)
	}
	if cfg.RetryMaxAttempts != 1 {
		t.Fatalf("expected single attempt by default, got %d", cfg.RetryMaxAttempts)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "24")
	t.Setenv("RAG_FINAL_K", "4")
	t.Setenv("GENERATION_BACKEND", "Ollama")
	t.Setenv("RESILIENCE_BREAKER_FAILURE_RATIO", "0.7")
	t.Setenv("API_REQUEST_VALIDATION", "false")
	t.Setenv("RAG_SNIPPET_SENTENCES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 24 || cfg.RAGFinalK != 4 {
		t.Fatalf("expected top/final k overrides, got %d/%d", cfg.RAGTopK, cfg.RAGFinalK)
	}
	if cfg.GenerationBackend != BackendOllama {
		t.Fatalf("expected lower-cased backend, got %q", cfg.GenerationBackend)
	}
	if cfg.BreakerFailureRatio != 0.7 {
		t.Fatalf("expected failure ratio 0.7, got %v", cfg.BreakerFailureRatio)
	}
	if cfg.APIRequestValidation {
		t.Fatalf("expected request validation disabled")
	}
	if cfg.RAGSnippetSentences != 3 {
		t.Fatalf("expected invalid int to keep default, got %d", cfg.RAGSnippetSentences)
	}
}

func TestLoadFileAppliesYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := "vector_backend: qdrant\nqdrant_collection: kb_v2\nrag_namespace: perinatal\nrag_top_k: 30\n"
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("VECTOR_BACKEND", "")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("RAG_NAMESPACE", "")
	t.Setenv("RAG_TOP_K", "12")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.VectorBackend != BackendQdrant || cfg.QdrantCollection != "kb_v2" || cfg.RAGNamespace != "perinatal" {
		t.Fatalf("expected yaml values, got %+v", cfg)
	}
	if cfg.RAGTopK != 12 {
		t.Fatalf("expected env to override yaml top k, got %d", cfg.RAGTopK)
	}
	if cfg.RAGFinalK != 6 {
		t.Fatalf("expected default final k to survive, got %d", cfg.RAGFinalK)
	}
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("rag_top_k: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateReportsMissingCredentials(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if !errors.Is(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected configuration missing, got %v", err)
	}
	for _, key := range []string{"GOOGLE_API_KEY", "PINECONE_API_KEY", "PINECONE_INDEX_HOST"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in error, got %v", key, err)
		}
	}

	cfg.GoogleAPIKey = "g"
	cfg.PineconeAPIKey = "p"
	cfg.PineconeIndexHost = "https://ppd-v1.svc.pinecone.io"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateLocalStackNeedsNoKeys(t *testing.T) {
	cfg := Defaults()
	cfg.GenerationBackend = BackendOllama
	cfg.EmbeddingBackend = BackendOllama
	cfg.VectorBackend = BackendQdrant
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected local stack to validate, got %v", err)
	}

	cfg.VectorBackend = "milvus"
	if err := cfg.Validate(); !errors.Is(err, domain.ErrConfigurationMissing) {
		t.Fatalf("expected unsupported backend to fail validation, got %v", err)
	}
}
