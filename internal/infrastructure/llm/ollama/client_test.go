package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/resilience"
)

func TestGeneratorSendsSystemAndTemperature(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  {\"intent\": 1}  "}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed", resilience.NewExecutor(resilience.DefaultConfig())))
	out, err := gen.Generate(context.Background(), ports.GenerationRequest{
		System:      "classify",
		Prompt:      "User message:\nhello",
		Temperature: 0.4,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != `{"intent": 1}` {
		t.Fatalf("expected trimmed response, got %q", out)
	}
	if captured["system"] != "classify" || captured["format"] != "json" || captured["stream"] != false {
		t.Fatalf("unexpected request %v", captured)
	}
	options, _ := captured["options"].(map[string]any)
	if temp, _ := options["temperature"].(float64); temp < 0.39 || temp > 0.41 {
		t.Fatalf("expected temperature 0.4, got %v", options["temperature"])
	}
}

func TestEmbedderPrefixesByMode(t *testing.T) {
	var inputs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		inputs = payload.Input
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", nil))
	vectors, err := embedder.Embed(context.Background(), []string{"what is epds"}, domain.EmbeddingModeQuery)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
	if len(inputs) != 1 || inputs[0] != "search_query: what is epds" {
		t.Fatalf("expected query prefix, got %v", inputs)
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", nil))
	if _, err := embedder.Embed(context.Background(), []string{"a", "b"}, domain.EmbeddingModeDocument); err == nil {
		t.Fatalf("expected count mismatch error")
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", resilience.NewExecutor(resilience.DefaultConfig())))
	_, err := embedder.Embed(context.Background(), []string{"hello"}, domain.EmbeddingModeQuery)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be temporary, got %v", err)
	}
}
