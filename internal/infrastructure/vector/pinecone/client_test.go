package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/resilience"
)

func TestQuerySendsNamespaceAndMapsMatches(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/query" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Api-Key") != "pc-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("X-Pinecone-API-Version") != "2025-01" {
			t.Errorf("unexpected api version %q", r.Header.Get("X-Pinecone-API-Version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"namespace":"ppd","matches":[
			{"id":"a","score":0.91,"metadata":{"text":"EPDS has ten items.","source":"NHS","url":"https://x","start_char":5,"topic":"screening"}},
			{"id":"b","score":0.80,"metadata":{"text":"Sleep matters."}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "pc-key", "2025-01", resilience.NewExecutor(resilience.DefaultConfig()))
	got, err := client.Query(context.Background(), []float32{0.1, 0.2}, 18, "ppd")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if captured["namespace"] != "ppd" || captured["includeMetadata"] != true {
		t.Fatalf("unexpected request %v", captured)
	}
	if topK, _ := captured["topK"].(float64); topK != 18 {
		t.Fatalf("expected topK 18, got %v", captured["topK"])
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected candidates %+v", got)
	}
	first := got[0].Metadata
	if first.Text != "EPDS has ten items." || first.Source != "NHS" || first.StartChar == nil || *first.StartChar != 5 {
		t.Fatalf("unexpected metadata %+v", first)
	}
	if first.Extra["topic"] != "screening" {
		t.Fatalf("expected topic in extra, got %v", first.Extra)
	}
}

func TestQueryEmptyMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	defer server.Close()

	got, err := New(server.URL, "k", "", nil).Query(context.Background(), []float32{1}, 18, "ppd")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestQueryServerErrorIsTemporaryAndCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index warming up", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL, "k", "", resilience.NewExecutor(resilience.DefaultConfig())).
		Query(context.Background(), []float32{1}, 18, "ppd")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if !strings.Contains(err.Error(), "index warming up") {
		t.Fatalf("expected body in error, got %v", err)
	}
}

func TestNewAddsSchemeToBareHost(t *testing.T) {
	c := New("perinatal-abc.svc.pinecone.io/", "k", "", nil)
	if c.host != "https://perinatal-abc.svc.pinecone.io" {
		t.Fatalf("unexpected host %q", c.host)
	}
}
