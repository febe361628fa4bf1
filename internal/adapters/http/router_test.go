package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/matercare-assistant/internal/config"
	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/observability/metrics"
)

type answererFake struct {
	resp  *domain.Response
	err   error
	calls int
	last  domain.Query
}

func (f *answererFake) Answer(_ context.Context, q domain.Query) (*domain.Response, error) {
	f.calls++
	f.last = q
	return f.resp, f.err
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.APIBackpressureMaxInFlight = 0
	return cfg
}

func newTestHandler(cfg config.Config, answerer *answererFake) http.Handler {
	return NewRouter(cfg, answerer, nil).Handler()
}

func postChat(t *testing.T, handler http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(bytes.NewReader(res.Body.Bytes())).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestChatSendReturnsGroundedReply(t *testing.T) {
	answerer := &answererFake{resp: &domain.Response{
		Text:           "The EPDS is a ten item questionnaire.",
		Intent:         domain.IntentRetrieve,
		IntentSource:   domain.IntentSourceModel,
		Outcome:        domain.OutcomeGrounded,
		RetrievedCount: 18,
		Sources: []domain.ContextItem{
			{URL: "https://example.org/epds", Source: "NHS", Section: "Screening", DocID: "d1", Snippet: "The EPDS has ten items."},
		},
	}}
	res := postChat(t, newTestHandler(testConfig(), answerer), `{"text":"what is epds","user_id":"u-9"}`, nil)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if answerer.last.Text != "what is epds" || answerer.last.CallerID != "u-9" {
		t.Fatalf("unexpected query %+v", answerer.last)
	}

	body := decodeBody(t, res)
	if body["message_id"] == "" || body["risk_level"] != "low" || body["next_action"] != "reply" {
		t.Fatalf("unexpected envelope %v", body)
	}
	if body["intent"] != "retrieve" || body["outcome"] != "grounded" {
		t.Fatalf("unexpected routing fields %v", body)
	}
	cards, _ := body["context_cards"].([]any)
	if len(cards) != 1 {
		t.Fatalf("expected one context card, got %v", body["context_cards"])
	}
	card, _ := cards[0].(map[string]any)
	if card["source"] != "NHS" || card["snippet"] != "The EPDS has ten items." {
		t.Fatalf("unexpected card %v", card)
	}
	audit, _ := body["audit"].(map[string]any)
	if audit["used_guardrail"] != false || audit["retrieved_k"] != float64(18) || audit["intent_source"] != "model" {
		t.Fatalf("unexpected audit %v", audit)
	}
}

func TestChatSendCrisisEscalates(t *testing.T) {
	answerer := &answererFake{resp: &domain.Response{
		Text:         "You are not alone.",
		Intent:       domain.IntentCrisis,
		IntentSource: domain.IntentSourceSafetyKeyword,
		Outcome:      domain.OutcomeCrisis,
		Sources:      []domain.ContextItem{},
		Resources:    domain.CrisisResources(),
	}}
	res := postChat(t, newTestHandler(testConfig(), answerer), `{"text":"I want to end my life"}`, nil)

	body := decodeBody(t, res)
	if body["risk_level"] != "high" || body["next_action"] != "escalate" {
		t.Fatalf("expected escalation, got %v", body)
	}
	resources, _ := body["crisis_resources"].([]any)
	if len(resources) != 3 {
		t.Fatalf("expected three crisis resources, got %v", body["crisis_resources"])
	}
	audit, _ := body["audit"].(map[string]any)
	if audit["used_guardrail"] != true {
		t.Fatalf("expected guardrail flag, got %v", audit)
	}
}

func TestChatSendFallsBackToUserIDHeader(t *testing.T) {
	answerer := &answererFake{resp: &domain.Response{Outcome: domain.OutcomeChitchat}}
	postChat(t, newTestHandler(testConfig(), answerer), `{"text":"hello"}`, map[string]string{"X-User-Id": "hdr-1"})
	if answerer.last.CallerID != "hdr-1" {
		t.Fatalf("expected caller from header, got %q", answerer.last.CallerID)
	}
}

func TestChatSendRequiresText(t *testing.T) {
	for name, body := range map[string]string{
		"missing": `{}`,
		"blank":   `{"text":"   "}`,
		"empty":   ``,
	} {
		t.Run(name, func(t *testing.T) {
			answerer := &answererFake{}
			res := postChat(t, newTestHandler(testConfig(), answerer), body, nil)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.Code)
			}
			if got := decodeBody(t, res)["error"]; got != "Field 'text' is required" {
				t.Fatalf("unexpected error message %v", got)
			}
			if answerer.calls != 0 {
				t.Fatalf("answerer should not be called")
			}
		})
	}
}

func TestChatSendMapsBackendUnavailableTo502(t *testing.T) {
	answerer := &answererFake{err: domain.WrapError(domain.ErrBackendUnavailable, "answer",
		domain.NewRetrievalError("query", errors.New("pinecone down")))}
	res := postChat(t, newTestHandler(testConfig(), answerer), `{"text":"what is epds"}`, nil)

	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
	if got := decodeBody(t, res)["error"]; got != "LLM call failed" {
		t.Fatalf("unexpected error message %v", got)
	}
}

func TestChatSendMapsUnknownErrorTo500(t *testing.T) {
	answerer := &answererFake{err: errors.New("boom")}
	res := postChat(t, newTestHandler(testConfig(), answerer), `{"text":"hi"}`, nil)
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}

func TestChatSendRequiresBearerWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.ChatAPIKey = "secret"
	answerer := &answererFake{resp: &domain.Response{Outcome: domain.OutcomeChitchat}}
	handler := newTestHandler(cfg, answerer)

	if res := postChat(t, handler, `{"text":"hi"}`, nil); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}
	if res := postChat(t, handler, `{"text":"hi"}`, map[string]string{"Authorization": "Bearer wrong"}); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", res.Code)
	}
	if res := postChat(t, handler, `{"text":"hi"}`, map[string]string{"Authorization": "Bearer secret"}); res.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", res.Code)
	}
}

func TestChatSendRejectsGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/chat/send", nil)
	res := httptest.NewRecorder()
	newTestHandler(testConfig(), &answererFake{}).ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestMetricsScrapePassesValidation(t *testing.T) {
	cfg := testConfig()
	cfg.APIRequestValidation = true
	handler := NewRouter(cfg, &answererFake{}, metrics.NewHTTPServerMetrics("api")).Handler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), "matercare_http_") {
		t.Fatalf("expected http metrics in scrape, got %q", res.Body.String())
	}
}

func TestUnknownPathReachesMux(t *testing.T) {
	cfg := testConfig()
	cfg.APIRequestValidation = true
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	res := httptest.NewRecorder()
	newTestHandler(cfg, &answererFake{}).ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestHealthzAndRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	newTestHandler(testConfig(), &answererFake{}).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("expected request id echoed, got %q", res.Header().Get(requestIDHeader))
	}
}

func TestOpenAPIValidationRejectsWrongType(t *testing.T) {
	answerer := &answererFake{}
	res := postChat(t, newTestHandler(testConfig(), answerer), `{"text": 42}`, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if answerer.calls != 0 {
		t.Fatalf("answerer should not be called")
	}
	if msg, _ := decodeBody(t, res)["error"].(string); !strings.HasPrefix(msg, "invalid request") {
		t.Fatalf("expected validation message, got %q", msg)
	}
}

func TestOpenAPIValidationCanBeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.APIRequestValidation = false
	res := postChat(t, newTestHandler(cfg, &answererFake{}), `{"text": 42}`, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected handler-level 400, got %d", res.Code)
	}
	if got := decodeBody(t, res)["error"]; got != "invalid json" {
		t.Fatalf("expected decoder error, got %v", got)
	}
}

func TestIsAuthorizedBearerHeader(t *testing.T) {
	if !isAuthorizedBearerHeader("Bearer  k1 ", "k1") {
		t.Fatalf("expected match with surrounding spaces")
	}
	if isAuthorizedBearerHeader("Basic k1", "k1") || isAuthorizedBearerHeader("Bearer k1", "") {
		t.Fatalf("unexpected match")
	}
}
