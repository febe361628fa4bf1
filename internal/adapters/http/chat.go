package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

const (
	userIDHeader     = "X-User-Id"
	chatEndpoint     = "chat_send"
	maxChatBodyBytes = 64 << 10
)

type chatRequest struct {
	Text   *string `json:"text"`
	UserID string  `json:"user_id"`
}

type contextCard struct {
	URL     string `json:"url"`
	Source  string `json:"source"`
	Section string `json:"section"`
	DocID   string `json:"doc_id"`
	Snippet string `json:"snippet"`
}

type chatAudit struct {
	UsedGuardrail      bool   `json:"used_guardrail"`
	RetrievedK         int    `json:"retrieved_k"`
	IntentSource       string `json:"intent_source"`
	GenerationFallback bool   `json:"generation_fallback"`
}

type chatResponse struct {
	MessageID       string                  `json:"message_id"`
	RiskLevel       string                  `json:"risk_level"`
	NextAction      string                  `json:"next_action"`
	ReplyText       string                  `json:"reply_text"`
	Intent          string                  `json:"intent"`
	Outcome         string                  `json:"outcome"`
	ContextCards    []contextCard           `json:"context_cards"`
	CrisisResources []domain.CrisisResource `json:"crisis_resources"`
	Audit           chatAudit               `json:"audit"`
}

func (rt *Router) chatSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if rt.chatAPIKey != "" && !isAuthorizedBearerHeader(r.Header.Get("Authorization"), rt.chatAPIKey) {
		rt.observeError(domain.WrapError(domain.ErrUnauthorized, "chat send", errors.New("missing or invalid bearer token")))
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Text == nil || strings.TrimSpace(*req.Text) == "" {
		rt.observeError(domain.WrapError(domain.ErrInvalidInput, "chat send", errors.New("text is empty")))
		writeError(w, http.StatusBadRequest, "Field 'text' is required")
		return
	}

	callerID := strings.TrimSpace(req.UserID)
	if callerID == "" {
		callerID = strings.TrimSpace(r.Header.Get(userIDHeader))
	}

	ctx := r.Context()
	if rt.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := rt.answerer.Answer(ctx, domain.Query{Text: *req.Text, CallerID: callerID})
	if err != nil {
		rt.observeError(err)
		status := mapErrorToHTTPStatus(err)
		slog.Error("chat_send_failed",
			"request_id", requestIDFromContext(r.Context()),
			"status", status,
			"error", err,
		)
		writeError(w, status, errorMessageForStatus(status))
		return
	}
	if rt.metrics != nil {
		rt.metrics.ObserveResponse(chatEndpoint, resp, time.Since(start))
	}

	writeJSON(w, http.StatusOK, newChatResponse(resp))
}

func (rt *Router) observeError(err error) {
	if rt.metrics != nil {
		rt.metrics.ObserveError(chatEndpoint, err)
	}
}

func newChatResponse(resp *domain.Response) chatResponse {
	out := chatResponse{
		MessageID:       uuid.NewString(),
		RiskLevel:       "low",
		NextAction:      "reply",
		ReplyText:       resp.Text,
		Intent:          resp.Intent.String(),
		Outcome:         string(resp.Outcome),
		ContextCards:    make([]contextCard, 0, len(resp.Sources)),
		CrisisResources: resp.Resources,
		Audit: chatAudit{
			UsedGuardrail:      resp.Outcome == domain.OutcomeCrisis,
			RetrievedK:         resp.RetrievedCount,
			IntentSource:       string(resp.IntentSource),
			GenerationFallback: resp.GenerationFallback,
		},
	}
	if resp.Outcome == domain.OutcomeCrisis {
		out.RiskLevel = "high"
		out.NextAction = "escalate"
	}
	if out.CrisisResources == nil {
		out.CrisisResources = []domain.CrisisResource{}
	}
	for _, src := range resp.Sources {
		out.ContextCards = append(out.ContextCards, contextCard(src))
	}
	return out
}
