package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

const (
	DefaultTopK   = 18
	DefaultFinalK = 6
)

type OrchestratorOptions struct {
	TopK             int
	FinalK           int
	SnippetSentences int
}

func (o OrchestratorOptions) normalize() OrchestratorOptions {
	out := o
	if out.TopK <= 0 {
		out.TopK = DefaultTopK
	}
	if out.FinalK <= 0 {
		out.FinalK = DefaultFinalK
	}
	if out.SnippetSentences <= 0 {
		out.SnippetSentences = defaultSnippetSentences
	}
	return out
}

// Orchestrator routes one Query through classify, then exactly one of the
// chitchat, retrieval or crisis branches.
type Orchestrator struct {
	classifier *IntentClassifier
	search     *VectorSearch
	responders *Responders
	opts       OrchestratorOptions
}

func NewOrchestrator(
	classifier *IntentClassifier,
	search *VectorSearch,
	responders *Responders,
	opts OrchestratorOptions,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		search:     search,
		responders: responders,
		opts:       opts.normalize(),
	}
}

func (o *Orchestrator) Answer(ctx context.Context, query domain.Query) (*domain.Response, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("text is required"))
	}

	start := time.Now()
	cls := o.classifier.Classify(ctx, text)
	slog.InfoContext(ctx, "intent_classified",
		"caller_id", query.CallerID,
		"intent", cls.Label.String(),
		"intent_source", string(cls.Source),
		"text_len", len(text),
	)

	resp := &domain.Response{
		Intent:       cls.Label,
		IntentSource: cls.Source,
		Sources:      []domain.ContextItem{},
	}

	switch cls.Label {
	case domain.IntentCrisis:
		resp.Text = o.responders.Crisis()
		resp.Outcome = domain.OutcomeCrisis
		resp.Resources = domain.CrisisResources()
	case domain.IntentRetrieve:
		if err := o.answerGrounded(ctx, text, resp); err != nil {
			slog.ErrorContext(ctx, "retrieval_failed", "caller_id", query.CallerID, "error", err)
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "answer", err)
		}
	default:
		resp.Text, resp.GenerationFallback = o.responders.Chitchat(ctx, text)
		resp.Outcome = domain.OutcomeChitchat
	}

	if resp.GenerationFallback {
		slog.WarnContext(ctx, "generation_fallback", "caller_id", query.CallerID, "outcome", string(resp.Outcome))
	}
	slog.InfoContext(ctx, "answer_completed",
		"caller_id", query.CallerID,
		"outcome", string(resp.Outcome),
		"retrieved_count", resp.RetrievedCount,
		"sources", len(resp.Sources),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return resp, nil
}

func (o *Orchestrator) answerGrounded(ctx context.Context, text string, resp *domain.Response) error {
	candidates, err := o.search.Search(ctx, text, o.opts.TopK)
	if err != nil {
		return err
	}
	resp.RetrievedCount = len(candidates)
	if len(candidates) == 0 {
		slog.InfoContext(ctx, "retrieval_no_matches", "top_k", o.opts.TopK)
		resp.Text = NoMatchesMessage
		resp.Outcome = domain.OutcomeNoMatches
		return nil
	}

	ranked, degenerate := RerankBM25(text, candidates, o.opts.FinalK)
	resp.RerankDegenerate = degenerate
	if degenerate {
		slog.WarnContext(ctx, "rerank_degenerate", "candidates", len(candidates))
	}

	items := AssembleContext(text, ranked, o.opts.SnippetSentences)
	resp.Sources = items
	resp.Text, resp.GenerationFallback = o.responders.Grounded(ctx, text, items)
	resp.Outcome = domain.OutcomeGrounded
	return nil
}
