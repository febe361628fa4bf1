package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

const namespace = "matercare"

// AnswerMetrics records routing outcomes for every answered Query. It is
// shared by the HTTP API and the NATS worker.
type AnswerMetrics struct {
	service string

	intentsTotal            *prometheus.CounterVec
	outcomesTotal           *prometheus.CounterVec
	errorsTotal             *prometheus.CounterVec
	retrievedCandidates     *prometheus.HistogramVec
	rerankDegenerateTotal   *prometheus.CounterVec
	generationFallbackTotal *prometheus.CounterVec
	answerDuration          *prometheus.HistogramVec
	breakerTransitionsTotal *prometheus.CounterVec
}

func NewAnswerMetrics(service string, registerer prometheus.Registerer) *AnswerMetrics {
	m := &AnswerMetrics{
		service: service,
		intentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "intents_total",
				Help:      "Classified messages by intent label and classification source.",
			},
			[]string{"service", "intent", "source"},
		),
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "outcomes_total",
				Help:      "Answered messages by terminal outcome.",
			},
			[]string{"service", "endpoint", "outcome"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "errors_total",
				Help:      "Messages that could not be answered, by error kind.",
			},
			[]string{"service", "endpoint", "kind"},
		),
		retrievedCandidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "retrieved_candidates",
				Help:      "Vector candidates returned per retrieval-routed message.",
				Buckets:   []float64{0, 1, 2, 3, 6, 9, 12, 18, 24},
			},
			[]string{"service", "endpoint"},
		),
		rerankDegenerateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "rerank_degenerate_total",
				Help:      "Rerank passes where every candidate text was empty.",
			},
			[]string{"service", "endpoint"},
		),
		generationFallbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "generation_fallback_total",
				Help:      "Replies that used fixed fallback text because generation failed.",
			},
			[]string{"service", "endpoint", "outcome"},
		),
		answerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "answer_duration_seconds",
				Help:      "End-to-end answer duration in seconds by outcome.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "endpoint", "outcome"},
		),
		breakerTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resilience",
				Name:      "breaker_transitions_total",
				Help:      "Circuit breaker state transitions by backend operation.",
			},
			[]string{"service", "operation", "to"},
		),
	}

	registerer.MustRegister(
		m.intentsTotal,
		m.outcomesTotal,
		m.errorsTotal,
		m.retrievedCandidates,
		m.rerankDegenerateTotal,
		m.generationFallbackTotal,
		m.answerDuration,
		m.breakerTransitionsTotal,
	)
	return m
}

func (m *AnswerMetrics) ObserveResponse(endpoint string, resp *domain.Response, duration time.Duration) {
	if resp == nil {
		return
	}
	outcome := string(resp.Outcome)
	m.intentsTotal.WithLabelValues(m.service, resp.Intent.String(), string(resp.IntentSource)).Inc()
	m.outcomesTotal.WithLabelValues(m.service, endpoint, outcome).Inc()
	m.answerDuration.WithLabelValues(m.service, endpoint, outcome).Observe(duration.Seconds())

	if resp.Outcome == domain.OutcomeGrounded || resp.Outcome == domain.OutcomeNoMatches {
		m.retrievedCandidates.WithLabelValues(m.service, endpoint).Observe(float64(resp.RetrievedCount))
	}
	if resp.RerankDegenerate {
		m.rerankDegenerateTotal.WithLabelValues(m.service, endpoint).Inc()
	}
	if resp.GenerationFallback {
		m.generationFallbackTotal.WithLabelValues(m.service, endpoint, outcome).Inc()
	}
}

func (m *AnswerMetrics) ObserveError(endpoint string, err error) {
	if err == nil {
		return
	}
	m.errorsTotal.WithLabelValues(m.service, endpoint, errorKind(err)).Inc()
}

// BreakerStateChange matches resilience.StateObserver.
func (m *AnswerMetrics) BreakerStateChange(operation, _, to string) {
	m.breakerTransitionsTotal.WithLabelValues(m.service, operation, to).Inc()
}

func errorKind(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrBackendUnavailable):
		return "backend_unavailable"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	default:
		return "internal"
	}
}
