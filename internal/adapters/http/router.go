package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/matercare-assistant/internal/config"
	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
)

const serviceName = "api"

// Metrics is what the router records. *metrics.HTTPServerMetrics satisfies it.
type Metrics interface {
	Handler() http.Handler
	Middleware(service string, next http.Handler) http.Handler
	RecordRejected(service, reason string)
	ObserveResponse(endpoint string, resp *domain.Response, duration time.Duration)
	ObserveError(endpoint string, err error)
}

type Router struct {
	answerer ports.Answerer
	metrics  Metrics

	chatAPIKey        string
	rateLimitRPS      float64
	rateLimitBurst    int
	maxInFlight       int
	backpressureWait  time.Duration
	requestTimeout    time.Duration
	requestValidation bool
}

func NewRouter(cfg config.Config, answerer ports.Answerer, metrics Metrics) *Router {
	return &Router{
		answerer:          answerer,
		metrics:           metrics,
		chatAPIKey:        cfg.ChatAPIKey,
		rateLimitRPS:      cfg.APIRateLimitRPS,
		rateLimitBurst:    cfg.APIRateLimitBurst,
		maxInFlight:       cfg.APIBackpressureMaxInFlight,
		backpressureWait:  time.Duration(cfg.APIBackpressureWaitMS) * time.Millisecond,
		requestTimeout:    time.Duration(cfg.APIRequestTimeoutSeconds) * time.Second,
		requestValidation: cfg.APIRequestValidation,
	}
}

// Handler wires the routes behind, outermost first: request id, access log,
// metrics, rate limit, backpressure, OpenAPI validation.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat/send", rt.chatSend)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.requestValidation {
		handler = openAPIValidationMiddleware(handler)
	}
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait, rt.onReject)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.onReject)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) onReject(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
