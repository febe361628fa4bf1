package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/resilience"
)

// AnswerRequest is the JSON body published on the answer subject.
type AnswerRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

// AnswerReply is either a reply or an error, never both.
type AnswerReply struct {
	MessageID string `json:"message_id,omitempty"`
	ReplyText string `json:"reply_text,omitempty"`
	Intent    string `json:"intent,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Observer receives per-message timings. *metrics.WorkerMetrics satisfies it.
type Observer interface {
	StartRequest()
	FinishRequest(service string, duration time.Duration, err error)
	ObserveResponse(endpoint string, resp *domain.Response, duration time.Duration)
	ObserveError(endpoint string, err error)
}

type Queue struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	executor   *resilience.Executor
}

type Options struct {
	QueueGroup           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	queueGroup := options.QueueGroup
	if queueGroup == "" {
		queueGroup = "workers"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("matercare-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:       conn,
		subject:    subject,
		queueGroup: queueGroup,
		executor:   options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Ask publishes one request and waits for the worker's reply.
func (q *Queue) Ask(ctx context.Context, req AnswerRequest) (AnswerReply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return AnswerReply{}, fmt.Errorf("marshal answer request: %w", err)
	}

	msg, err := resilience.Do(ctx, q.executor, "nats.request", func(ctx context.Context) (*nats.Msg, error) {
		msg, err := q.conn.RequestWithContext(ctx, q.subject, payload)
		if err != nil {
			return nil, fmt.Errorf("nats request: %w", err)
		}
		return msg, nil
	}, classifyNATSError)
	if err != nil {
		return AnswerReply{}, wrapTemporaryIfNeeded(err)
	}

	var reply AnswerReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return AnswerReply{}, fmt.Errorf("decode answer reply: %w", err)
	}
	return reply, nil
}

// Serve answers requests on the subject until ctx is done, then drains.
func (q *Queue) Serve(ctx context.Context, worker *Worker) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.queueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		reply := worker.Handle(ctx, msg.Data)
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(reply); err != nil {
			slog.Error("nats_respond_failed", "subject", q.subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("worker_subscribed", "subject", q.subject, "queue_group", q.queueGroup)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// Worker turns request payloads into reply payloads. It has no NATS
// dependency so it can be driven directly.
type Worker struct {
	answerer ports.Answerer
	observer Observer
	timeout  time.Duration
	service  string
}

func NewWorker(answerer ports.Answerer, observer Observer, timeout time.Duration) *Worker {
	return &Worker{
		answerer: answerer,
		observer: observer,
		timeout:  timeout,
		service:  "worker",
	}
}

func (w *Worker) Handle(ctx context.Context, data []byte) []byte {
	start := time.Now()
	if w.observer != nil {
		w.observer.StartRequest()
	}

	reply, err := w.answer(ctx, data)
	duration := time.Since(start)
	if w.observer != nil {
		w.observer.FinishRequest(w.service, duration, err)
	}
	if err != nil {
		slog.Error("worker_answer_failed", "error", err, "duration_ms", duration.Milliseconds())
		reply = AnswerReply{Error: replyError(err)}
	}

	out, marshalErr := json.Marshal(reply)
	if marshalErr != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return out
}

func (w *Worker) answer(ctx context.Context, data []byte) (AnswerReply, error) {
	var req AnswerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return AnswerReply{}, domain.WrapError(domain.ErrInvalidInput, "decode answer request", err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return AnswerReply{}, domain.WrapError(domain.ErrInvalidInput, "answer request", fmt.Errorf("text is required"))
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := w.answerer.Answer(ctx, domain.Query{Text: req.Text, CallerID: req.UserID})
	if err != nil {
		if w.observer != nil {
			w.observer.ObserveError("nats", err)
		}
		return AnswerReply{}, err
	}
	if w.observer != nil {
		w.observer.ObserveResponse("nats", resp, time.Since(start))
	}

	return AnswerReply{
		MessageID: uuid.NewString(),
		ReplyText: resp.Text,
		Intent:    resp.Intent.String(),
		Outcome:   string(resp.Outcome),
	}, nil
}

func replyError(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "Field 'text' is required"
	case domain.IsKind(err, domain.ErrBackendUnavailable):
		return "LLM call failed"
	default:
		return "internal error"
	}
}
