package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/vector"
)

// Client queries one Pinecone index through its data-plane host.
type Client struct {
	host       string
	apiKey     string
	apiVersion string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(host, apiKey, apiVersion string, executor *resilience.Executor) *Client {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host != "" && !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return &Client{
		host:       host,
		apiKey:     apiKey,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

func (c *Client) Query(ctx context.Context, queryVector []float32, topK int, namespace string) ([]domain.Candidate, error) {
	reqBody := queryRequest{
		Vector:          queryVector,
		TopK:            topK,
		Namespace:       namespace,
		IncludeMetadata: true,
	}

	resp, err := resilience.Do(ctx, c.executor, "pinecone.query",
		func(ctx context.Context) (queryResponse, error) {
			var out queryResponse
			err := c.postJSON(ctx, "/query", reqBody, &out)
			return out, err
		}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("pinecone.query", err, resilience.ClassifyHTTPError)
	}

	out := make([]domain.Candidate, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		out = append(out, domain.Candidate{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: vector.MetadataFromPayload(m.Metadata),
		})
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal pinecone request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create pinecone request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	if c.apiVersion != "" {
		req.Header.Set("X-Pinecone-API-Version", c.apiVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("pinecone", "query", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode pinecone response: %w", err)
	}
	return nil
}
