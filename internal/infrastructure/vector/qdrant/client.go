package qdrant

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

// namespaceKey is the payload field the ingestion job writes the namespace to.
const namespaceKey = "namespace"

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (c *Client) Query(ctx context.Context, queryVector []float32, topK int, namespace string) ([]domain.Candidate, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
	}
	if namespace != "" {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key": namespaceKey,
					"match": map[string]any{
						"value": namespace,
					},
				},
			},
		}
	}

	resp, err := resilience.Do(ctx, c.executor, "qdrant.search",
		func(ctx context.Context) (searchResponse, error) {
			var out searchResponse
			err := c.postJSON(ctx, fmt.Sprintf("/collections/%s/points/search", c.collection), reqBody, &out)
			return out, err
		}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("qdrant.search", err, resilience.ClassifyHTTPError)
	}

	out := make([]domain.Candidate, 0, len(resp.Result))
	for _, r := range resp.Result {
		payload := r.Payload
		delete(payload, namespaceKey)
		out = append(out, domain.Candidate{
			ID:       vector.IDString(r.ID),
			Score:    r.Score,
			Metadata: vector.MetadataFromPayload(payload),
		})
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal search body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("qdrant", "search", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}
