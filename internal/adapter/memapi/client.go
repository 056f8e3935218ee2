// Package memapi provides an HTTP client for the hosted vector-memory
// service. The service stores free-text entries per agent and answers
// approximate similarity queries; Hearth treats it as opaque.
package memapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hearthhq/hearth/internal/config"
	"github.com/hearthhq/hearth/internal/domain/memory"
	"github.com/hearthhq/hearth/internal/resilience"
)

// Client talks to the memory service API. It implements memoryservice.Service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new memory API client.
func NewClient(cfg config.MemoryAPI) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type recordRequest struct {
	AgentID string `json:"agent_id"`
	Text    string `json:"text"`
}

type searchRequest struct {
	AgentID string `json:"agent_id"`
	Query   string `json:"query"`
	Limit   int    `json:"limit"`
}

// Record stores a new memory entry attributed to an agent.
func (c *Client) Record(ctx context.Context, agentID, text string) error {
	body, err := json.Marshal(recordRequest{AgentID: agentID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal memory record: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/v1/memories", body); err != nil {
		return fmt.Errorf("record memory: %w", err)
	}
	return nil
}

// Recall returns up to limit memories for the agent ranked by similarity to
// the query. A service-side empty result decodes to an empty slice.
func (c *Client) Recall(ctx context.Context, agentID, query string, limit int) ([]memory.Entry, error) {
	if limit <= 0 {
		limit = memory.DefaultRecallLimit
	}

	body, err := json.Marshal(searchRequest{AgentID: agentID, Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal memory search: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/memories/search", body)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}

	var result struct {
		Data []memory.Entry `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal memories: %w", err)
	}
	return result.Data, nil
}

// Health checks whether the memory service is reachable.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err == nil, err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("memory API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
