package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// ClientConfig configures the remote history-service client.
type ClientConfig struct {
	// BaseURL is the history service's base URL, e.g.
	// "http://openmemory.agentmesh.svc.cluster.local:8080".
	BaseURL string
	// Namespace scopes searches and records to a logical memory partition,
	// e.g. "agent/healer".
	Namespace string
	// Timeout bounds every request. Defaults to 5s.
	Timeout time.Duration
}

// Record is a single memory record returned by a search.
type Record struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Salience float64           `json:"salience"`
	Metadata map[string]string `json:"metadata"`
}

// SearchFilters narrows a search to a failure kind, agent, or category.
type SearchFilters struct {
	Category    string `json:"category,omitempty"`
	Agent       string `json:"agent,omitempty"`
	FailureType string `json:"failure_type,omitempty"`
}

// Client is a thin HTTP client over the history service's search/create
// operations. It never blocks a remediation: a request that times out or
// returns a non-2xx status yields an empty result and a warning log rather
// than an error, and a circuit breaker stops hammering a service that is
// already down.
type Client struct {
	config  ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger
}

// NewClient builds a Client. A nil logger falls back to log.Default().
func NewClient(cfg ClientConfig, logger *log.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "memory-client",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
	}
}

type searchRequest struct {
	Query     string         `json:"query"`
	Namespace string         `json:"namespace"`
	Limit     int            `json:"limit"`
	Filters   *SearchFilters `json:"filters,omitempty"`
}

type searchResponse struct {
	Memories []Record `json:"memories"`
}

// Search queries the history service for records matching query. On any
// failure — timeout, transport error, non-2xx response, open breaker — it
// logs a warning and returns an empty slice rather than an error, since no
// caller should let a remediation stall on a degraded memory service.
func (c *Client) Search(ctx context.Context, query string, filters *SearchFilters, limit int) []Record {
	reqBody := searchRequest{
		Query:     query,
		Namespace: c.config.Namespace,
		Limit:     limit,
		Filters:   filters,
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doSearch(ctx, reqBody)
	})
	if err != nil {
		c.logger.Printf("Warning: memory search failed, continuing without history: %v", err)
		return nil
	}
	return result.([]Record)
}

func (c *Client) doSearch(ctx context.Context, reqBody searchRequest) ([]Record, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("memory service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return parsed.Memories, nil
}

type createRequest struct {
	Content   string            `json:"content"`
	Namespace string            `json:"namespace"`
	Metadata  map[string]string `json:"metadata"`
}

// Create persists a new memory record. Like Search, failures are logged
// and swallowed rather than surfaced, so outcome recording never blocks
// the pipeline that produced it.
func (c *Client) Create(ctx context.Context, content string, metadata map[string]string) {
	reqBody := createRequest{
		Content:   content,
		Namespace: c.config.Namespace,
		Metadata:  metadata,
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doCreate(ctx, reqBody)
	})
	if err != nil {
		c.logger.Printf("Warning: memory create failed, outcome not recorded: %v", err)
	}
}

func (c *Client) doCreate(ctx context.Context, reqBody createRequest) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/memories", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("create memory request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("memory service returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Healthy reports whether the history service responds to a lightweight
// GET within the configured timeout. Used implicitly by callers that want
// to skip a Search/Create round trip entirely when the service is known
// down.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < 300
}
