// Package completion wraps the external completion API: a black-box call
// that takes one outbound message and returns a text completion or fails.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrCompletionFailed indicates the upstream completion API failed. Callers
// never inspect upstream failure internals; everything below this sentinel
// is logged, not surfaced.
var ErrCompletionFailed = errors.New("completion request failed")

// Client is the narrow contract to the external completion API.
type Client interface {
	// Complete sends one outbound message and returns the completion text.
	Complete(ctx context.Context, message string) (string, error)
}

// HTTPConfig configures the HTTP completion client.
type HTTPConfig struct {
	// Endpoint is the completion API URL.
	Endpoint string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds a single completion call (default 120s).
	Timeout time.Duration

	// RetryMax is the number of transport-level retries (default 3).
	// Distinct from the structured-summary validation retry in Layer.
	RetryMax int
}

// HTTPClient is a Client over a JSON HTTP completion endpoint. Transient
// transport failures are retried with bounded backoff.
type HTTPClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

// NewHTTPClient creates an HTTP completion client.
func NewHTTPClient(cfg HTTPConfig, logger *slog.Logger) (*HTTPClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	client := retryClient.StandardClient()
	client.Timeout = cfg.Timeout

	return &HTTPClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     client,
		logger:   logger,
	}, nil
}

type completionRequest struct {
	Message string `json:"message"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// Complete implements Client.
func (c *HTTPClient) Complete(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(completionRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("%w: encode request", ErrCompletionFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request", ErrCompletionFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("completion call failed", "error", err)
		return "", ErrCompletionFailed
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("completion call returned non-200", "status", resp.StatusCode)
		return "", ErrCompletionFailed
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		c.logger.Error("completion response read failed", "error", err)
		return "", ErrCompletionFailed
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Error("completion response decode failed", "error", err)
		return "", ErrCompletionFailed
	}

	return out.Text, nil
}
