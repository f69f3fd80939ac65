// Package model provides clients for the external trained scoring
// model. The model is a fixed artifact hosted behind an invocations
// endpoint; this package only knows its calling contract.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// HTTPScorer calls a hosted model container over HTTP. The container
// exposes POST /invocations for scoring and GET /ping for health, the
// contract used by common model-serving images.
type HTTPScorer struct {
	baseURL string
	client  *http.Client
}

// Option configures an HTTPScorer.
type Option func(*HTTPScorer)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPScorer) {
		s.client = client
	}
}

// NewHTTPScorer creates a scorer for the model container at baseURL.
func NewHTTPScorer(baseURL string, opts ...Option) *HTTPScorer {
	s := &HTTPScorer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// invocationRequest is the scoring request body.
type invocationRequest struct {
	Categorical [][]int       `json:"categorical"`
	Continuous  [][][]float64 `json:"continuous"`
}

// invocationResponse is the scoring response body.
type invocationResponse struct {
	Predictions [][][]float64 `json:"predictions"`
}

// Score sends one batched scoring request and returns the raw per-step
// probability tensor. It never retries; retry policy belongs to callers.
func (s *HTTPScorer) Score(ctx context.Context, categorical [][]int, continuous [][][]float64) ([][][]float64, error) {
	body, err := json.Marshal(invocationRequest{
		Categorical: categorical,
		Continuous:  continuous,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/invocations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model endpoint error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out invocationResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Predictions) == 0 {
		return nil, fmt.Errorf("no predictions in response")
	}
	return out.Predictions, nil
}

// HealthCheck pings the model container.
func (s *HTTPScorer) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/ping", nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
