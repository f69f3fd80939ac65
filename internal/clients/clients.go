// Package clients holds HTTP clients for the platform services this
// service reads from: the progress service (interaction histories) and
// the content service (concept graph).
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edulytic/mastery-service/internal/mastery"
)

const (
	defaultTimeout = 10 * time.Second
	// historyLimit caps how many attempts are fetched per student; the
	// model window is 100 anyway.
	historyLimit = 100
)

type base struct {
	baseURL string
	secret  string
	client  *http.Client
}

// Option configures a service client.
type Option func(*base)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(b *base) {
		b.client = client
	}
}

func newBase(baseURL, secret string, opts ...Option) base {
	b := base{
		baseURL: baseURL,
		secret:  secret,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if b.secret != "" {
		req.Header.Set("Authorization", "Bearer "+b.secret)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// ProgressClient reads student interaction histories from the progress
// service.
type ProgressClient struct {
	base
}

// NewProgressClient creates a progress service client.
func NewProgressClient(baseURL, secret string, opts ...Option) *ProgressClient {
	return &ProgressClient{base: newBase(baseURL, secret, opts...)}
}

// InteractionHistory fetches the most recent question attempts for a
// student, oldest first.
func (c *ProgressClient) InteractionHistory(ctx context.Context, studentID string) ([]mastery.Interaction, error) {
	var out struct {
		Interactions []mastery.Interaction `json:"interactions"`
	}
	path := fmt.Sprintf("/events/user/%s/interactions?eventType=QUESTION_ATTEMPT&limit=%d", studentID, historyLimit)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("fetch interaction history: %w", err)
	}
	return out.Interactions, nil
}

// ContentClient reads curriculum structure from the content service.
type ContentClient struct {
	base
}

// NewContentClient creates a content service client.
func NewContentClient(baseURL, secret string, opts ...Option) *ContentClient {
	return &ContentClient{base: newBase(baseURL, secret, opts...)}
}

// Concept is one node of the concept graph.
type Concept struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ConceptEdge is a prerequisite relation between two concepts.
type ConceptEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ConceptGraph is the curriculum's prerequisite structure.
type ConceptGraph struct {
	Concepts []Concept     `json:"concepts"`
	Edges    []ConceptEdge `json:"edges"`
}

// ConceptGraph fetches the concept graph.
func (c *ContentClient) ConceptGraph(ctx context.Context) (*ConceptGraph, error) {
	var graph ConceptGraph
	if err := c.get(ctx, "/concept-graph", &graph); err != nil {
		return nil, fmt.Errorf("fetch concept graph: %w", err)
	}
	return &graph, nil
}
