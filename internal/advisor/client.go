package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cementlab/plantpulse/internal/metrics"
)

const (
	maxResponseBytes = 1 << 20
	maxTokens        = 512
)

// TextClient generates a completion for a prompt.
type TextClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// UnconfiguredClient stands in when no text service URL is set. Every
// call fails, so the service answers with its fallback response.
type UnconfiguredClient struct{}

func (UnconfiguredClient) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("no text service configured")
}

// HTTPClient talks to the external text-generation API. Calls run through
// a circuit breaker so a dead backend fails fast instead of tying up
// request goroutines for the full timeout.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPClient creates a client with the given request timeout.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	settings := gobreaker.Settings{
		Name:    "ai-text-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			metrics.AdvisorBreakerState.Set(float64(to))
		},
	}

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate posts the prompt and returns the completion text.
func (c *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	text, err := c.breaker.Execute(func() (any, error) {
		return c.generate(ctx, prompt)
	})

	metrics.AdvisorRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AdvisorRequestsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.AdvisorRequestsTotal.WithLabelValues("ok").Inc()
	return text.(string), nil
}

func (c *HTTPClient) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call text service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text service returned status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode text service response: %w", err)
	}
	if parsed.Text == "" {
		return "", fmt.Errorf("text service returned empty completion")
	}
	return parsed.Text, nil
}
