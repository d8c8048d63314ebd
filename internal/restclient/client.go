// Package restclient provides a base HTTP client for read-only catalog APIs with:
// - Retries with exponential backoff (requests here are idempotent GETs)
// - Standardized error classification (auth vs transport)
// - Circuit breaking
package restclient

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"bookchat/internal/core"
	"bookchat/internal/httpclient"
)

// Config holds configuration for the REST client.
type Config struct {
	// Name identifies the upstream for error messages and logs.
	Name string

	// BaseURL is the API base URL.
	BaseURL string

	// Retry configuration.
	MaxRetries     int           // Maximum number of retry attempts (default: 2)
	InitialBackoff time.Duration // Initial backoff duration (default: 500ms)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 5s)
	BackoffFactor  float64       // Backoff multiplier (default: 2.0)

	// CircuitBreaker configuration; nil disables circuit breaking.
	CircuitBreaker *CircuitBreakerConfig
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures before opening the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of successes needed to close an open circuit.
	SuccessThreshold int
	// Timeout is how long to wait before probing an open circuit.
	Timeout time.Duration
}

// DefaultConfig returns default client configuration for the named upstream.
func DefaultConfig(name, baseURL string) Config {
	return Config{
		Name:           name,
		BaseURL:        baseURL,
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		CircuitBreaker: &CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
		},
	}
}

// Client is a base HTTP client for catalog upstreams.
type Client struct {
	httpClient     *http.Client
	config         Config
	circuitBreaker *circuitBreaker
}

// New creates a client with the default pooled HTTP transport.
func New(config Config) *Client {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient(), config)
}

// NewWithHTTPClient creates a client with a custom HTTP client, used by tests
// to point at an httptest server.
func NewWithHTTPClient(httpClient *http.Client, config Config) *Client {
	c := &Client{
		httpClient: httpClient,
		config:     config,
	}
	if config.CircuitBreaker != nil {
		c.circuitBreaker = newCircuitBreaker(
			config.CircuitBreaker.FailureThreshold,
			config.CircuitBreaker.SuccessThreshold,
			config.CircuitBreaker.Timeout,
		)
	}
	return c
}

// SetBaseURL updates the base URL.
func (c *Client) SetBaseURL(url string) {
	c.config.BaseURL = url
}

// Get executes a GET against path with the given query parameters, retrying
// transient failures, and returns the raw response body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.circuitBreaker != nil && !c.circuitBreaker.Allow() {
		return nil, core.NewUpstreamError(c.config.Name,
			"circuit breaker is open - upstream temporarily unavailable", nil)
	}

	var lastErr error
	maxAttempts := c.config.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		body, statusCode, err := c.doRequest(ctx, path, query)
		if err != nil {
			lastErr = err
			c.recordFailure()
			continue
		}

		if isRetryable(statusCode) {
			c.recordFailure()
			lastErr = core.ClassifyUpstreamStatus(c.config.Name, statusCode, string(body))
			continue
		}

		if statusCode != http.StatusOK {
			if statusCode >= 500 {
				c.recordFailure()
			}
			return nil, core.ClassifyUpstreamStatus(c.config.Name, statusCode, string(body))
		}

		c.recordSuccess()
		return body, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, core.NewUpstreamError(c.config.Name, "request failed after retries", nil)
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	reqURL := c.config.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, core.NewUpstreamError(c.config.Name, "failed to create request: "+err.Error(), err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, core.NewUpstreamError(c.config.Name, "failed to send request: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, core.NewUpstreamError(c.config.Name, "failed to read response: "+err.Error(), err)
	}

	return body, resp.StatusCode, nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffFactor, float64(attempt-1))
	if backoff > float64(c.config.MaxBackoff) {
		backoff = float64(c.config.MaxBackoff)
	}
	return time.Duration(backoff)
}

func (c *Client) recordFailure() {
	if c.circuitBreaker != nil {
		c.circuitBreaker.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.circuitBreaker != nil {
		c.circuitBreaker.RecordSuccess()
	}
}

// isRetryable returns true if the status code indicates a transient failure.
func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusGatewayTimeout
}
