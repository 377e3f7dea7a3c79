package httputil

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/ibdash/pkg/config"
	"github.com/wonny/ibdash/pkg/logger"
	"github.com/wonny/ibdash/pkg/redis"
)

// Client is an HTTP client wrapper with retry, pacing and logging
// ⭐ SSOT: every outbound HTTP request goes through this client
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	retryConfig  RetryConfig
	limiter      *rate.Limiter
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
}

// RetryConfig holds retry configuration. Only idempotent methods are retried.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// StatusError is returned by DoJSON for non-2xx responses
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// New creates a client configured for the brokerage gateway
// ⭐ SSOT: http.Client instances are created here only
func New(cfg *config.Config, log *logger.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Gateway.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local gateway uses a self-signed cert
	}

	timeout := cfg.Gateway.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: log,
		retryConfig: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Enabled:      true,
		},
	}
	if cfg.Gateway.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.Gateway.RateLimit), 1)
	}
	return c
}

// NewWithTimeout creates a client with custom timeout
func NewWithTimeout(cfg *config.Config, log *logger.Logger, timeout time.Duration) *Client {
	client := New(cfg, log)
	client.httpClient.Timeout = timeout
	return client
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimiter adds a Redis-backed limiter shared with other processes
// talking to the same gateway
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.rateLimiter = limiter
	c.rateLimitCfg = &cfg
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, url, nil)
}

// PostJSON performs a POST request with JSON body
func (c *Client) PostJSON(ctx context.Context, url string, data interface{}) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, url, data)
}

// Do sends a request with an optional JSON body
func (c *Client) Do(ctx context.Context, method, url string, data interface{}) (*http.Response, error) {
	var body []byte
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		body = b
	}
	return c.do(ctx, method, url, body)
}

// DoJSON sends a request and decodes a 2xx JSON response into out.
// Non-2xx responses become *StatusError. out may be nil.
func (c *Client) DoJSON(ctx context.Context, method, url string, in, out interface{}) error {
	resp, err := c.Do(ctx, method, url, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, url, err)
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		if err := c.rateLimiter.Wait(ctx, *c.rateLimitCfg); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ibdash")
	return req, nil
}

// do executes the request with retry logic and logging
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	start := time.Now()
	fields := map[string]interface{}{"method": method, "url": url}

	c.logger.WithFields(fields).Debug("HTTP request started")

	attempts := 1
	if c.retryConfig.Enabled && idempotent(method) {
		attempts += c.retryConfig.MaxRetries
	}

	var (
		resp *http.Response
		err  error
	)
	delay := c.retryConfig.InitialDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = c.wait(ctx); err != nil {
			return nil, err
		}

		var req *http.Request
		req, err = c.newRequest(ctx, method, url, body)
		if err != nil {
			return nil, err
		}

		resp, err = c.httpClient.Do(req)
		if err == nil && !IsRetryableError(resp.StatusCode) {
			break
		}
		if attempt == attempts {
			break
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		c.logger.WithFields(fields).
			WithField("attempt", attempt).
			WithField("delay", delay.String()).
			Warn("Retrying HTTP request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.retryConfig.MaxDelay {
			delay = c.retryConfig.MaxDelay
		}
	}

	duration := time.Since(start)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).
			WithField("duration", duration.String()).
			Error("HTTP request failed")
		return nil, err
	}

	c.logger.WithFields(fields).
		WithField("status_code", resp.StatusCode).
		WithField("duration", duration.String()).
		Debug("HTTP request completed")

	return resp, nil
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
