package client

import (
	"context"
	"math"
	"net/http"
	"time"
)

// RetryConfig controls how idempotent requests are retried.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns three retries starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// WithRetry retries GET requests that fail with a transport error or a
// retryable status. Requests with a body are never retried.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// shouldRetry reports whether a response status is worth another attempt.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// backoff returns InitialBackoff * 2^attempt, capped at MaxBackoff.
func (r RetryConfig) backoff(attempt int) time.Duration {
	d := float64(r.InitialBackoff) * math.Pow(2, float64(attempt))
	if r.MaxBackoff > 0 && d > float64(r.MaxBackoff) {
		d = float64(r.MaxBackoff)
	}
	return time.Duration(d)
}

// sendWithRetry calls send until it succeeds, returns a non-retryable
// status, or the attempts run out. The last response is returned as is so
// the caller can decode its error body.
func (c *Client) sendWithRetry(ctx context.Context, retryable bool, send func() (*http.Response, error)) (*http.Response, error) {
	attempts := 0
	if retryable {
		attempts = c.retry.MaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := send()
		if attempt >= attempts {
			return resp, err
		}
		if err == nil && !shouldRetry(resp.StatusCode) {
			return resp, nil
		}
		if ctx.Err() != nil {
			if err == nil {
				return resp, nil
			}
			return nil, err
		}
		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retry.backoff(attempt)):
		}
	}
}
