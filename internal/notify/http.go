package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manav03panchal/bikeguard/internal/config"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// HTTPClient posts webhook payloads with retry.
type HTTPClient struct {
	client     *http.Client
	retryDelay []time.Duration
}

// NewHTTPClient creates a client from config.Global.HTTP.
func NewHTTPClient() *HTTPClient {
	cfg := config.Global.HTTP
	return NewHTTPClientWith(cfg.Timeout, cfg.RetryDelays)
}

// NewHTTPClientWith creates a client with an explicit timeout and retry delays.
// The first delay applies before the first attempt; len(delays) is the attempt count.
func NewHTTPClientWith(timeout time.Duration, delays []time.Duration) *HTTPClient {
	if len(delays) == 0 {
		delays = []time.Duration{0}
	}
	return &HTTPClient{
		client:     &http.Client{Timeout: timeout},
		retryDelay: delays,
	}
}

// SendResult contains the result of a send operation.
type SendResult struct {
	StatusCode int
	Duration   time.Duration
	Attempts   int
	Error      error
}

// Retryable reports whether a later attempt might succeed.
func (r *SendResult) Retryable() bool {
	if r.Error == nil {
		return false
	}
	return r.StatusCode == 0 || r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500
}

// Send posts body to url, retrying transport errors, 429 and 5xx responses.
func (c *HTTPClient) Send(ctx context.Context, url, contentType string, body []byte) *SendResult {
	result := &SendResult{}
	start := time.Now()

	for attempt, delay := range c.retryDelay {
		result.Attempts = attempt + 1

		if delay > 0 {
			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				result.Duration = time.Since(start)
				return result
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			result.Error = fmt.Errorf("failed to create request: %w", err)
			break
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("User-Agent", "BikeGuard/1.0")

		resp, err := c.client.Do(req)
		if err != nil {
			result.StatusCode = 0
			result.Error = fmt.Errorf("request failed: %w", err)
			continue
		}

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		result.StatusCode = resp.StatusCode

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			result.Error = nil
			result.Duration = time.Since(start)
			return result
		case resp.StatusCode == http.StatusTooManyRequests:
			result.Error = fmt.Errorf("rate limited (HTTP 429)")
			continue
		case resp.StatusCode >= 500:
			result.Error = fmt.Errorf("server error (HTTP %d): %s", resp.StatusCode, respBody)
			continue
		}

		result.Error = fmt.Errorf("client error (HTTP %d): %s", resp.StatusCode, respBody)
		break
	}

	result.Duration = time.Since(start)
	return result
}
