// Copyright Meetloop and each contributor.
// SPDX-License-Identifier: MIT

// Package recall implements the meeting bot provider against the Recall.ai
// HTTP API.
package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/meetloop/bot-session-service/internal/logging"
)

const (
	// DefaultClientTimeout is the default HTTP client timeout for provider API requests
	DefaultClientTimeout = 30 * time.Second
	// Default retry configuration
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Config holds the configuration for the provider API client
type Config struct {
	// BaseURL is the provider API base URL, e.g. https://us-east-1.recall.ai/api/v1
	BaseURL string
	// APIToken is the provider API token sent on every request
	APIToken string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
	// Optional: retry configuration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Client is an HTTP client for the provider API with bounded retries and
// exponential backoff with jitter.
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new provider API client
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = DefaultBackoffMultiplier
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// shouldRetry determines if an error or HTTP status code should be retried
func shouldRetry(statusCode int, err error) bool {
	// Network/connection errors are retryable; cancellation is not.
	if err != nil {
		if ctxErr, ok := err.(interface{ Err() error }); ok {
			if ctxErr.Err() == context.Canceled || ctxErr.Err() == context.DeadlineExceeded {
				return false
			}
		}
		return true
	}

	// Server errors and rate limiting are retryable; other 4xx are not.
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	return false
}

// calculateBackoff calculates the backoff duration for a retry attempt with jitter
func (c *Client) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return c.config.InitialBackoff
	}

	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffMultiplier, float64(attempt))
	if time.Duration(backoff) > c.config.MaxBackoff {
		backoff = float64(c.config.MaxBackoff)
	}

	// Jitter of ±25% to avoid synchronized retries
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoffWithJitter := time.Duration(backoff + jitter)
	if backoffWithJitter < c.config.InitialBackoff {
		backoffWithJitter = c.config.InitialBackoff
	}

	return backoffWithJitter
}

// doRequest performs an authenticated request to the provider API with retry
// logic. The returned response body is fully read and closed.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	url := c.config.BaseURL + path
	var lastErr error
	var lastStatus int
	var lastBody []byte

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt - 1)
			slog.WarnContext(ctx, "provider API request failed, retrying",
				"method", method,
				"path", path,
				"status", lastStatus,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff.String(),
				logging.ErrKey, lastErr)
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Token "+c.config.APIToken)

		startTime := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(startTime)
		if err != nil {
			lastErr, lastStatus, lastBody = err, 0, nil
			if !shouldRetry(0, err) {
				break
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr, lastStatus, lastBody = readErr, resp.StatusCode, nil
			continue
		}

		if !shouldRetry(resp.StatusCode, nil) {
			slog.DebugContext(ctx, "provider API request completed",
				"method", method,
				"path", path,
				"status", resp.StatusCode,
				"duration", duration.String(),
				"attempt", attempt+1)
			return resp.StatusCode, respBody, nil
		}

		lastErr, lastStatus, lastBody = nil, resp.StatusCode, respBody
	}

	if lastErr != nil {
		slog.ErrorContext(ctx, "provider API request failed after all retries",
			"method", method,
			"path", path,
			"max_retries", c.config.MaxRetries,
			logging.ErrKey, lastErr,
			logging.PriorityCritical())
		return 0, nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
	}

	slog.ErrorContext(ctx, "provider API request exhausted retries",
		"method", method,
		"path", path,
		"status", lastStatus,
		"body", string(lastBody),
		"max_retries", c.config.MaxRetries,
		logging.PriorityCritical())
	return lastStatus, lastBody, nil
}

// parseErrorResponse attempts to parse a provider API error payload.
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Detail != "" {
			return fmt.Errorf("provider API error (status %d): %s", statusCode, errResp.Detail)
		}
		if errResp.Message != "" {
			return fmt.Errorf("provider API error (status %d): %s", statusCode, errResp.Message)
		}
	}
	return fmt.Errorf("provider API error (status %d): %s", statusCode, string(body))
}
