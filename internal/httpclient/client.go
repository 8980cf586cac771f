package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// StatusError is a non-2xx response that survived the retry policy.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// IsStatusError checks whether err is (or wraps) a StatusError and
// returns it.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Client is a retrying JSON HTTP client shared by all outbound calls.
// Connection errors and 5xx responses are retried up to maxAttempts with
// linear backoff (backoff × attempt number); 4xx responses are never
// retried and surface immediately.
type Client struct {
	client      *http.Client
	logger      *logrus.Logger
	maxAttempts int
	backoff     time.Duration
}

// Option allows configuring the client
type Option func(*Client)

// WithRetryConfig configures retry behavior
func WithRetryConfig(maxAttempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.backoff = backoff
	}
}

// New creates a retrying HTTP client with the given request timeout.
func New(timeout time.Duration, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
		maxAttempts: 5,
		backoff:     time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON performs a GET against url and decodes the response into result.
func (c *Client) GetJSON(ctx context.Context, url string, result interface{}) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"url":     url,
			}).Warnf("Request attempt failed: %v", err)
			if err := c.sleep(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			if err := c.sleep(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"status":  resp.StatusCode,
			}).Warn("Server error, will retry")
			if err := c.sleep(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// sleep waits out the linear backoff for the given attempt, honoring
// context cancellation. No wait after the final attempt.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	if attempt >= c.maxAttempts {
		return nil
	}
	timer := time.NewTimer(c.backoff * time.Duration(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
