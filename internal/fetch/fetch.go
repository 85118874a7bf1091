// Package fetch retrieves wiki documents (API responses and raw message
// wikitext) over HTTP with retry on throttling and server errors.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrNotFound is returned for 404 responses, e.g. an interface message
// that does not exist on an older wiki.
var ErrNotFound = errors.New("fetch: document not found")

// StatusError represents a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string // internal: Retry-After header value for 429s
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "rcwatch/1.0 (recent changes monitor)"
	maxRetries       = 3
	maxBodyBytes     = 8 << 20
)

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header. Wikimedia sites reject
// requests without a descriptive one.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBaseDelay sets the first retry delay; later retries double it.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// Client fetches documents by absolute URL.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseDelay  time.Duration
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		baseDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch sends a GET request and returns the response body as text.
// Returns ErrNotFound for 404 and *StatusError for other non-2xx responses.
// Retries on 429 (honouring Retry-After) and 5xx with exponential backoff.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr *StatusError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(c.backoffDelay(attempt, lastErr))
			select {
			case <-ctx.Done():
				t.Stop()
				return "", ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("fetch %s: read body: %w", url, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return string(body), nil
		}
		if resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, url)
		}

		bodyStr := string(body)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode, Body: bodyStr}

		if resp.StatusCode == http.StatusTooManyRequests {
			statusErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = statusErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = statusErr
			continue
		}
		return "", statusErr
	}
	return "", lastErr
}

// backoffDelay returns the wait duration before a retry attempt.
func (c *Client) backoffDelay(attempt int, lastErr *StatusError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	// Exponential backoff: base, 2*base, 4*base
	return c.baseDelay << (attempt - 1)
}
