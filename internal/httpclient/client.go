// Package httpclient provides an HTTP client with retry, backoff, and
// optional response caching for API and page fetches.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/jonathan/wage-etl/internal/cache"
)

// ErrRetriesExhausted is returned when every retry attempt has failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

var defaultHeaders = map[string]string{
	"User-Agent":      "Wage-ETL/1.0 (Educational Project)",
	"Accept":          "text/html,application/json",
	"Accept-Language": "en-US,en;q=0.9",
}

// Config holds client construction parameters.
type Config struct {
	BaseURL    string
	Headers    map[string]string
	Timeout    time.Duration
	MaxRetries int
}

// Client wraps a reusable resty session with retry classification and an
// optional response cache. A nil cache disables caching.
type Client struct {
	baseURL    string
	maxRetries int
	cache      *cache.Cache
	session    *resty.Client
	sleep      func(time.Duration)
	requests   int
}

// New creates a client. The session and its connection pool are reused
// across requests until Close is called.
func New(cfg Config, respCache *cache.Cache) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	session := resty.New().SetTimeout(cfg.Timeout)
	session.SetHeaders(defaultHeaders)
	session.SetHeaders(cfg.Headers)

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		cache:      respCache,
		session:    session,
		sleep:      time.Sleep,
	}
}

// RequestCount returns the number of network requests made. Cache hits are
// not counted.
func (c *Client) RequestCount() int {
	return c.requests
}

// Close releases idle connections held by the session.
func (c *Client) Close() {
	c.session.GetClient().CloseIdleConnections()
}

// buildURL resolves an endpoint against the base URL. Absolute endpoints are
// used as-is.
func (c *Client) buildURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
}

// cacheKey builds the request identity used for caching: the endpoint plus
// query parameters in sorted order.
func cacheKey(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	// Encode sorts by key, keeping the identity stable.
	return endpoint + "?" + values.Encode()
}

// Get fetches an endpoint, serving from cache when possible. Fresh responses
// are stored back into the cache.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	fullURL := c.buildURL(endpoint)
	key := cacheKey(endpoint, params)

	if c.cache != nil {
		if content := c.cache.Get(key); content != nil {
			log.WithField("key", key).Debug("Cache hit")
			return content, nil
		}
	}

	content, err := c.fetchWithRetry(ctx, fullURL, params)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Store(key, content); err != nil {
			log.WithField("key", key).Warnf("Failed to cache response: %v", err)
		}
	}

	return content, nil
}

// fetch performs a single request and fails on any non-2xx status.
func (c *Client) fetch(ctx context.Context, fullURL string, params map[string]string) ([]byte, error) {
	req := c.session.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(fullURL)
	c.requests++
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &StatusError{URL: fullURL, StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}

// wait sleeps with exponential backoff. No sleep happens after the final
// attempt.
func (c *Client) wait(attempt int, baseDelay time.Duration) {
	if attempt < c.maxRetries-1 {
		c.sleep(baseDelay * (1 << attempt))
	}
}

// fetchWithRetry classifies each failure and either retries with backoff or
// fails immediately:
//
//   - network errors: retry, base delay 1s
//   - 404 and other non-retryable statuses: fail immediately
//   - 429 and 5xx: retry, base delay 4s
func (c *Client) fetchWithRetry(ctx context.Context, fullURL string, params map[string]string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		content, err := c.fetch(ctx, fullURL, params)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var statusErr *StatusError
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil, err
		case errors.As(err, &statusErr):
			switch {
			case statusErr.StatusCode == 404:
				log.WithField("url", fullURL).Errorf("Resource not found (404)")
				return nil, err
			case statusErr.StatusCode == 429:
				log.WithField("url", fullURL).Warn("Rate limited (429)")
				c.wait(attempt, 4*time.Second)
			case statusErr.StatusCode >= 500 && statusErr.StatusCode <= 599:
				log.WithField("url", fullURL).Warnf("Server error (%d)", statusErr.StatusCode)
				c.wait(attempt, 4*time.Second)
			default:
				log.WithField("url", fullURL).Errorf("HTTP error %d", statusErr.StatusCode)
				return nil, err
			}
		default:
			log.WithField("url", fullURL).Warnf("Network issue on attempt %d: %v", attempt+1, err)
			c.wait(attempt, 1*time.Second)
		}
	}

	log.WithField("url", fullURL).Errorf("Request failed after %d attempts", c.maxRetries)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.maxRetries, lastErr)
}
