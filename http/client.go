// Package http provides the HTTP client shared by the site crawler and the
// generic video-host probes, with polite rate limiting and retry on
// rate-limit responses.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/monk-time/icm-dead-video-links/internal/retry"
)

// Config holds HTTP client configuration.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// UserAgent for HTTP requests
	UserAgent string

	// ProxyURL routes requests through an alternate egress when a request
	// is made with UseProxy. Empty disables the proxied transport.
	ProxyURL string

	// RequestsPerSecond caps the per-domain request rate (<=0 = unlimited)
	RequestsPerSecond float64

	// Retry configuration for rate-limited requests
	Retry retry.Config
}

// DefaultConfig returns sensible defaults for HTTP client configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		UserAgent:         "icm-dead-video-links/1.0",
		RequestsPerSecond: 2.0,
		Retry:             retry.DefaultConfig(),
	}
}

// Client wraps an HTTP client with rate limiting and an optional proxied
// transport for hosts that cannot be reached directly.
type Client struct {
	base    *http.Client
	proxied *http.Client
	config  *Config
	limiter *RateLimiter
}

// New creates a new HTTP client with the given configuration.
// A proxied transport is only built when cfg.ProxyURL is set.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &Client{
		base:    &http.Client{Timeout: cfg.Timeout},
		config:  cfg,
		limiter: NewRateLimiter(cfg.RequestsPerSecond),
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		c.proxied = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	return c, nil
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the final URL after redirects. The site signals a missing
	// user by redirecting the comment listing to its login page.
	URL string
}

// Get performs a GET request. Non-2xx responses are returned as *HTTPError;
// 429/503 responses are retried within the configured retry budget.
func (c *Client) Get(ctx context.Context, urlStr string) (*Response, error) {
	var resp *Response

	err := retry.Do(ctx, c.config.Retry, isRetryableHTTPError, func(ctx context.Context) error {
		var err error
		resp, err = c.do(ctx, http.MethodGet, urlStr, false)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == http.StatusServiceUnavailable {
			return &RateLimitError{
				StatusCode: resp.StatusCode,
				RetryAfter: parseRetryAfter(resp.Header),
			}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Head performs a HEAD request with redirects followed. The response is
// returned for any status code: a probe needs the code itself, not an
// error. Transport failures are still errors.
func (c *Client) Head(ctx context.Context, urlStr string, useProxy bool) (*Response, error) {
	return c.do(ctx, http.MethodHead, urlStr, useProxy)
}

// do performs a single request attempt.
func (c *Client) do(ctx context.Context, method, urlStr string, useProxy bool) (*Response, error) {
	if err := c.limiter.Wait(ctx, urlStr); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	base := c.base
	if useProxy {
		if c.proxied == nil {
			return nil, fmt.Errorf("proxy requested for %s but no proxy is configured", urlStr)
		}
		base = c.proxied
	}

	resp, err := base.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	finalURL := urlStr
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        finalURL,
	}, nil
}

// isRetryableHTTPError retries rate-limit responses only. Plain HTTP errors
// (404s, 500s) surface immediately: the crawler treats them per-page and
// the probes interpret them as a liveness signal.
func isRetryableHTTPError(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	_, ok := err.(*RateLimitError)
	return ok
}

// parseRetryAfter extracts the Retry-After header value.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}
	return 0
}
