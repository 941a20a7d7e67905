package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
)

// RateLimiter controls request pacing. Wait blocks until a request may be
// issued or the context is done.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Client is an HTTP client with retry logic for registry APIs.
// Transient failures (429, 5xx, network errors) are retried with
// exponential backoff; 404 and other client errors are not.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxRetries  int
	baseDelay   time.Duration
	rateLimiter RateLimiter
	breakers    *hostBreakers
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseDelay sets the initial delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimiter sets a rate limiter consulted before each request.
func WithRateLimiter(rl RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = rl
	}
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: newCachingTransport(),
		},
		userAgent:  "freshness",
		maxRetries: 5,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return NewClient()
}

// WithUserAgent returns a copy of the client using the given User-Agent.
func (c *Client) WithUserAgent(ua string) *Client {
	clone := *c
	clone.userAgent = ua
	return &clone
}

// newCachingTransport builds a transport that resolves hosts through a
// shared DNS cache, refreshed every 5 minutes.
func newCachingTransport() *http.Transport {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("failed to dial any resolved IP")
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// GetBody performs a GET request and returns the response body.
// Transient failures are retried up to the configured maximum. With
// circuit breaking enabled, a host whose breaker is open fails fast with
// ErrRegistryUnavailable, and one fully retried request counts as a
// single call against the breaker.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	if c.breakers == nil {
		return c.getBodyRetry(ctx, url)
	}

	breaker := c.breakers.get(extractHost(url))
	if !breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", extractHost(url), ErrRegistryUnavailable)
	}

	var body []byte
	var reqErr error
	err := breaker.Call(func() error {
		body, reqErr = c.getBodyRetry(ctx, url)
		if reqErr != nil {
			// A 4xx other than 429 is a healthy registry answering;
			// only transport-level failure should open the circuit.
			var httpErr *HTTPError
			if errors.As(reqErr, &httpErr) && httpErr.StatusCode < 500 && httpErr.StatusCode != http.StatusTooManyRequests {
				return nil
			}
			return reqErr
		}
		return nil
	}, 0)
	if err != nil {
		return nil, err
	}
	return body, reqErr
}

func (c *Client) getBodyRetry(ctx context.Context, url string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseDelay
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // attempts bounded by maxRetries, not elapsed time
	bo.Reset()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := bo.NextBackOff()
			if delay == backoff.Stop {
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.doGet(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// GetJSON performs a GET request and unmarshals the JSON response into v.
// A body that is not valid JSON for v is reported as a *DecodeError.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.GetBody(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}

// Head performs a HEAD request and returns the response status code.
func (c *Client) Head(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("head request: %w", err)
	}
	_ = resp.Body.Close()

	return resp.StatusCode, nil
}

func (c *Client) doGet(ctx context.Context, url string) ([]byte, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response from %s: %w", url, err)
		}
		return body, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		URL:        url,
		Body:       string(snippet),
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				return nil, &RateLimitError{RetryAfter: secs}
			}
		}
	}

	return nil, httpErr
}

// retryable reports whether an error is worth another attempt.
func retryable(err error) bool {
	switch e := err.(type) {
	case *HTTPError:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	case *RateLimitError:
		return true
	case *DecodeError:
		return false
	}
	// Wrapped network errors: retry unless the context was cancelled.
	return true
}
