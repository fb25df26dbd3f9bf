// Package client is the HTTP client for the SecureScout API. It is used by
// the CLI and by the config proxy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/0x6d61/securescout/internal/model"
)

// DefaultTimeout is the request timeout used when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Stats holds aggregate statistics for the client.
type Stats struct {
	TotalRequests int64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// Options holds configuration for creating a new Client.
type Options struct {
	// BaseURL is the server root, e.g. http://127.0.0.1:8000.
	BaseURL string

	// Timeout is the per-request timeout (DefaultTimeout when zero).
	Timeout time.Duration

	// MaxRPS is the maximum requests per second (0 = unlimited).
	MaxRPS float64

	// UserAgent is sent with every request when set.
	UserAgent string

	// Logger receives request failures. Defaults to slog.Default().
	Logger *slog.Logger

	// HTTPClient replaces the underlying http.Client. Its Timeout is
	// left untouched.
	HTTPClient *http.Client
}

// Client sends JSON requests to the API. It never retries.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger

	limiterMu sync.RWMutex
	limiter   *rate.Limiter

	mu              sync.RWMutex
	totalRequests   int64
	totalDurationNs int64
}

// New creates a Client for opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q is not an absolute http(s) URL", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		base:       base,
		httpClient: httpClient,
		userAgent:  opts.UserAgent,
		logger:     logger,
	}
	c.SetRateLimit(opts.MaxRPS)
	return c, nil
}

// SetRateLimit sets the maximum number of requests per second.
// A value of 0 or less disables rate limiting.
func (c *Client) SetRateLimit(rps float64) {
	c.limiterMu.Lock()
	defer c.limiterMu.Unlock()
	if rps <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// Stats returns aggregate request statistics.
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		TotalRequests: c.totalRequests,
		TotalDuration: time.Duration(c.totalDurationNs),
	}
	if c.totalRequests > 0 {
		stats.AvgDuration = time.Duration(c.totalDurationNs / c.totalRequests)
	}
	return stats
}

// Scans returns the scan endpoints.
func (c *Client) Scans() *ScanAPI { return &ScanAPI{c: c} }

// Reports returns the report endpoints.
func (c *Client) Reports() *ReportAPI { return &ReportAPI{c: c} }

// Config returns the configuration endpoints.
func (c *Client) Config() *ConfigAPI { return &ConfigAPI{c: c} }

// do sends one request. in, when non-nil, is encoded as the JSON body; a
// successful response body is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	err := c.send(ctx, method, path, query, in, out)
	if err != nil {
		c.logger.Error("API request error", "method", method, "path", path, "error", err)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, in, out any) error {
	c.limiterMu.RLock()
	limiter := c.limiter
	c.limiterMu.RUnlock()
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.mu.Lock()
	c.totalRequests++
	c.totalDurationNs += duration.Nanoseconds()
	c.mu.Unlock()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	var er model.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Detail != "" {
		return &APIError{StatusCode: status, Detail: er.Detail}
	}
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Detail: detail}
}
