// Package fetcher provides the bounded-concurrency HTTP client used by the
// crawl loop, with per-host connection caps, request timeouts, and
// content-type gating, plus robots.txt compliance checking.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Connection limits and response bounds.
const (
	// DefaultMaxConns caps concurrent requests across all hosts.
	DefaultMaxConns = 100
	// DefaultMaxConnsPerHost caps concurrent connections to a single host.
	DefaultMaxConnsPerHost = 10
	// maxResponseBodyBytes limits the size of fetched page responses.
	maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB
)

// Fetch failure classifications. The crawl loop treats all of them the
// same way (mark visited, move on) but logs the reason.
var (
	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("fetch timeout")
	// ErrNonHTML indicates a 200 response whose Content-Type is not text/html.
	ErrNonHTML = errors.New("response is not text/html")
	// ErrTransport indicates a connection-level failure.
	ErrTransport = errors.New("transport error")
)

// HTTPError is returned for non-200 status codes.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// Config holds fetcher settings.
type Config struct {
	UserAgent       string
	RequestTimeout  time.Duration
	MaxConns        int
	MaxConnsPerHost int
}

// Fetcher is a pooled HTTP client that yields HTML pages. It never
// retries; retry policy belongs to the caller.
type Fetcher struct {
	client    *http.Client
	userAgent string
	// slots bounds in-flight requests across all hosts.
	slots chan struct{}
}

// New creates a fetcher with the given configuration. Zero values fall
// back to the defaults.
func New(cfg Config) *Fetcher {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultMaxConns
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = DefaultMaxConnsPerHost
	}

	transport := &http.Transport{
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxIdleConns:        cfg.MaxConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
		slots:     make(chan struct{}, cfg.MaxConns),
	}
}

// NewClient returns a plain HTTP client with the given timeout, suitable
// for side requests like robots.txt that bypass the fetcher's slot pool.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Get fetches the URL and returns the HTML body. It succeeds only for a
// 200 response whose Content-Type contains text/html; every failure is
// classified as ErrTimeout, ErrNonHTML, *HTTPError, or ErrTransport.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (string, error) {
	select {
	case f.slots <- struct{}{}:
		defer func() { <-f.slots }()
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode}
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return "", ErrNonHTML
	}

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", classifyTransportError(err)
	}

	return string(body), nil
}

// classifyTransportError separates timeouts from other transport failures.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrTransport, err)
}
