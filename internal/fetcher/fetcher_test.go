package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webharvest/internal/fetcher"
)

func newFetcher(timeout time.Duration) *fetcher.Fetcher {
	return fetcher.New(fetcher.Config{
		UserAgent:      "test-agent/1.0",
		RequestTimeout: timeout,
	})
}

func TestGetHTML(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	body, err := newFetcher(5*time.Second).Get(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, body, "hello")
	assert.Equal(t, "test-agent/1.0", gotAgent)
}

func TestGetNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not": "html"}`))
	}))
	defer srv.Close()

	_, err := newFetcher(5*time.Second).Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, fetcher.ErrNonHTML)
}

func TestGetHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newFetcher(5*time.Second).Get(context.Background(), srv.URL)

	var httpErr *fetcher.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestGetRedirectTargetStatusIsSurfaced(t *testing.T) {
	// Redirects are followed; a non-200 at the end is still an error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/gone", http.StatusFound)
			return
		}
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := newFetcher(5*time.Second).Get(context.Background(), srv.URL+"/start")

	var httpErr *fetcher.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusGone, httpErr.StatusCode)
}

func TestGetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	_, err := newFetcher(20*time.Millisecond).Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, fetcher.ErrTimeout)
}

func TestGetTransportError(t *testing.T) {
	// Nothing listens on this address.
	_, err := newFetcher(2*time.Second).Get(context.Background(), "http://127.0.0.1:1/page")

	assert.Error(t, err)
	assert.False(t, errors.Is(err, fetcher.ErrTimeout))
	assert.ErrorIs(t, err, fetcher.ErrTransport)
}

func TestGetCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher(time.Second).Get(ctx, "http://example.com/")
	assert.Error(t, err)
}
