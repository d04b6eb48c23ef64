package indexer_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webharvest/internal/domain"
	"webharvest/internal/indexer"
	"webharvest/internal/logger"
	"webharvest/internal/store"
)

// esStub is a minimal Elasticsearch look-alike that records requests.
type esStub struct {
	mu       sync.Mutex
	requests []stubRequest
	handler  func(w http.ResponseWriter, r *http.Request) bool
}

type stubRequest struct {
	Method string
	Path   string
	Body   string
}

func (s *esStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, stubRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	s.mu.Unlock()

	// The v8 client refuses to talk to servers missing this header.
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if s.handler != nil && s.handler(w, r) {
		return
	}

	_, _ = w.Write([]byte(`{}`))
}

func (s *esStub) recorded() []stubRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]stubRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// writeBulkResponse emits a bulk API response with one item per status.
func writeBulkResponse(w http.ResponseWriter, statuses ...int) {
	items := make([]map[string]map[string]int, 0, len(statuses))
	hasErrors := false
	for _, status := range statuses {
		if status >= 400 {
			hasErrors = true
		}
		items = append(items, map[string]map[string]int{"index": {"status": status}})
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"errors": hasErrors,
		"items":  items,
	})
}

func newStubIndexer(t *testing.T, stub *esStub) (*indexer.Indexer, *store.Store) {
	t.Helper()

	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	contentStore := store.New(":memory:", logger.NewNoop())
	t.Cleanup(func() { _ = contentStore.Close() })

	return indexer.NewWithClient(contentStore, client, "test_index", logger.NewNoop()), contentStore
}

func testDoc(url, hash string) *domain.Document {
	return &domain.Document{
		URL:         url,
		Title:       "A Title",
		Content:     "Some meaningful content about distributed systems and consensus.",
		WordCount:   9,
		ReadingTime: 1,
		ExtractedAt: "2024-03-01T12:00:00Z",
		ContentHash: hash,
	}
}

func TestIndexSavesAndMirrors(t *testing.T) {
	stub := &esStub{}
	idx, contentStore := newStubIndexer(t, stub)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testDoc("https://example.com/a", "hash-a")))

	docs, err := contentStore.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	reqs := stub.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	// The document id is the content hash, not a hash of the URL, so
	// re-crawling the same content under a new URL cannot fork the index.
	assert.Equal(t, "/test_index/_doc/hash-a", reqs[0].Path)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &payload))
	assert.Equal(t, "https://example.com/a", payload["url"])
	assert.NotEmpty(t, payload["keywords"])
	assert.NotEmpty(t, payload["indexed_at"])
	assert.Equal(t, "example.com", payload["domain"])
}

func TestIndexDuplicateContentNotMirrored(t *testing.T) {
	stub := &esStub{}
	idx, _ := newStubIndexer(t, stub)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, testDoc("https://example.com/a", "same-hash")))
	require.NoError(t, idx.Index(ctx, testDoc("https://example.com/b", "same-hash")))

	assert.Len(t, stub.recorded(), 1, "duplicates never reach the index")
}

func TestIndexFailureDoesNotPropagate(t *testing.T) {
	stub := &esStub{handler: func(w http.ResponseWriter, _ *http.Request) bool {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
		return true
	}}
	idx, contentStore := newStubIndexer(t, stub)
	ctx := context.Background()

	// The store write succeeds even when the mirror write fails.
	require.NoError(t, idx.Index(ctx, testDoc("https://example.com/a", "hash-a")))

	docs, err := contentStore.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDegradedIndexerStillStores(t *testing.T) {
	contentStore := store.New(":memory:", logger.NewNoop())
	t.Cleanup(func() { _ = contentStore.Close() })

	idx := indexer.NewWithClient(contentStore, nil, "test_index", logger.NewNoop())
	require.True(t, idx.Degraded())

	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, testDoc("https://example.com/a", "hash-a")))

	docs, err := contentStore.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = idx.ReindexAll(ctx)
	assert.Error(t, err)
	_, err = idx.BulkIndex(ctx, nil)
	assert.Error(t, err)
}

func TestBulkIndex(t *testing.T) {
	stub := &esStub{handler: func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/_bulk" {
			writeBulkResponse(w, 201, 201)
			return true
		}
		return false
	}}
	idx, _ := newStubIndexer(t, stub)

	docs := []domain.Document{
		*testDoc("https://example.com/a", "hash-a"),
		*testDoc("https://example.com/b", "hash-b"),
	}

	n, err := idx.BulkIndex(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reqs := stub.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/_bulk", reqs[0].Path)

	// Two action lines and two document lines of ndjson, each action
	// carrying the content hash as the document id.
	lines := strings.Split(strings.TrimSpace(reqs[0].Body), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"_index":"test_index"`)
	assert.Contains(t, lines[0], `"_id":"hash-a"`)
	assert.Contains(t, lines[2], `"_id":"hash-b"`)
}

func TestBulkIndexCountsAcceptedItems(t *testing.T) {
	stub := &esStub{handler: func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/_bulk" {
			writeBulkResponse(w, 201, 500)
			return true
		}
		return false
	}}
	idx, _ := newStubIndexer(t, stub)

	docs := []domain.Document{
		*testDoc("https://example.com/a", "hash-a"),
		*testDoc("https://example.com/b", "hash-b"),
	}

	// One item was rejected; the count reflects what the index accepted,
	// not what was submitted.
	n, err := idx.BulkIndex(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReindexAll(t *testing.T) {
	stub := &esStub{handler: func(w http.ResponseWriter, r *http.Request) bool {
		switch {
		case r.Method == http.MethodDelete:
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
			return true
		case r.Method == http.MethodPut && r.URL.Path == "/test_index":
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
			return true
		case r.URL.Path == "/_bulk":
			writeBulkResponse(w, 201, 201)
			return true
		}
		return false
	}}
	idx, contentStore := newStubIndexer(t, stub)
	ctx := context.Background()

	require.True(t, contentStore.Save(ctx, testDoc("https://example.com/a", "hash-a")))
	require.True(t, contentStore.Save(ctx, testDoc("https://example.com/b", "hash-b")))

	n, err := idx.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A reindex drops the old index before recreating it with the
	// current mapping, so stale documents cannot survive.
	reqs := stub.recorded()
	require.GreaterOrEqual(t, len(reqs), 3)
	assert.Equal(t, http.MethodDelete, reqs[0].Method)
	assert.Equal(t, "/test_index", reqs[0].Path)
	assert.Equal(t, http.MethodPut, reqs[1].Method)
	assert.Equal(t, "/test_index", reqs[1].Path)
	assert.Contains(t, reqs[1].Body, `"mappings"`)
}

func TestDeleteMissingDocumentTolerated(t *testing.T) {
	stub := &esStub{handler: func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
			return true
		}
		return false
	}}
	idx, _ := newStubIndexer(t, stub)

	require.NoError(t, idx.Delete(context.Background(), "gone-hash"))

	// Deletion addresses the document by its content hash.
	reqs := stub.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/test_index/_doc/gone-hash", reqs[0].Path)
}

func TestHealth(t *testing.T) {
	stub := &esStub{handler: func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == "/_cluster/health" {
			_, _ = w.Write([]byte(`{"status":"green"}`))
			return true
		}
		return false
	}}
	idx, _ := newStubIndexer(t, stub)

	health := idx.Health(context.Background())
	assert.Equal(t, "green", health.Index)
	assert.Equal(t, "ok", health.Store)
	assert.Equal(t, "ok", health.Overall)
}

func TestHealthWithIndexDown(t *testing.T) {
	contentStore := store.New(":memory:", logger.NewNoop())
	t.Cleanup(func() { _ = contentStore.Close() })

	idx := indexer.NewWithClient(contentStore, nil, "test_index", logger.NewNoop())

	// The index is a rebuildable mirror; overall health follows the store.
	health := idx.Health(context.Background())
	assert.Equal(t, "unavailable", health.Index)
	assert.Equal(t, "ok", health.Store)
	assert.Equal(t, "ok", health.Overall)
}

func TestGetStats(t *testing.T) {
	stub := &esStub{handler: func(w http.ResponseWriter, r *http.Request) bool {
		switch r.URL.Path {
		case "/_cluster/health":
			_, _ = w.Write([]byte(`{"status":"yellow"}`))
			return true
		case "/test_index/_count":
			_, _ = w.Write([]byte(`{"count":42}`))
			return true
		case "/test_index/_stats":
			_, _ = w.Write([]byte(`{"_all":{"total":{"store":{"size_in_bytes":2048}}}}`))
			return true
		}
		return false
	}}
	idx, _ := newStubIndexer(t, stub)

	stats, err := idx.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "yellow", stats.IndexStatus)
	assert.EqualValues(t, 42, stats.TotalDocuments)
	assert.EqualValues(t, 2048, stats.IndexSize)
}

func TestGetStatsFallsBackToStore(t *testing.T) {
	contentStore := store.New(":memory:", logger.NewNoop())
	t.Cleanup(func() { _ = contentStore.Close() })

	idx := indexer.NewWithClient(contentStore, nil, "test_index", logger.NewNoop())
	ctx := context.Background()

	require.True(t, contentStore.Save(ctx, testDoc("https://example.com/a", "hash-a")))

	stats, err := idx.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, "unavailable", stats.IndexStatus)
	assert.EqualValues(t, 1, stats.TotalDocuments)
	assert.Zero(t, stats.IndexSize)
}
