// Package search runs full-text queries against the Elasticsearch index.
// It is read-only over the index; writes go through the indexer.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"

	"webharvest/internal/domain"
	"webharvest/internal/logger"
)

// DefaultLimit is the result count used when a query does not set one.
const DefaultLimit = 10

// Query describes one search. Zero-valued filters are omitted from the
// generated Elasticsearch query.
type Query struct {
	Text   string
	Author string
	Tags   []string
	// From and To bound publish_date, inclusive, in ISO-8601.
	From  string
	To    string
	Limit int
}

// Result is one search hit: the indexed document, its relevance score, and
// any highlight fragments keyed by field name.
type Result struct {
	Document   domain.Document
	Score      float64
	Highlights map[string][]string
}

// Topic is a trending keyword with its document count.
type Topic struct {
	Keyword string `json:"keyword"`
	Count   int64  `json:"count"`
}

// Searcher queries the search index.
type Searcher struct {
	client *elasticsearch.Client
	index  string
	log    logger.Interface
}

// New creates a searcher against the given Elasticsearch URL. The
// connection is verified so callers can fall back to the local store.
func New(esURL, indexName string, log logger.Interface) (*Searcher, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Ping()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch ping: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch ping: %s", res.String())
	}

	return &Searcher{client: client, index: indexName, log: log}, nil
}

// NewWithClient creates a searcher with a preconfigured client.
func NewWithClient(client *elasticsearch.Client, indexName string, log logger.Interface) *Searcher {
	return &Searcher{client: client, index: indexName, log: log}
}

// Search runs the query and returns scored hits with highlights, best
// score first, ties broken by newest publish date.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score     float64             `json:"_score"`
				Source    domain.Document     `json:"_source"`
				Highlight map[string][]string `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		results = append(results, Result{
			Document:   hit.Source,
			Score:      hit.Score,
			Highlights: hit.Highlight,
		})
	}

	return results, nil
}

// buildQuery assembles the Elasticsearch request body: a multi_match over
// the prose fields weighted toward titles, optional filters, highlighting,
// and a score-then-recency sort.
func buildQuery(q Query) map[string]any {
	must := []map[string]any{{
		"multi_match": map[string]any{
			"query":  q.Text,
			"fields": []string{"title^3", "content^2", "description"},
		},
	}}

	var filters []map[string]any
	if q.Author != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"author": q.Author},
		})
	}
	if len(q.Tags) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"tags": q.Tags},
		})
	}
	if q.From != "" || q.To != "" {
		dateRange := map[string]any{}
		if q.From != "" {
			dateRange["gte"] = q.From
		}
		if q.To != "" {
			dateRange["lte"] = q.To
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"publish_date": dateRange},
		})
	}

	boolQuery := map[string]any{"must": must}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"size":  q.Limit,
		"sort": []map[string]any{
			{"_score": map[string]any{"order": "desc"}},
			{"publish_date": map[string]any{
				"order":         "desc",
				"unmapped_type": "date",
			}},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"title":   map[string]any{},
				"content": map[string]any{"fragment_size": 150, "number_of_fragments": 3},
			},
		},
	}
}

// TrendingTopics aggregates the most frequent keywords among documents
// indexed within the last days days.
func (s *Searcher) TrendingTopics(ctx context.Context, days, size int) ([]Topic, error) {
	if size <= 0 {
		size = DefaultLimit
	}

	query := map[string]any{
		"size": 0,
		"query": map[string]any{
			"range": map[string]any{
				"indexed_at": map[string]any{
					"gte": fmt.Sprintf("now-%dd/d", days),
				},
			},
		},
		"aggs": map[string]any{
			"trending": map[string]any{
				"terms": map[string]any{
					"field": "keywords",
					"size":  size,
				},
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("trending topics: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("trending topics: %s", res.String())
	}

	var parsed struct {
		Aggregations struct {
			Trending struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"trending"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	topics := make([]Topic, 0, len(parsed.Aggregations.Trending.Buckets))
	for _, bucket := range parsed.Aggregations.Trending.Buckets {
		topics = append(topics, Topic{Keyword: bucket.Key, Count: bucket.DocCount})
	}

	return topics, nil
}
