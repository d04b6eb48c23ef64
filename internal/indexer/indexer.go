// Package indexer bridges the content store and the Elasticsearch index.
// The store is the source of truth; the index is a derived mirror that can
// always be rebuilt from it. When Elasticsearch is unreachable the bridge
// degrades to store-only operation instead of failing the crawl.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"

	"webharvest/internal/domain"
	"webharvest/internal/logger"
	"webharvest/internal/store"
	"webharvest/internal/textutil"
	"webharvest/internal/urlutil"
)

const (
	// maxKeywords caps the keyword list mirrored into each index document.
	maxKeywords = 20
	// reindexBatchSize bounds each bulk request during a full reindex.
	reindexBatchSize = 100
)

// mapping defines the index schema. Exact-match fields are keywords,
// searchable prose is text; a single shard suits a single-node deployment.
const mapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	},
	"mappings": {
		"properties": {
			"url":    {"type": "keyword"},
			"domain": {"type": "keyword"},
			"title": {
				"type": "text", "analyzer": "standard",
				"fields": {"keyword": {"type": "keyword", "ignore_above": 256}}
			},
			"description": {"type": "text", "analyzer": "standard"},
			"content":     {"type": "text", "analyzer": "standard"},
			"author":      {"type": "keyword"},
			"publish_date": {
				"type": "date",
				"format": "strict_date_optional_time||epoch_millis",
				"ignore_malformed": true
			},
			"tags":              {"type": "keyword"},
			"keywords":          {"type": "keyword"},
			"word_count":        {"type": "integer"},
			"reading_time":      {"type": "integer"},
			"readability_score": {"type": "float"},
			"extracted_at": {
				"type": "date",
				"format": "strict_date_optional_time||epoch_millis"
			},
			"indexed_at": {
				"type": "date",
				"format": "strict_date_optional_time||epoch_millis"
			},
			"content_hash": {"type": "keyword"}
	    }
	}
}`

// indexDocument is the wire form of a document in the search index. It is
// the stored document plus derived fields.
type indexDocument struct {
	domain.Document
	Domain    string   `json:"domain,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	IndexedAt string   `json:"indexed_at"`
}

// Indexer persists documents to the store and mirrors them into
// Elasticsearch. A nil client means degraded, store-only operation.
type Indexer struct {
	store  *store.Store
	client *elasticsearch.Client
	index  string
	log    logger.Interface
}

// New creates an indexer over the given store. Elasticsearch connection
// failures are logged and tolerated; the indexer then runs store-only.
func New(contentStore *store.Store, esURL, indexName string, log logger.Interface) *Indexer {
	idx := &Indexer{
		store: contentStore,
		index: indexName,
		log:   log,
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		log.Warn("elasticsearch unavailable, running store-only", "error", err.Error())
		return idx
	}

	if pingErr := ping(client); pingErr != nil {
		log.Warn("elasticsearch unreachable, running store-only",
			"url", esURL, "error", pingErr.Error())
		return idx
	}

	idx.client = client
	return idx
}

// NewWithClient creates an indexer with a preconfigured client. Tests use
// it to point the indexer at a stub server.
func NewWithClient(contentStore *store.Store, client *elasticsearch.Client, indexName string, log logger.Interface) *Indexer {
	return &Indexer{
		store:  contentStore,
		client: client,
		index:  indexName,
		log:    log,
	}
}

func ping(client *elasticsearch.Client) error {
	res, err := client.Ping()
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ping: %s", res.String())
	}
	return nil
}

// Degraded reports whether the indexer is running without Elasticsearch.
func (i *Indexer) Degraded() bool {
	return i.client == nil
}

// EnsureIndex creates the index with its mapping if it does not exist.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	if i.client == nil {
		return nil
	}

	res, err := i.client.Indices.Exists(
		[]string{i.index},
		i.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	return i.createIndex(ctx)
}

func (i *Indexer) createIndex(ctx context.Context) error {
	res, err := i.client.Indices.Create(
		i.index,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index: %s", res.String())
	}

	i.log.Info("created index", "index", i.index)
	return nil
}

// recreateIndex drops the index if it exists and creates it fresh with
// the current mapping.
func (i *Indexer) recreateIndex(ctx context.Context) error {
	res, err := i.client.Indices.Delete(
		[]string{i.index},
		i.client.Indices.Delete.WithContext(ctx),
		i.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("delete index: %s", res.String())
	}

	return i.createIndex(ctx)
}

// Index persists the document to the store and, if it was new, mirrors it
// into Elasticsearch. Duplicate content is dropped silently; an index
// failure is logged but never propagated, keeping the store authoritative.
func (i *Indexer) Index(ctx context.Context, doc *domain.Document) error {
	if !i.store.Save(ctx, doc) {
		return nil
	}

	if i.client == nil {
		return nil
	}

	if err := i.indexOne(ctx, doc); err != nil {
		i.log.Error("index document failed", "url", doc.URL, "error", err.Error())
	}
	return nil
}

func (i *Indexer) indexOne(ctx context.Context, doc *domain.Document) error {
	body, err := json.Marshal(toIndexDocument(doc))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	// The content fingerprint is the document's identity in the index,
	// matching the store's dedup key, so re-indexing is idempotent.
	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(doc.ContentHash),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document: %s", res.String())
	}
	return nil
}

// BulkIndex mirrors a batch of documents into the index with a single
// bulk request. It returns the number of documents the index actually
// accepted; per-item failures reduce the count rather than erroring.
func (i *Indexer) BulkIndex(ctx context.Context, docs []domain.Document) (int, error) {
	if i.client == nil {
		return 0, fmt.Errorf("elasticsearch unavailable")
	}
	if len(docs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for idx := range docs {
		doc := &docs[idx]

		action := map[string]map[string]string{
			"index": {"_index": i.index, "_id": doc.ContentHash},
		}
		actionLine, err := json.Marshal(action)
		if err != nil {
			return 0, fmt.Errorf("marshal bulk action: %w", err)
		}
		docLine, err := json.Marshal(toIndexDocument(doc))
		if err != nil {
			return 0, fmt.Errorf("marshal document: %w", err)
		}

		buf.Write(actionLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	res, err := i.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		i.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("bulk index: %s", res.String())
	}

	var parsed struct {
		Items []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}

	accepted := 0
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Status == 200 || op.Status == 201 {
				accepted++
			}
		}
	}

	if accepted < len(docs) {
		i.log.Warn("bulk index partially failed",
			"submitted", len(docs), "accepted", accepted)
	}

	return accepted, nil
}

// ReindexAll rebuilds the index from the store, the recovery path when
// the index is lost or its mapping changes. The index is recreated from
// scratch so stale documents and old mappings do not survive. Returns the
// number of documents the index accepted.
func (i *Indexer) ReindexAll(ctx context.Context) (int, error) {
	if i.client == nil {
		return 0, fmt.Errorf("elasticsearch unavailable")
	}

	if err := i.recreateIndex(ctx); err != nil {
		return 0, err
	}

	// The store is small enough to page in memory-sized batches.
	const fetchLimit = 1 << 20
	docs, err := i.store.GetRecent(ctx, fetchLimit)
	if err != nil {
		return 0, fmt.Errorf("load documents: %w", err)
	}

	total := 0
	for start := 0; start < len(docs); start += reindexBatchSize {
		end := start + reindexBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		n, err := i.BulkIndex(ctx, docs[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}

	i.log.Info("reindex complete", "indexed", total)
	return total, nil
}

// Delete removes a document from the index by its content fingerprint.
// The store row is left untouched; deletion from the source of truth is a
// separate decision.
func (i *Indexer) Delete(ctx context.Context, contentHash string) error {
	if i.client == nil {
		return fmt.Errorf("elasticsearch unavailable")
	}

	res, err := i.client.Delete(
		i.index,
		contentHash,
		i.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete document: %s", res.String())
	}
	return nil
}

// HealthStatus reports the bridge's view of both backends. Overall
// follows the store: the index is a rebuildable mirror, so a dead index
// with a live store is still a healthy system.
type HealthStatus struct {
	Index   string `json:"index"`
	Store   string `json:"store"`
	Overall string `json:"overall"`
}

// Health checks the store and the index. It never fails: an unreachable
// backend is reported as "unavailable" in the result.
func (i *Indexer) Health(ctx context.Context) *HealthStatus {
	health := &HealthStatus{Index: "unavailable", Store: "unavailable"}

	if _, err := i.store.GetStats(ctx); err == nil {
		health.Store = "ok"
	}

	if i.client != nil {
		if status, err := i.clusterStatus(ctx); err == nil {
			health.Index = status
		}
	}

	health.Overall = health.Store
	return health
}

// Stats summarizes the indexed corpus. Degraded mode falls back to the
// store for the document count and reports the index as unavailable.
type Stats struct {
	TotalDocuments int64  `json:"total_documents"`
	IndexSize      int64  `json:"index_size"`
	IndexStatus    string `json:"index_status"`
}

// GetStats returns document count and index size. With Elasticsearch down
// the count comes from the store and the size is zero.
func (i *Indexer) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{IndexStatus: "unavailable"}

	if i.client != nil {
		if status, err := i.clusterStatus(ctx); err == nil {
			stats.IndexStatus = status
		}
	}

	if stats.IndexStatus != "unavailable" {
		count, err := i.documentCount(ctx)
		if err == nil {
			stats.TotalDocuments = count
			if size, sizeErr := i.indexSize(ctx); sizeErr == nil {
				stats.IndexSize = size
			}
			return stats, nil
		}
		i.log.Warn("index stats failed, falling back to store", "error", err.Error())
	}

	storeStats, err := i.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("store stats: %w", err)
	}
	stats.TotalDocuments = int64(storeStats.TotalContent)

	return stats, nil
}

func (i *Indexer) clusterStatus(ctx context.Context) (string, error) {
	res, err := i.client.Cluster.Health(
		i.client.Cluster.Health.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("cluster health: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return "", fmt.Errorf("cluster health: %s", res.String())
	}

	var cluster struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&cluster); err != nil {
		return "", fmt.Errorf("decode health: %w", err)
	}

	return cluster.Status, nil
}

// indexSize reads the index's on-disk size in bytes from the stats API.
func (i *Indexer) indexSize(ctx context.Context) (int64, error) {
	res, err := i.client.Indices.Stats(
		i.client.Indices.Stats.WithContext(ctx),
		i.client.Indices.Stats.WithIndex(i.index),
	)
	if err != nil {
		return 0, fmt.Errorf("index stats: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("index stats: %s", res.String())
	}

	var parsed struct {
		All struct {
			Total struct {
				Store struct {
					SizeInBytes int64 `json:"size_in_bytes"`
				} `json:"store"`
			} `json:"total"`
		} `json:"_all"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode index stats: %w", err)
	}

	return parsed.All.Total.Store.SizeInBytes, nil
}

func (i *Indexer) documentCount(ctx context.Context) (int64, error) {
	res, err := i.client.Count(
		i.client.Count.WithContext(ctx),
		i.client.Count.WithIndex(i.index),
	)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("count documents: %s", res.String())
	}

	var count struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&count); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}

	return count.Count, nil
}

// toIndexDocument augments a stored document with its registered domain,
// keyword list, and indexing timestamp.
func toIndexDocument(doc *domain.Document) indexDocument {
	return indexDocument{
		Document:  *doc,
		Domain:    urlutil.ExtractHost(doc.URL),
		Keywords:  textutil.ExtractKeywords(doc.Title+" "+doc.Content, maxKeywords),
		IndexedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
