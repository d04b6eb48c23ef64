// Package store persists extracted documents in a local sqlite table.
// It is the system's source of truth: the search index is only ever a
// mirror of what this store contains.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"webharvest/internal/domain"
	"webharvest/internal/logger"
)

// schema is created lazily on first use. tags is a JSON array string.
const schema = `
CREATE TABLE IF NOT EXISTS content (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT UNIQUE NOT NULL,
	title TEXT,
	description TEXT,
	content TEXT,
	author TEXT,
	publish_date TEXT,
	tags TEXT,
	word_count INTEGER,
	reading_time INTEGER,
	readability_score REAL,
	extracted_at TEXT,
	content_hash TEXT UNIQUE
);
CREATE INDEX IF NOT EXISTS idx_url ON content(url);
CREATE INDEX IF NOT EXISTS idx_content_hash ON content(content_hash);
CREATE INDEX IF NOT EXISTS idx_extracted_at ON content(extracted_at);
CREATE INDEX IF NOT EXISTS idx_tags ON content(tags);
`

// selectColumns lists the columns returned by all read queries.
const selectColumns = `url, title, description, content, author, publish_date,
	tags, word_count, reading_time, readability_score, extracted_at, content_hash`

// Store is the durable record of extracted documents, keyed by URL and by
// content fingerprint. Writes are serialized internally; reads are safe
// for concurrent use.
type Store struct {
	path string
	log  logger.Interface

	mu   sync.Mutex
	db   *sqlx.DB
	once sync.Once
}

// New creates a store backed by the sqlite file at path (":memory:" for
// an ephemeral store). The schema is initialized on first use.
func New(path string, log logger.Interface) *Store {
	return &Store{path: path, log: log}
}

// contentRow mirrors the content table for sqlx scanning.
type contentRow struct {
	URL         string  `db:"url"`
	Title       string  `db:"title"`
	Description string  `db:"description"`
	Content     string  `db:"content"`
	Author      string  `db:"author"`
	PublishDate string  `db:"publish_date"`
	TagsJSON    string  `db:"tags"`
	WordCount   int     `db:"word_count"`
	ReadingTime int     `db:"reading_time"`
	Readability float64 `db:"readability_score"`
	ExtractedAt string  `db:"extracted_at"`
	ContentHash string  `db:"content_hash"`
}

func (r *contentRow) toDocument() domain.Document {
	doc := domain.Document{
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Author:      r.Author,
		PublishDate: r.PublishDate,
		WordCount:   r.WordCount,
		ReadingTime: r.ReadingTime,
		Readability: r.Readability,
		ExtractedAt: r.ExtractedAt,
		ContentHash: r.ContentHash,
	}

	if r.TagsJSON != "" {
		// Unparseable tags degrade to none.
		_ = json.Unmarshal([]byte(r.TagsJSON), &doc.Tags)
	}

	return doc
}

// init opens the database and creates the schema once.
func (s *Store) init(ctx context.Context) (*sqlx.DB, error) {
	var initErr error

	s.once.Do(func() {
		db, err := sqlx.Open("sqlite3", s.path)
		if err != nil {
			initErr = fmt.Errorf("open database: %w", err)
			return
		}

		// sqlite allows a single writer; avoid SQLITE_BUSY under concurrency.
		db.SetMaxOpenConns(1)

		if _, err := db.ExecContext(ctx, schema); err != nil {
			initErr = fmt.Errorf("initialize schema: %w", err)
			return
		}

		s.db = db
		s.log.Info("content store initialized", "path", s.path)
	})

	if initErr != nil {
		return nil, initErr
	}
	if s.db == nil {
		return nil, fmt.Errorf("content store unavailable")
	}

	return s.db, nil
}

// Save inserts a document unless one with the same content hash already
// exists. Returns true only when a row was inserted. Failures are logged
// and reported as false; they never propagate to the crawl loop.
func (s *Store) Save(ctx context.Context, doc *domain.Document) bool {
	db, err := s.init(ctx)
	if err != nil {
		s.log.Error("save content failed", "url", doc.URL, "error", err.Error())
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing int64
	err = db.GetContext(ctx, &existing,
		"SELECT id FROM content WHERE content_hash = ?", doc.ContentHash)
	if err == nil {
		s.log.Debug("content already exists", "url", doc.URL, "content_hash", doc.ContentHash)
		return false
	}

	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		tagsJSON = []byte("[]")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO content (
			url, title, description, content, author, publish_date,
			tags, word_count, reading_time, readability_score,
			extracted_at, content_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.URL, doc.Title, doc.Description, doc.Content, doc.Author,
		doc.PublishDate, string(tagsJSON), doc.WordCount, doc.ReadingTime,
		doc.Readability, doc.ExtractedAt, doc.ContentHash,
	)
	if err != nil {
		// Constraint races on url or content_hash land here too.
		s.log.Error("save content failed", "url", doc.URL, "error", err.Error())
		return false
	}

	s.log.Info("saved content", "url", doc.URL)
	return true
}

// GetRecent returns up to limit documents, most recently extracted first.
func (s *Store) GetRecent(ctx context.Context, limit int) ([]domain.Document, error) {
	db, err := s.init(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + selectColumns + `
		FROM content
		ORDER BY extracted_at DESC
		LIMIT ?`

	return s.queryDocuments(ctx, db, query, limit)
}

// GetByTopic returns documents whose tags, title, or content contain the
// term, most recent first.
func (s *Store) GetByTopic(ctx context.Context, topic string, limit int) ([]domain.Document, error) {
	db, err := s.init(ctx)
	if err != nil {
		return nil, err
	}

	like := "%" + topic + "%"
	query := `SELECT ` + selectColumns + `
		FROM content
		WHERE tags LIKE ? OR title LIKE ? OR content LIKE ?
		ORDER BY extracted_at DESC
		LIMIT ?`

	return s.queryDocuments(ctx, db, query, like, like, like, limit)
}

// Search is the local fallback text search: title matches rank before
// description matches, which rank before content-only matches; newer
// documents first within each bucket.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]domain.Document, error) {
	db, err := s.init(ctx)
	if err != nil {
		return nil, err
	}

	like := "%" + query + "%"
	sql := `SELECT ` + selectColumns + `
		FROM content
		WHERE title LIKE ? OR description LIKE ? OR content LIKE ?
		ORDER BY
			CASE
				WHEN title LIKE ? THEN 1
				WHEN description LIKE ? THEN 2
				ELSE 3
			END,
			extracted_at DESC
		LIMIT ?`

	return s.queryDocuments(ctx, db, sql, like, like, like, like, like, limit)
}

// TagCount pairs a tag with the number of documents carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats summarizes the store contents.
type Stats struct {
	TotalContent int        `json:"total_content"`
	ContentToday int        `json:"content_today"`
	TopTags      []TagCount `json:"top_tags"`
}

// GetStats returns document counts and the ten most frequent tags.
// content_today counts documents extracted on the current UTC date.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	db, err := s.init(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TopTags: []TagCount{}}

	if err := db.GetContext(ctx, &stats.TotalContent,
		"SELECT COUNT(*) FROM content"); err != nil {
		return nil, fmt.Errorf("count content: %w", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	if err := db.GetContext(ctx, &stats.ContentToday,
		"SELECT COUNT(*) FROM content WHERE DATE(extracted_at) = ?", today); err != nil {
		return nil, fmt.Errorf("count today: %w", err)
	}

	topTags, err := s.topTags(ctx, db)
	if err != nil {
		return nil, err
	}
	stats.TopTags = topTags

	return stats, nil
}

// topTags aggregates tag occurrences by parsing each row's tags JSON.
func (s *Store) topTags(ctx context.Context, db *sqlx.DB) ([]TagCount, error) {
	var rows []string
	err := db.SelectContext(ctx, &rows,
		"SELECT tags FROM content WHERE tags IS NOT NULL AND tags != '' AND tags != '[]'")
	if err != nil {
		return nil, fmt.Errorf("select tags: %w", err)
	}

	counts := make(map[string]int)
	for _, raw := range rows {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			continue
		}
		for _, tag := range tags {
			counts[tag]++
		}
	}

	top := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		top = append(top, TagCount{Tag: tag, Count: count})
	}

	sortTagCounts(top)

	const maxTopTags = 10
	if len(top) > maxTopTags {
		top = top[:maxTopTags]
	}

	return top, nil
}

// queryDocuments runs a read query and converts the rows to documents.
func (s *Store) queryDocuments(
	ctx context.Context,
	db *sqlx.DB,
	query string,
	args ...any,
) ([]domain.Document, error) {
	var rows []contentRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}

	docs := make([]domain.Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, rows[i].toDocument())
	}

	return docs, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
