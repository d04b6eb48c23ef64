// Package domain defines the data types shared across the crawl pipeline.
package domain

// Tags is a JSON-encoded ordered set of tag strings, at most ten.
// It is stored as a JSON array string in the content table.
type Tags []string

// Document is the structured record extracted from a page. It is the unit
// persisted by the content store and mirrored into the search index.
type Document struct {
	ID          int64   `db:"id" json:"-"`
	URL         string  `db:"url" json:"url"`
	Title       string  `db:"title" json:"title,omitempty"`
	Description string  `db:"description" json:"description,omitempty"`
	Content     string  `db:"content" json:"content"`
	Author      string  `db:"author" json:"author,omitempty"`
	PublishDate string  `db:"publish_date" json:"publish_date,omitempty"`
	Tags        Tags    `db:"-" json:"tags,omitempty"`
	WordCount   int     `db:"word_count" json:"word_count"`
	ReadingTime int     `db:"reading_time" json:"reading_time"`
	Readability float64 `db:"readability_score" json:"readability_score"`
	ExtractedAt string  `db:"extracted_at" json:"extracted_at"`
	ContentHash string  `db:"content_hash" json:"content_hash"`
}

// FrontierEntry describes a URL queued for crawling.
type FrontierEntry struct {
	URL      string
	Priority int
	Domain   string
	AddedAt  float64
}

// Frontier priorities. Seeds crawl strictly before discovered links.
const (
	PrioritySeed = 10
	PriorityLink = 1
)
