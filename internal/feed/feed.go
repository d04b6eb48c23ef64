// Package feed renders the content store as RSS 2.0 or JSON Feed 1.1.
// Feeds are generated on demand from the store; nothing is cached.
package feed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"

	"webharvest/internal/domain"
	"webharvest/internal/logger"
	"webharvest/internal/store"
	"webharvest/internal/textutil"
)

// descriptionMaxLen bounds item descriptions when a document has no
// explicit description and the content is used instead.
const descriptionMaxLen = 300

// Config carries the channel metadata for generated feeds.
type Config struct {
	Title       string
	Description string
	Link        string
	MaxItems    int
}

// Generator builds feeds from the content store.
type Generator struct {
	store *store.Store
	cfg   Config
	log   logger.Interface
}

// New creates a feed generator over the store.
func New(contentStore *store.Store, cfg Config, log logger.Interface) *Generator {
	return &Generator{store: contentStore, cfg: cfg, log: log}
}

// RSS generates an RSS 2.0 feed of the most recent documents. A non-empty
// topic restricts items to documents matching it.
func (g *Generator) RSS(ctx context.Context, topic string) (string, error) {
	docs, err := g.loadItems(ctx, topic)
	if err != nil {
		return "", err
	}

	channel := rssChannel{
		Title:         g.channelTitle(topic),
		Link:          g.cfg.Link,
		Description:   g.cfg.Description,
		LastBuildDate: time.Now().UTC().Format(time.RFC1123Z),
	}

	for i := range docs {
		channel.Items = append(channel.Items, toRSSItem(&docs[i]))
	}

	doc := rssDocument{Version: "2.0", Channel: channel}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal rss: %w", err)
	}

	return xml.Header + string(out), nil
}

// JSON generates a JSON Feed 1.1 document of the most recent documents. A
// non-empty topic restricts items to documents matching it.
func (g *Generator) JSON(ctx context.Context, topic string) (string, error) {
	docs, err := g.loadItems(ctx, topic)
	if err != nil {
		return "", err
	}

	feed := jsonFeed{
		Version:     "https://jsonfeed.org/version/1.1",
		Title:       g.channelTitle(topic),
		HomePageURL: g.cfg.Link,
		Description: g.cfg.Description,
		Items:       make([]jsonItem, 0, len(docs)),
	}

	for i := range docs {
		feed.Items = append(feed.Items, toJSONItem(&docs[i]))
	}

	out, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json feed: %w", err)
	}

	return string(out), nil
}

// loadItems fetches the documents for a feed, newest first, capped at the
// configured item limit.
func (g *Generator) loadItems(ctx context.Context, topic string) ([]domain.Document, error) {
	limit := g.cfg.MaxItems
	if limit <= 0 {
		limit = 50
	}

	if topic != "" {
		return g.store.GetByTopic(ctx, topic, limit)
	}
	return g.store.GetRecent(ctx, limit)
}

func (g *Generator) channelTitle(topic string) string {
	if topic == "" {
		return g.cfg.Title
	}
	return fmt.Sprintf("%s: %s", g.cfg.Title, topic)
}

// itemDescription prefers the extracted description, falling back to a
// truncated slice of the content.
func itemDescription(doc *domain.Document) string {
	if doc.Description != "" {
		return doc.Description
	}
	return textutil.TruncateText(doc.Content, descriptionMaxLen)
}

// itemDate picks the publish date when present, otherwise the extraction
// time, normalized to RFC1123Z for RSS.
func itemDate(doc *domain.Document) string {
	raw := doc.PublishDate
	if raw == "" {
		raw = doc.ExtractedAt
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return ""
	}
	return parsed.Format(time.RFC1123Z)
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link,omitempty"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	Author      string   `xml:"author,omitempty"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category,omitempty"`
}

func toRSSItem(doc *domain.Document) rssItem {
	return rssItem{
		Title:       doc.Title,
		Link:        doc.URL,
		Description: itemDescription(doc),
		Author:      doc.Author,
		PubDate:     itemDate(doc),
		GUID:        doc.URL,
		Categories:  doc.Tags,
	}
}

type jsonFeed struct {
	Version     string     `json:"version"`
	Title       string     `json:"title"`
	HomePageURL string     `json:"home_page_url,omitempty"`
	Description string     `json:"description,omitempty"`
	Items       []jsonItem `json:"items"`
}

type jsonItem struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title,omitempty"`
	ContentText   string   `json:"content_text"`
	Summary       string   `json:"summary,omitempty"`
	DatePublished string   `json:"date_published,omitempty"`
	Authors       []author `json:"authors,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

type author struct {
	Name string `json:"name"`
}

func toJSONItem(doc *domain.Document) jsonItem {
	item := jsonItem{
		ID:          doc.URL,
		URL:         doc.URL,
		Title:       doc.Title,
		ContentText: doc.Content,
		Summary:     itemDescription(doc),
	}

	if doc.PublishDate != "" {
		item.DatePublished = doc.PublishDate
	} else if doc.ExtractedAt != "" {
		item.DatePublished = doc.ExtractedAt
	}

	if doc.Author != "" {
		item.Authors = []author{{Name: doc.Author}}
	}

	item.Tags = doc.Tags

	return item
}
