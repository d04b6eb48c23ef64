// Package crawler orchestrates the crawl pipeline: dequeue from the
// frontier, fetch, extract, persist, discover links, mark visited. A
// failing page never aborts the crawl; only an unreachable frontier
// backend does.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"webharvest/internal/config"
	"webharvest/internal/domain"
	"webharvest/internal/extractor"
	"webharvest/internal/fetcher"
	"webharvest/internal/frontier"
	"webharvest/internal/logger"
	"webharvest/internal/urlutil"
)

// progressLogInterval controls how often crawl progress is logged.
const progressLogInterval = 10

// DocumentSink receives extracted documents. The indexing bridge is the
// production sink; it persists to the store and mirrors into the index.
type DocumentSink interface {
	Index(ctx context.Context, doc *domain.Document) error
}

// RobotsPolicy gates URLs on robots.txt compliance.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) bool
}

// Crawler runs the fetch-extract-store loop over the frontier.
type Crawler struct {
	cfg      config.CrawlerConfig
	frontier frontier.Frontier
	fetcher  *fetcher.Fetcher
	robots   RobotsPolicy // nil disables robots checking
	extract  *extractor.Extractor
	sink     DocumentSink
	log      logger.Interface

	crawledCount int
}

// New creates a crawler. robots may be nil to disable robots.txt checks.
func New(
	cfg config.CrawlerConfig,
	front frontier.Frontier,
	fetch *fetcher.Fetcher,
	robots RobotsPolicy,
	sink DocumentSink,
	log logger.Interface,
) *Crawler {
	return &Crawler{
		cfg:      cfg,
		frontier: front,
		fetcher:  fetch,
		robots:   robots,
		extract:  extractor.New(),
		sink:     sink,
		log:      log,
	}
}

// Seed enqueues the seed URLs at the highest priority.
func (c *Crawler) Seed(ctx context.Context, seedURLs []string) error {
	for _, seed := range seedURLs {
		if err := c.frontier.Add(ctx, urlutil.Normalize(seed), domain.PrioritySeed); err != nil {
			return fmt.Errorf("seed %q: %w", seed, err)
		}
	}

	c.log.Info("seeded frontier", "count", len(seedURLs))
	return nil
}

// Crawl drains the frontier until it is empty, the page budget is
// exhausted, or the context is cancelled. Per-URL failures are absorbed;
// a frontier backend failure is returned to the caller.
func (c *Crawler) Crawl(ctx context.Context) error {
	c.log.Info("starting crawl", "max_pages", c.cfg.MaxPages)

	for c.crawledCount < c.cfg.MaxPages {
		select {
		case <-ctx.Done():
			c.log.Info("crawl cancelled", "crawled", c.crawledCount)
			return nil
		default:
		}

		url, err := c.frontier.Next(ctx)
		if errors.Is(err, frontier.ErrEmpty) {
			c.log.Info("no more URLs to crawl", "crawled", c.crawledCount)
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", frontier.ErrBackendUnavailable, err)
		}

		crawled, err := c.frontier.IsCrawled(ctx, url)
		if err != nil {
			return fmt.Errorf("%w: %v", frontier.ErrBackendUnavailable, err)
		}
		if crawled {
			continue
		}

		c.processPage(ctx, url)
		c.crawledCount++

		if c.crawledCount%progressLogInterval == 0 {
			c.log.Info("crawl progress", "crawled", c.crawledCount)
		}

		c.sleep(ctx, url)
	}

	c.log.Info("page budget reached", "crawled", c.crawledCount)
	return nil
}

// CrawledCount returns the number of URLs processed so far.
func (c *Crawler) CrawledCount() int {
	return c.crawledCount
}

// processPage runs one URL through the pipeline. Every path ends with the
// URL marked visited; errors are logged and absorbed so a single failing
// page cannot abort the crawl.
func (c *Crawler) processPage(ctx context.Context, url string) {
	if c.robots != nil && !c.robots.IsAllowed(ctx, url) {
		c.log.Info("blocked by robots.txt", "url", url)
		c.markCrawled(ctx, url)
		return
	}

	html, err := c.fetcher.Get(ctx, url)
	if err != nil {
		c.log.Warn("fetch failed", "url", url, "error", err.Error())
		c.markCrawled(ctx, url)
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		c.log.Warn("parse failed", "url", url, "error", err.Error())
		c.markCrawled(ctx, url)
		return
	}

	// Extraction cleans the DOM in place; links are collected afterwards
	// so chrome links vanish with the chrome.
	extracted, err := c.extract.Extract(url, doc)
	switch {
	case errors.Is(err, extractor.ErrNoContent):
		c.log.Debug("no main content", "url", url)
	case err != nil:
		c.log.Warn("extraction failed", "url", url, "error", err.Error())
	case len(extracted.Content) >= c.cfg.MinContentLength:
		if sinkErr := c.sink.Index(ctx, extracted); sinkErr != nil {
			c.log.Error("sink failed", "url", url, "error", sinkErr.Error())
		} else {
			c.log.Info("extracted content", "url", url, "words", extracted.WordCount)
		}
	}

	c.enqueueLinks(ctx, url, doc)
	c.markCrawled(ctx, url)
}

// enqueueLinks resolves and filters outbound links, pushing survivors
// into the frontier at link priority.
func (c *Crawler) enqueueLinks(ctx context.Context, baseURL string, doc *goquery.Document) {
	for _, link := range c.ExtractLinks(baseURL, doc) {
		if err := c.frontier.Add(ctx, link, domain.PriorityLink); err != nil {
			c.log.Warn("enqueue link failed", "url", link, "error", err.Error())
		}
	}
}

// ExtractLinks returns the normalized outbound links of the page that
// pass the crawl filters: valid URL, no excluded extension, and at least
// one useful-pattern match.
func (c *Crawler) ExtractLinks(baseURL string, doc *goquery.Document) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved := resolveRef(base, href)
		if resolved == "" {
			return
		}

		if !c.shouldEnqueue(resolved) {
			return
		}

		normalized := urlutil.Normalize(resolved)
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})

	return links
}

// shouldEnqueue applies the link filter rules from configuration.
func (c *Crawler) shouldEnqueue(rawURL string) bool {
	if !urlutil.IsValid(rawURL) {
		return false
	}

	if urlutil.HasExcludedExtension(rawURL, c.cfg.ExcludedExtensions) {
		return false
	}

	return urlutil.MatchesAny(rawURL, c.cfg.UsefulURLPatterns)
}

// markCrawled records the URL as visited. A failure here is logged but
// not fatal; the URL may be re-crawled and content dedup absorbs it.
func (c *Crawler) markCrawled(ctx context.Context, url string) {
	if err := c.frontier.MarkCrawled(ctx, url); err != nil {
		c.log.Error("mark crawled failed", "url", url, "error", err.Error())
	}
}

// resolveRef resolves href against the page URL, returning "" for
// anchors, javascript/mailto schemes, and unparseable references.
func resolveRef(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}

// sleep enforces the politeness delay between requests, honoring
// per-domain overrides and context cancellation.
func (c *Crawler) sleep(ctx context.Context, lastURL string) {
	delay := urlutil.RateLimitDelay(urlutil.ExtractHost(lastURL), c.cfg.DelayBetweenRequest)
	if delay <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
