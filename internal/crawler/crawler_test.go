package crawler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webharvest/internal/config"
	"webharvest/internal/crawler"
	"webharvest/internal/domain"
	"webharvest/internal/fetcher"
	"webharvest/internal/frontier"
	"webharvest/internal/logger"
)

const articleBody = "This article body is comfortably long enough to pass the " +
	"minimum content threshold used by the extractor, with plenty of words to " +
	"count toward the reading statistics and the content fingerprint that the " +
	"store uses to reject duplicates across differently addressed pages."

// captureSink records every document handed to it.
type captureSink struct {
	mu   sync.Mutex
	docs []*domain.Document
}

func (s *captureSink) Index(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	s.docs = append(s.docs, doc)
	s.mu.Unlock()
	return nil
}

func (s *captureSink) urls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0, len(s.docs))
	for _, doc := range s.docs {
		urls = append(urls, doc.URL)
	}
	return urls
}

// denyAll blocks every URL.
type denyAll struct{}

func (denyAll) IsAllowed(context.Context, string) bool { return false }

func testConfig(maxPages int) config.CrawlerConfig {
	return config.CrawlerConfig{
		MaxPages:            maxPages,
		DelayBetweenRequest: 0,
		RequestTimeout:      5 * time.Second,
		UserAgent:           "test-agent/1.0",
		MinContentLength:    50,
		UsefulURLPatterns:   []string{`/article/`},
		ExcludedExtensions:  []string{".pdf", ".jpg"},
	}
}

func articlePage(title string) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head>
		<body><article>%s %s</article></body></html>`, title, title, articleBody)
}

func newCrawlSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")

		switch r.URL.Path {
		case "/article/index":
			fmt.Fprintf(w, `<html><body>
				<article>Index page. %s</article>
				<a href="/article/one">one</a>
				<a href="/article/two?utm_source=feed">two</a>
				<a href="/article/one#comments">one again</a>
				<a href="/about">about</a>
				<a href="/article/paper.pdf">paper</a>
				<a href="mailto:x@example.com">mail</a>
			</body></html>`, articleBody)
		case "/article/one":
			fmt.Fprint(w, articlePage("Article One"))
		case "/article/two":
			fmt.Fprint(w, articlePage("Article Two"))
		case "/article/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func newTestCrawler(
	cfg config.CrawlerConfig,
	front frontier.Frontier,
	robots crawler.RobotsPolicy,
	sink crawler.DocumentSink,
) *crawler.Crawler {
	fetch := fetcher.New(fetcher.Config{
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout,
	})

	return crawler.New(cfg, front, fetch, robots, sink, logger.NewNoop())
}

func TestCrawlFollowsUsefulLinks(t *testing.T) {
	srv := newCrawlSite(t)
	front := frontier.NewMemory()
	sink := &captureSink{}

	c := newTestCrawler(testConfig(10), front, nil, sink)
	ctx := context.Background()

	require.NoError(t, c.Seed(ctx, []string{srv.URL + "/article/index"}))
	require.NoError(t, c.Crawl(ctx))

	// Index plus the two discovered articles; /about, the pdf, and the
	// mailto link never qualify.
	assert.Equal(t, 3, c.CrawledCount())

	urls := sink.urls()
	assert.Len(t, urls, 3)
	assert.Contains(t, urls, srv.URL+"/article/one")
	assert.Contains(t, urls, srv.URL+"/article/two")

	for _, u := range []string{"/article/index", "/article/one", "/article/two"} {
		crawled, err := front.IsCrawled(ctx, srv.URL+u)
		require.NoError(t, err)
		assert.True(t, crawled, "%s should be marked visited", u)
	}
}

func TestCrawlVisitsEachURLOnce(t *testing.T) {
	srv := newCrawlSite(t)
	front := frontier.NewMemory()
	sink := &captureSink{}

	c := newTestCrawler(testConfig(10), front, nil, sink)
	ctx := context.Background()

	// The index links to /article/one twice (once with a fragment); both
	// normalize to the same URL and it is fetched once.
	require.NoError(t, c.Seed(ctx, []string{srv.URL + "/article/index"}))
	require.NoError(t, c.Crawl(ctx))

	count := 0
	for _, u := range sink.urls() {
		if u == srv.URL+"/article/one" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCrawlFailedFetchMarksVisited(t *testing.T) {
	srv := newCrawlSite(t)
	front := frontier.NewMemory()
	sink := &captureSink{}

	c := newTestCrawler(testConfig(10), front, nil, sink)
	ctx := context.Background()

	require.NoError(t, c.Seed(ctx, []string{srv.URL + "/article/broken"}))
	require.NoError(t, c.Crawl(ctx))

	assert.Equal(t, 1, c.CrawledCount(), "failures count toward the budget")
	assert.Empty(t, sink.urls())

	crawled, err := front.IsCrawled(ctx, srv.URL+"/article/broken")
	require.NoError(t, err)
	assert.True(t, crawled, "failed URLs are not retried")
}

func TestCrawlRespectsPageBudget(t *testing.T) {
	srv := newCrawlSite(t)
	front := frontier.NewMemory()
	sink := &captureSink{}

	c := newTestCrawler(testConfig(1), front, nil, sink)
	ctx := context.Background()

	require.NoError(t, c.Seed(ctx, []string{srv.URL + "/article/index"}))
	require.NoError(t, c.Crawl(ctx))

	assert.Equal(t, 1, c.CrawledCount())
}

func TestCrawlRobotsBlocked(t *testing.T) {
	srv := newCrawlSite(t)
	front := frontier.NewMemory()
	sink := &captureSink{}

	c := newTestCrawler(testConfig(10), front, denyAll{}, sink)
	ctx := context.Background()

	require.NoError(t, c.Seed(ctx, []string{srv.URL + "/article/index"}))
	require.NoError(t, c.Crawl(ctx))

	assert.Empty(t, sink.urls(), "blocked pages are never fetched")

	crawled, err := front.IsCrawled(ctx, srv.URL+"/article/index")
	require.NoError(t, err)
	assert.True(t, crawled, "blocked URLs are marked visited")
}

func TestCrawlCancelledContext(t *testing.T) {
	srv := newCrawlSite(t)
	front := frontier.NewMemory()
	sink := &captureSink{}

	c := newTestCrawler(testConfig(10), front, nil, sink)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Seed(ctx, []string{srv.URL + "/article/index"}))
	cancel()

	require.NoError(t, c.Crawl(ctx))
	assert.Zero(t, c.CrawledCount())
}

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="/article/rel">relative</a>
		<a href="https://example.com/article/abs?utm_source=x">absolute</a>
		<a href="https://example.com/article/abs#frag">duplicate after normalize</a>
		<a href="/about">filtered path</a>
		<a href="/article/file.jpg">excluded extension</a>
		<a href="javascript:void(0)">script</a>
		<a href="#top">anchor</a>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	c := newTestCrawler(testConfig(10), frontier.NewMemory(), nil, &captureSink{})

	links := c.ExtractLinks("https://example.com/article/base", doc)

	assert.Equal(t, []string{
		"https://example.com/article/rel",
		"https://example.com/article/abs",
	}, links)
}
