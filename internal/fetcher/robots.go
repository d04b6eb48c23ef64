package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	// defaultRobotsCacheTTL bounds how long a host's robots.txt is reused.
	defaultRobotsCacheTTL = 24 * time.Hour
	// maxRobotsBodyBytes limits the size of robots.txt responses.
	maxRobotsBodyBytes = 512 * 1024
)

// RobotsChecker checks and caches robots.txt rules per host. Missing or
// erroring robots.txt files allow everything, the standard crawling
// practice.
type RobotsChecker struct {
	client    *http.Client
	userAgent string

	mu    sync.RWMutex
	cache map[string]*robotsEntry
	ttl   time.Duration
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool
}

// NewRobotsChecker creates a robots checker sharing the fetcher's timeout
// behavior through the given HTTP client.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotsEntry),
		ttl:       defaultRobotsCacheTTL,
	}
}

// IsAllowed reports whether the host's robots.txt permits fetching the
// URL, fetching and caching robots.txt on first contact with the host.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}

	host := strings.ToLower(parsed.Host)

	entry := r.cached(host)
	if entry == nil {
		entry = r.fetchAndCache(ctx, host, parsed.Scheme)
	}

	if entry.allowAll {
		return true
	}

	return entry.data.TestAgent(parsed.Path, r.userAgent)
}

// CrawlDelay returns the crawl-delay declared for our user agent by the
// host's cached robots.txt, or zero.
func (r *RobotsChecker) CrawlDelay(host string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[strings.ToLower(host)]
	if !ok || entry.allowAll || entry.data == nil {
		return 0
	}

	group := entry.data.FindGroup(r.userAgent)
	if group == nil {
		return 0
	}

	return group.CrawlDelay
}

func (r *RobotsChecker) cached(host string) *robotsEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[host]
	if !ok || time.Since(entry.fetchedAt) > r.ttl {
		return nil
	}

	return entry
}

func (r *RobotsChecker) fetchAndCache(ctx context.Context, host, scheme string) *robotsEntry {
	if scheme == "" {
		scheme = "https"
	}

	entry := r.fetchEntry(ctx, scheme+"://"+host+"/robots.txt")

	r.mu.Lock()
	r.cache[host] = entry
	r.mu.Unlock()

	return entry
}

// fetchEntry retrieves and parses robots.txt. Any failure, non-2xx
// response, or parse error degrades to allow-all.
func (r *RobotsChecker) fetchEntry(ctx context.Context, robotsURL string) *robotsEntry {
	allowAll := &robotsEntry{fetchedAt: time.Now(), allowAll: true}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return allowAll
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return allowAll
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return allowAll
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return allowAll
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return allowAll
	}

	return &robotsEntry{data: data, fetchedAt: time.Now()}
}
