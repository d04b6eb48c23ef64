package frontier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"webharvest/internal/domain"
	"webharvest/internal/urlutil"
)

// Redis key layout.
const (
	queueKey   = "crawl_queue"  // sorted set: url -> priority
	crawledKey = "crawled_urls" // set of url hashes
	dataKeyFmt = "url_data:%s"  // hash: url, priority, domain, added_timestamp
)

// RedisFrontier is the durable frontier backed by a Redis sorted set and
// set. An in-process hot cache of visited hashes cuts round trips for the
// common is-crawled check.
type RedisFrontier struct {
	client *redis.Client

	mu      sync.RWMutex
	visited map[string]struct{}
}

// NewRedis creates a frontier on the given Redis client. The connection
// is verified up front; an unreachable backend is reported immediately so
// the caller can abort rather than crawl without a visited set.
func NewRedis(ctx context.Context, client *redis.Client) (*RedisFrontier, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return &RedisFrontier{
		client:  client,
		visited: make(map[string]struct{}),
	}, nil
}

// NewRedisFromURL creates a frontier from a redis:// URL.
func NewRedisFromURL(ctx context.Context, rawURL string) (*RedisFrontier, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return NewRedis(ctx, redis.NewClient(opts))
}

// Add enqueues the URL at the given priority unless it was already
// crawled. A URL already queued keeps the higher of its old and new
// priority (ZADD GT), so a late low-priority add cannot demote a seed.
func (f *RedisFrontier) Add(ctx context.Context, url string, priority int) error {
	crawled, err := f.IsCrawled(ctx, url)
	if err != nil {
		return err
	}
	if crawled {
		return nil
	}

	err = f.client.ZAddArgs(ctx, queueKey, redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(priority), Member: url}},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue url: %w", err)
	}

	entry := domain.FrontierEntry{
		URL:      url,
		Priority: priority,
		Domain:   urlutil.ExtractHost(url),
		AddedAt:  float64(time.Now().UnixNano()) / float64(time.Second),
	}

	dataKey := fmt.Sprintf(dataKeyFmt, urlutil.Hash(url))
	if err := f.client.HSet(ctx, dataKey, entryFields(&entry)).Err(); err != nil {
		return fmt.Errorf("store url metadata: %w", err)
	}

	return nil
}

// entryFields flattens a frontier entry into the hash fields stored under
// its url_data key.
func entryFields(entry *domain.FrontierEntry) map[string]any {
	return map[string]any{
		"url":             entry.URL,
		"priority":        entry.Priority,
		"domain":          entry.Domain,
		"added_timestamp": entry.AddedAt,
	}
}

// Next pops the highest-priority URL. Ties resolve to the backing store's
// deterministic lexical order.
func (f *RedisFrontier) Next(ctx context.Context) (string, error) {
	popped, err := f.client.ZPopMax(ctx, queueKey, 1).Result()
	if err != nil {
		return "", fmt.Errorf("pop url: %w", err)
	}

	if len(popped) == 0 {
		return "", ErrEmpty
	}

	url, ok := popped[0].Member.(string)
	if !ok {
		return "", fmt.Errorf("unexpected member type %T in crawl queue", popped[0].Member)
	}

	return url, nil
}

// MarkCrawled records the URL's hash in the visited set and the hot cache.
func (f *RedisFrontier) MarkCrawled(ctx context.Context, url string) error {
	hash := urlutil.Hash(url)

	if err := f.client.SAdd(ctx, crawledKey, hash).Err(); err != nil {
		return fmt.Errorf("mark crawled: %w", err)
	}

	f.mu.Lock()
	f.visited[hash] = struct{}{}
	f.mu.Unlock()

	return nil
}

// IsCrawled checks the hot cache first, then the Redis set. A remote hit
// promotes the hash into the cache.
func (f *RedisFrontier) IsCrawled(ctx context.Context, url string) (bool, error) {
	hash := urlutil.Hash(url)

	f.mu.RLock()
	_, hit := f.visited[hash]
	f.mu.RUnlock()
	if hit {
		return true, nil
	}

	member, err := f.client.SIsMember(ctx, crawledKey, hash).Result()
	if err != nil {
		return false, fmt.Errorf("check crawled: %w", err)
	}

	if member {
		f.mu.Lock()
		f.visited[hash] = struct{}{}
		f.mu.Unlock()
	}

	return member, nil
}
