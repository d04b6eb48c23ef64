// Package frontier implements the URL frontier: a priority queue of URLs
// pending crawl and a set of URLs already visited. Both survive process
// restarts when backed by Redis; an in-memory implementation offers the
// same interface without the durability.
package frontier

import (
	"context"
	"errors"
)

// ErrEmpty is returned by Next when no URL is queued.
var ErrEmpty = errors.New("frontier is empty")

// ErrBackendUnavailable indicates the backing store cannot be reached.
// This is fatal for the crawl loop: without the visited set the
// visit-at-most-once guarantee is lost.
var ErrBackendUnavailable = errors.New("frontier backend unavailable")

// Frontier schedules URLs for crawling and tracks visited URLs.
//
// Add enqueues a URL unless it was already visited; re-adding a queued URL
// raises its priority to the maximum of old and new, never lowers it.
// Next atomically pops the highest-priority URL. Between Next and
// MarkCrawled a URL is neither queued nor visited; a crash in that window
// leaves it requeueable, which downstream content dedup absorbs.
type Frontier interface {
	Add(ctx context.Context, url string, priority int) error
	Next(ctx context.Context) (string, error)
	MarkCrawled(ctx context.Context, url string) error
	IsCrawled(ctx context.Context, url string) (bool, error)
}
