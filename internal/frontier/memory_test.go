package frontier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webharvest/internal/frontier"
)

func TestMemoryFrontierPriorityOrder(t *testing.T) {
	f := frontier.NewMemory()
	ctx := context.Background()

	require.NoError(t, f.Add(ctx, "https://example.com/low", 1))
	require.NoError(t, f.Add(ctx, "https://example.com/seed", 10))
	require.NoError(t, f.Add(ctx, "https://example.com/mid", 5))

	url, err := f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/seed", url)

	url, err = f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/mid", url)

	url, err = f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/low", url)

	_, err = f.Next(ctx)
	assert.ErrorIs(t, err, frontier.ErrEmpty)
}

func TestMemoryFrontierTieBreak(t *testing.T) {
	f := frontier.NewMemory()
	ctx := context.Background()

	require.NoError(t, f.Add(ctx, "https://example.com/b", 1))
	require.NoError(t, f.Add(ctx, "https://example.com/a", 1))

	url, err := f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", url, "ties pop in lexical order")
}

func TestMemoryFrontierTakeMaxOnReAdd(t *testing.T) {
	f := frontier.NewMemory()
	ctx := context.Background()

	require.NoError(t, f.Add(ctx, "https://example.com/page", 1))
	require.NoError(t, f.Add(ctx, "https://example.com/other", 5))

	// Re-adding at a higher priority promotes the entry.
	require.NoError(t, f.Add(ctx, "https://example.com/page", 10))

	url, err := f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", url)

	// Re-adding at a lower priority must not demote.
	require.NoError(t, f.Add(ctx, "https://example.com/other", 1))
	url, err = f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/other", url)

	_, err = f.Next(ctx)
	assert.ErrorIs(t, err, frontier.ErrEmpty)
}

func TestMemoryFrontierVisitedNotReAdded(t *testing.T) {
	f := frontier.NewMemory()
	ctx := context.Background()

	require.NoError(t, f.MarkCrawled(ctx, "https://example.com/done"))

	crawled, err := f.IsCrawled(ctx, "https://example.com/done")
	require.NoError(t, err)
	assert.True(t, crawled)

	require.NoError(t, f.Add(ctx, "https://example.com/done", 10))
	_, err = f.Next(ctx)
	assert.ErrorIs(t, err, frontier.ErrEmpty, "visited URLs are never re-queued")
}

func TestMemoryFrontierVisitedByNormalizedIdentity(t *testing.T) {
	f := frontier.NewMemory()
	ctx := context.Background()

	require.NoError(t, f.MarkCrawled(ctx, "https://example.com/page"))

	// A differently spelled equivalent URL shares the hash identity.
	crawled, err := f.IsCrawled(ctx, "HTTPS://EXAMPLE.com/page/?utm_source=x")
	require.NoError(t, err)
	assert.True(t, crawled)
}
