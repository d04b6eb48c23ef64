package crawl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webharvest/internal/frontier"
	"webharvest/internal/logger"
)

func TestNewFrontierMemory(t *testing.T) {
	front, err := newFrontier(context.Background(), "redis://127.0.0.1:1/0", true, logger.NewNoop())
	require.NoError(t, err)
	assert.IsType(t, &frontier.MemoryFrontier{}, front)
}

func TestNewFrontierUnreachableRedisIsFatal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// Nothing listens on this port. Without --memory-frontier the crawl
	// must abort rather than silently lose the shared visited set.
	front, err := newFrontier(ctx, "redis://127.0.0.1:1/0", false, logger.NewNoop())
	assert.Nil(t, front)
	require.Error(t, err)
	assert.ErrorIs(t, err, frontier.ErrBackendUnavailable)
}
