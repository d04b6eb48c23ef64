package frontier

import (
	"container/heap"
	"context"
	"sync"

	"webharvest/internal/urlutil"
)

// MemoryFrontier is an in-process frontier with the same semantics as the
// Redis implementation, minus restart durability. A single-process crawler
// can run on it when no Redis is available; tests use it heavily.
type MemoryFrontier struct {
	mu      sync.Mutex
	queue   entryHeap
	queued  map[string]*queueEntry
	visited map[string]struct{}
}

// NewMemory creates an empty in-memory frontier.
func NewMemory() *MemoryFrontier {
	return &MemoryFrontier{
		queued:  make(map[string]*queueEntry),
		visited: make(map[string]struct{}),
	}
}

type queueEntry struct {
	url      string
	priority int
	index    int
}

// entryHeap orders by descending priority, ties by ascending URL so pops
// are deterministic.
type entryHeap []*queueEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].url < h[j].url
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	entry := x.(*queueEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

// Add enqueues the URL unless already visited. Re-adding takes the
// maximum of the old and new priority.
func (f *MemoryFrontier) Add(_ context.Context, url string, priority int) error {
	hash := urlutil.Hash(url)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, crawled := f.visited[hash]; crawled {
		return nil
	}

	if existing, ok := f.queued[url]; ok {
		if priority > existing.priority {
			existing.priority = priority
			heap.Fix(&f.queue, existing.index)
		}
		return nil
	}

	entry := &queueEntry{url: url, priority: priority}
	heap.Push(&f.queue, entry)
	f.queued[url] = entry

	return nil
}

// Next pops the highest-priority URL, ties broken by lexical URL order.
func (f *MemoryFrontier) Next(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return "", ErrEmpty
	}

	entry := heap.Pop(&f.queue).(*queueEntry)
	delete(f.queued, entry.url)

	return entry.url, nil
}

// MarkCrawled records the URL's hash as visited.
func (f *MemoryFrontier) MarkCrawled(_ context.Context, url string) error {
	f.mu.Lock()
	f.visited[urlutil.Hash(url)] = struct{}{}
	f.mu.Unlock()

	return nil
}

// IsCrawled reports whether the URL was already visited.
func (f *MemoryFrontier) IsCrawled(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	_, crawled := f.visited[urlutil.Hash(url)]
	f.mu.Unlock()

	return crawled, nil
}
