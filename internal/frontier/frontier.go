package frontier

import (
	"container/heap"
	"net/url"
	"sort"

	"github.com/nao1215/webarchive/internal/model"
	"github.com/nao1215/webarchive/internal/normalize"
)

// Frontier drives the crawl traversal. It owns the pending priority
// queue and the visited set for one session.
//
// The frontier is not safe for concurrent use. The crawl loop is the
// only mutator: pops, pushes, and visited-set updates all happen on the
// loop between fetch batches, which makes races impossible by
// construction rather than by locking.
type Frontier struct {
	// strategy assigns priorities at enqueue time.
	strategy PriorityStrategy

	// maxDepth drops candidates beyond this link distance at enqueue
	// time; they are never fetched and never consume page budget.
	maxDepth int

	// queue is the pending entries ordered by (priority, depth, seq).
	queue entryHeap

	// visited holds every normalized URL that has ever been enqueued,
	// plus redirect hops marked directly. Membership here is the single
	// dedup gate for crawl candidates.
	visited map[string]struct{}

	// seq is a monotonically increasing tiebreaker preserving insertion
	// order within a (priority, depth) band.
	seq int
}

// New creates a frontier with the given priority strategy and depth
// bound. A nil strategy falls back to PathPriority.
func New(strategy PriorityStrategy, maxDepth int) *Frontier {
	if strategy == nil {
		strategy = PathPriority{}
	}
	return &Frontier{
		strategy: strategy,
		maxDepth: maxDepth,
		visited:  make(map[string]struct{}),
	}
}

// Push enqueues a candidate URL. The URL is normalized before any
// checks. Push is a no-op and returns false when the URL was already
// seen, does not parse, or lies beyond the depth bound.
func (f *Frontier) Push(rawURL string, depth int, via model.DiscoveredVia) bool {
	norm, err := normalize.URL(rawURL)
	if err != nil {
		return false
	}
	if depth > f.maxDepth {
		return false
	}
	if _, ok := f.visited[norm]; ok {
		return false
	}

	// Mark seen at enqueue time, not dequeue time. A URL discovered on
	// two pages in the same batch must still enter the queue once.
	f.visited[norm] = struct{}{}

	u, err := url.Parse(norm)
	if err != nil {
		return false
	}
	priority := f.strategy.Priority(u)
	if via == model.ViaSitemap && priority > PriorityDefault {
		// Sitemap discovery is authoritative; never schedule it worse
		// than an ordinary navigation link.
		priority = PriorityDefault
	}

	f.seq++
	heap.Push(&f.queue, &entry{
		FrontierEntry: model.FrontierEntry{
			URL:      norm,
			Depth:    depth,
			Priority: priority,
			Via:      via,
		},
		seq: f.seq,
	})
	return true
}

// Pop removes and returns the most urgent pending entry. The second
// return is false when the frontier is exhausted.
func (f *Frontier) Pop() (model.FrontierEntry, bool) {
	if f.queue.Len() == 0 {
		return model.FrontierEntry{}, false
	}
	e := heap.Pop(&f.queue).(*entry)
	return e.FrontierEntry, true
}

// Len returns the number of pending entries.
func (f *Frontier) Len() int {
	return f.queue.Len()
}

// Seen reports whether the normalized form of the URL has been enqueued
// or marked visited.
func (f *Frontier) Seen(rawURL string) bool {
	norm, err := normalize.URL(rawURL)
	if err != nil {
		return false
	}
	_, ok := f.visited[norm]
	return ok
}

// Requeue returns a previously popped entry to the queue, bypassing the
// seen gate (the entry is already in the visited set). The crawl loop
// uses this for entries that were dequeued but not processed when a
// session is interrupted, so the checkpoint does not lose them.
func (f *Frontier) Requeue(e model.FrontierEntry) {
	f.seq++
	heap.Push(&f.queue, &entry{FrontierEntry: e, seq: f.seq})
}

// MarkVisited records a URL as seen without enqueuing it. The fetcher
// uses this for intermediate redirect hops so they are never re-crawled
// even though they were never queued.
func (f *Frontier) MarkVisited(rawURL string) {
	norm, err := normalize.URL(rawURL)
	if err != nil {
		return
	}
	f.visited[norm] = struct{}{}
}

// Snapshot returns the pending queue (in dequeue order) and the visited
// set, suitable for checkpointing. The frontier is not modified.
func (f *Frontier) Snapshot() ([]model.FrontierEntry, []string) {
	entries := make([]model.FrontierEntry, len(f.queue))
	for i, e := range f.queue {
		entries[i] = e.FrontierEntry
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		if entries[i].Depth != entries[j].Depth {
			return entries[i].Depth < entries[j].Depth
		}
		return entries[i].URL < entries[j].URL
	})

	visited := make([]string, 0, len(f.visited))
	for u := range f.visited {
		visited = append(visited, u)
	}
	sort.Strings(visited)
	return entries, visited
}

// Restore rebuilds the frontier from a checkpoint snapshot. Existing
// state is discarded. Entries keep their recorded priorities rather
// than being re-scored, so a strategy change between runs does not
// reorder work already discovered.
func (f *Frontier) Restore(entries []model.FrontierEntry, visited []string) {
	f.queue = f.queue[:0]
	f.visited = make(map[string]struct{}, len(visited))
	f.seq = 0

	for _, u := range visited {
		f.visited[u] = struct{}{}
	}
	for _, e := range entries {
		f.visited[e.URL] = struct{}{}
		f.seq++
		f.queue = append(f.queue, &entry{FrontierEntry: e, seq: f.seq})
	}
	heap.Init(&f.queue)
}

// entry wraps a FrontierEntry with its insertion sequence number.
type entry struct {
	model.FrontierEntry
	seq int
}

// entryHeap implements heap.Interface ordered by (priority, depth, seq).
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
