// Package frontier implements the crawl queue: a priority queue over
// pending URLs combined with the session-wide visited set.
//
// The frontier is the single deduplication gate for crawl candidates.
// Enqueuing is a no-op when the normalized URL has already been seen,
// so no URL is ever dequeued twice within a session. Content-level
// deduplication (identical bytes under different URLs) is a separate
// concern handled by the store.
//
// Dequeue order approximates breadth-first search within each priority
// band: lowest priority number first, smallest depth among ties, and
// insertion order after that.
package frontier
