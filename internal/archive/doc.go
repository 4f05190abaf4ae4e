// Package archive wires the crawl components into a resumable archiving
// engine.
//
// The engine owns one crawl session at a time. It dequeues batches from
// the frontier, fetches them concurrently under per-domain pacing, and
// then processes every result sequentially on the loop goroutine: the
// loop is the sole writer to the database, the frontier, and the
// visited set, so storage invariants hold without locks.
package archive
