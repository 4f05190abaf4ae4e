// Package database provides SQLite-backed storage for crawl sessions,
// page records, deduplicated content blobs, the archive index, and
// resumability checkpoints.
//
// A single database file per archive directory holds every session.
// All writes go through one connection; the crawl loop is the only
// writer, which keeps transactions simple and makes WAL mode purely a
// read-concurrency optimization.
package database
