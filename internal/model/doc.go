// Package model defines the core data types shared across the archiver:
// crawl sessions, fetched page and asset records, revisit markers,
// frontier entries, and resumability checkpoints.
//
// Types in this package are plain values with no behavior beyond digest
// computation and small helpers. Persistence lives in internal/database,
// orchestration in internal/archive.
package model
