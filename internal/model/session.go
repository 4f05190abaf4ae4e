package model

import "time"

// SessionStatus is the lifecycle state of a crawl session.
type SessionStatus string

// Session lifecycle states. A session always ends in one of Completed,
// Failed, or Paused; Running is only ever observed while the crawl loop
// is live or after a hard crash (in which case the checkpoint is the
// source of truth for resuming).
const (
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
	StatusPaused    SessionStatus = "paused"
)

// IsTerminal reports whether the status is a final state.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPaused
}

// CrawlSession identifies one crawl run. One session owns exactly one
// frontier and one set of persisted records; the session ID namespaces
// every row the run writes.
type CrawlSession struct {
	// ID is an opaque unique token identifying the run.
	ID string `json:"id"`

	// SeedURL is the normalized starting URL.
	SeedURL string `json:"seed_url"`

	// Domain is the host the crawl is confined to.
	Domain string `json:"domain"`

	// MaxDepth is the deepest link distance from the seed that is crawled.
	MaxDepth int `json:"max_depth"`

	// MaxPages is the page budget for the run. Asset fetches and redirect
	// hops do not consume budget; only final resolved page URLs do.
	MaxPages int `json:"max_pages"`

	// StartedAt is when the session was created.
	StartedAt time.Time `json:"started_at"`

	// Status is the current lifecycle state.
	Status SessionStatus `json:"status"`
}
