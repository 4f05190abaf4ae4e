package model

import "time"

// DiscoveredVia records how a frontier entry was found.
type DiscoveredVia string

// Discovery sources, in decreasing order of authority.
const (
	ViaSeed    DiscoveredVia = "seed"
	ViaSitemap DiscoveredVia = "sitemap"
	ViaLink    DiscoveredVia = "link"
)

// FrontierEntry is a pending crawl candidate. The URL is always in
// normalized form; no two entries with the same normalized URL are ever
// enqueued twice within a session.
type FrontierEntry struct {
	// URL is the normalized candidate URL.
	URL string `json:"url"`

	// Depth is the link distance from the seed, zero for the seed itself.
	Depth int `json:"depth"`

	// Priority orders dequeuing; lower numbers are crawled sooner.
	Priority int `json:"priority"`

	// Via records the discovery source.
	Via DiscoveredVia `json:"discovered_via"`
}

// Checkpoint is a resumability snapshot. Only the latest checkpoint per
// session is retained: saves overwrite, they do not append.
type Checkpoint struct {
	// SessionID is the session the snapshot belongs to.
	SessionID string `json:"session_id"`

	// LastProcessedURL is the most recently stored page URL.
	LastProcessedURL string `json:"last_processed_url"`

	// Frontier is the serialized pending queue at snapshot time.
	Frontier []FrontierEntry `json:"frontier"`

	// Visited is the set of normalized URLs already enqueued or fetched.
	Visited []string `json:"visited"`

	// PagesProcessed is how many budget-consuming pages were handled.
	PagesProcessed int `json:"pages_processed"`

	// SavedAt is when the snapshot was taken.
	SavedAt time.Time `json:"saved_at"`
}
