package report

import (
	"time"

	"github.com/nao1215/webarchive/internal/database"
	"github.com/nao1215/webarchive/internal/model"
)

// Summary is the reportable view of one crawl session.
type Summary struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`

	// SeedURL is the normalized starting URL.
	SeedURL string `json:"seed_url"`

	// Domain is the host the crawl was confined to.
	Domain string `json:"domain"`

	// Status is the session's lifecycle state.
	Status model.SessionStatus `json:"status"`

	// StartedAt is when the session was created.
	StartedAt time.Time `json:"started_at"`

	// Pages is the count of stored page records.
	Pages int `json:"pages"`

	// Revisits is the count of deduplicated page fetches.
	Revisits int `json:"revisits"`

	// Assets is the count of stored asset references.
	Assets int `json:"assets"`

	// Blobs is the count of distinct stored content blobs.
	Blobs int `json:"blobs"`

	// BlobBytes is the total stored blob size in bytes.
	BlobBytes int64 `json:"blob_bytes"`

	// Errors is the count of unrecoverable fetch failures.
	Errors int `json:"errors"`

	// ErrorsByKind buckets failures by taxonomy kind.
	ErrorsByKind map[string]int `json:"errors_by_kind,omitempty"`

	// AssetsByType buckets assets by classification.
	AssetsByType map[string]int `json:"assets_by_type,omitempty"`
}

// NewSummary builds a Summary from a session and its stored statistics.
func NewSummary(session *model.CrawlSession, stats *database.SessionStats) *Summary {
	return &Summary{
		SessionID:    session.ID,
		SeedURL:      session.SeedURL,
		Domain:       session.Domain,
		Status:       session.Status,
		StartedAt:    session.StartedAt,
		Pages:        stats.Pages,
		Revisits:     stats.Revisits,
		Assets:       stats.Assets,
		Blobs:        stats.Blobs,
		BlobBytes:    stats.BlobBytes,
		Errors:       stats.Errors,
		ErrorsByKind: stats.ErrorsByKind,
		AssetsByType: stats.AssetsByType,
	}
}

// TotalRecords returns the count of all stored records: pages,
// revisits, and assets.
func (s *Summary) TotalRecords() int {
	return s.Pages + s.Revisits + s.Assets
}

// DedupRatio returns the fraction of page fetches that were
// deduplicated, in [0, 1].
func (s *Summary) DedupRatio() float64 {
	total := s.Pages + s.Revisits
	if total == 0 {
		return 0
	}
	return float64(s.Revisits) / float64(total)
}
