package model

import "time"

// RedirectHop is one hop in a redirect chain, recorded in order.
type RedirectHop struct {
	// From is the URL that answered with a redirect.
	From string `json:"from"`

	// To is the Location the redirect pointed at.
	To string `json:"to"`

	// StatusCode is the redirect status (301, 302, 303, 307, 308).
	StatusCode int `json:"status_code"`
}

// PageRecord is a fetched page. Exactly one PageRecord exists per
// distinct payload digest within a session; later fetches of URLs whose
// body matches an existing digest produce a RevisitRecord instead.
type PageRecord struct {
	// ID is the database row ID, zero until stored.
	ID int64 `json:"id"`

	// SessionID is the owning crawl session.
	SessionID string `json:"session_id"`

	// URL is the final resolved URL after redirects, normalized.
	URL string `json:"url"`

	// StatusCode is the HTTP status of the final response.
	// Zero when the fetch never produced a response.
	StatusCode int `json:"status_code"`

	// Depth is the link distance from the seed.
	Depth int `json:"depth"`

	// Title is the page title from the <title> tag, if any.
	Title string `json:"title,omitempty"`

	// PayloadDigest is the hash of the body bytes only. This is the key
	// content dedup decisions are made on.
	PayloadDigest string `json:"payload_digest"`

	// BlockDigest is the hash of the serialized headers plus body. It
	// distinguishes "same content, different headers" for archival
	// fidelity; dedup never looks at it.
	BlockDigest string `json:"block_digest"`

	// RedirectChain holds each hop taken to reach URL, in order.
	RedirectChain []RedirectHop `json:"redirect_chain,omitempty"`

	// FetchedAt is when the final response arrived.
	FetchedAt time.Time `json:"fetched_at"`
}

// RevisitProfile is the dedup profile recorded on revisit records.
// The value follows the WARC revisit convention.
const RevisitProfile = "identical-payload-digest"

// RevisitRecord marks a fetched URL whose payload duplicated an
// already-stored page. It points at the original record rather than
// storing the body again.
type RevisitRecord struct {
	// ID is the database row ID, zero until stored.
	ID int64 `json:"id"`

	// SessionID is the owning crawl session.
	SessionID string `json:"session_id"`

	// URL is the URL whose fetch was deduplicated.
	URL string `json:"url"`

	// OriginalURI is the URL of the page record holding the payload.
	OriginalURI string `json:"original_uri"`

	// OriginalRecordID is the row ID of that page record.
	OriginalRecordID int64 `json:"original_record_id"`

	// Profile identifies how the duplicate was detected.
	Profile string `json:"profile"`

	// FetchedAt is when the duplicate fetch completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// AssetType classifies a non-HTML resource by the HTML context it was
// discovered in.
type AssetType string

// Asset classifications.
const (
	AssetImage     AssetType = "image"
	AssetCSS       AssetType = "css"
	AssetJS        AssetType = "js"
	AssetFont      AssetType = "font"
	AssetFavicon   AssetType = "favicon"
	AssetMetaImage AssetType = "meta-image"
	AssetOther     AssetType = "other"
)

// AssetRecord is a stored non-HTML resource. Blob storage is keyed
// solely by ContentHash: many AssetRecords with different URLs may
// reference one blob.
type AssetRecord struct {
	// ID is the database row ID, zero until stored.
	ID int64 `json:"id"`

	// SessionID is the owning crawl session.
	SessionID string `json:"session_id"`

	// URL is the asset URL as discovered.
	URL string `json:"url"`

	// Type is the classification from the discovering HTML context.
	Type AssetType `json:"asset_type"`

	// ContentHash is the digest of the asset bytes; the blob key.
	ContentHash string `json:"content_hash"`

	// MIMEType is the Content-Type reported by the server, or a guess
	// from the URL extension when the server sent none.
	MIMEType string `json:"mime_type"`

	// ByteSize is the stored blob size in bytes.
	ByteSize int64 `json:"byte_size"`
}

// ErrorRecord is one unrecoverable fetch failure. Rows are append-only
// and never mutated; the full list enumerates why a session's pages are
// missing.
type ErrorRecord struct {
	// SessionID is the owning crawl session.
	SessionID string `json:"session_id"`

	// URL is the URL that failed.
	URL string `json:"url"`

	// Kind is the taxonomy bucket (TIMEOUT, HTTP_4XX, ...).
	Kind string `json:"error_kind"`

	// Message is the human-readable failure detail.
	Message string `json:"message"`

	// AttemptCount is how many fetch attempts were made before giving up.
	AttemptCount int `json:"attempt_count"`

	// OccurredAt is when the terminal failure was recorded.
	OccurredAt time.Time `json:"occurred_at"`
}

// IndexTimestampFormat is the 14-digit archive index timestamp layout.
// This is the only persisted shape downstream export tooling depends on.
const IndexTimestampFormat = "20060102150405"

// IndexEntry is one row of the append-only archive index mapping
// (timestamp, URI) to a stored record.
type IndexEntry struct {
	// Timestamp is a 14-digit UTC timestamp (YYYYMMDDHHMMSS).
	Timestamp string `json:"timestamp"`

	// URI is the archived URL.
	URI string `json:"uri"`

	// RecordID is the row ID of the page record the entry points at.
	RecordID int64 `json:"record_id"`

	// PayloadDigest is the payload digest of that record.
	PayloadDigest string `json:"payload_digest"`
}
