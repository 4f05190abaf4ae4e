package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/webarchive/internal/model"
)

// LookupURL returns every archive index entry recorded for a URL,
// oldest first. ErrNotFound when the URL was never archived.
func (adb *ArchiveDB) LookupURL(ctx context.Context, url string) ([]model.IndexEntry, error) {
	query := `
	SELECT timestamp, uri, record_id, payload_digest
	FROM cdx_index WHERE uri = ? ORDER BY timestamp
	`
	entries, err := adb.queryIndex(ctx, query, url)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

// LookupDigest returns the archive index entries whose payload digest
// matches, oldest first. ErrNotFound when no record holds the digest.
func (adb *ArchiveDB) LookupDigest(ctx context.Context, digest string) ([]model.IndexEntry, error) {
	query := `
	SELECT timestamp, uri, record_id, payload_digest
	FROM cdx_index WHERE payload_digest = ? ORDER BY timestamp
	`
	entries, err := adb.queryIndex(ctx, query, digest)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries, nil
}

// GetAssetByHash returns the oldest stored asset record whose blob has
// the given content hash. ErrNotFound when no asset holds the hash.
func (adb *ArchiveDB) GetAssetByHash(ctx context.Context, contentHash string) (*model.AssetRecord, error) {
	query := `
	SELECT id, session_id, url, asset_type, content_hash, mime_type, byte_size
	FROM assets WHERE content_hash = ? ORDER BY id LIMIT 1
	`
	return adb.getAsset(ctx, query, contentHash)
}

// GetAssetByURL returns the oldest stored asset record for a URL.
// ErrNotFound when the URL was never archived as an asset.
func (adb *ArchiveDB) GetAssetByURL(ctx context.Context, url string) (*model.AssetRecord, error) {
	query := `
	SELECT id, session_id, url, asset_type, content_hash, mime_type, byte_size
	FROM assets WHERE url = ? ORDER BY id LIMIT 1
	`
	return adb.getAsset(ctx, query, url)
}

func (adb *ArchiveDB) getAsset(ctx context.Context, query string, arg any) (*model.AssetRecord, error) {
	var rec model.AssetRecord
	err := adb.db.QueryRowContext(ctx, query, arg).Scan(
		&rec.ID, &rec.SessionID, &rec.URL, &rec.Type,
		&rec.ContentHash, &rec.MIMEType, &rec.ByteSize,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	return &rec, nil
}

// QueryIndexByPrefix returns index entries whose URI starts with the
// given prefix, ordered by URI then timestamp.
func (adb *ArchiveDB) QueryIndexByPrefix(ctx context.Context, prefix string) ([]model.IndexEntry, error) {
	query := `
	SELECT timestamp, uri, record_id, payload_digest
	FROM cdx_index WHERE uri GLOB ? ORDER BY uri, timestamp
	`
	return adb.queryIndex(ctx, query, prefix+"*")
}

// QueryIndexByTimeRange returns index entries whose timestamp falls in
// [from, to], both 14-digit timestamps, ordered by timestamp.
func (adb *ArchiveDB) QueryIndexByTimeRange(ctx context.Context, from, to string) ([]model.IndexEntry, error) {
	query := `
	SELECT timestamp, uri, record_id, payload_digest
	FROM cdx_index WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp
	`
	return adb.queryIndex(ctx, query, from, to)
}

func (adb *ArchiveDB) queryIndex(ctx context.Context, query string, args ...any) ([]model.IndexEntry, error) {
	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	var entries []model.IndexEntry
	for rows.Next() {
		var e model.IndexEntry
		if err := rows.Scan(&e.Timestamp, &e.URI, &e.RecordID, &e.PayloadDigest); err != nil {
			return nil, fmt.Errorf("failed to scan index entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetPageByID retrieves a page record by its row ID.
func (adb *ArchiveDB) GetPageByID(ctx context.Context, id int64) (*model.PageRecord, error) {
	query := `
	SELECT id, session_id, url, status_code, depth, title, payload_digest, block_digest, redirect_chain, fetched_at
	FROM pages WHERE id = ?
	`
	var rec model.PageRecord
	var chainJSON, fetchedAt string
	err := adb.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.SessionID, &rec.URL, &rec.StatusCode, &rec.Depth,
		&rec.Title, &rec.PayloadDigest, &rec.BlockDigest, &chainJSON, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page record: %w", err)
	}
	rec.FetchedAt = parseTimestamp(fetchedAt)
	if chainJSON != "" {
		if err := json.Unmarshal([]byte(chainJSON), &rec.RedirectChain); err != nil {
			return nil, fmt.Errorf("failed to parse redirect chain: %w", err)
		}
	}
	return &rec, nil
}

// SessionStats summarizes a session's stored records for reporting.
type SessionStats struct {
	// Pages is the count of stored page records.
	Pages int

	// Revisits is the count of deduplicated page fetches.
	Revisits int

	// Assets is the count of asset metadata rows.
	Assets int

	// Blobs is the count of distinct content blobs referenced by the
	// session's assets.
	Blobs int

	// BlobBytes is the total size of those blobs.
	BlobBytes int64

	// Errors is the count of error log rows.
	Errors int

	// ErrorsByKind buckets the error log by taxonomy kind.
	ErrorsByKind map[string]int

	// AssetsByType buckets asset rows by classification.
	AssetsByType map[string]int
}

// GetSessionStats aggregates a session's stored records.
func (adb *ArchiveDB) GetSessionStats(ctx context.Context, sessionID string) (*SessionStats, error) {
	stats := &SessionStats{
		ErrorsByKind: make(map[string]int),
		AssetsByType: make(map[string]int),
	}

	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM pages WHERE session_id = ?", &stats.Pages},
		{"SELECT COUNT(*) FROM revisits WHERE session_id = ?", &stats.Revisits},
		{"SELECT COUNT(*) FROM assets WHERE session_id = ?", &stats.Assets},
		{"SELECT COUNT(*) FROM error_log WHERE session_id = ?", &stats.Errors},
	}
	for _, c := range counts {
		if err := adb.db.QueryRowContext(ctx, c.query, sessionID).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count session records: %w", err)
		}
	}

	err := adb.db.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(SUM(byte_size), 0) FROM blobs
	WHERE content_hash IN (SELECT DISTINCT content_hash FROM assets WHERE session_id = ?)
	`, sessionID).Scan(&stats.Blobs, &stats.BlobBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate blobs: %w", err)
	}

	if err := adb.countBy(ctx,
		"SELECT error_kind, COUNT(*) FROM error_log WHERE session_id = ? GROUP BY error_kind",
		sessionID, stats.ErrorsByKind); err != nil {
		return nil, err
	}
	if err := adb.countBy(ctx,
		"SELECT asset_type, COUNT(*) FROM assets WHERE session_id = ? GROUP BY asset_type",
		sessionID, stats.AssetsByType); err != nil {
		return nil, err
	}

	return stats, nil
}

func (adb *ArchiveDB) countBy(ctx context.Context, query, sessionID string, dst map[string]int) error {
	rows, err := adb.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to aggregate session records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		dst[key] = count
	}
	return rows.Err()
}
