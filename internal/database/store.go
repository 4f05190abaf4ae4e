package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/webarchive/internal/model"
)

// PutPage stores a fetched page, deduplicating by payload digest.
//
// If another page in the same session already holds an identical
// payload digest, no page row is written; a revisit record pointing at
// the original is written instead and returned. Otherwise the page row
// and its archive index entry are written and the returned revisit is
// nil. Either way the write is one transaction: a crash can never leave
// a page without its index entry.
func (adb *ArchiveDB) PutPage(ctx context.Context, rec *model.PageRecord) (*model.RevisitRecord, error) {
	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Dedup check: does this session already hold this payload?
	var originalID int64
	var originalURI string
	err = tx.QueryRowContext(ctx,
		"SELECT id, url FROM pages WHERE session_id = ? AND payload_digest = ? LIMIT 1",
		rec.SessionID, rec.PayloadDigest,
	).Scan(&originalID, &originalURI)

	switch {
	case err == nil:
		revisit := &model.RevisitRecord{
			SessionID:        rec.SessionID,
			URL:              rec.URL,
			OriginalURI:      originalURI,
			OriginalRecordID: originalID,
			Profile:          model.RevisitProfile,
			FetchedAt:        rec.FetchedAt,
		}
		result, err := tx.ExecContext(ctx, `
		INSERT INTO revisits (session_id, url, original_uri, original_record_id, profile, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, url) DO NOTHING
		`,
			revisit.SessionID, revisit.URL, revisit.OriginalURI,
			revisit.OriginalRecordID, revisit.Profile,
			revisit.FetchedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert revisit record: %w", err)
		}
		revisit.ID, _ = result.LastInsertId() //nolint:errcheck // sqlite always reports it
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit revisit: %w", err)
		}
		return revisit, nil

	case errors.Is(err, sql.ErrNoRows):
		// New payload: store the page and index it.

	default:
		return nil, fmt.Errorf("failed to check payload digest: %w", err)
	}

	chainJSON, err := json.Marshal(rec.RedirectChain)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize redirect chain: %w", err)
	}

	// A URL can be reached twice when a redirect target was also queued
	// directly; the second store is a no-op.
	result, err := tx.ExecContext(ctx, `
	INSERT INTO pages (session_id, url, status_code, depth, title, payload_digest, block_digest, redirect_chain, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, url) DO NOTHING
	`,
		rec.SessionID, rec.URL, rec.StatusCode, rec.Depth, rec.Title,
		rec.PayloadDigest, rec.BlockDigest, string(chainJSON),
		rec.FetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert page record: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit page record: %w", err)
		}
		return nil, nil
	}
	rec.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read page record id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO cdx_index (timestamp, uri, record_id, payload_digest)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(timestamp, uri) DO NOTHING
	`,
		rec.FetchedAt.UTC().Format(model.IndexTimestampFormat),
		rec.URL, rec.ID, rec.PayloadDigest,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert index entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit page record: %w", err)
	}
	return nil, nil
}

// PutAsset stores an asset's metadata and its content blob. The blob is
// content-addressed: identical bytes fetched from any number of URLs
// occupy exactly one blobs row. Returns whether a new blob was written.
func (adb *ArchiveDB) PutAsset(ctx context.Context, rec *model.AssetRecord, content []byte) (bool, error) {
	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `
	INSERT INTO blobs (content_hash, content, byte_size)
	VALUES (?, ?, ?)
	ON CONFLICT(content_hash) DO NOTHING
	`, rec.ContentHash, content, int64(len(content)))
	if err != nil {
		return false, fmt.Errorf("failed to insert blob: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read blob insert result: %w", err)
	}

	assetResult, err := tx.ExecContext(ctx, `
	INSERT INTO assets (session_id, url, asset_type, content_hash, mime_type, byte_size)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, url) DO NOTHING
	`,
		rec.SessionID, rec.URL, string(rec.Type), rec.ContentHash,
		rec.MIMEType, rec.ByteSize,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert asset record: %w", err)
	}
	rec.ID, _ = assetResult.LastInsertId() //nolint:errcheck // sqlite always reports it

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit asset: %w", err)
	}
	return inserted > 0, nil
}

// HasAsset reports whether the session already stored an asset row for
// the URL. The crawl loop uses this to skip refetching known assets.
func (adb *ArchiveDB) HasAsset(ctx context.Context, sessionID, url string) (bool, error) {
	var count int
	err := adb.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assets WHERE session_id = ? AND url = ?",
		sessionID, url,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check asset: %w", err)
	}
	return count > 0, nil
}

// GetBlob retrieves stored content by its digest.
func (adb *ArchiveDB) GetBlob(ctx context.Context, contentHash string) ([]byte, error) {
	var content []byte
	err := adb.db.QueryRowContext(ctx,
		"SELECT content FROM blobs WHERE content_hash = ?", contentHash).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return content, nil
}

// AppendError appends a fetch failure to the session's error log.
func (adb *ArchiveDB) AppendError(ctx context.Context, rec *model.ErrorRecord) error {
	_, err := adb.db.ExecContext(ctx, `
	INSERT INTO error_log (session_id, url, error_kind, message, attempt_count, occurred_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.SessionID, rec.URL, rec.Kind, rec.Message, rec.AttemptCount,
		rec.OccurredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append error record: %w", err)
	}
	return nil
}

// InsertLinks records link-graph edges from one page to its outgoing
// targets. Duplicate edges are ignored.
func (adb *ArchiveDB) InsertLinks(ctx context.Context, sessionID, fromURL string, toURLs []string) error {
	if len(toURLs) == 0 {
		return nil
	}
	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO links (session_id, from_url, to_url)
	VALUES (?, ?, ?)
	ON CONFLICT(session_id, from_url, to_url) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with tx

	for _, to := range toURLs {
		if _, err := stmt.ExecContext(ctx, sessionID, fromURL, to); err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit links: %w", err)
	}
	return nil
}

// SetMetadata stores a per-session key/value pair, overwriting any
// previous value.
func (adb *ArchiveDB) SetMetadata(ctx context.Context, sessionID, key, value string) error {
	_, err := adb.db.ExecContext(ctx, `
	INSERT INTO metadata (session_id, key, value) VALUES (?, ?, ?)
	ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value
	`, sessionID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}
	return nil
}

// GetMetadata retrieves a per-session metadata value. Missing keys
// return ErrNotFound.
func (adb *ArchiveDB) GetMetadata(ctx context.Context, sessionID, key string) (string, error) {
	var value string
	err := adb.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE session_id = ? AND key = ?",
		sessionID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}
	return value, nil
}
