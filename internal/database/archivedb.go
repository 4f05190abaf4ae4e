package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webarchive/internal/model"
)

// ArchiveDB provides SQLite-based storage for archived pages, assets,
// and crawl bookkeeping.
//
// Design decision: We use a single database file per archive directory
// rather than one file per session. Cross-session lookups (the archive
// index, blob dedup across resumed runs) become plain queries, and
// backup is a single-file copy.
type ArchiveDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ArchiveDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so index lookups can read
	// while a crawl writes.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ReadOnlyOptions returns options for query-only access. A missing
// archive is an error rather than an empty database.
func ReadOnlyOptions() Options {
	return Options{
		CreateIfNotExists: false,
		EnableWAL:         false,
	}
}

// Open opens or creates an ArchiveDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are
// created; otherwise a missing database is an error.
func Open(dbDir string, opts Options) (*ArchiveDB, error) {
	dbPath := filepath.Join(dbDir, "webarchive.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw refuses to create
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection
	// sidesteps SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &ArchiveDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *ArchiveDB) Close() error {
	return adb.db.Close()
}

// Path returns the path of the underlying database file.
func (adb *ArchiveDB) Path() string {
	return adb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (adb *ArchiveDB) createTables() error {
	schema := `
	-- Crawl sessions, one row per run
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		domain TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		max_pages INTEGER NOT NULL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL
	);

	-- Page records: one per distinct payload digest per session
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		status_code INTEGER,
		depth INTEGER NOT NULL,
		title TEXT,
		payload_digest TEXT NOT NULL,
		block_digest TEXT NOT NULL,
		redirect_chain TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_digest ON pages(session_id, payload_digest);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

	-- Revisit records: fetched URLs whose payload duplicated a page
	CREATE TABLE IF NOT EXISTS revisits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		original_uri TEXT NOT NULL,
		original_record_id INTEGER NOT NULL,
		profile TEXT NOT NULL,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, url)
	);

	-- Asset metadata rows; the bytes live in blobs
	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		mime_type TEXT,
		byte_size INTEGER NOT NULL,
		UNIQUE(session_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_assets_hash ON assets(content_hash);

	-- Content-addressed blob storage, keyed solely by digest
	CREATE TABLE IF NOT EXISTS blobs (
		content_hash TEXT PRIMARY KEY,
		content BLOB NOT NULL,
		byte_size INTEGER NOT NULL
	);

	-- Archive index: (timestamp, uri) -> record
	CREATE TABLE IF NOT EXISTS cdx_index (
		timestamp TEXT NOT NULL,
		uri TEXT NOT NULL,
		record_id INTEGER NOT NULL,
		payload_digest TEXT NOT NULL,
		UNIQUE(timestamp, uri)
	);

	CREATE INDEX IF NOT EXISTS idx_cdx_uri ON cdx_index(uri);
	CREATE INDEX IF NOT EXISTS idx_cdx_timestamp ON cdx_index(timestamp);

	-- Latest checkpoint per session; saves overwrite
	CREATE TABLE IF NOT EXISTS checkpoints (
		session_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Append-only fetch failure log
	CREATE TABLE IF NOT EXISTS error_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		error_kind TEXT NOT NULL,
		message TEXT,
		attempt_count INTEGER NOT NULL,
		occurred_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_errors_session ON error_log(session_id);

	-- Link graph edges between archived pages
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		from_url TEXT NOT NULL,
		to_url TEXT NOT NULL,
		UNIQUE(session_id, from_url, to_url)
	);

	-- Free-form per-session metadata
	CREATE TABLE IF NOT EXISTS metadata (
		session_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY(session_id, key)
	);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// CreateSession inserts a new session row.
func (adb *ArchiveDB) CreateSession(ctx context.Context, s *model.CrawlSession) error {
	query := `
	INSERT INTO sessions (id, seed_url, domain, max_depth, max_pages, started_at, status)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := adb.db.ExecContext(ctx, query,
		s.ID,
		s.SeedURL,
		s.Domain,
		s.MaxDepth,
		s.MaxPages,
		s.StartedAt.UTC().Format(time.RFC3339),
		string(s.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// UpdateSessionStatus transitions a session's lifecycle state.
func (adb *ArchiveDB) UpdateSessionStatus(ctx context.Context, sessionID string, status model.SessionStatus) error {
	result, err := adb.db.ExecContext(ctx,
		"UPDATE sessions SET status = ? WHERE id = ?", string(status), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetSession retrieves a session by ID.
func (adb *ArchiveDB) GetSession(ctx context.Context, sessionID string) (*model.CrawlSession, error) {
	query := `
	SELECT id, seed_url, domain, max_depth, max_pages, started_at, status
	FROM sessions WHERE id = ?
	`
	var s model.CrawlSession
	var startedAt, status string
	err := adb.db.QueryRowContext(ctx, query, sessionID).Scan(
		&s.ID, &s.SeedURL, &s.Domain, &s.MaxDepth, &s.MaxPages, &startedAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.StartedAt = parseTimestamp(startedAt)
	s.Status = model.SessionStatus(status)
	return &s, nil
}

// LatestSession returns the most recently started session, or
// ErrSessionNotFound when the database holds none. Resume without an
// explicit session ID targets this session.
func (adb *ArchiveDB) LatestSession(ctx context.Context) (*model.CrawlSession, error) {
	var id string
	err := adb.db.QueryRowContext(ctx,
		"SELECT id FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest session: %w", err)
	}
	return adb.GetSession(ctx, id)
}

// ListSessions returns all sessions, most recent first.
func (adb *ArchiveDB) ListSessions(ctx context.Context) ([]model.CrawlSession, error) {
	query := `
	SELECT id, seed_url, domain, max_depth, max_pages, started_at, status
	FROM sessions ORDER BY started_at DESC, rowid DESC
	`
	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.CrawlSession
	for rows.Next() {
		var s model.CrawlSession
		var startedAt, status string
		if err := rows.Scan(&s.ID, &s.SeedURL, &s.Domain, &s.MaxDepth, &s.MaxPages, &startedAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.StartedAt = parseTimestamp(startedAt)
		s.Status = model.SessionStatus(status)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may
// return. The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending
// on configuration. If parsing fails with all formats, returns zero
// time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
