package database

import "errors"

var (
	// ErrSessionNotFound indicates no session row matches the given ID.
	ErrSessionNotFound = errors.New("database: session not found")

	// ErrCheckpointNotFound indicates the session has no saved
	// checkpoint. A resume cannot proceed without one.
	ErrCheckpointNotFound = errors.New("database: checkpoint not found")

	// ErrCheckpointCorrupt indicates the stored checkpoint exists but
	// cannot be decoded. Callers surface this instead of silently
	// restarting from the seed.
	ErrCheckpointCorrupt = errors.New("database: checkpoint corrupt")

	// ErrNotFound indicates a lookup matched nothing.
	ErrNotFound = errors.New("database: record not found")
)
