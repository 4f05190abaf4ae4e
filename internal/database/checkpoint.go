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

// SaveCheckpoint stores the session's resumability snapshot. Only the
// latest checkpoint is kept: each save overwrites the previous one, so
// resume never has to pick among generations.
func (adb *ArchiveDB) SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	state, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}
	_, err = adb.db.ExecContext(ctx, `
	INSERT INTO checkpoints (session_id, state, saved_at)
	VALUES (?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		state = excluded.state,
		saved_at = excluded.saved_at
	`, cp.SessionID, string(state), cp.SavedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint retrieves the session's latest checkpoint. A missing
// checkpoint returns ErrCheckpointNotFound; a stored but undecodable
// one returns ErrCheckpointCorrupt so the caller can tell the operator
// instead of silently restarting from the seed.
func (adb *ArchiveDB) LoadCheckpoint(ctx context.Context, sessionID string) (*model.Checkpoint, error) {
	var state string
	err := adb.db.QueryRowContext(ctx,
		"SELECT state FROM checkpoints WHERE session_id = ?", sessionID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var cp model.Checkpoint
	if err := json.Unmarshal([]byte(state), &cp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointCorrupt, err)
	}
	if cp.SessionID != sessionID {
		return nil, fmt.Errorf("%w: snapshot belongs to session %q", ErrCheckpointCorrupt, cp.SessionID)
	}
	return &cp, nil
}
