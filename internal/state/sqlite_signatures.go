package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSignatures returns the payload cached under key.
func (s *SQLiteStore) GetSignatures(ctx context.Context, key string) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, fmt.Errorf("database not opened")
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM signatures WHERE cache_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get signatures: %w", err)
	}
	return payload, true, nil
}

// PutSignatures stores payload under key, replacing any previous entry,
// and drops older entries for the same path.
func (s *SQLiteStore) PutSignatures(ctx context.Context, key, path, runID string, payload []byte) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM signatures WHERE path = ? AND cache_key <> ?`, path, key); err != nil {
		return fmt.Errorf("failed to prune signatures: %w", err)
	}

	var run any
	if runID != "" {
		run = runID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO signatures (cache_key, path, payload, run_id, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (cache_key) DO UPDATE SET path = excluded.path, payload = excluded.payload,
		     run_id = excluded.run_id, created_at = excluded.created_at`,
		key, path, payload, run, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store signatures: %w", err)
	}
	return tx.Commit()
}
