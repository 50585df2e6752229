package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// StartRun records the start of a command.
func (s *SQLiteStore) StartRun(ctx context.Context, command string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Command:   command,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("command", command))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Command, string(run.Status), run.StartedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// FinishRun marks a run as finished. A run with failures is marked failed.
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, files, failures int) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	status := RunStatusCompleted
	if failures > 0 {
		status = RunStatusFailed
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, files = ?, failures = ? WHERE id = ?`,
		string(status), time.Now().UTC().UnixMilli(), files, failures, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		run      Run
		status   string
		started  int64
		finished sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, command, status, started_at, finished_at, files, failures FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Command, &status, &started, &finished, &run.Files, &run.Failures)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Status = RunStatus(status)
	run.StartedAt = time.UnixMilli(started).UTC()
	if finished.Valid {
		t := time.UnixMilli(finished.Int64).UTC()
		run.FinishedAt = &t
	}
	return &run, nil
}
