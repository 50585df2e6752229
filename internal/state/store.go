// Package state persists inferred signatures between runs in SQLite so
// that unchanged files are not elaborated again.
package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one invocation of a command.
type Run struct {
	ID         string
	Command    string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Files      int
	Failures   int
}

// Store is the signature cache.
type Store interface {
	StartRun(ctx context.Context, command string) (*Run, error)
	FinishRun(ctx context.Context, id string, files, failures int) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// GetSignatures returns the payload cached under key, if any.
	GetSignatures(ctx context.Context, key string) ([]byte, bool, error)
	PutSignatures(ctx context.Context, key, path, runID string, payload []byte) error
	Close() error
}

// Key derives a cache key from its parts. Parts are separated so that
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
