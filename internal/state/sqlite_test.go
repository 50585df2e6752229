package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenStore(context.Background(), ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	version, err := store.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// running again is a no-op
	require.NoError(t, store.Migrate(ctx))

	for _, table := range []string{"runs", "signatures"} {
		rows, err := store.db.QueryContext(ctx, "SELECT 1 FROM "+table+" LIMIT 1")
		require.NoError(t, err, "table %s does not exist", table)
		_ = rows.Close()
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.StartRun(ctx, "infer")
	assert.ErrorContains(t, err, "database not opened")
	_, _, err = store.GetSignatures(ctx, "k")
	assert.ErrorContains(t, err, "database not opened")
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		want     RunStatus
	}{
		{name: "completed", failures: 0, want: RunStatusCompleted},
		{name: "failed", failures: 2, want: RunStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()

			run, err := store.StartRun(ctx, "infer")
			require.NoError(t, err)
			assert.NotEmpty(t, run.ID)

			got, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, RunStatusRunning, got.Status)
			assert.Nil(t, got.FinishedAt)
			assert.True(t, run.StartedAt.Equal(got.StartedAt))

			require.NoError(t, store.FinishRun(ctx, run.ID, 3, tt.failures))

			got, err = store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, 3, got.Files)
			assert.Equal(t, tt.failures, got.Failures)
			assert.NotNil(t, got.FinishedAt)
		})
	}
}

func TestSQLiteStore_UnknownRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetRun(ctx, "nope")
	assert.ErrorContains(t, err, "run not found")
	assert.ErrorContains(t, store.FinishRun(ctx, "nope", 0, 0), "run not found")
}

func TestSQLiteStore_Signatures(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.StartRun(ctx, "infer")
	require.NoError(t, err)

	_, ok, err := store.GetSignatures(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutSignatures(ctx, "k1", "a.sql", run.ID, []byte(`[1]`)))
	payload, ok, err := store.GetSignatures(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[1]`, string(payload))

	t.Run("overwrite same key", func(t *testing.T) {
		require.NoError(t, store.PutSignatures(ctx, "k1", "a.sql", "", []byte(`[2]`)))
		payload, _, err := store.GetSignatures(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, `[2]`, string(payload))
	})

	t.Run("new key for same path replaces old", func(t *testing.T) {
		require.NoError(t, store.PutSignatures(ctx, "k2", "a.sql", run.ID, []byte(`[3]`)))
		_, ok, err := store.GetSignatures(ctx, "k1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSQLiteStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	store, err := OpenStore(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, store.PutSignatures(ctx, "k", "q.sql", "", []byte("x")))
	require.NoError(t, store.Close())

	store, err = OpenStore(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	payload, ok, err := store.GetSignatures(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", string(payload))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Len(t, Key("x"), 64)
}
