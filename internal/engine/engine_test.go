package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/internal/loader"
	"github.com/leapstack-labs/sqltyper/internal/testutil"
	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/elab"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
)

func newTestEngine(t *testing.T, dir string, cfg Config) *Engine {
	t.Helper()
	if cfg.Schema == nil {
		cfg.Schema = []string{filepath.Join(dir, "db", "schema.sql")}
	}
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(t)
	}
	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_LoadSchema(t *testing.T) {
	dir := testutil.SetupProject(t)
	testutil.WriteFiles(t, dir, map[string]string{
		"db/migrations/00001_tags.sql": "-- +goose Up\nCREATE TABLE tags (post_id bigint NOT NULL, tag text NOT NULL);\n-- +goose Down\nDROP TABLE tags;\n",
	})
	e := newTestEngine(t, dir, Config{Migrations: filepath.Join(dir, "db", "migrations")})

	g, err := e.LoadSchema(context.Background())
	require.NoError(t, err)
	for _, name := range []string{"users", "posts", "tags"} {
		_, ok := g.Table(name)
		assert.True(t, ok, "missing table %s", name)
	}
}

func TestEngine_LoadSchemaError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"db/schema.sql": "CREATE TABLE a (id int);\nCREATE VIEW v AS SELECT 1;\n"})
	e := newTestEngine(t, dir, Config{})

	_, err := e.LoadSchema(context.Background())
	require.Error(t, err)

	d := Diagnose("", "", err)
	assert.Equal(t, filepath.Join(dir, "db", "schema.sql"), d.File)
	assert.Equal(t, 2, d.Line)
	assert.Equal(t, 1, d.Column)
	assert.Contains(t, d.Message, "CREATE VIEW")
	assert.Contains(t, d.Excerpt, "^")
}

func TestEngine_Infer(t *testing.T) {
	dir := testutil.SetupProject(t)
	e := newTestEngine(t, dir, Config{})
	ctx := context.Background()

	g, err := e.LoadSchema(ctx)
	require.NoError(t, err)
	report, err := e.Infer(ctx, g, "infer", []string{filepath.Join(dir, "queries")})
	require.NoError(t, err)
	require.False(t, report.Failed(), "%v", report.Diagnostics())

	sigs := report.Signatures()
	require.Len(t, sigs, 4)
	byName := map[string]Signature{}
	for _, s := range sigs {
		byName[s.Name] = s
	}

	emails := byName["user_emails"]
	assert.Equal(t, KindFunction, emails.Kind)
	assert.Equal(t, "user_emails() -> setof email", emails.Text)
	assert.True(t, emails.MultipleRows)
	assert.Equal(t, "domain", emails.Returns.Kind)
	assert.False(t, emails.Returns.Nullable)

	count := byName["post_count"]
	require.Len(t, count.Inputs, 1)
	assert.Equal(t, "author", count.Inputs[0].Name)
	assert.Equal(t, "integer", count.Inputs[0].Type.Name)
	assert.Equal(t, "bigint", count.Returns.Name)
	assert.False(t, count.MultipleRows)

	get := byName["GetUser"]
	assert.Equal(t, KindQuery, get.Kind)
	assert.Equal(t, 10, get.Line)
	assert.False(t, get.MultipleRows)
	require.Len(t, get.Inputs, 1)
	assert.Equal(t, "integer", get.Inputs[0].Type.Name)
	require.Len(t, get.Returns.Fields, 2)
	assert.True(t, get.Returns.Fields[1].Type.Nullable)

	titles := byName["ListTitles"]
	assert.True(t, titles.MultipleRows)
	require.Len(t, titles.Returns.Fields, 2)
	assert.False(t, titles.Returns.Fields[0].Type.Nullable)
	assert.True(t, titles.Returns.Fields[1].Type.Nullable)
}

func TestEngine_InferDiagnostics(t *testing.T) {
	dir := testutil.SetupProject(t)
	testutil.WriteFiles(t, dir, map[string]string{
		"queries/bad.sql": "-- name: Broken :many\nSELECT nope FROM users;\n\n" +
			"CREATE FUNCTION ok() RETURNS SETOF integer AS $$ SELECT id FROM users $$ LANGUAGE sql;\n" +
			"SELECT 'unannotated';\n",
		"queries/syntax.sql": "SELECT (1;\n",
	})
	e := newTestEngine(t, dir, Config{Workers: 2})
	ctx := context.Background()

	g, err := e.LoadSchema(ctx)
	require.NoError(t, err)
	report, err := e.Infer(ctx, g, "check", []string{filepath.Join(dir, "queries")})
	require.NoError(t, err)
	require.True(t, report.Failed())

	diags := report.Diagnostics()
	require.Len(t, diags, 2)

	bad := diags[0]
	assert.Equal(t, filepath.Join(dir, "queries", "bad.sql"), bad.File)
	assert.Equal(t, elab.UnknownIdentifier.String(), bad.Kind)
	assert.Equal(t, 2, bad.Line)
	assert.Equal(t, 8, bad.Column)
	assert.Equal(t, "SELECT nope FROM users;\n       ^^^^", bad.Excerpt)

	assert.Equal(t, "syntax error", diags[1].Kind)
	assert.Equal(t, 1, diags[1].Line)

	// the function after the failing query is still typed
	var names []string
	for _, s := range report.Signatures() {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "ok")
	assert.NotContains(t, names, "Broken")
}

func TestEngine_InferCache(t *testing.T) {
	dir := testutil.SetupProject(t)
	logger, logs := testutil.NewCaptureLogger()
	e := newTestEngine(t, dir, Config{CachePath: ":memory:", Logger: logger})
	ctx := context.Background()
	queries := []string{filepath.Join(dir, "queries")}

	g, err := e.LoadSchema(ctx)
	require.NoError(t, err)

	first, err := e.Infer(ctx, g, "infer", queries)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Cached())

	second, err := e.Infer(ctx, g, "infer", queries)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Cached())
	assert.Equal(t, first.Signatures(), second.Signatures())
	assert.Contains(t, logs.String(), "cache hit")

	t.Run("schema change invalidates", func(t *testing.T) {
		extra, err := schema.BuildGlobal(g, mustParse(t, "CREATE TABLE extra (id int);"))
		require.NoError(t, err)
		third, err := e.Infer(ctx, extra, "infer", queries)
		require.NoError(t, err)
		assert.Equal(t, 0, third.Cached())
	})

	t.Run("file change invalidates", func(t *testing.T) {
		testutil.WriteFiles(t, dir, map[string]string{"queries/queries.sql": testutil.QueriesSQL + "\n-- name: One :one\nSELECT 1 AS one;\n"})
		fourth, err := e.Infer(ctx, g, "infer", queries)
		require.NoError(t, err)
		assert.Equal(t, 0, fourth.Cached())
		assert.Len(t, fourth.Signatures(), 5)
	})
}

func TestEngine_InferMissingPath(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), Config{Schema: []string{}})
	_, err := e.Infer(context.Background(), schema.Empty(), "infer", []string{"does/not/exist"})
	assert.Error(t, err)
}

func TestEngine_UnknownCatalog(t *testing.T) {
	_, err := New(context.Background(), Config{Catalog: "oracle"})
	assert.Error(t, err)
}

func TestEngine_Watch(t *testing.T) {
	dir := testutil.SetupProject(t)
	e := newTestEngine(t, dir, Config{})
	queries := filepath.Join(dir, "queries")

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- e.Watch(ctx, []string{queries}, func(context.Context) { runs.Add(1) })
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(queries, "new.sql"), []byte("SELECT 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(queries, "notes.txt"), []byte("ignored"), 0o644))

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func mustParse(t *testing.T, sql string) []ast.Stmt {
	t.Helper()
	stmts, err := loader.Parse(loader.File{Path: "inline.sql", Content: sql})
	require.NoError(t, err)
	return stmts
}
