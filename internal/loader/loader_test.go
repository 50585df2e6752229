package loader_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/internal/loader"
	"github.com/leapstack-labs/sqltyper/internal/testutil"
	"github.com/leapstack-labs/sqltyper/pkg/parser"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
)

func TestScan(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"b.sql":            "SELECT 2",
		"a.sql":            "SELECT 1",
		"nested/c.sql":     "SELECT 3",
		"notes.txt":        "not sql",
		".hidden.sql":      "SELECT 4",
		".git/ignored.sql": "SELECT 5",
	})
	l := loader.New(testutil.NewTestLogger(t))

	files, err := l.Scan([]string{dir})
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		rel, err := filepath.Rel(dir, f.Path)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"a.sql", "b.sql", "nested/c.sql"}, names)
	assert.Equal(t, "SELECT 1", files[0].Content)
}

func TestScan_SingleFileAndMissing(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"one.sql": "SELECT 1"})
	l := loader.New(nil)

	files, err := l.Scan([]string{filepath.Join(dir, "one.sql")})
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = l.Scan([]string{filepath.Join(dir, "missing.sql")})
	assert.Error(t, err)
}

func TestUpSection(t *testing.T) {
	content := "-- +goose Up\n" +
		"CREATE TABLE a (id int);\n" +
		"-- +goose Down\n" +
		"DROP TABLE a;\n"

	up := loader.UpSection(content)
	assert.Len(t, up, len(content))
	assert.Contains(t, up, "CREATE TABLE a (id int);")
	assert.NotContains(t, up, "DROP TABLE")

	t.Run("without annotations", func(t *testing.T) {
		assert.Equal(t, "CREATE TABLE b (id int);", loader.UpSection("CREATE TABLE b (id int);"))
	})

	t.Run("lines before up are dropped", func(t *testing.T) {
		up := loader.UpSection("SELECT 1;\n-- +goose Up\nCREATE TABLE c (id int);\n")
		assert.NotContains(t, up, "SELECT 1")
		assert.Contains(t, up, "CREATE TABLE c")
	})

	t.Run("positions are kept", func(t *testing.T) {
		up := loader.UpSection(content)
		stmts, err := parser.Parse(up)
		require.NoError(t, err)
		require.Len(t, stmts, 1)
		assert.Equal(t, 2, stmts[0].GetSpan().Start.Line)
	})
}

func TestMigrations(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"00002_posts.sql": "-- +goose Up\nCREATE TABLE posts (id int, author int NOT NULL);\n-- +goose Down\nDROP TABLE posts;\n",
		"00001_users.sql": "-- +goose Up\nCREATE TABLE users (id int);\n-- +goose Down\nDROP TABLE users;\n",
	})
	l := loader.New(testutil.NewTestLogger(t))

	files, err := l.Migrations(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "00001_users.sql", filepath.Base(files[0].Path))
	assert.Equal(t, "00002_posts.sql", filepath.Base(files[1].Path))
	assert.NotContains(t, files[0].Content, "DROP TABLE")

	g, err := l.Schema(nil, files)
	require.NoError(t, err)
	_, ok := g.Table("users")
	assert.True(t, ok)
	_, ok = g.Table("posts")
	assert.True(t, ok)

	t.Run("no directory configured", func(t *testing.T) {
		files, err := l.Migrations("")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestSchema(t *testing.T) {
	l := loader.New(testutil.NewTestLogger(t))

	g, err := l.Schema(schema.Empty(), []loader.File{{Path: "schema.sql", Content: testutil.SchemaSQL}})
	require.NoError(t, err)

	users, ok := g.Table("users")
	require.True(t, ok)
	assert.Len(t, users.Columns.Fields, 4)
	_, ok = g.Domain("email")
	assert.True(t, ok)
	_, ok = g.Enum("status")
	assert.True(t, ok)
}

func TestSchema_ErrorsNameTheFile(t *testing.T) {
	l := loader.New(nil)

	tests := []struct {
		name    string
		content string
	}{
		{name: "parse error", content: "CREATE TABLE ("},
		{name: "schema error", content: "CREATE TABLE a (id nosuch.thing);"},
		{name: "unsupported", content: "CREATE VIEW v AS SELECT 1;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Schema(nil, []loader.File{{Path: "bad.sql", Content: tt.content}})
			require.Error(t, err)
			var fe *loader.FileError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "bad.sql", fe.Path)
			assert.Contains(t, err.Error(), "bad.sql: ")
		})
	}
}
