package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SchemaSQL is a small schema used by loader, engine and CLI tests.
const SchemaSQL = `CREATE DOMAIN email AS text;
CREATE TYPE status AS ENUM ('active', 'disabled');

CREATE TABLE users (
    id serial PRIMARY KEY,
    email email NOT NULL,
    name text,
    status status NOT NULL DEFAULT 'active'
);

CREATE TABLE posts (
    id bigserial PRIMARY KEY,
    author_id integer NOT NULL REFERENCES users (id),
    title text NOT NULL,
    published_at timestamptz
);
`

// QueriesSQL holds functions and annotated queries over SchemaSQL.
const QueriesSQL = `CREATE FUNCTION user_emails() RETURNS SETOF email AS $$
    SELECT email FROM users
$$ LANGUAGE sql;

CREATE FUNCTION post_count(author integer) RETURNS bigint AS $$
    SELECT count(*) FROM posts WHERE author_id = author
$$ LANGUAGE sql;

-- name: GetUser :one
SELECT id, name FROM users WHERE id = $1;

-- name: ListTitles :many
SELECT p.title, u.name FROM posts p LEFT JOIN users u ON u.id = p.author_id;
`

// WriteFiles writes files, keyed by slash-separated path relative to
// dir, creating parent directories as needed.
func WriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

// SetupProject creates a temporary project with a config file, a schema
// file and a query file, and returns its root.
func SetupProject(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, map[string]string{
		"sqltyper.yaml":       "schema:\n  - db/schema.sql\nqueries:\n  - queries\n",
		"db/schema.sql":       SchemaSQL,
		"queries/queries.sql": QueriesSQL,
	})
	return dir
}
