package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/pkg/parser"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

func build(t *testing.T, existing *schema.Global, sql string) (*schema.Global, error) {
	t.Helper()
	stmts, err := parser.Parse(sql)
	require.NoError(t, err)
	return schema.BuildGlobal(existing, stmts)
}

func mustBuild(t *testing.T, sql string) *schema.Global {
	t.Helper()
	g, err := build(t, schema.Empty(), sql)
	require.NoError(t, err)
	return g
}

func TestBuildGlobal_CreateTable(t *testing.T) {
	g := mustBuild(t, `
		CREATE TABLE users (
			id serial PRIMARY KEY,
			email varchar(255) NOT NULL,
			name text,
			tags text[],
			created_at timestamptz NOT NULL DEFAULT now()
		);`)

	users, ok := g.Table("users")
	require.True(t, ok)

	want := types.NewRecord(
		types.Field{Name: "id", Type: types.Integer},
		types.Field{Name: "email", Type: types.VarChar},
		types.Field{Name: "name", Type: types.MakeNullable(types.Text)},
		types.Field{Name: "tags", Type: types.MakeNullable(types.NewArray(types.Text))},
		types.Field{Name: "created_at", Type: types.TimestampTZ},
	)
	assert.True(t, types.Equal(want, users.Columns), "got %s", users.Columns)
	assert.Equal(t, []string{"id", "created_at"}, users.Defaults)
	assert.True(t, users.HasDefault("id"))
	assert.False(t, users.HasDefault("name"))
}

func TestBuildGlobal_TablePrimaryKeyConstraint(t *testing.T) {
	g := mustBuild(t, `CREATE TABLE pairs (a int, b int, c int, PRIMARY KEY (a, b));`)

	pairs, ok := g.Table("public.pairs")
	require.True(t, ok)
	require.Len(t, pairs.Columns.Fields, 3)
	assert.Equal(t, types.Integer, pairs.Columns.Fields[0].Type)
	assert.Equal(t, types.Integer, pairs.Columns.Fields[1].Type)
	assert.True(t, types.IsNullable(pairs.Columns.Fields[2].Type))
}

func TestBuildGlobal_Like(t *testing.T) {
	g := mustBuild(t, `
		CREATE TABLE base (id serial NOT NULL, note text);
		CREATE TABLE derived (LIKE base, extra boolean NOT NULL);`)

	derived, ok := g.Table("derived")
	require.True(t, ok)
	names := make([]string, 0, len(derived.Columns.Fields))
	for _, f := range derived.Columns.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "note", "extra"}, names)
	assert.Equal(t, []string{"id"}, derived.Defaults)

	_, err := build(t, schema.Empty(), `CREATE TABLE x (LIKE missing);`)
	require.ErrorIs(t, err, schema.ErrUnknownIdentifier)
}

func TestBuildGlobal_DomainsAndEnums(t *testing.T) {
	g := mustBuild(t, `
		CREATE DOMAIN email AS text;
		CREATE DOMAIN positive_int integer CHECK (VALUE > 0);
		CREATE TYPE mood AS ENUM ('sad', 'ok', 'happy');
		CREATE TABLE people (contact email NOT NULL, feeling mood, age positive_int);`)

	email, ok := g.Domain("email")
	require.True(t, ok)
	assert.Equal(t, types.Text, email.Base)

	mood, ok := g.Enum("mood")
	require.True(t, ok)
	assert.Equal(t, []string{"sad", "ok", "happy"}, mood.Labels)

	people, ok := g.Relation("people")
	require.True(t, ok)
	assert.Equal(t, email, people.Fields[0].Type)
	assert.True(t, types.Equal(types.MakeNullable(mood), people.Fields[1].Type))
	assert.Equal(t, types.KindNullable, people.Fields[2].Type.Kind())
}

func TestBuildGlobal_NotImplemented(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"inherits", `CREATE TABLE a (id int); CREATE TABLE b (x int) INHERITS (a);`},
		{"alter table", `CREATE TABLE a (id int); ALTER TABLE a ADD COLUMN y int;`},
		{"create view", `CREATE VIEW v AS SELECT 1;`},
		{"create table as", `CREATE TABLE a AS SELECT 1 AS x;`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, schema.Empty(), tt.sql)
			require.ErrorIs(t, err, schema.ErrNotImplemented)

			var serr *schema.Error
			require.ErrorAs(t, err, &serr)
			assert.True(t, serr.Span.IsValid())
		})
	}
}

func TestBuildGlobal_PassesOverOtherStatements(t *testing.T) {
	g := mustBuild(t, `
		CREATE EXTENSION IF NOT EXISTS pgcrypto;
		CREATE INDEX users_idx ON users (id);
		SELECT 1;
		CREATE TABLE t (id int);`)

	assert.Len(t, g.Tables, 1)
}

func TestBuildGlobal_Duplicates(t *testing.T) {
	_, err := build(t, schema.Empty(), `CREATE TABLE t (id int); CREATE TABLE t (id int);`)
	require.ErrorIs(t, err, schema.ErrDuplicateObject)

	g := mustBuild(t, `CREATE TABLE t (id int); CREATE TABLE IF NOT EXISTS t (other text);`)
	require.Len(t, g.Tables, 1)
	assert.Equal(t, "id", g.Tables[0].Columns.Fields[0].Name)
}

func TestBuildGlobal_DoesNotModifyExisting(t *testing.T) {
	base := mustBuild(t, `CREATE TABLE a (id int);`)

	next, err := build(t, base, `CREATE TABLE b (id int);`)
	require.NoError(t, err)
	assert.Len(t, base.Tables, 1)
	assert.Len(t, next.Tables, 2)

	_, err = build(t, base, `CREATE TABLE c (id int); ALTER TABLE c ADD COLUMN x int;`)
	require.Error(t, err)
	assert.Len(t, base.Tables, 1)
}

func TestResolveType_UnknownSchema(t *testing.T) {
	_, err := build(t, schema.Empty(), `CREATE TABLE t (x other.thing);`)
	require.ErrorIs(t, err, schema.ErrUnknownIdentifier)
}
