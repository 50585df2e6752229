package elab_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/internal/testutil"
	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/elab"
	"github.com/leapstack-labs/sqltyper/pkg/parser"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

const testSchema = `
CREATE TABLE t (id int NOT NULL, name text);
CREATE DOMAIN price AS numeric;
CREATE TYPE mood AS ENUM ('sad', 'ok', 'happy');
CREATE TABLE items (id serial PRIMARY KEY, cost price NOT NULL, note text);
CREATE TABLE person (id bigint PRIMARY KEY, m mood NOT NULL, tags text[]);
CREATE DOMAIN qty AS integer;
CREATE TABLE stock (id int NOT NULL, q qty NOT NULL);
`

func newElaborator(t *testing.T) *elab.Elaborator {
	t.Helper()
	stmts, err := parser.Parse(testSchema)
	require.NoError(t, err)
	g, err := schema.BuildGlobal(schema.Empty(), stmts)
	require.NoError(t, err)
	return elab.New(elab.Config{Global: g, Logger: testutil.NewTestLogger(t)})
}

func createFunction(t *testing.T, e *elab.Elaborator, sql string) (*elab.FunctionSignature, error) {
	t.Helper()
	stmt, err := parser.ParseStatement(sql)
	require.NoError(t, err)
	fn, ok := stmt.(*ast.CreateFunction)
	require.True(t, ok, "got %T", stmt)
	return e.CreateFunction(fn)
}

func elabQuery(t *testing.T, e *elab.Elaborator, sql string) (*elab.FunctionSignature, error) {
	t.Helper()
	stmt, err := parser.ParseStatement(sql)
	require.NoError(t, err)
	return e.ElabQuery(stmt)
}

func record(fields ...any) *types.Record {
	rec := &types.Record{}
	for i := 0; i < len(fields); i += 2 {
		rec.Fields = append(rec.Fields, types.Field{Name: fields[i].(string), Type: fields[i+1].(types.Type)})
	}
	return rec
}

func assertType(t *testing.T, want, got types.Type) {
	t.Helper()
	assert.True(t, types.Equal(want, got), "want %s, got %s", want, got)
}

func TestCreateFunction_SetOfRecord(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `CREATE FUNCTION f() RETURNS SETOF RECORD AS $$ SELECT id, name FROM t $$ LANGUAGE sql;`)
	require.NoError(t, err)

	assert.Equal(t, "f", sig.Name)
	assert.Empty(t, sig.Inputs)
	assert.True(t, sig.MultipleRows)
	assertType(t, record("id", types.Integer, "name", types.MakeNullable(types.Text)), sig.Returns)
}

func TestCreateFunction_Record(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `
		CREATE FUNCTION by_id(wanted int) RETURNS RECORD AS $$
			SELECT name FROM t WHERE id = wanted
		$$ LANGUAGE sql;`)
	require.NoError(t, err)

	assert.False(t, sig.MultipleRows)
	require.Len(t, sig.Inputs, 1)
	assert.Equal(t, "wanted", sig.Inputs[0].Name)
	assertType(t, types.Integer, sig.Inputs[0].Type)
	assertType(t, record("name", types.MakeNullable(types.Text)), sig.Returns)
}

func TestCreateFunction_UnusedArgument(t *testing.T) {
	e := newElaborator(t)
	_, err := createFunction(t, e, `
		CREATE FUNCTION f(myparam int, other int) RETURNS SETOF RECORD AS $$
			SELECT id FROM t WHERE id = other
		$$ LANGUAGE sql;`)
	require.Error(t, err)
	assert.ErrorIs(t, err, elab.ErrUnusedArgument)
	assert.Contains(t, err.Error(), "myparam")
}

func TestCreateFunction_QualifiedParameter(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `
		CREATE FUNCTION lookup(id int) RETURNS SETOF RECORD AS $$
			SELECT name FROM t WHERE t.id = lookup.id
		$$ LANGUAGE sql;`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 1)
	assertType(t, types.Integer, sig.Inputs[0].Type)
}

func TestCreateFunction_InferredParameters(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `
		CREATE FUNCTION search(int, text) RETURNS SETOF RECORD AS $$
			SELECT id FROM t WHERE id > $1 AND name LIKE $2
		$$ LANGUAGE sql;`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 2)
	assertType(t, types.Integer, sig.Inputs[0].Type)
	assertType(t, types.Text, sig.Inputs[1].Type)

	sig, err = createFunction(t, e, `
		CREATE FUNCTION search2(a, b) RETURNS SETOF RECORD AS $$
			SELECT id FROM t WHERE id > a AND name = b
		$$ LANGUAGE sql;`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 2)
	assertType(t, types.Integer, sig.Inputs[0].Type)
	assertType(t, types.Text, sig.Inputs[1].Type)
}

func TestCreateFunction_ScalarReturn(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `CREATE FUNCTION inc(a int) RETURNS int AS $$ SELECT a + 1 $$ LANGUAGE sql;`)
	require.NoError(t, err)
	assert.False(t, sig.MultipleRows)
	assertType(t, types.Integer, sig.Returns)

	sig, err = createFunction(t, e, `CREATE FUNCTION names() RETURNS SETOF text AS $$ SELECT name FROM t $$ LANGUAGE sql;`)
	require.NoError(t, err)
	assert.True(t, sig.MultipleRows)
	assertType(t, types.MakeNullable(types.Text), sig.Returns)

	_, err = createFunction(t, e, `CREATE FUNCTION bad() RETURNS int AS $$ SELECT id, name FROM t $$ LANGUAGE sql;`)
	assert.ErrorIs(t, err, elab.ErrKindMismatch)

	_, err = createFunction(t, e, `CREATE FUNCTION bad2() RETURNS date AS $$ SELECT id FROM t $$ LANGUAGE sql;`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)
}

func TestCreateFunction_ReturnsTable(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `
		CREATE FUNCTION listing() RETURNS TABLE (user_id bigint, label text) AS $$
			SELECT id, name FROM t
		$$ LANGUAGE sql;`)
	require.NoError(t, err)
	assert.True(t, sig.MultipleRows)
	assertType(t, record("user_id", types.BigInt, "label", types.MakeNullable(types.Text)), sig.Returns)

	_, err = createFunction(t, e, `
		CREATE FUNCTION short() RETURNS TABLE (user_id bigint) AS $$
			SELECT id, name FROM t
		$$ LANGUAGE sql;`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)
}

func TestCreateFunction_ReturnsTableType(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `CREATE FUNCTION all_t() RETURNS SETOF t AS $$ SELECT * FROM t $$ LANGUAGE sql;`)
	require.NoError(t, err)
	assert.True(t, sig.MultipleRows)
	assertType(t, record("id", types.Integer, "name", types.MakeNullable(types.Text)), sig.Returns)
}

func TestCreateFunction_OutParameters(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `
		CREATE FUNCTION get_name(IN k int, OUT v text) AS $$
			SELECT name FROM t WHERE id = k
		$$ LANGUAGE sql;`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 1)
	assert.Equal(t, "k", sig.Inputs[0].Name)
	assert.False(t, sig.MultipleRows)
	assertType(t, record("v", types.MakeNullable(types.Text)), sig.Returns)
}

func TestCreateFunction_Defaults(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `
		CREATE FUNCTION page(lim int DEFAULT 10) RETURNS SETOF RECORD AS $$
			SELECT id FROM t ORDER BY id LIMIT lim
		$$ LANGUAGE sql;`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 1)
	assert.True(t, sig.Inputs[0].HasDefault)

	_, err = createFunction(t, e, `
		CREATE FUNCTION page2(lim int DEFAULT '2020-01-01'::date) RETURNS SETOF RECORD AS $$
			SELECT id FROM t LIMIT lim
		$$ LANGUAGE sql;`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)
}

func TestCreateFunction_VoidAndDML(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `CREATE FUNCTION drop_t(x int) RETURNS void AS $$ DELETE FROM t WHERE id = x $$ LANGUAGE sql;`)
	require.NoError(t, err)
	assert.Equal(t, types.Void, sig.Returns)
	assert.False(t, sig.MultipleRows)

	_, err = createFunction(t, e, `CREATE FUNCTION drop_t2(x int) RETURNS SETOF RECORD AS $$ DELETE FROM t WHERE id = x $$ LANGUAGE sql;`)
	assert.ErrorIs(t, err, elab.ErrKindMismatch)

	sig, err = createFunction(t, e, `
		CREATE FUNCTION set_name(x int, n text) RETURNS SETOF RECORD AS $$
			UPDATE t SET name = n WHERE id = x RETURNING id, name
		$$ LANGUAGE sql;`)
	require.NoError(t, err)
	assertType(t, record("id", types.Integer, "name", types.MakeNullable(types.Text)), sig.Returns)
}

func TestCreateFunction_LastStatementWins(t *testing.T) {
	e := newElaborator(t)
	sig, err := createFunction(t, e, `
		CREATE FUNCTION two(x int) RETURNS SETOF RECORD AS $$
			DELETE FROM t WHERE id = x;
			SELECT count(*) AS remaining FROM t;
		$$ LANGUAGE sql;`)
	require.NoError(t, err)
	assertType(t, record("remaining", types.BigInt), sig.Returns)
}

func TestCreateFunction_OtherLanguage(t *testing.T) {
	e := newElaborator(t)
	_, err := createFunction(t, e, `CREATE FUNCTION p() RETURNS int AS $$ BEGIN RETURN 1; END $$ LANGUAGE plpgsql;`)
	assert.ErrorIs(t, err, elab.ErrNotImplemented)
}

func TestDoCreateFunction(t *testing.T) {
	stmts, err := parser.Parse(`CREATE TABLE t (id int NOT NULL);`)
	require.NoError(t, err)
	g, err := schema.BuildGlobal(nil, stmts)
	require.NoError(t, err)

	stmt, err := parser.ParseStatement(`CREATE FUNCTION ids() RETURNS SETOF int AS $$ SELECT id FROM t $$ LANGUAGE sql;`)
	require.NoError(t, err)
	sig, err := elab.DoCreateFunction(g, stmt.(*ast.CreateFunction))
	require.NoError(t, err)
	assertType(t, types.Integer, sig.Returns)
	assert.Equal(t, "ids() -> setof integer", sig.String())
}

func TestSelect_LeftJoinNullability(t *testing.T) {
	e := newElaborator(t)
	sig, err := elabQuery(t, e, `SELECT a.id, b.id FROM t a LEFT JOIN t b ON a.name = b.name`)
	require.NoError(t, err)
	assertType(t, record("id", types.Integer, "id", types.MakeNullable(types.Integer)), sig.Returns)
}

func TestSelect_JoinKinds(t *testing.T) {
	e := newElaborator(t)
	tests := []struct {
		name string
		sql  string
		want *types.Record
	}{
		{
			name: "inner",
			sql:  `SELECT a.id, b.id FROM t a JOIN t b ON a.id = b.id`,
			want: record("id", types.Integer, "id", types.Integer),
		},
		{
			name: "right",
			sql:  `SELECT a.id, b.id FROM t a RIGHT JOIN t b ON a.id = b.id`,
			want: record("id", types.MakeNullable(types.Integer), "id", types.Integer),
		},
		{
			name: "full",
			sql:  `SELECT a.id, b.id FROM t a FULL JOIN t b ON a.id = b.id`,
			want: record("id", types.MakeNullable(types.Integer), "id", types.MakeNullable(types.Integer)),
		},
		{
			name: "left twice does not double wrap",
			sql:  `SELECT c.name FROM t a LEFT JOIN t b ON a.id = b.id LEFT JOIN t c ON b.id = c.id`,
			want: record("name", types.MakeNullable(types.Text)),
		},
		{
			name: "using merges columns",
			sql:  `SELECT id FROM t a JOIN t b USING (id)`,
			want: record("id", types.Integer),
		},
		{
			name: "comma",
			sql:  `SELECT a.name, i.cost FROM t a, items i`,
			want: record("name", types.MakeNullable(types.Text), "cost", &types.Domain{Name: "price", Base: types.Numeric}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := elabQuery(t, e, tt.sql)
			require.NoError(t, err)
			assertType(t, tt.want, sig.Returns)
		})
	}
}

func TestSelect_MergedColumnScope(t *testing.T) {
	e := newElaborator(t)

	_, err := elabQuery(t, e, `SELECT id FROM t a JOIN t b USING (id) JOIN t c ON c.name = a.name`)
	require.Error(t, err)
	assert.ErrorIs(t, err, elab.ErrAmbiguousIdentifier)
	var eerr *elab.Error
	require.True(t, errors.As(err, &eerr))
	assert.Equal(t, []string{"a", "b", "c"}, eerr.Candidates)

	sig, err := elabQuery(t, e, `SELECT id FROM t a JOIN t b USING (id) JOIN t c USING (id)`)
	require.NoError(t, err)
	assertType(t, record("id", types.Integer), sig.Returns)

	sig, err = elabQuery(t, e, `SELECT * FROM t a JOIN t b USING (id) JOIN t c ON c.name = a.name`)
	require.NoError(t, err)
	rec, ok := sig.Returns.(*types.Record)
	require.True(t, ok)
	names := make([]string, len(rec.Fields))
	for i, f := range rec.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"id", "name", "name", "id", "name"}, names)

	_, err = elabQuery(t, e, `SELECT 1 FROM t a JOIN t b ON a.id = b.id JOIN t c USING (id)`)
	assert.ErrorIs(t, err, elab.ErrAmbiguousIdentifier)
}

func TestSelect_DuplicateTableName(t *testing.T) {
	e := newElaborator(t)
	tests := []string{
		`SELECT a.id FROM t a, t a`,
		`SELECT 1 FROM t JOIN t ON true`,
		`SELECT 1 FROM t a JOIN items b ON true JOIN person a ON true`,
	}
	for _, sql := range tests {
		t.Run(sql, func(t *testing.T) {
			_, err := elabQuery(t, e, sql)
			require.Error(t, err)
			assert.ErrorIs(t, err, elab.ErrAmbiguousIdentifier)
			assert.Contains(t, err.Error(), "specified more than once")
		})
	}

	_, err := elabQuery(t, e, `SELECT a.id FROM t a, (SELECT 1 AS x FROM t a) s`)
	assert.NoError(t, err)
}

func TestSelect_NullFitsAnySlot(t *testing.T) {
	e := newElaborator(t)

	sig, err := elabQuery(t, e, `SELECT CASE WHEN id > 1 THEN ROW(id, 2) ELSE NULL END AS v FROM t`)
	require.NoError(t, err)
	rec, ok := sig.Returns.(*types.Record)
	require.True(t, ok)
	require.Len(t, rec.Fields, 1)
	assert.True(t, types.IsNullable(rec.Fields[0].Type))
	core, _ := types.Unwrap(rec.Fields[0].Type)
	assert.IsType(t, &types.Record{}, core)

	_, err = elabQuery(t, e, `INSERT INTO person (id, m, tags) VALUES (1, 'ok', NULL)`)
	assert.NoError(t, err)
}

func TestSelect_JoinConditionMustBeBoolean(t *testing.T) {
	e := newElaborator(t)
	_, err := elabQuery(t, e, `SELECT 1 FROM t a JOIN t b ON a.id`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)
}

func TestSelect_CountStar(t *testing.T) {
	e := newElaborator(t)
	sig, err := elabQuery(t, e, `SELECT COUNT(*) FROM t`)
	require.NoError(t, err)
	assertType(t, record("count", types.BigInt), sig.Returns)

	sig, err = elabQuery(t, e, `SELECT count(*) AS n, max(id) FROM t`)
	require.NoError(t, err)
	assertType(t, record("n", types.BigInt, "max", types.MakeNullable(types.Integer)), sig.Returns)
}

func TestSelect_CompareWithNull(t *testing.T) {
	e := newElaborator(t)
	_, err := elabQuery(t, e, `SELECT id FROM t WHERE id = NULL`)
	require.Error(t, err)
	assert.ErrorIs(t, err, elab.ErrCompareWithNull)
	assert.NotErrorIs(t, err, elab.ErrTypeMismatch)
	assert.Contains(t, err.Error(), "IS NULL")

	_, err = elabQuery(t, e, `SELECT id FROM t WHERE name IS NULL`)
	assert.NoError(t, err)
}

func TestSelect_AmbiguousIdentifier(t *testing.T) {
	e := newElaborator(t)
	_, err := elabQuery(t, e, `SELECT id FROM t a JOIN t b ON a.id = b.id`)
	require.Error(t, err)
	assert.ErrorIs(t, err, elab.ErrAmbiguousIdentifier)

	var eerr *elab.Error
	require.True(t, errors.As(err, &eerr))
	assert.Equal(t, []string{"a", "b"}, eerr.Candidates)
}

func TestSelect_UnknownNames(t *testing.T) {
	e := newElaborator(t)
	tests := []struct {
		sql  string
		want error
	}{
		{`SELECT * FROM nope`, elab.ErrUnknownIdentifier},
		{`SELECT nope FROM t`, elab.ErrUnknownIdentifier},
		{`SELECT x.id FROM t`, elab.ErrUnknownIdentifier},
		{`SELECT t.nope FROM t`, elab.ErrUnknownField},
		{`SELECT no_such_function(id) FROM t`, elab.ErrUnknownIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			_, err := elabQuery(t, e, tt.sql)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSelect_Expressions(t *testing.T) {
	e := newElaborator(t)
	tests := []struct {
		name string
		sql  string
		want types.Type
	}{
		{"arithmetic", `SELECT id + 1 AS v FROM t`, types.Integer},
		{"nullable arithmetic", `SELECT length(name) + id AS v FROM t`, types.MakeNullable(types.Integer)},
		{"concat", `SELECT name || 'x' AS v FROM t`, types.MakeNullable(types.Text)},
		{"coalesce", `SELECT coalesce(name, 'none') AS v FROM t`, types.Text},
		{"case without else", `SELECT CASE WHEN id > 1 THEN 'big' END AS v FROM t`, types.MakeNullable(types.Text)},
		{"case with else", `SELECT CASE WHEN id > 1 THEN id ELSE 0 END AS v FROM t`, types.Integer},
		{"cast", `SELECT id::text AS v FROM t`, types.Text},
		{"cast nullable", `SELECT name::varchar AS v FROM t`, types.MakeNullable(types.VarChar)},
		{"string literal cast", `SELECT '2020-01-01'::date AS v`, types.Date},
		{"in list", `SELECT id IN (1, 2, 3) AS v FROM t`, types.Boolean},
		{"between", `SELECT id BETWEEN 1 AND 10 AS v FROM t`, types.Boolean},
		{"is null", `SELECT name IS NULL AS v FROM t`, types.Boolean},
		{"like", `SELECT name LIKE 'a%' AS v FROM t`, types.MakeNullable(types.Boolean)},
		{"exists", `SELECT EXISTS (SELECT 1 FROM t) AS v`, types.Boolean},
		{"scalar subquery", `SELECT (SELECT id FROM t LIMIT 1) AS v`, types.MakeNullable(types.Integer)},
		{"array literal", `SELECT ARRAY[1, 2] AS v`, types.NewArray(types.Integer)},
		{"array subquery", `SELECT ARRAY(SELECT id FROM t) AS v`, types.NewArray(types.Integer)},
		{"subscript", `SELECT tags[1] AS v FROM person`, types.MakeNullable(types.Text)},
		{"any", `SELECT 'x' = ANY(tags) AS v FROM person`, types.MakeNullable(types.Boolean)},
		{"domain kept by max", `SELECT max(cost) AS v FROM items`, types.MakeNullable(&types.Domain{Name: "price", Base: types.Numeric})},
		{"domain kept by sum", `SELECT sum(cost) AS v FROM items`, types.MakeNullable(&types.Domain{Name: "price", Base: types.Numeric})},
		{"domain kept by avg", `SELECT avg(cost) AS v FROM items`, types.MakeNullable(&types.Domain{Name: "price", Base: types.Numeric})},
		{"domain kept by min", `SELECT min(q) AS v FROM stock`, types.MakeNullable(&types.Domain{Name: "qty", Base: types.Integer})},
		{"sum widens integer domain", `SELECT sum(q) AS v FROM stock`, types.MakeNullable(types.BigInt)},
		{"avg widens integer domain", `SELECT avg(q) AS v FROM stock`, types.MakeNullable(types.Numeric)},
		{"window ranking", `SELECT row_number() OVER (ORDER BY id) AS v FROM t`, types.BigInt},
		{"enum comparison", `SELECT m = 'ok' AS v FROM person`, types.Boolean},
		{"null literal", `SELECT NULL AS v`, types.MakeNullable(types.AnyScalar)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := elabQuery(t, e, tt.sql)
			require.NoError(t, err)
			rec, ok := sig.Returns.(*types.Record)
			require.True(t, ok)
			require.Len(t, rec.Fields, 1)
			assertType(t, tt.want, rec.Fields[0].Type)
		})
	}
}

func TestSelect_ExpressionErrors(t *testing.T) {
	e := newElaborator(t)
	tests := []struct {
		name string
		sql  string
		want error
	}{
		{"bad operator", `SELECT true + 1`, elab.ErrTypeMismatch},
		{"enum with integer", `SELECT id FROM person WHERE m = 1`, elab.ErrTypeMismatch},
		{"non boolean where", `SELECT id FROM t WHERE id`, elab.ErrTypeMismatch},
		{"two column subquery", `SELECT (SELECT id, name FROM t)`, elab.ErrKindMismatch},
		{"row where scalar expected", `SELECT ROW(1, 2) + 1`, elab.ErrKindMismatch},
		{"no matching cast", `SELECT '2020-01-01'::date::uuid`, elab.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := elabQuery(t, e, tt.sql)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSelect_SetOperations(t *testing.T) {
	e := newElaborator(t)

	sig, err := elabQuery(t, e, `SELECT id FROM t UNION ALL SELECT NULL`)
	require.NoError(t, err)
	assertType(t, record("id", types.MakeNullable(types.Integer)), sig.Returns)

	sig, err = elabQuery(t, e, `SELECT id AS x FROM t UNION SELECT 1 ORDER BY x`)
	require.NoError(t, err)
	assertType(t, record("x", types.Integer), sig.Returns)

	_, err = elabQuery(t, e, `SELECT id, name FROM t UNION SELECT id FROM t`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)

	_, err = elabQuery(t, e, `SELECT id FROM t UNION SELECT name FROM t`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)
}

func TestSelect_CommonTableExpressions(t *testing.T) {
	e := newElaborator(t)

	sig, err := elabQuery(t, e, `WITH x AS (SELECT id AS k FROM t) SELECT k FROM x`)
	require.NoError(t, err)
	assertType(t, record("k", types.Integer), sig.Returns)

	sig, err = elabQuery(t, e, `WITH x(a, b) AS (SELECT id, name FROM t) SELECT b FROM x`)
	require.NoError(t, err)
	assertType(t, record("b", types.MakeNullable(types.Text)), sig.Returns)

	sig, err = elabQuery(t, e, `
		WITH RECURSIVE n(i) AS (SELECT 1 UNION ALL SELECT i + 1 FROM n WHERE i < 10)
		SELECT i FROM n`)
	require.NoError(t, err)
	assertType(t, record("i", types.Integer), sig.Returns)

	sig, err = elabQuery(t, e, `WITH del AS (DELETE FROM t WHERE id = $1 RETURNING id) SELECT count(*) FROM del`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 1)
	assertType(t, types.Integer, sig.Inputs[0].Type)

	_, err = elabQuery(t, e, `WITH x(a, b, c) AS (SELECT id FROM t) SELECT a FROM x`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)

	_, err = elabQuery(t, e, `WITH del AS (DELETE FROM t) SELECT 1 FROM del`)
	assert.ErrorIs(t, err, elab.ErrKindMismatch)
}

func TestSelect_DerivedTables(t *testing.T) {
	e := newElaborator(t)

	sig, err := elabQuery(t, e, `SELECT s.n FROM (SELECT name AS n FROM t) s`)
	require.NoError(t, err)
	assertType(t, record("n", types.MakeNullable(types.Text)), sig.Returns)

	_, err = elabQuery(t, e, `SELECT * FROM generate_series(1, 3)`)
	assert.ErrorIs(t, err, elab.ErrNotImplemented)
}

func TestSelect_Values(t *testing.T) {
	e := newElaborator(t)
	sig, err := elabQuery(t, e, `VALUES (1, 'a'), (2, NULL)`)
	require.NoError(t, err)
	assertType(t, record("column1", types.Integer, "column2", types.MakeNullable(types.Text)), sig.Returns)

	_, err = elabQuery(t, e, `VALUES (1, 'a'), (2)`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)
}

func TestSelect_WholeRowReference(t *testing.T) {
	e := newElaborator(t)
	sig, err := elabQuery(t, e, `SELECT t FROM t`)
	require.NoError(t, err)
	rec := sig.Returns.(*types.Record)
	require.Len(t, rec.Fields, 1)
	assertType(t, record("id", types.Integer, "name", types.MakeNullable(types.Text)), rec.Fields[0].Type)
}

func TestElabQuery_Parameters(t *testing.T) {
	e := newElaborator(t)

	sig, err := elabQuery(t, e, `SELECT * FROM t WHERE id = $1`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 1)
	assertType(t, types.Integer, sig.Inputs[0].Type)
	assert.True(t, sig.MultipleRows)

	sig, err = elabQuery(t, e, `SELECT id FROM t WHERE id = $1 OR id = $1 + 1`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 1)

	_, err = elabQuery(t, e, `SELECT $2::int`)
	assert.ErrorIs(t, err, elab.ErrUndeterminedParameter)

	_, err = elabQuery(t, e, `SELECT $1 IS NULL`)
	assert.ErrorIs(t, err, elab.ErrUndeterminedParameter)

	sig, err = elabQuery(t, e, `SELECT id FROM t WHERE id = ANY($1)`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 1)
	assertType(t, types.NewArray(types.Integer), sig.Inputs[0].Type)
}

func TestElabQuery_PreferredParameterTypes(t *testing.T) {
	e := newElaborator(t)
	tests := []struct {
		name string
		sql  string
	}{
		{"bare sum", `SELECT $1 + $2 AS v`},
		{"compared sum", `SELECT id FROM t WHERE id = $1 + $2`},
		{"product", `SELECT $1 * $2 AS v`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := elabQuery(t, e, tt.sql)
			require.NoError(t, err)
			require.Len(t, sig.Inputs, 2)
			assertType(t, types.Integer, sig.Inputs[0].Type)
			assertType(t, types.Integer, sig.Inputs[1].Type)
		})
	}
}

func TestElabQuery_Annotations(t *testing.T) {
	e := newElaborator(t)

	sig, err := elabQuery(t, e, "-- name: GetT :one\nSELECT id, name FROM t WHERE id = $1")
	require.NoError(t, err)
	assert.Equal(t, "GetT", sig.Name)
	assert.False(t, sig.MultipleRows)

	sig, err = elabQuery(t, e, "-- name: ListT :many\nSELECT id FROM t")
	require.NoError(t, err)
	assert.Equal(t, "ListT", sig.Name)
	assert.True(t, sig.MultipleRows)

	sig, err = elabQuery(t, e, "-- name: Touch :exec\nUPDATE t SET name = 'x' RETURNING id")
	require.NoError(t, err)
	assert.Equal(t, types.Void, sig.Returns)
	assert.False(t, sig.MultipleRows)

	_, err = elabQuery(t, e, "-- name: Bad :one\nDELETE FROM t")
	assert.ErrorIs(t, err, elab.ErrKindMismatch)
}

func TestInsert(t *testing.T) {
	e := newElaborator(t)

	sig, err := elabQuery(t, e, `INSERT INTO t (id, name) VALUES ($1, $2) RETURNING id`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 2)
	assertType(t, types.Integer, sig.Inputs[0].Type)
	assertType(t, types.MakeNullable(types.Text), sig.Inputs[1].Type)
	assertType(t, record("id", types.Integer), sig.Returns)

	sig, err = elabQuery(t, e, `INSERT INTO t VALUES (1, 'a')`)
	require.NoError(t, err)
	assert.Equal(t, types.Void, sig.Returns)
	assert.False(t, sig.MultipleRows)

	sig, err = elabQuery(t, e, `INSERT INTO items (cost, note) VALUES ($1, DEFAULT) RETURNING id, cost`)
	require.NoError(t, err)
	assertType(t, &types.Domain{Name: "price", Base: types.Numeric}, sig.Inputs[0].Type)

	sig, err = elabQuery(t, e, `INSERT INTO t (id, name) SELECT id + 100, name FROM t`)
	require.NoError(t, err)
	assert.Equal(t, types.Void, sig.Returns)

	sig, err = elabQuery(t, e, `
		INSERT INTO t (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name WHERE t.name IS NULL
		RETURNING name`)
	require.NoError(t, err)
	assertType(t, record("name", types.MakeNullable(types.Text)), sig.Returns)

	_, err = elabQuery(t, e, `INSERT INTO t (id) VALUES ('2020-01-01'::date)`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)

	_, err = elabQuery(t, e, `INSERT INTO t (id, nope) VALUES (1, 2)`)
	assert.ErrorIs(t, err, elab.ErrUnknownIdentifier)

	_, err = elabQuery(t, e, `INSERT INTO t (id, name) VALUES (1)`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)

	_, err = elabQuery(t, e, `INSERT INTO t (id, name) SELECT id FROM t`)
	assert.ErrorIs(t, err, elab.ErrTypeMismatch)
}

func TestUpdateAndDelete(t *testing.T) {
	e := newElaborator(t)

	sig, err := elabQuery(t, e, `UPDATE t SET name = $1 WHERE id = $2`)
	require.NoError(t, err)
	require.Len(t, sig.Inputs, 2)
	assertType(t, types.MakeNullable(types.Text), sig.Inputs[0].Type)
	assertType(t, types.Integer, sig.Inputs[1].Type)
	assert.Equal(t, types.Void, sig.Returns)

	sig, err = elabQuery(t, e, `UPDATE t AS x SET name = i.note FROM items i WHERE x.id = i.id RETURNING x.id`)
	require.NoError(t, err)
	assertType(t, record("id", types.Integer), sig.Returns)

	sig, err = elabQuery(t, e, `DELETE FROM t USING items i WHERE t.id = i.id RETURNING t.*`)
	require.NoError(t, err)
	assertType(t, record("id", types.Integer, "name", types.MakeNullable(types.Text)), sig.Returns)

	_, err = elabQuery(t, e, `UPDATE t SET nope = 1`)
	assert.ErrorIs(t, err, elab.ErrUnknownIdentifier)

	_, err = elabQuery(t, e, `DELETE FROM missing`)
	assert.ErrorIs(t, err, elab.ErrUnknownIdentifier)
}

func TestNestingTooDeep(t *testing.T) {
	e := elab.New(elab.Config{MaxDepth: 3})
	_, err := elabQuery(t, e, `SELECT ((((1))))`)
	assert.ErrorIs(t, err, elab.ErrNestingTooDeep)
}

func TestUnsupportedStatement(t *testing.T) {
	e := newElaborator(t)
	_, err := elabQuery(t, e, `CREATE TABLE x (a int)`)
	assert.ErrorIs(t, err, elab.ErrNotImplemented)
}

func TestErrorsCarrySpans(t *testing.T) {
	e := newElaborator(t)
	src := "SELECT id\nFROM t\nWHERE nope = 1"
	_, err := elabQuery(t, e, src)
	require.Error(t, err)

	var eerr *elab.Error
	require.True(t, errors.As(err, &eerr))
	assert.Equal(t, 3, eerr.Span.Start.Line)
	assert.Equal(t, "WHERE nope = 1\n      ^^^^", elab.Excerpt(src, eerr.Span))
}

func TestStatementsAreIsolated(t *testing.T) {
	e := newElaborator(t)
	_, err := elabQuery(t, e, `SELECT id FROM t WHERE id = $1 AND name = $1`)
	require.Error(t, err)

	sig, err := elabQuery(t, e, `SELECT id FROM t WHERE name = $1`)
	require.NoError(t, err)
	assertType(t, types.Text, sig.Inputs[0].Type)
}
