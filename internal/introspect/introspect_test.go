package introspect

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/internal/testutil"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

func expectCatalog(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM pg_catalog.pg_enum").WillReturnRows(
		sqlmock.NewRows([]string{"nspname", "typname", "enumlabel"}).
			AddRow("public", "mood", "sad").
			AddRow("public", "mood", "happy").
			AddRow("audit", "level", "low"))

	mock.ExpectQuery("typtype = 'd'").WillReturnRows(
		sqlmock.NewRows([]string{"nspname", "typname", "format_type"}).
			AddRow("public", "price", "numeric").
			AddRow("public", "sale_price", "price"))

	mock.ExpectQuery("FROM pg_catalog.pg_attribute").WillReturnRows(
		sqlmock.NewRows([]string{"nspname", "relname", "relkind", "attname", "format_type", "attnotnull", "hasdef"}).
			AddRow("public", "items", "r", "id", "integer", true, true).
			AddRow("public", "items", "r", "cost", "price", true, false).
			AddRow("public", "items", "r", "tags", "text[]", false, false).
			AddRow("public", "items", "r", "m", "mood", false, false).
			AddRow("audit", "log", "r", "at", "timestamp with time zone", true, true).
			AddRow("audit", "log", "r", "lvl", "audit.level", true, false).
			AddRow("public", "cheap", "v", "id", "integer", false, false))
}

func TestIntrospector_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	expectCatalog(mock)

	g, err := New(db, testutil.NewTestLogger(t)).Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	mood, ok := g.Enum("mood")
	require.True(t, ok)
	assert.Equal(t, []string{"sad", "happy"}, mood.Labels)
	_, ok = g.Enum("audit.level")
	assert.True(t, ok)

	sale, ok := g.Domain("sale_price")
	require.True(t, ok)
	assert.Equal(t, "numeric", sale.Base.Name)

	items, ok := g.Table("items")
	require.True(t, ok)
	price, _ := g.Domain("price")
	want := types.NewRecord(
		types.Field{Name: "id", Type: types.Integer},
		types.Field{Name: "cost", Type: price},
		types.Field{Name: "tags", Type: types.MakeNullable(types.NewArray(types.Text))},
		types.Field{Name: "m", Type: types.MakeNullable(mood)},
	)
	assert.True(t, types.Equal(want, items.Columns), "got %s", items.Columns)
	assert.Equal(t, []string{"id"}, items.Defaults)

	log, ok := g.Table("audit.log")
	require.True(t, ok)
	require.Len(t, log.Columns.Fields, 2)
	assert.Equal(t, types.TimestampTZ.Name, types.Describe(log.Columns.Fields[0].Type).Name)
	assert.Equal(t, "enum", types.Describe(log.Columns.Fields[1].Type).Kind)

	view, ok := g.View("cheap")
	require.True(t, ok)
	assert.True(t, types.IsNullable(view.Columns.Fields[0].Type))
	_, ok = g.Table("cheap")
	assert.False(t, ok)
}

func TestIntrospector_LoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "enum query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("pg_enum").WillReturnError(errors.New("boom"))
			},
			errMsg: "failed to query enums",
		},
		{
			name: "domain scan fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("pg_enum").WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c"}))
				mock.ExpectQuery("typtype").WillReturnRows(sqlmock.NewRows([]string{"only"}).AddRow("x"))
			},
			errMsg: "failed to scan domain",
		},
		{
			name: "column rows error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("pg_enum").WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c"}))
				mock.ExpectQuery("typtype").WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c"}))
				mock.ExpectQuery("pg_attribute").WillReturnRows(
					sqlmock.NewRows([]string{"a", "b", "c", "d", "e", "f", "g"}).
						AddRow("public", "t", "r", "id", "integer", true, false).
						RowError(0, errors.New("lost connection")))
			},
			errMsg: "error iterating columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			_, err = New(db, nil).Load(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestResolveType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "integer", want: "integer"},
		{in: "character varying", want: "character varying"},
		{in: "integer[]", want: "integer[]"},
		{in: "text[][]", want: "text[][]"},
		{in: `"Weird Type"`, want: "weird type"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveType(schema.Empty(), tt.in).String())
		})
	}
}

func TestOpen_InvalidURL(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid database url")
}
