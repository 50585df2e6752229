package elab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/pkg/token"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

func TestState_Immutable(t *testing.T) {
	st := NewState()
	v, next := st.Param(1, token.Span{})
	assert.False(t, st.Used(1))
	assert.True(t, next.Used(1))
	assert.Empty(t, st.Params())

	bound := next.bind(v, types.Integer)
	_, ok := next.Binding(v)
	assert.False(t, ok)
	got, ok := bound.Binding(v)
	require.True(t, ok)
	assert.Equal(t, types.Integer, got)
}

func TestState_DeclareDoesNotMarkUsed(t *testing.T) {
	st := NewState().Declare(1, types.Text).Declare(2, nil)
	assert.False(t, st.Used(1))
	assert.Equal(t, []int{1, 2}, st.Params())
	assert.Equal(t, types.Text, st.ParamType(1))
	assert.Nil(t, st.ParamType(2))

	v, st := st.Param(2, token.Span{Start: token.Position{Line: 1, Column: 5}})
	assert.True(t, st.Used(2))
	assert.Len(t, st.provenance(2), 1)
	assert.Equal(t, v.ID, st.paramVar(2).ID)
}

func TestState_Resolve(t *testing.T) {
	v, st := NewState().Param(1, token.Span{})
	st = st.bind(v, types.MakeNullable(types.Integer))

	rec := types.NewRecord(
		types.Field{Name: "a", Type: types.MakeNullable(v)},
		types.Field{Name: "b", Type: types.NewArray(v)},
	)
	want := types.NewRecord(
		types.Field{Name: "a", Type: types.MakeNullable(types.Integer)},
		types.Field{Name: "b", Type: types.NewArray(types.MakeNullable(types.Integer))},
	)
	assert.True(t, types.Equal(want, st.Resolve(rec)), "got %s", st.Resolve(rec))
}

func TestContext_Lookup(t *testing.T) {
	users := relation{name: "u", columns: types.NewRecord(
		types.Field{Name: "id", Type: types.Integer},
		types.Field{Name: "name", Type: types.Text},
	)}
	orders := relation{name: "o", columns: types.NewRecord(
		types.Field{Name: "id", Type: types.Integer},
		types.Field{Name: "total", Type: types.Numeric},
	)}
	root := NewContext("public.f", map[string]int{"limit_to": 1})
	ctx := root.child().withRelations(users, orders)

	hit := ctx.column("total")
	assert.True(t, hit.found)
	assert.Equal(t, types.Numeric, hit.typ)

	hit = ctx.column("id")
	assert.Equal(t, []string{"u", "o"}, hit.ambiguous)

	hit = ctx.column("limit_to")
	assert.Equal(t, 1, hit.param)

	n, ok := ctx.param("f", "limit_to")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	inner := ctx.child().withRelations(relation{name: "x", columns: types.NewRecord(types.Field{Name: "id", Type: types.Text})})
	hit = inner.column("id")
	assert.True(t, hit.found)
	assert.Equal(t, types.Text, hit.typ)

	merged := ctx.withMerged(mergedColumn{Field: types.Field{Name: "id", Type: types.Integer}, covers: []string{"u", "o"}})
	hit = merged.column("id")
	assert.True(t, hit.found)
	assert.Len(t, merged.visible(), 3)

	partial := ctx.withMerged(mergedColumn{Field: types.Field{Name: "id", Type: types.Integer}, covers: []string{"u"}})
	hit = partial.column("id")
	assert.False(t, hit.found)
	assert.Equal(t, []string{"u", "o"}, hit.ambiguous)
	assert.Len(t, partial.visible(), 4)
}
