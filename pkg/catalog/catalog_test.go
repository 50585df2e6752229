package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/pkg/types"
)

func TestCastContextAllows(t *testing.T) {
	tests := []struct {
		name string
		have CastContext
		use  CastContext
		want bool
	}{
		{"implicit in implicit", CastImplicit, CastImplicit, true},
		{"implicit in explicit", CastImplicit, CastExplicit, true},
		{"assignment in implicit", CastAssignment, CastImplicit, false},
		{"assignment in assignment", CastAssignment, CastAssignment, true},
		{"explicit in assignment", CastExplicit, CastAssignment, false},
		{"none", 0, CastExplicit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.have.Allows(tt.use))
		})
	}
}

func TestPostgresCasts(t *testing.T) {
	c := Default()
	require.NotNil(t, c)

	tests := []struct {
		src, dst string
		want     CastContext
		ok       bool
	}{
		{"integer", "integer", CastImplicit, true},
		{"int4", "int8", CastImplicit, true},
		{"integer", "numeric", CastImplicit, true},
		{"bigint", "integer", CastAssignment, true},
		{"double precision", "integer", CastAssignment, true},
		{"numeric", "double precision", CastImplicit, true},
		{"varchar", "text", CastImplicit, true},
		{"date", "timestamptz", CastImplicit, true},
		{"timestamptz", "date", CastAssignment, true},
		{"integer", "text", CastAssignment, true},
		{"text", "integer", CastExplicit, true},
		{"text", "uuid", CastExplicit, true},
		{"boolean", "integer", CastExplicit, true},
		{"uuid", "integer", 0, false},
		{"integer", "my_type", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.src+"->"+tt.dst, func(t *testing.T) {
			got, ok := c.Cast(tt.src, tt.dst)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanCast(t *testing.T) {
	c := Default()

	assert.True(t, c.CanCast("integer", "bigint", CastImplicit))
	assert.False(t, c.CanCast("bigint", "integer", CastImplicit))
	assert.True(t, c.CanCast("bigint", "integer", CastAssignment))
	assert.False(t, c.CanCast("text", "integer", CastAssignment))
	assert.True(t, c.CanCast("text", "integer", CastExplicit))
}

func TestOperators(t *testing.T) {
	c := Default()

	plus := c.Operators("+", false)
	require.NotEmpty(t, plus)
	assert.Equal(t, types.SmallInt, plus[0].Left, "registration order is kept")

	neg := c.Operators("-", true)
	require.NotEmpty(t, neg)
	for _, op := range neg {
		assert.Nil(t, op.Left)
	}

	and := c.Operators("and", false)
	require.Len(t, and, 1)
	assert.Equal(t, types.Boolean, and[0].Result)

	assert.Empty(t, c.Operators("=~=", false))
}

func TestFunctions(t *testing.T) {
	c := Default()

	count := c.Functions("COUNT")
	require.Len(t, count, 2)
	assert.Equal(t, NullNever, count[0].Null)
	assert.Equal(t, FuncAggregate, count[0].Kind)

	assert.True(t, c.IsAggregate("sum"))
	assert.True(t, c.IsAggregate("array_agg"))
	assert.False(t, c.IsAggregate("lower"))
	assert.False(t, c.IsAggregate("row_number"))

	rn := c.Functions("row_number")
	require.Len(t, rn, 1)
	assert.Equal(t, FuncWindow, rn[0].Kind)
	assert.Equal(t, types.BigInt, rn[0].Result)

	coalesce := c.Functions("coalesce")
	require.Len(t, coalesce, 1)
	assert.True(t, coalesce[0].Variadic)
	assert.Equal(t, NullIfAll, coalesce[0].Null)
	assert.True(t, IsPseudo(coalesce[0].Result))
}

func TestNames(t *testing.T) {
	c := Default()

	fns := c.FunctionNames()
	assert.Contains(t, fns, "count")
	assert.Contains(t, fns, "coalesce")
	assert.IsNonDecreasing(t, fns)

	ops := c.OperatorNames()
	assert.Contains(t, ops, "||")
	assert.Contains(t, ops, "AND")
	assert.IsNonDecreasing(t, ops)
}

func TestHasScalar(t *testing.T) {
	c := Default()

	assert.True(t, c.HasScalar("int4"))
	assert.True(t, c.HasScalar("pg_catalog.text"))
	assert.True(t, c.HasScalar("timestamptz"))
	assert.False(t, c.HasScalar("mood"))
	assert.Contains(t, c.Scalars(), "uuid")
}

func TestRegistry(t *testing.T) {
	Register(NewBuilder("Test_Registry").Scalars("integer").Build())

	c, ok := Get("test_registry")
	require.True(t, ok)
	assert.Equal(t, "Test_Registry", c.Name)

	_, err := Lookup("nope")
	require.ErrorIs(t, err, ErrUnknownCatalog)

	assert.Contains(t, List(), PostgresName)
	assert.Contains(t, List(), "test_registry")
}
