package elab

import (
	"github.com/leapstack-labs/sqltyper/pkg/catalog"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// Cast classes used as unification modes.
const (
	Implicit   = catalog.CastImplicit
	Assignment = catalog.CastAssignment
	Explicit   = catalog.CastExplicit
)

// Unifier resolves pairs of types against a catalog's cast table.
type Unifier struct {
	cat *catalog.Catalog
}

// NewUnifier returns a Unifier over cat.
func NewUnifier(cat *catalog.Catalog) *Unifier {
	return &Unifier{cat: cat}
}

// Unify resolves a and b to a common type under mode. In Implicit mode the
// cast table is tried in both directions; Assignment and Explicit casts
// convert a into b. A failure is a TypeMismatch carrying both types.
func (u *Unifier) Unify(st *State, a, b types.Type, mode catalog.CastContext) (types.Type, *State, error) {
	t, next, ok := u.unify(st, a, b, mode)
	if !ok {
		a, b = st.Resolve(a), st.Resolve(b)
		return nil, st, &Error{
			Kind:     TypeMismatch,
			Message:  "Couldn't unify " + a.String() + " with " + b.String(),
			Operands: []types.Type{a, b},
		}
	}
	return t, next, nil
}

func (u *Unifier) unify(st *State, a, b types.Type, mode catalog.CastContext) (types.Type, *State, bool) {
	if v, ok := a.(*types.Var); ok {
		return u.unifyVar(st, v, b, mode, false)
	}
	if v, ok := b.(*types.Var); ok {
		return u.unifyVar(st, v, a, mode, true)
	}

	coreA, nullA := types.Unwrap(a)
	coreB, nullB := types.Unwrap(b)
	if nullA || nullB {
		t, next, ok := u.unify(st, coreA, coreB, mode)
		if !ok {
			return nil, st, false
		}
		return types.MakeNullable(t), next, true
	}

	// AnyScalar also takes array and record shapes so NULL fits any slot.
	if a == types.AnyScalar && b != types.Void {
		return b, st, true
	}
	if b == types.AnyScalar && a != types.Void {
		return a, st, true
	}

	switch x := a.(type) {
	case *types.Array:
		y, ok := b.(*types.Array)
		if !ok {
			return nil, st, false
		}
		elem, next, ok := u.unify(st, x.Elem, y.Elem, mode)
		if !ok {
			return nil, st, false
		}
		return types.NewArray(elem), next, true
	case *types.Record:
		y, ok := b.(*types.Record)
		if !ok || len(x.Fields) != len(y.Fields) {
			return nil, st, false
		}
		fields := make([]types.Field, len(x.Fields))
		for i := range x.Fields {
			t, next, ok := u.unify(st, x.Fields[i].Type, y.Fields[i].Type, mode)
			if !ok {
				return nil, st, false
			}
			name := x.Fields[i].Name
			if name == "" {
				name = y.Fields[i].Name
			}
			fields[i], st = types.Field{Name: name, Type: t}, next
		}
		return &types.Record{Fields: fields}, st, true
	}
	switch b.(type) {
	case *types.Array, *types.Record:
		return nil, st, false
	}

	if types.Equal(a, b) {
		return a, st, true
	}
	if u.castable(a, b, mode) {
		return b, st, true
	}
	if mode == Implicit && u.castable(b, a, mode) {
		return a, st, true
	}
	return nil, st, false
}

// unifyVar unifies variable v with other. flipped records that v was the
// right-hand operand, which matters for directed modes.
func (u *Unifier) unifyVar(st *State, v *types.Var, other types.Type, mode catalog.CastContext, flipped bool) (types.Type, *State, bool) {
	if bound, ok := st.Binding(v); ok {
		core, _ := types.Unwrap(bound)
		if core == types.AnyScalar {
			if oc, _ := types.Unwrap(st.Resolve(other)); types.IsScalarLike(oc) && oc != types.AnyScalar {
				st = st.bind(v, types.NullableIf(oc, types.IsNullable(bound)))
				bound = st.Resolve(v)
			}
		}
		if flipped {
			return u.unify(st, other, bound, mode)
		}
		return u.unify(st, bound, other, mode)
	}

	if ov, ok := other.(*types.Var); ok {
		if ov.ID == v.ID {
			return v, st, true
		}
		if bound, ok := st.Binding(ov); ok {
			return u.unifyVar(st, v, bound, mode, flipped)
		}
		// Two unknowns: nothing is learned.
		return v, st, true
	}

	target := st.Resolve(other)
	if mode == Implicit {
		target, _ = types.Unwrap(target)
	}
	if target == types.Void {
		return nil, st, false
	}
	return other, st.bind(v, target), true
}

// castable reports whether a bare src converts to a bare dst within mode.
// A domain converts to its base implicitly and a base converts to a domain
// by assignment. Distinct domains and enums convert only explicitly.
func (u *Unifier) castable(src, dst types.Type, mode catalog.CastContext) bool {
	switch s := src.(type) {
	case *types.Domain:
		if d, ok := dst.(*types.Domain); ok {
			return mode == Explicit && u.castable(s.Base, d.Base, mode)
		}
		if types.Equal(s.Base, dst) {
			return true
		}
		return u.castable(s.Base, dst, mode)
	case *types.Enum:
		return mode == Explicit && isStringType(dst)
	case *types.Scalar:
		switch d := dst.(type) {
		case *types.Scalar:
			return u.cat.CanCast(s.Name, d.Name, mode)
		case *types.Domain:
			return mode >= Assignment && (types.Equal(s, d.Base) || u.castable(s, d.Base, mode))
		case *types.Enum:
			return mode == Explicit && isStringType(s)
		}
	}
	return false
}

// castCost is the number of implicit conversion steps from src to dst, or
// -1 when src does not convert implicitly. Unknown variables and AnyScalar
// match anything at no cost.
func (u *Unifier) castCost(st *State, src, dst types.Type) int {
	src, _ = types.Unwrap(st.Resolve(src))
	dst, _ = types.Unwrap(dst)
	if _, ok := src.(*types.Var); ok || src == types.AnyScalar {
		return 0
	}
	if types.Equal(src, dst) {
		return 0
	}
	switch s := src.(type) {
	case *types.Array:
		d, ok := dst.(*types.Array)
		if !ok {
			return -1
		}
		return u.castCost(st, s.Elem, d.Elem)
	case *types.Domain:
		if _, ok := dst.(*types.Domain); ok {
			return -1
		}
		if types.Equal(s.Base, dst) {
			return 1
		}
		if c := u.castCost(st, s.Base, dst); c >= 0 {
			return c + 1
		}
		return -1
	}
	if u.castable(src, dst, Implicit) {
		return 1
	}
	return -1
}

func isStringType(t types.Type) bool {
	s, ok := t.(*types.Scalar)
	if !ok {
		return false
	}
	switch s.Name {
	case "text", "character varying", "character", "name":
		return true
	}
	return false
}
