package elab

import (
	"maps"
	"slices"

	"github.com/leapstack-labs/sqltyper/pkg/token"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// variable is the state of one unification variable. typ is nil while the
// variable is still unknown.
type variable struct {
	typ  types.Type
	from []token.Span
}

// State holds the parameters and unification variables of one statement.
// A State is never modified in place: every update returns a new State,
// so a candidate resolution can be tried and dropped without undo.
type State struct {
	params map[int]int // $n -> variable id
	vars   map[int]variable
	used   map[int]bool // $n referenced in the body
	next   int
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		params: map[int]int{},
		vars:   map[int]variable{},
		used:   map[int]bool{},
	}
}

func (s *State) clone() *State {
	return &State{
		params: maps.Clone(s.params),
		vars:   maps.Clone(s.vars),
		used:   maps.Clone(s.used),
		next:   s.next,
	}
}

// Declare seeds parameter n. A nil typ leaves the parameter to be
// inferred from its uses.
func (s *State) Declare(n int, typ types.Type) *State {
	out := s.clone()
	id := out.next
	out.next++
	out.params[n] = id
	out.vars[id] = variable{typ: typ}
	return out
}

// Param returns the variable of parameter $n, minting an unknown one on
// first reference, and marks $n as used.
func (s *State) Param(n int, span token.Span) (*types.Var, *State) {
	out := s.clone()
	id, ok := out.params[n]
	if !ok {
		id = out.next
		out.next++
		out.params[n] = id
	}
	v := out.vars[id]
	v.from = append(slices.Clip(v.from), span)
	out.vars[id] = v
	out.used[n] = true
	return &types.Var{ID: id}, out
}

// Binding returns the current type of v and whether v is bound.
func (s *State) Binding(v *types.Var) (types.Type, bool) {
	b := s.vars[v.ID]
	return b.typ, b.typ != nil
}

func (s *State) bind(v *types.Var, typ types.Type) *State {
	out := s.clone()
	b := out.vars[v.ID]
	b.typ = typ
	out.vars[v.ID] = b
	return out
}

// Used reports whether $n was referenced.
func (s *State) Used(n int) bool {
	return s.used[n]
}

// Params returns the parameter numbers seen so far, ascending.
func (s *State) Params() []int {
	return slices.Sorted(maps.Keys(s.params))
}

// ParamType returns the resolved type of $n, or nil while unknown.
func (s *State) ParamType(n int) types.Type {
	id, ok := s.params[n]
	if !ok {
		return nil
	}
	return s.vars[id].typ
}

// provenance returns where $n was referenced.
func (s *State) provenance(n int) []token.Span {
	return s.vars[s.params[n]].from
}

// Resolve replaces bound variables inside t by their bindings. Unknown
// variables are kept.
func (s *State) Resolve(t types.Type) types.Type {
	switch x := t.(type) {
	case *types.Var:
		if b, ok := s.Binding(x); ok {
			return s.Resolve(b)
		}
		return x
	case *types.Nullable:
		return types.MakeNullable(s.Resolve(x.Inner))
	case *types.Array:
		return types.NewArray(s.Resolve(x.Elem))
	case *types.Record:
		fields := make([]types.Field, len(x.Fields))
		for i, f := range x.Fields {
			fields[i] = types.Field{Name: f.Name, Type: s.Resolve(f.Type)}
		}
		return &types.Record{Fields: fields}
	}
	return t
}

// paramVar returns the variable of a declared parameter without marking
// it used.
func (s *State) paramVar(n int) *types.Var {
	return &types.Var{ID: s.params[n]}
}
