package elab

import (
	"github.com/leapstack-labs/sqltyper/pkg/catalog"
	"github.com/leapstack-labs/sqltyper/pkg/token"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// operand is an elaborated argument of an operator or function call.
type operand struct {
	typ  types.Type
	lit  bool // untyped string literal; adapts to the parameter type
	span token.Span
}

// signature is the common shape of operator and function candidates.
type signature struct {
	params []types.Type
	result types.Type
	null   catalog.NullPolicy
	fn     *catalog.Function
}

func operatorSignatures(ops []*catalog.Operator) []signature {
	out := make([]signature, 0, len(ops))
	for _, op := range ops {
		params := []types.Type{op.Right}
		if op.Left != nil {
			params = []types.Type{op.Left, op.Right}
		}
		out = append(out, signature{params: params, result: op.Result, null: op.Null})
	}
	return out
}

// functionSignatures expands variadic functions to arity n and drops
// candidates of another arity.
func functionSignatures(fns []*catalog.Function, n int) []signature {
	var out []signature
	for _, fn := range fns {
		params := fn.Args
		switch {
		case fn.Variadic && n >= len(params)-1:
			expanded := make([]types.Type, n)
			for i := range expanded {
				expanded[i] = params[min(i, len(params)-1)]
			}
			params = expanded
		case len(params) != n:
			continue
		}
		out = append(out, signature{params: params, result: fn.Result, null: fn.Null, fn: fn})
	}
	return out
}

// match is a candidate that accepts the arguments.
type match struct {
	sig  signature
	st   *State
	cost int
	poly bool
	elem types.Type // binding of the polymorphic element type
}

// preferredTypes breaks ties between candidates that fit equally well,
// which happens when the arguments are still unbound parameters.
var preferredTypes = []types.Type{types.Integer, types.BigInt, types.Numeric, types.Double, types.Text}

// preference ranks a signature by its least preferred parameter type.
func preference(sig signature) int {
	rank := 0
	for _, p := range sig.params {
		r := len(preferredTypes)
		for i, t := range preferredTypes {
			if types.Equal(p, t) {
				r = i
				break
			}
		}
		rank = max(rank, r)
	}
	return rank
}

// better reports whether m beats the current best: lower cost first, then
// a preferred parameter type, then catalog order.
func better(m, best match) bool {
	if m.cost != best.cost {
		return m.cost < best.cost
	}
	return preference(m.sig) < preference(best.sig)
}

// resolve picks the signature for args: the best exact match, else the
// first polymorphic match, else the cheapest match through implicit casts.
func (u *Unifier) resolve(st *State, sigs []signature, args []operand) (match, bool) {
	var matches []match
	for _, sig := range sigs {
		if m, ok := u.match(st, sig, args); ok {
			matches = append(matches, m)
		}
	}
	exact := -1
	for i, m := range matches {
		if !m.poly && m.cost == 0 && (exact < 0 || better(m, matches[exact])) {
			exact = i
		}
	}
	if exact >= 0 {
		return matches[exact], true
	}
	for _, m := range matches {
		if m.poly {
			return m, true
		}
	}
	best := -1
	for i, m := range matches {
		if best < 0 || better(m, matches[best]) {
			best = i
		}
	}
	if best < 0 {
		return match{}, false
	}
	return matches[best], true
}

func (u *Unifier) match(st *State, sig signature, args []operand) (match, bool) {
	m := match{sig: sig, st: st}
	var elems []operand
	var arrayVars []*types.Var
	for i, p := range sig.params {
		a := args[i]
		core, _ := types.Unwrap(m.st.Resolve(a.typ))
		v, unknown := core.(*types.Var)

		switch p {
		case catalog.AnyValue:
			m.poly = true
			continue
		case catalog.AnyRecord:
			m.poly = true
			if _, ok := core.(*types.Record); !ok && !unknown && core != types.AnyScalar {
				return m, false
			}
			continue
		case catalog.AnyElement:
			m.poly = true
			elems = append(elems, operand{typ: core, lit: a.lit, span: a.span})
			continue
		case catalog.AnyArray:
			m.poly = true
			switch x := core.(type) {
			case *types.Array:
				elems = append(elems, operand{typ: x.Elem, span: a.span})
			case *types.Var:
				arrayVars = append(arrayVars, x)
			default:
				if core != types.AnyScalar {
					return m, false
				}
			}
			continue
		}

		switch {
		case unknown:
			m.st = m.st.bind(v, p)
		case a.lit && types.IsScalarLike(p):
		default:
			c := u.castCost(m.st, core, p)
			if c < 0 {
				return m, false
			}
			m.cost += c
		}
	}

	var elem types.Type
	literal := false
	for _, e := range elems {
		if e.lit {
			literal = true
			continue
		}
		if elem == nil {
			elem = e.typ
			continue
		}
		t, next, ok := u.unify(m.st, elem, e.typ, Implicit)
		if !ok {
			return m, false
		}
		elem, m.st = t, next
	}
	if literal {
		if _, isVar := m.st.Resolve(elem).(*types.Var); elem == nil || isVar {
			t, next, ok := u.unify(m.st, orText(elem), types.Text, Implicit)
			if !ok {
				return m, false
			}
			elem, m.st = t, next
		}
	}
	if elem != nil {
		elem = m.st.Resolve(elem)
		if _, isVar := elem.(*types.Var); !isVar {
			for _, v := range arrayVars {
				m.st = m.st.bind(v, types.NewArray(elem))
			}
		}
	}
	m.elem = elem
	return m, true
}

func orText(t types.Type) types.Type {
	if t == nil {
		return types.Text
	}
	return t
}

// result instantiates the matched signature's result type and applies its
// null policy to the argument types.
func (m match) result(args []operand) types.Type {
	elem := m.elem
	if elem == nil {
		elem = types.AnyScalar
	}
	core, _ := types.Unwrap(elem)

	var out types.Type
	switch m.sig.result {
	case catalog.AnyElement:
		out = core
	case catalog.AnyArray:
		out = types.NewArray(elem)
	default:
		out = m.sig.result
	}

	someNull, allNull := false, len(args) > 0
	for _, a := range args {
		if types.IsNullable(m.st.Resolve(a.typ)) {
			someNull = true
		} else {
			allNull = false
		}
	}
	switch m.sig.null {
	case catalog.NullAlways:
		return types.MakeNullable(out)
	case catalog.NullNever:
		return out
	case catalog.NullIfAll:
		return types.NullableIf(out, allNull)
	default:
		return types.NullableIf(out, someNull)
	}
}
