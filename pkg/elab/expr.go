package elab

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// expr infers the type of x. Parameter bindings discovered on the way are
// returned in the new State.
func (r *run) expr(ctx *Context, st *State, x ast.Expr) (types.Type, *State, error) {
	if err := r.enter(x.GetSpan()); err != nil {
		return nil, st, err
	}
	defer r.leave()

	switch e := x.(type) {
	case *ast.Literal:
		return literalType(e), st, nil
	case *ast.Param:
		v, next := st.Param(e.Index, e.GetSpan())
		return next.Resolve(v), next, nil
	case *ast.ColumnRef:
		return r.columnRef(ctx, st, e)
	case *ast.ParenExpr:
		return r.expr(ctx, st, e.Expr)
	case *ast.BinaryExpr:
		return r.binary(ctx, st, e)
	case *ast.UnaryExpr:
		arg, next, err := r.operand(ctx, st, e.Expr)
		if err != nil {
			return nil, st, err
		}
		return r.applyOperator(next, e.Op, true, []operand{arg}, e.GetSpan())
	case *ast.QuantifiedExpr:
		return r.quantified(ctx, st, e)
	case *ast.FuncCall:
		return r.funcCall(ctx, st, e)
	case *ast.CaseExpr:
		return r.caseExpr(ctx, st, e)
	case *ast.CastExpr:
		return r.cast(ctx, st, e)
	case *ast.InExpr:
		return r.in(ctx, st, e)
	case *ast.BetweenExpr:
		return r.between(ctx, st, e)
	case *ast.IsExpr:
		return r.is(ctx, st, e)
	case *ast.LikeExpr:
		return r.like(ctx, st, e)
	case *ast.RowExpr:
		fields := make([]types.Field, len(e.Exprs))
		for i, item := range e.Exprs {
			t, next, err := r.expr(ctx, st, item)
			if err != nil {
				return nil, st, err
			}
			fields[i], st = types.Field{Type: t}, next
		}
		return &types.Record{Fields: fields}, st, nil
	case *ast.ArrayExpr:
		if len(e.Elems) == 0 {
			return types.NewArray(types.AnyScalar), st, nil
		}
		ops, next, err := r.operands(ctx, st, e.Elems)
		if err != nil {
			return nil, st, err
		}
		elem, next, err := r.commonType(next, ops, "ARRAY elements")
		if err != nil {
			return nil, st, err
		}
		return types.NewArray(elem), next, nil
	case *ast.ArraySubquery:
		col, next, err := r.scalarSubquery(ctx, st, e.Query, e.GetSpan())
		if err != nil {
			return nil, st, err
		}
		return types.NewArray(col), next, nil
	case *ast.SubscriptExpr:
		return r.subscript(ctx, st, e)
	case *ast.FieldSelect:
		t, next, err := r.expr(ctx, st, e.Expr)
		if err != nil {
			return nil, st, err
		}
		core, null := types.Unwrap(next.Resolve(t))
		rec, ok := core.(*types.Record)
		if !ok {
			return nil, st, errorf(KindMismatch, e.GetSpan(), "cannot select field %q from non-row type %s", e.Field, core)
		}
		f, _, ok := rec.Field(e.Field)
		if !ok {
			return nil, st, errorf(UnknownField, e.GetSpan(), "row has no field %q", e.Field)
		}
		return types.NullableIf(f.Type, null), next, nil
	case *ast.SubqueryExpr:
		col, next, err := r.scalarSubquery(ctx, st, e.Query, e.GetSpan())
		if err != nil {
			return nil, st, err
		}
		return types.MakeNullable(col), next, nil
	case *ast.ExistsExpr:
		_, next, err := r.query(ctx, st, e.Query)
		if err != nil {
			return nil, st, err
		}
		return types.Boolean, next, nil
	case *ast.DefaultExpr:
		return nil, st, errorf(KindMismatch, e.GetSpan(), "DEFAULT is only allowed as an INSERT or UPDATE value")
	}
	return nil, st, errorf(NotImplemented, x.GetSpan(), "expression %T is not implemented yet", x)
}

// literalType maps a constant to its type. Integers take the smallest of
// integer, bigint and numeric that holds them.
func literalType(l *ast.Literal) types.Type {
	switch l.Kind {
	case ast.LiteralInteger:
		n, err := strconv.ParseInt(l.Value, 10, 64)
		switch {
		case err != nil:
			return types.Numeric
		case n >= -1<<31 && n < 1<<31:
			return types.Integer
		default:
			return types.BigInt
		}
	case ast.LiteralNumeric:
		return types.Numeric
	case ast.LiteralString:
		return types.Text
	case ast.LiteralBool:
		return types.Boolean
	default:
		return types.MakeNullable(types.AnyScalar)
	}
}

func (r *run) operand(ctx *Context, st *State, x ast.Expr) (operand, *State, error) {
	t, next, err := r.expr(ctx, st, x)
	if err != nil {
		return operand{}, st, err
	}
	return operand{typ: t, lit: ast.IsStringLiteral(x), span: x.GetSpan()}, next, nil
}

func (r *run) operands(ctx *Context, st *State, xs []ast.Expr) ([]operand, *State, error) {
	ops := make([]operand, len(xs))
	for i, x := range xs {
		op, next, err := r.operand(ctx, st, x)
		if err != nil {
			return nil, st, err
		}
		ops[i], st = op, next
	}
	return ops, st, nil
}

func (r *run) columnRef(ctx *Context, st *State, e *ast.ColumnRef) (types.Type, *State, error) {
	span := e.GetSpan()
	if e.Table == "" {
		hit := ctx.column(e.Column)
		switch {
		case len(hit.ambiguous) > 0:
			return nil, st, &Error{
				Kind:       AmbiguousIdentifier,
				Span:       span,
				Message:    "column reference \"" + e.Column + "\" is ambiguous between " + strings.Join(hit.ambiguous, ", "),
				Candidates: hit.ambiguous,
			}
		case hit.param > 0:
			v, next := st.Param(hit.param, span)
			return next.Resolve(v), next, nil
		case hit.found:
			return hit.typ, st, nil
		}
		if rel, ok := ctx.relation(e.Column); ok {
			return rel.columns, st, nil
		}
		return nil, st, errorf(UnknownIdentifier, span, "column %q does not exist", e.Column)
	}

	rel, ok := ctx.relation(e.Table)
	if !ok {
		if n, ok := ctx.param(e.Table, e.Column); ok && e.Schema == "" {
			v, next := st.Param(n, span)
			return next.Resolve(v), next, nil
		}
		return nil, st, errorf(UnknownIdentifier, span, "missing FROM-clause entry for table %q", e.Table)
	}
	f, _, ok := rel.columns.Field(e.Column)
	if !ok {
		return nil, st, errorf(UnknownField, span, "column %q does not exist in %q", e.Column, rel.name)
	}
	return f.Type, st, nil
}

func (r *run) binary(ctx *Context, st *State, e *ast.BinaryExpr) (types.Type, *State, error) {
	if (e.Op == "=" || e.Op == "<>") && (ast.IsNullLiteral(e.Left) || ast.IsNullLiteral(e.Right)) {
		return nil, st, errorf(CompareWithNull, e.GetSpan(), "comparison with NULL using %s is never true; use IS NULL or IS NOT NULL", e.Op)
	}
	left, st, err := r.operand(ctx, st, e.Left)
	if err != nil {
		return nil, st, err
	}
	right, st, err := r.operand(ctx, st, e.Right)
	if err != nil {
		return nil, st, err
	}
	return r.applyOperator(st, e.Op, false, []operand{left, right}, e.GetSpan())
}

// applyOperator resolves an operator against the catalog.
func (r *run) applyOperator(st *State, op string, prefix bool, args []operand, span token.Span) (types.Type, *State, error) {
	sigs := operatorSignatures(r.catalog.Operators(op, prefix))
	m, ok := r.unifier.resolve(st, sigs, args)
	if !ok {
		return nil, st, r.noMatch(st, args, span, func(names []string) string {
			if len(names) == 1 {
				return "Can't apply operator " + op + " to " + names[0]
			}
			return "Can't apply operator " + op + " to " + names[0] + " and " + names[1]
		})
	}
	return m.result(args), m.st, nil
}

// noMatch builds the failure for an operator or function without a
// matching signature. Rows where scalars are expected are a KindMismatch.
func (r *run) noMatch(st *State, args []operand, span token.Span, message func([]string) string) *Error {
	names := make([]string, len(args))
	operands := make([]types.Type, len(args))
	kind := TypeMismatch
	for i, a := range args {
		t := st.Resolve(a.typ)
		operands[i] = t
		names[i] = t.String()
		if core, _ := types.Unwrap(t); core.Kind() == types.KindRecord {
			kind = KindMismatch
		}
	}
	return &Error{Kind: kind, Span: span, Message: message(names), Operands: operands}
}

func (r *run) quantified(ctx *Context, st *State, e *ast.QuantifiedExpr) (types.Type, *State, error) {
	left, st, err := r.operand(ctx, st, e.Left)
	if err != nil {
		return nil, st, err
	}

	var elem types.Type
	nullable := false
	if sub, ok := e.Right.(*ast.SubqueryExpr); ok {
		col, next, err := r.scalarSubquery(ctx, st, sub.Query, sub.GetSpan())
		if err != nil {
			return nil, st, err
		}
		elem, st = col, next
	} else {
		arr, next, err := r.expr(ctx, st, e.Right)
		if err != nil {
			return nil, st, err
		}
		st = next
		core, null := types.Unwrap(st.Resolve(arr))
		nullable = null
		switch a := core.(type) {
		case *types.Array:
			elem = a.Elem
		case *types.Var:
			leftCore, _ := types.Unwrap(st.Resolve(left.typ))
			st = st.bind(a, types.NewArray(leftCore))
			elem = leftCore
		default:
			if core != types.AnyScalar {
				return nil, st, mismatch(e.Right.GetSpan(), core, types.NewArray(types.AnyScalar),
					"op %s (array) requires an array on the right, not %s", e.Quantifier, core)
			}
			elem = types.AnyScalar
		}
	}

	t, st, err := r.applyOperator(st, e.Op, false, []operand{left, {typ: elem, span: e.Right.GetSpan()}}, e.GetSpan())
	if err != nil {
		return nil, st, err
	}
	return types.NullableIf(t, nullable), st, nil
}

func (r *run) funcCall(ctx *Context, st *State, e *ast.FuncCall) (types.Type, *State, error) {
	fns := r.catalog.Functions(e.Name)
	if len(fns) == 0 {
		return nil, st, errorf(UnknownIdentifier, e.GetSpan(), "function %s does not exist", e.Name)
	}

	var args []operand
	if !e.Star {
		var err error
		args, st, err = r.operands(ctx, st, e.Args)
		if err != nil {
			return nil, st, err
		}
	}
	if e.Filter != nil {
		t, next, err := r.expr(ctx, st, e.Filter)
		if err != nil {
			return nil, st, err
		}
		if st, err = r.expectBool(next, t, e.Filter.GetSpan(), "FILTER condition"); err != nil {
			return nil, st, err
		}
	}
	var err error
	if st, err = r.orderBy(ctx, st, e.OrderBy); err != nil {
		return nil, st, err
	}
	if e.Over != nil {
		for _, p := range e.Over.PartitionBy {
			if _, st, err = r.expr(ctx, st, p); err != nil {
				return nil, st, err
			}
		}
		if st, err = r.orderBy(ctx, st, e.Over.OrderBy); err != nil {
			return nil, st, err
		}
	}

	m, ok := r.unifier.resolve(st, functionSignatures(fns, len(args)), args)
	if !ok {
		return nil, st, r.noMatch(st, args, e.GetSpan(), func(names []string) string {
			return "No function " + e.Name + " matches argument types (" + strings.Join(names, ", ") + ")"
		})
	}
	result := m.result(args)
	if m.sig.fn != nil && m.sig.fn.DomainAware && len(args) == 1 {
		result = keepDomain(result, m.st.Resolve(args[0].typ))
	}
	return result, m.st, nil
}

// keepDomain returns arg's domain in place of result when result is the
// domain's base type.
func keepDomain(result, arg types.Type) types.Type {
	argCore, _ := types.Unwrap(arg)
	d, ok := argCore.(*types.Domain)
	if !ok {
		return result
	}
	core, null := types.Unwrap(result)
	if types.Equal(core, d.Base) || types.Equal(core, d) {
		return types.NullableIf(d, null)
	}
	return result
}

func (r *run) orderBy(ctx *Context, st *State, items []ast.OrderByItem) (*State, error) {
	for _, item := range items {
		_, next, err := r.expr(ctx, st, item.Expr)
		if err != nil {
			return st, err
		}
		st = next
	}
	return st, nil
}

func (r *run) caseExpr(ctx *Context, st *State, e *ast.CaseExpr) (types.Type, *State, error) {
	var subject operand
	if e.Operand != nil {
		op, next, err := r.operand(ctx, st, e.Operand)
		if err != nil {
			return nil, st, err
		}
		subject, st = op, next
	}

	var results []operand
	for _, w := range e.Whens {
		cond, next, err := r.operand(ctx, st, w.Condition)
		if err != nil {
			return nil, st, err
		}
		st = next
		if e.Operand != nil {
			if _, st, err = r.applyOperator(st, "=", false, []operand{subject, cond}, w.Condition.GetSpan()); err != nil {
				return nil, st, err
			}
		} else if st, err = r.expectBool(st, cond.typ, w.Condition.GetSpan(), "CASE WHEN condition"); err != nil {
			return nil, st, err
		}

		res, next, err := r.operand(ctx, st, w.Result)
		if err != nil {
			return nil, st, err
		}
		results, st = append(results, res), next
	}
	if e.Else != nil {
		res, next, err := r.operand(ctx, st, e.Else)
		if err != nil {
			return nil, st, err
		}
		results, st = append(results, res), next
	}

	t, st, err := r.commonType(st, results, "CASE branches")
	if err != nil {
		return nil, st, err
	}
	return types.NullableIf(t, e.Else == nil), st, nil
}

// commonType folds operand types through the unifier left to right. Untyped
// string literals take the type of the other operands, or text when all
// operands are literals.
func (r *run) commonType(st *State, ops []operand, what string) (types.Type, *State, error) {
	var acc types.Type
	var span token.Span
	literal := false
	for _, op := range ops {
		if op.lit {
			literal = true
			continue
		}
		if acc == nil {
			acc, span = op.typ, op.span
			continue
		}
		t, next, ok := r.unifier.unify(st, acc, op.typ, Implicit)
		if !ok {
			a, b := st.Resolve(acc), st.Resolve(op.typ)
			return nil, st, mismatch(token.Cover(span, op.span), a, b, "%s have incompatible types %s and %s", what, a, b)
		}
		acc, st = t, next
	}
	if acc == nil {
		return types.Text, st, nil
	}
	if core, _ := types.Unwrap(st.Resolve(acc)); literal && (core == types.AnyScalar || core.Kind() == types.KindVar) {
		return r.unify(st, acc, types.Text, Implicit, span)
	}
	return acc, st, nil
}

func (r *run) cast(ctx *Context, st *State, e *ast.CastExpr) (types.Type, *State, error) {
	target, err := r.global.ResolveType(e.Type)
	if err != nil {
		return nil, st, fromSchemaError(err)
	}
	if ast.IsStringLiteral(e.Expr) {
		return target, st, nil
	}
	t, next, err := r.expr(ctx, st, e.Expr)
	if err != nil {
		return nil, st, err
	}
	if _, next, ok := r.unifier.unify(next, t, target, Explicit); ok {
		return types.NullableIf(target, types.IsNullable(next.Resolve(t))), next, nil
	}
	t = next.Resolve(t)
	return nil, st, mismatch(e.GetSpan(), t, target, "Couldn't find matching cast from %s to %s", t, target)
}

func (r *run) in(ctx *Context, st *State, e *ast.InExpr) (types.Type, *State, error) {
	left, st, err := r.operand(ctx, st, e.Expr)
	if err != nil {
		return nil, st, err
	}
	nullable := false
	if e.Query != nil {
		col, next, err := r.scalarSubquery(ctx, st, e.Query, e.GetSpan())
		if err != nil {
			return nil, st, err
		}
		t, next, err := r.applyOperator(next, "=", false, []operand{left, {typ: col, span: e.GetSpan()}}, e.GetSpan())
		if err != nil {
			return nil, st, err
		}
		return t, next, nil
	}
	for _, v := range e.Values {
		right, next, err := r.operand(ctx, st, v)
		if err != nil {
			return nil, st, err
		}
		t, next, err := r.applyOperator(next, "=", false, []operand{left, right}, v.GetSpan())
		if err != nil {
			return nil, st, err
		}
		st, nullable = next, nullable || types.IsNullable(t)
	}
	return types.NullableIf(types.Boolean, nullable), st, nil
}

func (r *run) between(ctx *Context, st *State, e *ast.BetweenExpr) (types.Type, *State, error) {
	ops, st, err := r.operands(ctx, st, []ast.Expr{e.Expr, e.Low, e.High})
	if err != nil {
		return nil, st, err
	}
	low, st, err := r.applyOperator(st, ">=", false, []operand{ops[0], ops[1]}, e.GetSpan())
	if err != nil {
		return nil, st, err
	}
	high, st, err := r.applyOperator(st, "<=", false, []operand{ops[0], ops[2]}, e.GetSpan())
	if err != nil {
		return nil, st, err
	}
	return types.NullableIf(types.Boolean, types.IsNullable(low) || types.IsNullable(high)), st, nil
}

func (r *run) is(ctx *Context, st *State, e *ast.IsExpr) (types.Type, *State, error) {
	subject, st, err := r.operand(ctx, st, e.Expr)
	if err != nil {
		return nil, st, err
	}
	switch e.Test {
	case "TRUE", "FALSE", "UNKNOWN":
		if st, err = r.expectBool(st, subject.typ, e.Expr.GetSpan(), "IS "+e.Test+" operand"); err != nil {
			return nil, st, err
		}
	case "DISTINCT":
		other, next, err := r.operand(ctx, st, e.Other)
		if err != nil {
			return nil, st, err
		}
		if !ast.IsNullLiteral(e.Other) && !ast.IsNullLiteral(e.Expr) {
			if _, next, err = r.applyOperator(next, "=", false, []operand{subject, other}, e.GetSpan()); err != nil {
				return nil, st, err
			}
		}
		st = next
	}
	return types.Boolean, st, nil
}

func (r *run) like(ctx *Context, st *State, e *ast.LikeExpr) (types.Type, *State, error) {
	nullable := false
	for _, x := range []ast.Expr{e.Expr, e.Pattern} {
		t, next, err := r.expr(ctx, st, x)
		if err != nil {
			return nil, st, err
		}
		if ast.IsStringLiteral(x) {
			st = next
			continue
		}
		if _, next, err = r.unify(next, t, types.Text, Implicit, x.GetSpan()); err != nil {
			return nil, st, err
		}
		st, nullable = next, nullable || types.IsNullable(next.Resolve(t))
	}
	return types.NullableIf(types.Boolean, nullable), st, nil
}

func (r *run) subscript(ctx *Context, st *State, e *ast.SubscriptExpr) (types.Type, *State, error) {
	base, st, err := r.expr(ctx, st, e.Expr)
	if err != nil {
		return nil, st, err
	}
	core, null := types.Unwrap(st.Resolve(base))

	var result types.Type
	index := types.Type(types.Integer)
	switch c := core.(type) {
	case *types.Array:
		result = c.Elem
		if e.Slice {
			result = c
		}
	default:
		if !types.Equal(core, types.JSONB) && core != types.AnyScalar {
			return nil, st, errorf(KindMismatch, e.GetSpan(), "cannot subscript type %s because it is not an array", core)
		}
		result, index = core, nil
	}

	for _, x := range []ast.Expr{e.Index, e.Upper} {
		if x == nil {
			continue
		}
		t, next, err := r.expr(ctx, st, x)
		if err != nil {
			return nil, st, err
		}
		st = next
		if index != nil && !ast.IsStringLiteral(x) {
			if _, st, err = r.unify(st, t, index, Implicit, x.GetSpan()); err != nil {
				return nil, st, err
			}
		}
	}
	if e.Slice {
		return types.NullableIf(result, null), st, nil
	}
	return types.MakeNullable(result), st, nil
}

// scalarSubquery elaborates a subquery that must produce one column.
func (r *run) scalarSubquery(ctx *Context, st *State, q *ast.SelectStmt, span token.Span) (types.Type, *State, error) {
	rec, next, err := r.query(ctx, st, q)
	if err != nil {
		return nil, st, err
	}
	if len(rec.Fields) != 1 {
		return nil, st, errorf(KindMismatch, span, "subquery must return only one column, not %d", len(rec.Fields))
	}
	return rec.Fields[0].Type, next, nil
}

// columnName is the output name PostgreSQL gives an unaliased expression,
// or "" when there is none.
func columnName(x ast.Expr) string {
	switch e := x.(type) {
	case *ast.ColumnRef:
		return e.Column
	case *ast.FuncCall:
		return e.Name
	case *ast.CastExpr:
		return columnName(e.Expr)
	case *ast.ParenExpr:
		return columnName(e.Expr)
	case *ast.FieldSelect:
		return e.Field
	case *ast.SubscriptExpr:
		return columnName(e.Expr)
	}
	return ""
}
