package elab

import (
	"fmt"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/token"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// statement elaborates a query or data-modifying statement. The result is
// the statement's row shape, or Void when it returns no rows.
func (r *run) statement(ctx *Context, st *State, stmt ast.Stmt) (types.Type, *State, error) {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		rec, next, err := r.query(ctx, st, s)
		if err != nil {
			return nil, st, err
		}
		return rec, next, nil
	case *ast.InsertStmt:
		return r.insert(ctx, st, s)
	case *ast.UpdateStmt:
		return r.update(ctx, st, s)
	case *ast.DeleteStmt:
		return r.delete(ctx, st, s)
	}
	return nil, st, errorf(NotImplemented, stmt.GetSpan(), "statement %s is not implemented yet", statementKind(stmt))
}

func statementKind(stmt ast.Stmt) string {
	switch s := stmt.(type) {
	case *ast.Unsupported:
		return s.Keyword
	case *ast.CreateTable:
		return "CREATE TABLE"
	case *ast.CreateFunction:
		return "CREATE FUNCTION"
	case *ast.CreateView:
		return "CREATE VIEW"
	case *ast.CreateDomain:
		return "CREATE DOMAIN"
	case *ast.CreateEnum:
		return "CREATE TYPE"
	case *ast.AlterTable:
		return "ALTER TABLE"
	}
	return fmt.Sprintf("%T", stmt)
}

// query elaborates a SELECT in a new scope below ctx.
func (r *run) query(ctx *Context, st *State, q *ast.SelectStmt) (*types.Record, *State, error) {
	if err := r.enter(q.GetSpan()); err != nil {
		return nil, st, err
	}
	defer r.leave()

	scope, st, err := r.with(ctx, st, q.With)
	if err != nil {
		return nil, st, err
	}
	return r.selectBody(scope, st, q.Body)
}

// with elaborates common table expressions in order; each sees the ones
// before it. A recursive CTE is first typed from its non-recursive branch.
func (r *run) with(ctx *Context, st *State, w *ast.WithClause) (*Context, *State, error) {
	if w == nil {
		return ctx, st, nil
	}
	scope := ctx.child()
	for _, cte := range w.CTEs {
		rec, next, err := r.cte(scope, st, cte, w.Recursive)
		if err != nil {
			return nil, st, err
		}
		scope, st = scope.withCTE(relation{name: cte.Name, columns: rec}), next
	}
	return scope, st, nil
}

func (r *run) cte(scope *Context, st *State, cte *ast.CTE, recursive bool) (*types.Record, *State, error) {
	if q, ok := cte.Query.(*ast.SelectStmt); ok && recursive && q.Body.Op != ast.SetOpNone {
		seed, _, next, err := r.selectCore(scope, st, q.Body.Left)
		if err != nil {
			return nil, st, err
		}
		seed, err = renameColumns(seed, cte)
		if err != nil {
			return nil, st, err
		}
		scope, st = scope.withCTE(relation{name: cte.Name, columns: seed}), next
	}

	t, next, err := r.statement(scope, st, cte.Query)
	if err != nil {
		return nil, st, err
	}
	rec, ok := t.(*types.Record)
	if !ok {
		return nil, st, errorf(KindMismatch, cte.GetSpan(), "WITH query %q does not have a RETURNING clause", cte.Name)
	}
	rec, err = renameColumns(rec, cte)
	if err != nil {
		return nil, st, err
	}
	return rec, next, nil
}

func renameColumns(rec *types.Record, cte *ast.CTE) (*types.Record, error) {
	if len(cte.Columns) == 0 {
		return rec, nil
	}
	if len(cte.Columns) > len(rec.Fields) {
		return nil, errorf(TypeMismatch, cte.GetSpan(), "WITH query %q has %d columns available but %d columns specified",
			cte.Name, len(rec.Fields), len(cte.Columns))
	}
	fields := append([]types.Field(nil), rec.Fields...)
	for i, name := range cte.Columns {
		fields[i].Name = name
	}
	return &types.Record{Fields: fields}, nil
}

// selectBody elaborates a select core or set operation chain with its
// ORDER BY, LIMIT and OFFSET.
func (r *run) selectBody(ctx *Context, st *State, b *ast.SelectBody) (*types.Record, *State, error) {
	rec, scope, st, err := r.selectCore(ctx, st, b.Left)
	if err != nil {
		return nil, st, err
	}
	if b.Op != ast.SetOpNone {
		right, next, err := r.selectBody(ctx, st, b.Right)
		if err != nil {
			return nil, st, err
		}
		rec, st, err = r.setOperation(next, b, rec, right)
		if err != nil {
			return nil, st, err
		}
		scope = ctx.child().withOutputs(rec)
	}

	for _, item := range b.OrderBy {
		if st, err = r.outputExpr(scope, st, item.Expr); err != nil {
			return nil, st, err
		}
	}
	for _, x := range []ast.Expr{b.Limit, b.Offset} {
		if x == nil {
			continue
		}
		t, next, err := r.expr(ctx, st, x)
		if err != nil {
			return nil, st, err
		}
		if _, st, err = r.unify(next, t, types.BigInt, Implicit, x.GetSpan()); err != nil {
			return nil, st, err
		}
	}
	return rec, st, nil
}

// setOperation unifies the columns of both branches position by position.
func (r *run) setOperation(st *State, b *ast.SelectBody, left, right *types.Record) (*types.Record, *State, error) {
	if len(left.Fields) != len(right.Fields) {
		return nil, st, mismatch(b.GetSpan(), left, right, "each %s query must have the same number of columns (%d and %d)",
			b.Op, len(left.Fields), len(right.Fields))
	}
	fields := make([]types.Field, len(left.Fields))
	for i := range left.Fields {
		t, next, ok := r.unifier.unify(st, left.Fields[i].Type, right.Fields[i].Type, Implicit)
		if !ok {
			a, c := st.Resolve(left.Fields[i].Type), st.Resolve(right.Fields[i].Type)
			return nil, st, mismatch(b.GetSpan(), a, c, "%s types %s and %s cannot be matched in column %d", b.Op, a, c, i+1)
		}
		fields[i], st = types.Field{Name: left.Fields[i].Name, Type: t}, next
	}
	return &types.Record{Fields: fields}, st, nil
}

// selectCore elaborates one SELECT block and returns its row shape and the
// scope ORDER BY is resolved in.
func (r *run) selectCore(ctx *Context, st *State, c *ast.SelectCore) (*types.Record, *Context, *State, error) {
	if c.Values != nil {
		rec, next, err := r.values(ctx, st, c.Values)
		if err != nil {
			return nil, nil, st, err
		}
		return rec, ctx.child().withOutputs(rec), next, nil
	}

	scope, st, err := r.from(ctx.child(), st, c.From)
	if err != nil {
		return nil, nil, st, err
	}
	if c.Where != nil {
		t, next, err := r.expr(scope, st, c.Where)
		if err != nil {
			return nil, nil, st, err
		}
		if st, err = r.expectBool(next, t, c.Where.GetSpan(), "argument of WHERE"); err != nil {
			return nil, nil, st, err
		}
	}

	rec, st, err := r.selectList(scope, st, c.Columns)
	if err != nil {
		return nil, nil, st, err
	}
	scope = scope.withOutputs(rec)

	for _, x := range append(append([]ast.Expr(nil), c.GroupBy...), c.DistinctOn...) {
		if st, err = r.outputExpr(scope, st, x); err != nil {
			return nil, nil, st, err
		}
	}
	if c.Having != nil {
		t, next, err := r.expr(scope, st, c.Having)
		if err != nil {
			return nil, nil, st, err
		}
		if st, err = r.expectBool(next, t, c.Having.GetSpan(), "argument of HAVING"); err != nil {
			return nil, nil, st, err
		}
	}
	return rec, scope, st, nil
}

// outputExpr elaborates a GROUP BY, DISTINCT ON or ORDER BY item, which may
// also name an output column or give its position.
func (r *run) outputExpr(scope *Context, st *State, x ast.Expr) (*State, error) {
	if lit, ok := x.(*ast.Literal); ok && lit.Kind == ast.LiteralInteger {
		return st, nil
	}
	_, next, err := r.expr(scope, st, x)
	if err == nil {
		return next, nil
	}
	if ref, ok := x.(*ast.ColumnRef); ok && ref.Table == "" {
		if _, found := scope.outputColumn(ref.Column); found {
			return st, nil
		}
	}
	return st, err
}

// selectList elaborates a select or RETURNING list.
func (r *run) selectList(scope *Context, st *State, items []ast.SelectItem) (*types.Record, *State, error) {
	rec := &types.Record{}
	for _, item := range items {
		switch {
		case item.Star:
			fields := scope.visible()
			if len(fields) == 0 {
				return nil, st, errorf(UnknownIdentifier, item.GetSpan(), "SELECT * with no tables specified is not valid")
			}
			rec.Fields = append(rec.Fields, fields...)
		case item.TableStar != "":
			rel, ok := scope.relation(item.TableStar)
			if !ok {
				return nil, st, errorf(UnknownIdentifier, item.GetSpan(), "missing FROM-clause entry for table %q", item.TableStar)
			}
			rec.Fields = append(rec.Fields, rel.columns.Fields...)
		default:
			t, next, err := r.expr(scope, st, item.Expr)
			if err != nil {
				return nil, st, err
			}
			name := item.Alias
			if name == "" {
				name = columnName(item.Expr)
			}
			rec.Fields, st = append(rec.Fields, types.Field{Name: name, Type: t}), next
		}
	}
	return rec, st, nil
}

// values types a VALUES list; column i is the common type of every row's
// i-th entry.
func (r *run) values(ctx *Context, st *State, rows [][]ast.Expr) (*types.Record, *State, error) {
	var columns [][]operand
	for i, row := range rows {
		if i > 0 && len(row) != len(rows[0]) {
			var span token.Span
			if len(row) > 0 {
				span = token.Cover(row[0].GetSpan(), row[len(row)-1].GetSpan())
			}
			return nil, st, errorf(TypeMismatch, span, "VALUES lists must all be the same length")
		}
		ops, next, err := r.operands(ctx, st, row)
		if err != nil {
			return nil, st, err
		}
		st = next
		for j, op := range ops {
			if i == 0 {
				columns = append(columns, nil)
			}
			columns[j] = append(columns[j], op)
		}
	}
	rec := &types.Record{}
	for j, ops := range columns {
		t, next, err := r.commonType(st, ops, "VALUES columns")
		if err != nil {
			return nil, st, err
		}
		rec.Fields, st = append(rec.Fields, types.Field{Name: fmt.Sprintf("column%d", j+1), Type: t}), next
	}
	return rec, st, nil
}

// target resolves the table of an INSERT, UPDATE or DELETE.
func (r *run) target(name ast.QualifiedName, alias string, span ast.Node) (relation, error) {
	table, ok := r.global.Table(name.String())
	if !ok {
		if _, isView := r.global.View(name.String()); isView {
			return relation{}, errorf(NotImplemented, span.GetSpan(), "writing to view %q is not implemented yet", name.String())
		}
		return relation{}, errorf(UnknownIdentifier, span.GetSpan(), "relation %q does not exist", name.String())
	}
	ref := alias
	if ref == "" {
		ref = name.Name
	}
	return relation{name: ref, columns: table.Columns}, nil
}

func targetColumn(rel relation, column string, span ast.Node) (types.Field, error) {
	f, _, ok := rel.columns.Field(column)
	if !ok {
		return types.Field{}, errorf(UnknownIdentifier, span.GetSpan(), "column %q of relation %q does not exist", column, rel.name)
	}
	return f, nil
}

// assign checks that x can be stored in a column of type target. DEFAULT
// is always accepted and untyped string literals adapt to the column.
func (r *run) assign(ctx *Context, st *State, x ast.Expr, target types.Field) (*State, error) {
	if x == nil {
		return st, nil
	}
	if _, ok := x.(*ast.DefaultExpr); ok {
		return st, nil
	}
	t, next, err := r.expr(ctx, st, x)
	if err != nil {
		return st, err
	}
	if ast.IsStringLiteral(x) {
		return next, nil
	}
	if _, next, ok := r.unifier.unify(next, t, target.Type, Assignment); ok {
		return next, nil
	}
	t = next.Resolve(t)
	return st, mismatch(x.GetSpan(), t, target.Type, "column %q is of type %s but expression is of type %s", target.Name, target.Type, t)
}

func (r *run) insert(ctx *Context, st *State, s *ast.InsertStmt) (types.Type, *State, error) {
	scope, st, err := r.with(ctx, st, s.With)
	if err != nil {
		return nil, st, err
	}
	rel, err := r.target(s.Table, s.Alias, s)
	if err != nil {
		return nil, st, err
	}

	targets := rel.columns.Fields
	if len(s.Columns) > 0 {
		targets = nil
		for _, name := range s.Columns {
			f, err := targetColumn(rel, name, s)
			if err != nil {
				return nil, st, err
			}
			targets = append(targets, f)
		}
	}

	switch {
	case s.Values != nil:
		for _, row := range s.Values {
			if len(row) != len(targets) {
				return nil, st, errorf(TypeMismatch, s.GetSpan(), "INSERT has %d expressions but %d target columns", len(row), len(targets))
			}
			for i, x := range row {
				if st, err = r.assign(scope, st, x, targets[i]); err != nil {
					return nil, st, err
				}
			}
		}
	case s.Query != nil:
		rec, next, err := r.query(scope, st, s.Query)
		if err != nil {
			return nil, st, err
		}
		st = next
		if len(rec.Fields) != len(targets) {
			return nil, st, errorf(TypeMismatch, s.Query.GetSpan(), "INSERT has %d expressions but %d target columns", len(rec.Fields), len(targets))
		}
		for i, f := range rec.Fields {
			if _, next, ok := r.unifier.unify(st, f.Type, targets[i].Type, Assignment); ok {
				st = next
				continue
			}
			t := st.Resolve(f.Type)
			return nil, st, mismatch(s.Query.GetSpan(), t, targets[i].Type, "column %q is of type %s but expression is of type %s", targets[i].Name, targets[i].Type, t)
		}
	}

	row := scope.child().withRelations(rel)
	if oc := s.OnConflict; oc != nil {
		for _, name := range oc.Columns {
			if _, err := targetColumn(rel, name, oc); err != nil {
				return nil, st, err
			}
		}
		conflict := row.withRelations(relation{name: "excluded", columns: rel.columns})
		for _, set := range oc.Set {
			f, err := targetColumn(rel, set.Column, &set)
			if err != nil {
				return nil, st, err
			}
			if st, err = r.assign(conflict, st, set.Value, f); err != nil {
				return nil, st, err
			}
		}
		if oc.Where != nil {
			if st, err = r.condition(conflict, st, oc.Where, "ON CONFLICT WHERE condition"); err != nil {
				return nil, st, err
			}
		}
	}
	return r.returning(row, st, s.Returning)
}

func (r *run) update(ctx *Context, st *State, s *ast.UpdateStmt) (types.Type, *State, error) {
	scope, st, err := r.with(ctx, st, s.With)
	if err != nil {
		return nil, st, err
	}
	rel, err := r.target(s.Table, s.Alias, s)
	if err != nil {
		return nil, st, err
	}
	row, st, err := r.from(scope.child().withRelations(rel), st, s.From)
	if err != nil {
		return nil, st, err
	}
	for _, set := range s.Set {
		f, err := targetColumn(rel, set.Column, &set)
		if err != nil {
			return nil, st, err
		}
		if st, err = r.assign(row, st, set.Value, f); err != nil {
			return nil, st, err
		}
	}
	if s.Where != nil {
		if st, err = r.condition(row, st, s.Where, "argument of WHERE"); err != nil {
			return nil, st, err
		}
	}
	return r.returning(row, st, s.Returning)
}

func (r *run) delete(ctx *Context, st *State, s *ast.DeleteStmt) (types.Type, *State, error) {
	scope, st, err := r.with(ctx, st, s.With)
	if err != nil {
		return nil, st, err
	}
	rel, err := r.target(s.Table, s.Alias, s)
	if err != nil {
		return nil, st, err
	}
	row, st, err := r.from(scope.child().withRelations(rel), st, s.Using)
	if err != nil {
		return nil, st, err
	}
	if s.Where != nil {
		if st, err = r.condition(row, st, s.Where, "argument of WHERE"); err != nil {
			return nil, st, err
		}
	}
	return r.returning(row, st, s.Returning)
}

func (r *run) condition(ctx *Context, st *State, x ast.Expr, what string) (*State, error) {
	t, next, err := r.expr(ctx, st, x)
	if err != nil {
		return st, err
	}
	return r.expectBool(next, t, x.GetSpan(), what)
}

// returning types a RETURNING list, or Void without one.
func (r *run) returning(row *Context, st *State, items []ast.SelectItem) (types.Type, *State, error) {
	if len(items) == 0 {
		return types.Void, st, nil
	}
	rec, next, err := r.selectList(row, st, items)
	if err != nil {
		return nil, st, err
	}
	return rec, next, nil
}
