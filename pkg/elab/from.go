package elab

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// joined is the accumulated left side of a join chain.
type joined struct {
	rels   []relation
	merged []mergedColumn
}

// from elaborates a FROM clause and returns ctx extended with its
// relations and merged join columns.
func (r *run) from(ctx *Context, st *State, fc *ast.FromClause) (*Context, *State, error) {
	if fc == nil {
		return ctx, st, nil
	}
	acc, st, err := r.joinTree(ctx, st, fc)
	if err != nil {
		return nil, st, err
	}
	return ctx.withRelations(acc.rels...).withMerged(acc.merged...), st, nil
}

func (r *run) joinTree(ctx *Context, st *State, fc *ast.FromClause) (joined, *State, error) {
	acc, st, err := r.tableRef(ctx, st, fc.Source, joined{})
	if err != nil {
		return joined{}, st, err
	}
	for _, j := range fc.Joins {
		acc, st, err = r.join(ctx, st, acc, j)
		if err != nil {
			return joined{}, st, err
		}
	}
	return acc, st, nil
}

// join adds one joined item to acc. The ON condition is checked against
// the relations as they are before the join's nullability applies: LEFT
// nullifies the right side, RIGHT everything accumulated so far, FULL both.
func (r *run) join(ctx *Context, st *State, acc joined, j *ast.Join) (joined, *State, error) {
	right, st, err := r.tableRef(ctx, st, j.Right, acc)
	if err != nil {
		return joined{}, st, err
	}
	for _, rel := range right.rels {
		if slices.ContainsFunc(acc.rels, func(l relation) bool { return types.SameName(l.name, rel.name) }) {
			return joined{}, st, errorf(AmbiguousIdentifier, j.Right.GetSpan(), "table name %q specified more than once", rel.name)
		}
	}

	if j.Condition != nil {
		scope := ctx.withRelations(acc.rels...).withRelations(right.rels...).withMerged(acc.merged...).withMerged(right.merged...)
		t, next, err := r.expr(scope, st, j.Condition)
		if err != nil {
			return joined{}, st, err
		}
		if st, err = r.expectBool(next, t, j.Condition.GetSpan(), "JOIN/ON condition"); err != nil {
			return joined{}, st, err
		}
	}

	using := j.Using
	if j.Natural {
		using = commonColumns(acc, right)
	}
	var merged []mergedColumn
	for _, name := range using {
		lt, err := usingColumn(acc, name, "left", j)
		if err != nil {
			return joined{}, st, err
		}
		rt, err := usingColumn(right, name, "right", j)
		if err != nil {
			return joined{}, st, err
		}
		t, next, err := r.unify(st, lt, rt, Implicit, j.GetSpan())
		if err != nil {
			return joined{}, st, err
		}
		st = next
		switch j.Type {
		case ast.JoinLeft:
			t = lt
		case ast.JoinRight:
			t = rt
		case ast.JoinFull:
			t = types.MakeNullable(t)
		default:
			if !types.IsNullable(lt) || !types.IsNullable(rt) {
				t, _ = types.Unwrap(t)
			}
		}
		covers := append(slices.Clip(coverage(acc, name)), coverage(right, name)...)
		merged = append(merged, mergedColumn{Field: types.Field{Name: name, Type: t}, covers: covers})
	}

	switch j.Type {
	case ast.JoinLeft:
		right = nullifyJoined(right)
	case ast.JoinRight:
		acc = nullifyJoined(acc)
	case ast.JoinFull:
		acc, right = nullifyJoined(acc), nullifyJoined(right)
	}

	out := joined{
		rels:   append(append([]relation(nil), acc.rels...), right.rels...),
		merged: merged,
	}
	for _, f := range append(slices.Clip(acc.merged), right.merged...) {
		if !slices.ContainsFunc(merged, func(m mergedColumn) bool { return m.Name == f.Name }) {
			out.merged = append(out.merged, f)
		}
	}
	return out, st, nil
}

// tableRef elaborates one FROM item. siblings are the items to its left,
// visible to LATERAL subqueries.
func (r *run) tableRef(ctx *Context, st *State, ref ast.TableRef, siblings joined) (joined, *State, error) {
	if err := r.enter(ref.GetSpan()); err != nil {
		return joined{}, st, err
	}
	defer r.leave()

	switch t := ref.(type) {
	case *ast.TableName:
		if len(t.ColumnAliases) > 0 {
			return joined{}, st, errorf(NotImplemented, t.GetSpan(), "column alias lists in FROM are not implemented yet")
		}
		name := t.Alias
		if name == "" {
			name = t.Name.Name
		}
		if t.Name.Schema == "" {
			if cte, ok := ctx.cte(t.Name.Name); ok {
				return single(name, cte.columns), st, nil
			}
		}
		cols, ok := r.global.Relation(t.Name.String())
		if !ok {
			return joined{}, st, errorf(UnknownIdentifier, t.GetSpan(), "relation %q does not exist", t.Name.String())
		}
		return single(name, cols), st, nil

	case *ast.DerivedTable:
		if t.Alias == "" {
			return joined{}, st, errorf(NotImplemented, t.GetSpan(), "subquery in FROM must have an alias")
		}
		if len(t.ColumnAliases) > 0 {
			return joined{}, st, errorf(NotImplemented, t.GetSpan(), "column alias lists in FROM are not implemented yet")
		}
		scope := ctx
		if t.Lateral {
			scope = ctx.withRelations(siblings.rels...).withMerged(siblings.merged...)
		}
		rec, next, err := r.query(scope, st, t.Query)
		if err != nil {
			return joined{}, st, err
		}
		return single(t.Alias, rec), next, nil

	case *ast.FuncTable:
		return joined{}, st, errorf(NotImplemented, t.GetSpan(), "table functions in FROM are not implemented yet")

	case *ast.ParenTable:
		if t.Alias != "" {
			return joined{}, st, errorf(NotImplemented, t.GetSpan(), "aliased join trees are not implemented yet")
		}
		return r.joinTree(ctx, st, t.From)
	}
	return joined{}, st, errorf(NotImplemented, ref.GetSpan(), "FROM item %T is not implemented yet", ref)
}

func single(name string, cols *types.Record) joined {
	return joined{rels: []relation{{name: name, columns: cols}}}
}

func nullifyJoined(j joined) joined {
	out := joined{
		rels:   make([]relation, len(j.rels)),
		merged: make([]mergedColumn, len(j.merged)),
	}
	for i, rel := range j.rels {
		out.rels[i] = relation{name: rel.name, columns: types.Nullify(rel.columns)}
	}
	for i, f := range j.merged {
		out.merged[i] = mergedColumn{Field: types.Field{Name: f.Name, Type: types.MakeNullable(f.Type)}, covers: f.covers}
	}
	return out
}

// lookupJoined finds a column on one side of a join and reports how many
// distinct columns carry the name. A merged column counts once for all the
// relations it covers.
func lookupJoined(j joined, name string) (types.Type, int) {
	var found types.Type
	hits := 0
	var merge mergedColumn
	merged := false
	for _, m := range j.merged {
		if m.Name == name {
			merge, merged = m, true
			found = m.Type
			hits++
			break
		}
	}
	for _, rel := range j.rels {
		if merged && merge.covered(rel.name) {
			continue
		}
		if f, _, ok := rel.columns.Field(name); ok {
			found = f.Type
			hits++
		}
	}
	return found, hits
}

func usingColumn(j joined, name, side string, join *ast.Join) (types.Type, error) {
	t, hits := lookupJoined(j, name)
	switch {
	case hits == 0:
		return nil, errorf(UnknownIdentifier, join.GetSpan(), "column %q specified in USING clause does not exist in %s table", name, side)
	case hits > 1:
		return nil, errorf(AmbiguousIdentifier, join.GetSpan(), "common column name %q appears more than once in %s table", name, side)
	}
	return t, nil
}

// coverage names the relations on one side of a join whose column a USING
// merge of name replaces.
func coverage(j joined, name string) []string {
	for _, m := range j.merged {
		if m.Name == name {
			return m.covers
		}
	}
	for _, rel := range j.rels {
		if _, _, ok := rel.columns.Field(name); ok {
			return []string{rel.name}
		}
	}
	return nil
}

// commonColumns lists the column names NATURAL joins on, in left order.
func commonColumns(left, right joined) []string {
	var names []string
	seen := make(map[string]bool)
	collect := func(j joined) []string {
		var out []string
		for _, f := range j.merged {
			out = append(out, f.Name)
		}
		for _, rel := range j.rels {
			for _, f := range rel.columns.Fields {
				out = append(out, f.Name)
			}
		}
		return out
	}
	rightNames := make(map[string]bool)
	for _, n := range collect(right) {
		rightNames[strings.ToLower(n)] = true
	}
	for _, n := range collect(left) {
		if rightNames[strings.ToLower(n)] && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}
