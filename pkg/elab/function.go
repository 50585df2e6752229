package elab

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/token"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// Input is one positional input of a signature.
type Input struct {
	// Name is empty for positional-only parameters.
	Name       string
	Type       types.Type
	HasDefault bool
}

// FunctionSignature is the inferred interface of a function or query.
type FunctionSignature struct {
	Name   string
	Inputs []Input
	// Returns is a Record, a scalar-like type, or Void.
	Returns      types.Type
	MultipleRows bool
}

// DoCreateFunction elaborates a CREATE FUNCTION statement against global
// with the default catalog.
func DoCreateFunction(global *schema.Global, stmt *ast.CreateFunction) (*FunctionSignature, error) {
	return New(Config{Global: global}).CreateFunction(stmt)
}

// CreateFunction infers the signature of a SQL function.
func (e *Elaborator) CreateFunction(stmt *ast.CreateFunction) (*FunctionSignature, error) {
	name := stmt.Name.String()
	e.logger.Debug("elaborating function", slog.String("function", name))

	if stmt.Language != "sql" {
		return nil, errorf(NotImplemented, stmt.GetSpan(), "functions in LANGUAGE %s are not implemented yet", stmt.Language)
	}

	r := e.newRun()
	st := NewState()
	aliases := map[string]int{}
	var inputs []*ast.FuncParam
	var outs []types.Field

	for _, p := range stmt.Params {
		var typ types.Type
		if p.Type != nil {
			t, err := e.global.ResolveType(p.Type)
			if err != nil {
				return nil, fromSchemaError(err)
			}
			typ = t
		}
		if p.Mode == ast.ParamOut || p.Mode == ast.ParamInOut {
			if typ == nil {
				return nil, errorf(UndeterminedParameter, p.GetSpan(), "output parameter %q needs a type", p.Name)
			}
			outs = append(outs, types.Field{Name: p.Name, Type: types.MakeNullable(typ)})
			if p.Mode == ast.ParamOut {
				continue
			}
		}
		inputs = append(inputs, p)
		n := len(inputs)
		st = st.Declare(n, typ)
		if p.Name != "" {
			aliases[p.Name] = n
		}
	}

	ctx := NewContext(name, aliases)
	for i, p := range inputs {
		if p.Default == nil {
			continue
		}
		var err error
		target := types.Field{Name: p.Name, Type: st.paramVar(i + 1)}
		if st, err = r.assign(NewContext("", nil), st, p.Default, target); err != nil {
			return nil, err
		}
	}

	var body types.Type = types.Void
	for _, s := range stmt.Body {
		t, next, err := r.statement(ctx, st, s)
		if err != nil {
			return nil, err
		}
		body, st = t, next
	}

	for i, p := range inputs {
		if p.Name != "" && !st.Used(i+1) {
			return nil, errorf(UnusedArgument, p.GetSpan(), "argument %q of function %s is never used", p.Name, name)
		}
	}

	returns, multiple, st, err := r.returnType(st, stmt, body, outs)
	if err != nil {
		return nil, err
	}

	sig := &FunctionSignature{Name: name, Returns: st.Resolve(returns), MultipleRows: multiple}
	sig.Inputs, err = finishParams(st, len(inputs))
	if err != nil {
		return nil, err
	}
	for i, p := range inputs {
		sig.Inputs[i].Name = p.Name
		sig.Inputs[i].HasDefault = p.Default != nil
	}
	return sig, nil
}

// returnType checks the body's shape against the RETURNS clause and
// returns the function's result type and cardinality.
func (r *run) returnType(st *State, stmt *ast.CreateFunction, body types.Type, outs []types.Field) (types.Type, bool, *State, error) {
	ret := stmt.Returns
	span := stmt.GetSpan()
	if ret != nil {
		span = ret.GetSpan()
	}

	if ret == nil || ret.Kind == ast.ReturnsRecord {
		setOf := ret != nil && ret.SetOf
		if ret == nil && len(outs) == 0 {
			return types.Void, false, st, nil
		}
		rec, err := bodyRecord(body, span)
		if err != nil {
			return nil, false, st, err
		}
		if len(outs) == 0 {
			return rec, setOf, st, nil
		}
		out, next, err := r.conform(st, rec, &types.Record{Fields: outs}, span)
		return out, setOf, next, err
	}

	switch ret.Kind {
	case ast.ReturnsVoid:
		return types.Void, false, st, nil
	case ast.ReturnsTable:
		declared := &types.Record{}
		for _, col := range ret.Columns {
			t, err := r.global.ResolveType(col.Type)
			if err != nil {
				return nil, false, st, fromSchemaError(err)
			}
			declared.Fields = append(declared.Fields, types.Field{Name: col.Name, Type: t})
		}
		rec, err := bodyRecord(body, span)
		if err != nil {
			return nil, false, st, err
		}
		out, next, err := r.conform(st, rec, declared, span)
		return out, true, next, err
	}

	declared, err := r.global.ResolveType(ret.Type)
	if err != nil {
		return nil, false, st, fromSchemaError(err)
	}
	rec, err := bodyRecord(body, span)
	if err != nil {
		return nil, false, st, err
	}
	if row, ok := declared.(*types.Record); ok {
		out, next, err := r.conform(st, rec, row, span)
		return out, ret.SetOf, next, err
	}
	if len(rec.Fields) != 1 {
		return nil, false, st, errorf(KindMismatch, span, "function returning %s must end with a query returning one column, not %d", declared, len(rec.Fields))
	}
	col := rec.Fields[0].Type
	if _, next, ok := r.unifier.unify(st, col, declared, Assignment); ok {
		return types.NullableIf(declared, types.IsNullable(next.Resolve(col))), ret.SetOf, next, nil
	}
	col = st.Resolve(col)
	return nil, false, st, mismatch(span, col, declared, "return type mismatch in function declared to return %s: final statement returns %s", declared, col)
}

func bodyRecord(body types.Type, span token.Span) (*types.Record, error) {
	rec, ok := body.(*types.Record)
	if !ok {
		return nil, errorf(KindMismatch, span, "function result must come from a final SELECT or RETURNING clause")
	}
	return rec, nil
}

// conform fits the body's columns to a declared row type. Names come from
// the declaration; a column is nullable only when the body's is.
func (r *run) conform(st *State, body, declared *types.Record, span token.Span) (*types.Record, *State, error) {
	if len(body.Fields) != len(declared.Fields) {
		return nil, st, mismatch(span, body, declared, "final statement returns %d columns, function declares %d", len(body.Fields), len(declared.Fields))
	}
	out := &types.Record{Fields: make([]types.Field, len(body.Fields))}
	for i, f := range body.Fields {
		want, _ := types.Unwrap(declared.Fields[i].Type)
		_, next, ok := r.unifier.unify(st, f.Type, want, Assignment)
		if !ok {
			got := st.Resolve(f.Type)
			return nil, st, mismatch(span, got, want, "final statement returns %s instead of %s at column %d", got, want, i+1)
		}
		nullable := types.IsNullable(next.Resolve(f.Type))
		out.Fields[i], st = types.Field{Name: declared.Fields[i].Name, Type: types.NullableIf(want, nullable)}, next
	}
	return out, st, nil
}

// finishParams resolves parameters 1..n plus any higher ones the body
// referenced. Every one of them must have a known type.
func finishParams(st *State, declared int) ([]Input, error) {
	n := declared
	for _, p := range st.Params() {
		n = max(n, p)
	}
	inputs := make([]Input, n)
	for i := range n {
		t := st.ParamType(i + 1)
		if t != nil {
			t = st.Resolve(t)
		}
		if t == nil || hasVar(t) {
			var span token.Span
			if from := st.provenance(i + 1); len(from) > 0 {
				span = from[0]
			}
			return nil, errorf(UndeterminedParameter, span, "could not determine data type of parameter $%d", i+1)
		}
		inputs[i] = Input{Type: t}
	}
	return inputs, nil
}

func hasVar(t types.Type) bool {
	switch x := t.(type) {
	case *types.Var:
		return true
	case *types.Nullable:
		return hasVar(x.Inner)
	case *types.Array:
		return hasVar(x.Elem)
	case *types.Record:
		for _, f := range x.Fields {
			if hasVar(f.Type) {
				return true
			}
		}
	}
	return false
}

// Query annotation flags.
const (
	QueryOne  = ":one"
	QueryMany = ":many"
	QueryExec = ":exec"
)

var annotationRe = regexp.MustCompile(`^name:\s*(\S+)\s*(:one|:many|:exec)?$`)

// Annotation returns the name and flag of a `-- name: X :flag` comment
// preceding stmt.
func Annotation(stmt ast.Stmt) (name, flag string, ok bool) {
	for _, c := range stmt.Comments() {
		if !c.IsLine() {
			continue
		}
		if m := annotationRe.FindStringSubmatch(c.Body()); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}

// ElabQuery infers the signature of a standalone statement whose inputs
// are its positional parameters.
func (e *Elaborator) ElabQuery(stmt ast.Stmt) (*FunctionSignature, error) {
	name, flag, _ := Annotation(stmt)
	e.logger.Debug("elaborating query", slog.String("query", name))

	r := e.newRun()
	returns, st, err := r.statement(NewContext("", nil), NewState(), stmt)
	if err != nil {
		return nil, err
	}
	sig := &FunctionSignature{Name: name, Returns: st.Resolve(returns)}
	if sig.Inputs, err = finishParams(st, 0); err != nil {
		return nil, err
	}

	switch flag {
	case QueryOne:
		sig.MultipleRows = false
	case QueryExec:
		sig.Returns = types.Void
	default:
		sig.MultipleRows = sig.Returns != types.Void
	}
	if flag == QueryOne && sig.Returns == types.Void {
		return nil, errorf(KindMismatch, stmt.GetSpan(), "query %s is annotated %s but returns no rows", name, flag)
	}
	return sig, nil
}

func (s *FunctionSignature) String() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	sb.WriteByte('(')
	for i, in := range s.Inputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		if in.Name != "" {
			sb.WriteString(in.Name)
			sb.WriteByte(' ')
		}
		sb.WriteString(in.Type.String())
	}
	sb.WriteString(") -> ")
	if s.MultipleRows {
		sb.WriteString("setof ")
	}
	fmt.Fprint(&sb, s.Returns)
	return sb.String()
}
