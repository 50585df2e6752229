package schema

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// BuildGlobal folds DDL statements into a new snapshot derived from
// existing. Statements other than CREATE TABLE, CREATE DOMAIN and
// CREATE TYPE ... AS ENUM are passed over. Recognized forms that cannot be
// modeled (INHERITS, CREATE TABLE AS, ALTER TABLE, CREATE VIEW) abort the
// whole batch; existing is never modified.
func BuildGlobal(existing *Global, stmts []ast.Stmt) (*Global, error) {
	g := existing.clone()
	for _, stmt := range stmts {
		var err error
		switch s := stmt.(type) {
		case *ast.CreateTable:
			err = g.addTable(s)
		case *ast.CreateDomain:
			err = g.addDomain(s)
		case *ast.CreateEnum:
			err = g.addEnum(s)
		case *ast.CreateView:
			err = newError(ErrNotImplemented, s.GetSpan(), "CREATE VIEW is not implemented yet")
		case *ast.AlterTable:
			err = newError(ErrNotImplemented, s.GetSpan(), "ALTER TABLE is not implemented yet")
		}
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Global) addTable(s *ast.CreateTable) error {
	name := s.Name.String()
	if len(s.Inherits) > 0 {
		return newError(ErrNotImplemented, s.GetSpan(), "INHERITS is not implemented yet")
	}
	if s.AsQuery != nil {
		return newError(ErrNotImplemented, s.GetSpan(), "CREATE TABLE AS is not implemented yet")
	}
	if g.exists(name) {
		if s.IfNotExists {
			return nil
		}
		return newError(ErrDuplicateObject, s.GetSpan(), fmt.Sprintf("relation %q already exists", name))
	}

	primary := make(map[string]bool)
	for _, el := range s.Elements {
		if c, ok := el.(*ast.TableConstraint); ok {
			for _, col := range c.PrimaryKey {
				primary[col] = true
			}
		}
	}

	table := &Table{Name: name, Columns: &types.Record{}}
	for _, el := range s.Elements {
		switch e := el.(type) {
		case *ast.ColumnDef:
			typ, err := g.ResolveType(e.Type)
			if err != nil {
				return err
			}
			if !(e.NotNull || e.PrimaryKey || primary[e.Name] || types.IsSerial(e.Type.Name)) {
				typ = types.MakeNullable(typ)
			}
			table.Columns.Fields = append(table.Columns.Fields, types.Field{Name: e.Name, Type: typ})
			if e.Default != nil || types.IsSerial(e.Type.Name) {
				table.Defaults = append(table.Defaults, e.Name)
			}
		case *ast.LikeClause:
			other, ok := g.Table(e.Table.String())
			if !ok {
				return newError(ErrUnknownIdentifier, e.GetSpan(), fmt.Sprintf("unknown table %q", e.Table.String()))
			}
			table.Columns.Fields = append(table.Columns.Fields, other.Columns.Fields...)
			table.Defaults = append(table.Defaults, other.Defaults...)
		}
	}
	g.Tables = append(g.Tables, table)
	return nil
}

func (g *Global) addDomain(s *ast.CreateDomain) error {
	name := s.Name.String()
	if g.exists(name) {
		return newError(ErrDuplicateObject, s.GetSpan(), fmt.Sprintf("type %q already exists", name))
	}
	base, err := g.ResolveType(s.Type)
	if err != nil {
		return err
	}
	var scalar *types.Scalar
	switch b := base.(type) {
	case *types.Scalar:
		scalar = b
	case *types.Domain:
		scalar = b.Base
	default:
		return newError(ErrNotImplemented, s.Type.GetSpan(), fmt.Sprintf("domain over %s is not implemented yet", base))
	}
	g.Domains = append(g.Domains, &types.Domain{Name: name, Base: scalar})
	return nil
}

func (g *Global) addEnum(s *ast.CreateEnum) error {
	name := s.Name.String()
	if g.exists(name) {
		return newError(ErrDuplicateObject, s.GetSpan(), fmt.Sprintf("type %q already exists", name))
	}
	labels := append([]string(nil), s.Labels...)
	g.Enums = append(g.Enums, &types.Enum{Name: name, Labels: labels})
	return nil
}

// ResolveType maps a written type to a Type: array suffixes become
// Array, domain, enum and table names resolve to their definitions, and
// any other name is a built-in scalar in canonical form.
func (g *Global) ResolveType(tn *ast.TypeName) (types.Type, error) {
	typ, err := g.resolveName(tn)
	if err != nil {
		return nil, err
	}
	for range tn.ArrayDims {
		typ = types.NewArray(typ)
	}
	return typ, nil
}

func (g *Global) resolveName(tn *ast.TypeName) (types.Type, error) {
	qualified := tn.Qualified().String()
	if d, ok := g.Domain(qualified); ok {
		return d, nil
	}
	if e, ok := g.Enum(qualified); ok {
		return e, nil
	}
	if r, ok := g.Relation(qualified); ok {
		return r, nil
	}
	switch strings.ToLower(tn.Schema) {
	case "", "pg_catalog":
		return types.NewScalar(tn.Name), nil
	}
	return nil, newError(ErrUnknownIdentifier, tn.GetSpan(), fmt.Sprintf("unknown type %q", qualified))
}
