// Package schema holds the Global schema snapshot that queries are
// elaborated against, and folds DDL statements into it.
package schema

import (
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// Table is a table's row shape. Columns keep declaration order.
type Table struct {
	Name     string
	Columns  *types.Record
	Defaults []string // columns with a default value
}

// HasDefault reports whether column has a default value.
func (t *Table) HasDefault(column string) bool {
	for _, d := range t.Defaults {
		if d == column {
			return true
		}
	}
	return false
}

// View is a view's row shape.
type View struct {
	Name    string
	Columns *types.Record
}

// Global is an immutable schema snapshot. BuildGlobal returns new
// snapshots and never modifies its input, so a Global may be shared by
// concurrent elaborations.
type Global struct {
	Tables  []*Table
	Views   []*View
	Domains []*types.Domain
	Enums   []*types.Enum
}

// Empty returns a Global with no objects.
func Empty() *Global {
	return &Global{}
}

// Table looks up a table by name. A public or pg_catalog qualifier is
// ignored.
func (g *Global) Table(name string) (*Table, bool) {
	for _, t := range g.Tables {
		if types.SameName(t.Name, name) {
			return t, true
		}
	}
	return nil, false
}

// View looks up a view by name.
func (g *Global) View(name string) (*View, bool) {
	for _, v := range g.Views {
		if types.SameName(v.Name, name) {
			return v, true
		}
	}
	return nil, false
}

// Relation returns the row shape of a table or view.
func (g *Global) Relation(name string) (*types.Record, bool) {
	if t, ok := g.Table(name); ok {
		return t.Columns, true
	}
	if v, ok := g.View(name); ok {
		return v.Columns, true
	}
	return nil, false
}

// Domain looks up a domain by name.
func (g *Global) Domain(name string) (*types.Domain, bool) {
	for _, d := range g.Domains {
		if types.SameName(d.Name, name) {
			return d, true
		}
	}
	return nil, false
}

// Enum looks up an enum by name.
func (g *Global) Enum(name string) (*types.Enum, bool) {
	for _, e := range g.Enums {
		if types.SameName(e.Name, name) {
			return e, true
		}
	}
	return nil, false
}

// clone returns a shallow copy whose slices can be appended to without
// affecting g.
func (g *Global) clone() *Global {
	if g == nil {
		return &Global{}
	}
	return &Global{
		Tables:  append([]*Table(nil), g.Tables...),
		Views:   append([]*View(nil), g.Views...),
		Domains: append([]*types.Domain(nil), g.Domains...),
		Enums:   append([]*types.Enum(nil), g.Enums...),
	}
}

// exists reports whether any relation or type already uses name.
func (g *Global) exists(name string) bool {
	if _, ok := g.Relation(name); ok {
		return true
	}
	if _, ok := g.Domain(name); ok {
		return true
	}
	_, ok := g.Enum(name)
	return ok
}
