package elab

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// relation is a named row shape in scope: a table, view, CTE or subquery.
type relation struct {
	name    string
	columns *types.Record
}

// mergedColumn is a column joined with USING or NATURAL. covers names the
// relations whose same-named columns it replaces.
type mergedColumn struct {
	types.Field
	covers []string
}

func (m mergedColumn) covered(rel string) bool {
	return slices.Contains(m.covers, rel)
}

// Context is one lexical scope. A child sees its parents' bindings; adding
// bindings returns a new Context and leaves the receiver untouched.
type Context struct {
	parent *Context
	decls  []relation
	// merged holds the columns joined with USING or NATURAL.
	merged []mergedColumn
	ctes   []relation
	// outputs is the select list, visible to ORDER BY and GROUP BY.
	outputs *types.Record

	// Root only: function name and parameter names.
	function string
	aliases  map[string]int
}

// NewContext returns a root context. aliases maps function parameter
// names to their positions.
func NewContext(function string, aliases map[string]int) *Context {
	return &Context{function: function, aliases: aliases}
}

func (c *Context) child() *Context {
	return &Context{parent: c}
}

func (c *Context) shallow() *Context {
	out := *c
	return &out
}

func (c *Context) withRelations(rels ...relation) *Context {
	out := c.shallow()
	out.decls = append(slices.Clip(c.decls), rels...)
	return out
}

func (c *Context) withMerged(cols ...mergedColumn) *Context {
	out := c.shallow()
	out.merged = append(slices.Clip(c.merged), cols...)
	return out
}

func (c *Context) withCTE(rel relation) *Context {
	out := c.shallow()
	out.ctes = append(slices.Clip(c.ctes), rel)
	return out
}

func (c *Context) withOutputs(r *types.Record) *Context {
	out := c.shallow()
	out.outputs = r
	return out
}

func (c *Context) root() *Context {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// cte finds a common table expression by name, innermost first.
func (c *Context) cte(name string) (relation, bool) {
	for ; c != nil; c = c.parent {
		for i := len(c.ctes) - 1; i >= 0; i-- {
			if c.ctes[i].name == name {
				return c.ctes[i], true
			}
		}
	}
	return relation{}, false
}

// relation finds a relation by reference name, innermost first.
func (c *Context) relation(name string) (relation, bool) {
	for ; c != nil; c = c.parent {
		for _, rel := range c.decls {
			if types.SameName(rel.name, name) {
				return rel, true
			}
		}
	}
	return relation{}, false
}

// columnLookup is the outcome of an unqualified name lookup.
type columnLookup struct {
	typ   types.Type
	param int // > 0 when the name is a function parameter
	found bool
	// ambiguous lists the relations of an ambiguous match.
	ambiguous []string
}

// column resolves an unqualified column name. Each scope level is searched
// as a whole so that two matches on one level are ambiguous while an inner
// match hides an outer one. A merged column stands for the relations it
// covers; any other relation with the name makes it ambiguous. Function
// parameters come last.
func (c *Context) column(name string) columnLookup {
	for level := c; level != nil; level = level.parent {
		merge, merged := level.mergedColumn(name)
		var hits []string
		if merged {
			hits = append(hits, merge.covers...)
		}
		var typ types.Type
		others := 0
		for _, rel := range level.decls {
			if merged && merge.covered(rel.name) {
				continue
			}
			if f, _, ok := rel.columns.Field(name); ok {
				hits = append(hits, rel.name)
				typ = f.Type
				others++
			}
		}
		switch {
		case merged && others == 0:
			return columnLookup{typ: merge.Type, found: true}
		case merged || others > 1:
			return columnLookup{ambiguous: hits}
		case others == 1:
			return columnLookup{typ: typ, found: true}
		}
	}
	if n, ok := c.root().aliases[name]; ok {
		return columnLookup{param: n, found: true}
	}
	return columnLookup{}
}

func (c *Context) mergedColumn(name string) (mergedColumn, bool) {
	for _, m := range c.merged {
		if m.Name == name {
			return m, true
		}
	}
	return mergedColumn{}, false
}

// param resolves a parameter name qualified with the function name.
func (c *Context) param(function, name string) (int, bool) {
	root := c.root()
	if root.function == "" || !strings.EqualFold(unqualifiedName(root.function), function) {
		return 0, false
	}
	n, ok := root.aliases[name]
	return n, ok
}

// outputColumn finds a select-list column by name on the nearest level that
// has one.
func (c *Context) outputColumn(name string) (types.Type, bool) {
	for ; c != nil; c = c.parent {
		if c.outputs != nil {
			if f, _, ok := c.outputs.Field(name); ok {
				return f.Type, true
			}
			return nil, false
		}
	}
	return nil, false
}

// visible returns the columns a bare * expands to on this level: merged
// columns first, then every relation's remaining columns.
func (c *Context) visible() []types.Field {
	fields := make([]types.Field, 0, len(c.merged))
	for _, m := range c.merged {
		fields = append(fields, m.Field)
	}
	for _, rel := range c.decls {
		for _, f := range rel.columns.Fields {
			if m, ok := c.mergedColumn(f.Name); ok && m.covered(rel.name) {
				continue
			}
			fields = append(fields, f)
		}
	}
	return fields
}

func unqualifiedName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
