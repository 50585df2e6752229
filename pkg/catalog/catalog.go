// Package catalog provides the built-in type, cast, operator and function
// tables the elaborator resolves against.
//
// A Catalog is assembled once through a Builder and registered by name.
// Catalogs are immutable after Build and safe for concurrent use.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// Polymorphic pseudo-types used in signatures. They never appear in
// elaborated results.
var (
	// AnyElement unifies with every other AnyElement of the same call.
	AnyElement types.Type = &types.Scalar{Name: "anyelement"}
	// AnyArray is an array whose element type is the call's AnyElement.
	AnyArray types.Type = &types.Scalar{Name: "anyarray"}
	// AnyValue accepts any argument independently.
	AnyValue types.Type = &types.Scalar{Name: "any"}
	// AnyRecord accepts any record.
	AnyRecord types.Type = &types.Scalar{Name: "record"}
)

// IsPseudo reports whether t is one of the polymorphic pseudo-types.
func IsPseudo(t types.Type) bool {
	return t == AnyElement || t == AnyArray || t == AnyValue || t == AnyRecord
}

// NullPolicy describes how a routine's result nullability follows its
// arguments.
type NullPolicy int

// Null policies.
const (
	NullStrict NullPolicy = iota // nullable iff any argument is nullable
	NullAlways                   // always nullable
	NullNever                    // never nullable
	NullIfAll                    // nullable iff every argument is nullable
)

// FuncKind classifies functions.
type FuncKind int

// Function kinds.
const (
	FuncScalar FuncKind = iota
	FuncAggregate
	FuncWindow
)

// Operator is one operator signature. Left is nil for prefix operators.
type Operator struct {
	Name   string
	Left   types.Type
	Right  types.Type
	Result types.Type
	Null   NullPolicy
}

// Function is one function signature. When Variadic is set the last
// argument type repeats.
type Function struct {
	Name     string
	Args     []types.Type
	Variadic bool
	Result   types.Type
	Kind     FuncKind
	Null     NullPolicy
	// DomainAware results keep a domain argument's domain when the result
	// type equals the domain's base.
	DomainAware bool
}

type castKey struct {
	src, dst string
}

// Catalog holds the built-in tables of one database flavor.
type Catalog struct {
	Name      string
	scalars   map[string]struct{}
	casts     map[castKey]CastContext
	operators map[string][]*Operator
	functions map[string][]*Function
}

// HasScalar reports whether name (canonical) is a built-in scalar.
func (c *Catalog) HasScalar(name string) bool {
	_, ok := c.scalars[types.CanonicalName(name)]
	return ok
}

// Scalars returns the built-in scalar names (sorted).
func (c *Catalog) Scalars() []string {
	names := make([]string, 0, len(c.scalars))
	for n := range c.scalars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Operators returns the signatures registered for an operator, in
// registration order. Prefix operators are returned when prefix is set.
func (c *Catalog) Operators(name string, prefix bool) []*Operator {
	var out []*Operator
	for _, op := range c.operators[strings.ToUpper(name)] {
		if (op.Left == nil) == prefix {
			out = append(out, op)
		}
	}
	return out
}

// Functions returns the signatures registered for a function name.
func (c *Catalog) Functions(name string) []*Function {
	return c.functions[strings.ToLower(name)]
}

// FunctionNames returns the registered function names (sorted).
func (c *Catalog) FunctionNames() []string {
	names := make([]string, 0, len(c.functions))
	for n := range c.functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OperatorNames returns the registered operator names (sorted).
func (c *Catalog) OperatorNames() []string {
	names := make([]string, 0, len(c.operators))
	for n := range c.operators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsAggregate reports whether name is an aggregate function.
func (c *Catalog) IsAggregate(name string) bool {
	for _, f := range c.Functions(name) {
		if f.Kind == FuncAggregate {
			return true
		}
	}
	return false
}

// Builder provides a fluent API for constructing catalogs.
type Builder struct {
	catalog *Catalog
}

// NewBuilder creates a catalog builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		catalog: &Catalog{
			Name:      name,
			scalars:   make(map[string]struct{}),
			casts:     make(map[castKey]CastContext),
			operators: make(map[string][]*Operator),
			functions: make(map[string][]*Function),
		},
	}
}

// Scalars registers built-in scalar type names.
func (b *Builder) Scalars(names ...string) *Builder {
	for _, n := range names {
		b.catalog.scalars[types.CanonicalName(n)] = struct{}{}
	}
	return b
}

// Casts registers a source -> target -> context cast table.
func (b *Builder) Casts(table map[string]map[string]CastContext) *Builder {
	for src, targets := range table {
		for dst, ctx := range targets {
			b.catalog.casts[castKey{types.CanonicalName(src), types.CanonicalName(dst)}] = ctx
		}
	}
	return b
}

// Operators registers operator signatures.
func (b *Builder) Operators(ops ...*Operator) *Builder {
	for _, op := range ops {
		key := strings.ToUpper(op.Name)
		b.catalog.operators[key] = append(b.catalog.operators[key], op)
	}
	return b
}

// Functions registers function signatures.
func (b *Builder) Functions(fns ...*Function) *Builder {
	for _, fn := range fns {
		key := strings.ToLower(fn.Name)
		b.catalog.functions[key] = append(b.catalog.functions[key], fn)
	}
	return b
}

// Build returns the finished catalog.
func (b *Builder) Build() *Catalog {
	return b.catalog
}

// Catalog registry
var (
	catalogsMu sync.RWMutex
	catalogs   = make(map[string]*Catalog)
)

// ErrUnknownCatalog is returned when a catalog name is not registered.
var ErrUnknownCatalog = errors.New("unknown catalog")

// Register registers a catalog in the global registry.
func Register(c *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[strings.ToLower(c.Name)] = c
}

// Get returns a catalog by name.
func Get(name string) (*Catalog, bool) {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()
	c, ok := catalogs[strings.ToLower(name)]
	return c, ok
}

// Lookup returns a catalog by name or ErrUnknownCatalog.
func Lookup(name string) (*Catalog, error) {
	if c, ok := Get(name); ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCatalog, name)
}

// List returns all registered catalog names (sorted).
func List() []string {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the PostgreSQL catalog.
func Default() *Catalog {
	c, _ := Get(PostgresName)
	return c
}
