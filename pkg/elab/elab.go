// Package elab infers parameter and result types of SQL functions and
// queries.
//
// Elaboration walks a statement's AST against a read-only schema.Global,
// threading a State of parameter bindings through every step. Each
// statement starts from fresh state, so an Elaborator may be shared by
// goroutines.
package elab

import (
	"log/slog"

	"github.com/leapstack-labs/sqltyper/pkg/catalog"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/token"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// DefaultMaxDepth bounds the nesting of subqueries and expressions.
const DefaultMaxDepth = 64

// Config holds elaborator configuration.
type Config struct {
	// Global is the schema to resolve names against (empty if nil)
	Global *schema.Global
	// Catalog provides casts, operators and functions (postgres if nil)
	Catalog *catalog.Catalog
	// MaxDepth bounds recursion (DefaultMaxDepth if zero)
	MaxDepth int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Elaborator types statements against one schema.
type Elaborator struct {
	global   *schema.Global
	catalog  *catalog.Catalog
	unifier  *Unifier
	maxDepth int
	logger   *slog.Logger
}

// New creates an Elaborator.
func New(cfg Config) *Elaborator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	global := cfg.Global
	if global == nil {
		global = schema.Empty()
	}
	depth := cfg.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &Elaborator{
		global:   global,
		catalog:  cat,
		unifier:  NewUnifier(cat),
		maxDepth: depth,
		logger:   logger,
	}
}

// Global returns the schema the elaborator resolves against.
func (e *Elaborator) Global() *schema.Global {
	return e.global
}

// run is the per-statement elaboration.
type run struct {
	*Elaborator
	depth int
}

func (e *Elaborator) newRun() *run {
	return &run{Elaborator: e}
}

// enter increments the nesting depth; callers defer leave.
func (r *run) enter(span token.Span) error {
	r.depth++
	if r.depth > r.maxDepth {
		return errorf(NestingTooDeep, span, "statement nests deeper than %d levels", r.maxDepth)
	}
	return nil
}

func (r *run) leave() {
	r.depth--
}

// unify wraps Unifier.Unify with the span of the triggering expression.
func (r *run) unify(st *State, a, b types.Type, mode catalog.CastContext, span token.Span) (types.Type, *State, error) {
	t, next, ok := r.unifier.unify(st, a, b, mode)
	if !ok {
		a, b = st.Resolve(a), st.Resolve(b)
		return nil, st, mismatch(span, a, b, "Couldn't unify %s with %s", a, b)
	}
	return t, next, nil
}

// expectBool unifies t with boolean for a condition.
func (r *run) expectBool(st *State, t types.Type, span token.Span, what string) (*State, error) {
	_, next, ok := r.unifier.unify(st, t, types.Boolean, Implicit)
	if !ok {
		t = st.Resolve(t)
		return st, mismatch(span, t, types.Boolean, "%s must be boolean, not %s", what, t)
	}
	return next, nil
}
