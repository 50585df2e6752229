// Package engine drives schema loading and signature inference over the
// files of a project.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/leapstack-labs/sqltyper/internal/introspect"
	"github.com/leapstack-labs/sqltyper/internal/loader"
	"github.com/leapstack-labs/sqltyper/internal/state"
	"github.com/leapstack-labs/sqltyper/pkg/catalog"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
)

// Engine loads schemas and infers signatures.
type Engine struct {
	cfg     Config
	catalog *catalog.Catalog
	loader  *loader.Loader
	store   state.Store
	logger  *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Schema lists DDL files or directories
	Schema []string
	// Migrations is a goose migration directory (optional)
	Migrations string
	// DatabaseURL selects live introspection as the base schema (optional)
	DatabaseURL string
	// Catalog names the built-in catalog (postgres if empty)
	Catalog string
	// MaxDepth bounds elaboration recursion (elab default if zero)
	MaxDepth int
	// Workers bounds parallel file elaboration (GOMAXPROCS if zero)
	Workers int
	// CachePath is the signature cache (disabled if empty)
	CachePath string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine and opens its cache.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Catalog == "" {
		cfg.Catalog = "postgres"
	}
	cat, err := catalog.Lookup(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		catalog: cat,
		loader:  loader.New(logger),
		logger:  logger,
	}
	if cfg.CachePath != "" {
		store, err := state.OpenStore(ctx, cfg.CachePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		e.store = store
	}
	logger.Debug("initializing engine",
		slog.String("catalog", cfg.Catalog),
		slog.Int("workers", cfg.Workers),
		slog.Bool("cache", e.store != nil))
	return e, nil
}

// Close releases the cache.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Loader returns the file loader.
func (e *Engine) Loader() *loader.Loader {
	return e.loader
}

// LoadSchema builds the schema: the live database when configured, then
// the schema files, then the migrations in version order.
func (e *Engine) LoadSchema(ctx context.Context) (*schema.Global, error) {
	g := schema.Empty()
	if e.cfg.DatabaseURL != "" {
		db, err := introspect.Open(ctx, e.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer func() { _ = db.Close() }()
		if g, err = introspect.New(db, e.logger).Load(ctx); err != nil {
			return nil, err
		}
	}

	files, err := e.loader.Scan(e.cfg.Schema)
	if err != nil {
		return nil, err
	}
	migrations, err := e.loader.Migrations(e.cfg.Migrations)
	if err != nil {
		return nil, err
	}
	return e.loader.Schema(g, append(files, migrations...))
}
