package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqltyper/internal/cli/output"
	"github.com/leapstack-labs/sqltyper/internal/config"
	"github.com/leapstack-labs/sqltyper/internal/engine"
)

// CommandContext holds what a command needs to run.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates the engine and renderer from the config
// loaded by the root command. The returned cleanup closes the engine.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, nil, errors.New("configuration not loaded")
	}
	logger := config.GetLogger(ctx)

	if cfg.Cache != "" && cfg.Cache != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Cache), 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	eng, err := engine.New(ctx, engine.Config{
		Schema:      cfg.Schema,
		Migrations:  cfg.Migrations,
		DatabaseURL: cfg.DatabaseURL,
		Catalog:     cfg.Catalog,
		MaxDepth:    cfg.MaxDepth,
		Workers:     cfg.Workers,
		CachePath:   cfg.Cache,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))
	cleanup := func() {
		_ = eng.Close()
	}
	return &CommandContext{Cfg: cfg, Logger: logger, Engine: eng, Renderer: r}, cleanup, nil
}

// displayPath shortens path relative to the project root when possible.
func (c *CommandContext) displayPath(path string) string {
	if rel, err := filepath.Rel(c.Cfg.ProjectRoot, path); err == nil && !filepath.IsAbs(rel) && rel != "" && rel[0] != '.' {
		return rel
	}
	return path
}

// queryPaths returns args, or the configured query paths.
func queryPaths(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Queries) > 0 {
		return cfg.Queries, nil
	}
	return nil, errors.New("no query paths: pass paths or set queries in sqltyper.yaml")
}
