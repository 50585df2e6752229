package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqltyper/internal/cli/output"
	"github.com/leapstack-labs/sqltyper/internal/engine"
)

// NewInferCommand creates the infer command.
func NewInferCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "infer [paths...]",
		Short: "Infer the signatures of SQL functions and queries",
		Long: `Parse SQL files and infer the parameter and result types of every
CREATE FUNCTION statement and every query annotated with "-- name: <Name> :one|:many".

Types are checked against the schema built from the configured schema files,
migrations, and database. Without paths, the configured queries are used.`,
		Example: `  # Infer the configured queries
  sqltyper infer

  # Infer a single file as JSON
  sqltyper infer queries/users.sql -o json

  # Re-run when queries or schema change
  sqltyper infer --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(cmd, args, watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run when query or schema files change")

	return cmd
}

func runInfer(cmd *cobra.Command, args []string, watch bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	paths, err := queryPaths(cmdCtx.Cfg, args)
	if err != nil {
		return err
	}

	if !watch {
		return cmdCtx.infer(cmd.Context(), "infer", paths, true)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watched := append([]string{}, paths...)
	watched = append(watched, cmdCtx.Cfg.Schema...)
	if cmdCtx.Cfg.Migrations != "" {
		watched = append(watched, cmdCtx.Cfg.Migrations)
	}

	cmdCtx.Renderer.Printf("Watching %s\n", strings.Join(watched, ", "))
	return cmdCtx.Engine.Watch(ctx, watched, func(ctx context.Context) {
		if err := cmdCtx.infer(ctx, "infer", paths, true); err != nil {
			cmdCtx.Renderer.Error(err.Error())
		}
	})
}

// infer loads the schema, runs inference over paths and renders the
// report. Signatures are left out of the output when withSignatures is
// false.
func (c *CommandContext) infer(ctx context.Context, command string, paths []string, withSignatures bool) error {
	g, err := c.Engine.LoadSchema(ctx)
	if err != nil {
		if d := engine.Diagnose("", "", err); d.File != "" {
			d.File = c.displayPath(d.File)
			c.Renderer.Diagnostic(d)
		}
		return fmt.Errorf("failed to load schema: %w", err)
	}

	report, err := c.Engine.Infer(ctx, g, command, paths)
	if err != nil {
		return err
	}

	if err := c.renderReport(report, withSignatures); err != nil {
		return err
	}

	if failures := len(report.Diagnostics()); failures > 0 {
		return fmt.Errorf("%d statement(s) failed type checking", failures)
	}
	return nil
}

func (c *CommandContext) renderReport(report *engine.Report, withSignatures bool) error {
	r := c.Renderer
	out := output.NewInferOutput(report, withSignatures)

	if ok, err := r.Structured(out); ok {
		return err
	}

	if withSignatures && len(out.Signatures) > 0 {
		rows := make([]table.Row, 0, len(out.Signatures))
		for _, sig := range out.Signatures {
			rows = append(rows, table.Row{
				fmt.Sprintf("%s:%d", c.displayPath(sig.File), sig.Line),
				sig.Name,
				sig.Kind,
				sig.Text,
			})
		}
		r.Table(table.Row{"Location", "Name", "Kind", "Signature"}, rows)
	}

	for _, d := range out.Diagnostics {
		d.File = c.displayPath(d.File)
		r.Diagnostic(d)
	}

	summary := fmt.Sprintf("%d file(s), %d signature(s)", out.Summary.Files, out.Summary.Signatures)
	if out.Summary.Cached > 0 {
		summary += fmt.Sprintf(", %d cached", out.Summary.Cached)
	}
	if out.Summary.Failures > 0 {
		r.Error(fmt.Sprintf("%s, %d failure(s)", summary, out.Summary.Failures))
	} else {
		r.Success(summary)
	}
	return nil
}
