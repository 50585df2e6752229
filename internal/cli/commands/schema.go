package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqltyper/internal/cli/output"
	"github.com/leapstack-labs/sqltyper/internal/engine"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the schema queries are checked against",
		Long: `Build the schema from the configured database, schema files and
migrations, and print its tables, views, domains and enums.`,
		Example: `  # Show the schema
  sqltyper schema

  # Show the schema of a live database as YAML
  sqltyper schema --database-url postgres://localhost/app -o yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd)
		},
	}

	return cmd
}

func runSchema(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	g, err := cmdCtx.Engine.LoadSchema(cmd.Context())
	if err != nil {
		if d := engine.Diagnose("", "", err); d.File != "" {
			d.File = cmdCtx.displayPath(d.File)
			cmdCtx.Renderer.Diagnostic(d)
		}
		return fmt.Errorf("failed to load schema: %w", err)
	}

	r := cmdCtx.Renderer
	if ok, err := r.Structured(output.NewSchemaOutput(g)); ok {
		return err
	}
	schemaText(r, g)
	return nil
}

func schemaText(r *output.Renderer, g *schema.Global) {
	for _, t := range g.Tables {
		r.Header("table " + t.Name)
		r.Table(table.Row{"Column", "Type", "Nullable", "Default"}, columnRows(t.Columns, t.Defaults))
		r.Println()
	}
	for _, v := range g.Views {
		r.Header("view " + v.Name)
		r.Table(table.Row{"Column", "Type", "Nullable", "Default"}, columnRows(v.Columns, nil))
		r.Println()
	}
	if len(g.Domains) > 0 {
		r.Header("Domains")
		rows := make([]table.Row, 0, len(g.Domains))
		for _, d := range g.Domains {
			rows = append(rows, table.Row{d.Name, d.Base.String()})
		}
		r.Table(table.Row{"Name", "Base"}, rows)
		r.Println()
	}
	if len(g.Enums) > 0 {
		r.Header("Enums")
		rows := make([]table.Row, 0, len(g.Enums))
		for _, e := range g.Enums {
			rows = append(rows, table.Row{e.Name, strings.Join(e.Labels, ", ")})
		}
		r.Table(table.Row{"Name", "Labels"}, rows)
		r.Println()
	}
	r.Success(fmt.Sprintf("%d table(s), %d view(s), %d domain(s), %d enum(s)",
		len(g.Tables), len(g.Views), len(g.Domains), len(g.Enums)))
}

func columnRows(rec *types.Record, defaults []string) []table.Row {
	rows := make([]table.Row, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		inner, nullable := types.Unwrap(f.Type)
		def := ""
		if slices.Contains(defaults, f.Name) {
			def = "yes"
		}
		rows = append(rows, table.Row{f.Name, inner.String(), yesNo(nullable), def})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
