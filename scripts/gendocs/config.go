package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqltyper/internal/config"
	"github.com/leapstack-labs/sqltyper/pkg/elab"
)

// ConfigField describes one sqltyper.yaml key.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
}

func (f ConfigField) envName() string {
	return config.EnvPrefix + strings.ToUpper(f.Name)
}

// configFields mirrors the koanf keys of internal/config.Config.
func configFields() []ConfigField {
	return []ConfigField{
		{Name: "schema", Type: "list", Description: "DDL files or directories folded into the schema in order"},
		{Name: "migrations", Type: "string", Description: "goose migrations directory applied after the schema files"},
		{Name: "queries", Type: "list", Description: "Files or directories holding functions and annotated queries"},
		{Name: "database_url", Type: "string", Description: "PostgreSQL URL introspected before the schema files; $VARS are expanded"},
		{Name: "catalog", Type: "string", Default: config.DefaultCatalog, Description: "Built-in type, operator and function catalog"},
		{Name: "max_depth", Type: "int", Default: fmt.Sprint(elab.DefaultMaxDepth), Description: "Maximum expression nesting depth"},
		{Name: "workers", Type: "int", Default: "GOMAXPROCS", Description: "Number of files inferred concurrently"},
		{Name: "output", Type: "string", Default: config.OutputAuto, Description: "Output format: auto, text, json or yaml"},
		{Name: "cache", Type: "string", Description: "Signature cache database; empty disables caching"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Log debug output to stderr"},
	}
}

// generateConfigDocs writes configuration.md.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "sqltyper.yaml reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("sqltyper reads sqltyper.yaml (or sqltyper.yml) from the working directory or the nearest parent. Relative paths in the file are resolved against the file's directory.")

	w.Header(2, "Keys")
	var rows [][]string
	for _, f := range configFields() {
		def := f.Default
		if def != "" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, def, InlineCode(f.envName()), f.Description})
	}
	w.Table([]string{"Key", "Type", "Default", "Environment", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `schema:
  - db/schema.sql
migrations: db/migrations
queries:
  - queries
cache: .sqltyper/cache.db`)

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}
