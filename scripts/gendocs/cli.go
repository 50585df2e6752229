package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sqltyper/internal/cli"
	"github.com/leapstack-labs/sqltyper/internal/config"
)

// generateCLIDocs writes index.md plus one page per documented command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := map[string]*MarkdownWriter{"index": cliIndex(root)}
	for _, cmd := range documented(root) {
		pages[cmd.Name()] = commandPage(cmd)
	}
	for name, w := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name+".md"), w.Bytes(), 0600); err != nil {
			return fmt.Errorf("failed to write %s.md: %w", name, err)
		}
		log.Printf("  Generated %s.md", name)
	}
	return nil
}

// documented lists the subcommands worth a page.
func documented(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || strings.HasPrefix(sub.Name(), "__") {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func cliIndex(root *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for sqltyper")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("sqltyper infers the signatures of SQL functions and annotated queries, type checks them in CI, and shows the schema they are checked against.")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/sqltyper/cmd/sqltyper@latest\nsqltyper infer queries/")

	var rows [][]string
	for _, cmd := range documented(root) {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Header(2, "Commands")
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Table(flagHeaders, flagRows(root.PersistentFlags()))

	w.Header(2, "Environment Variables")
	w.Paragraph(fmt.Sprintf("Each configuration key has a %s variable; list values are comma separated. Flags override variables, and variables override sqltyper.yaml.", InlineCode(config.EnvPrefix+"*")))
	var env [][]string
	for _, f := range configFields() {
		env = append(env, []string{InlineCode(f.envName()), f.Description})
	}
	w.Table([]string{"Variable", "Description"}, env)

	w.Header(2, "Exit Codes")
	w.Paragraph(InlineCode("0") + " when every statement type checks, " + InlineCode("1") + " on a configuration, schema or type error. Diagnostics go to stderr.")
	return w
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	use := cmd.UseLine()
	if !strings.HasPrefix(use, "sqltyper") {
		use = "sqltyper " + use
	}
	w.Header(2, "Usage")
	w.CodeBlock("bash", use)

	if len(cmd.Aliases) > 0 {
		w.Header(2, "Aliases")
		w.Paragraph(InlineCode(strings.Join(cmd.Aliases, ", ")))
	}
	if subs := documented(cmd); len(subs) > 0 {
		var rows [][]string
		for _, sub := range subs {
			rows = append(rows, []string{InlineCode(sub.Name()), cleanDescription(sub.Short)})
		}
		w.Header(2, "Subcommands")
		w.Table([]string{"Subcommand", "Description"}, rows)
	}
	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		w.Table(flagHeaders, flagRows(cmd.LocalFlags()))
	}
	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		w.Table(flagHeaders, flagRows(cmd.InheritedFlags()))
	}
	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	return w
}

var flagHeaders = []string{"Option", "Short", "Default", "Description"}

func flagRows(flags *pflag.FlagSet) [][]string {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		var short, def string
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		if f.DefValue != "" && f.DefValue != "[]" {
			def = InlineCode(f.DefValue)
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, def, cleanDescription(f.Usage)})
	})
	return rows
}

// dedent strips the indentation shared by every non-blank line.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	indent, seen := "", false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !seen {
			indent, seen = lead, true
			continue
		}
		for !strings.HasPrefix(lead, indent) {
			indent = indent[:len(indent)-1]
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, indent)
	}
	return strings.Join(lines, "\n")
}
