package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/catalog"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

var funcKinds = map[catalog.FuncKind]string{
	catalog.FuncScalar:    "scalar",
	catalog.FuncAggregate: "aggregate",
	catalog.FuncWindow:    "window",
}

var nullPolicies = map[catalog.NullPolicy]string{
	catalog.NullStrict: "strict",
	catalog.NullAlways: "always",
	catalog.NullNever:  "never",
	catalog.NullIfAll:  "if all",
}

// generateCatalogDocs writes one page per registered catalog.
func generateCatalogDocs(outDir string) error {
	log.Printf("Generating catalog docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, name := range catalog.List() {
		c, err := catalog.Lookup(name)
		if err != nil {
			return err
		}
		if err := generateCatalogPage(c, outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", name, err)
		}
		log.Printf("  Generated %s.md", name)
	}
	return nil
}

func generateCatalogPage(c *catalog.Catalog, outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter(c.Name+" catalog", "Built-in types, operators and functions of the "+c.Name+" catalog")
	w.GeneratedMarker()

	w.Header(1, c.Name+" catalog")

	w.Header(2, "Types")
	var scalars []string
	for _, s := range c.Scalars() {
		scalars = append(scalars, InlineCode(s))
	}
	w.Paragraph(strings.Join(scalars, ", "))

	w.Header(2, "Operators")
	var opRows [][]string
	for _, name := range c.OperatorNames() {
		for _, prefix := range []bool{true, false} {
			for _, op := range c.Operators(name, prefix) {
				left := ""
				if op.Left != nil {
					left = typeName(op.Left)
				}
				opRows = append(opRows, []string{
					InlineCode(op.Name), left, typeName(op.Right), typeName(op.Result), nullPolicies[op.Null],
				})
			}
		}
	}
	w.Table([]string{"Operator", "Left", "Right", "Result", "Nulls"}, opRows)

	w.Header(2, "Functions")
	var fnRows [][]string
	for _, name := range c.FunctionNames() {
		for _, f := range c.Functions(name) {
			fnRows = append(fnRows, []string{
				InlineCode(functionSignature(f)), typeName(f.Result), funcKinds[f.Kind], nullPolicies[f.Null],
			})
		}
	}
	w.Table([]string{"Function", "Result", "Kind", "Nulls"}, fnRows)

	filename := filepath.Join(outDir, c.Name+".md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

func functionSignature(f *catalog.Function) string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = typeName(a)
	}
	if f.Variadic && len(args) > 0 {
		args[len(args)-1] = "VARIADIC " + args[len(args)-1]
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

func typeName(t types.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}
