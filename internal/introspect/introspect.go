// Package introspect loads a schema snapshot from a live PostgreSQL
// database.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

const systemSchemas = `n.nspname NOT IN ('pg_catalog', 'information_schema') AND n.nspname NOT LIKE 'pg\_toast%'`

const enumsQuery = `
	SELECT n.nspname, t.typname, e.enumlabel
	FROM pg_catalog.pg_type t
	JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid
	JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
	WHERE ` + systemSchemas + `
	ORDER BY n.nspname, t.typname, e.enumsortorder`

const domainsQuery = `
	SELECT n.nspname, t.typname, pg_catalog.format_type(t.typbasetype, NULL)
	FROM pg_catalog.pg_type t
	JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
	WHERE t.typtype = 'd' AND ` + systemSchemas + `
	ORDER BY n.nspname, t.typname`

// Identity columns count as having a default.
const columnsQuery = `
	SELECT n.nspname, c.relname, c.relkind, a.attname,
	       pg_catalog.format_type(a.atttypid, NULL),
	       a.attnotnull,
	       a.atthasdef OR a.attidentity <> ''
	FROM pg_catalog.pg_attribute a
	JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	WHERE c.relkind IN ('r', 'p', 'v', 'm') AND a.attnum > 0 AND NOT a.attisdropped
	  AND ` + systemSchemas + `
	ORDER BY n.nspname, c.relname, a.attnum`

// Open connects to PostgreSQL through the pgx database/sql driver.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// Introspector reads tables, views, domains and enums from a database.
type Introspector struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an Introspector over db. A nil logger discards output.
func New(db *sql.DB, logger *slog.Logger) *Introspector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Introspector{db: db, logger: logger}
}

// Load builds a schema snapshot. Objects in the public schema keep their
// bare names; objects in other schemas are named "schema.name".
func (i *Introspector) Load(ctx context.Context) (*schema.Global, error) {
	g := schema.Empty()
	var err error
	if g.Enums, err = i.enums(ctx); err != nil {
		return nil, err
	}
	if err := i.domains(ctx, g); err != nil {
		return nil, err
	}
	if err := i.relations(ctx, g); err != nil {
		return nil, err
	}
	i.logger.Info("introspected schema",
		slog.Int("tables", len(g.Tables)),
		slog.Int("views", len(g.Views)),
		slog.Int("domains", len(g.Domains)),
		slog.Int("enums", len(g.Enums)))
	return g, nil
}

func (i *Introspector) enums(ctx context.Context) ([]*types.Enum, error) {
	rows, err := i.db.QueryContext(ctx, enumsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query enums: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var enums []*types.Enum
	for rows.Next() {
		var nsp, name, label string
		if err := rows.Scan(&nsp, &name, &label); err != nil {
			return nil, fmt.Errorf("failed to scan enum: %w", err)
		}
		full := objectName(nsp, name)
		if n := len(enums); n == 0 || enums[n-1].Name != full {
			enums = append(enums, &types.Enum{Name: full})
		}
		last := enums[len(enums)-1]
		last.Labels = append(last.Labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enums: %w", err)
	}
	return enums, nil
}

// domains are added to g as they are read, so a domain over an earlier
// domain resolves to its base scalar.
func (i *Introspector) domains(ctx context.Context, g *schema.Global) error {
	rows, err := i.db.QueryContext(ctx, domainsQuery)
	if err != nil {
		return fmt.Errorf("failed to query domains: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var nsp, name, base string
		if err := rows.Scan(&nsp, &name, &base); err != nil {
			return fmt.Errorf("failed to scan domain: %w", err)
		}
		d := &types.Domain{Name: objectName(nsp, name)}
		if s, ok := types.BaseScalar(resolveType(g, base)); ok {
			d.Base = s
		} else {
			d.Base = types.NewScalar(unquote(base))
		}
		g.Domains = append(g.Domains, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating domains: %w", err)
	}
	return nil
}

func (i *Introspector) relations(ctx context.Context, g *schema.Global) error {
	rows, err := i.db.QueryContext(ctx, columnsQuery)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		table *schema.Table
		view  *schema.View
		last  string
	)
	for rows.Next() {
		var (
			nsp, rel, kind, column, typ string
			notNull, hasDefault         bool
		)
		if err := rows.Scan(&nsp, &rel, &kind, &column, &typ, &notNull, &hasDefault); err != nil {
			return fmt.Errorf("failed to scan column: %w", err)
		}

		name := objectName(nsp, rel)
		isView := kind == "v" || kind == "m"
		if name != last {
			last = name
			table, view = nil, nil
			if isView {
				view = &schema.View{Name: name, Columns: types.NewRecord()}
				g.Views = append(g.Views, view)
			} else {
				table = &schema.Table{Name: name, Columns: types.NewRecord()}
				g.Tables = append(g.Tables, table)
			}
		}

		field := types.Field{Name: column, Type: types.NullableIf(resolveType(g, typ), !notNull)}
		if view != nil {
			view.Columns.Fields = append(view.Columns.Fields, field)
			continue
		}
		table.Columns.Fields = append(table.Columns.Fields, field)
		if hasDefault {
			table.Defaults = append(table.Defaults, column)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating columns: %w", err)
	}
	return nil
}

// resolveType maps a format_type result onto the snapshot's domains and
// enums, falling back to a scalar.
func resolveType(g *schema.Global, name string) types.Type {
	if elem, ok := strings.CutSuffix(name, "[]"); ok {
		return types.NewArray(resolveType(g, elem))
	}
	name = unquote(name)
	if d, ok := g.Domain(name); ok {
		return d
	}
	if e, ok := g.Enum(name); ok {
		return e
	}
	return types.NewScalar(name)
}

func objectName(nsp, name string) string {
	if nsp == "public" {
		return name
	}
	return nsp + "." + name
}

// unquote strips identifier quotes from each part of a dotted name.
func unquote(name string) string {
	if !strings.Contains(name, `"`) {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.Trim(p, `"`), `""`, `"`)
	}
	return strings.Join(parts, ".")
}
