// Package loader discovers SQL files on disk, orders goose migrations and
// folds schema files into a schema snapshot.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/parser"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
)

// File is a SQL source file.
type File struct {
	Path    string
	Content string
}

// FileError is a failure inside a file. Err usually carries a position
// (*parser.ParseError, *schema.Error or *elab.Error).
type FileError struct {
	Path    string
	Content string
	Err     error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Loader reads schema and query files.
type Loader struct {
	logger *slog.Logger
}

// New creates a Loader. A nil logger discards output.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{logger: logger}
}

// Scan reads the .sql files named by paths. Directories are walked
// recursively in lexical order; hidden files and directories are skipped.
func (l *Loader) Scan(paths []string) ([]File, error) {
	var files []File
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
		if !info.IsDir() {
			f, err := readFile(root)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			hidden := path != root && strings.HasPrefix(d.Name(), ".")
			if d.IsDir() {
				if hidden {
					return filepath.SkipDir
				}
				return nil
			}
			if hidden || !strings.HasSuffix(d.Name(), ".sql") {
				return nil
			}
			f, err := readFile(path)
			if err != nil {
				return err
			}
			files = append(files, f)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory: %w", err)
		}
	}
	l.logger.Debug("scanned sql files", slog.Int("files", len(files)))
	return files, nil
}

// Migrations reads the goose migrations in dir in version order and
// keeps only their Up sections. An empty dir yields no files.
func (l *Loader) Migrations(dir string) ([]File, error) {
	if dir == "" {
		return nil, nil
	}
	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if errors.Is(err, goose.ErrNoMigrationFiles) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect migrations in %s: %w", dir, err)
	}

	files := make([]File, 0, len(migrations))
	for _, m := range migrations {
		if filepath.Ext(m.Source) != ".sql" {
			continue
		}
		f, err := readFile(m.Source)
		if err != nil {
			return nil, err
		}
		f.Content = UpSection(f.Content)
		files = append(files, f)
		l.logger.Debug("migration", slog.Int64("version", m.Version), slog.String("path", m.Source))
	}
	return files, nil
}

// Schema folds the DDL of files into base, one file at a time.
func (l *Loader) Schema(base *schema.Global, files []File) (*schema.Global, error) {
	g := base
	if g == nil {
		g = schema.Empty()
	}
	for _, f := range files {
		stmts, err := Parse(f)
		if err != nil {
			return nil, err
		}
		next, err := schema.BuildGlobal(g, stmts)
		if err != nil {
			return nil, &FileError{Path: f.Path, Content: f.Content, Err: err}
		}
		g = next
	}
	l.logger.Info("schema loaded",
		slog.Int("files", len(files)),
		slog.Int("tables", len(g.Tables)),
		slog.Int("domains", len(g.Domains)),
		slog.Int("enums", len(g.Enums)))
	return g, nil
}

// Parse parses every statement of f.
func Parse(f File) ([]ast.Stmt, error) {
	stmts, err := parser.Parse(f.Content)
	if err != nil {
		return nil, &FileError{Path: f.Path, Content: f.Content, Err: err}
	}
	return stmts, nil
}

func readFile(path string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return File{Path: path, Content: string(content)}, nil
}
