package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqltyper/internal/loader"
	"github.com/leapstack-labs/sqltyper/internal/state"
	"github.com/leapstack-labs/sqltyper/pkg/ast"
	"github.com/leapstack-labs/sqltyper/pkg/elab"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// cacheVersion changes whenever the cached payload or inference rules
// change incompatibly.
const cacheVersion = "1"

// Infer elaborates every function and annotated query in the files named
// by paths against g. Files are elaborated in parallel; g is shared and
// never modified. Failures inside files become diagnostics; the error is
// reserved for failures to read files or use the cache.
func (e *Engine) Infer(ctx context.Context, g *schema.Global, command string, paths []string) (*Report, error) {
	files, err := e.loader.Scan(paths)
	if err != nil {
		return nil, err
	}

	var runID string
	if e.store != nil {
		run, err := e.store.StartRun(ctx, command)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}

	schemaKey, err := fingerprint(g)
	if err != nil {
		return nil, err
	}

	report := &Report{Files: make([]FileResult, len(files))}
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Workers)
	for i, f := range files {
		eg.Go(func() error {
			res, err := e.inferFile(egctx, g, schemaKey, runID, f)
			if err != nil {
				return err
			}
			report.Files[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	failures := len(report.Diagnostics())
	if e.store != nil {
		if err := e.store.FinishRun(ctx, runID, len(files), failures); err != nil {
			return nil, err
		}
	}
	e.logger.Info("inference finished",
		slog.Int("files", len(files)),
		slog.Int("cached", report.Cached()),
		slog.Int("signatures", len(report.Signatures())),
		slog.Int("failures", failures))
	return report, nil
}

// cached is the payload stored per file.
type cached struct {
	Signatures  []Signature  `json:"signatures"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func (e *Engine) inferFile(ctx context.Context, g *schema.Global, schemaKey, runID string, f loader.File) (FileResult, error) {
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}
	res := FileResult{Path: f.Path}

	key := state.Key(cacheVersion, e.cfg.Catalog, strconv.Itoa(e.cfg.MaxDepth), schemaKey, f.Path, f.Content)
	if e.store != nil {
		payload, ok, err := e.store.GetSignatures(ctx, key)
		if err != nil {
			return res, err
		}
		var c cached
		if ok && json.Unmarshal(payload, &c) == nil {
			e.logger.Debug("cache hit", slog.String("file", f.Path))
			res.Signatures, res.Diagnostics, res.Cached = c.Signatures, c.Diagnostics, true
			return res, nil
		}
	}

	res.Signatures, res.Diagnostics = e.elaborate(g, f)

	if e.store != nil {
		payload, err := json.Marshal(cached{Signatures: res.Signatures, Diagnostics: res.Diagnostics})
		if err != nil {
			return res, fmt.Errorf("failed to encode signatures: %w", err)
		}
		if err := e.store.PutSignatures(ctx, key, f.Path, runID, payload); err != nil {
			return res, err
		}
	}
	return res, nil
}

// elaborate types the statements of one file. Statements are independent:
// a failing statement is reported and the rest are still elaborated.
func (e *Engine) elaborate(g *schema.Global, f loader.File) ([]Signature, []Diagnostic) {
	stmts, err := loader.Parse(f)
	if err != nil {
		return nil, []Diagnostic{Diagnose(f.Path, f.Content, err)}
	}

	el := elab.New(elab.Config{Global: g, Catalog: e.catalog, MaxDepth: e.cfg.MaxDepth, Logger: e.logger})
	var (
		sigs  []Signature
		diags []Diagnostic
	)
	for _, stmt := range stmts {
		var (
			sig  *elab.FunctionSignature
			kind string
			err  error
		)
		switch s := stmt.(type) {
		case *ast.CreateFunction:
			kind = KindFunction
			sig, err = el.CreateFunction(s)
		case *ast.SelectStmt, *ast.InsertStmt, *ast.UpdateStmt, *ast.DeleteStmt:
			if _, _, ok := elab.Annotation(stmt); !ok {
				e.logger.Debug("skipping unannotated query", slog.String("file", f.Path),
					slog.Int("line", stmt.GetSpan().Start.Line))
				continue
			}
			kind = KindQuery
			sig, err = el.ElabQuery(s)
		default:
			continue
		}
		if err != nil {
			diags = append(diags, Diagnose(f.Path, f.Content, err))
			continue
		}
		sigs = append(sigs, newSignature(sig, kind, f.Path, stmt.GetSpan().Start.Line))
	}
	return sigs, diags
}

// fingerprint hashes the parts of g that can change a signature.
func fingerprint(g *schema.Global) (string, error) {
	type relation struct {
		Name     string           `json:"name"`
		Columns  types.Descriptor `json:"columns"`
		Defaults []string         `json:"defaults,omitempty"`
	}
	var snapshot struct {
		Tables  []relation         `json:"tables"`
		Views   []relation         `json:"views"`
		Domains []types.Descriptor `json:"domains"`
		Enums   []types.Descriptor `json:"enums"`
	}
	for _, t := range g.Tables {
		snapshot.Tables = append(snapshot.Tables, relation{t.Name, types.Describe(t.Columns), t.Defaults})
	}
	for _, v := range g.Views {
		snapshot.Views = append(snapshot.Views, relation{Name: v.Name, Columns: types.Describe(v.Columns)})
	}
	for _, d := range g.Domains {
		snapshot.Domains = append(snapshot.Domains, types.Describe(d))
	}
	for _, en := range g.Enums {
		snapshot.Enums = append(snapshot.Enums, types.Describe(en))
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint schema: %w", err)
	}
	return state.Key(string(data)), nil
}
