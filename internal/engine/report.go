package engine

import (
	"errors"

	"github.com/leapstack-labs/sqltyper/internal/loader"
	"github.com/leapstack-labs/sqltyper/pkg/elab"
	"github.com/leapstack-labs/sqltyper/pkg/parser"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/token"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// Signature kinds.
const (
	KindFunction = "function"
	KindQuery    = "query"
)

// Input is a serializable function input.
type Input struct {
	Name       string           `json:"name,omitempty" yaml:"name,omitempty"`
	Type       types.Descriptor `json:"type" yaml:"type"`
	HasDefault bool             `json:"has_default,omitempty" yaml:"has_default,omitempty"`
}

// Signature is a serializable elab.FunctionSignature with its origin.
type Signature struct {
	Name         string           `json:"name" yaml:"name"`
	Kind         string           `json:"kind" yaml:"kind"`
	File         string           `json:"file" yaml:"file"`
	Line         int              `json:"line" yaml:"line"`
	Inputs       []Input          `json:"inputs" yaml:"inputs"`
	Returns      types.Descriptor `json:"returns" yaml:"returns"`
	MultipleRows bool             `json:"multiple_rows" yaml:"multiple_rows"`
	// Text is the signature in one line, e.g. "ids() -> setof integer".
	Text string `json:"signature" yaml:"signature"`
}

func newSignature(sig *elab.FunctionSignature, kind, file string, line int) Signature {
	s := Signature{
		Name:         sig.Name,
		Kind:         kind,
		File:         file,
		Line:         line,
		Inputs:       make([]Input, len(sig.Inputs)),
		Returns:      types.Describe(sig.Returns),
		MultipleRows: sig.MultipleRows,
		Text:         sig.String(),
	}
	for i, in := range sig.Inputs {
		s.Inputs[i] = Input{Name: in.Name, Type: types.Describe(in.Type), HasDefault: in.HasDefault}
	}
	return s
}

// Diagnostic is a failure located in a file.
type Diagnostic struct {
	File    string `json:"file" yaml:"file"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Excerpt string `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
}

// Diagnose locates err in the file at path with the given content.
// Errors without a position are reported at line 0.
func Diagnose(path, content string, err error) Diagnostic {
	d := Diagnostic{File: path, Kind: "error", Message: err.Error()}

	var span token.Span
	var (
		eerr *elab.Error
		serr *schema.Error
		perr *parser.ParseError
		ferr *loader.FileError
	)
	switch {
	case errors.As(err, &eerr):
		d.Kind, d.Message, span = eerr.Kind.String(), eerr.Message, eerr.Span
	case errors.As(err, &serr):
		d.Kind, d.Message, span = serr.Kind.Error(), serr.Message, serr.Span
	case errors.As(err, &perr):
		d.Kind, d.Message = "syntax error", perr.Message
		span = token.Span{Start: perr.Pos, End: perr.Pos}
	}
	if errors.As(err, &ferr) {
		d.File, content = ferr.Path, ferr.Content
		if !span.IsValid() {
			d.Message = ferr.Err.Error()
		}
	}
	if span.IsValid() {
		d.Line, d.Column = span.Start.Line, span.Start.Column
		d.Excerpt = elab.Excerpt(content, span)
	}
	return d
}

// FileResult is the outcome of one query file.
type FileResult struct {
	Path        string
	Signatures  []Signature
	Diagnostics []Diagnostic
	Cached      bool
}

// Report collects the results of an inference run.
type Report struct {
	Files []FileResult
}

// Signatures returns every signature in file order.
func (r *Report) Signatures() []Signature {
	var out []Signature
	for _, f := range r.Files {
		out = append(out, f.Signatures...)
	}
	return out
}

// Diagnostics returns every diagnostic in file order.
func (r *Report) Diagnostics() []Diagnostic {
	var out []Diagnostic
	for _, f := range r.Files {
		out = append(out, f.Diagnostics...)
	}
	return out
}

// Failed reports whether any file produced a diagnostic.
func (r *Report) Failed() bool {
	for _, f := range r.Files {
		if len(f.Diagnostics) > 0 {
			return true
		}
	}
	return false
}

// Cached returns the number of files served from the cache.
func (r *Report) Cached() int {
	n := 0
	for _, f := range r.Files {
		if f.Cached {
			n++
		}
	}
	return n
}
