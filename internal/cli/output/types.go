package output

import (
	"github.com/leapstack-labs/sqltyper/internal/engine"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// InferSummary counts the results of an inference run.
type InferSummary struct {
	Files      int `json:"files" yaml:"files"`
	Cached     int `json:"cached" yaml:"cached"`
	Signatures int `json:"signatures" yaml:"signatures"`
	Failures   int `json:"failures" yaml:"failures"`
}

// InferOutput is the structured form of infer and check results.
type InferOutput struct {
	Summary     InferSummary        `json:"summary" yaml:"summary"`
	Signatures  []engine.Signature  `json:"signatures,omitempty" yaml:"signatures,omitempty"`
	Diagnostics []engine.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// NewInferOutput summarizes report. Signatures are left out when
// withSignatures is false.
func NewInferOutput(report *engine.Report, withSignatures bool) InferOutput {
	out := InferOutput{
		Summary: InferSummary{
			Files:    len(report.Files),
			Cached:   report.Cached(),
			Failures: len(report.Diagnostics()),
		},
		Diagnostics: report.Diagnostics(),
	}
	sigs := report.Signatures()
	out.Summary.Signatures = len(sigs)
	if withSignatures {
		out.Signatures = sigs
	}
	return out
}

// RelationInfo describes a table or view.
type RelationInfo struct {
	Name     string                  `json:"name" yaml:"name"`
	Columns  []types.FieldDescriptor `json:"columns" yaml:"columns"`
	Defaults []string                `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// SchemaOutput is the structured form of a schema snapshot.
type SchemaOutput struct {
	Tables  []RelationInfo     `json:"tables" yaml:"tables"`
	Views   []RelationInfo     `json:"views,omitempty" yaml:"views,omitempty"`
	Domains []types.Descriptor `json:"domains,omitempty" yaml:"domains,omitempty"`
	Enums   []types.Descriptor `json:"enums,omitempty" yaml:"enums,omitempty"`
}

// NewSchemaOutput describes every object in g.
func NewSchemaOutput(g *schema.Global) SchemaOutput {
	out := SchemaOutput{Tables: []RelationInfo{}}
	for _, t := range g.Tables {
		out.Tables = append(out.Tables, RelationInfo{
			Name:     t.Name,
			Columns:  types.Describe(t.Columns).Fields,
			Defaults: t.Defaults,
		})
	}
	for _, v := range g.Views {
		out.Views = append(out.Views, RelationInfo{
			Name:    v.Name,
			Columns: types.Describe(v.Columns).Fields,
		})
	}
	for _, d := range g.Domains {
		out.Domains = append(out.Domains, types.Describe(d))
	}
	for _, e := range g.Enums {
		out.Enums = append(out.Enums, types.Describe(e))
	}
	return out
}
