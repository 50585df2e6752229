package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/internal/engine"
	"github.com/leapstack-labs/sqltyper/internal/testutil"
	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

func newTestRenderer(mode OutputMode) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, false, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"JSON", ModeJSON},
		{"yaml", ModeYAML},
		{"markdown", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	r, _, _ := newTestRenderer(ModeAuto)
	assert.Equal(t, ModeText, r.EffectiveMode())
	assert.False(t, r.IsTTY())

	r, _, _ = newTestRenderer(ModeJSON)
	assert.Equal(t, ModeJSON, r.EffectiveMode())
}

func TestStructured(t *testing.T) {
	v := map[string]int{"signatures": 2}

	r, out, _ := newTestRenderer(ModeJSON)
	ok, err := r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"signatures": 2}`, out.String())

	r, out, _ = newTestRenderer(ModeYAML)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "signatures: 2\n", out.String())

	r, out, _ = newTestRenderer(ModeText)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out.String())
}

func TestPlainText(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText)

	r.Header("Users")
	r.Success("done")
	r.Error("failed")
	r.Table(table.Row{"Name", "Type"}, []table.Row{{"id", "integer"}})

	assert.Contains(t, out.String(), "Users\n")
	assert.Contains(t, out.String(), "✓ done")
	assert.Contains(t, out.String(), "integer")
	assert.Contains(t, errOut.String(), "✗ failed")
	testutil.AssertNoANSI(t, out.String()+errOut.String())
}

func TestDiagnostic(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText)

	r.Diagnostic(engine.Diagnostic{
		File:    "queries/bad.sql",
		Line:    2,
		Column:  8,
		Kind:    "unknown identifier",
		Message: `unknown column "nope"`,
		Excerpt: "SELECT nope FROM users;\n       ^^^^",
	})

	assert.Empty(t, out.String())
	assert.Equal(t,
		"queries/bad.sql:2:8: unknown identifier: unknown column \"nope\"\n"+
			"    SELECT nope FROM users;\n"+
			"           ^^^^\n",
		errOut.String())
}

func TestDiagnosticWithoutPosition(t *testing.T) {
	r, _, errOut := newTestRenderer(ModeText)

	r.Diagnostic(engine.Diagnostic{File: "x.sql", Kind: "error", Message: "boom"})
	assert.Equal(t, "x.sql: error: boom\n", errOut.String())
}

func TestNewInferOutput(t *testing.T) {
	report := &engine.Report{Files: []engine.FileResult{
		{Path: "a.sql", Signatures: []engine.Signature{{Name: "f"}, {Name: "g"}}, Cached: true},
		{Path: "b.sql", Diagnostics: []engine.Diagnostic{{File: "b.sql", Message: "bad"}}},
	}}

	out := NewInferOutput(report, true)
	assert.Equal(t, InferSummary{Files: 2, Cached: 1, Signatures: 2, Failures: 1}, out.Summary)
	assert.Len(t, out.Signatures, 2)
	assert.Len(t, out.Diagnostics, 1)

	out = NewInferOutput(report, false)
	assert.Equal(t, 2, out.Summary.Signatures)
	assert.Empty(t, out.Signatures)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"signatures":[`)
}

func TestNewSchemaOutput(t *testing.T) {
	status := &types.Enum{Name: "status", Labels: []string{"on", "off"}}
	g := &schema.Global{
		Tables: []*schema.Table{{
			Name: "users",
			Columns: types.NewRecord(
				types.Field{Name: "id", Type: types.Integer},
				types.Field{Name: "state", Type: types.MakeNullable(status)},
			),
			Defaults: []string{"id"},
		}},
		Enums: []*types.Enum{status},
	}

	out := NewSchemaOutput(g)
	require.Len(t, out.Tables, 1)
	users := out.Tables[0]
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, []string{"id"}, users.Defaults)
	require.Len(t, users.Columns, 2)
	assert.Equal(t, "integer", users.Columns[0].Type.Name)
	assert.False(t, users.Columns[0].Type.Nullable)
	assert.Equal(t, "enum", users.Columns[1].Type.Kind)
	assert.True(t, users.Columns[1].Type.Nullable)

	assert.Empty(t, out.Views)
	require.Len(t, out.Enums, 1)
	assert.Equal(t, []string{"on", "off"}, out.Enums[0].Labels)
}
