package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqltyper/internal/cli/output"
	"github.com/leapstack-labs/sqltyper/internal/config"
	"github.com/leapstack-labs/sqltyper/internal/testutil"
)

func TestNewInferCommand(t *testing.T) {
	cmd := NewInferCommand()

	assert.Equal(t, "infer [paths...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("watch"), "flag watch should exist")
	assert.Equal(t, "w", cmd.Flags().Lookup("watch").Shorthand)
}

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()

	assert.Equal(t, "check [paths...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestNewSchemaCommand(t *testing.T) {
	cmd := NewSchemaCommand()

	assert.Equal(t, "schema", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

// execute runs cmd with the project config at dir, as the root command
// would, and returns stdout, stderr and the error.
func execute(t *testing.T, dir string, cmd *cobra.Command, mutate func(*config.Config), args ...string) (string, string, error) {
	t.Helper()

	cfg, err := config.LoadFrom(dir, "", nil)
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	logger, _ := testutil.NewCaptureLogger()
	ctx := config.WithLogger(config.WithConfig(context.Background(), cfg), logger)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err = cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestInferCommand(t *testing.T) {
	dir := testutil.SetupProject(t)

	stdout, _, err := execute(t, dir, NewInferCommand(), nil)
	require.NoError(t, err)

	assert.Contains(t, stdout, "user_emails() -> setof email")
	assert.Contains(t, stdout, "GetUser")
	assert.Contains(t, stdout, "ListTitles")
	assert.Contains(t, stdout, filepath.Join("queries", "queries.sql")+":10")
	assert.Contains(t, stdout, "1 file(s), 4 signature(s)")
}

func TestInferCommandJSON(t *testing.T) {
	dir := testutil.SetupProject(t)

	stdout, _, err := execute(t, dir, NewInferCommand(), func(c *config.Config) {
		c.Output = config.OutputJSON
	})
	require.NoError(t, err)

	var out output.InferOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 1, out.Summary.Files)
	assert.Equal(t, 4, out.Summary.Signatures)
	assert.Zero(t, out.Summary.Failures)
	require.Len(t, out.Signatures, 4)
	assert.Equal(t, "user_emails", out.Signatures[0].Name)
	assert.Empty(t, out.Diagnostics)
}

func TestInferCommandExplicitPaths(t *testing.T) {
	dir := testutil.SetupProject(t)
	testutil.WriteFiles(t, dir, map[string]string{
		"other/one.sql": "-- name: One :one\nSELECT 1 AS one;\n",
	})

	stdout, _, err := execute(t, dir, NewInferCommand(), nil, filepath.Join(dir, "other"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "One")
	assert.NotContains(t, stdout, "GetUser")
	assert.Contains(t, stdout, "1 file(s), 1 signature(s)")
}

func TestInferCommandNoPaths(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"sqltyper.yaml": "schema: []\n",
	})

	_, _, err := execute(t, dir, NewInferCommand(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no query paths")
}

func TestCheckCommand(t *testing.T) {
	dir := testutil.SetupProject(t)
	testutil.WriteFiles(t, dir, map[string]string{
		"queries/bad.sql": "-- name: Bad :one\nSELECT nope FROM users;\n",
	})

	stdout, stderr, err := execute(t, dir, NewCheckCommand(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 statement(s) failed")

	assert.NotContains(t, stdout, "user_emails() -> setof email")
	assert.Contains(t, stderr, filepath.Join("queries", "bad.sql")+":2:8")
	assert.Contains(t, stderr, "SELECT nope FROM users;")
	assert.Contains(t, stderr, "^^^^")
	assert.Contains(t, stderr, "1 failure(s)")
	testutil.AssertNoANSI(t, stdout+stderr)
}

func TestCheckCommandClean(t *testing.T) {
	dir := testutil.SetupProject(t)

	stdout, stderr, err := execute(t, dir, NewCheckCommand(), nil)
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "4 signature(s)")
}

func TestSchemaCommand(t *testing.T) {
	dir := testutil.SetupProject(t)

	stdout, _, err := execute(t, dir, NewSchemaCommand(), nil)
	require.NoError(t, err)

	assert.Contains(t, stdout, "table users")
	assert.Contains(t, stdout, "table posts")
	assert.Contains(t, stdout, "published_at")
	assert.Contains(t, stdout, "active, disabled")
	assert.Contains(t, stdout, "2 table(s), 0 view(s), 1 domain(s), 1 enum(s)")
}

func TestSchemaCommandYAML(t *testing.T) {
	dir := testutil.SetupProject(t)

	stdout, _, err := execute(t, dir, NewSchemaCommand(), func(c *config.Config) {
		c.Output = config.OutputYAML
	})
	require.NoError(t, err)

	assert.Contains(t, stdout, "tables:")
	assert.Contains(t, stdout, "name: users")
	assert.Contains(t, stdout, "- status")
	assert.Contains(t, stdout, "enums:")
}

func TestSchemaCommandError(t *testing.T) {
	dir := testutil.SetupProject(t)
	testutil.WriteFiles(t, dir, map[string]string{
		"db/schema.sql": "CREATE TABLE t (id nosuch.thing);\n",
	})

	_, stderr, err := execute(t, dir, NewSchemaCommand(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schema")
	assert.Contains(t, stderr, filepath.Join("db", "schema.sql")+":1:")
}

func TestCommandWithoutConfig(t *testing.T) {
	cmd := NewInferCommand()
	cmd.SetArgs(nil)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration not loaded")
}
