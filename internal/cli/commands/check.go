package commands

import (
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Type check SQL functions and queries",
		Long: `Type check SQL files against the schema and report only diagnostics.

The command exits non-zero when any statement fails, which makes it
suitable for CI.`,
		Example: `  # Check the configured queries
  sqltyper check

  # Check a directory and report as JSON
  sqltyper check queries/ -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			paths, err := queryPaths(cmdCtx.Cfg, args)
			if err != nil {
				return err
			}
			return cmdCtx.infer(cmd.Context(), "check", paths, false)
		},
	}

	return cmd
}
