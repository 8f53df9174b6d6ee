package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command group.
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and delete the run history of saved queries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list <query-id>",
		Short:   "List the runs of a saved query, newest first",
		Example: `  zeus runs list 65a1f0 -o json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			runs, err := cmdCtx.Client.ListRuns(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch runs: %w", err)
			}
			return renderListing(cmdCtx.Renderer, listing{
				Columns: runColumns,
				Rows:    runRows(runs),
				Data:    runs,
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if err := cmdCtx.Client.DeleteRun(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete run: %w", err)
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("Deleted run %s", args[0]))
			return nil
		},
	})

	return cmd
}
