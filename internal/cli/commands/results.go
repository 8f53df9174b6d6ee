package commands

import (
	"fmt"

	"github.com/leapstack-labs/zeus/internal/cli/output"
	"github.com/spf13/cobra"
)

// ResultsOptions holds options for the results command.
type ResultsOptions struct {
	Page int
	Size int
	Wait bool
}

// NewResultsCommand creates the results command.
func NewResultsCommand() *cobra.Command {
	opts := &ResultsOptions{}

	cmd := &cobra.Command{
		Use:   "results <execution-id>",
		Short: "Show a page of results for an execution",
		Long: `Fetch one page of results for an execution.

Pages are 1-based. While the execution is still queued or running only its
status is shown, unless --wait is given.`,
		Example: `  # First page
  zeus results 6f1c2f6e-9c1b-4a3c-8f57-0d2b6f0e4a11

  # Third page of 100 rows as CSV
  zeus results 6f1c2f6e --page 3 --size 100 -o csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page number (1-based)")
	cmd.Flags().IntVar(&opts.Size, "size", 0, "Page size (default: page_size from config)")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "Wait for the execution to finish")

	return cmd
}

func runResults(cmd *cobra.Command, execID string, opts *ResultsOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if opts.Page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", opts.Page)
	}
	size := cmdCtx.Cfg.PageSize
	if opts.Size > 0 {
		size = opts.Size
	}

	if opts.Wait {
		res, elapsed, err := waitForResults(cmd.Context(), cmdCtx, execID, opts.Page, size)
		if err != nil {
			return err
		}
		return renderExecution(cmdCtx, execID, res, elapsed)
	}

	res, err := cmdCtx.Client.Results(cmd.Context(), execID, opts.Page, size)
	if err != nil {
		return fmt.Errorf("failed to fetch results: %w", err)
	}

	r := cmdCtx.Renderer
	if !res.Status.IsTerminal() {
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(res)
		}
		r.StatusLine(execID, string(res.Status), "")
		return nil
	}
	return renderExecution(cmdCtx, execID, res, 0)
}
