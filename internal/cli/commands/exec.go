package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/zeus/internal/cli/output"
	"github.com/leapstack-labs/zeus/internal/poller"
	"github.com/leapstack-labs/zeus/internal/results"
	"github.com/leapstack-labs/zeus/pkg/core"
	"github.com/leapstack-labs/zeus/pkg/params"
	"github.com/spf13/cobra"
)

// ExecOptions holds options for the exec command.
type ExecOptions struct {
	Params  []string
	QueryID string
	Input   string
	Wait    bool
	DryRun  bool
	Watch   bool
}

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	opts := &ExecOptions{}

	cmd := &cobra.Command{
		Use:   "exec [SQL]",
		Short: "Execute SQL against the query backend",
		Long: `Submit SQL for execution and, by default, wait for the first page of
results.

Placeholders written as {{name}} must each be given a value with --param.
When --query-id names a saved query the execution is recorded in its run
history; otherwise it runs ad hoc.

SQL is read from the arguments, from --input, or from stdin.`,
		Example: `  # Run ad hoc SQL and print the first page of results
  zeus exec "SELECT * FROM sales.orders LIMIT 10"

  # Fill placeholders
  zeus exec "SELECT * FROM t WHERE day = '{{day}}'" --param day=2024-01-01

  # Record a run of a saved query
  zeus exec --query-id 65a1f0 --input report.sql

  # Submit and return the execution id immediately
  zeus exec --wait=false "SELECT 1"

  # Re-run whenever the file changes
  zeus exec --input report.sql --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Placeholder value as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.QueryID, "query-id", "", "Record the execution as a run of this saved query")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().BoolVar(&opts.Wait, "wait", true, "Wait for the execution to finish and print results")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate parameters and print the substituted SQL without executing")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-run when the --input file changes")

	return cmd
}

func runExec(cmd *cobra.Command, args []string, opts *ExecOptions) error {
	if opts.Watch && opts.Input == "" {
		return fmt.Errorf("--watch requires --input")
	}

	values, err := params.Parse(opts.Params)
	if err != nil {
		return err
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	once := func(ctx context.Context) error {
		sql, err := readSQL(cmd, args, opts.Input)
		if err != nil {
			return err
		}
		return execOnce(ctx, cmdCtx, sql, values, opts)
	}

	if !opts.Watch {
		return once(cmd.Context())
	}

	if err := once(cmd.Context()); err != nil {
		cmdCtx.Renderer.Error(err.Error())
	}
	return watchFile(cmd.Context(), opts.Input, defaultDebounce, cmdCtx.Logger, func(ctx context.Context) {
		cmdCtx.Renderer.Println()
		cmdCtx.Renderer.Muted(fmt.Sprintf("%s changed, re-running", opts.Input))
		if err := once(ctx); err != nil {
			cmdCtx.Renderer.Error(err.Error())
		}
	})
}

func execOnce(ctx context.Context, cmdCtx *CommandContext, sql string, values map[string]string, opts *ExecOptions) error {
	r := cmdCtx.Renderer

	if err := params.Check(sql, values); err != nil {
		return err
	}

	if opts.DryRun {
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(map[string]any{
				"sql":        sql,
				"parameters": values,
				"rendered":   params.Substitute(sql, values),
			})
		}
		r.Println(params.Substitute(sql, values))
		return nil
	}

	execID, err := cmdCtx.Client.Execute(ctx, opts.QueryID, sql, values)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	cmdCtx.Logger.Debug("execution submitted", slog.String("execution_id", execID), slog.String("query_id", opts.QueryID))

	if !opts.Wait {
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(core.ExecuteResponse{ExecutionID: execID})
		}
		r.Println(execID)
		return nil
	}

	res, elapsed, err := waitForResults(ctx, cmdCtx, execID, 1, cmdCtx.Cfg.PageSize)
	if err != nil {
		return err
	}
	return renderExecution(cmdCtx, execID, res, elapsed)
}

// waitForResults polls an execution until it reaches a terminal status,
// showing a spinner with the elapsed time on terminals.
func waitForResults(ctx context.Context, cmdCtx *CommandContext, execID string, page, size int) (*core.QueryResults, time.Duration, error) {
	spin := cmdCtx.Renderer.NewSpinner("Submitting query...")
	spin.Start()
	defer spin.Stop()

	var p *poller.Poller
	p = poller.New(cmdCtx.Client,
		poller.WithInterval(cmdCtx.Cfg.PollInterval),
		poller.WithPage(page, size),
		poller.WithLogger(cmdCtx.Logger),
		poller.OnUpdate(func(res *core.QueryResults) {
			spin.Update(fmt.Sprintf("%s %s", statusLabel(res.Status), formatElapsed(p.Elapsed())))
		}),
		poller.OnError(func(err error) {
			spin.Update(fmt.Sprintf("retrying: %v", err))
		}),
	)

	res, err := p.Run(ctx, execID)
	if err != nil && !errors.Is(err, poller.ErrStopped) {
		return res, p.Elapsed(), fmt.Errorf("stopped waiting for %s: %w", execID, err)
	}
	return res, p.Elapsed(), nil
}

// renderExecution prints the final state of an execution.
func renderExecution(cmdCtx *CommandContext, execID string, res *core.QueryResults, elapsed time.Duration) error {
	r := cmdCtx.Renderer
	if res == nil {
		return fmt.Errorf("no results for %s", execID)
	}

	switch res.Status {
	case core.RunStatusFailed:
		return fmt.Errorf("query failed: %s", orDefault(res.Error(), "Query failed"))
	case core.RunStatusCancelled:
		return fmt.Errorf("query was cancelled")
	}

	if r.EffectiveMode() == output.ModeText {
		r.StatusLine(execID, string(res.Status), formatElapsed(elapsed))
	}
	return results.Render(r.Writer(), res, r.ResultsFormat())
}

func statusLabel(s core.RunStatus) string {
	switch s {
	case core.RunStatusQueued:
		return "Queued"
	case core.RunStatusRunning:
		return "Running"
	case "":
		return "Submitting"
	default:
		return string(s)
	}
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.Round(100 * time.Millisecond).String()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
