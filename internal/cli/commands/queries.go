package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/zeus/internal/cli/output"
	"github.com/leapstack-labs/zeus/internal/route"
	"github.com/leapstack-labs/zeus/internal/workspace"
	"github.com/leapstack-labs/zeus/pkg/core"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

// NewQueriesCommand creates the queries command group.
func NewQueriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "queries",
		Aliases: []string{"q"},
		Short:   "Manage saved queries",
		Long: `List, inspect, save and delete the queries stored by the backend.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, csv, yaml`,
	}

	cmd.AddCommand(newQueriesListCommand())
	cmd.AddCommand(newQueriesShowCommand())
	cmd.AddCommand(newQueriesSaveCommand())
	cmd.AddCommand(newQueriesDeleteCommand())

	return cmd
}

func newQueriesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		Example: `  zeus queries list
  zeus queries list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			queries, err := cmdCtx.Client.ListQueries(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch queries: %w", err)
			}
			return renderListing(cmdCtx.Renderer, queriesListing(queries))
		},
	}
}

func queriesListing(queries []core.Query) listing {
	l := listing{
		Columns: []string{"ID", "Name", "Updated", "Route"},
		Data:    queries,
	}
	for _, q := range queries {
		l.Rows = append(l.Rows, []string{
			q.ID,
			q.Name,
			q.UpdatedAt.Local().Format(timeLayout),
			route.QueryURL(q.ID, q.Name),
		})
	}
	return l
}

// queryDetail is a saved query with its run history.
type queryDetail struct {
	Query core.Query      `json:"query" yaml:"query"`
	Runs  []core.QueryRun `json:"runs" yaml:"runs"`
}

func newQueriesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved query and its run history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			detail, err := loadQueryDetail(cmd.Context(), cmdCtx, args[0])
			if err != nil {
				return err
			}
			return renderQueryDetail(cmdCtx.Renderer, detail)
		},
	}
}

// loadQueryDetail fetches the query and its runs in parallel.
func loadQueryDetail(ctx context.Context, cmdCtx *CommandContext, id string) (*queryDetail, error) {
	var detail queryDetail
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := cmdCtx.Client.GetQuery(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch query: %w", err)
		}
		detail.Query = *q
		return nil
	})
	g.Go(func() error {
		runs, err := cmdCtx.Client.ListRuns(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch runs: %w", err)
		}
		detail.Runs = runs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &detail, nil
}

func renderQueryDetail(r *output.Renderer, d *queryDetail) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(d)
	case output.ModeYAML, output.ModeCSV:
		return renderListing(r, listing{Data: d, Columns: runColumns, Rows: runRows(d.Runs)})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, d.Query.Name))
		r.Println()
		r.Println(output.FormatKeyValue("ID", d.Query.ID))
		if d.Query.Description != "" {
			r.Println(output.FormatKeyValue("Description", d.Query.Description))
		}
		r.Println(output.FormatKeyValue("Route", route.QueryURL(d.Query.ID, d.Query.Name)))
		r.Println(output.FormatKeyValue("Updated", d.Query.UpdatedAt.Local().Format(timeLayout)))
		r.Println()
		r.Println(output.FormatCodeBlock("sql", d.Query.SQL))
		r.Println()
		r.Println(output.FormatHeader(2, fmt.Sprintf("Runs (%d)", len(d.Runs))))
		r.Println()
		return renderMarkdown(r.Writer(), listing{Columns: runColumns, Rows: runRows(d.Runs)})
	default:
		r.Header(1, d.Query.Name)
		r.KeyValue("ID", d.Query.ID)
		if d.Query.Description != "" {
			r.KeyValue("Description", d.Query.Description)
		}
		r.KeyValue("Route", route.QueryURL(d.Query.ID, d.Query.Name))
		r.KeyValue("Updated", d.Query.UpdatedAt.Local().Format(timeLayout))
		r.Println()
		r.Println(d.Query.SQL)
		r.Println()
		r.Header(2, fmt.Sprintf("Runs (%d)", len(d.Runs)))
		return renderTable(r.Writer(), listing{Columns: runColumns, Rows: runRows(d.Runs)})
	}
}

// SaveOptions holds options for queries save.
type SaveOptions struct {
	ID          string
	Name        string
	Description string
	Input       string
}

func newQueriesSaveCommand() *cobra.Command {
	opts := &SaveOptions{}

	cmd := &cobra.Command{
		Use:   "save [SQL]",
		Short: "Create or update a saved query",
		Long: `Save SQL as a named query. Without --id a new query is created; with --id
the existing query is updated.`,
		Example: `  zeus queries save --name "Daily orders" --input orders.sql
  zeus queries save --id 65a1f0 --name "Daily orders v2" "SELECT 1"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueriesSave(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "Update this query instead of creating one")
	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "Query name (required)")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "Query description")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runQueriesSave(cmd *cobra.Command, args []string, opts *SaveOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	sql, err := readSQL(cmd, args, opts.Input)
	if err != nil {
		return err
	}

	in := core.QueryInput{Name: opts.Name, SQL: sql, Description: opts.Description}
	var saved *core.Query
	if opts.ID == "" {
		saved, err = cmdCtx.Client.CreateQuery(cmd.Context(), in)
	} else {
		saved, err = cmdCtx.Client.UpdateQuery(cmd.Context(), opts.ID, in)
	}
	if err != nil {
		return fmt.Errorf("failed to save query: %w", err)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(saved)
	}
	r.Success(fmt.Sprintf("Saved %q (%s)", saved.Name, saved.ID))
	return nil
}

func newQueriesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if err := cmdCtx.Client.DeleteQuery(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete query: %w", err)
			}
			detachFromWorkspace(cmd.Context(), cmdCtx, args[0])
			cmdCtx.Renderer.Success(fmt.Sprintf("Deleted query %s", args[0]))
			return nil
		},
	}
}

// detachFromWorkspace turns an open tab of a deleted query into an unsaved
// one so the workbench does not reference a missing record.
func detachFromWorkspace(ctx context.Context, cmdCtx *CommandContext, id string) {
	store, cleanup, err := cmdCtx.OpenState()
	if err != nil {
		cmdCtx.Logger.Warn("failed to open state", slog.Any("error", err))
		return
	}
	defer cleanup()
	workspace.New(ctx, store, cmdCtx.Client, cmdCtx.Logger).Detach(id)
}

var runColumns = []string{"ID", "Status", "Executed", "Duration", "Execution ID", "Error"}

func runRows(runs []core.QueryRun) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if d := run.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			run.ID,
			string(run.Status),
			run.ExecutedAt.Local().Format(timeLayout),
			duration,
			run.ExecutionID,
			truncate(run.ErrorMessage, 60),
		})
	}
	return rows
}
