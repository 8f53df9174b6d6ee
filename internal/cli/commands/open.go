package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/zeus/internal/cli/output"
	"github.com/leapstack-labs/zeus/internal/route"
	"github.com/leapstack-labs/zeus/internal/state"
	"github.com/leapstack-labs/zeus/internal/workspace"
	"github.com/spf13/cobra"
)

// NewOpenCommand creates the open command.
func NewOpenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <route|query-id>",
		Short: "Open a saved query in the workbench",
		Long: `Open a saved query as a tab of the workbench, the way following a link
to it would. An already open tab is activated; otherwise the query is loaded
from the backend and appended. The next 'zeus ui' starts on it.`,
		Example: `  zeus open /query/65a1f0/daily-orders
  zeus open 65a1f0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd, args[0])
		},
	}
}

// targetPath turns an argument into a location path. Bare ids are accepted.
func targetPath(arg string) string {
	if strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, "query/") {
		return "/" + strings.TrimPrefix(arg, "/")
	}
	return route.Route{QueryID: arg}.String()
}

func runOpen(cmd *cobra.Command, arg string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, cleanup, err := cmdCtx.OpenState()
	if err != nil {
		return err
	}
	defer cleanup()

	action, ws, sync, err := openLocation(cmd.Context(), cmdCtx, store, targetPath(arg))
	if err != nil {
		return err
	}

	q, index, _ := ws.Active()
	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"route":  sync.Location(),
			"tab":    index,
			"query":  q,
			"opened": action == route.ActionOpened,
		})
	}

	switch action {
	case route.ActionOpened:
		r.Success(fmt.Sprintf("Opened %q in tab %d", q.Name, index+1))
	case route.ActionActivated, route.ActionNone:
		r.Success(fmt.Sprintf("Switched to %q (tab %d)", q.Name, index+1))
	}
	r.KeyValue("Route", sync.Location())
	return nil
}

// openLocation reconciles the persisted workspace with path.
func openLocation(ctx context.Context, cmdCtx *CommandContext, store state.Store, path string) (route.Action, *workspace.Workspace, *route.Synchronizer, error) {
	saved, err := cmdCtx.Client.ListQueries(ctx)
	if err != nil {
		return route.ActionNone, nil, nil, fmt.Errorf("failed to fetch queries: %w", err)
	}

	ws := workspace.New(ctx, store, cmdCtx.Client, cmdCtx.Logger)
	sync := route.NewSynchronizer(ctx, ws, nil, store, cmdCtx.Logger)

	target := route.Parse(path)
	if target.IsZero() {
		return route.ActionNone, nil, nil, fmt.Errorf("not a query route: %s", path)
	}

	sync.Visit(path)
	action := sync.LocationChanged(path, saved, true)
	if action == route.ActionNone {
		if q, _, ok := ws.Active(); !ok || q.ID != target.QueryID {
			return action, nil, nil, fmt.Errorf("query %s not found", target.QueryID)
		}
	}

	// Settle the location on the canonical path with the slug.
	sync.ActiveChanged(false)
	if loc := sync.Location(); loc != path {
		sync.LocationChanged(loc, saved, true)
	}
	return action, ws, sync, nil
}
