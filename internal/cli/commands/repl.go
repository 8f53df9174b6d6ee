package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/zeus/internal/catalog"
	"github.com/leapstack-labs/zeus/internal/sqlfmt"
	"github.com/leapstack-labs/zeus/pkg/core"
	"github.com/leapstack-labs/zeus/pkg/params"
)

const (
	replPrompt         = "zeus> "
	replContinuePrompt = " ...> "
)

// REPLOptions holds options for the repl command.
type REPLOptions struct {
	Params []string
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	opts := &REPLOptions{}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive SQL shell against the backend",
		Long: `Start an interactive shell. Statements end with a semicolon and run
through the backend; results print when the execution finishes.

Tab completes database, table and column names from the catalog.`,
		Example: `  zeus repl
  zeus repl -p day=2024-01-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Parameter value as name=value (repeatable)")

	return cmd
}

func runREPL(cmd *cobra.Command, opts *REPLOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	values, err := params.Parse(opts.Params)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sh := newShell(cmdCtx, values)
	if _, err := sh.cache.Get(ctx); err != nil {
		cmdCtx.Renderer.Warning(fmt.Sprintf("catalog unavailable, completion disabled: %v", err))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "repl_history"),
		AutoComplete:    sh.completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	r.Printf("Zeus SQL shell (%s)\n", cmdCtx.Cfg.APIURL)
	r.Println("Type .help for commands, .quit to exit")
	r.Println()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			sh.buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if sh.handleLine(ctx, line) {
			break
		}
		if sh.buf.Len() > 0 {
			rl.SetPrompt(replContinuePrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
	return nil
}

// shell is the line handling state of the REPL, kept apart from readline.
type shell struct {
	cmdCtx    *CommandContext
	cache     *catalog.Cache
	completer *catalog.Completer
	values    map[string]string
	buf       strings.Builder
	last      string
}

func newShell(cmdCtx *CommandContext, values map[string]string) *shell {
	if values == nil {
		values = make(map[string]string)
	}
	cache := catalog.NewCache(cmdCtx.Client, cmdCtx.Cfg.CatalogTTL, cmdCtx.Logger)
	return &shell{
		cmdCtx: cmdCtx,
		cache:  cache,
		completer: catalog.NewCompleter(func() *core.Catalog {
			cat, _ := cache.Peek()
			return cat
		}),
		values: values,
	}
}

// handleLine processes one input line and reports whether the shell should exit.
func (s *shell) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.dotCommand(ctx, line)
	}

	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return false
	}

	sql := strings.TrimSpace(strings.TrimSuffix(s.buf.String(), ";"))
	s.buf.Reset()
	s.last = sql

	if err := s.run(ctx, sql); err != nil {
		s.cmdCtx.Renderer.Error(err.Error())
	}
	s.cmdCtx.Renderer.Println()
	return false
}

func (s *shell) run(ctx context.Context, sql string) error {
	if err := params.Check(sql, s.values); err != nil {
		return fmt.Errorf("%w (set values with .set <name> <value>)", err)
	}
	execID, err := s.cmdCtx.Client.Execute(ctx, "", sql, s.values)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	res, elapsed, err := waitForResults(ctx, s.cmdCtx, execID, 1, s.cmdCtx.Cfg.PageSize)
	if err != nil {
		return err
	}
	return renderExecution(s.cmdCtx, execID, res, elapsed)
}

func (s *shell) dotCommand(ctx context.Context, line string) bool {
	r := s.cmdCtx.Renderer
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Writer())

	case ".tables":
		cat, err := s.cache.Get(ctx)
		if err != nil {
			r.Error(err.Error())
			return false
		}
		filter := ""
		if len(parts) > 1 {
			filter = parts[1]
		}
		filtered, _ := catalog.Filter(cat, filter)
		if err := renderListing(r, catalogListing(filtered)); err != nil {
			r.Error(err.Error())
		}

	case ".schema":
		if len(parts) < 2 {
			r.Error("Usage: .schema <database.table>")
			return false
		}
		cat, err := s.cache.Get(ctx)
		if err != nil {
			r.Error(err.Error())
			return false
		}
		if err := renderCatalogTarget(r, cat, parts[1]); err != nil {
			r.Error(err.Error())
		}

	case ".refresh":
		s.cache.Invalidate()
		if _, err := s.cache.Get(ctx); err != nil {
			r.Error(err.Error())
			return false
		}
		r.Success("Catalog refreshed")

	case ".set":
		if len(parts) < 3 {
			r.Error("Usage: .set <name> <value>")
			return false
		}
		s.values[parts[1]] = strings.Join(parts[2:], " ")

	case ".unset":
		for _, name := range parts[1:] {
			delete(s.values, name)
		}

	case ".params":
		if len(s.values) == 0 {
			r.Muted("No parameters set")
			return false
		}
		names := make([]string, 0, len(s.values))
		for name := range s.values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r.KeyValue(name, s.values[name])
		}

	case ".format":
		src := s.last
		if s.buf.Len() > 0 {
			src = s.buf.String()
		}
		if src == "" {
			r.Muted("Nothing to format")
			return false
		}
		formatted, err := sqlfmt.Format(src)
		if err != nil {
			r.Error(err.Error())
			return false
		}
		r.Println(formatted)

	case ".clear":
		r.Printf("\033[H\033[2J")

	default:
		r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                  Show this help message
  .tables [filter]       List databases and tables
  .schema <db.table>     Show the columns of a table
  .refresh               Reload the catalog
  .set <name> <value>    Set a {{ parameter }} value
  .unset <name>...       Remove parameter values
  .params                Show parameter values
  .format                Format the last statement
  .clear                 Clear the screen
  .quit / .exit          Exit the shell

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completes db, db.table and db.table.column names
`
	_, _ = fmt.Fprintln(w, help)
}
