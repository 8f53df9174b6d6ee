package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leapstack-labs/zeus/internal/cli/config"
	"github.com/leapstack-labs/zeus/internal/results"
	"github.com/leapstack-labs/zeus/internal/theme"
	"github.com/leapstack-labs/zeus/internal/tui"
	"github.com/spf13/cobra"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Route string
	Theme string
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the interactive workbench",
		Long: `Start the terminal workbench.

The workbench provides:
- Query tabs restored from the last session
- SQL editor with parameter inputs and formatting
- Run history of saved queries
- Paged results with export
- Filterable database catalog

The workbench logs to zeus.log next to the state database.`,
		Example: `  # Start where the last session left off
  zeus ui

  # Start on a saved query
  zeus ui --route /query/65a1f0/daily-orders

  # Force the light theme
  zeus ui --theme light`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Route, "route", "", "Location to open at startup")
	cmd.Flags().StringVar(&opts.Theme, "theme", "", "Theme (auto|dark|light) (default: theme from config)")

	_ = cmd.RegisterFlagCompletionFunc("theme", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(theme.ModeAuto), string(theme.ModeDark), string(theme.ModeLight)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	mode, err := theme.ParseMode(orDefault(opts.Theme, cfg.Theme))
	if err != nil {
		return err
	}

	// The terminal belongs to the workbench; logs go to a file.
	logger, closeLog, err := fileLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	cmdCtx.Logger = logger
	if cmdCtx.Client, err = newClient(cfg, logger); err != nil {
		return err
	}

	store, cleanup, err := cmdCtx.OpenState()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	model := tui.New(ctx, tui.Config{
		Backend:      cmdCtx.Client,
		Store:        store,
		Theme:        theme.Resolve(ctx, mode, store, logger, nil),
		Logger:       logger,
		Sink:         results.FileSink{Dir: cfg.ExportDir},
		Route:        opts.Route,
		PageSize:     cfg.PageSize,
		PollInterval: cfg.PollInterval,
		RunsRefresh:  cfg.RunsRefresh,
		CatalogTTL:   cfg.CatalogTTL,
	})
	defer model.Close()

	logger.Info("workbench started", slog.String("api_url", cfg.APIURL), slog.String("route", model.Location()))

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("workbench failed: %w", err)
	}

	logger.Info("workbench stopped", slog.String("route", model.Location()))
	return nil
}

// fileLogger opens the workbench log.
func fileLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	path := cfg.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}
