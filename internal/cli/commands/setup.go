package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/zeus/internal/api"
	"github.com/leapstack-labs/zeus/internal/cli/config"
	"github.com/leapstack-labs/zeus/internal/cli/output"
	"github.com/leapstack-labs/zeus/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Client   *api.Client
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an API client and renderer.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Client:   client,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// NewCommandContextWithoutClient creates a CommandContext for commands that
// work offline.
func NewCommandContextWithoutClient(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// OpenState opens the local state database.
// Returns the store and a cleanup function that must be called (typically via defer).
func (c *CommandContext) OpenState() (*state.SQLiteStore, func(), error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// getConfig returns the current configuration, or the defaults when the
// command runs without the root command (as in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func newClient(cfg *config.Config, logger *slog.Logger) (*api.Client, error) {
	return api.New(cfg.APIURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(logger),
	)
}
