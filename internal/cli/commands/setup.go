package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapsweep/internal/cli/config"
	"github.com/leapstack-labs/leapsweep/internal/cli/output"
	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/leapstack-labs/leapsweep/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *state.SQLiteStore
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an open, migrated state store.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutStore(cmd)

	store, err := openStore(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Store = store

	cleanup := func() {
		_ = store.Close()
	}
	return cmdCtx, cleanup, nil
}

// openStore opens and migrates the run history database at path.
func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}
	return store, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a state store.
// Useful for commands that don't need run history.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration, or the defaults when the
// root command did not load one (tests, init).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// newLoader builds an experiment loader for the configured schema.
func newLoader(cfg *config.Config, logger *slog.Logger) (*experiment.Loader, error) {
	schema, err := cfg.ExperimentSchema()
	if err != nil {
		return nil, err
	}
	return experiment.NewLoader(experiment.LoaderConfig{Schema: schema, Logger: logger})
}

// printLoadErrors writes one diagnostic line per load problem.
func printLoadErrors(r *output.Renderer, res *experiment.LoadResult) {
	for _, err := range res.Errors {
		r.Error(err.Error())
	}
}

// errorStrings flattens load problems for JSON output.
func errorStrings(res *experiment.LoadResult) []string {
	out := make([]string, 0, len(res.Errors))
	for _, err := range res.Errors {
		out = append(out, err.Error())
	}
	return out
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
