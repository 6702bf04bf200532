package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/sidebar/internal/cli/config"
	"github.com/leapstack-labs/sidebar/internal/cli/output"
	"github.com/leapstack-labs/sidebar/internal/host"
	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/internal/state"
	"github.com/leapstack-labs/sidebar/internal/ui"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext for cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		StatePath:    getEnvOrDefault(config.EnvPrefix+"STATE_PATH", config.DefaultStateFile),
		DataFile:     os.Getenv(config.EnvPrefix + "DATA_FILE"),
		Verbose:      os.Getenv(config.EnvPrefix+"VERBOSE") == "true",
		OutputFormat: os.Getenv(config.EnvPrefix + "OUTPUT"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// openStateStore opens and migrates the state database at cfg.StatePath.
func openStateStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	// Ensure state directory exists
	if cfg.StatePath != ":memory:" {
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}
	return store, nil
}

// loadStore opens the state database and returns a sidebar store seeded from
// it and the configured data file, the same way the UI server seeds itself.
// The returned cleanup closes the database.
func loadStore(cfg *config.Config, logger *slog.Logger) (*sidebar.Store, *state.SQLiteStore, func(), error) {
	stateStore, err := openStateStore(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() { _ = stateStore.Close() }

	srv := ui.NewServer(ui.Config{
		StateStore: stateStore,
		DataFile:   cfg.DataFile,
		Catalog:    catalogFor(cfg),
		Logger:     logger,
	})
	if err := srv.Load(); err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return srv.Store(), stateStore, cleanup, nil
}

// newSink returns the configured host delivery for outbound messages. Without
// a webhook, messages are logged.
func newSink(cfg *config.Config, logger *slog.Logger) sidebar.MessageSink {
	hostCfg := cfg.GetHostConfig()
	if hostCfg.WebhookURL == "" {
		return host.LogSink{Logger: logger}
	}
	return host.MultiSink{
		host.LogSink{Logger: logger},
		host.NewWebhookSink(hostCfg.WebhookURL, hostCfg.Timeout),
	}
}

// catalogFor returns the configured Providers tab catalog.
func catalogFor(cfg *config.Config) ui.Catalog {
	if cfg.Catalog == nil {
		return ui.Catalog{}
	}
	return ui.Catalog{ContextItems: cfg.Catalog.Context, Providers: cfg.Catalog.Providers}
}
