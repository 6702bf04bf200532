package commands

import (
	"context"
	"log/slog"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sidebar/internal/host"
	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/internal/tui"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// TUIOptions holds options for the tui command.
type TUIOptions struct {
	Tab         string
	Watch       bool
	NoAltScreen bool
	NoColor     bool
}

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	opts := &TUIOptions{}

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse the sidebar in the terminal",
		Long: `Open the sidebar as a terminal UI over the persisted state and data file.

Use the arrow keys or h/l to switch tabs, j/k to move, enter to activate,
r to restore a run, o to open its pull request and / to search history.`,
		Example: `  # Open on the history tab
  sidebar tui --tab history

  # Follow a data file written by the host
  sidebar tui --data sidebar.json --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Tab, "tab", core.TabProviders, "Initial tab (providers|history|environment)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload the data file when it changes")
	cmd.Flags().BoolVar(&opts.NoAltScreen, "no-alt-screen", false, "Render inline instead of in the alternate screen")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Disable colors")
	_ = cmd.RegisterFlagCompletionFunc("tab", completeTabs)

	return cmd
}

func runTUI(cmd *cobra.Command, opts *TUIOptions) error {
	cctx := NewCommandContext(cmd)

	store, _, cleanup, err := loadStore(cctx.Cfg, cctx.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := sidebar.NewContainer(sidebar.ContainerConfig{
		Store:  store,
		Sink:   newSink(cctx.Cfg, cctx.Logger),
		Logger: cctx.Logger,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SelectTab(opts.Tab); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if opts.Watch && cctx.Cfg.DataFile != "" {
		decoder := host.NewDecoder(cctx.Logger)
		catalog := catalogFor(cctx.Cfg)
		go func() {
			err := decoder.WatchFile(ctx, cctx.Cfg.DataFile, func(snap core.Snapshot) {
				store.Initialize(catalog.Fill(snap))
			})
			if err != nil && ctx.Err() == nil {
				cctx.Logger.Error("data file watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	runOpts := tui.Options{AltScreen: !opts.NoAltScreen}
	if opts.NoColor {
		profile := termenv.Ascii
		runOpts.Profile = &profile
	}
	return tui.Run(ctx, c, runOpts)
}

func completeTabs(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	tabs := core.DefaultTabs()
	ids := make([]string, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
