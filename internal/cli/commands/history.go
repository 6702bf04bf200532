package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sidebar/internal/cli/output"
	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the persisted run history",
		Long: `List and edit the run history kept in the state database.

Changes are picked up the next time the sidebar starts.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryAddCommand())
	cmd.AddCommand(newHistoryRemoveCommand())
	cmd.AddCommand(newHistoryPruneCommand())
	cmd.AddCommand(newHistoryClearCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var limit int
	var query string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List runs, oldest first",
		Example: `  sidebar history list --limit 10
  sidebar history list --query failure -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cctx := NewCommandContext(cmd)
			store, err := openStateStore(cctx.Cfg, cctx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.ListHistory(limit)
			if err != nil {
				return err
			}
			entries = sidebar.FilterHistory(entries, query)
			return writeHistory(cctx.Renderer, entries)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the newest N runs")
	cmd.Flags().StringVar(&query, "query", "", "Only runs matching every term")

	return cmd
}

func writeHistory(r *output.Renderer, entries []core.HistoryEntry) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(entries)
	}
	if len(entries) == 0 {
		r.Println(r.Muted("No runs yet"))
		return nil
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.ID,
			e.Name,
			sidebar.StatusLabel(e.Status),
			formatRunTime(e),
			strconv.Itoa(len(e.PullRequests)),
			strconv.FormatBool(e.HasSnapshot()),
		}
	}
	r.Table([]string{"ID", "Name", "Status", "Time", "PRs", "Restorable"}, rows)
	return nil
}

func formatRunTime(e core.HistoryEntry) string {
	if e.Timestamp <= 0 {
		return ""
	}
	return e.Time().Format(time.RFC3339)
}

// HistoryAddOptions holds options for history add.
type HistoryAddOptions struct {
	ID       string
	Status   string
	PRURL    string
	Snapshot string
}

func newHistoryAddCommand() *cobra.Command {
	opts := &HistoryAddOptions{}

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Record a run",
		Example: `  sidebar history add "Nightly build" --status success
  sidebar history add "Deploy" --status failure --pr https://github.com/acme/app/pull/7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := NewCommandContext(cmd)

			entry, err := newHistoryEntry(args[0], opts, time.Now())
			if err != nil {
				return err
			}

			store, err := openStateStore(cctx.Cfg, cctx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.UpsertHistory(entry); err != nil {
				return err
			}
			if _, err := store.PruneHistory(cctx.Cfg.MaxHistory()); err != nil {
				return err
			}

			if cctx.Renderer.EffectiveMode() == output.ModeJSON {
				return cctx.Renderer.JSON(entry)
			}
			cctx.Renderer.Success(fmt.Sprintf("Recorded run %s (%s)", entry.ID, entry.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "Run id (default: a new UUID)")
	cmd.Flags().StringVar(&opts.Status, "status", string(core.RunStatusSuccess), "Run status (pending|running|success|failure|cancelled)")
	cmd.Flags().StringVar(&opts.PRURL, "pr", "", "Pull request URL linked to the run")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "Pipeline snapshot as JSON, making the run restorable")
	_ = cmd.RegisterFlagCompletionFunc("status", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{
			string(core.RunStatusPending), string(core.RunStatusRunning), string(core.RunStatusSuccess),
			string(core.RunStatusFailure), string(core.RunStatusCancelled),
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func newHistoryEntry(name string, opts *HistoryAddOptions, now time.Time) (core.HistoryEntry, error) {
	status := core.RunStatus(opts.Status)
	if !status.Known() {
		return core.HistoryEntry{}, fmt.Errorf("unknown status %q", opts.Status)
	}

	entry := core.HistoryEntry{
		ID:        opts.ID,
		Name:      name,
		Timestamp: now.UnixMilli(),
		Status:    status,
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if opts.PRURL != "" {
		entry.PullRequests = []core.PullRequest{{URL: opts.PRURL}}
	}
	if opts.Snapshot != "" {
		if !json.Valid([]byte(opts.Snapshot)) {
			return core.HistoryEntry{}, fmt.Errorf("snapshot is not valid JSON")
		}
		entry.PipelineSnapshot = json.RawMessage(opts.Snapshot)
	}
	return entry, nil
}

func newHistoryRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Remove runs by id",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cctx := NewCommandContext(cmd)
			store, err := openStateStore(cctx.Cfg, cctx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			for _, id := range args {
				if err := store.DeleteHistory(id); err != nil {
					return err
				}
				cctx.Renderer.Success("Removed " + id)
			}
			return nil
		},
	}
}

func newHistoryPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Keep only the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cctx := NewCommandContext(cmd)
			if !cmd.Flags().Changed("keep") {
				keep = cctx.Cfg.MaxHistory()
			}

			store, err := openStateStore(cctx.Cfg, cctx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.PruneHistory(keep)
			if err != nil {
				return err
			}
			cctx.Renderer.Success(fmt.Sprintf("Pruned %d runs", n))
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Runs to keep (default: history.max)")

	return cmd
}

func newHistoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cctx := NewCommandContext(cmd)
			store, err := openStateStore(cctx.Cfg, cctx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ClearHistory(); err != nil {
				return err
			}
			cctx.Renderer.Success("History cleared")
			return nil
		},
	}
}
