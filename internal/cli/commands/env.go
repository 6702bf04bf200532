package commands

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sidebar/internal/cli/output"
)

// NewEnvCommand creates the env command and its subcommands.
func NewEnvCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show or seed the persisted environment variables",
	}
	cmd.AddCommand(newEnvListCommand())
	cmd.AddCommand(newEnvSetCommand())
	return cmd
}

func newEnvListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List environment variables, sorted by key",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cctx := NewCommandContext(cmd)
			store, err := openStateStore(cctx.Cfg, cctx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			env, err := store.GetEnvironment()
			if err != nil {
				return err
			}

			r := cctx.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(env)
			case output.ModeMarkdown:
				r.Println(output.FormatHeader(1, "Environment"))
				r.Println("")
				for _, k := range slices.Sorted(maps.Keys(env)) {
					r.Println(output.FormatKeyValue(k, env[k]))
				}
			default:
				for _, k := range slices.Sorted(maps.Keys(env)) {
					r.StatusLine(k, env[k])
				}
			}
			return nil
		},
	}
}

func newEnvSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set KEY=VALUE...",
		Short:   "Set environment variables",
		Example: `  sidebar env set API_URL=http://localhost:8080 NODE_ENV=development`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs := make([][2]string, 0, len(args))
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok || k == "" {
					return fmt.Errorf("expected KEY=VALUE, got %q", arg)
				}
				pairs = append(pairs, [2]string{k, v})
			}

			cctx := NewCommandContext(cmd)
			store, err := openStateStore(cctx.Cfg, cctx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			for _, p := range pairs {
				if err := store.SetEnvironmentVar(p[0], p[1]); err != nil {
					return err
				}
			}
			cctx.Renderer.Success(fmt.Sprintf("Set %d variables", len(pairs)))
			return nil
		},
	}
}
