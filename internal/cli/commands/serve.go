package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/leapstack-labs/sidebar/internal/cli/config"
	"github.com/leapstack-labs/sidebar/internal/ui"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
	Webhook   string
	Dev       bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"ui"},
		Short:   "Serve the sidebar web view",
		Long: `Start a local web server rendering the sidebar.

The host pushes data with POST /api/host/messages and receives user actions
from GET /api/host/outbox, or through a configured webhook. State is persisted
to the state database and reloaded on the next start.`,
		Example: `  # Serve on the default port
  sidebar serve

  # Serve a host data file and reload it on change
  sidebar serve --data sidebar.json --watch

  # Deliver actions to the host
  sidebar serve --webhook http://localhost:7000/messages --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload the data file when it changes")
	cmd.Flags().StringVar(&opts.Webhook, "webhook", "", "URL receiving outbound messages")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Enable live reload of the page")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cctx := NewCommandContext(cmd)
	cfg := cctx.Cfg

	// Get UI config with defaults
	uiCfg := cfg.GetUIConfig()

	// CLI flags override config file
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	autoOpen := uiCfg.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := uiCfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	if opts.Webhook != "" {
		hostCfg := cfg.GetHostConfig()
		hostCfg.WebhookURL = opts.Webhook
		withHook := *cfg
		withHook.Host = hostCfg
		if err := withHook.Validate(); err != nil {
			return err
		}
		cfg = &withHook
	}

	if cfg.DataFile != "" {
		if _, err := os.Stat(cfg.DataFile); err != nil {
			return fmt.Errorf("data file not found: %s", cfg.DataFile)
		}
	}

	stateStore, err := openStateStore(cfg, cctx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = stateStore.Close() }()

	server := ui.NewServer(ui.Config{
		StateStore:    stateStore,
		DataFile:      cfg.DataFile,
		Watch:         watch,
		Sink:          newSink(cfg, cctx.Logger),
		Port:          port,
		SessionSecret: sessionSecret(uiCfg),
		IsDev:         opts.Dev,
		MaxHistory:    cfg.MaxHistory(),
		MaxViewers:    uiCfg.MaxViewers,
		Catalog:       catalogFor(cfg),
		Logger:        cctx.Logger,
	})

	url := fmt.Sprintf("http://localhost:%d", port)
	if autoOpen {
		go openBrowser(url)
	}

	cctx.Renderer.Printf("Serving sidebar on %s\n", url)
	cctx.Renderer.Println(cctx.Renderer.Muted("Press Ctrl+C to stop"))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return server.Serve(ctx)
}

// sessionSecret returns the configured cookie secret, falling back to the
// environment and then to a development default.
func sessionSecret(uiCfg *config.UIConfig) string {
	if uiCfg.SessionSecret != "" {
		return uiCfg.SessionSecret
	}
	if secret := os.Getenv(config.EnvPrefix + "SESSION_SECRET"); secret != "" {
		return secret
	}
	return "sidebar-dev-secret-change-in-production" //nolint:gosec
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
