package commands

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp/kb"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sidebar/internal/cli/output"
	"github.com/leapstack-labs/sidebar/internal/ui"
	"github.com/leapstack-labs/sidebar/internal/verify"
)

// browserKeys maps --keys names to the key events chromedp dispatches.
var browserKeys = map[string]string{
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"Home":       kb.Home,
	"End":        kb.End,
	"Enter":      kb.Enter,
	"Tab":        kb.Tab,
}

// VerifyOptions holds options for the verify command.
type VerifyOptions struct {
	ViewOptions
	Browser bool
	Keys    []string
	Timeout time.Duration
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	opts := &VerifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify [file|url]",
		Short: "Check sidebar markup against the accessibility contract",
		Long: `Check that sidebar markup satisfies the tablist contract: one selected
tab, roving tabindex, aria-controls and aria-labelledby pairs, exactly one
visible panel and named, focusable list items.

Without an argument the sidebar is rendered from the current data. With
--browser the page is loaded in headless Chrome, optional keys are pressed on
the selected tab, and the live document is checked.`,
		Example: `  # Check the rendered history panel
  sidebar verify --tab history

  # Check a saved page
  sidebar verify page.html -o json

  # Drive a running server with the keyboard
  sidebar verify http://localhost:8765 --browser --keys ArrowRight,End`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runVerify(cmd, target, opts)
		},
	}

	addViewFlags(cmd, &opts.ViewOptions)
	cmd.Flags().BoolVar(&opts.Browser, "browser", false, "Check the live document in headless Chrome")
	cmd.Flags().StringSliceVar(&opts.Keys, "keys", nil, "Keys to press before checking (with --browser)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Browser timeout")

	return cmd
}

func runVerify(cmd *cobra.Command, target string, opts *VerifyOptions) error {
	cctx := NewCommandContext(cmd)

	markup, err := loadMarkup(cmd.Context(), cctx, target, opts)
	if err != nil {
		return err
	}

	rep, err := verify.CheckString(markup)
	if err != nil {
		return err
	}

	if err := rep.Write(cctx.Renderer.Writer(), reportFormat(cctx.Renderer)); err != nil {
		return err
	}
	if !rep.OK() {
		return fmt.Errorf("%d accessibility checks failed", len(rep.Failed()))
	}
	return nil
}

func loadMarkup(ctx context.Context, cctx *CommandContext, target string, opts *VerifyOptions) (string, error) {
	isURL := strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")

	switch {
	case opts.Browser:
		keys, err := parseKeys(opts.Keys)
		if err != nil {
			return "", err
		}
		url := target
		if url == "" {
			srv, err := startLocalServer(cctx)
			if err != nil {
				return "", err
			}
			defer srv.Close()
			url = srv.URL + "/?tab=" + opts.Tab
		} else if !isURL {
			return "", fmt.Errorf("--browser needs a URL, got %q", target)
		}
		return verify.FetchRendered(ctx, url, verify.BrowserOptions{Keys: keys, Timeout: opts.Timeout})
	case isURL:
		return "", fmt.Errorf("checking a URL needs --browser")
	case target != "":
		data, err := os.ReadFile(target) //nolint:gosec // path comes from the command line
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", target, err)
		}
		return string(data), nil
	default:
		v, err := currentView(cctx, opts.ViewOptions)
		if err != nil {
			return "", err
		}
		return renderMarkup(ctx, v, true)
	}
}

// startLocalServer serves the current data on a loopback port.
func startLocalServer(cctx *CommandContext) (*httptest.Server, error) {
	store, _, cleanup, err := loadStore(cctx.Cfg, cctx.Logger)
	if err != nil {
		return nil, err
	}
	cleanup()

	s := ui.NewServer(ui.Config{
		Store:         store,
		SessionSecret: sessionSecret(cctx.Cfg.GetUIConfig()),
		Logger:        cctx.Logger,
	})
	handler, err := s.Handler()
	if err != nil {
		return nil, err
	}
	return httptest.NewServer(handler), nil
}

func parseKeys(names []string) ([]string, error) {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		key, ok := browserKeys[name]
		if !ok {
			return nil, fmt.Errorf("unknown key %q", name)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func reportFormat(r *output.Renderer) string {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return verify.FormatJSON
	case output.ModeMarkdown:
		return verify.FormatMarkdown
	default:
		return verify.FormatText
	}
}
