package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserOptions configures FetchRendered.
type BrowserOptions struct {
	// WaitSelector is awaited before the markup is captured.
	WaitSelector string
	// Keys are dispatched to the selected tab before capturing, e.g.
	// kb.ArrowRight to exercise keyboard navigation.
	Keys    []string
	Timeout time.Duration
	// Settle is how long to wait after each key for the server patch.
	Settle time.Duration
}

// FetchRendered loads url in headless Chrome and returns the live document
// markup after scripts have run.
func FetchRendered(ctx context.Context, url string, opts BrowserOptions) (string, error) {
	if opts.WaitSelector == "" {
		opts.WaitSelector = `[role="tablist"]`
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Settle <= 0 {
		opts.Settle = 250 * time.Millisecond
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
	)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancel := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery),
	}
	for _, key := range opts.Keys {
		actions = append(actions,
			chromedp.Focus(`[role="tab"][aria-selected="true"]`, chromedp.ByQuery),
			chromedp.KeyEvent(key),
			chromedp.Sleep(opts.Settle),
		)
	}

	var markup string
	actions = append(actions, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}
	return markup, nil
}
