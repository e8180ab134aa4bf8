// Package fetch - browser.go provides headless browser rendering for JavaScript-heavy menu pages.
package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultBrowserTimeout bounds a single browser render.
const DefaultBrowserTimeout = 45 * time.Second

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium to be installed on the system.
func WithBrowser(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	slog.DebugContext(ctx, "starting headless browser", "url", url)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var rendered string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// menus on ordering sites render after the initial load
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &rendered),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	slog.DebugContext(ctx, "rendered page in browser", "url", url, "bytes", len(rendered))
	return rendered, nil
}

// BrowserFetcher wraps a Fetcher and re-renders pages in a headless browser when
// the plain HTTP response carries too little text.
type BrowserFetcher struct {
	Base    Fetcher
	Timeout time.Duration
	// Render defaults to WithBrowser; tests replace it.
	Render func(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// Get fetches with Base and falls back to browser rendering for thin pages.
// A failed render keeps the HTTP content.
func (b *BrowserFetcher) Get(ctx context.Context, urlStr string) (*Result, error) {
	result, err := b.Base.Get(ctx, urlStr)
	if err != nil {
		return result, err
	}

	if result.Text == "" {
		result.fillText(ctx)
	}
	text := result.Text
	if !ShouldUseBrowser(text) {
		return result, nil
	}

	render := b.Render
	if render == nil {
		render = WithBrowser
	}
	slog.DebugContext(ctx, "content too short, falling back to browser", "url", urlStr, "chars", len(text))

	rendered, err := render(ctx, urlStr, b.Timeout)
	if err != nil {
		slog.WarnContext(ctx, "browser rendering failed, using HTTP content", "url", urlStr, "err", err)
		return result, nil
	}
	result.HTML = rendered
	result.fillText(ctx)
	return result, nil
}

var _ Fetcher = (*BrowserFetcher)(nil)
