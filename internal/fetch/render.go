package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/threadcrawl/threadcrawl/internal/metrics"
)

// RenderConfig configures the headless-browser strategy.
type RenderConfig struct {
	// Site labels logs and metrics with the owning marketplace.
	Site     string
	Timeout  time.Duration
	Headless bool
	// ReadySelector is the CSS selector whose presence marks the page as
	// fully populated. When empty, SettleDelay is used as the fallback
	// readiness condition.
	ReadySelector string
	SettleDelay   time.Duration
	UserAgent     string
	Logger        *slog.Logger
}

// Render fetches pages through a headless browser so script-populated
// listings are present in the returned document. Each Render owns its own
// browser session; sessions are never shared across concurrently running
// sites, so no cookies or navigation state leak between them.
type Render struct {
	cfg    RenderConfig
	logger *slog.Logger
}

func NewRender(cfg RenderConfig) *Render {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Render{cfg: cfg, logger: cfg.Logger}
}

func (r *Render) Name() string { return "render" }

// Fetch navigates to the URL, waits for the readiness condition, and returns
// the rendered DOM. Failing to reach readiness within the budget yields a
// render_timeout error, never a silent empty page.
func (r *Render) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFetch(r.cfg.Site, r.Name(), time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if r.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.cfg.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	tasks := []chromedp.Action{chromedp.Navigate(targetURL)}
	if r.cfg.ReadySelector != "" {
		tasks = append(tasks, chromedp.WaitReady(r.cfg.ReadySelector, chromedp.ByQuery))
	} else {
		tasks = append(tasks, chromedp.Sleep(r.cfg.SettleDelay))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(browserCtx, tasks...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: KindRenderTimeout, URL: targetURL, Err: err}
		}
		return nil, &Error{Kind: KindConnectionRefused, URL: targetURL, Err: err}
	}

	r.logger.Debug("page rendered", "site", r.cfg.Site, "url", targetURL, "bytes", len(html))

	return &Page{
		URL:      targetURL,
		Body:     []byte(html),
		Rendered: true,
		Duration: time.Since(start),
	}, nil
}
