// Package scrape coordinates one search across every enabled marketplace:
// it fans a query out to the site adapters concurrently, absorbs per-site
// failures, and assembles one deterministic, normalized dataset.
package scrape

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/threadcrawl/threadcrawl/internal/fetch"
	"github.com/threadcrawl/threadcrawl/internal/metrics"
	"github.com/threadcrawl/threadcrawl/internal/normalize"
	"github.com/threadcrawl/threadcrawl/internal/registry"
	"github.com/threadcrawl/threadcrawl/internal/sites"
)

// Request is the immutable input of one orchestration run.
type Request struct {
	Query        string
	EnableSites  []string
	DisableSites []string
	// Filters holds optional per-site search options keyed by site ID.
	Filters map[string]sites.Filter
}

// SiteError records one site's failure outcome. It never aborts the batch.
type SiteError struct {
	Site    string `json:"site" yaml:"site"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// SiteError kinds beyond the fetch error taxonomy.
const (
	KindLayoutChanged = "layout_changed"
	KindFetchFailed   = "fetch_failed"
)

// Result is the full outcome of one run: every listing obtained plus every
// per-site error observed, in site-registration order.
type Result struct {
	ID       string              `json:"id" yaml:"id"`
	Query    string              `json:"query" yaml:"query"`
	Listings []normalize.Listing `json:"listings" yaml:"listings"`
	Errors   []SiteError         `json:"errors" yaml:"errors"`
	// Dropped counts listings discarded during normalization.
	Dropped   int           `json:"dropped" yaml:"dropped"`
	Sites     int           `json:"sites" yaml:"sites"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// AllFailed reports whether every enabled site errored, which output
// renderers must distinguish from a search that simply matched nothing.
func (r *Result) AllFailed() bool {
	return r.Sites > 0 && len(r.Errors) == r.Sites
}

// Config bounds each site's unit of work.
type Config struct {
	// StaticTimeout is the per-site budget for statically fetched sites.
	StaticTimeout time.Duration
	// RenderTimeout is the per-site budget for browser-rendered sites.
	RenderTimeout time.Duration
	// Now supplies listing timestamps; defaults to time.Now.
	Now func() time.Time
}

// StrategyFactory builds a fresh fetch strategy for one adapter invocation.
// Fresh-per-invocation is what keeps rendering sessions (cookies,
// navigation history) from leaking across concurrently running sites.
type StrategyFactory func(d registry.Descriptor) (fetch.Strategy, error)

// Orchestrator runs all enabled adapters concurrently for one search term.
type Orchestrator struct {
	registry   *registry.Registry
	strategies StrategyFactory
	cfg        Config
	logger     *slog.Logger
}

func New(reg *registry.Registry, strategies StrategyFactory, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.StaticTimeout <= 0 {
		cfg.StaticTimeout = 20 * time.Second
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 35 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{registry: reg, strategies: strategies, cfg: cfg, logger: logger}
}

// outcome is a write-once result slot for one site's unit of work. Exactly
// one of raw/err is meaningful; an empty raw with nil err is an empty
// success.
type outcome struct {
	raw []sites.RawListing
	err *SiteError
}

// Run resolves the enabled site set, runs one bounded unit of work per site,
// waits for every unit to reach a terminal state, and assembles the unified
// dataset in registration order regardless of completion order.
//
// Only configuration errors (an unknown site identifier) fail the run as a
// whole; everything below the site boundary becomes a SiteError entry.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	descs, err := o.registry.Resolve(req.EnableSites, req.DisableSites)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	slots := make([]outcome, len(descs))

	var g errgroup.Group
	for i, d := range descs {
		i, d := i, d
		g.Go(func() error {
			slots[i] = o.runSite(ctx, d, req)
			return nil
		})
	}
	// Units never return errors; a slow or failing site must not cancel
	// the others.
	_ = g.Wait()

	res := &Result{
		ID:        uuid.New().String(),
		Query:     req.Query,
		Sites:     len(descs),
		StartedAt: started,
	}
	fetchedAt := o.cfg.Now()

	for i, d := range descs {
		out := slots[i]
		if out.err != nil {
			res.Errors = append(res.Errors, *out.err)
			metrics.SiteScrapesTotal.WithLabelValues(d.ID, out.err.Kind).Inc()
			continue
		}
		if len(out.raw) == 0 {
			o.logger.Info("no results", "site", d.ID, "query", req.Query)
			metrics.SiteScrapesTotal.WithLabelValues(d.ID, "empty").Inc()
			continue
		}

		metrics.SiteScrapesTotal.WithLabelValues(d.ID, "success").Inc()
		metrics.ListingsExtractedTotal.WithLabelValues(d.ID).Add(float64(len(out.raw)))

		for _, raw := range out.raw {
			listing, nerr := normalize.Normalize(d.ID, raw, fetchedAt)
			if nerr != nil {
				res.Dropped++
				field := "unknown"
				var ne *normalize.Error
				if errors.As(nerr, &ne) {
					field = ne.Field
				}
				o.logger.Warn("dropped listing", "site", d.ID, "err", nerr)
				metrics.ListingsDroppedTotal.WithLabelValues(d.ID, field).Inc()
				continue
			}
			res.Listings = append(res.Listings, listing)
		}
	}

	res.Duration = time.Since(started)
	o.logger.Info("scrape finished",
		"run_id", res.ID,
		"query", req.Query,
		"sites", len(descs),
		"listings", len(res.Listings),
		"errors", len(res.Errors),
		"dropped", res.Dropped,
		"duration", res.Duration,
	)
	return res, nil
}

// runSite executes fetch → extract for one site under its own timeout. Every
// exit path converts the failure to a SiteError; nothing escapes the site
// boundary.
func (o *Orchestrator) runSite(ctx context.Context, d registry.Descriptor, req Request) outcome {
	budget := o.cfg.StaticTimeout
	if d.RequiresBrowser {
		budget = o.cfg.RenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	strategy, err := o.strategies(d)
	if err != nil {
		return outcome{err: &SiteError{Site: d.ID, Kind: KindFetchFailed, Message: err.Error()}}
	}

	filter := req.Filters[d.ID]
	searchURL := d.Adapter.SearchURL(req.Query, filter)
	o.logger.Debug("dispatch", "site", d.ID, "strategy", strategy.Name(), "url", searchURL)

	page, err := strategy.Fetch(ctx, searchURL)
	if err != nil {
		return outcome{err: siteError(d.ID, err)}
	}

	doc, err := page.Document()
	if err != nil {
		return outcome{err: &SiteError{Site: d.ID, Kind: KindFetchFailed, Message: err.Error()}}
	}

	raw, err := d.Adapter.Extract(doc, filter)
	if err != nil {
		return outcome{err: siteError(d.ID, err)}
	}
	return outcome{raw: raw}
}

// siteError maps a fetch or extraction failure onto the SiteError taxonomy,
// preserving the originating site identifier.
func siteError(site string, err error) *SiteError {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		return &SiteError{Site: site, Kind: string(fe.Kind), Message: fe.Error()}
	}
	var le *sites.LayoutError
	if errors.As(err, &le) {
		return &SiteError{Site: site, Kind: KindLayoutChanged, Message: le.Error()}
	}
	return &SiteError{Site: site, Kind: KindFetchFailed, Message: err.Error()}
}
