// Command threadcrawl searches secondhand-fashion marketplaces for a query
// and prints the merged listings as a table, JSON, CSV, YAML, or a printable
// HTML document.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/threadcrawl/threadcrawl/internal/config"
	"github.com/threadcrawl/threadcrawl/internal/metrics"
	"github.com/threadcrawl/threadcrawl/internal/output"
	"github.com/threadcrawl/threadcrawl/internal/registry"
	"github.com/threadcrawl/threadcrawl/internal/scrape"
	"github.com/threadcrawl/threadcrawl/internal/sites"
)

var (
	flagConfig      string
	flagSearch      string
	flagEnableSite  string
	flagDisableSite string
	flagJSON        bool
	flagCSV         bool
	flagYAML        bool
	flagDoc         bool
	flagOutput      string
	flagOutputDir   string
	flagCount       int
	flagHeadless    bool
	flagMetrics     bool
)

var rootCmd = &cobra.Command{
	Use:   "threadcrawl",
	Short: "Scrape secondhand-fashion marketplaces for a search term",
	Long: `threadcrawl dispatches one search across every enabled marketplace
concurrently, normalizes the per-site listings into one dataset, and renders
it in the chosen format. By default all registered sites are enabled and the
result prints as a console table.`,
	RunE:          runSearch,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagConfig, "config", "", "path to config file (default ./threadcrawl.yaml)")
	f.StringVarP(&flagSearch, "search", "s", "", "search query to scrape for")
	f.StringVar(&flagEnableSite, "enable-site", "", "enable specific site(s) (comma-separated)")
	f.StringVar(&flagDisableSite, "disable-site", "", "disable specific site(s) (comma-separated)")
	f.BoolVarP(&flagJSON, "json", "j", false, "output as JSON")
	f.BoolVarP(&flagCSV, "csv", "c", false, "output as CSV")
	f.BoolVarP(&flagYAML, "yaml", "y", false, "output as YAML")
	f.BoolVar(&flagDoc, "doc", false, "output as printable HTML document")
	f.StringVarP(&flagOutput, "output", "o", "", "output file name (without extension)")
	f.StringVar(&flagOutputDir, "output-dir", "", "output directory")
	f.IntVar(&flagCount, "count", 0, "max listings to scrape per site")
	f.BoolVar(&flagHeadless, "headless", true, "run the rendering browser headless")
	f.BoolVar(&flagMetrics, "metrics", false, "expose Prometheus metrics while running")

	_ = rootCmd.MarkFlagRequired("search")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if flagMetrics || cfg.Metrics.Enabled {
		srv := metrics.Start(cfg.Metrics.Port, logger)
		defer func() { _ = srv.Stop(context.Background()) }()
	}

	reg, err := buildRegistry(logger)
	if err != nil {
		return err
	}

	orch := scrape.New(reg, strategyFactory(cfg, logger), scrape.Config{
		StaticTimeout: cfg.Fetch.SiteStaticTimeout,
		RenderTimeout: cfg.Fetch.SiteRenderTimeout,
	}, logger)

	req := scrape.Request{
		Query:        flagSearch,
		EnableSites:  cfg.Search.EnableSites,
		DisableSites: cfg.Search.DisableSites,
		Filters:      siteFilters(reg, cfg.Search.Count),
	}

	res, err := orch.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	renderer, err := output.ForFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	if cfg.Output.File != "" {
		name := cfg.Output.File
		path, err := output.WriteFile(renderer, cfg.Output.Dir, name, res)
		if err != nil {
			return err
		}
		logger.Info("results written", "path", path)
		return nil
	}
	return renderer.Render(os.Stdout, res)
}

// applyFlags layers explicit CLI flags over the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if flagEnableSite != "" {
		cfg.Search.EnableSites = splitSites(flagEnableSite)
	}
	if flagDisableSite != "" {
		cfg.Search.DisableSites = splitSites(flagDisableSite)
	}
	switch {
	case flagJSON:
		cfg.Output.Format = "json"
	case flagCSV:
		cfg.Output.Format = "csv"
	case flagYAML:
		cfg.Output.Format = "yaml"
	case flagDoc:
		cfg.Output.Format = "doc"
	}
	if flagOutput != "" {
		cfg.Output.File = flagOutput
	}
	if flagOutputDir != "" {
		cfg.Output.Dir = flagOutputDir
	}
	if flagCount > 0 {
		cfg.Search.Count = flagCount
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = flagHeadless
	}
}

func splitSites(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// buildRegistry registers every supported marketplace. Adding a site means
// implementing sites.Adapter and registering its descriptor here; shared
// code never branches on a site name.
func buildRegistry(logger *slog.Logger) (*registry.Registry, error) {
	reg := registry.New()
	descriptors := []registry.Descriptor{
		{
			ID:              "grailed",
			Name:            "Grailed",
			RequiresBrowser: true,
			ReadySelector:   ".feed-item",
			Adapter:         sites.NewGrailed(logger),
		},
		{
			ID:      "depop",
			Name:    "Depop",
			Adapter: sites.NewDepop(logger),
		},
	}
	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func siteFilters(reg *registry.Registry, count int) map[string]sites.Filter {
	filters := make(map[string]sites.Filter)
	for _, d := range reg.All() {
		filters[d.ID] = sites.Filter{MaxResults: count}
	}
	return filters
}
