package main

import (
	"log/slog"

	"github.com/threadcrawl/threadcrawl/internal/config"
	"github.com/threadcrawl/threadcrawl/internal/fetch"
	"github.com/threadcrawl/threadcrawl/internal/fingerprint"
	"github.com/threadcrawl/threadcrawl/internal/registry"
	"github.com/threadcrawl/threadcrawl/internal/scrape"
	"github.com/threadcrawl/threadcrawl/pkg/proxy"
	"github.com/threadcrawl/threadcrawl/pkg/ratelimit"
	"github.com/threadcrawl/threadcrawl/pkg/useragent"
)

// strategyFactory builds a fresh fetch strategy per adapter invocation,
// selected by the descriptor's rendering capability flag. The User-Agent
// pool and rate limiter are shared across sites; browser sessions are not.
func strategyFactory(cfg *config.Config, logger *slog.Logger) scrape.StrategyFactory {
	uaPool := useragent.NewPool(cfg.Fetch.UserAgents)
	limiter := ratelimit.NewLimiter(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Jitter)

	var proxyPool *proxy.Pool
	if len(cfg.Fetch.Proxies) > 0 {
		proxyPool = proxy.NewPool(proxy.Config{})
		if err := proxyPool.Add(cfg.Fetch.Proxies...); err != nil {
			logger.Warn("ignoring invalid proxy configuration", "err", err)
			proxyPool = nil
		}
	}

	return func(d registry.Descriptor) (fetch.Strategy, error) {
		if d.RequiresBrowser {
			return fetch.NewRender(fetch.RenderConfig{
				Site:          d.ID,
				Timeout:       cfg.Fetch.RenderTimeout,
				Headless:      cfg.Browser.Headless,
				ReadySelector: d.ReadySelector,
				SettleDelay:   cfg.Browser.SettleDelay,
				UserAgent:     uaPool.Next(),
				Logger:        logger,
			}), nil
		}
		return fetch.NewStatic(fetch.StaticConfig{
			Site:        d.ID,
			Timeout:     cfg.Fetch.StaticTimeout,
			Retries:     cfg.Fetch.Retries,
			Fingerprint: fingerprint.Profile(cfg.Fetch.Fingerprint),
			UAPool:      uaPool,
			Limiter:     limiter,
			ProxyPool:   proxyPool,
			Logger:      logger,
		})
	}
}
