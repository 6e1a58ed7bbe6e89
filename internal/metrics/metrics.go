// Package metrics exposes Prometheus instrumentation for scrape runs and an
// optional /metrics HTTP server.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SiteScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcrawl_site_scrapes_total",
			Help: "Per-site scrape outcomes (success, empty, or an error kind)",
		},
		[]string{"site", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threadcrawl_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"site", "strategy"},
	)

	ListingsExtractedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcrawl_listings_extracted_total",
			Help: "Raw listings extracted per site before normalization",
		},
		[]string{"site"},
	)

	ListingsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcrawl_listings_dropped_total",
			Help: "Listings dropped during normalization, by offending field",
		},
		[]string{"site", "field"},
	)

	ChallengeDetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcrawl_challenge_detections_total",
			Help: "Bot-challenge pages recognized during static fetches",
		},
		[]string{"site", "source"},
	)

	ProxyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadcrawl_proxy_failures_total",
			Help: "Requests that failed while routed through a proxy endpoint",
		},
		[]string{"proxy_url"},
	)
)

// RecordFetch observes one fetch against the duration histogram.
func RecordFetch(site, strategy string, d time.Duration) {
	FetchDuration.WithLabelValues(site, strategy).Observe(d.Seconds())
}

// Server exposes Prometheus metrics over HTTP.
type Server struct {
	srv *http.Server
}

// Start begins listening on the given port and serves /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
