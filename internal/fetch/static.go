package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/threadcrawl/threadcrawl/internal/fingerprint"
	"github.com/threadcrawl/threadcrawl/internal/metrics"
	"github.com/threadcrawl/threadcrawl/pkg/httpclient"
	"github.com/threadcrawl/threadcrawl/pkg/proxy"
	"github.com/threadcrawl/threadcrawl/pkg/ratelimit"
	"github.com/threadcrawl/threadcrawl/pkg/useragent"
)

type contextKey string

// proxyKey carries the per-attempt proxy URL through the request context, so
// one shared transport can rotate proxies without mutating Transport.Proxy.
const proxyKey contextKey = "proxy_url"

// StaticConfig configures the plain-HTTP strategy.
type StaticConfig struct {
	// Site labels logs and metrics with the owning marketplace.
	Site    string
	Timeout time.Duration
	// Retries is how many times a transient network failure is retried.
	// HTTP error statuses are never retried.
	Retries      int
	MaxRedirects int
	Fingerprint  fingerprint.Profile
	UAPool       *useragent.Pool
	Limiter      *ratelimit.Limiter
	ProxyPool    *proxy.Pool
	Logger       *slog.Logger
}

// Static fetches pages with a single HTTP exchange per attempt.
type Static struct {
	cfg    StaticConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewStatic builds the static strategy. The underlying client is created
// once so connection pooling works across retries.
func NewStatic(cfg StaticConfig) (*Static, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Static{cfg: cfg, client: client, logger: cfg.Logger}, nil
}

func (s *Static) Name() string { return "static" }

// Fetch executes a GET against the URL, retrying transient network failures
// up to the configured count. A non-2xx response is returned as an
// http_status error immediately, never retried.
func (s *Static) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFetch(s.cfg.Site, s.Name(), time.Since(start))
	}()

	var lastErr *Error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if attempt > 0 {
			s.logger.Debug("retrying fetch", "site", s.cfg.Site, "url", targetURL, "attempt", attempt)
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return nil, &Error{Kind: KindTimeout, URL: targetURL, Err: ctx.Err()}
			}
		}

		page, ferr := s.fetchOnce(ctx, targetURL, start)
		if ferr == nil {
			return page, nil
		}
		lastErr = ferr
		// Retry only transient network failures, and only while the
		// per-site budget is still live.
		if !transient(ferr) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (s *Static) fetchOnce(ctx context.Context, targetURL string, start time.Time) (*Page, *Error) {
	if err := s.cfg.Limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindTimeout, URL: targetURL, Err: err}
	}

	// Each attempt draws a fresh proxy so a retry does not reuse the
	// endpoint that just failed.
	var activeProxy *url.URL
	if s.cfg.ProxyPool != nil {
		if activeProxy = s.cfg.ProxyPool.Next(); activeProxy != nil {
			ctx = context.WithValue(ctx, proxyKey, activeProxy)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindConnectionRefused, URL: targetURL, Err: err}
	}
	req.Header.Set("User-Agent", s.cfg.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		if activeProxy != nil {
			s.cfg.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailuresTotal.WithLabelValues(activeProxy.String()).Inc()
		}
		return nil, classifyNetErr(targetURL, err)
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		s.cfg.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyNetErr(targetURL, err)
	}

	page := &Page{
		URL:        targetURL,
		Body:       body,
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	}

	if source, ok := DetectChallenge(resp.StatusCode, resp.Header, body); ok {
		s.logger.Warn("bot challenge detected", "site", s.cfg.Site, "url", targetURL, "source", source)
		metrics.ChallengeDetectionsTotal.WithLabelValues(s.cfg.Site, source).Inc()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Kind: KindHTTPStatus, URL: targetURL, Status: resp.StatusCode}
	}
	return page, nil
}

// classifyNetErr maps a transport-level failure onto the fetch error taxonomy.
func classifyNetErr(targetURL string, err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, URL: targetURL, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, URL: targetURL, Err: err}
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return &Error{Kind: KindConnectionRefused, URL: targetURL, Err: err}
	default:
		return &Error{Kind: KindConnectionRefused, URL: targetURL, Err: err}
	}
}

// transient reports whether the failure is worth another attempt.
func transient(e *Error) bool {
	if e == nil {
		return false
	}
	return e.Kind == KindTimeout || e.Kind == KindConnectionRefused
}
