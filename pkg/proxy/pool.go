// Package proxy rotates outbound requests across a set of proxy endpoints
// and sidelines endpoints that keep failing.
package proxy

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

type endpoint struct {
	url           *url.URL
	failures      int
	disabledUntil time.Time
}

// Pool is a round-robin proxy rotation with failure cooldowns. Safe for
// concurrent use.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	next        int
	maxFailures int
	cooldown    time.Duration
}

// Config defines pool behavior. Zero values get defaults.
type Config struct {
	// MaxFailures before an endpoint is sidelined.
	MaxFailures int
	// Cooldown is how long a sidelined endpoint stays out of rotation.
	Cooldown time.Duration
}

func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{maxFailures: cfg.MaxFailures, cooldown: cfg.Cooldown}
}

// Add parses raw proxy URLs into the pool. A missing scheme defaults to http.
func (p *Pool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, raw := range rawURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid proxy url %q: %w", raw, err)
		}
		p.endpoints = append(p.endpoints, &endpoint{url: u})
	}
	return nil
}

// Next returns the next healthy proxy URL, or nil if the pool is empty or
// every endpoint is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for range p.endpoints {
		e := p.endpoints[p.next%len(p.endpoints)]
		p.next++
		if e.disabledUntil.After(now) {
			continue
		}
		return e.url
	}
	return nil
}

// MarkFailure records a failed request through the given proxy. Hitting the
// failure limit sidelines the endpoint for the cooldown period.
func (p *Pool) MarkFailure(u *url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.endpoints {
		if e.url.String() != u.String() {
			continue
		}
		e.failures++
		if e.failures >= p.maxFailures {
			e.disabledUntil = time.Now().Add(p.cooldown)
			e.failures = 0
		}
		return
	}
}

// MarkSuccess resets the failure count of the given proxy.
func (p *Pool) MarkSuccess(u *url.URL) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.endpoints {
		if e.url.String() == u.String() {
			e.failures = 0
			return
		}
	}
}

// Size reports how many endpoints the pool holds.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}
