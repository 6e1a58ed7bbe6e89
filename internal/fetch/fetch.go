// Package fetch retrieves marketplace pages. Two interchangeable strategies
// implement the same capability: a plain HTTP exchange for server-rendered
// pages and a headless browser session for pages that need script execution
// before listings appear.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindConnectionRefused Kind = "connection_refused"
	KindHTTPStatus        Kind = "http_status"
	KindRenderTimeout     Kind = "render_timeout"
)

// Error is a failed page retrieval. Status is set only for KindHTTPStatus.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	default:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Page is a retrieved document.
type Page struct {
	URL        string
	Body       []byte
	StatusCode int
	Rendered   bool
	Duration   time.Duration
}

// Document parses the page body into a goquery document.
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.URL, err)
	}
	return doc, nil
}

// Strategy retrieves a document given a URL. Implementations must be safe to
// use for the duration of a single adapter invocation; rendering sessions
// are never shared across concurrently running sites.
type Strategy interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	// Name identifies the strategy for logs and metrics.
	Name() string
}
