// Package sites defines the extraction adapter contract and the concrete
// per-marketplace adapters. An adapter knows how to build its site's search
// URL and how to decode listing nodes out of the fetched document; it never
// performs network I/O itself.
package sites

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// RawListing is the loosely-typed, site-specific field set for one item as
// it came off the page. It is owned by the adapter call that produced it
// until the normalizer consumes it.
type RawListing map[string]string

// Filter carries the per-site search options a caller may set.
type Filter struct {
	// Category narrows the search to a site category, if the site supports it.
	Category string
	// MaxResults caps the number of listings extracted from the page.
	// Zero means no cap.
	MaxResults int
}

// Adapter is the capability each marketplace implements. Extract decodes
// listing nodes from an already-fetched document; it returns an empty slice
// (not an error) when the query simply matched nothing, and a *LayoutError
// when the structural anchors it relies on are gone from the page.
type Adapter interface {
	ID() string
	SearchURL(query string, f Filter) string
	Extract(doc *goquery.Document, f Filter) ([]RawListing, error)
}

// LayoutError reports that a site's page no longer contains the structural
// anchors the adapter was written against, which is distinct from a search
// that returned zero results.
type LayoutError struct {
	Site   string
	Anchor string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%s: page layout changed, anchor %q not found", e.Site, e.Anchor)
}
