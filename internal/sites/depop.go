package sites

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	depopBaseURL = "https://www.depop.com"

	depopGridSelector  = `main`
	depopCardSelector  = `a[class*="ProductCard"]`
	depopPriceSelector = `p[aria-label="Price"], p[aria-label="Discounted price"]`
	depopSizeSelector  = `p[aria-label="Size"]`
	depopBrandSelector = `p[aria-label="Brand"]`
)

// Depop extracts listings from the depop.com search grid. The initial grid
// is server-rendered, so the static fetch strategy is enough.
type Depop struct {
	logger *slog.Logger
}

func NewDepop(logger *slog.Logger) *Depop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Depop{logger: logger}
}

func (d *Depop) ID() string { return "depop" }

func (d *Depop) SearchURL(query string, f Filter) string {
	q := url.Values{}
	q.Set("q", query)
	// Newest-first matches what a secondhand shopper wants to see.
	q.Set("sort", "newlyListed")
	if f.Category != "" {
		q.Set("categories", f.Category)
	}
	return depopBaseURL + "/search/?" + q.Encode()
}

func (d *Depop) Extract(doc *goquery.Document, f Filter) ([]RawListing, error) {
	if doc.Find(depopGridSelector).Length() == 0 {
		return nil, &LayoutError{Site: d.ID(), Anchor: depopGridSelector}
	}

	var (
		listings  []RawListing
		malformed int
	)
	doc.Find(depopCardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if f.MaxResults > 0 && len(listings) >= f.MaxResults {
			return false
		}

		href, ok := card.Attr("href")
		if !ok || !strings.HasPrefix(href, "/products/") {
			malformed++
			return true
		}

		raw := RawListing{
			"price": card.Find(depopPriceSelector).First().Text(),
			"size":  card.Find(depopSizeSelector).First().Text(),
			"brand": card.Find(depopBrandSelector).First().Text(),
			"url":   depopBaseURL + href,
		}
		if img := card.Find("img").First(); img.Length() > 0 {
			// Depop cards carry no text title; the image alt text is the
			// closest thing to one.
			raw["title"] = img.AttrOr("alt", "")
			if src, ok := img.Attr("src"); ok {
				raw["image_url"] = src
			}
		}
		if cond := card.Find(`p[aria-label="Condition"]`).First().Text(); cond != "" {
			raw["condition"] = cond
		}
		listings = append(listings, raw)
		return true
	})

	if malformed > 0 {
		d.logger.Warn("skipped malformed listing nodes", "site", d.ID(), "count", malformed)
	}
	return listings, nil
}
