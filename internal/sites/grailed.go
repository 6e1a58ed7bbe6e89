package sites

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	grailedBaseURL = "https://www.grailed.com"

	// Grailed ships hashed CSS-module class names, so anchors match on the
	// stable module prefix rather than the full hashed class.
	grailedFeedSelector     = "div.feed"
	grailedItemSelector     = ".feed-item"
	grailedTitleSelector    = `p[class*="ListingMetadata-module__title"]`
	grailedDesignerSelector = `div[class*="ListingMetadata-module__designerAndSize"] > p:first-child`
	grailedSizeSelector     = `p[class*="ListingMetadata-module__size"]`
	grailedPriceSelector    = `span[data-testid="Current"]`
	grailedAgeSelector      = `span[class*="ListingAge-module__dateAgo"]`
)

// Grailed extracts listings from the grailed.com search feed. The feed is
// populated by script, so the descriptor pairs it with the rendering fetch
// strategy.
type Grailed struct {
	logger *slog.Logger
}

func NewGrailed(logger *slog.Logger) *Grailed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grailed{logger: logger}
}

func (g *Grailed) ID() string { return "grailed" }

func (g *Grailed) SearchURL(query string, f Filter) string {
	q := url.Values{}
	q.Set("query", query)
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	return grailedBaseURL + "/shop?" + q.Encode()
}

func (g *Grailed) Extract(doc *goquery.Document, f Filter) ([]RawListing, error) {
	if doc.Find(grailedFeedSelector).Length() == 0 {
		return nil, &LayoutError{Site: g.ID(), Anchor: grailedFeedSelector}
	}

	var (
		listings  []RawListing
		malformed int
	)
	doc.Find(grailedItemSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if f.MaxResults > 0 && len(listings) >= f.MaxResults {
			return false
		}

		href, ok := item.Find("a.listing-item-link").Attr("href")
		if !ok {
			// A feed tile without a listing link is a promo card or a
			// half-rendered node. Skip it, don't fail the page.
			malformed++
			return true
		}

		raw := RawListing{
			"title":    item.Find(grailedTitleSelector).Text(),
			"designer": item.Find(grailedDesignerSelector).Text(),
			"size":     item.Find(grailedSizeSelector).Text(),
			"price":    item.Find(grailedPriceSelector).First().Text(),
			"posted":   strings.TrimSuffix(item.Find(grailedAgeSelector).Text(), " ago"),
			"url":      grailedListingURL(href),
		}
		if src, ok := item.Find("img").First().Attr("src"); ok {
			raw["image_url"] = src
		}
		listings = append(listings, raw)
		return true
	})

	if malformed > 0 {
		g.logger.Warn("skipped malformed listing nodes", "site", g.ID(), "count", malformed)
	}
	return listings, nil
}

// grailedListingURL resolves a feed href to an absolute listing URL with
// tracking parameters stripped.
func grailedListingURL(href string) string {
	href, _, _ = strings.Cut(href, "?")
	if strings.HasPrefix(href, "http") {
		return href
	}
	return grailedBaseURL + href
}
