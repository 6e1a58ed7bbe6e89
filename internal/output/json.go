package output

import (
	"encoding/json"
	"io"

	"github.com/threadcrawl/threadcrawl/internal/normalize"
	"github.com/threadcrawl/threadcrawl/internal/scrape"
)

// JSON renders the listings as an indented JSON array, with errors attached
// so a failed site is never silently invisible in the output.
type JSON struct{}

func (*JSON) Ext() string { return "json" }

func (*JSON) Render(w io.Writer, res *scrape.Result) error {
	payload := struct {
		ID       string              `json:"id"`
		Query    string              `json:"query"`
		Listings []normalize.Listing `json:"listings"`
		Errors   []scrape.SiteError  `json:"errors,omitempty"`
	}{
		ID:       res.ID,
		Query:    res.Query,
		Listings: res.Listings,
		Errors:   res.Errors,
	}
	if payload.Listings == nil {
		payload.Listings = []normalize.Listing{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
