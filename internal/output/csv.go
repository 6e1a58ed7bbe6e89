package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/threadcrawl/threadcrawl/internal/scrape"
)

// csvHeader matches the Listing field order.
var csvHeader = []string{
	"site",
	"title",
	"price",
	"designer",
	"size",
	"size_canonical",
	"condition",
	"url",
	"image_url",
	"fetched_at",
}

// CSV renders one row per listing with a fixed header row.
type CSV struct{}

func (*CSV) Ext() string { return "csv" }

func (*CSV) Render(w io.Writer, res *scrape.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range res.Listings {
		record := []string{
			l.Site,
			l.Title,
			strconv.FormatFloat(l.Price, 'f', 2, 64),
			l.Designer,
			l.Size,
			deref(l.SizeCanonical),
			deref(l.Condition),
			l.URL,
			l.ImageURL,
			l.FetchedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
