package output

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/threadcrawl/threadcrawl/internal/scrape"
)

// Table renders a console table of listings with any per-site failures
// summarized below it.
type Table struct{}

func (*Table) Ext() string { return "txt" }

func (*Table) Render(w io.Writer, res *scrape.Result) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Site", "Title", "Price", "Designer", "Size", "Condition", "Link"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 40},
		{Name: "Designer", WidthMax: 24},
		{Name: "Price", Align: text.AlignRight},
	})

	for _, l := range res.Listings {
		size := l.Size
		if l.SizeCanonical != nil {
			size = *l.SizeCanonical
		}
		t.AppendRow(table.Row{
			l.Site,
			l.Title,
			fmt.Sprintf("%.2f", l.Price),
			l.Designer,
			size,
			deref(l.Condition),
			l.URL,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	switch {
	case res.AllFailed():
		fmt.Fprintf(w, "\nevery enabled site failed (%d/%d); no results were retrieved\n",
			len(res.Errors), res.Sites)
	case len(res.Listings) == 0 && len(res.Errors) == 0:
		fmt.Fprintf(w, "\nno listings matched %q on any enabled site\n", res.Query)
	}

	if len(res.Errors) > 0 {
		fmt.Fprintf(w, "\n%d site(s) failed:\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  %-10s %-18s %s\n", e.Site, e.Kind, e.Message)
		}
	}
	if res.Dropped > 0 {
		fmt.Fprintf(w, "\n%d listing(s) dropped during normalization\n", res.Dropped)
	}
	return nil
}
