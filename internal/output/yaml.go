package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/threadcrawl/threadcrawl/internal/normalize"
	"github.com/threadcrawl/threadcrawl/internal/scrape"
)

// YAML renders the same structure as the JSON renderer in YAML.
type YAML struct{}

func (*YAML) Ext() string { return "yaml" }

func (*YAML) Render(w io.Writer, res *scrape.Result) error {
	payload := struct {
		ID       string              `yaml:"id"`
		Query    string              `yaml:"query"`
		Listings []normalize.Listing `yaml:"listings"`
		Errors   []scrape.SiteError  `yaml:"errors,omitempty"`
	}{
		ID:       res.ID,
		Query:    res.Query,
		Listings: res.Listings,
		Errors:   res.Errors,
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(payload)
}
