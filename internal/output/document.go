package output

import (
	"fmt"
	"html/template"
	"io"

	"github.com/threadcrawl/threadcrawl/internal/scrape"
)

// Document renders a printable HTML page: the listings table followed by a
// failure summary.
type Document struct{}

func (*Document) Ext() string { return "html" }

const documentTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Listings for {{.Query}}</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  table { border-collapse: collapse; margin-top: 10px; width: 100%; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
  td.price { text-align: right; white-space: nowrap; }
  .errors { margin-top: 30px; color: #a33; }
  .meta { color: #777; font-size: 13px; }
</style>
</head>
<body>
  <h1>Listings for &ldquo;{{.Query}}&rdquo;</h1>
  <p class="meta">{{len .Listings}} listings from {{.Sites}} site(s), fetched {{.StartedAt.Format "2006-01-02 15:04:05"}} (run {{.ID}})</p>

  <table>
    <tr><th>Site</th><th>Title</th><th>Price</th><th>Designer</th><th>Size</th><th>Condition</th><th>Link</th></tr>
    {{- range .Listings}}
    <tr>
      <td>{{.Site}}</td>
      <td>{{.Title}}</td>
      <td class="price">{{printf "%.2f" .Price}}</td>
      <td>{{.Designer}}</td>
      <td>{{if .SizeCanonical}}{{.SizeCanonical}}{{else}}{{.Size}}{{end}}</td>
      <td>{{if .Condition}}{{.Condition}}{{end}}</td>
      <td><a href="{{.URL}}">view</a></td>
    </tr>
    {{- else}}
    <tr><td colspan="7">No listings</td></tr>
    {{- end}}
  </table>

  {{- if .Errors}}
  <div class="errors">
    <h3>{{len .Errors}} site(s) failed</h3>
    <table>
      <tr><th>Site</th><th>Kind</th><th>Message</th></tr>
      {{- range .Errors}}
      <tr><td>{{.Site}}</td><td>{{.Kind}}</td><td>{{.Message}}</td></tr>
      {{- end}}
    </table>
  </div>
  {{- end}}
</body>
</html>
`

func (*Document) Render(w io.Writer, res *scrape.Result) error {
	t, err := template.New("document").Parse(documentTmpl)
	if err != nil {
		return fmt.Errorf("parse document template: %w", err)
	}
	return t.Execute(w, res)
}
