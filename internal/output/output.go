// Package output renders a scrape result in the user-chosen format: console
// table, JSON, CSV, YAML, or a printable HTML document.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/threadcrawl/threadcrawl/internal/scrape"
)

// Renderer writes one scrape result to w.
type Renderer interface {
	Render(w io.Writer, res *scrape.Result) error
	// Ext is the file extension for this format, without the dot.
	Ext() string
}

// ForFormat returns the renderer for a format name.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return &Table{}, nil
	case "json":
		return &JSON{}, nil
	case "csv":
		return &CSV{}, nil
	case "yaml", "yml":
		return &YAML{}, nil
	case "doc", "html":
		return &Document{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// WriteFile renders the result into dir/name with the renderer's extension.
// Spaces in the name are replaced so the file is shell-friendly.
func WriteFile(r Renderer, dir, name string, res *scrape.Result) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" {
		name = "results"
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	path := filepath.Join(dir, name+"."+r.Ext())

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := r.Render(f, res); err != nil {
		// Don't leave a truncated file behind to be mistaken for output.
		f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
