package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// An empty directory, so no threadcrawl.yaml is picked up.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("missing config file must not be an error: %v", err)
	}

	if cfg.Search.Count != 40 {
		t.Errorf("search.count: got %d", cfg.Search.Count)
	}
	if cfg.Output.Format != "table" {
		t.Errorf("output.format: got %q", cfg.Output.Format)
	}
	if cfg.Fetch.StaticTimeout != 15*time.Second {
		t.Errorf("fetch.static_timeout: got %v", cfg.Fetch.StaticTimeout)
	}
	if cfg.Fetch.SiteRenderTimeout != 35*time.Second {
		t.Errorf("fetch.site_render_timeout: got %v", cfg.Fetch.SiteRenderTimeout)
	}
	if cfg.Fetch.Retries != 2 {
		t.Errorf("fetch.retries: got %d", cfg.Fetch.Retries)
	}
	if cfg.Fetch.Fingerprint != "chrome" {
		t.Errorf("fetch.fingerprint: got %q", cfg.Fetch.Fingerprint)
	}
	if !cfg.Browser.Headless {
		t.Error("browser.headless must default to true")
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("metrics.port: got %d", cfg.Metrics.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log.level: got %q", cfg.Log.Level)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "threadcrawl.yaml")
	data := `
search:
  count: 10
  disable_sites: [grailed]
output:
  format: json
fetch:
  retries: 5
  requests_per_second: 0.5
  proxies:
    - http://proxy-a:8080
browser:
  headless: false
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Search.Count != 10 {
		t.Errorf("search.count: got %d", cfg.Search.Count)
	}
	if len(cfg.Search.DisableSites) != 1 || cfg.Search.DisableSites[0] != "grailed" {
		t.Errorf("disable_sites: got %v", cfg.Search.DisableSites)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("output.format: got %q", cfg.Output.Format)
	}
	if cfg.Fetch.Retries != 5 {
		t.Errorf("fetch.retries: got %d", cfg.Fetch.Retries)
	}
	if cfg.Fetch.RequestsPerSecond != 0.5 {
		t.Errorf("requests_per_second: got %v", cfg.Fetch.RequestsPerSecond)
	}
	if len(cfg.Fetch.Proxies) != 1 {
		t.Errorf("proxies: got %v", cfg.Fetch.Proxies)
	}
	if cfg.Browser.Headless {
		t.Error("headless override not applied")
	}
	// Untouched keys keep their defaults.
	if cfg.Fetch.Fingerprint != "chrome" {
		t.Errorf("fingerprint default lost: %q", cfg.Fetch.Fingerprint)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("slog level: got %v", cfg.SlogLevel())
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("an explicitly named missing file must fail")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{Log: LogConfig{Level: tt.in}}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
