// Package config loads the optional on-disk configuration and translates it
// into the settings the orchestration core consumes. CLI flags override
// config-file values; the file is optional.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Browser BrowserConfig `yaml:"browser" mapstructure:"browser"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SearchConfig selects sites and caps results.
type SearchConfig struct {
	EnableSites  []string `yaml:"enable_sites" mapstructure:"enable_sites"`
	DisableSites []string `yaml:"disable_sites" mapstructure:"disable_sites"`
	Count        int      `yaml:"count" mapstructure:"count"`
}

// OutputConfig selects the renderer and destination.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
	Dir    string `yaml:"dir" mapstructure:"dir"`
}

// FetchConfig tunes the static strategy and the per-site budgets.
type FetchConfig struct {
	StaticTimeout     time.Duration `yaml:"static_timeout" mapstructure:"static_timeout"`
	RenderTimeout     time.Duration `yaml:"render_timeout" mapstructure:"render_timeout"`
	SiteStaticTimeout time.Duration `yaml:"site_static_timeout" mapstructure:"site_static_timeout"`
	SiteRenderTimeout time.Duration `yaml:"site_render_timeout" mapstructure:"site_render_timeout"`
	Retries           int           `yaml:"retries" mapstructure:"retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Jitter            float64       `yaml:"jitter" mapstructure:"jitter"`
	Fingerprint       string        `yaml:"fingerprint" mapstructure:"fingerprint"`
	UserAgents        []string      `yaml:"user_agents" mapstructure:"user_agents"`
	Proxies           []string      `yaml:"proxies" mapstructure:"proxies"`
}

// BrowserConfig tunes the rendering strategy.
type BrowserConfig struct {
	Headless    bool          `yaml:"headless" mapstructure:"headless"`
	SettleDelay time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Port    int  `yaml:"port" mapstructure:"port"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Load reads threadcrawl.yaml from the given path (or the working directory
// and ~/.config/threadcrawl when empty) plus THREADCRAWL_* environment
// variables. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("threadcrawl")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/threadcrawl")
	}
	v.SetEnvPrefix("THREADCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.count", 40)
	v.SetDefault("output.format", "table")
	v.SetDefault("fetch.static_timeout", 15*time.Second)
	v.SetDefault("fetch.render_timeout", 30*time.Second)
	v.SetDefault("fetch.site_static_timeout", 20*time.Second)
	v.SetDefault("fetch.site_render_timeout", 35*time.Second)
	v.SetDefault("fetch.retries", 2)
	v.SetDefault("fetch.fingerprint", "chrome")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.settle_delay", 3*time.Second)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("log.level", "info")
}

// SlogLevel translates the configured level name.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
