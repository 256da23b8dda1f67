// Package config loads the scraper's configuration from an optional YAML
// file, filling anything unset with defaults that match the target site.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bizharvest/scrape"
)

// Config is the structure of the optional config file.
type Config struct {
	// BaseURL is the homepage to scan for section links.
	BaseURL string `yaml:"base_url"`
	// PathMarker filters links to the target section.
	PathMarker string `yaml:"path_marker"`
	// Database is the SQLite file path.
	Database string `yaml:"database"`
	// RequestDelay is the politeness interval between article fetches,
	// in time.ParseDuration syntax (e.g. "800ms").
	RequestDelay string `yaml:"request_delay"`
	// Jitter, when set, randomizes each delay by up to this much.
	Jitter string `yaml:"jitter"`
	// FeedURL optionally names a section RSS/Atom feed to scan for extra
	// candidate links.
	FeedURL string `yaml:"feed_url"`
	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent"`
	// RespectRobots enables the robots.txt gate.
	RespectRobots bool `yaml:"respect_robots"`
	// Strategy overrides the built-in field lookup rules when the site's
	// markup drifts.
	Strategy *scrape.Strategy `yaml:"strategy,omitempty"`
}

// DefaultDelay is the politeness interval used when none is configured.
const DefaultDelay = 800 * time.Millisecond

// Default returns the configuration matching the original tool's behavior.
func Default() *Config {
	return &Config{
		BaseURL:      "https://www.moneycontrol.com/",
		PathMarker:   "/business/",
		Database:     "articles.db",
		RequestDelay: "800ms",
	}
}

// Load reads configuration from the YAML file at path. A missing file is
// not an error and yields the defaults; a file that exists but cannot be
// parsed is an error. Fields left unset in the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	defaults := Default()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.PathMarker == "" {
		cfg.PathMarker = defaults.PathMarker
	}
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	if cfg.RequestDelay == "" {
		cfg.RequestDelay = defaults.RequestDelay
	}

	return cfg, nil
}

// Delay returns the parsed politeness interval, falling back to the
// default when the configured value doesn't parse.
func (c *Config) Delay() time.Duration {
	if d, err := time.ParseDuration(c.RequestDelay); err == nil && d >= 0 {
		return d
	}
	return DefaultDelay
}

// JitterDuration returns the parsed jitter, or zero when unset or invalid.
func (c *Config) JitterDuration() time.Duration {
	if c.Jitter == "" {
		return 0
	}
	if d, err := time.ParseDuration(c.Jitter); err == nil && d > 0 {
		return d
	}
	return 0
}
