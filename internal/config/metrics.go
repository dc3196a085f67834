package config

import (
	"fmt"
	"net/url"
	"os"
)

const (
	EnvMetricsPushURL = "PROMPTHUB_METRICS_PUSH_URL"
	EnvMetricsJob     = "PROMPTHUB_METRICS_JOB"
)

// MetricsConfig controls where run metrics go once a command finishes.
// An empty PushURL keeps them in-process.
type MetricsConfig struct {
	PushURL string `toml:"push_url"`
	Job     string `toml:"job"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *MetricsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *MetricsConfig) Merge(overlay *MetricsConfig) {
	if overlay.PushURL != "" {
		c.PushURL = overlay.PushURL
	}
	if overlay.Job != "" {
		c.Job = overlay.Job
	}
}

func (c *MetricsConfig) loadDefaults() {
	if c.Job == "" {
		c.Job = "prompthub"
	}
}

func (c *MetricsConfig) loadEnv() {
	if v := os.Getenv(EnvMetricsPushURL); v != "" {
		c.PushURL = v
	}
	if v := os.Getenv(EnvMetricsJob); v != "" {
		c.Job = v
	}
}

func (c *MetricsConfig) validate() error {
	if c.PushURL == "" {
		return nil
	}
	u, err := url.Parse(c.PushURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid push_url %q", c.PushURL)
	}
	return nil
}
