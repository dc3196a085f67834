package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Redis connection parameters. An empty Addr and URL disables the cache.
type Config struct {
	URL         string `toml:"url"`
	Addr        string `toml:"addr"`
	Password    string `toml:"password"`
	DB          int    `toml:"db"`
	Prefix      string `toml:"prefix"`
	TTL         string `toml:"ttl"`
	DialTimeout string `toml:"dial_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL         string
	Addr        string
	Password    string
	DB          string
	Prefix      string
	TTL         string
	DialTimeout string
}

// Enabled reports whether a Redis endpoint is configured.
func (c *Config) Enabled() bool {
	return c.URL != "" || c.Addr != ""
}

// TTLDuration returns TTL as a time.Duration.
func (c *Config) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// DialTimeoutDuration returns DialTimeout as a time.Duration.
func (c *Config) DialTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DialTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Addr != "" {
		c.Addr = overlay.Addr
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
	if overlay.DB != 0 {
		c.DB = overlay.DB
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.DialTimeout != "" {
		c.DialTimeout = overlay.DialTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Prefix == "" {
		c.Prefix = "prompthub"
	}
	if c.TTL == "" {
		c.TTL = "10m"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "2s"
	}
}

func (c *Config) loadEnv(env *Env) {
	lookup := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	lookup(env.URL, &c.URL)
	lookup(env.Addr, &c.Addr)
	lookup(env.Password, &c.Password)
	lookup(env.Prefix, &c.Prefix)
	lookup(env.TTL, &c.TTL)
	lookup(env.DialTimeout, &c.DialTimeout)

	if env.DB != "" {
		if v := os.Getenv(env.DB); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.DB = n
			}
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.TTL); err != nil {
		return fmt.Errorf("invalid ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf("invalid dial_timeout: %w", err)
	}
	if c.DB < 0 {
		return fmt.Errorf("db must be non-negative")
	}
	return nil
}
