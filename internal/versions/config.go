package versions

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds version store parameters.
type Config struct {
	Root         string `toml:"root"`
	HistoryLimit int    `toml:"history_limit"`
	AuthorDomain string `toml:"author_domain"`
	SystemName   string `toml:"system_name"`
	SystemEmail  string `toml:"system_email"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Root         string
	HistoryLimit string
	AuthorDomain string
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
	if overlay.Root != "" {
		c.Root = overlay.Root
	}
	if overlay.HistoryLimit != 0 {
		c.HistoryLimit = overlay.HistoryLimit
	}
	if overlay.AuthorDomain != "" {
		c.AuthorDomain = overlay.AuthorDomain
	}
	if overlay.SystemName != "" {
		c.SystemName = overlay.SystemName
	}
	if overlay.SystemEmail != "" {
		c.SystemEmail = overlay.SystemEmail
	}
}

// System returns the signature used for bootstrap commits.
func (c *Config) System() Signature {
	return Signature{Name: c.SystemName, Email: c.SystemEmail}
}

func (c *Config) loadDefaults() {
	if c.Root == "" {
		c.Root = "data/prompts-repo"
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 50
	}
	if c.AuthorDomain == "" {
		c.AuthorDomain = "prompthub.local"
	}
	if c.SystemName == "" {
		c.SystemName = "Prompt Hub System"
	}
	if c.SystemEmail == "" {
		c.SystemEmail = "system@" + c.AuthorDomain
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Root != "" {
		if v := os.Getenv(env.Root); v != "" {
			c.Root = v
		}
	}
	if env.HistoryLimit != "" {
		if v := os.Getenv(env.HistoryLimit); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.HistoryLimit = n
			}
		}
	}
	if env.AuthorDomain != "" {
		if v := os.Getenv(env.AuthorDomain); v != "" {
			c.AuthorDomain = v
		}
	}
}

func (c *Config) validate() error {
	if c.Root == "" {
		return fmt.Errorf("root required")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be positive")
	}
	return nil
}
