package workflow

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds execution engine parameters.
type Config struct {
	StepTimeout       string `toml:"step_timeout"`
	MaxConcurrentRuns int    `toml:"max_concurrent_runs"`
	DefaultModel      string `toml:"default_model"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	StepTimeout       string
	MaxConcurrentRuns string
	DefaultModel      string
}

// StepTimeoutDuration parses StepTimeout into a time.Duration.
func (c *Config) StepTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StepTimeout)
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
	if overlay.StepTimeout != "" {
		c.StepTimeout = overlay.StepTimeout
	}
	if overlay.MaxConcurrentRuns != 0 {
		c.MaxConcurrentRuns = overlay.MaxConcurrentRuns
	}
	if overlay.DefaultModel != "" {
		c.DefaultModel = overlay.DefaultModel
	}
}

func (c *Config) loadDefaults() {
	if c.StepTimeout == "" {
		c.StepTimeout = "2m"
	}
	if c.MaxConcurrentRuns == 0 {
		c.MaxConcurrentRuns = 4
	}
	if c.DefaultModel == "" {
		c.DefaultModel = "gemini-2.5-flash"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.StepTimeout != "" {
		if v := os.Getenv(env.StepTimeout); v != "" {
			c.StepTimeout = v
		}
	}
	if env.MaxConcurrentRuns != "" {
		if v := os.Getenv(env.MaxConcurrentRuns); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxConcurrentRuns = n
			}
		}
	}
	if env.DefaultModel != "" {
		if v := os.Getenv(env.DefaultModel); v != "" {
			c.DefaultModel = v
		}
	}
}

func (c *Config) validate() error {
	d, err := time.ParseDuration(c.StepTimeout)
	if err != nil {
		return fmt.Errorf("invalid step_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("step_timeout must be positive")
	}
	if c.MaxConcurrentRuns < 1 {
		return fmt.Errorf("max_concurrent_runs must be at least 1")
	}
	return nil
}
