package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/prompthub/internal/providers"
	"github.com/JaimeStill/prompthub/internal/versions"
	"github.com/JaimeStill/prompthub/internal/workflow"
	"github.com/JaimeStill/prompthub/pkg/cache"
	"github.com/JaimeStill/prompthub/pkg/database"
	"github.com/JaimeStill/prompthub/pkg/pagination"
	"github.com/JaimeStill/prompthub/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvPrompthubEnv             = "PROMPTHUB_ENV"
	EnvPrompthubConfig          = "PROMPTHUB_CONFIG"
	EnvPrompthubLogLevel        = "PROMPTHUB_LOG_LEVEL"
	EnvPrompthubShutdownTimeout = "PROMPTHUB_SHUTDOWN_TIMEOUT"
	EnvPrompthubVersion         = "PROMPTHUB_VERSION"
)

var versionsEnv = &versions.Env{
	Root:         "PROMPTHUB_REPO_ROOT",
	HistoryLimit: "PROMPTHUB_HISTORY_LIMIT",
	AuthorDomain: "PROMPTHUB_AUTHOR_DOMAIN",
}

var databaseEnv = &database.Env{
	URL:             "PROMPTHUB_DB_DSN",
	Host:            "PROMPTHUB_DB_HOST",
	Port:            "PROMPTHUB_DB_PORT",
	Name:            "PROMPTHUB_DB_NAME",
	User:            "PROMPTHUB_DB_USER",
	Password:        "PROMPTHUB_DB_PASSWORD",
	SSLMode:         "PROMPTHUB_DB_SSL_MODE",
	MaxOpenConns:    "PROMPTHUB_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "PROMPTHUB_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "PROMPTHUB_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "PROMPTHUB_DB_CONN_TIMEOUT",
	ApplicationName: "PROMPTHUB_DB_APPLICATION_NAME",
}

var storageEnv = &storage.Env{
	ContainerName:    "PROMPTHUB_STORAGE_CONTAINER_NAME",
	ConnectionString: "PROMPTHUB_STORAGE_CONNECTION_STRING",
	ServiceURL:       "PROMPTHUB_STORAGE_SERVICE_URL",
	MaxListSize:      "PROMPTHUB_STORAGE_MAX_LIST_SIZE",
}

var cacheEnv = &cache.Env{
	URL:         "PROMPTHUB_REDIS_URL",
	Addr:        "PROMPTHUB_REDIS_ADDR",
	Password:    "PROMPTHUB_REDIS_PASSWORD",
	DB:          "PROMPTHUB_REDIS_DB",
	Prefix:      "PROMPTHUB_REDIS_PREFIX",
	TTL:         "PROMPTHUB_REDIS_TTL",
	DialTimeout: "PROMPTHUB_REDIS_DIAL_TIMEOUT",
}

var executionEnv = &workflow.Env{
	StepTimeout:       "PROMPTHUB_STEP_TIMEOUT",
	MaxConcurrentRuns: "PROMPTHUB_MAX_CONCURRENT_RUNS",
	DefaultModel:      "PROMPTHUB_DEFAULT_MODEL",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "PROMPTHUB_PAGE_SIZE",
	MaxPageSize:     "PROMPTHUB_MAX_PAGE_SIZE",
}

// Config is the root configuration for Prompt Hub.
type Config struct {
	Versions        versions.Config    `toml:"versions"`
	Database        database.Config    `toml:"database"`
	Storage         storage.Config     `toml:"storage"`
	Cache           cache.Config       `toml:"cache"`
	Execution       workflow.Config    `toml:"execution"`
	Pagination      pagination.Config  `toml:"pagination"`
	Providers       []providers.Config `toml:"providers"`
	Metrics         MetricsConfig      `toml:"metrics"`
	LogLevel        string             `toml:"log_level"`
	ShutdownTimeout string             `toml:"shutdown_timeout"`
	Version         string             `toml:"version"`
}

// Env returns the PROMPTHUB_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvPrompthubEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel)))
	return level
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. PROMPTHUB_CONFIG replaces the base file path.
// If no base file exists, defaults and environment variables provide all
// configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	base := BaseConfigFile
	if v := os.Getenv(EnvPrompthubConfig); v != "" {
		base = v
	}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if base != BaseConfigFile {
		return nil, fmt.Errorf("config %s: %w", base, err)
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
// A non-empty provider list replaces the base routing table outright.
func (c *Config) Merge(overlay *Config) {
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if len(overlay.Providers) > 0 {
		c.Providers = overlay.Providers
	}
	c.Versions.Merge(&overlay.Versions)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Cache.Merge(&overlay.Cache)
	c.Execution.Merge(&overlay.Execution)
	c.Pagination.Merge(&overlay.Pagination)
	c.Metrics.Merge(&overlay.Metrics)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Versions.Finalize(versionsEnv); err != nil {
		return fmt.Errorf("versions: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Execution.Finalize(executionEnv); err != nil {
		return fmt.Errorf("execution: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.Metrics.Finalize(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	for i := range c.Providers {
		if err := c.Providers[i].Finalize(); err != nil {
			return fmt.Errorf("providers[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.Database.Name == "" {
		c.Database.Name = "prompthub"
	}
	if c.Database.User == "" {
		c.Database.User = "prompthub"
	}
	if len(c.Providers) == 0 {
		c.Providers = []providers.Config{
			{Type: providers.TypeGemini},
			{Type: providers.TypeOpenRouter},
		}
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvPrompthubLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrompthubShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvPrompthubVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvPrompthubEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
