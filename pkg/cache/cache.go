// Package cache provides a Redis connection system with lifecycle coordination.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/prompthub/pkg/lifecycle"
)

// ErrNotReady indicates the Redis server could not be reached at startup.
var ErrNotReady = errors.New("cache not ready")

// System manages a Redis client and lifecycle coordination.
type System interface {
	// Client returns the underlying Redis client.
	Client() *redis.Client
	// Key namespaces parts under the configured prefix.
	Key(parts ...string) string
	// TTL returns the default expiry for cached entries.
	TTL() time.Duration
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type cache struct {
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	dialTimeout time.Duration
	logger      *slog.Logger
}

// New creates a cache system. The connection is verified during Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse cache options: %w", err)
	}

	return &cache{
		client:      redis.NewClient(opts),
		prefix:      cfg.Prefix,
		ttl:         cfg.TTLDuration(),
		dialTimeout: cfg.DialTimeoutDuration(),
		logger:      logger.With("system", "cache"),
	}, nil
}

func options(cfg *Config) (*redis.Options, error) {
	if cfg.URL != "" {
		return redis.ParseURL(cfg.URL)
	}
	return &redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeoutDuration(),
	}, nil
}

func (c *cache) Client() *redis.Client {
	return c.client
}

func (c *cache) TTL() time.Duration {
	return c.ttl
}

func (c *cache) Key(parts ...string) string {
	key := c.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (c *cache) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting cache connection")

	lc.OnStartup(func() error {
		ctx, cancel := context.WithTimeout(lc.Context(), c.dialTimeout)
		defer cancel()

		if err := c.client.Ping(ctx).Err(); err != nil {
			c.logger.Error("cache ping failed", "error", err)
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}

		c.logger.Info("cache connection established")
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		if err := c.client.Close(); err != nil {
			c.logger.Error("cache close failed", "error", err)
			return
		}

		c.logger.Info("cache connection closed")
	})

	return nil
}
