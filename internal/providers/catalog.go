package providers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type cachedCatalog struct {
	Client
	rdb    redis.Cmdable
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// CachedCatalog caches the model listing of c in Redis under key for ttl.
// Redis failures are logged and the live listing is used.
func CachedCatalog(c Client, rdb redis.Cmdable, key string, ttl time.Duration, logger *slog.Logger) Client {
	return &cachedCatalog{
		Client: c,
		rdb:    rdb,
		key:    key,
		ttl:    ttl,
		logger: logger.With("system", "providers", "provider", c.Name()),
	}
}

func (c *cachedCatalog) ListModels(ctx context.Context) ([]string, error) {
	data, err := c.rdb.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var models []string
		if err := json.Unmarshal(data, &models); err == nil {
			return models, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt model catalog", "key", c.key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "model catalog cache unavailable", "key", c.key, "error", err)
	}

	models, err := c.Client.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(models); err == nil {
		if err := c.rdb.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "model catalog cache write failed", "key", c.key, "error", err)
		}
	}

	return models, nil
}
