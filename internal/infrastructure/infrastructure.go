// Package infrastructure provides core service initialization for application startup.
// It assembles the shared dependencies (logging, database, version store,
// provider routing, metrics, and the optional blob storage and Redis cache)
// that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JaimeStill/prompthub/internal/config"
	"github.com/JaimeStill/prompthub/internal/providers"
	"github.com/JaimeStill/prompthub/internal/versions"
	"github.com/JaimeStill/prompthub/internal/workflow"
	"github.com/JaimeStill/prompthub/pkg/cache"
	"github.com/JaimeStill/prompthub/pkg/database"
	"github.com/JaimeStill/prompthub/pkg/lifecycle"
	"github.com/JaimeStill/prompthub/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Storage and Cache are nil when their endpoints are not configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Cache     cache.System
	Versions  *versions.Store
	Router    *providers.Router
	Registry  *prometheus.Registry
	Metrics   *workflow.Metrics

	metrics config.MetricsConfig
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	var blobs storage.System
	if cfg.Storage.Enabled() {
		blobs, err = storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
	}

	var rdb cache.System
	if cfg.Cache.Enabled() {
		rdb, err = cache.New(&cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
	}

	store, err := versions.New(&cfg.Versions, logger)
	if err != nil {
		return nil, fmt.Errorf("version store init failed: %w", err)
	}

	router, err := providers.NewFromConfig(cfg.Providers, rdb, logger)
	if err != nil {
		return nil, fmt.Errorf("provider init failed: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   blobs,
		Cache:     rdb,
		Versions:  store,
		Router:    router,
		Registry:  reg,
		Metrics:   workflow.NewMetrics(reg),
		metrics:   cfg.Metrics,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database, storage, and cache hooks are registered for startup and shutdown
// coordination.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	if i.Cache != nil {
		if err := i.Cache.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("cache start failed: %w", err)
		}
	}
	return nil
}

// PushMetrics sends the registry to the configured Pushgateway. It is a
// no-op when no push URL is configured.
func (i *Infrastructure) PushMetrics(ctx context.Context) error {
	if i.metrics.PushURL == "" {
		return nil
	}

	err := push.New(i.metrics.PushURL, i.metrics.Job).
		Gatherer(i.Registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}

	i.Logger.DebugContext(ctx, "metrics pushed", "url", i.metrics.PushURL, "job", i.metrics.Job)
	return nil
}
