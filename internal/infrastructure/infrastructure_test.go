package infrastructure_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/JaimeStill/prompthub/internal/config"
	"github.com/JaimeStill/prompthub/internal/infrastructure"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvPrompthubEnv, "")
	t.Setenv(config.EnvPrompthubConfig, "")
	t.Setenv("PROMPTHUB_REPO_ROOT", filepath.Join(dir, "repo"))
	t.Setenv("PROMPTHUB_STORAGE_CONNECTION_STRING", "")
	t.Setenv("PROMPTHUB_REDIS_ADDR", "")
	t.Setenv("PROMPTHUB_REDIS_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(loadConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Versions == nil {
		t.Error("Versions is nil")
	}
	if infra.Metrics == nil || infra.Registry == nil {
		t.Error("Metrics is nil")
	}
	if infra.Storage != nil {
		t.Error("Storage should be nil without an endpoint")
	}
	if infra.Cache != nil {
		t.Error("Cache should be nil without an endpoint")
	}

	routes := infra.Router.Routes()
	if len(routes) != 2 || routes[0].Name != "gemini" || routes[1].Name != "openrouter" {
		t.Errorf("unexpected routes: %+v", routes)
	}
}

func TestNewOptionalSystems(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Cache.Addr = "localhost:6379"

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if infra.Cache == nil {
		t.Fatal("Cache is nil")
	}
	if infra.Cache.Key("models", "gemini") != "prompthub:models:gemini" {
		t.Errorf("cache key: got %s", infra.Cache.Key("models", "gemini"))
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Storage.ConnectionString = "not-a-connection-string"

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestPushMetrics(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	cfg := loadConfig(t)

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := infra.PushMetrics(context.Background()); err != nil {
		t.Fatalf("PushMetrics() without url error = %v", err)
	}

	cfg.Metrics.PushURL = gateway.URL
	cfg.Metrics.Job = "nightly"
	infra, err = infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := infra.PushMetrics(context.Background()); err != nil {
		t.Fatalf("PushMetrics() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Errorf("method: got %s, want PUT", method)
	}
	if path != "/metrics/job/nightly" {
		t.Errorf("path: got %s", path)
	}
}
