package providers_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/prompthub/internal/providers"
	"github.com/JaimeStill/prompthub/pkg/cache"
)

func TestConfigFinalize(t *testing.T) {
	t.Run("openrouter defaults", func(t *testing.T) {
		cfg := providers.Config{Type: providers.TypeOpenRouter}
		require.NoError(t, cfg.Finalize())

		assert.Equal(t, "openrouter", cfg.Name)
		assert.Equal(t, providers.DefaultOpenRouterURL, cfg.BaseURL)
		assert.Equal(t, providers.MatchAny, cfg.Match)
		assert.Equal(t, "PROMPTHUB_OPENROUTER_API_KEY", cfg.APIKeyEnv)
		assert.Equal(t, 2, cfg.MaxRetries)
	})

	t.Run("gemini defaults", func(t *testing.T) {
		cfg := providers.Config{Type: providers.TypeGemini}
		require.NoError(t, cfg.Finalize())

		assert.Equal(t, providers.MatchPrefix, cfg.Match)
		assert.Equal(t, []string{"gemini-"}, cfg.Patterns)
	})

	t.Run("api key from env", func(t *testing.T) {
		t.Setenv("PROMPTHUB_LOCAL_VLLM_API_KEY", "from-env")

		cfg := providers.Config{Name: "local-vllm", Type: providers.TypeOpenAI, BaseURL: "http://localhost:8000/v1"}
		require.NoError(t, cfg.Finalize())

		assert.Equal(t, "from-env", cfg.APIKey)
		assert.Equal(t, providers.MatchDeclared, cfg.Match)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  providers.Config
		}{
			{"unknown type", providers.Config{Name: "x", Type: "anthropic-ish"}},
			{"openai without base url", providers.Config{Name: "x", Type: providers.TypeOpenAI}},
			{"prefix without patterns", providers.Config{Name: "x", Type: providers.TypeOpenAI, BaseURL: "http://h", Match: providers.MatchPrefix}},
			{"unknown match", providers.Config{Name: "x", Type: providers.TypeOpenAI, BaseURL: "http://h", Match: "regex"}},
			{"bad timeout", providers.Config{Name: "x", Type: providers.TypeOpenRouter, Timeout: "forever"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.ErrorIs(t, tt.cfg.Finalize(), providers.ErrInvalidConfig)
			})
		}
	})
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	cfgs := []providers.Config{
		{Type: providers.TypeGemini},
		{Name: "local", Type: providers.TypeOpenAI, BaseURL: "http://127.0.0.1:1/v1", Models: []string{"llama3"}, RateLimit: 5},
		{Type: providers.TypeOpenRouter},
	}
	for i := range cfgs {
		require.NoError(t, cfgs[i].Finalize())
	}

	t.Run("routes in declaration order", func(t *testing.T) {
		router, err := providers.NewFromConfig(cfgs, nil, discard)
		require.NoError(t, err)

		for model, want := range map[string]string{
			"gemini-2.5-flash":          "gemini",
			"llama3":                    "local",
			"deepseek/deepseek-r1:free": "openrouter",
		} {
			c, err := router.Resolve(ctx, model)
			require.NoError(t, err)
			assert.Equal(t, want, c.Name(), model)
		}
	})

	t.Run("with catalog cache", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cacheCfg := &cache.Config{Addr: mr.Addr()}
		require.NoError(t, cacheCfg.Finalize(nil))

		catalog, err := cache.New(cacheCfg, slog.Default())
		require.NoError(t, err)

		router, err := providers.NewFromConfig(cfgs, catalog, discard)
		require.NoError(t, err)

		c, err := router.Resolve(ctx, "llama3")
		require.NoError(t, err)
		assert.Equal(t, "local", c.Name())
		assert.False(t, mr.Exists("prompthub:models:local"), "declared models route without the catalog")

		models, err := c.ListModels(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"llama3"}, models)
		assert.True(t, mr.Exists("prompthub:models:local"))
	})

	t.Run("duplicate names rejected", func(t *testing.T) {
		_, err := providers.NewFromConfig([]providers.Config{cfgs[2], cfgs[2]}, nil, discard)
		assert.ErrorIs(t, err, providers.ErrInvalidConfig)
	})
}

func TestNewFromConfigRoutingSpendsNoTokens(t *testing.T) {
	var listings atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1beta/models" {
			listings.Add(1)
			w.Write([]byte(`{"models":[{"name":"models/gemini-2.5-flash","supportedGenerationMethods":["generateContent"]}]}`))
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	cfg := providers.Config{
		Type:      providers.TypeGemini,
		BaseURL:   srv.URL,
		Match:     providers.MatchDeclared,
		RateLimit: 0.001,
	}
	require.NoError(t, cfg.Finalize())

	mr := miniredis.RunT(t)
	cacheCfg := &cache.Config{Addr: mr.Addr()}
	require.NoError(t, cacheCfg.Finalize(nil))
	catalog, err := cache.New(cacheCfg, slog.Default())
	require.NoError(t, err)

	router, err := providers.NewFromConfig([]providers.Config{cfg}, catalog, discard)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var client providers.Client
	for range 5 {
		client, err = router.Resolve(ctx, "gemini-2.5-flash")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), listings.Load())

	out, err := client.Generate(ctx, providers.Request{Prompt: "p", Model: "gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	_, err = client.Generate(short, providers.Request{Prompt: "p", Model: "gemini-2.5-flash"})
	assert.Error(t, err)
}
