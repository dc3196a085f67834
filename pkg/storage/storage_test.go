package storage_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/prompthub/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func TestNew(t *testing.T) {
	t.Run("connection string", func(t *testing.T) {
		cfg := &storage.Config{ContainerName: "prompthub", ConnectionString: azuriteConnString}
		sys, err := storage.New(cfg, slog.Default())
		require.NoError(t, err)
		assert.NotNil(t, sys)
	})

	t.Run("invalid connection string", func(t *testing.T) {
		cfg := &storage.Config{ContainerName: "prompthub", ConnectionString: "not-a-connection-string"}
		_, err := storage.New(cfg, slog.Default())
		assert.Error(t, err)
	})

	t.Run("no endpoint", func(t *testing.T) {
		cfg := &storage.Config{ContainerName: "prompthub"}
		_, err := storage.New(cfg, slog.Default())
		assert.ErrorIs(t, err, storage.ErrNotConfigured)
	})
}

func TestKeyValidation(t *testing.T) {
	cfg := &storage.Config{ContainerName: "prompthub", ConnectionString: azuriteConnString}
	sys, err := storage.New(cfg, slog.Default())
	require.NoError(t, err)

	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty", "", storage.ErrEmptyKey},
		{"traversal", "executions/../secrets.json", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, sys.Upload(ctx, tt.key, strings.NewReader("{}"), "application/json"), tt.want)

			_, err := sys.Download(ctx, tt.key)
			assert.ErrorIs(t, err, tt.want)

			assert.ErrorIs(t, sys.Delete(ctx, tt.key), tt.want)

			_, err = sys.Exists(ctx, tt.key)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("list traversal", func(t *testing.T) {
		_, err := sys.List(ctx, "../")
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", storage.ErrNotFound), http.StatusNotFound},
		{storage.ErrEmptyKey, http.StatusBadRequest},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{storage.ErrNotConfigured, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, storage.MapHTTPStatus(tt.err))
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := storage.Config{}
		require.NoError(t, cfg.Finalize(nil))
		assert.Equal(t, "prompthub", cfg.ContainerName)
		assert.Equal(t, int32(100), cfg.MaxListSize)
		assert.False(t, cfg.Enabled())
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_STORAGE_CONTAINER", "archive")
		t.Setenv("TEST_STORAGE_URL", "https://acct.blob.core.windows.net/")
		t.Setenv("TEST_STORAGE_MAX_LIST", "999999")

		cfg := storage.Config{}
		env := &storage.Env{
			ContainerName: "TEST_STORAGE_CONTAINER",
			ServiceURL:    "TEST_STORAGE_URL",
			MaxListSize:   "TEST_STORAGE_MAX_LIST",
		}
		require.NoError(t, cfg.Finalize(env))

		assert.Equal(t, "archive", cfg.ContainerName)
		assert.Equal(t, "https://acct.blob.core.windows.net/", cfg.ServiceURL)
		assert.Equal(t, storage.MaxListCap, cfg.MaxListSize)
		assert.True(t, cfg.Enabled())
	})

	t.Run("merge", func(t *testing.T) {
		cfg := storage.Config{ContainerName: "base", MaxListSize: 10}
		cfg.Merge(&storage.Config{ConnectionString: azuriteConnString})
		assert.Equal(t, "base", cfg.ContainerName)
		assert.Equal(t, azuriteConnString, cfg.ConnectionString)
		assert.Equal(t, int32(10), cfg.MaxListSize)
	})
}
