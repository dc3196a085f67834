package providers

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/prompthub/pkg/cache"
)

// NewFromConfig builds the routing table from finalized provider configs.
// When catalog is non-nil, model listings are cached in Redis. Matchers see
// the catalog, never the rate limiter, so routing spends no tokens.
func NewFromConfig(cfgs []Config, catalog cache.System, logger *slog.Logger) (*Router, error) {
	routes := make([]Route, 0, len(cfgs))
	seen := make(map[string]bool, len(cfgs))

	for _, cfg := range cfgs {
		if seen[cfg.Name] {
			return nil, fmt.Errorf("%w: duplicate provider name %s", ErrInvalidConfig, cfg.Name)
		}
		seen[cfg.Name] = true

		client, err := newClient(cfg, logger)
		if err != nil {
			return nil, err
		}

		if catalog != nil {
			client = CachedCatalog(client, catalog.Client(), catalog.Key("models", cfg.Name), catalog.TTL(), logger)
		}
		match := matcher(cfg, client)

		if cfg.RateLimit > 0 {
			client = RateLimited(client, cfg.RateLimit, cfg.Burst)
		}

		routes = append(routes, Route{
			Name:   cfg.Name,
			Match:  match,
			Client: client,
		})
	}

	return NewRouter(logger, routes...), nil
}

func newClient(cfg Config, logger *slog.Logger) (Client, error) {
	switch cfg.Type {
	case TypeOpenAI, TypeOpenRouter:
		return NewAgent(AgentOptions{
			Name:    cfg.Name,
			Agent:   cfg.Agent,
			Models:  cfg.Models,
			Timeout: cfg.TimeoutDuration(),
		}, logger)
	case TypeGemini:
		return NewGemini(GeminiOptions{
			Name:       cfg.Name,
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Models:     cfg.Models,
			Timeout:    cfg.TimeoutDuration(),
			MaxRetries: cfg.MaxRetries,
		}, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s: unknown type %q", ErrInvalidConfig, cfg.Name, cfg.Type)
	}
}

func matcher(cfg Config, client Client) Matcher {
	switch cfg.Match {
	case MatchAny:
		return Any()
	case MatchPrefix:
		return AnyOf(Prefix(cfg.Patterns...), Exact(cfg.Models...))
	case MatchExact:
		return Exact(cfg.Patterns...)
	default:
		if cfg.Type != TypeGemini {
			return Exact(cfg.Models...)
		}
		return Declared(client)
	}
}
