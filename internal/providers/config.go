package providers

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// Provider types.
const (
	TypeOpenAI     = "openai"
	TypeOpenRouter = "openrouter"
	TypeGemini     = "gemini"
)

// Match strategies.
const (
	MatchDeclared = "declared"
	MatchPrefix   = "prefix"
	MatchExact    = "exact"
	MatchAny      = "any"
)

// DefaultOpenRouterURL omits the /v1 segment; the ollama provider adds the
// OpenAI-compatible route itself.
const DefaultOpenRouterURL = "https://openrouter.ai/api"

// DefaultAgentProvider is the go-agents provider used for OpenAI-compatible
// endpoints.
const DefaultAgentProvider = "ollama"

// Config describes one routing table entry. Entries are routed in the
// order they are declared.
type Config struct {
	Name       string            `toml:"name"`
	Type       string            `toml:"type"`
	BaseURL    string            `toml:"base_url"`
	APIKey     string            `toml:"api_key"`
	APIKeyEnv  string            `toml:"api_key_env"`
	Models     []string          `toml:"models"`
	Match      string            `toml:"match"`
	Patterns   []string          `toml:"patterns"`
	RateLimit  float64           `toml:"rate_limit"`
	Burst      int               `toml:"burst"`
	Timeout    string            `toml:"timeout"`
	MaxRetries int               `toml:"max_retries"` // gemini only; 0 defaults to 2, negative disables retries

	// AgentProvider and Options select and tune the go-agents provider for
	// openai and openrouter entries (token, deployment, api_version, auth_type).
	AgentProvider string         `toml:"agent_provider"`
	Options       map[string]any `toml:"options"`

	// Agent is the finalized go-agents configuration for agent-backed types.
	Agent gaconfig.AgentConfig `toml:"-"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies type defaults, the API key environment override, and
// validation. Agent-backed types also finalize their go-agents configuration.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	if err := c.validate(); err != nil {
		return err
	}
	if c.agentBacked() {
		return c.finalizeAgent()
	}
	return nil
}

func (c *Config) agentBacked() bool {
	return c.Type == TypeOpenAI || c.Type == TypeOpenRouter
}

// finalizeAgent layers the entry over go-agents DefaultAgentConfig and
// validates the result.
func (c *Config) finalizeAgent() error {
	options := make(map[string]any, len(c.Options)+1)
	for k, v := range c.Options {
		options[k] = v
	}
	if c.APIKey != "" {
		options["token"] = c.APIKey
	}

	model := ""
	if len(c.Models) > 0 {
		model = c.Models[0]
	}

	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(&gaconfig.AgentConfig{
		Name: c.Name,
		Provider: &gaconfig.ProviderConfig{
			Name:    c.AgentProvider,
			BaseURL: c.BaseURL,
			Options: options,
		},
		Model: &gaconfig.ModelConfig{Name: model},
	})
	c.Agent = defaults

	if c.Agent.Provider == nil || c.Agent.Provider.Name == "" {
		return fmt.Errorf("%w: %s: agent provider required", ErrInvalidConfig, c.Name)
	}
	if c.Agent.Model == nil {
		return fmt.Errorf("%w: %s: agent model required", ErrInvalidConfig, c.Name)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.Name == "" {
		c.Name = c.Type
	}

	switch c.Type {
	case TypeOpenRouter:
		if c.BaseURL == "" {
			c.BaseURL = DefaultOpenRouterURL
		}
		if c.Match == "" {
			c.Match = MatchAny
		}
	case TypeGemini:
		if c.BaseURL == "" {
			c.BaseURL = DefaultGeminiURL
		}
		if c.Match == "" {
			c.Match = MatchPrefix
		}
		if c.Match == MatchPrefix && len(c.Patterns) == 0 {
			c.Patterns = []string{"gemini-"}
		}
	default:
		if c.Match == "" {
			c.Match = MatchDeclared
		}
	}

	if c.agentBacked() && c.AgentProvider == "" {
		c.AgentProvider = DefaultAgentProvider
	}
	if c.APIKeyEnv == "" && c.Name != "" {
		c.APIKeyEnv = "PROMPTHUB_" + envName(c.Name) + "_API_KEY"
	}
	if c.Timeout == "" {
		c.Timeout = "120s"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RateLimit > 0 && c.Burst == 0 {
		c.Burst = 1
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(c.APIKeyEnv); v != "" {
		c.APIKey = v
	}
}

func (c *Config) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidConfig)
	}
	if !slices.Contains([]string{TypeOpenAI, TypeOpenRouter, TypeGemini}, c.Type) {
		return fmt.Errorf("%w: %s: unknown type %q", ErrInvalidConfig, c.Name, c.Type)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: %s: base_url required", ErrInvalidConfig, c.Name)
	}
	switch c.Match {
	case MatchDeclared, MatchAny:
	case MatchPrefix, MatchExact:
		if len(c.Patterns) == 0 {
			return fmt.Errorf("%w: %s: patterns required for %s match", ErrInvalidConfig, c.Name, c.Match)
		}
	default:
		return fmt.Errorf("%w: %s: unknown match %q", ErrInvalidConfig, c.Name, c.Match)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("%w: %s: invalid timeout: %w", ErrInvalidConfig, c.Name, err)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: %s: rate_limit must be non-negative", ErrInvalidConfig, c.Name)
	}
	return nil
}

func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
