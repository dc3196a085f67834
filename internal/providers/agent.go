package providers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// AgentOptions configures a go-agents backed client.
type AgentOptions struct {
	Name string
	// Agent is the finalized template. Its model name is replaced by the
	// model of each request.
	Agent   gaconfig.AgentConfig
	Models  []string
	Timeout time.Duration
}

// Agent serves OpenAI-compatible endpoints (OpenRouter, Ollama, vLLM,
// Azure OpenAI) through go-agents. One agent is kept per model.
type Agent struct {
	name     string
	template gaconfig.AgentConfig
	models   []string
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	agents map[string]agent.Agent
}

// NewAgent creates a client and builds agents for every declared model so
// configuration errors surface at startup.
func NewAgent(opts AgentOptions, logger *slog.Logger) (*Agent, error) {
	c := &Agent{
		name:     opts.Name,
		template: opts.Agent,
		models:   slices.Clone(opts.Models),
		timeout:  opts.Timeout,
		logger:   logger.With("system", "providers", "provider", opts.Name),
		agents:   make(map[string]agent.Agent),
	}

	for _, model := range c.models {
		if _, err := c.agent(model); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, opts.Name, err)
		}
	}

	return c, nil
}

func (c *Agent) Name() string {
	return c.name
}

// ListModels returns the declared models. go-agents has no listing call.
func (c *Agent) ListModels(context.Context) ([]string, error) {
	return slices.Clone(c.models), nil
}

func (c *Agent) Generate(ctx context.Context, req Request) (string, error) {
	a, err := c.agent(req.Model)
	if err != nil {
		return "", &ProviderError{Provider: c.name, Model: req.Model, Message: err.Error()}
	}

	files, err := loadAttachments(req.Files)
	if err != nil {
		return "", &ProviderError{Provider: c.name, Model: req.Model, Message: err.Error()}
	}
	prompt, images := visionInputs(req.Prompt, files)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opts := map[string]any{"temperature": req.Temperature}

	var content string
	if len(images) > 0 {
		resp, err := a.Vision(ctx, prompt, images, opts)
		if err != nil {
			return "", c.failure(ctx, req.Model, err)
		}
		content = resp.Content()
	} else {
		resp, err := a.Chat(ctx, prompt, opts)
		if err != nil {
			return "", c.failure(ctx, req.Model, err)
		}
		content = resp.Content()
	}

	c.logger.DebugContext(ctx, "generation complete", "model", req.Model, "images", len(images))
	return content, nil
}

func (c *Agent) failure(ctx context.Context, model string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &ProviderError{Provider: c.name, Model: model, Message: err.Error()}
}

func (c *Agent) agent(model string) (agent.Agent, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.agents[model]; ok {
		return a, nil
	}

	cfg := c.template
	m := gaconfig.ModelConfig{}
	if c.template.Model != nil {
		m = *c.template.Model
	}
	m.Name = model
	cfg.Model = &m

	a, err := agent.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("create agent for %s: %w", model, err)
	}
	c.agents[model] = a
	return a, nil
}

// visionInputs turns image attachments into data URIs and folds everything
// else into the prompt text.
func visionInputs(prompt string, files []attachment) (string, []string) {
	text, binary := splitAttachments(prompt, files)

	var b strings.Builder
	b.WriteString(text)

	images := make([]string, 0, len(binary))
	for _, f := range binary {
		if f.kind == kindImage {
			images = append(images, f.dataURI())
			continue
		}
		b.WriteString(attachment{name: f.name, kind: kindUnsupported}.inlineText())
	}
	return b.String(), images
}

var _ Client = (*Agent)(nil)
