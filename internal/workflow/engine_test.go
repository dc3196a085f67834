package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/prompthub/internal/providers"
	"github.com/JaimeStill/prompthub/internal/workflow"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type memStore map[int64]string

func (m memStore) Exists(_ context.Context, id int64) bool {
	_, ok := m[id]
	return ok
}

func (m memStore) Read(_ context.Context, id int64, _ string) (string, error) {
	c, ok := m[id]
	if !ok {
		return "", errors.New("missing")
	}
	return c, nil
}

type memFallback map[int64]string

func (m memFallback) Content(_ context.Context, id int64) (string, bool, error) {
	c, ok := m[id]
	return c, ok, nil
}

// scriptClient answers each prompt through reply and records what it saw.
type scriptClient struct {
	mu      sync.Mutex
	prompts []string
	reply   func(ctx context.Context, prompt string) (string, error)
}

func (c *scriptClient) Name() string { return "script" }

func (c *scriptClient) ListModels(context.Context) ([]string, error) {
	return []string{"m"}, nil
}

func (c *scriptClient) Generate(ctx context.Context, req providers.Request) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, req.Prompt)
	c.mu.Unlock()
	return c.reply(ctx, req.Prompt)
}

func (c *scriptClient) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

func router(c providers.Client) *providers.Router {
	return providers.NewRouter(discard, providers.Route{
		Name:   c.Name(),
		Match:  providers.Any(),
		Client: c,
	})
}

func echo(_ context.Context, prompt string) (string, error) {
	return "out(" + prompt + ")", nil
}

func definition(ids ...int64) workflow.Definition {
	def := workflow.Definition{WorkspaceID: 7}
	for _, id := range ids {
		def.Prompts = append(def.Prompts, workflow.PromptRef{ID: id, Title: "p"})
	}
	return def
}

func engine(t *testing.T, deps workflow.Dependencies) *workflow.Engine {
	t.Helper()
	cfg := workflow.Config{}
	require.NoError(t, cfg.Finalize(nil))
	if deps.Logger == nil {
		deps.Logger = discard
	}
	return workflow.New(cfg, deps)
}

func TestExecuteThreadsOutput(t *testing.T) {
	client := &scriptClient{reply: echo}
	e := engine(t, workflow.Dependencies{
		Versions: memStore{1: "first {{input}}", 2: "second"},
		Router:   router(client),
	})

	out := e.Execute(context.Background(), definition(1, 2), workflow.Options{
		InitialInput: "seed",
		Model:        "m",
		StopOnError:  true,
	}, nil)

	require.True(t, out.Success)
	assert.Equal(t, 2, out.CompletedSteps)
	assert.Equal(t, 2, out.TotalSteps)
	assert.Empty(t, out.Error)

	prompts := client.seen()
	require.Len(t, prompts, 2)
	assert.Equal(t, "first seed", prompts[0])
	assert.Equal(t, "Previous output:\n---\nout(first seed)\n---\n\nCurrent task:\nsecond", prompts[1])

	assert.Equal(t, "out("+prompts[1]+")", out.FinalOutput)
	assert.Equal(t, "seed", out.Results[0].Input)
	assert.Equal(t, "out(first seed)", out.Results[1].Input)
	assert.Equal(t, workflow.SourceVersions, out.Results[0].Source)
}

func failOn(marker string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, marker) {
			return "", errors.New("provider exploded")
		}
		return echo(ctx, prompt)
	}
}

func TestExecuteStopOnError(t *testing.T) {
	client := &scriptClient{reply: failOn("two")}
	e := engine(t, workflow.Dependencies{
		Versions: memStore{1: "one", 2: "two", 3: "three"},
		Router:   router(client),
	})

	out := e.Execute(context.Background(), definition(1, 2, 3), workflow.Options{Model: "m", StopOnError: true}, nil)

	assert.False(t, out.Success)
	assert.False(t, out.Cancelled)
	require.Len(t, out.Results, 2)
	assert.Equal(t, 1, out.CompletedSteps)
	assert.Equal(t, 3, out.TotalSteps)
	assert.Equal(t, "out(one)", out.FinalOutput)
	assert.Nil(t, out.Results[1].Output)
	assert.Contains(t, out.Results[1].Error, "provider exploded")
	assert.Len(t, client.seen(), 2)
}

func TestExecuteContinueOnError(t *testing.T) {
	client := &scriptClient{reply: failOn("two")}
	e := engine(t, workflow.Dependencies{
		Versions: memStore{1: "one", 2: "two", 3: "three {{previous_output}}"},
		Router:   router(client),
	})

	out := e.Execute(context.Background(), definition(1, 2, 3), workflow.Options{Model: "m"}, nil)

	assert.False(t, out.Success)
	require.Len(t, out.Results, 3)
	assert.Equal(t, 2, out.CompletedSteps)

	assert.Equal(t, "out(one)", out.Results[2].Input)
	assert.Equal(t, "out(three out(one))", out.FinalOutput)
}

func TestExecuteEmptySequence(t *testing.T) {
	e := engine(t, workflow.Dependencies{Router: router(&scriptClient{reply: echo})})

	var events []workflow.Event
	out := e.Execute(context.Background(), definition(), workflow.Options{}, func(ev workflow.Event) {
		events = append(events, ev)
	})

	assert.False(t, out.Success)
	assert.Equal(t, "no prompts in sequence", out.Error)
	assert.Empty(t, out.Results)
	assert.Zero(t, out.TotalSteps)
	assert.Empty(t, events)
}

func TestExecuteContentNotFound(t *testing.T) {
	client := &scriptClient{reply: echo}
	e := engine(t, workflow.Dependencies{
		Versions: memStore{2: "two"},
		Fallback: memFallback{},
		Router:   router(client),
	})

	out := e.Execute(context.Background(), definition(1, 2), workflow.Options{Model: "m"}, nil)

	require.Len(t, out.Results, 2)
	assert.Contains(t, out.Results[0].Error, "content not found")
	assert.Equal(t, "out(two)", out.FinalOutput)
	assert.Len(t, client.seen(), 1)
}

func TestExecuteNoProvider(t *testing.T) {
	e := engine(t, workflow.Dependencies{
		Versions: memStore{1: "one"},
		Router:   providers.NewRouter(discard),
	})

	out := e.Execute(context.Background(), definition(1), workflow.Options{Model: "unknown"}, nil)

	require.Len(t, out.Results, 1)
	assert.Contains(t, out.Results[0].Error, providers.ErrNoProvider.Error())
	assert.False(t, out.Success)
}

func TestExecuteDefaultModel(t *testing.T) {
	var model string
	client := &modelClient{seen: &model}
	e := engine(t, workflow.Dependencies{
		Versions: memStore{1: "one"},
		Router:   router(client),
	})

	out := e.Execute(context.Background(), definition(1), workflow.Options{}, nil)

	require.True(t, out.Success)
	assert.Equal(t, "gemini-2.5-flash", model)
	assert.Equal(t, "gemini-2.5-flash", out.Model)
}

type modelClient struct{ seen *string }

func (c *modelClient) Name() string                                 { return "model" }
func (c *modelClient) ListModels(context.Context) ([]string, error) { return nil, nil }
func (c *modelClient) Generate(_ context.Context, req providers.Request) (string, error) {
	*c.seen = req.Model
	return "ok", nil
}

func TestExecuteContentSources(t *testing.T) {
	t.Run("fallback when no working copy", func(t *testing.T) {
		client := &scriptClient{reply: echo}
		e := engine(t, workflow.Dependencies{
			Versions: memStore{},
			Fallback: memFallback{1: "relational"},
			Router:   router(client),
		})

		out := e.Execute(context.Background(), definition(1), workflow.Options{Model: "m"}, nil)

		require.True(t, out.Success)
		assert.Equal(t, workflow.SourceRelational, out.Results[0].Source)
		assert.False(t, out.Results[0].Diverged)
		assert.Equal(t, []string{"relational"}, client.seen())
	})

	t.Run("versions win and divergence is flagged", func(t *testing.T) {
		client := &scriptClient{reply: echo}
		e := engine(t, workflow.Dependencies{
			Versions: memStore{1: "versioned"},
			Fallback: memFallback{1: "relational"},
			Router:   router(client),
		})

		out := e.Execute(context.Background(), definition(1), workflow.Options{Model: "m"}, nil)

		require.True(t, out.Success)
		assert.Equal(t, workflow.SourceVersions, out.Results[0].Source)
		assert.True(t, out.Results[0].Diverged)
		assert.Equal(t, []string{"versioned"}, client.seen())
	})

	t.Run("agreeing sources do not diverge", func(t *testing.T) {
		e := engine(t, workflow.Dependencies{
			Versions: memStore{1: "same"},
			Fallback: memFallback{1: "same"},
			Router:   router(&scriptClient{reply: echo}),
		})

		out := e.Execute(context.Background(), definition(1), workflow.Options{Model: "m"}, nil)

		assert.False(t, out.Results[0].Diverged)
	})
}

func TestExecuteEvents(t *testing.T) {
	client := &scriptClient{reply: failOn("two")}
	e := engine(t, workflow.Dependencies{
		Versions: memStore{1: "one", 2: "two", 3: "three"},
		Router:   router(client),
	})

	var events []workflow.Event
	out := e.Execute(context.Background(), definition(1, 2, 3), workflow.Options{Model: "m"}, func(ev workflow.Event) {
		events = append(events, ev)
	})

	require.Len(t, events, 6)
	want := []workflow.EventType{
		workflow.EventStart, workflow.EventComplete,
		workflow.EventStart, workflow.EventError,
		workflow.EventStart, workflow.EventComplete,
	}
	for i, ev := range events {
		assert.Equal(t, want[i], ev.Type, "event %d", i)
		assert.Equal(t, i/2+1, ev.Step)
		assert.Equal(t, 3, ev.TotalSteps)
		assert.Equal(t, out.RunID, ev.RunID)
	}

	assert.NotNil(t, events[1].Output)
	assert.Nil(t, events[3].Output)
	assert.Contains(t, events[3].Error, "provider exploded")
}

func TestExecuteCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := engine(t, workflow.Dependencies{
		Versions: memStore{1: "one", 2: "two", 3: "three"},
		Router:   router(&scriptClient{reply: func(context.Context, string) (string, error) { return "done", nil }}),
	})

	var events []workflow.Event
	out := e.Execute(ctx, definition(1, 2, 3), workflow.Options{Model: "m"}, func(ev workflow.Event) {
		events = append(events, ev)
		if ev.Type == workflow.EventComplete && ev.Step == 1 {
			cancel()
		}
	})

	assert.True(t, out.Cancelled)
	assert.False(t, out.Success)
	assert.Equal(t, "execution cancelled", out.Error)
	assert.Len(t, out.Results, 1)
	assert.Equal(t, 1, out.CompletedSteps)
	assert.Equal(t, "done", out.FinalOutput)
	assert.Len(t, events, 2)
}

func TestExecuteStepTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	client := &scriptClient{reply: func(context.Context, string) (string, error) {
		<-release
		return "late", nil
	}}

	cfg := workflow.Config{StepTimeout: "20ms"}
	require.NoError(t, cfg.Finalize(nil))
	e := workflow.New(cfg, workflow.Dependencies{
		Versions: memStore{1: "one"},
		Router:   router(client),
		Logger:   discard,
	})

	out := e.Execute(context.Background(), definition(1), workflow.Options{Model: "m", StopOnError: true}, nil)

	require.Len(t, out.Results, 1)
	assert.Contains(t, out.Results[0].Error, workflow.ErrStepTimeout.Error())
	assert.False(t, out.Cancelled)
	assert.False(t, out.Success)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := workflow.NewMetrics(reg)

	e := engine(t, workflow.Dependencies{
		Versions: memStore{1: "one", 2: "two"},
		Router:   router(&scriptClient{reply: failOn("two")}),
		Metrics:  metrics,
	})

	e.Execute(context.Background(), definition(1), workflow.Options{Model: "m"}, nil)
	e.Execute(context.Background(), definition(1, 2), workflow.Options{Model: "m"}, nil)

	runs := gathered(t, reg, "prompthub_workflow_runs_total")
	assert.Equal(t, 1.0, runs["success"])
	assert.Equal(t, 1.0, runs["failure"])

	steps, err := testutil.GatherAndCount(reg, "prompthub_workflow_steps_total")
	require.NoError(t, err)
	assert.Equal(t, 2, steps)

	assert.Equal(t, 0.0, gathered(t, reg, "prompthub_workflow_runs_active")[""])
}

// gathered returns the values of one metric family keyed by its first label.
func gathered(t *testing.T, reg *prometheus.Registry, name string) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			key := ""
			if labels := m.GetLabel(); len(labels) > 0 {
				key = labels[0].GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			}
		}
	}
	return values
}

func TestGoAndExecuteAll(t *testing.T) {
	var inflight, peak atomic.Int32
	client := &scriptClient{reply: func(ctx context.Context, prompt string) (string, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return echo(ctx, prompt)
	}}

	cfg := workflow.Config{MaxConcurrentRuns: 2}
	require.NoError(t, cfg.Finalize(nil))
	e := workflow.New(cfg, workflow.Dependencies{
		Versions: memStore{1: "one"},
		Router:   router(client),
		Logger:   discard,
	})

	t.Run("go", func(t *testing.T) {
		out := <-e.Go(context.Background(), definition(1), workflow.Options{Model: "m"}, nil)
		require.NotNil(t, out)
		assert.True(t, out.Success)
	})

	t.Run("execute all", func(t *testing.T) {
		peak.Store(0)
		runs := make([]workflow.Run, 6)
		for i := range runs {
			def := definition(1)
			def.WorkspaceID = int64(i)
			runs[i] = workflow.Run{Definition: def, Options: workflow.Options{Model: "m"}}
		}

		outcomes := e.ExecuteAll(context.Background(), runs)

		require.Len(t, outcomes, 6)
		for i, out := range outcomes {
			assert.Equal(t, int64(i), out.WorkspaceID)
			assert.True(t, out.Success)
		}
		assert.LessOrEqual(t, peak.Load(), int32(2))
	})
}

func TestStepErrorKinds(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	client := &scriptClient{reply: func(_ context.Context, prompt string) (string, error) {
		switch prompt {
		case "plain":
			return "", errors.New("connection reset")
		case "typed":
			return "", &providers.ProviderError{Provider: "script", Model: "m", StatusCode: 500, Message: "boom"}
		case "slow":
			<-release
			return "late", nil
		}
		return "ok", nil
	}}

	cfg := workflow.Config{StepTimeout: "20ms"}
	require.NoError(t, cfg.Finalize(nil))

	tests := []struct {
		name   string
		model  string
		prompt int64
		kinds  []error
	}{
		{"content not found", "m", 9, []error{workflow.ErrContentNotFound}},
		{"no provider", "unrouted", 1, []error{providers.ErrNoProvider}},
		{"untyped client error", "m", 1, []error{providers.ErrProvider}},
		{"provider error", "m", 2, []error{providers.ErrProvider}},
		{"timeout", "m", 3, []error{workflow.ErrStepTimeout, providers.ErrProvider}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := workflow.New(cfg, workflow.Dependencies{
				Versions: memStore{1: "plain", 2: "typed", 3: "slow"},
				Router: providers.NewRouter(discard, providers.Route{
					Name:   "script",
					Match:  providers.Exact("m"),
					Client: client,
				}),
				Logger: discard,
			})

			out := e.Execute(context.Background(), definition(tt.prompt), workflow.Options{Model: tt.model}, nil)

			require.Len(t, out.Results, 1)
			result := out.Results[0]
			require.Error(t, result.Err)
			assert.Equal(t, result.Err.Error(), result.Error)
			for _, kind := range tt.kinds {
				assert.ErrorIs(t, result.Err, kind)
			}
		})
	}

	t.Run("provider detail survives", func(t *testing.T) {
		e := workflow.New(cfg, workflow.Dependencies{
			Versions: memStore{2: "typed"},
			Router:   router(client),
			Logger:   discard,
		})

		out := e.Execute(context.Background(), definition(2), workflow.Options{Model: "m"}, nil)

		var perr *providers.ProviderError
		require.ErrorAs(t, out.Results[0].Err, &perr)
		assert.Equal(t, 500, perr.StatusCode)
	})

	t.Run("not serialized", func(t *testing.T) {
		data, err := json.Marshal(workflow.StepResult{Step: 1, Error: "x", Err: workflow.ErrContentNotFound})
		require.NoError(t, err)
		assert.NotContains(t, string(data), "Err\"")
		assert.Contains(t, string(data), `"error":"x"`)
	})
}
