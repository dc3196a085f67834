package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/prompthub/internal/providers"
)

// Dependencies bundles the collaborators a run requires. Versions and
// Fallback are both optional, but a step fails when neither yields content.
type Dependencies struct {
	Versions ContentStore
	Fallback FallbackSource
	Router   ClientRouter
	Metrics  *Metrics
	Logger   *slog.Logger
}

// Engine executes prompt sequences. It holds no per-run state and is safe
// for concurrent use.
type Engine struct {
	cfg         Config
	stepTimeout time.Duration
	deps        Dependencies
	logger      *slog.Logger
}

// New creates an Engine from a finalized Config.
func New(cfg Config, deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.StepTimeoutDuration()
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Engine{
		cfg:         cfg,
		stepTimeout: timeout,
		deps:        deps,
		logger:      logger.With("system", "workflow"),
	}
}

// Execute runs def to completion and returns its outcome. Failures are
// reported inside the Outcome rather than as an error. Cancellation of ctx
// is observed between steps.
func (e *Engine) Execute(ctx context.Context, def Definition, opts Options, progress ProgressFunc) *Outcome {
	if progress == nil {
		progress = func(Event) {}
	}

	model := opts.Model
	if model == "" {
		model = e.cfg.DefaultModel
	}

	start := time.Now()
	out := &Outcome{
		RunID:       uuid.New(),
		WorkspaceID: def.WorkspaceID,
		Model:       model,
		Results:     []StepResult{},
		TotalSteps:  len(def.Prompts),
		StartedAt:   start.UTC(),
	}

	e.deps.Metrics.runStarted()
	defer func() {
		out.TotalTime = time.Since(start)
		e.deps.Metrics.runFinished(out)
		e.logger.InfoContext(
			ctx, "workflow finished",
			"run_id", out.RunID,
			"workspace_id", out.WorkspaceID,
			"status", out.status(),
			"completed_steps", out.CompletedSteps,
			"total_steps", out.TotalSteps,
			"duration", out.TotalTime,
		)
	}()

	if len(def.Prompts) == 0 {
		out.Error = ErrNoPrompts.Error()
		return out
	}

	e.logger.InfoContext(
		ctx, "workflow started",
		"run_id", out.RunID,
		"workspace_id", def.WorkspaceID,
		"steps", len(def.Prompts),
		"model", model,
	)

	input := opts.InitialInput
	for i, ref := range def.Prompts {
		if ctx.Err() != nil {
			out.Cancelled = true
			break
		}

		step := i + 1
		progress(Event{
			Type:        EventStart,
			RunID:       out.RunID,
			Step:        step,
			TotalSteps:  out.TotalSteps,
			PromptID:    ref.ID,
			PromptTitle: ref.Title,
		})

		result := e.step(ctx, step, ref, input, model, opts)
		out.Results = append(out.Results, result)

		if result.Failed() {
			progress(stepEvent(EventError, out.RunID, out.TotalSteps, result))
			if opts.StopOnError {
				break
			}
			continue
		}

		progress(stepEvent(EventComplete, out.RunID, out.TotalSteps, result))
		out.CompletedSteps++
		out.FinalOutput = *result.Output
		input = *result.Output
	}

	if !out.Cancelled && ctx.Err() != nil && out.CompletedSteps < out.TotalSteps {
		out.Cancelled = true
	}
	if out.Cancelled {
		out.Error = ErrCancelled.Error()
	}

	out.Success = !out.Cancelled && out.CompletedSteps == out.TotalSteps
	return out
}

func (e *Engine) step(ctx context.Context, step int, ref PromptRef, input, model string, opts Options) StepResult {
	start := time.Now()
	result := StepResult{
		Step:        step,
		PromptID:    ref.ID,
		PromptTitle: ref.Title,
		Input:       input,
	}

	output, err := e.run(ctx, &result, input, model, opts)
	result.ExecutionTime = time.Since(start)
	e.deps.Metrics.stepFinished(model, err != nil, result.ExecutionTime)

	if err != nil {
		result.Err = err
		result.Error = err.Error()
		e.logger.WarnContext(
			ctx, "workflow step failed",
			"step", step,
			"prompt_id", ref.ID,
			"error", err,
		)
		return result
	}

	result.Output = &output
	e.logger.InfoContext(
		ctx, "workflow step complete",
		"step", step,
		"prompt_id", ref.ID,
		"source", result.Source,
		"duration", result.ExecutionTime,
	)
	return result
}

func (e *Engine) run(ctx context.Context, result *StepResult, input, model string, opts Options) (string, error) {
	content, err := e.content(ctx, result)
	if err != nil {
		return "", err
	}

	if e.deps.Router == nil {
		return "", fmt.Errorf("%w: %s", providers.ErrNoProvider, model)
	}
	client, err := e.deps.Router.Resolve(ctx, model)
	if err != nil {
		return "", err
	}

	output, err := e.generate(ctx, client, providers.Request{
		Prompt:      FormatPrompt(content, input),
		Model:       model,
		Temperature: opts.Temperature,
		Files:       opts.Files,
	})
	if err != nil && !errors.Is(err, providers.ErrProvider) && ctx.Err() == nil {
		return "", fmt.Errorf("%w: %w", providers.ErrProvider, err)
	}
	return output, err
}

type generation struct {
	text string
	err  error
}

// generate bounds a provider call by the step timeout even when the client
// does not honor context cancellation.
func (e *Engine) generate(ctx context.Context, client providers.Client, req providers.Request) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	done := make(chan generation, 1)
	go func() {
		text, err := client.Generate(sctx, req)
		done <- generation{text: text, err: err}
	}()

	select {
	case g := <-done:
		if g.err != nil && ctx.Err() == nil && errors.Is(sctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrStepTimeout, e.stepTimeout)
		}
		return g.text, g.err
	case <-sctx.Done():
		select {
		case g := <-done:
			return g.text, g.err
		default:
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w after %s", ErrStepTimeout, e.stepTimeout)
	}
}

// content resolves the prompt text for a step. The version store wins when it
// holds a working copy; the relational copy is consulted otherwise, and
// also to flag divergence.
func (e *Engine) content(ctx context.Context, result *StepResult) (string, error) {
	id := result.PromptID

	var versioned string
	if e.deps.Versions != nil && e.deps.Versions.Exists(ctx, id) {
		c, err := e.deps.Versions.Read(ctx, id, "")
		if err != nil {
			e.logger.WarnContext(ctx, "versioned content unavailable", "prompt_id", id, "error", err)
		} else {
			versioned = c
		}
	}

	var relational string
	if e.deps.Fallback != nil {
		c, ok, err := e.deps.Fallback.Content(ctx, id)
		switch {
		case err != nil:
			e.logger.WarnContext(ctx, "relational content unavailable", "prompt_id", id, "error", err)
		case ok:
			relational = c
		}
	}

	switch {
	case versioned != "":
		result.Source = SourceVersions
		if relational != "" && relational != versioned {
			result.Diverged = true
			e.logger.WarnContext(ctx, "prompt content diverged", "prompt_id", id)
		}
		return versioned, nil
	case relational != "":
		result.Source = SourceRelational
		return relational, nil
	default:
		return "", fmt.Errorf("%w: prompt %d", ErrContentNotFound, id)
	}
}
