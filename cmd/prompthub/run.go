package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/prompthub/internal/executions"
	"github.com/JaimeStill/prompthub/internal/workflow"
)

type runFlags struct {
	input       string
	model       string
	temperature float64
	stopOnError bool
	files       []string
	archive     bool
	quiet       bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <workspace-id>...",
		Short: "Execute workspace prompt sequences",
		Long: `Execute the prompt sequence of one or more workspaces. Each step's output
becomes the next step's input. Several workspaces run concurrently, bounded
by execution.max_concurrent_runs. Progress is written to stderr.

Exit status is 2 when a run fails and 130 when it is cancelled.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return a.runWorkflows(cmd, ids, f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Initial input for the first step")
	cmd.Flags().StringVar(&f.model, "model", "", "Model for every step (default execution.default_model)")
	cmd.Flags().Float64VarP(&f.temperature, "temperature", "t", 0.7, "Sampling temperature")
	cmd.Flags().BoolVar(&f.stopOnError, "stop-on-error", true, "Stop at the first failed step")
	cmd.Flags().StringArrayVar(&f.files, "file", nil, "Attach a file to every step (repeatable)")
	cmd.Flags().BoolVar(&f.archive, "archive", false, "Archive outcomes to blob storage")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "Suppress progress output")
	return cmd
}

func (a *app) runWorkflows(cmd *cobra.Command, ids []int64, f runFlags) error {
	ctx := cmd.Context()

	engine, err := a.engine()
	if err != nil {
		return err
	}

	var archive *executions.Archive
	if f.archive {
		if archive, err = a.archive(); err != nil {
			return err
		}
	}

	sys, err := a.workspaces()
	if err != nil {
		return err
	}

	opts := workflow.Options{
		InitialInput: f.input,
		Model:        f.model,
		Temperature:  f.temperature,
		StopOnError:  f.stopOnError,
		Files:        f.files,
	}

	progress := a.progress(f.quiet, len(ids) > 1)

	runs := make([]workflow.Run, 0, len(ids))
	for _, id := range ids {
		def, err := sys.Definition(ctx, id)
		if err != nil {
			return fmt.Errorf("workspace %d: %w", id, err)
		}
		runs = append(runs, workflow.Run{Definition: *def, Options: opts, Progress: progress})
	}

	a.ran = true

	var outcomes []*workflow.Outcome
	if len(runs) == 1 {
		done := engine.Go(ctx, runs[0].Definition, opts, progress)
		outcomes = []*workflow.Outcome{a.await(ctx, done, f.quiet)}
	} else {
		outcomes = engine.ExecuteAll(ctx, runs)
	}

	if archive != nil {
		for _, out := range outcomes {
			key, err := archive.Save(ctx, out)
			if err != nil {
				return err
			}
			if !a.asJSON {
				fmt.Fprintf(a.errOut, "archived %s\n", key)
			}
		}
	}

	if a.asJSON {
		var err error
		if len(outcomes) == 1 {
			err = a.printJSON(outcomes[0])
		} else {
			err = a.printJSON(outcomes)
		}
		if err != nil {
			return err
		}
	} else {
		for _, out := range outcomes {
			a.printOutcome(out)
		}
	}

	return outcomeErr(outcomes)
}

// await returns the outcome on done. When ctx ends first it tells the user
// the run is winding down and keeps waiting, so a partial outcome is still
// printed and archived.
func (a *app) await(ctx context.Context, done <-chan *workflow.Outcome, quiet bool) *workflow.Outcome {
	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		if !quiet {
			fmt.Fprintln(a.errOut, a.styles().warn.Render("cancelling: waiting for the current step to stop"))
		}
		return <-done
	}
}

// progress returns a ProgressFunc that writes one line per step event.
// Concurrent runs share the writer, so their lines carry a run prefix.
func (a *app) progress(quiet, prefixed bool) workflow.ProgressFunc {
	if quiet {
		return nil
	}

	st := a.styles()
	var mu sync.Mutex

	return func(ev workflow.Event) {
		prefix := ""
		if prefixed {
			prefix = ev.RunID.String()[:8] + " "
		}

		var line string
		switch ev.Type {
		case workflow.EventStart:
			line = st.muted.Render(fmt.Sprintf("%s[%d/%d] %s ...", prefix, ev.Step, ev.TotalSteps, ev.PromptTitle))
		case workflow.EventComplete:
			line = fmt.Sprintf("%s[%d/%d] %s %s (%.1fs)", prefix, ev.Step, ev.TotalSteps, ev.PromptTitle,
				st.ok.Render("ok"), ev.ExecutionTime)
		case workflow.EventError:
			line = fmt.Sprintf("%s[%d/%d] %s %s: %s", prefix, ev.Step, ev.TotalSteps, ev.PromptTitle,
				st.fail.Render("failed"), ev.Error)
		}

		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(a.errOut, line)
	}
}

func (a *app) printOutcome(out *workflow.Outcome) {
	st := a.styles()

	rows := make([][]string, 0, len(out.Results))
	for _, r := range out.Results {
		status := st.ok.Render("ok")
		if r.Failed() {
			status = st.fail.Render(truncate(r.Error, 50))
		} else if r.Diverged {
			status = st.warn.Render("ok (diverged)")
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Step),
			truncate(r.PromptTitle, 40),
			string(r.Source),
			r.ExecutionTime.Round(time.Millisecond).String(),
			status,
		})
	}

	a.printf("run %s workspace %d model %s\n", out.RunID, out.WorkspaceID, out.Model)
	if len(rows) > 0 {
		a.table([]string{"STEP", "PROMPT", "SOURCE", "TIME", "STATUS"}, rows)
	}

	summary := fmt.Sprintf("%d/%d steps in %s", out.CompletedSteps, out.TotalSteps, out.TotalTime.Round(time.Millisecond))
	switch {
	case out.Cancelled:
		a.println(st.warn.Render("cancelled: " + summary))
	case out.Success:
		a.println(st.ok.Render("success: " + summary))
	default:
		msg := "failed: " + summary
		if out.Error != "" {
			msg += ": " + out.Error
		}
		a.println(st.fail.Render(msg))
	}

	if out.FinalOutput != "" {
		a.println()
		a.println(out.FinalOutput)
	}
}

func outcomeErr(outcomes []*workflow.Outcome) error {
	for _, out := range outcomes {
		if out.Cancelled {
			return fmt.Errorf("%w: %s", errRunCancelled, out.RunID)
		}
	}
	for _, out := range outcomes {
		if !out.Success {
			return fmt.Errorf("%w: %s", errRunFailed, out.RunID)
		}
	}
	return nil
}

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived workflow outcomes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <workspace-id>",
			Short: "List archived runs of a workspace",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				archive, err := a.archive()
				if err != nil {
					return err
				}

				runs, err := archive.Runs(cmd.Context(), id)
				if err != nil {
					return err
				}

				if a.asJSON {
					return a.printJSON(runs)
				}
				for _, r := range runs {
					a.println(r.String())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <workspace-id> <run-id>",
			Short: "Show one archived outcome",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				runID, err := uuid.Parse(args[1])
				if err != nil {
					return fmt.Errorf("invalid run id %q", args[1])
				}
				archive, err := a.archive()
				if err != nil {
					return err
				}

				out, err := archive.Find(cmd.Context(), id, runID)
				if err != nil {
					return err
				}

				if a.asJSON {
					return a.printJSON(out)
				}
				a.printOutcome(out)
				return nil
			},
		},
	)
	return cmd
}
