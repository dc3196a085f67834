package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run pairs a definition with its options for batch execution.
type Run struct {
	Definition Definition
	Options    Options
	Progress   ProgressFunc
}

// Go starts def on its own goroutine. The returned channel yields the outcome
// once and is then closed.
func (e *Engine) Go(ctx context.Context, def Definition, opts Options, progress ProgressFunc) <-chan *Outcome {
	ch := make(chan *Outcome, 1)
	go func() {
		defer close(ch)
		ch <- e.Execute(ctx, def, opts, progress)
	}()
	return ch
}

// ExecuteAll runs independent definitions concurrently, bounded by
// MaxConcurrentRuns. Outcomes are returned in input order.
func (e *Engine) ExecuteAll(ctx context.Context, runs []Run) []*Outcome {
	outcomes := make([]*Outcome, len(runs))

	var g errgroup.Group
	g.SetLimit(max(e.cfg.MaxConcurrentRuns, 1))

	for i, r := range runs {
		g.Go(func() error {
			outcomes[i] = e.Execute(ctx, r.Definition, r.Options, r.Progress)
			return nil
		})
	}

	g.Wait()
	return outcomes
}
