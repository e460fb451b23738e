package batch

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dcshock/stagerun/pipeline"
	"golang.org/x/sync/errgroup"
)

// Item is one independent batch input. Key is a stable identifier used for
// idempotency and diagnostics (it is written into the item's context under
// pipeline.KeySeed; avoid high-cardinality secrets). Params are copied into
// the item's fresh context before its first stage runs.
type Item struct {
	Key    string
	Params map[string]any
}

// Supplier produces a finite, one-shot sequence of items for a batch run.
// Implementations may pull from databases, list files, or page remote APIs;
// the returned sequence must not be ranged over twice.
type Supplier interface {
	Items(ctx context.Context, runParams map[string]any) (iter.Seq[Item], error)
}

// FailurePolicy decides what a failing item does to the rest of the batch.
type FailurePolicy int

const (
	// ContinueOnFailure records the item's failure and lets the batch
	// complete; RunBatch does not return an error once every item has been
	// attempted.
	ContinueOnFailure FailurePolicy = iota
	// StopOnFailure makes the first failing item's cause the batch's error;
	// items not yet started are dropped and in-flight items are cancelled
	// best-effort.
	StopOnFailure
)

// Options controls one batch execution.
type Options struct {
	// MaxParallel is the number of items processed concurrently (min 1).
	MaxParallel int
	// OnItemFailure applies when an item's run returns an error, after
	// stage-level retries inside the run are spent.
	OnItemFailure FailurePolicy
	// PerItemTimeout is an informational budget per item. It is not enforced
	// here; put deadlines in your stages or wrap execution externally.
	PerItemTimeout time.Duration
}

// DefaultOptions returns MaxParallel 4, ContinueOnFailure, and a 10 minute
// per-item budget.
func DefaultOptions() Options {
	return Options{MaxParallel: 4, OnItemFailure: ContinueOnFailure, PerItemTimeout: 10 * time.Minute}
}

// ContextFactory returns a fresh, empty run context. It is called once per
// item; contexts are never reused across items.
type ContextFactory func() *pipeline.Context

// Summary aggregates per-item outcomes for a batch.
type Summary struct {
	Total     int // items started (dropped items are not counted)
	Succeeded int
	Failed    int
	// Errors maps a failed item's key to its run error.
	Errors map[string]error
	// Outcome is OutcomeSuccess when every started item succeeded,
	// OutcomePartial on mixed results, OutcomeFailure when all failed.
	Outcome pipeline.Outcome
}

// Runner executes batches by composing a pipeline.Runner.
type Runner struct {
	runner *pipeline.Runner
}

// NewRunner returns a batch runner that uses the given pipeline runner for
// every item.
func NewRunner(r *pipeline.Runner) *Runner {
	return &Runner{runner: r}
}

// RunSeed copies seedParams into run and executes the pipeline once,
// synchronously. The stage failure policy of the underlying pipeline runner
// still applies; no batch metadata is written.
func (b *Runner) RunSeed(ctx context.Context, pipelineName string, run *pipeline.Context, seedParams map[string]any) error {
	for k, v := range seedParams {
		run.Put(k, v)
	}
	return b.runner.Run(ctx, pipelineName, run)
}

// RunBatch executes one pipeline run per item, at most opts.MaxParallel at a
// time. Each item gets a fresh context from factory, seeded with the batch
// marker, the item key, and the item's params.
//
// RunBatch blocks until every started item's outcome is known. Under
// StopOnFailure it returns the first failing item's error (the original
// cause is preserved in the chain) together with the Summary accumulated so
// far; under ContinueOnFailure it returns a nil error and records failures
// in the Summary.
func (b *Runner) RunBatch(ctx context.Context, pipelineName string, factory ContextFactory, items iter.Seq[Item], opts Options) (*Summary, error) {
	limit := opts.MaxParallel
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var stopped atomic.Bool
	var mu sync.Mutex
	sum := &Summary{Errors: make(map[string]error)}

	for item := range items {
		if opts.OnItemFailure == StopOnFailure && (stopped.Load() || gctx.Err() != nil) {
			// Stop requested: drop items that have not started.
			break
		}
		g.Go(func() error {
			if opts.OnItemFailure == StopOnFailure && stopped.Load() {
				// Became stopped while waiting for a worker slot.
				return nil
			}

			run := factory()
			run.Put(pipeline.KeyBatch, true)
			run.Put(pipeline.KeySeed, item.Key)
			for k, v := range item.Params {
				run.Put(k, v)
			}

			mu.Lock()
			sum.Total++
			mu.Unlock()

			if err := b.runner.Run(gctx, pipelineName, run); err != nil {
				mu.Lock()
				sum.Failed++
				sum.Errors[item.Key] = err
				mu.Unlock()
				if opts.OnItemFailure == StopOnFailure {
					stopped.Store(true)
					return fmt.Errorf("batch item %q: %w", item.Key, err)
				}
				return nil
			}
			mu.Lock()
			sum.Succeeded++
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	sum.Outcome = batchOutcome(sum)
	if err != nil {
		sum.Outcome = pipeline.OutcomeFailure
		return sum, err
	}
	return sum, nil
}

// RunSupplied asks the supplier for the batch's items and runs them.
func (b *Runner) RunSupplied(ctx context.Context, pipelineName string, factory ContextFactory, supplier Supplier, runParams map[string]any, opts Options) (*Summary, error) {
	items, err := supplier.Items(ctx, runParams)
	if err != nil {
		return nil, fmt.Errorf("batch supplier: %w", err)
	}
	return b.RunBatch(ctx, pipelineName, factory, items, opts)
}

func batchOutcome(sum *Summary) pipeline.Outcome {
	switch {
	case sum.Failed == 0:
		return pipeline.OutcomeSuccess
	case sum.Succeeded == 0:
		return pipeline.OutcomeFailure
	default:
		return pipeline.OutcomePartial
	}
}

// SliceItems adapts a slice to the single-consumption item sequence RunBatch
// expects.
func SliceItems(items []Item) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}
