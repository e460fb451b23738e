package pipeline

import (
	"context"
	"time"
)

// Outcome is the final result of a run.
type Outcome int

const (
	// OutcomeSuccess means all stages completed (skips allowed).
	OutcomeSuccess Outcome = iota
	// OutcomeFailure means at least one stage failed and the failure policy
	// marked the run failed.
	OutcomeFailure
	// OutcomePartial is produced only by batch aggregation (some items
	// succeeded, some failed); a single run never reports it.
	OutcomePartial
)

// String returns the lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomePartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Report is an immutable snapshot of a completed run. It is produced exactly
// once per run, on every exit path. The Context field is the run's final
// context, retained for inspection.
type Report struct {
	Pipeline   string
	RunID      string
	Outcome    Outcome
	StartedAt  time.Time
	FinishedAt time.Time
	Context    *Context
}

// RunListener observes run-level lifecycle events. Use it for chaining,
// notifications, or run-scoped persistence. OnStart fires before the first
// stage; OnComplete fires exactly once per run with the final Report, even
// when the run ends in a propagated failure. Embed NopListener to implement
// only one hook.
type RunListener interface {
	OnStart(ctx context.Context, pipeline, runID string, run *Context)
	OnComplete(ctx context.Context, report Report)
}

// NopListener implements RunListener with no-op hooks.
type NopListener struct{}

func (NopListener) OnStart(context.Context, string, string, *Context) {}

func (NopListener) OnComplete(context.Context, Report) {}
