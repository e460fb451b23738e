package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// FailurePolicy decides what the runner does when a stage has failed and no
// attempts remain.
type FailurePolicy int

const (
	// HaltOnError ends the run: no further stages execute, the Report
	// carries OutcomeFailure, and Run returns a *StageFailedError wrapping
	// the stage's original error.
	HaltOnError FailurePolicy = iota
	// ContinueOnError records the failure and advances to the next stage.
	// Run returns nil, but the Report carries OutcomeFailure if any stage
	// escalated.
	ContinueOnError
)

// Runner executes named pipelines resolved from a DefinitionSource.
//
// A Runner is safe for concurrent use: each Run call is independent as long
// as each is given its own Context. Interceptors are sorted once at
// construction by ascending Order and never re-sorted per attempt.
type Runner struct {
	defs         DefinitionSource
	interceptors []Interceptor
	maxRetries   int // extra attempts after the first try
	backoff      time.Duration
	onFailure    FailurePolicy
	listeners    []RunListener
	logger       *slog.Logger
}

// NewRunner builds a Runner.
//
// maxRetryAttempts is the number of additional attempts after the first try
// (0 means no retries; 2 means up to 3 total tries). backoff is the pause
// between attempts. onFailure applies once a stage's attempts are exhausted.
func NewRunner(defs DefinitionSource, interceptors []Interceptor, maxRetryAttempts int, backoff time.Duration, onFailure FailurePolicy) *Runner {
	r := &Runner{
		defs:       defs,
		maxRetries: maxRetryAttempts,
		backoff:    backoff,
		onFailure:  onFailure,
	}
	r.interceptors = append(r.interceptors, interceptors...)
	sort.SliceStable(r.interceptors, func(i, j int) bool {
		return r.interceptors[i].Order() < r.interceptors[j].Order()
	})
	return r
}

// SetLogger attaches a logger. A nil Runner logger (the default) silences
// the runner's own logging.
func (r *Runner) SetLogger(l *slog.Logger) { r.logger = l }

// AddRunListener registers a run listener (nil is ignored). Listeners are
// notified in registration order for both OnStart and OnComplete.
func (r *Runner) AddRunListener(l RunListener) {
	if l != nil {
		r.listeners = append(r.listeners, l)
	}
}

// Run executes the named pipeline against the given context and blocks until
// the run is over.
//
// An empty or unknown pipeline is an empty, successful run. A Stop result
// ends the run early without error. Run returns a *StageFailedError only
// when a stage fails, no attempts remain, and the policy is HaltOnError; the
// Report is still produced and OnComplete listeners still fire on that path.
func (r *Runner) Run(ctx context.Context, pipeline string, run *Context) error {
	if run == nil {
		return errors.New("pipeline: run context must not be nil")
	}

	runID := uuid.New().String()
	started := time.Now()
	failed := false

	defer func() {
		outcome := OutcomeSuccess
		if failed {
			outcome = OutcomeFailure
		}
		report := Report{
			Pipeline:   pipeline,
			RunID:      runID,
			Outcome:    outcome,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Context:    run,
		}
		for _, l := range r.listeners {
			l.OnComplete(ctx, report)
		}
	}()

	run.Put(KeyRunID, runID)
	for _, l := range r.listeners {
		l.OnStart(ctx, pipeline, runID, run)
	}

	stages := r.defs.StagesFor(pipeline)
	if len(stages) == 0 {
		if r.logger != nil {
			r.logger.Warn("pipeline has no stages", "pipeline", pipeline)
		}
		return nil
	}

	for _, def := range stages {
		run.Put(KeyPipeline, pipeline)
		run.Put(KeyStageID, def.ID)

		if def.Condition != nil && !def.Condition(run) {
			if r.logger != nil {
				r.logger.Debug("skipping stage, condition false", "pipeline", pipeline, "stage", def.ID)
			}
			continue
		}

		stop, stageErr := r.runStage(ctx, pipeline, def, run)
		if stop {
			return nil
		}
		if stageErr != nil {
			failed = true
			if r.onFailure == HaltOnError {
				return stageErr
			}
			// ContinueOnError: advance to the next stage.
		}
	}
	return nil
}

// runStage drives the retry loop for one stage. It returns stop=true when
// the stage asked the whole run to stop, or a non-nil *StageFailedError when
// the stage failed with no attempts left.
func (r *Runner) runStage(ctx context.Context, pipeline string, def StageDef, run *Context) (stop bool, err error) {
	for attempt := 1; ; attempt++ {
		run.Put(KeyAttempt, attempt)
		inv := Invocation{Pipeline: pipeline, StageID: def.ID, Order: def.Order, Attempt: attempt}
		start := time.Now()

		// Before hooks, ascending; the first non-nil result short-circuits.
		var result *Result
		for _, it := range r.interceptors {
			if res := it.Before(ctx, inv, run); res != nil {
				result = res
				break
			}
		}

		var stepErr error
		if result == nil {
			result, stepErr = def.Step(ctx, run)
		}

		if stepErr == nil {
			status := StatusContinue
			if result != nil {
				status = result.Status
			}

			if status == StatusRetry && attempt > r.maxRetries {
				// Exhausted Retry is a failure: the error path below fires
				// OnError (never both After and OnError for one attempt).
				stepErr = fmt.Errorf("%w for stage %q", ErrRetriesExceeded, def.ID)
			} else {
				d := time.Since(start)
				for i := len(r.interceptors) - 1; i >= 0; i-- {
					r.interceptors[i].After(ctx, inv, run, result, d)
				}
				switch status {
				case StatusStop:
					return true, nil
				case StatusRetry:
					if r.logger != nil {
						r.logger.Debug("stage requested retry", "pipeline", pipeline, "stage", def.ID, "attempt", attempt)
					}
					if pauseErr := r.pause(ctx); pauseErr != nil {
						return false, &StageFailedError{Pipeline: pipeline, StageID: def.ID, Attempts: attempt, Err: pauseErr}
					}
					continue
				default:
					// Continue and Skip both advance.
					return false, nil
				}
			}
		}

		d := time.Since(start)
		for i := len(r.interceptors) - 1; i >= 0; i-- {
			r.interceptors[i].OnError(ctx, inv, run, stepErr, d)
		}

		if attempt <= r.maxRetries {
			if pauseErr := r.pause(ctx); pauseErr != nil {
				// Cancelled mid-backoff: stop retrying, keep the stage's
				// error as the cause.
				return false, &StageFailedError{Pipeline: pipeline, StageID: def.ID, Attempts: attempt, Err: stepErr}
			}
			continue
		}
		return false, &StageFailedError{Pipeline: pipeline, StageID: def.ID, Attempts: attempt, Err: stepErr}
	}
}

// pause blocks for the configured backoff, returning early with ctx.Err()
// if the run's context is cancelled.
func (r *Runner) pause(ctx context.Context) error {
	if r.backoff <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.backoff)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
