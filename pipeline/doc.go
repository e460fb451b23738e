// Package pipeline executes named pipelines: ordered stages that share one
// mutable Context per run. A Runner resolves the ordered stage list from a
// DefinitionSource, evaluates each stage's condition, and drives the stage
// through a retry loop with a fixed backoff. Stages return a Result whose
// Status directs control flow: Continue and Skip advance to the next stage,
// Retry re-attempts the stage (up to the configured limit), and Stop ends the
// run immediately.
//
// Interceptors wrap every stage attempt. Before hooks run in ascending Order
// and may short-circuit the stage by returning a non-nil Result; After and
// OnError hooks run in the reverse order, and exactly one of the two fires
// per attempt. The duration passed to After/OnError spans from just before
// the first Before hook to the end of the attempt.
//
// Run listeners observe the run as a whole: OnStart fires before the first
// stage, OnComplete fires exactly once with an immutable Report on every exit
// path, including failures.
//
// Failure handling: a stage signals failure by returning an error (or by
// exhausting Retry attempts). Remaining attempts trigger a backoff pause and
// a re-run. Once attempts are exhausted, the runner's FailurePolicy decides:
// HaltOnError ends the run and Run returns a *StageFailedError wrapping the
// original cause; ContinueOnError records the failure and advances to the
// next stage, and the run's Report carries OutcomeFailure.
//
// The Runner is single-threaded per run; stages execute strictly in declared
// order and the backoff pause blocks the calling goroutine. For fanning one
// pipeline out over many inputs concurrently, see the batch package.
package pipeline
