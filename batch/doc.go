// Package batch fans a pipeline out over many independent inputs.
//
// RunBatch executes one pipeline run per Item drawn from a finite,
// single-consumption sequence, each run with a brand-new Context seeded from
// the item's params, under bounded concurrency (Options.MaxParallel workers).
// Items are fully isolated: no item ever observes another item's context, and
// no ordering is guaranteed between items.
//
// The item failure policy decides what a failing item does to the batch:
// StopOnFailure surfaces the first failing item's cause from RunBatch and
// stops scheduling further items (in-flight items finish their current work;
// cancellation is best-effort); ContinueOnFailure records the failure in the
// Summary and lets the batch complete, attempting every item.
//
// RunSeed is the single-item convenience: it copies a flat parameter map into
// an existing context and runs once, with no concurrency, no batch markers,
// and no item failure policy.
package batch
