// Package history persists pipeline runs and stage attempts to Postgres so
// runs can be monitored and audited.
//
// Recorder implements both pipeline.RunListener and pipeline.Interceptor:
// register it with Runner.AddRunListener and include it in the runner's
// interceptor set. Each run becomes a pipeline_run row (outcome, timestamps,
// final context as JSON); each stage attempt becomes a pipeline_run_stage
// row (attempt number, status, message or error, duration).
//
// Recorder hooks never fail the run: database errors are logged and dropped.
// Apply the embedded schema with Migrate before first use.
package history
