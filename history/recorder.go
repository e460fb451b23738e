package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dcshock/stagerun/pipeline"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx behavior the recorder needs. *pgxpool.Pool,
// *pgx.Conn, and pgx.Tx all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Recorder writes run and stage-attempt history to Postgres. It implements
// pipeline.RunListener (pipeline_run rows) and pipeline.Interceptor
// (pipeline_run_stage rows).
//
// Interceptor hooks are observational by contract, so the recorder swallows
// its own database errors and logs them instead of disturbing the run.
type Recorder struct {
	db    DBTX
	log   *slog.Logger
	order int
}

// NewRecorder returns a Recorder writing through db. If logger is nil,
// database errors are silently dropped.
func NewRecorder(db DBTX, logger *slog.Logger) *Recorder {
	return &Recorder{db: db, log: logger}
}

// SetOrder sets the recorder's interceptor precedence. Use a high value to
// run the recorder innermost, so the recorded duration excludes other
// interceptors' Before time as much as possible.
func (r *Recorder) SetOrder(n int) { r.order = n }

// Order implements pipeline.Interceptor.
func (r *Recorder) Order() int { return r.order }

// OnStart implements pipeline.RunListener. Inserts the pipeline_run row with
// outcome 'running'.
func (r *Recorder) OnStart(ctx context.Context, pipelineName, runID string, run *pipeline.Context) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO pipeline_run (run_id, pipeline, outcome, started_at)
		 VALUES ($1, $2, 'running', now())
		 ON CONFLICT (run_id) DO NOTHING`,
		runID, pipelineName)
	if err != nil {
		r.logErr("insert pipeline_run", runID, err)
	}
}

// OnComplete implements pipeline.RunListener. Updates the pipeline_run row
// with the final outcome, finish time, and the run's context as JSON.
func (r *Recorder) OnComplete(ctx context.Context, report pipeline.Report) {
	ctxJSON := marshalContext(report.Context)
	_, err := r.db.Exec(ctx,
		`UPDATE pipeline_run
		 SET outcome = $2, finished_at = $3, context = $4
		 WHERE run_id = $1`,
		report.RunID, report.Outcome.String(), report.FinishedAt, ctxJSON)
	if err != nil {
		r.logErr("update pipeline_run", report.RunID, err)
	}
}

// Before implements pipeline.Interceptor; the recorder never short-circuits.
func (r *Recorder) Before(ctx context.Context, inv pipeline.Invocation, run *pipeline.Context) *pipeline.Result {
	return nil
}

// After implements pipeline.Interceptor. Inserts a pipeline_run_stage row
// for a completed attempt.
func (r *Recorder) After(ctx context.Context, inv pipeline.Invocation, run *pipeline.Context, result *pipeline.Result, d time.Duration) {
	status := pipeline.StatusContinue
	message := pgtype.Text{}
	if result != nil {
		status = result.Status
		if result.Message != "" {
			message = pgtype.Text{String: result.Message, Valid: true}
		}
	}
	r.insertAttempt(ctx, run, inv, status.String(), message, pgtype.Text{}, d)
}

// OnError implements pipeline.Interceptor. Inserts a pipeline_run_stage row
// for a failed attempt.
func (r *Recorder) OnError(ctx context.Context, inv pipeline.Invocation, run *pipeline.Context, attemptErr error, d time.Duration) {
	errText := pgtype.Text{}
	if attemptErr != nil {
		errText = pgtype.Text{String: attemptErr.Error(), Valid: true}
	}
	r.insertAttempt(ctx, run, inv, "error", pgtype.Text{}, errText, d)
}

func (r *Recorder) insertAttempt(ctx context.Context, run *pipeline.Context, inv pipeline.Invocation, status string, message, errText pgtype.Text, d time.Duration) {
	runID, err := pipeline.As[string](run, pipeline.KeyRunID)
	if err != nil {
		r.logErr("read run id", "", err)
		return
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO pipeline_run_stage (run_id, stage_id, attempt, status, message, error, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, inv.StageID, inv.Attempt, status, message, errText, d.Milliseconds())
	if err != nil {
		r.logErr("insert pipeline_run_stage", runID, err)
	}
}

func (r *Recorder) logErr(op, runID string, err error) {
	if r.log != nil {
		r.log.Error("history: "+op, "run_id", runID, "err", err)
	}
}

// marshalContext serializes the run context for the pipeline_run.context
// column. Values that cannot be marshaled degrade to SQL NULL.
func marshalContext(c *pipeline.Context) []byte {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(c.Snapshot())
	if err != nil {
		return nil
	}
	return data
}

var (
	_ pipeline.RunListener = (*Recorder)(nil)
	_ pipeline.Interceptor = (*Recorder)(nil)
)
