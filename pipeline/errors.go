package pipeline

import (
	"errors"
	"fmt"
)

// ErrRetriesExceeded is the synthetic failure used when a stage keeps
// returning StatusRetry after its attempt limit is spent. Test with
// errors.Is.
var ErrRetriesExceeded = errors.New("retries exceeded")

// StageFailedError reports that a stage failed after all allowed attempts.
// It wraps the stage's last error; use errors.Is/As to reach the original
// cause.
type StageFailedError struct {
	Pipeline string
	StageID  string
	Attempts int
	Err      error
}

func (e *StageFailedError) Error() string {
	return fmt.Sprintf("pipeline %q stage %q failed after %d attempt(s): %v",
		e.Pipeline, e.StageID, e.Attempts, e.Err)
}

func (e *StageFailedError) Unwrap() error { return e.Err }
