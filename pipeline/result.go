package pipeline

// Status is the control directive a stage returns to the runner.
type Status int

const (
	// StatusContinue means the stage completed; advance to the next stage.
	StatusContinue Status = iota
	// StatusSkip means the stage was intentionally skipped (condition, cache
	// hit, feature flag); advance to the next stage.
	StatusSkip
	// StatusRetry asks the runner to re-attempt the stage, respecting the
	// configured backoff and attempt limit.
	StatusRetry
	// StatusStop ends the run immediately; no further stages execute.
	StatusStop
)

// String returns the lowercase name of the status (used in logs and the
// history tables).
func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusSkip:
		return "skip"
	case StatusRetry:
		return "retry"
	case StatusStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Result is what a stage attempt produced: a control Status plus an optional
// human-readable message for logs and run history. A nil *Result is treated
// as Continue with no message.
type Result struct {
	Status  Status
	Message string
}

// Success returns a Continue result with no message.
func Success() *Result { return &Result{Status: StatusContinue} }

// Skip returns a Skip result with a reason.
func Skip(msg string) *Result { return &Result{Status: StatusSkip, Message: msg} }

// Retry returns a Retry result with a reason (shows up in logs/history).
func Retry(msg string) *Result { return &Result{Status: StatusRetry, Message: msg} }

// Stop returns a Stop result with a reason.
func Stop(msg string) *Result { return &Result{Status: StatusStop, Message: msg} }
