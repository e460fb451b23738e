package pipeline

import "context"

// Step is a single unit of work in a pipeline. It reads inputs from and
// writes outputs to the run Context. Return a *Result to direct control flow
// (nil is treated as Success), or an error to signal failure; the runner
// applies retry and its failure policy to errors.
type Step func(ctx context.Context, run *Context) (*Result, error)

// Condition is a predicate evaluated against the run Context immediately
// before a stage's first attempt. If it returns false the stage is skipped
// entirely: no attempts, no interceptor calls. Conditions should be pure;
// they are re-evaluated fresh for every run.
type Condition func(run *Context) bool

// StageDef describes one stage inside a pipeline: a stable id, an execution
// order (lower runs first), the Step to run, and an optional Condition
// (nil means always run). StageDefs are owned by the DefinitionSource; the
// runner only reads them.
type StageDef struct {
	ID        string
	Order     int
	Step      Step
	Condition Condition
}

// DefinitionSource supplies the ordered stage list for a pipeline name.
// Implementations must return the stages already sorted by Order (stable:
// ties keep the declared sequence) and may return an empty slice for unknown
// pipelines; the runner treats that as an empty, successful run.
type DefinitionSource interface {
	StagesFor(pipeline string) []StageDef
}

// DefinitionsFunc adapts a function to the DefinitionSource interface.
type DefinitionsFunc func(pipeline string) []StageDef

// StagesFor implements DefinitionSource.
func (f DefinitionsFunc) StagesFor(pipeline string) []StageDef { return f(pipeline) }
