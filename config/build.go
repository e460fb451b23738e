package config

import (
	"fmt"
	"sort"

	"github.com/dcshock/stagerun/batch"
	"github.com/dcshock/stagerun/pipeline"
)

// Definitions is a pipeline.DefinitionSource backed by stage lists built
// from config. Stage lists are sorted once at build time.
type Definitions struct {
	pipelines map[string][]pipeline.StageDef
}

// StagesFor implements pipeline.DefinitionSource. Unknown pipelines yield an
// empty list.
func (d *Definitions) StagesFor(name string) []pipeline.StageDef {
	return d.pipelines[name]
}

// Names returns the defined pipeline names (unordered).
func (d *Definitions) Names() []string {
	names := make([]string, 0, len(d.pipelines))
	for n := range d.pipelines {
		names = append(names, n)
	}
	return names
}

// BuildStages resolves one pipeline config against the registry. Step and
// condition names must be registered. Stages are stable-sorted by order:
// entries without an explicit order keep their declared position relative to
// equal orders.
func BuildStages(reg *Registry, cfg *PipelineConfig) ([]pipeline.StageDef, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	defs := make([]pipeline.StageDef, 0, len(cfg.Stages))
	for i, ref := range cfg.Stages {
		stepName := ref.Step
		if stepName == "" {
			stepName = ref.ID
		}
		if stepName == "" {
			return nil, fmt.Errorf("stage %d: step or id required", i)
		}
		step, ok := reg.Step(stepName)
		if !ok {
			return nil, fmt.Errorf("stage %d: step %q not in registry", i, stepName)
		}
		id := ref.ID
		if id == "" {
			id = stepName
		}
		var cond pipeline.Condition
		if ref.Condition != "" {
			c, ok := reg.Condition(ref.Condition)
			if !ok {
				return nil, fmt.Errorf("stage %d (%q): condition %q not in registry", i, id, ref.Condition)
			}
			cond = c
		}
		defs = append(defs, pipeline.StageDef{
			ID:        id,
			Order:     ref.Order,
			Step:      step,
			Condition: cond,
		})
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Order < defs[j].Order })
	return defs, nil
}

// BuildDefinitions builds a DefinitionSource for every pipeline in multi.
// If a pipeline config's Name is empty, the map key is used.
func BuildDefinitions(reg *Registry, multi *MultiPipelineConfig) (*Definitions, error) {
	if multi == nil {
		return nil, fmt.Errorf("MultiPipelineConfig is nil")
	}
	out := &Definitions{pipelines: make(map[string][]pipeline.StageDef, len(multi.Pipelines))}
	for name, cfg := range multi.Pipelines {
		if cfg.Name == "" {
			cfg.Name = name
		}
		defs, err := BuildStages(reg, &cfg)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", name, err)
		}
		out.pipelines[name] = defs
	}
	return out, nil
}

// BuildRunner constructs a pipeline.Runner from a RunnerConfig.
// on_failure accepts "halt" (default when empty) or "continue".
func BuildRunner(defs pipeline.DefinitionSource, interceptors []pipeline.Interceptor, cfg *RunnerConfig) (*pipeline.Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RunnerConfig is nil")
	}
	policy, err := failurePolicy(cfg.OnFailure)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(defs, interceptors, cfg.MaxRetryAttempts, cfg.RetryBackoff.Duration(), policy), nil
}

func failurePolicy(s string) (pipeline.FailurePolicy, error) {
	switch s {
	case "", "halt":
		return pipeline.HaltOnError, nil
	case "continue":
		return pipeline.ContinueOnError, nil
	default:
		return 0, fmt.Errorf("on_failure %q not supported (use \"halt\" or \"continue\")", s)
	}
}

// BuildBatchOptions converts a BatchConfig to batch.Options, applying the
// batch defaults for zero fields. on_item_failure accepts "continue"
// (default when empty) or "stop".
func BuildBatchOptions(cfg *BatchConfig) (batch.Options, error) {
	opts := batch.DefaultOptions()
	if cfg == nil {
		return opts, nil
	}
	if cfg.MaxParallel > 0 {
		opts.MaxParallel = cfg.MaxParallel
	}
	switch cfg.OnItemFailure {
	case "", "continue":
		opts.OnItemFailure = batch.ContinueOnFailure
	case "stop":
		opts.OnItemFailure = batch.StopOnFailure
	default:
		return opts, fmt.Errorf("on_item_failure %q not supported (use \"stop\" or \"continue\")", cfg.OnItemFailure)
	}
	if cfg.PerItemTimeout > 0 {
		opts.PerItemTimeout = cfg.PerItemTimeout.Duration()
	}
	return opts, nil
}
