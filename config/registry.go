package config

import (
	"fmt"
	"sync"

	"github.com/dcshock/stagerun/pipeline"
)

// Registry maps names to pipeline steps and conditions so YAML definitions
// can reference them. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	steps      map[string]pipeline.Step
	conditions map[string]pipeline.Condition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		steps:      make(map[string]pipeline.Step),
		conditions: make(map[string]pipeline.Condition),
	}
}

// RegisterStep adds a step under the given name. Overwrites any existing
// registration.
func (r *Registry) RegisterStep(name string, step pipeline.Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.steps == nil {
		r.steps = make(map[string]pipeline.Step)
	}
	r.steps[name] = step
}

// RegisterCondition adds a condition under the given name. Overwrites any
// existing registration.
func (r *Registry) RegisterCondition(name string, cond pipeline.Condition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conditions == nil {
		r.conditions = make(map[string]pipeline.Condition)
	}
	r.conditions[name] = cond
}

// Step returns the step for name, or nil and false if not found.
func (r *Registry) Step(name string) (pipeline.Step, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.steps[name]
	return s, ok
}

// Condition returns the condition for name, or nil and false if not found.
func (r *Registry) Condition(name string) (pipeline.Condition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conditions[name]
	return c, ok
}

// MustStep returns the step for name, or panics if not found.
func (r *Registry) MustStep(name string) pipeline.Step {
	s, ok := r.Step(name)
	if !ok {
		panic(fmt.Sprintf("config: step %q not registered", name))
	}
	return s
}

// StepNames returns all registered step names (unordered).
func (r *Registry) StepNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.steps))
	for n := range r.steps {
		names = append(names, n)
	}
	return names
}
