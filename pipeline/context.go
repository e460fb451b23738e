package pipeline

import (
	"fmt"
	"sync"
)

// Reserved context keys written by the Runner (and the batch runner) for
// logging, metrics, and diagnostics. Application code should not write keys
// beginning with "__".
const (
	// KeyPipeline holds the pipeline name.
	KeyPipeline = "__pipeline"
	// KeyStageID holds the id of the stage currently executing.
	KeyStageID = "__stageId"
	// KeyAttempt holds the 1-based attempt number for the current stage.
	KeyAttempt = "__attempt"
	// KeyRunID holds the unique id generated for this run.
	KeyRunID = "__runId"
	// KeyBatch is set to true when the run was started by a batch.
	KeyBatch = "__batch"
	// KeySeed holds the batch item's stable key (avoid high-cardinality
	// secrets; it shows up in logs and persisted run history).
	KeySeed = "seed"
)

// Context is the mutable key/value store shared by all stages in one run.
// It is scoped to exactly one run: create a fresh Context per run (the batch
// runner creates one per item) and never share it across concurrent runs.
// Safe for concurrent use.
type Context struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewContext returns an empty run context.
func NewContext() *Context {
	return &Context{data: make(map[string]any)}
}

// Put stores value under key, replacing any existing value.
func (c *Context) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]any)
	}
	c.data[key] = value
}

// Get returns the raw value for key and whether it was set.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Delete removes key from the context.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Keys returns all keys currently set (unordered).
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of keys set.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Snapshot returns a shallow copy of the context's contents.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// As returns the value for key as type T. Unlike a raw type assertion on
// Get's result, As reports a clear error naming the key and both types when
// the stored value is not a T, and a distinct error when the key is not set.
func As[T any](c *Context, key string) (T, error) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, fmt.Errorf("context: key %q not set", key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("context: key %q holds %T, not %T", key, v, zero)
	}
	return t, nil
}
