package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// PipelineConfig defines one pipeline: its name and ordered stage entries.
type PipelineConfig struct {
	Name   string     `yaml:"name"`
	Stages []StageRef `yaml:"stages"`
}

// StageRef is a single stage entry: either a plain step name or a struct.
// In YAML, a stage can be written as:
//
//	- fetch
//	- id: parse-report
//	  step: parse
//	  order: 20
//	  condition: has-input
type StageRef struct {
	// ID is the stage's stable identifier (logs, metrics, history rows).
	// Defaults to the step name.
	ID string `yaml:"id"`

	// Step names a registered step. Defaults to ID when only one is given.
	Step string `yaml:"step"`

	// Order positions the stage within the pipeline; lower runs first.
	// Stages without an explicit order keep their declared position.
	Order int `yaml:"order"`

	// Condition names a registered condition evaluated before each run of
	// this stage. Empty means the stage always runs.
	Condition string `yaml:"condition"`
}

// UnmarshalYAML allows a stage to be a string (step name only) or a struct.
func (s *StageRef) UnmarshalYAML(value *yaml.Node) error {
	var nameOnly string
	if err := value.Decode(&nameOnly); err == nil {
		s.Step = nameOnly
		return nil
	}
	type raw StageRef
	return value.Decode((*raw)(s))
}

// Duration is a time.Duration that unmarshals from YAML strings (e.g. "60s", "5m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the standard time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// MultiPipelineConfig is the root structure for a file that defines multiple
// pipelines. Top-level key is "pipelines"; map keys are pipeline names.
type MultiPipelineConfig struct {
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
}

// ParsePipelineConfig parses YAML bytes into a single PipelineConfig.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseMultiPipelineConfig parses YAML bytes that contain a "pipelines" map.
// Example:
//
//	pipelines:
//	  ingest:
//	    stages: [fetch, parse]
//	  notify:
//	    stages: [validate, send]
func ParseMultiPipelineConfig(data []byte) (*MultiPipelineConfig, error) {
	var cfg MultiPipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RunnerConfig holds pipeline.Runner settings in YAML form.
type RunnerConfig struct {
	// MaxRetryAttempts is the number of extra attempts after the first try.
	MaxRetryAttempts int `yaml:"max_retry_attempts"`

	// RetryBackoff is the pause between attempts (e.g. "500ms").
	RetryBackoff Duration `yaml:"retry_backoff"`

	// OnFailure: "halt" (default) or "continue".
	OnFailure string `yaml:"on_failure"`
}

// BatchConfig holds batch.Options in YAML form.
type BatchConfig struct {
	MaxParallel int `yaml:"max_parallel"`

	// OnItemFailure: "continue" (default) or "stop".
	OnItemFailure string `yaml:"on_item_failure"`

	// PerItemTimeout is informational only (see batch.Options).
	PerItemTimeout Duration `yaml:"per_item_timeout"`
}

// ParseRunnerConfig parses YAML bytes into a RunnerConfig.
func ParseRunnerConfig(data []byte) (*RunnerConfig, error) {
	var cfg RunnerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseBatchConfig parses YAML bytes into a BatchConfig.
func ParseBatchConfig(data []byte) (*BatchConfig, error) {
	var cfg BatchConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
