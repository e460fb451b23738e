// Package config builds pipeline definitions from YAML and a step registry.
//
// Steps and conditions are registered under names; YAML declares which steps
// make up each pipeline, their execution order, and an optional named
// condition per stage. BuildDefinitions resolves the names against the
// registry and produces a pipeline.DefinitionSource with the stages
// stable-sorted by order (ties keep declaration order).
//
// A stage can be written as a plain name or as a struct:
//
//	pipelines:
//	  ingest:
//	    stages:
//	      - fetch
//	      - id: parse-report
//	        step: parse
//	        order: 20
//	        condition: has-input
//
// Runner and batch settings can also come from YAML (RunnerConfig,
// BatchConfig), including durations written as "500ms" or "5m".
package config
