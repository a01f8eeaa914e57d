// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Package eval runs declarative fixtures against a pack and checks what the
// run produced.
package eval

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is one seed fact of a fixture.
type Seed struct {
	ID      string `json:"id" yaml:"id"`
	Content string `json:"content" yaml:"content"`
}

// Expectation lists the assertions of a fixture. Every field is optional and
// produces its own check when present.
type Expectation struct {
	Converged           *bool    `json:"converged,omitempty" yaml:"converged,omitempty"`
	MaxCycles           *int     `json:"max_cycles,omitempty" yaml:"max_cycles,omitempty"`
	MinFacts            *int     `json:"min_facts,omitempty" yaml:"min_facts,omitempty"`
	MinStrategies       *int     `json:"min_strategies,omitempty" yaml:"min_strategies,omitempty"`
	MinEvaluations      *int     `json:"min_evaluations,omitempty" yaml:"min_evaluations,omitempty"`
	MaxLatencyMs        *int64   `json:"max_latency_ms,omitempty" yaml:"max_latency_ms,omitempty"`
	MustContainFacts    []string `json:"must_contain_facts,omitempty" yaml:"must_contain_facts,omitempty"`
	MustNotContainFacts []string `json:"must_not_contain_facts,omitempty" yaml:"must_not_contain_facts,omitempty"`
	RequiredContextKeys []string `json:"required_context_keys,omitempty" yaml:"required_context_keys,omitempty"`
}

// Fixture is a test scenario: seeds for a pack plus expectations on the run.
type Fixture struct {
	EvalID      string      `json:"eval_id" yaml:"eval_id"`
	Description string      `json:"description" yaml:"description"`
	Pack        string      `json:"pack" yaml:"pack"`
	Seeds       []Seed      `json:"seeds" yaml:"seeds"`
	Expected    Expectation `json:"expected" yaml:"expected"`
	UseMockLLM  bool        `json:"use_mock_llm" yaml:"use_mock_llm"`
}

// Validate checks the fields a fixture cannot run without.
func (f Fixture) Validate() error {
	if strings.TrimSpace(f.EvalID) == "" {
		return fmt.Errorf("fixture eval_id is required")
	}
	if strings.TrimSpace(f.Pack) == "" {
		return fmt.Errorf("fixture %s: pack is required", f.EvalID)
	}
	return nil
}

// ParseFixtureJSON decodes and validates a JSON fixture.
func ParseFixtureJSON(data []byte) (Fixture, error) {
	var f Fixture
	if len(data) == 0 {
		return f, fmt.Errorf("empty JSON payload")
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse json fixture: %w", err)
	}
	return f, f.Validate()
}

// ParseFixtureYAML decodes and validates a YAML fixture.
func ParseFixtureYAML(data []byte) (Fixture, error) {
	var f Fixture
	if len(data) == 0 {
		return f, fmt.Errorf("empty YAML payload")
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse yaml fixture: %w", err)
	}
	return f, f.Validate()
}
