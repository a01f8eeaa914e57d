// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Package packs is the closed registry of domain packs compiled into this
// distribution.
package packs

import (
	"log/slog"
	"sort"

	"github.com/jllopis/converge/pkg/agents"
	"github.com/jllopis/converge/pkg/engine"
	"github.com/jllopis/converge/pkg/errors"
	"github.com/jllopis/converge/pkg/growth"
	"github.com/jllopis/converge/pkg/llm"
)

// GrowthStrategy is the name of the growth strategy pack.
const GrowthStrategy = "growth-strategy"

// Info describes a pack.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Agents      []string `json:"agents"`
	Invariants  []string `json:"invariants"`
}

type pack struct {
	info     Info
	register func(e *engine.Engine, provider llm.Provider, logger *slog.Logger)
}

var registry = map[string]pack{
	GrowthStrategy: {
		info: Info{
			Name:        GrowthStrategy,
			Description: "Multi-agent growth strategy analysis with market signals, competitor analysis, strategy synthesis, and evaluation.",
			Version:     "1.0.0",
			Agents: []string{
				"MarketSignalAgent",
				"CompetitorAgent",
				"StrategyAgent",
				"EvaluationAgent",
				"StrategicInsightAgent",
				"RiskAssessmentAgent",
			},
			Invariants: []string{
				"BrandSafetyInvariant",
				"RequireMultipleStrategies",
				"RequireStrategyEvaluations",
				"RequireEvaluationRationale",
			},
		},
		register: registerGrowth,
	},
}

func registerGrowth(e *engine.Engine, provider llm.Provider, logger *slog.Logger) {
	e.Register(growth.MarketSignalAgent{})
	e.Register(growth.CompetitorAgent{})
	e.Register(growth.StrategyAgent{})
	e.Register(growth.EvaluationAgent{})
	e.Register(agents.NewStrategicInsightAgent(provider, agents.WithLogger(logger)))
	e.Register(agents.NewRiskAssessmentAgent(provider, agents.WithLogger(logger)))

	e.RegisterInvariant(growth.NewBrandSafetyInvariant())
	e.RegisterInvariant(growth.RequireMultipleStrategies{})
	e.RegisterInvariant(growth.RequireStrategyEvaluations{})
	e.RegisterInvariant(growth.RequireEvaluationRationale{})
}

// Available returns the known pack names, sorted.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the description of a pack.
func Lookup(name string) (Info, bool) {
	p, ok := registry[name]
	if !ok {
		return Info{}, false
	}
	info := p.info
	info.Agents = append([]string(nil), info.Agents...)
	info.Invariants = append([]string(nil), info.Invariants...)
	return info, true
}

// Register wires the agents and invariants of pack name into e. Every
// model-backed agent shares provider.
func Register(e *engine.Engine, name string, provider llm.Provider) error {
	return RegisterWithLogger(e, name, provider, nil)
}

// RegisterWithLogger is Register with a logger handed to the model-backed agents.
func RegisterWithLogger(e *engine.Engine, name string, provider llm.Provider, logger *slog.Logger) error {
	p, ok := registry[name]
	if !ok {
		return errors.Newf(errors.CodeNotFound, "Unknown pack: %s", name).WithContext("pack", name)
	}
	if provider == nil {
		return errors.New(errors.CodeInvalidInput, "pack "+name+" needs a model provider", nil)
	}
	p.register(e, provider, logger)
	return nil
}
