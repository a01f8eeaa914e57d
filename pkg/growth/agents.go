// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Package growth is the deterministic half of the growth-strategy pack: rule
// agents that derive signals, competitors, strategies and evaluations from
// seed facts, plus the invariants that keep their output sane.
package growth

import (
	"context"
	"fmt"
	"strings"

	"github.com/jllopis/converge/pkg/core"
)

// gate is the run-once shape shared by every agent of the pack.
func gate(facts *core.Context, deps []core.ContextKey, out core.ContextKey) bool {
	return core.DependenciesMet(facts, deps) && !facts.Has(out)
}

// MarketSignalAgent turns seeds into market signals.
type MarketSignalAgent struct{}

func (MarketSignalAgent) Name() string { return "MarketSignalAgent" }

func (MarketSignalAgent) Dependencies() []core.ContextKey {
	return []core.ContextKey{core.Seeds}
}

func (a MarketSignalAgent) Accepts(facts *core.Context) bool {
	return gate(facts, a.Dependencies(), core.Signals)
}

func (MarketSignalAgent) Execute(_ context.Context, facts *core.Context) core.AgentEffect {
	var out []core.Fact
	for _, seed := range facts.Get(core.Seeds) {
		out = append(out, core.NewFact(core.Signals, "signal:seed-"+seed.ID,
			fmt.Sprintf("Market context from seed: %s", seed.Content)))
	}
	out = append(out,
		core.NewFact(core.Signals, "signal:linkedin-b2b",
			"LinkedIn shows strong engagement with B2B decision makers in the target segment"),
		core.NewFact(core.Signals, "signal:self-service",
			"Buyers increasingly prefer self-service product evaluation before talking to sales"),
	)
	return core.EffectWithFacts(out...)
}

// CompetitorAgent summarises the competitive landscape once signals exist.
type CompetitorAgent struct{}

func (CompetitorAgent) Name() string { return "CompetitorAgent" }

func (CompetitorAgent) Dependencies() []core.ContextKey {
	return []core.ContextKey{core.Signals}
}

func (a CompetitorAgent) Accepts(facts *core.Context) bool {
	return gate(facts, a.Dependencies(), core.Competitors)
}

func (CompetitorAgent) Execute(_ context.Context, _ *core.Context) core.AgentEffect {
	return core.EffectWithFacts(
		core.NewFact(core.Competitors, "competitor:incumbent",
			"Established incumbents compete on brand recognition and field sales teams"),
		core.NewFact(core.Competitors, "competitor:challenger",
			"Product-led challengers win deals with free tiers and instant demos"),
	)
}

// strategyRule adds a strategy when any seed mentions one of its keywords.
type strategyRule struct {
	keywords []string
	id       string
	content  string
}

var seedStrategies = []strategyRule{
	{
		keywords: []string{"enterprise"},
		id:       "strategy:enterprise-outbound",
		content:  "Build an outbound motion for enterprise accounts with named-account targeting",
	},
	{
		keywords: []string{"partner", "reseller", "channel"},
		id:       "strategy:partner-channel",
		content:  "Recruit implementation partners to resell and onboard customers",
	},
	{
		keywords: []string{"content", "seo", "blog"},
		id:       "strategy:content-marketing",
		content:  "Publish comparison guides and case studies to capture organic search demand",
	},
}

// StrategyAgent proposes growth strategies from signals and competitors.
// It always proposes at least two.
type StrategyAgent struct{}

func (StrategyAgent) Name() string { return "StrategyAgent" }

func (StrategyAgent) Dependencies() []core.ContextKey {
	return []core.ContextKey{core.Signals, core.Competitors}
}

func (a StrategyAgent) Accepts(facts *core.Context) bool {
	return gate(facts, a.Dependencies(), core.Strategies)
}

func (StrategyAgent) Execute(_ context.Context, facts *core.Context) core.AgentEffect {
	out := []core.Fact{
		core.NewFact(core.Strategies, "strategy:linkedin-b2b",
			"Run targeted LinkedIn campaigns for B2B decision makers"),
		core.NewFact(core.Strategies, "strategy:self-service-demo",
			"Launch a self-service interactive product demo"),
	}
	seeds := facts.Get(core.Seeds)
	for _, rule := range seedStrategies {
		if mentions(seeds, rule.keywords) {
			out = append(out, core.NewFact(core.Strategies, rule.id, rule.content))
		}
	}
	return core.EffectWithFacts(out...)
}

func mentions(facts []core.Fact, keywords []string) bool {
	for _, f := range facts {
		lower := strings.ToLower(f.Content)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
	}
	return false
}

var strategyScores = map[string]struct {
	score     int
	rationale string
}{
	"linkedin-b2b":        {85, "aligns with strong LinkedIn engagement signals and needs no product work"},
	"self-service-demo":   {78, "matches buyer preference for self-service but requires development investment"},
	"enterprise-outbound": {70, "large deal sizes offset a long sales cycle against incumbents"},
	"partner-channel":     {64, "extends reach cheaply but partner enablement takes quarters"},
	"content-marketing":   {72, "compounds over time and counters challengers on organic search"},
}

// EvaluationAgent scores every strategy with a rationale.
type EvaluationAgent struct{}

func (EvaluationAgent) Name() string { return "EvaluationAgent" }

func (EvaluationAgent) Dependencies() []core.ContextKey {
	return []core.ContextKey{core.Strategies}
}

func (a EvaluationAgent) Accepts(facts *core.Context) bool {
	return gate(facts, a.Dependencies(), core.Evaluations)
}

func (EvaluationAgent) Execute(_ context.Context, facts *core.Context) core.AgentEffect {
	var out []core.Fact
	for _, s := range facts.Get(core.Strategies) {
		suffix := StrategySuffix(s.ID)
		score, ok := strategyScores[suffix]
		if !ok {
			score.score = 50 + len(s.Content)%40
			score.rationale = "no historical data for this channel, scored on scope alone"
		}
		out = append(out, core.NewFact(core.Evaluations, "eval:"+suffix,
			fmt.Sprintf("Score: %d/100. Rationale: %s", score.score, score.rationale)))
	}
	return core.EffectWithFacts(out...)
}

// StrategySuffix strips the "strategy:" prefix from a strategy id.
func StrategySuffix(id string) string {
	return strings.TrimPrefix(id, "strategy:")
}
