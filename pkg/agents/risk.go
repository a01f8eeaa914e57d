package agents

import (
	"context"

	"github.com/jllopis/converge/pkg/core"
	"github.com/jllopis/converge/pkg/llm"
)

const riskSystemPrompt = `You are a risk analyst evaluating business strategies.

Given the proposed strategies and their evaluations, identify 2-3 key risks or challenges
that could impact successful execution.

For each risk:
1. Name the risk clearly
2. Explain what could go wrong
3. Suggest a mitigation approach

Format your response as a numbered list, one risk per item.
Keep each risk assessment concise (2-3 sentences).`

var riskSections = []section{
	{title: "Company Context", key: core.Seeds},
	{title: "Market Signals", key: core.Signals},
	{title: "Competitive Landscape", key: core.Competitors},
	{title: "Proposed Strategies", key: core.Strategies, withID: true},
	{title: "Strategy Evaluations", key: core.Evaluations},
}

// RiskAssessmentAgent lists risks and mitigations for evaluated strategies
// as constraints.
type RiskAssessmentAgent struct {
	modelAgent
}

// NewRiskAssessmentAgent creates the agent.
func NewRiskAssessmentAgent(provider llm.Provider, opts ...Option) *RiskAssessmentAgent {
	return &RiskAssessmentAgent{
		modelAgent: newModelAgent("RiskAssessmentAgent", provider, riskSystemPrompt,
			RiskParseConfig, "risk:error", "Risk assessment failed", opts),
	}
}

func (a *RiskAssessmentAgent) Name() string { return a.name }

func (a *RiskAssessmentAgent) Dependencies() []core.ContextKey {
	return []core.ContextKey{core.Strategies, core.Evaluations}
}

func (a *RiskAssessmentAgent) Accepts(facts *core.Context) bool {
	return facts.Has(core.Strategies) && facts.Has(core.Evaluations) && !facts.Has(core.Constraints)
}

func (a *RiskAssessmentAgent) Execute(ctx context.Context, facts *core.Context) core.AgentEffect {
	return a.complete(ctx, a.BuildPrompt(facts))
}

// BuildPrompt renders the user prompt for facts.
func (a *RiskAssessmentAgent) BuildPrompt(facts *core.Context) string {
	return buildPrompt(facts, riskSections,
		"Identify 2-3 key risks or challenges for these strategies and suggest mitigations.")
}
