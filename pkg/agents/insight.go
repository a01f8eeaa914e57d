package agents

import (
	"context"

	"github.com/jllopis/converge/pkg/core"
	"github.com/jllopis/converge/pkg/llm"
)

const insightSystemPrompt = `You are a strategic advisor analyzing growth strategies for a business.

Given the context of market signals, competitor analysis, proposed strategies, and their evaluations,
synthesize 2-3 key strategic insights that the business should consider.

Each insight should:
1. Be actionable and specific
2. Reference the data in the context
3. Provide a clear recommendation

Format your response as a numbered list of insights, one per line.
Keep each insight concise (1-2 sentences).`

var insightSections = []section{
	{title: "Market Signals", key: core.Signals},
	{title: "Competitor Analysis", key: core.Competitors},
	{title: "Proposed Strategies", key: core.Strategies, withID: true},
	{title: "Evaluations", key: core.Evaluations},
}

// StrategicInsightAgent turns evaluated strategies into hypotheses.
// It runs once, after evaluations exist and before any hypothesis does.
type StrategicInsightAgent struct {
	modelAgent
}

// NewStrategicInsightAgent creates the agent. provider is shared with every
// other model-backed agent of the run.
func NewStrategicInsightAgent(provider llm.Provider, opts ...Option) *StrategicInsightAgent {
	return &StrategicInsightAgent{
		modelAgent: newModelAgent("StrategicInsightAgent", provider, insightSystemPrompt,
			InsightParseConfig, "insight:error", "LLM call failed", opts),
	}
}

func (a *StrategicInsightAgent) Name() string { return a.name }

func (a *StrategicInsightAgent) Dependencies() []core.ContextKey {
	return []core.ContextKey{core.Evaluations}
}

func (a *StrategicInsightAgent) Accepts(facts *core.Context) bool {
	return facts.Has(core.Evaluations) && !facts.Has(core.Hypotheses)
}

// Execute asks the provider for insights. The call blocks for the full
// round trip.
func (a *StrategicInsightAgent) Execute(ctx context.Context, facts *core.Context) core.AgentEffect {
	return a.complete(ctx, a.BuildPrompt(facts))
}

// BuildPrompt renders the user prompt for facts.
func (a *StrategicInsightAgent) BuildPrompt(facts *core.Context) string {
	return buildPrompt(facts, insightSections, "Provide 2-3 strategic insights based on this analysis.")
}
