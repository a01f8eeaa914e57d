package agents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jllopis/converge/pkg/core"
	"github.com/jllopis/converge/pkg/llm"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func contextWith(t *testing.T, facts ...core.Fact) *core.Context {
	t.Helper()
	ctx := core.NewContext()
	for _, f := range facts {
		if _, err := ctx.AddFact(f); err != nil {
			t.Fatalf("add %s: %v", f.ID, err)
		}
	}
	return ctx
}

func pipelineContext(t *testing.T) *core.Context {
	return contextWith(t,
		core.NewFact(core.Seeds, "company", "B2B SaaS selling to mid-market"),
		core.NewFact(core.Signals, "signal:linkedin", "LinkedIn drives B2B leads"),
		core.NewFact(core.Competitors, "competitor:acme", "Acme leads on price"),
		core.NewFact(core.Strategies, "strategy:linkedin-b2b", "Run a LinkedIn campaign"),
		core.NewFact(core.Strategies, "strategy:self-service-demo", "Ship a self-service demo"),
		core.NewFact(core.Evaluations, "eval:linkedin-b2b", "Score: 85/100"),
	)
}

func TestStrategicInsightAccepts(t *testing.T) {
	a := NewStrategicInsightAgent(llm.DefaultInsights(), quiet())

	if a.Accepts(core.NewContext()) {
		t.Fatal("empty context must not be accepted")
	}
	evalsOnly := contextWith(t, core.NewFact(core.Evaluations, "eval:1", "Score: 80/100"))
	if !a.Accepts(evalsOnly) {
		t.Fatal("evaluations only must be accepted")
	}
	done := contextWith(t,
		core.NewFact(core.Evaluations, "eval:1", "Score: 80/100"),
		core.NewFact(core.Hypotheses, "insight:1", "already there"),
	)
	if a.Accepts(done) {
		t.Fatal("agent must not run twice")
	}
	hypothesesOnly := contextWith(t, core.NewFact(core.Hypotheses, "insight:1", "already there"))
	if a.Accepts(hypothesesOnly) {
		t.Fatal("populated output must block regardless of dependencies")
	}
}

func TestRiskAssessmentAccepts(t *testing.T) {
	a := NewRiskAssessmentAgent(llm.DefaultRisks(), quiet())

	evalsOnly := contextWith(t, core.NewFact(core.Evaluations, "eval:1", "Score: 80/100"))
	if a.Accepts(evalsOnly) {
		t.Fatal("strategies are required too")
	}
	both := contextWith(t,
		core.NewFact(core.Strategies, "strategy:a", "A"),
		core.NewFact(core.Evaluations, "eval:a", "Score: 80/100"),
	)
	if !a.Accepts(both) {
		t.Fatal("strategies and evaluations must be accepted")
	}
	if _, err := both.AddFact(core.NewFact(core.Constraints, "risk:1", "known risk")); err != nil {
		t.Fatal(err)
	}
	if a.Accepts(both) {
		t.Fatal("agent must not run twice")
	}
}

func TestDependencies(t *testing.T) {
	ins := NewStrategicInsightAgent(nil)
	if deps := ins.Dependencies(); len(deps) != 1 || deps[0] != core.Evaluations {
		t.Fatalf("unexpected insight dependencies: %v", deps)
	}
	risk := NewRiskAssessmentAgent(nil)
	if deps := risk.Dependencies(); len(deps) != 2 || deps[0] != core.Strategies || deps[1] != core.Evaluations {
		t.Fatalf("unexpected risk dependencies: %v", deps)
	}
	if ins.Name() != "StrategicInsightAgent" || risk.Name() != "RiskAssessmentAgent" {
		t.Fatal("unexpected agent names")
	}
}

func TestStrategicInsightExecuteWithMock(t *testing.T) {
	a := NewStrategicInsightAgent(llm.DefaultInsights(), quiet())
	effect := a.Execute(context.Background(), pipelineContext(t))

	if len(effect.Facts) != 3 {
		t.Fatalf("expected 3 insights, got %d: %+v", len(effect.Facts), effect.Facts)
	}
	for i, f := range effect.Facts {
		if f.Key != core.Hypotheses || f.ID != fmt.Sprintf("insight:%d", i+1) {
			t.Fatalf("unexpected fact %d: %+v", i, f)
		}
	}
	if !strings.HasPrefix(effect.Facts[0].Content, "Focus on the LinkedIn B2B campaign") {
		t.Fatalf("marker not stripped: %q", effect.Facts[0].Content)
	}
}

func TestRiskAssessmentExecuteWithMock(t *testing.T) {
	a := NewRiskAssessmentAgent(llm.DefaultRisks(), quiet())
	effect := a.Execute(context.Background(), pipelineContext(t))

	if len(effect.Facts) != 3 {
		t.Fatalf("expected 3 risks, got %d", len(effect.Facts))
	}
	if effect.Facts[2].ID != "risk:3" || !strings.HasPrefix(effect.Facts[0].Content, "**Resource Constraint Risk**") {
		t.Fatalf("unexpected risks: %+v", effect.Facts)
	}
}

func TestProviderFailureEmitsDiagnosticFact(t *testing.T) {
	failing := &llm.FailingMockProvider{Err: fmt.Errorf("connection refused")}
	ctx := pipelineContext(t)

	ins := NewStrategicInsightAgent(failing, quiet()).Execute(context.Background(), ctx)
	if len(ins.Facts) != 1 {
		t.Fatalf("expected exactly one fact, got %d", len(ins.Facts))
	}
	if f := ins.Facts[0]; f.Key != core.Hypotheses || f.ID != "insight:error" ||
		f.Content != "LLM call failed: connection refused. Manual review recommended." {
		t.Fatalf("unexpected insight diagnostic: %+v", f)
	}

	risk := NewRiskAssessmentAgent(failing, quiet()).Execute(context.Background(), ctx)
	if len(risk.Facts) != 1 {
		t.Fatalf("expected exactly one fact, got %d", len(risk.Facts))
	}
	if f := risk.Facts[0]; f.Key != core.Constraints || !strings.HasSuffix(f.ID, ":error") ||
		f.Content != "Risk assessment failed: connection refused. Manual review recommended." {
		t.Fatalf("unexpected risk diagnostic: %+v", f)
	}
}

func TestMissingProviderDegrades(t *testing.T) {
	effect := NewRiskAssessmentAgent(nil, quiet()).Execute(context.Background(), pipelineContext(t))
	if len(effect.Facts) != 1 || effect.Facts[0].ID != "risk:error" {
		t.Fatalf("unexpected effect: %+v", effect.Facts)
	}
}

func TestUnparseableResponseFallsBack(t *testing.T) {
	effect := NewStrategicInsightAgent(llm.NewMockProvider("ok\n\n1."), quiet()).
		Execute(context.Background(), pipelineContext(t))
	if len(effect.Facts) != 1 || effect.Facts[0].ID != "insight:fallback" {
		t.Fatalf("unexpected effect: %+v", effect.Facts)
	}
}

func TestInsightPrompt(t *testing.T) {
	want := "## Market Signals\n" +
		"- LinkedIn drives B2B leads\n" +
		"\n## Competitor Analysis\n" +
		"- Acme leads on price\n" +
		"\n## Proposed Strategies\n" +
		"- strategy:linkedin-b2b: Run a LinkedIn campaign\n" +
		"- strategy:self-service-demo: Ship a self-service demo\n" +
		"\n## Evaluations\n" +
		"- Score: 85/100\n" +
		"\n## Task\nProvide 2-3 strategic insights based on this analysis."

	got := NewStrategicInsightAgent(nil).BuildPrompt(pipelineContext(t))
	if got != want {
		t.Fatalf("prompt mismatch:\nwant %q\ngot  %q", want, got)
	}
}

func TestRiskPromptAndRequest(t *testing.T) {
	provider := llm.NewScriptedMockProvider("1. Budget overrun could delay the demo launch.")
	a := NewRiskAssessmentAgent(provider, quiet(), WithSystemPrompt("custom analyst"))
	a.Execute(context.Background(), pipelineContext(t))

	reqs := provider.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	if reqs[0].System() != "custom analyst" {
		t.Fatalf("system prompt not forwarded: %q", reqs[0].System())
	}
	prompt := reqs[0].Messages[len(reqs[0].Messages)-1].Content
	wantOrder := []string{
		"## Company Context\n- B2B SaaS selling to mid-market\n",
		"\n## Market Signals\n",
		"\n## Competitive Landscape\n",
		"\n## Proposed Strategies\n- strategy:linkedin-b2b: Run a LinkedIn campaign\n",
		"\n## Strategy Evaluations\n- Score: 85/100\n",
		"\n## Task\nIdentify 2-3 key risks or challenges for these strategies and suggest mitigations.",
	}
	pos := 0
	for _, part := range wantOrder {
		i := strings.Index(prompt[pos:], part)
		if i < 0 {
			t.Fatalf("missing or out of order %q in prompt:\n%s", part, prompt)
		}
		pos += i + len(part)
	}
	if pos != len(prompt) {
		t.Fatalf("prompt has trailing content: %q", prompt[pos:])
	}
}

func TestDefaultSystemPrompts(t *testing.T) {
	if !strings.Contains(NewStrategicInsightAgent(nil).SystemPrompt(), "numbered list of insights") {
		t.Fatal("insight system prompt must ask for a numbered list")
	}
	if !strings.Contains(NewRiskAssessmentAgent(nil).SystemPrompt(), "one risk per item") {
		t.Fatal("risk system prompt must ask for one risk per item")
	}
}

func TestSharedProviderInstance(t *testing.T) {
	shared := llm.NewMeteredProvider("mock", llm.DefaultInsights())
	ctx := pipelineContext(t)
	NewStrategicInsightAgent(shared, quiet()).Execute(context.Background(), ctx)
	NewRiskAssessmentAgent(shared, quiet()).Execute(context.Background(), ctx)
	if shared.Calls() != 2 {
		t.Fatalf("expected both agents to use the shared provider, got %d calls", shared.Calls())
	}
}
