package llm

import (
	"context"
	"fmt"
)

const defaultInsights = `1. Focus on the LinkedIn B2B campaign as your primary channel - it scores highest and aligns with market signals showing LinkedIn effectiveness for B2B.

2. Invest in self-service demo capabilities as a secondary priority - while it requires development investment, it directly addresses the buyer preference for self-service identified in market signals.

3. Consider a phased approach: launch LinkedIn campaign immediately for quick wins, then build self-service demo experience for long-term competitive advantage.`

const defaultRisks = `1. **Resource Constraint Risk** - The self-service demo requires significant development investment while the team may be focused on the LinkedIn campaign. Mitigation: Phase the initiatives and allocate dedicated resources for each.

2. **Market Timing Risk** - The unclear competitive landscape means competitors could launch similar initiatives first. Mitigation: Conduct rapid competitor analysis within 2 weeks before committing to campaign messaging.

3. **Channel Saturation Risk** - LinkedIn B2B campaigns face increasing competition and rising costs. Mitigation: Test multiple audience segments with small budgets before scaling spend.`

// MockProvider is a deterministic Provider returning a fixed response.
// It never touches the network.
type MockProvider struct {
	Response string
	Model    string
	Usage    Usage
	Err      error
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewMockProvider returns a mock answering every request with response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{
		Response: response,
		Model:    "mock",
		Usage:    Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}
}

// DefaultInsights returns a mock answering with three numbered strategic insights.
func DefaultInsights() *MockProvider {
	return &MockProvider{
		Response: defaultInsights,
		Model:    "mock-insight-v1",
		Usage:    Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}
}

// DefaultRisks returns a mock answering with three numbered risks.
func DefaultRisks() *MockProvider {
	return &MockProvider{
		Response: defaultRisks,
		Model:    "mock-risk-v1",
		Usage:    Usage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200},
	}
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatResponse{
		Content:      m.Response,
		Model:        m.Model,
		Usage:        m.Usage,
		FinishReason: FinishStop,
	}, nil
}

// FailingMockProvider always fails.
type FailingMockProvider struct {
	Err error
}

func (f *FailingMockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if f.Err == nil {
		return nil, fmt.Errorf("mock error")
	}
	return nil, f.Err
}
