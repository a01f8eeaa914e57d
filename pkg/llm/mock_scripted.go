package llm

import (
	"context"
	"errors"
	"sync"
)

// ScriptedMockProvider replays a queue of responses and records every request
// it receives, so tests can assert on the prompts agents build.
type ScriptedMockProvider struct {
	mu        sync.Mutex
	responses []string
	requests  []ChatRequest
	Err       error
}

// NewScriptedMockProvider creates a provider that answers with responses in order.
func NewScriptedMockProvider(responses ...string) *ScriptedMockProvider {
	return &ScriptedMockProvider{responses: responses}
}

// Chat pops the next scripted response or returns the configured error.
func (s *ScriptedMockProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.responses) == 0 {
		return nil, errors.New("scripted mock: no more responses available")
	}

	content := s.responses[0]
	s.responses = s.responses[1:]
	return &ChatResponse{
		Content:      content,
		Model:        "scripted",
		FinishReason: FinishStop,
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}, nil
}

// AddResponse appends a response to the queue.
func (s *ScriptedMockProvider) AddResponse(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
}

// Requests returns a copy of the requests received so far.
func (s *ScriptedMockProvider) Requests() []ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatRequest(nil), s.requests...)
}

// CallCount returns how many times Chat has been called.
func (s *ScriptedMockProvider) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
