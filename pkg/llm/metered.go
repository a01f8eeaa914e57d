package llm

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/converge/pkg/telemetry"
)

// MeteredProvider wraps a Provider and counts calls, failures and tokens.
// One instance is shared by every model-backed agent of a run.
type MeteredProvider struct {
	next   Provider
	name   string
	tracer trace.Tracer

	calls            atomic.Int64
	failures         atomic.Int64
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	totalTokens      atomic.Int64
}

// NewMeteredProvider wraps next. name labels spans and metrics.
func NewMeteredProvider(name string, next Provider) *MeteredProvider {
	return &MeteredProvider{
		next:   next,
		name:   name,
		tracer: otel.Tracer("converge/llm"),
	}
}

// Name returns the provider label.
func (m *MeteredProvider) Name() string { return m.name }

// Chat forwards the request and records the outcome.
func (m *MeteredProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := m.tracer.Start(ctx, "llm.chat")
	defer span.End()

	m.calls.Add(1)
	resp, err := m.next.Chat(ctx, req)
	if err != nil {
		m.failures.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.Metrics().RecordLLMCall(ctx, m.name, false, 0, 0)
		return nil, err
	}

	m.promptTokens.Add(int64(resp.Usage.PromptTokens))
	m.completionTokens.Add(int64(resp.Usage.CompletionTokens))
	m.totalTokens.Add(int64(resp.Usage.TotalTokens))
	span.SetAttributes(telemetry.LLMAttributes(m.name, resp.Model, string(resp.FinishReason),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)...)
	telemetry.Metrics().RecordLLMCall(ctx, m.name, true, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

// Calls returns the number of Chat invocations.
func (m *MeteredProvider) Calls() int64 { return m.calls.Load() }

// Failures returns the number of failed Chat invocations.
func (m *MeteredProvider) Failures() int64 { return m.failures.Load() }

// Usage returns the tokens consumed so far.
func (m *MeteredProvider) Usage() Usage {
	return Usage{
		PromptTokens:     int(m.promptTokens.Load()),
		CompletionTokens: int(m.completionTokens.Load()),
		TotalTokens:      int(m.totalTokens.Load()),
	}
}
