// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records eval outcomes, model usage and agent fallbacks.
type PipelineMetrics struct {
	evalRuns       metric.Int64Counter
	checksFailed   metric.Int64Counter
	llmCalls       metric.Int64Counter
	llmTokens      metric.Int64Counter
	agentFallbacks metric.Int64Counter
}

var (
	defaultMetrics     *PipelineMetrics
	defaultMetricsOnce sync.Once
)

// NewPipelineMetrics creates the pipeline instruments on the global meter provider.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter("converge/pipeline")

	evalRuns, err := meter.Int64Counter(
		"converge.eval.runs",
		metric.WithDescription("Eval fixtures executed, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	checksFailed, err := meter.Int64Counter(
		"converge.eval.checks.failed",
		metric.WithDescription("Failed eval checks by check name"),
	)
	if err != nil {
		return nil, err
	}

	llmCalls, err := meter.Int64Counter(
		"converge.llm.calls",
		metric.WithDescription("Model calls by provider and outcome"),
	)
	if err != nil {
		return nil, err
	}

	llmTokens, err := meter.Int64Counter(
		"converge.llm.tokens",
		metric.WithDescription("Tokens consumed by provider and direction"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	agentFallbacks, err := meter.Int64Counter(
		"converge.agent.fallbacks",
		metric.WithDescription("Diagnostic facts emitted instead of model output"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		evalRuns:       evalRuns,
		checksFailed:   checksFailed,
		llmCalls:       llmCalls,
		llmTokens:      llmTokens,
		agentFallbacks: agentFallbacks,
	}, nil
}

// Metrics returns the process-wide instruments. It returns nil when the meter
// could not create them; every Record method accepts a nil receiver.
func Metrics() *PipelineMetrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewPipelineMetrics()
		if err == nil {
			defaultMetrics = m
		}
	})
	return defaultMetrics
}

// RecordEvalRun counts one executed fixture.
func (m *PipelineMetrics) RecordEvalRun(ctx context.Context, evalID string, passed bool) {
	if m == nil {
		return
	}
	m.evalRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrEvalID, evalID),
		attribute.Bool(AttrEvalPassed, passed),
	))
}

// RecordCheckFailed counts one failed check.
func (m *PipelineMetrics) RecordCheckFailed(ctx context.Context, evalID, check string) {
	if m == nil {
		return
	}
	m.checksFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrEvalID, evalID),
		attribute.String("check", check),
	))
}

// RecordLLMCall counts one model call and the tokens it used.
func (m *PipelineMetrics) RecordLLMCall(ctx context.Context, provider string, success bool, input, output int) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.llmCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrLLMProvider, provider),
		attribute.String("outcome", outcome),
	))
	if input > 0 {
		m.llmTokens.Add(ctx, int64(input), metric.WithAttributes(
			attribute.String(AttrLLMProvider, provider),
			attribute.String("direction", "input"),
		))
	}
	if output > 0 {
		m.llmTokens.Add(ctx, int64(output), metric.WithAttributes(
			attribute.String(AttrLLMProvider, provider),
			attribute.String("direction", "output"),
		))
	}
}

// RecordAgentFallback counts one diagnostic fact emitted by agent.
func (m *PipelineMetrics) RecordAgentFallback(ctx context.Context, agent, reason string) {
	if m == nil {
		return
	}
	m.agentFallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAgentName, agent),
		attribute.String("reason", reason),
	))
}
