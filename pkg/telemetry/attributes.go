// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration for pipeline runs,
// agents and model calls.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on spans and metrics.
const (
	// Run attributes
	AttrRunID     = "converge.run.id"
	AttrRunPack   = "converge.run.pack"
	AttrRunCycles = "converge.run.cycles"
	AttrRunFacts  = "converge.run.facts"
	AttrConverged = "converge.run.converged"

	// Eval attributes
	AttrEvalID      = "converge.eval.id"
	AttrEvalPassed  = "converge.eval.passed"
	AttrEvalChecks  = "converge.eval.checks"
	AttrEvalFailed  = "converge.eval.checks_failed"
	AttrEvalLatency = "converge.eval.duration_ms"

	// Agent attributes
	AttrAgentName  = "converge.agent.name"
	AttrAgentFacts = "converge.agent.facts"

	// LLM attributes (standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMFinishReason = "gen_ai.finish_reason"
)

// RunAttributes describes one pipeline run.
func RunAttributes(runID, pack string, cycles, facts int, converged bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrRunCycles, cycles),
		attribute.Int(AttrRunFacts, facts),
		attribute.Bool(AttrConverged, converged),
	}
	if runID != "" {
		attrs = append(attrs, attribute.String(AttrRunID, runID))
	}
	if pack != "" {
		attrs = append(attrs, attribute.String(AttrRunPack, pack))
	}
	return attrs
}

// EvalAttributes describes the outcome of one fixture.
func EvalAttributes(evalID string, passed bool, checks, failed int, durationMs int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrEvalID, evalID),
		attribute.Bool(AttrEvalPassed, passed),
		attribute.Int(AttrEvalChecks, checks),
		attribute.Int(AttrEvalFailed, failed),
		attribute.Int64(AttrEvalLatency, durationMs),
	}
}

// LLMAttributes describes one model call. Empty strings are skipped.
func LLMAttributes(provider, model, finishReason string, input, output, total int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrLLMTokensInput, input),
		attribute.Int(AttrLLMTokensOutput, output),
		attribute.Int(AttrLLMTokensTotal, total),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrLLMProvider, provider))
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrLLMModel, model))
	}
	if finishReason != "" {
		attrs = append(attrs, attribute.String(AttrLLMFinishReason, finishReason))
	}
	return attrs
}
