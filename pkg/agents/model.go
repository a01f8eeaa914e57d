// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Package agents holds the model-backed pipeline agents and the parser that
// turns their model output into facts.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/converge/pkg/core"
	"github.com/jllopis/converge/pkg/errors"
	"github.com/jllopis/converge/pkg/llm"
	"github.com/jllopis/converge/pkg/telemetry"
)

// Option configures a model-backed agent.
type Option func(*modelAgent)

// WithSystemPrompt replaces the default system instruction.
func WithSystemPrompt(prompt string) Option {
	return func(a *modelAgent) {
		a.system = prompt
	}
}

// WithLogger sets the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *modelAgent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// modelAgent is the shared machinery of agents that ask a provider once and
// parse the answer into facts.
type modelAgent struct {
	name     string
	provider llm.Provider
	system   string
	parse    ParseConfig
	// errorID and errorContext shape the diagnostic fact emitted when the
	// provider fails.
	errorID      string
	errorContext string
	logger       *slog.Logger
	tracer       trace.Tracer
}

func newModelAgent(name string, provider llm.Provider, system string, parse ParseConfig, errorID, errorContext string, opts []Option) modelAgent {
	a := modelAgent{
		name:         name,
		provider:     provider,
		system:       system,
		parse:        parse,
		errorID:      errorID,
		errorContext: errorContext,
		logger:       slog.Default().With("component", "agents"),
		tracer:       otel.Tracer("converge/agents"),
	}
	for _, opt := range opts {
		opt(&a)
	}
	a.logger = a.logger.With(slog.String("agent", name))
	return a
}

// SystemPrompt returns the instruction sent with every request.
func (a *modelAgent) SystemPrompt() string { return a.system }

// complete sends prompt to the provider and parses the reply. Provider
// failures become a single diagnostic fact.
func (a *modelAgent) complete(ctx context.Context, prompt string) core.AgentEffect {
	ctx, span := a.tracer.Start(ctx, "agent.complete", trace.WithAttributes(
		attribute.String(telemetry.AttrAgentName, a.name),
	))
	defer span.End()

	if a.provider == nil {
		return a.degrade(ctx, span, errors.New(errors.CodeLLMError, "no provider configured", nil))
	}
	resp, err := a.provider.Chat(ctx, llm.NewRequest(a.system, prompt))
	if err != nil {
		return a.degrade(ctx, span, err)
	}

	facts := ParseResponse(resp.Content, a.parse)
	if len(facts) == 1 && facts[0].ID == a.parse.FallbackID {
		a.logger.WarnContext(ctx, "no usable lines in model response", slog.Int("bytes", len(resp.Content)))
		telemetry.Metrics().RecordAgentFallback(ctx, a.name, "unparsed")
	}
	span.SetAttributes(
		attribute.Int(telemetry.AttrAgentFacts, len(facts)),
		attribute.String(telemetry.AttrLLMModel, resp.Model),
		attribute.String(telemetry.AttrLLMFinishReason, string(resp.FinishReason)),
	)
	return core.EffectWithFacts(facts...)
}

func (a *modelAgent) degrade(ctx context.Context, span trace.Span, err error) core.AgentEffect {
	a.logger.WarnContext(ctx, "model call failed, emitting diagnostic fact", slog.String("error", err.Error()))
	span.AddEvent("fallback", trace.WithAttributes(attribute.String("error", err.Error())))
	telemetry.Metrics().RecordAgentFallback(ctx, a.name, "llm_error")
	content := fmt.Sprintf("%s: %v. Manual review recommended.", a.errorContext, err)
	return core.EffectWithFacts(core.NewFact(a.parse.Key, a.errorID, content))
}

// section is one "## Title" block of a prompt.
type section struct {
	title  string
	key    core.ContextKey
	withID bool
}

// buildPrompt renders sections in order followed by the task block.
func buildPrompt(facts *core.Context, sections []section, task string) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## ")
		b.WriteString(s.title)
		b.WriteString("\n")
		for _, f := range facts.Get(s.key) {
			if s.withID {
				fmt.Fprintf(&b, "- %s: %s\n", f.ID, f.Content)
			} else {
				fmt.Fprintf(&b, "- %s\n", f.Content)
			}
		}
	}
	b.WriteString("\n## Task\n")
	b.WriteString(task)
	return b.String()
}
