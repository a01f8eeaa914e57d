// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine schedules agents over a shared fact store until the store
// stops growing.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jllopis/converge/pkg/core"
	"github.com/jllopis/converge/pkg/errors"
)

// DefaultMaxCycles bounds a run when no budget is configured.
const DefaultMaxCycles = 50

// Callback receives progress while a run converges. It never affects results.
type Callback interface {
	OnCycleStart(cycle int)
	OnFact(cycle int, fact core.Fact)
	OnCycleEnd(cycle int, factsAdded int)
}

// RunResult is the outcome of one run.
type RunResult struct {
	Context   *core.Context
	Converged bool
	Cycles    int
}

// Engine runs registered agents cycle by cycle.
type Engine struct {
	agents     []core.Agent
	invariants []core.Invariant
	maxCycles  int
	parallel   bool
	callback   Callback
	emitter    core.EventEmitter
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxCycles sets the cycle budget. Non-positive values keep the default.
func WithMaxCycles(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCycles = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStreaming attaches a progress callback.
func WithStreaming(cb Callback) Option {
	return func(e *Engine) {
		e.callback = cb
	}
}

// WithParallelAgents toggles concurrent execution of the agents eligible in a cycle.
func WithParallelAgents(enabled bool) Option {
	return func(e *Engine) {
		e.parallel = enabled
	}
}

// WithEventEmitter sets the emitter that receives run events.
func WithEventEmitter(emitter core.EventEmitter) Option {
	return func(e *Engine) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// New creates an engine with no agents registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxCycles: DefaultMaxCycles,
		parallel:  true,
		emitter:   core.NoopEventEmitter{},
		logger:    slog.Default().With("component", "engine"),
		tracer:    otel.Tracer("converge/engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds an agent. Registration order decides merge order.
func (e *Engine) Register(agent core.Agent) {
	if agent == nil {
		return
	}
	e.agents = append(e.agents, agent)
}

// RegisterInvariant adds a pipeline-wide invariant.
func (e *Engine) RegisterInvariant(inv core.Invariant) {
	if inv == nil {
		return
	}
	e.invariants = append(e.invariants, inv)
}

// SetStreaming replaces the progress callback.
func (e *Engine) SetStreaming(cb Callback) {
	e.callback = cb
}

// Agents returns the registered agent names in registration order.
func (e *Engine) Agents() []string {
	names := make([]string, 0, len(e.agents))
	for _, a := range e.agents {
		names = append(names, a.Name())
	}
	return names
}

// Run drives the store to a fixed point. Exhausting the cycle budget is not an
// error: the result reports Converged=false.
func (e *Engine) Run(ctx context.Context, facts *core.Context) (*RunResult, error) {
	if facts == nil {
		facts = core.NewContext()
	}
	ctx, runID := core.EnsureRunID(ctx)
	ctx, span := e.tracer.Start(ctx, "engine.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("engine.agents", len(e.agents)),
		attribute.Int("engine.max_cycles", e.maxCycles),
	))
	defer span.End()

	result := &RunResult{Context: facts}
	if err := e.checkInvariants(facts, core.InvariantStructural); err != nil {
		return e.fail(span, result, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return e.fail(span, result, errors.New(errors.CodeContextLost, "run cancelled", err).
				WithContext("cycle", result.Cycles))
		}
		if result.Cycles >= e.maxCycles {
			e.logger.WarnContext(ctx, "cycle budget exhausted",
				slog.String("run_id", runID),
				slog.Int("cycles", result.Cycles),
				slog.Int("facts", facts.Count()),
			)
			e.emitter.Emit(ctx, core.NewEvent(core.EventHalted, runID, result.Cycles, nil))
			span.SetAttributes(attribute.Bool("engine.converged", false), attribute.Int("engine.cycles", result.Cycles))
			return result, nil
		}

		result.Cycles++
		cycle := result.Cycles
		e.cycleStart(ctx, runID, cycle)

		snapshot := facts.Clone()
		eligible := e.eligible(snapshot)
		added := 0
		if len(eligible) > 0 {
			effects := e.execute(ctx, eligible, snapshot)
			for i, effect := range effects {
				for _, f := range effect.Facts {
					ok, err := facts.AddFact(f)
					if err != nil {
						return e.fail(span, result, fmt.Errorf("merge effect of %s: %w", eligible[i].Name(), err))
					}
					if !ok {
						continue
					}
					added++
					e.factAdded(ctx, runID, cycle, f)
				}
			}
			if err := e.checkInvariants(facts, core.InvariantStructural); err != nil {
				return e.fail(span, result, err)
			}
		}
		e.cycleEnd(ctx, runID, cycle, added)

		if added == 0 {
			if err := e.checkInvariants(facts, core.InvariantAcceptance); err != nil {
				return e.fail(span, result, err)
			}
			result.Converged = true
			e.logger.InfoContext(ctx, "run converged",
				slog.String("run_id", runID),
				slog.Int("cycles", cycle),
				slog.Int("facts", facts.Count()),
			)
			e.emitter.Emit(ctx, core.NewEvent(core.EventConverged, runID, cycle, map[string]any{"facts": facts.Count()}))
			span.SetAttributes(attribute.Bool("engine.converged", true), attribute.Int("engine.cycles", cycle))
			return result, nil
		}
	}
}

func (e *Engine) eligible(snapshot *core.Context) []core.Agent {
	var out []core.Agent
	for _, a := range e.agents {
		if core.DependenciesMet(snapshot, a.Dependencies()) && a.Accepts(snapshot) {
			out = append(out, a)
		}
	}
	return out
}

// execute runs every eligible agent against the same snapshot. Results are
// indexed by registration order regardless of completion order.
func (e *Engine) execute(ctx context.Context, agents []core.Agent, snapshot *core.Context) []core.AgentEffect {
	effects := make([]core.AgentEffect, len(agents))
	if !e.parallel || len(agents) == 1 {
		for i, a := range agents {
			effects[i] = e.runAgent(ctx, a, snapshot)
		}
		return effects
	}

	var g errgroup.Group
	for i, a := range agents {
		g.Go(func() error {
			effects[i] = e.runAgent(ctx, a, snapshot)
			return nil
		})
	}
	_ = g.Wait()
	return effects
}

func (e *Engine) runAgent(ctx context.Context, a core.Agent, snapshot *core.Context) (effect core.AgentEffect) {
	ctx, span := e.tracer.Start(ctx, "agent.execute", trace.WithAttributes(
		attribute.String("agent.name", a.Name()),
	))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "agent panicked",
				slog.String("agent", a.Name()),
				slog.Any("panic", r),
			)
			span.SetStatus(codes.Error, "panic")
			effect = core.AgentEffect{}
		}
	}()

	effect = a.Execute(ctx, snapshot)
	span.SetAttributes(attribute.Int("agent.facts", len(effect.Facts)))
	e.logger.DebugContext(ctx, "agent executed",
		slog.String("agent", a.Name()),
		slog.Int("facts", len(effect.Facts)),
	)
	return effect
}

func (e *Engine) checkInvariants(facts *core.Context, class core.InvariantClass) error {
	for _, inv := range e.invariants {
		if inv.Class() != class {
			continue
		}
		if err := inv.Check(facts); err != nil {
			return errors.Newf(errors.CodeInvariantViolation, "%s invariant %s violated", class, inv.Name()).
				WithContext("invariant", inv.Name()).
				WithContext("reason", err.Error())
		}
	}
	return nil
}

func (e *Engine) fail(span trace.Span, result *RunResult, err error) (*RunResult, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger.Error("run failed", slog.Int("cycles", result.Cycles), slog.String("error", err.Error()))
	return result, err
}

func (e *Engine) cycleStart(ctx context.Context, runID string, cycle int) {
	if e.callback != nil {
		e.callback.OnCycleStart(cycle)
	}
	e.emitter.Emit(ctx, core.NewEvent(core.EventCycleStart, runID, cycle, nil))
}

func (e *Engine) factAdded(ctx context.Context, runID string, cycle int, f core.Fact) {
	if e.callback != nil {
		e.callback.OnFact(cycle, f)
	}
	event := core.NewEvent(core.EventFactAdded, runID, cycle, nil)
	fact := f
	event.Fact = &fact
	e.emitter.Emit(ctx, event)
}

func (e *Engine) cycleEnd(ctx context.Context, runID string, cycle, added int) {
	if e.callback != nil {
		e.callback.OnCycleEnd(cycle, added)
	}
	e.emitter.Emit(ctx, core.NewEvent(core.EventCycleEnd, runID, cycle, map[string]any{"facts_added": added}))
}
