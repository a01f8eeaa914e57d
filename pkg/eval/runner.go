package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jllopis/converge/pkg/config"
	"github.com/jllopis/converge/pkg/core"
	"github.com/jllopis/converge/pkg/engine"
	"github.com/jllopis/converge/pkg/llm"
	"github.com/jllopis/converge/pkg/packs"
	"github.com/jllopis/converge/pkg/telemetry"
	"github.com/jllopis/converge/providers"
)

// ProviderFactory returns the provider for one fixture run and the name it
// is reported under. useMock asks for the deterministic stand-in.
type ProviderFactory func(useMock bool) (llm.Provider, string, error)

// Result is the outcome of one fixture. A run that could not complete carries
// Error and no checks.
type Result struct {
	EvalID     string        `json:"eval_id"`
	RunID      string        `json:"run_id"`
	Pack       string        `json:"pack"`
	Provider   string        `json:"provider,omitempty"`
	Passed     bool          `json:"passed"`
	Checks     []Check       `json:"checks"`
	Cycles     int           `json:"cycles"`
	FactCount  int           `json:"fact_count"`
	Converged  bool          `json:"converged"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
	LLMCalls   int64         `json:"llm_calls"`
	TokenUsage llm.Usage     `json:"token_usage"`
}

// FailedChecks returns the checks that did not pass.
func (r Result) FailedChecks() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Runner executes fixtures. Each run builds its own fact store and engine.
type Runner struct {
	factory     ProviderFactory
	maxCycles   int
	logger      *slog.Logger
	history     HistoryStore
	parallelism int
	sequential  bool
	callback    engine.Callback
	tracer      trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithProviderFactory sets how providers are built per fixture.
func WithProviderFactory(f ProviderFactory) Option {
	return func(r *Runner) {
		if f != nil {
			r.factory = f
		}
	}
}

// WithMaxCycles sets the engine cycle budget for every run.
func WithMaxCycles(n int) Option {
	return func(r *Runner) {
		r.maxCycles = n
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHistory records every result in store.
func WithHistory(store HistoryStore) Option {
	return func(r *Runner) {
		r.history = store
	}
}

// WithParallelism runs up to n fixtures at once in RunEvals.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithParallelAgents toggles concurrent execution of the agents eligible in
// one engine cycle. Results do not depend on it.
func WithParallelAgents(enabled bool) Option {
	return func(r *Runner) {
		r.sequential = !enabled
	}
}

// WithStreaming attaches a progress callback to every run. The callback must
// be safe for concurrent use when parallelism is above one.
func WithStreaming(cb engine.Callback) Option {
	return func(r *Runner) {
		r.callback = cb
	}
}

// DefaultProviderFactory serves the mock when asked to and otherwise picks a
// provider from the environment.
func DefaultProviderFactory(logger *slog.Logger) ProviderFactory {
	return func(useMock bool) (llm.Provider, string, error) {
		if useMock {
			p, name := providers.Mock()
			return p, name, nil
		}
		return providers.FromConfig(config.LLMConfig{Provider: "auto", MaxRetries: 3, MaxTokens: 1024}, logger)
	}
}

// NewRunner creates a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		maxCycles:   engine.DefaultMaxCycles,
		logger:      slog.Default().With("component", "eval"),
		parallelism: 1,
		tracer:      otel.Tracer("converge/eval"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.factory == nil {
		r.factory = DefaultProviderFactory(r.logger)
	}
	return r
}

// RunEval runs one fixture. Failures are reported in the result.
func (r *Runner) RunEval(ctx context.Context, f Fixture) Result {
	runID := uuid.NewString()
	start := time.Now()
	res := Result{EvalID: f.EvalID, RunID: runID, Pack: f.Pack}

	ctx = core.WithRunID(ctx, runID)
	ctx, span := r.tracer.Start(ctx, "eval.run")
	defer span.End()

	logger := r.logger.With(slog.String("eval_id", f.EvalID), slog.String("run_id", runID))
	logger.InfoContext(ctx, "starting eval run", slog.String("pack", f.Pack))

	fail := func(msg string, err error) Result {
		res.Error = fmt.Sprintf("%s: %v", msg, err)
		res.Duration = time.Since(start)
		span.RecordError(err)
		span.SetStatus(codes.Error, res.Error)
		logger.WarnContext(ctx, "eval run failed", slog.String("error", res.Error))
		r.finish(ctx, res)
		return res
	}

	facts := core.NewContext()
	for _, seed := range f.Seeds {
		if _, err := facts.AddFact(core.NewFact(core.Seeds, seed.ID, seed.Content)); err != nil {
			return fail("Failed to add seed", err)
		}
	}

	provider, name, err := r.factory(f.UseMockLLM)
	if err != nil {
		return fail("Failed to register agents", err)
	}
	res.Provider = name
	metered := llm.NewMeteredProvider(name, provider)

	opts := []engine.Option{
		engine.WithMaxCycles(r.maxCycles),
		engine.WithLogger(logger),
		engine.WithParallelAgents(!r.sequential),
		engine.WithEventEmitter(telemetry.NewLogEmitter(logger)),
	}
	if r.callback != nil {
		opts = append(opts, engine.WithStreaming(r.callback))
	}
	eng := engine.New(opts...)
	if err := packs.RegisterWithLogger(eng, f.Pack, metered, logger); err != nil {
		return fail("Failed to register agents", err)
	}

	run, err := eng.Run(ctx, facts)
	res.LLMCalls = metered.Calls()
	res.TokenUsage = metered.Usage()
	if err != nil {
		return fail("Engine run failed", err)
	}
	res.Duration = time.Since(start)

	res.Cycles = run.Cycles
	res.Converged = run.Converged
	res.FactCount = run.Context.Count()
	res.Checks = evaluate(f.Expected, outcome{
		facts:     run.Context,
		converged: run.Converged,
		cycles:    run.Cycles,
		duration:  res.Duration,
	})
	res.Passed = allPassed(res.Checks)

	span.SetAttributes(telemetry.RunAttributes(runID, f.Pack, res.Cycles, res.FactCount, res.Converged)...)
	span.SetAttributes(telemetry.EvalAttributes(f.EvalID, res.Passed, len(res.Checks),
		len(res.FailedChecks()), res.Duration.Milliseconds())...)
	logger.InfoContext(ctx, "eval run completed",
		slog.Bool("passed", res.Passed),
		slog.Int("cycles", res.Cycles),
		slog.Int("facts", res.FactCount),
		slog.Int64("duration_ms", res.Duration.Milliseconds()),
	)
	r.finish(ctx, res)
	return res
}

func (r *Runner) finish(ctx context.Context, res Result) {
	m := telemetry.Metrics()
	m.RecordEvalRun(ctx, res.EvalID, res.Passed)
	for _, c := range res.FailedChecks() {
		m.RecordCheckFailed(ctx, res.EvalID, c.Name)
	}
	if r.history == nil {
		return
	}
	if err := r.history.Record(ctx, NewHistoryEntry(res, time.Now())); err != nil {
		r.logger.WarnContext(ctx, "failed to record eval history",
			slog.String("eval_id", res.EvalID),
			slog.String("error", err.Error()),
		)
	}
}

// RunEvals runs fixtures and returns results in input order.
func (r *Runner) RunEvals(ctx context.Context, fixtures []Fixture) []Result {
	results := make([]Result, len(fixtures))
	if r.parallelism <= 1 {
		for i, f := range fixtures {
			results[i] = r.RunEval(ctx, f)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i, f := range fixtures {
		g.Go(func() error {
			results[i] = r.RunEval(ctx, f)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Summary tallies a batch of results.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Summarize counts passed and failed results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	return s
}
