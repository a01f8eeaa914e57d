package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jllopis/converge/pkg/core"
	"github.com/jllopis/converge/pkg/engine"
	"github.com/jllopis/converge/pkg/errors"
	"github.com/jllopis/converge/pkg/eval"
	"github.com/jllopis/converge/pkg/llm"
	"github.com/jllopis/converge/pkg/packs"
	"github.com/jllopis/converge/pkg/stream"
	"github.com/jllopis/converge/pkg/telemetry"
)

type runOptions struct {
	pack          string
	seeds         string
	maxCycles     int
	runID         string
	correlationID string
	mock          bool
	json          bool
	stream        bool
}

// runOutput is the JSON document printed by run --json.
type runOutput struct {
	RunID         string      `json:"run_id"`
	CorrelationID string      `json:"correlation_id"`
	Timestamp     string      `json:"timestamp"`
	Actor         actorInfo   `json:"actor"`
	Result        runSummary  `json:"result"`
	Provider      string      `json:"provider"`
	TokenUsage    llm.Usage   `json:"token_usage"`
	Facts         []factEntry `json:"facts"`
}

type actorInfo struct {
	Type       string `json:"type"`
	DeviceID   string `json:"device_id"`
	CLIVersion string `json:"cli_version"`
}

type runSummary struct {
	Converged  bool `json:"converged"`
	Cycles     int  `json:"cycles"`
	TotalFacts int  `json:"total_facts"`
}

type factEntry struct {
	Sequence int    `json:"sequence"`
	Key      string `json:"key"`
	ID       string `json:"id"`
	Content  string `json:"content"`
}

func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a domain pack over seed facts",
		Example: `  converge run --pack growth-strategy --mock \
    --seeds '[{"id":"market","content":"B2B SaaS for logistics"}]'
  converge run --pack growth-strategy --seeds @seeds.json --stream --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPack(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.pack, "pack", "p", "", "domain pack to run")
	f.StringVarP(&opts.seeds, "seeds", "s", "", "seed facts as JSON, or @file.json")
	f.IntVar(&opts.maxCycles, "max-cycles", 0, "cycle budget (defaults to engine.max_cycles)")
	f.StringVar(&opts.runID, "run-id", "", "run id (generated when empty)")
	f.StringVar(&opts.correlationID, "correlation-id", "", "correlation id linking related runs")
	f.BoolVar(&opts.mock, "mock", false, "use the deterministic mock model")
	f.BoolVar(&opts.json, "json", false, "print JSON")
	f.BoolVar(&opts.stream, "stream", false, "print facts as they are merged")
	_ = cmd.MarkFlagRequired("pack")
	return cmd
}

// parseSeeds reads a JSON array of {id, content}. A leading @ names a file.
func parseSeeds(raw string) ([]eval.Seed, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file %s: %w", path, err)
		}
		data = b
	}
	var seeds []eval.Seed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seeds JSON: %w", err)
	}
	return seeds, nil
}

func (a *App) runPack(cmd *cobra.Command, opts *runOptions) error {
	a.jsonOutput = opts.json
	ctx := cmd.Context()

	if _, ok := packs.Lookup(opts.pack); !ok {
		return NewNotFoundError("pack", opts.pack, "run 'converge packs list' to see available packs")
	}
	seeds, err := parseSeeds(opts.seeds)
	if err != nil {
		return NewInvalidArgumentError("seeds", err)
	}
	runID := opts.runID
	if runID == "" {
		runID = "run_" + uuid.NewString()
	}
	correlationID := opts.correlationID
	if correlationID == "" {
		correlationID = "cor_" + uuid.NewString()
	}
	logger := a.logger.With(slog.String("run_id", runID), slog.String("correlation_id", correlationID))

	facts := core.NewContext()
	for _, s := range seeds {
		if _, err := facts.AddFact(core.NewFact(core.Seeds, s.ID, s.Content)); err != nil {
			return WrapRunError(err)
		}
	}

	provider, name, err := a.provider(opts.mock)
	if err != nil {
		return WrapRunError(err)
	}
	metered := llm.NewMeteredProvider(name, provider)

	maxCycles := opts.maxCycles
	if maxCycles <= 0 {
		maxCycles = a.cfg.Engine.MaxCycles
	}
	eng := engine.New(
		engine.WithMaxCycles(maxCycles),
		engine.WithLogger(logger),
		engine.WithParallelAgents(a.cfg.Engine.ParallelAgents),
		engine.WithEventEmitter(telemetry.NewLogEmitter(logger)),
	)
	if err := packs.RegisterWithLogger(eng, opts.pack, metered, logger); err != nil {
		return WrapRunError(err)
	}

	var handler *stream.Handler
	if opts.stream {
		format := stream.Human
		if opts.json {
			format = stream.JSON
		}
		handler = stream.NewHandler(a.stdout, format)
		eng.SetStreaming(handler)
	}

	logger.Info("running pack", slog.String("pack", opts.pack), slog.Int("seeds", facts.Count()))
	result, err := eng.Run(core.WithRunID(ctx, runID), facts)
	if err != nil {
		return WrapRunError(err)
	}
	if result.Converged {
		logger.Info("run reached fixed point", slog.Int("cycles", result.Cycles))
	} else {
		logger.Warn("run halted without reaching fixed point", slog.Int("cycles", result.Cycles))
	}

	switch {
	case handler != nil:
		handler.Finish(result.Converged, result.Cycles)
		return nil
	case opts.json:
		return a.printRunJSON(runID, correlationID, name, metered.Usage(), result)
	default:
		a.printRunSummary(runID, correlationID, result)
		return nil
	}
}

func (a *App) printRunJSON(runID, correlationID, provider string, usage llm.Usage, result *engine.RunResult) error {
	all := result.Context.All()
	out := runOutput{
		RunID:         runID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Actor: actorInfo{
			Type:       "system",
			DeviceID:   deviceID(),
			CLIVersion: Version,
		},
		Result: runSummary{
			Converged:  result.Converged,
			Cycles:     result.Cycles,
			TotalFacts: len(all),
		},
		Provider:   provider,
		TokenUsage: usage,
		Facts:      make([]factEntry, 0, len(all)),
	}
	for i, f := range all {
		out.Facts = append(out.Facts, factEntry{Sequence: i + 1, Key: f.Key.String(), ID: f.ID, Content: f.Content})
	}
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.New(errors.CodeInternal, "encode run output", err)
	}
	fmt.Fprintln(a.stdout, string(raw))
	return nil
}

func (a *App) printRunSummary(runID, correlationID string, result *engine.RunResult) {
	w := a.stdout
	fmt.Fprintln(w, "\n=== Convergence Result ===")
	fmt.Fprintf(w, "Run ID: %s\n", runID)
	fmt.Fprintf(w, "Correlation ID: %s\n", correlationID)
	fmt.Fprintf(w, "Converged: %t\n", result.Converged)
	fmt.Fprintf(w, "Total Cycles: %d\n", result.Cycles)
	fmt.Fprintf(w, "Total Facts: %d\n", result.Context.Count())
	fmt.Fprintln(w, "==========================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Generated Facts ===")
	fmt.Fprintln(w)
	for _, key := range core.AllKeys() {
		facts := result.Context.Get(key)
		if len(facts) == 0 {
			continue
		}
		fmt.Fprintf(w, "[%s]\n", key)
		for _, f := range facts {
			fmt.Fprintf(w, "  %s | %s\n", f.ID, f.Content)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "=======================")
}

func deviceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	return fmt.Sprintf("cli:%s:%s", host, user)
}
