package packs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jllopis/converge/pkg/core"
	"github.com/jllopis/converge/pkg/engine"
	"github.com/jllopis/converge/pkg/errors"
	"github.com/jllopis/converge/pkg/llm"
)

func TestAvailable(t *testing.T) {
	if diff := cmp.Diff([]string{GrowthStrategy}, Available()); diff != "" {
		t.Fatalf("packs mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup(t *testing.T) {
	info, ok := Lookup(GrowthStrategy)
	if !ok {
		t.Fatalf("expected growth-strategy pack")
	}
	if info.Version != "1.0.0" || len(info.Invariants) != 4 {
		t.Fatalf("unexpected info: %+v", info)
	}
	info.Agents[0] = "changed"
	again, _ := Lookup(GrowthStrategy)
	if again.Agents[0] != "MarketSignalAgent" {
		t.Fatalf("Lookup must return a copy")
	}
	if _, ok := Lookup("sdr-pipeline"); ok {
		t.Fatalf("unknown pack must not resolve")
	}
}

func TestRegisterUnknownPack(t *testing.T) {
	err := Register(engine.New(), "nope", llm.DefaultInsights())
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := Register(engine.New(), GrowthStrategy, nil); !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected invalid input without provider, got %v", err)
	}
}

func TestGrowthPackConvergesWithMock(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(engine.WithLogger(logger))
	if err := RegisterWithLogger(e, GrowthStrategy, llm.DefaultInsights(), logger); err != nil {
		t.Fatalf("register: %v", err)
	}
	info, _ := Lookup(GrowthStrategy)
	if diff := cmp.Diff(info.Agents, e.Agents()); diff != "" {
		t.Fatalf("registered agents mismatch (-want +got):\n%s", diff)
	}

	facts := core.NewContext()
	if _, err := facts.AddFact(core.NewFact(core.Seeds, "s1", "B2B SaaS for logistics")); err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background(), facts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Converged || res.Cycles != 6 {
		t.Fatalf("expected convergence in 6 cycles, got converged=%v cycles=%d", res.Converged, res.Cycles)
	}
	counts := map[core.ContextKey]int{}
	for _, f := range res.Context.All() {
		counts[f.Key]++
	}
	want := map[core.ContextKey]int{
		core.Seeds:       1,
		core.Signals:     3,
		core.Competitors: 2,
		core.Strategies:  2,
		core.Evaluations: 2,
		core.Hypotheses:  3,
		core.Constraints: 3,
	}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("fact counts mismatch (-want +got):\n%s", diff)
	}
}
