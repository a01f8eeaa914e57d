package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jllopis/converge/pkg/errors"
)

const seedsJSON = `[{"id":"market","content":"B2B SaaS for logistics teams"}]`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp().WithOutput(&stdout, &stderr)
	err := app.ExecuteWithArgs(context.Background(), append([]string{"--log-level", "error"}, args...))
	return stdout.String(), stderr.String(), err
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestApp_Version(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "converge version") {
		t.Errorf("version output missing 'converge version', got: %s", out)
	}
}

func TestApp_Help(t *testing.T) {
	out, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"run", "eval", "packs", "mcp"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q, got: %s", want, out)
		}
	}
}

func TestApp_PacksListAndInfo(t *testing.T) {
	out, _, err := execute(t, "packs", "list")
	if err != nil {
		t.Fatalf("packs list failed: %v", err)
	}
	if !strings.Contains(out, "  growth-strategy - Multi-agent growth strategy analysis") {
		t.Errorf("unexpected packs list: %s", out)
	}

	out, _, err = execute(t, "packs", "info", "growth-strategy")
	if err != nil {
		t.Fatalf("packs info failed: %v", err)
	}
	for _, want := range []string{"Pack: growth-strategy", "Version: 1.0.0", "  - BrandSafetyInvariant", "  - StrategicInsightAgent"} {
		if !strings.Contains(out, want) {
			t.Errorf("packs info missing %q, got: %s", want, out)
		}
	}

	_, _, err = execute(t, "packs", "info", "sdr-pipeline")
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApp_RunHumanSummary(t *testing.T) {
	out, _, err := execute(t, "run", "--pack", "growth-strategy", "--mock", "--seeds", seedsJSON, "--run-id", "run_test")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{
		"=== Convergence Result ===",
		"Run ID: run_test",
		"Converged: true",
		"Total Cycles: 6",
		"Total Facts: 16",
		"[Strategies]",
		"  strategy:linkedin-b2b | ",
		"[Constraints]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q, got: %s", want, out)
		}
	}
}

func TestApp_RunJSON(t *testing.T) {
	out, _, err := execute(t, "run", "--pack", "growth-strategy", "--mock", "--seeds", seedsJSON, "--json", "--correlation-id", "cor_x")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var doc runOutput
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if doc.CorrelationID != "cor_x" || !strings.HasPrefix(doc.RunID, "run_") {
		t.Fatalf("unexpected ids: %s %s", doc.RunID, doc.CorrelationID)
	}
	if !doc.Result.Converged || doc.Result.TotalFacts != len(doc.Facts) || doc.Facts[0].Sequence != 1 || doc.Facts[0].Key != "Seeds" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Provider != "mock" || doc.TokenUsage.TotalTokens != 300 {
		t.Fatalf("unexpected provider usage: %s %+v", doc.Provider, doc.TokenUsage)
	}
}

func TestApp_RunStream(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "seeds.json", seedsJSON)
	out, _, err := execute(t, "run", "--pack", "growth-strategy", "--mock", "--seeds", "@"+filepath.Join(dir, "seeds.json"), "--stream")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.HasPrefix(lines[0], "[cycle:1] fact:Signals:signal:seed-market | ") {
		t.Fatalf("unexpected first line: %s", lines[0])
	}
	if last := lines[len(lines)-1]; last != "[cycle:6] converged | 6 cycles, 15 facts" {
		t.Fatalf("unexpected status line: %s", last)
	}
}

func TestApp_RunErrors(t *testing.T) {
	_, _, err := execute(t, "run", "--pack", "nope", "--mock")
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected unknown pack, got %v", err)
	}
	_, _, err = execute(t, "run", "--pack", "growth-strategy", "--mock", "--seeds", "{not json")
	if !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected invalid seeds, got %v", err)
	}
	_, _, err = execute(t, "run", "--pack", "growth-strategy", "--mock", "--seeds", `[{"id":"s","content":"spam every inbox"}]`)
	if !errors.IsCode(err, errors.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	var buf bytes.Buffer
	PrintError(&buf, err, false)
	if !strings.Contains(buf.String(), "Error [Invariant Violation]") || !strings.Contains(buf.String(), "Hint:") {
		t.Fatalf("unexpected error rendering: %s", buf.String())
	}
}

func TestApp_EvalRunListAndHistory(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "ok.json", `{"eval_id":"ok","description":"passes","pack":"growth-strategy",
		"seeds":[{"id":"s1","content":"B2B SaaS"}],"expected":{"converged":true,"min_strategies":2}}`)
	db := filepath.Join(t.TempDir(), "history.db")

	out, _, err := execute(t, "eval", "list", "--dir", dir)
	if err != nil {
		t.Fatalf("eval list failed: %v", err)
	}
	for _, want := range []string{"  ok - passes", "    Pack: growth-strategy", "    Seeds: 1", "    Mock LLM: false"} {
		if !strings.Contains(out, want) {
			t.Errorf("eval list missing %q, got: %s", want, out)
		}
	}

	out, _, err = execute(t, "eval", "run", "--dir", dir, "--mock", "--history", db)
	if err != nil {
		t.Fatalf("eval run failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[PASS] ok (") || !strings.Contains(out, "Total: 1 | Passed: 1 | Failed: 0") {
		t.Fatalf("unexpected report: %s", out)
	}

	out, _, err = execute(t, "eval", "history", "--history", db)
	if err != nil {
		t.Fatalf("eval history failed: %v", err)
	}
	if !strings.Contains(out, "ok") || !strings.Contains(out, "PASS") {
		t.Fatalf("unexpected history: %s", out)
	}
}

func TestApp_EvalRunFailures(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "strict.json", `{"eval_id":"strict","pack":"growth-strategy",
		"seeds":[{"id":"s1","content":"B2B SaaS"}],"expected":{"min_strategies":9}}`)

	out, _, err := execute(t, "eval", "run", "--dir", dir, "--mock")
	if err == nil || !strings.Contains(err.Error(), "1 of 1 evals failed") {
		t.Fatalf("expected failure, got %v", err)
	}
	if !strings.Contains(out, "      FAIL: min_strategies - expected >= 9, got 2") {
		t.Fatalf("unexpected report: %s", out)
	}

	out, _, err = execute(t, "eval", "run", "missing", "--dir", dir)
	if err != nil || !strings.Contains(out, "Eval 'missing' not found") {
		t.Fatalf("unexpected result for missing id: %v %s", err, out)
	}

	out, _, err = execute(t, "eval", "run", "--dir", filepath.Join(dir, "none"))
	if err != nil || !strings.Contains(out, "No eval fixtures found") {
		t.Fatalf("unexpected result for empty dir: %v %s", err, out)
	}
}

func TestApp_EvalHistoryWithoutDatabase(t *testing.T) {
	_, _, err := execute(t, "eval", "history")
	if !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Fatalf("expected invalid argument without a history path, got %v", err)
	}
}
