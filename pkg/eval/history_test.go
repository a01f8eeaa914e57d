package eval

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryHistoryStore(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx := context.Background()
	for i, id := range []string{"a", "b", "a"} {
		entry := HistoryEntry{EvalID: id, RunID: string(rune('1' + i)), Passed: i != 2}
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	entries, err := store.List(ctx, HistoryFilter{EvalID: "a"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "3" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	limited, _ := store.List(ctx, HistoryFilter{Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestSQLiteHistoryStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file:eval_history_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteHistoryStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := Result{
		EvalID:    "growth_basic",
		RunID:     "run-1",
		Pack:      "growth-strategy",
		Provider:  "mock",
		Passed:    false,
		Converged: true,
		Cycles:    6,
		FactCount: 16,
		Duration:  42 * time.Millisecond,
		Checks:    []Check{{Name: "min_facts", Expected: ">= 50", Actual: "16"}},
	}
	if err := store.Record(ctx, NewHistoryEntry(res, base)); err != nil {
		t.Fatalf("record: %v", err)
	}
	res.RunID, res.Passed, res.Checks = "run-2", true, nil
	if err := store.Record(ctx, NewHistoryEntry(res, base.Add(time.Minute))); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := store.List(ctx, HistoryFilter{EvalID: "growth_basic", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-2" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	failed, err := store.List(ctx, HistoryFilter{FailedOnly: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected one failed entry, got %d", len(failed))
	}
	got := failed[0]
	if got.DurationMs != 42 || got.Cycles != 6 || !got.Converged || got.Provider != "mock" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if len(got.Checks) != 1 || got.Checks[0].Name != "min_facts" {
		t.Fatalf("checks not round-tripped: %+v", got.Checks)
	}
}

func TestSQLiteHistoryKeepsParallelRuns(t *testing.T) {
	store, closeDB, err := OpenSQLiteHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer closeDB()

	fixtures := make([]Fixture, 48)
	for i := range fixtures {
		fixtures[i] = growthFixture(fmt.Sprintf("parallel_%02d", i))
	}
	results := mockRunner(WithParallelism(16), WithHistory(store)).RunEvals(context.Background(), fixtures)
	if len(results) != len(fixtures) {
		t.Fatalf("expected %d results, got %d", len(fixtures), len(results))
	}

	entries, err := store.List(context.Background(), HistoryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != len(fixtures) {
		t.Fatalf("recorded %d of %d runs", len(entries), len(fixtures))
	}
}

func TestHistoryDSN(t *testing.T) {
	if got := historyDSN("/tmp/h.db"); got != "/tmp/h.db?_pragma=busy_timeout(5000)" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if got := historyDSN("file:h?mode=memory"); got != "file:h?mode=memory&_pragma=busy_timeout(5000)" {
		t.Fatalf("unexpected dsn %q", got)
	}
}
