package eval

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// HistoryEntry is one stored fixture outcome.
type HistoryEntry struct {
	EvalID     string    `json:"eval_id"`
	RunID      string    `json:"run_id"`
	Pack       string    `json:"pack"`
	Provider   string    `json:"provider,omitempty"`
	Passed     bool      `json:"passed"`
	Converged  bool      `json:"converged"`
	Cycles     int       `json:"cycles"`
	FactCount  int       `json:"fact_count"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Checks     []Check   `json:"checks,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewHistoryEntry converts a result into a history entry stamped at.
func NewHistoryEntry(res Result, at time.Time) HistoryEntry {
	return HistoryEntry{
		EvalID:     res.EvalID,
		RunID:      res.RunID,
		Pack:       res.Pack,
		Provider:   res.Provider,
		Passed:     res.Passed,
		Converged:  res.Converged,
		Cycles:     res.Cycles,
		FactCount:  res.FactCount,
		DurationMs: res.Duration.Milliseconds(),
		Error:      res.Error,
		Checks:     append([]Check(nil), res.Checks...),
		RecordedAt: normalizeTime(at),
	}
}

// HistoryStore persists eval outcomes across runs.
type HistoryStore interface {
	Record(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
}

// HistoryFilter limits history queries. Results come newest first.
type HistoryFilter struct {
	EvalID     string
	FailedOnly bool
	Limit      int
}

// MemoryHistoryStore keeps history in memory.
type MemoryHistoryStore struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

// NewMemoryHistoryStore returns an empty in-memory store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{}
}

// Record appends an entry.
func (s *MemoryHistoryStore) Record(_ context.Context, entry HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns filtered entries, newest first.
func (s *MemoryHistoryStore) List(_ context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.EvalID != "" && e.EvalID != filter.EvalID {
			continue
		}
		if filter.FailedOnly && e.Passed {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func encodeChecks(checks []Check) (string, error) {
	if len(checks) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(checks)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeChecks(raw string) ([]Check, error) {
	if raw == "" {
		return nil, nil
	}
	var checks []Check
	if err := json.Unmarshal([]byte(raw), &checks); err != nil {
		return nil, err
	}
	return checks, nil
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
