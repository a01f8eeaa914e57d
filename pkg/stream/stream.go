// Package stream prints facts as a run produces them.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jllopis/converge/pkg/core"
)

// Format selects how lines are rendered.
type Format int

const (
	Human Format = iota
	JSON
)

type factLine struct {
	Cycle   int    `json:"cycle"`
	Type    string `json:"type"`
	Key     string `json:"key"`
	ID      string `json:"id"`
	Content string `json:"content"`
}

type statusLine struct {
	Cycle     int    `json:"cycle"`
	Type      string `json:"type"`
	Converged bool   `json:"converged"`
	Cycles    int    `json:"cycles"`
	Facts     int64  `json:"facts"`
}

// Handler writes one line per merged fact. It is safe for concurrent use.
type Handler struct {
	format Format
	mu     sync.Mutex
	w      io.Writer
	facts  atomic.Int64
}

// NewHandler returns a handler writing to w.
func NewHandler(w io.Writer, format Format) *Handler {
	return &Handler{w: w, format: format}
}

// FactCount returns the number of facts seen so far.
func (h *Handler) FactCount() int64 { return h.facts.Load() }

func (h *Handler) OnCycleStart(int) {}

func (h *Handler) OnCycleEnd(int, int) {}

func (h *Handler) OnFact(cycle int, f core.Fact) {
	h.facts.Add(1)
	if h.format == JSON {
		h.writeJSON(factLine{Cycle: cycle, Type: "fact", Key: f.Key.String(), ID: f.ID, Content: f.Content})
		return
	}
	h.writeLine(fmt.Sprintf("[cycle:%d] fact:%s:%s | %s", cycle, f.Key, f.ID, f.Content))
}

// Finish writes the closing status line of a run.
func (h *Handler) Finish(converged bool, cycles int) {
	facts := h.FactCount()
	if h.format == JSON {
		h.writeJSON(statusLine{Cycle: cycles, Type: "status", Converged: converged, Cycles: cycles, Facts: facts})
		return
	}
	status := "halted"
	if converged {
		status = "converged"
	}
	h.writeLine(fmt.Sprintf("[cycle:%d] %s | %d cycles, %d facts", cycles, status, cycles, facts))
}

func (h *Handler) writeJSON(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.writeLine(string(raw))
}

func (h *Handler) writeLine(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.w, line)
}
