package core

import (
	"context"
	"time"
)

// EventType identifies a progress event emitted while a run converges.
type EventType string

const (
	EventCycleStart EventType = "cycle.start"
	EventFactAdded  EventType = "fact.added"
	EventCycleEnd   EventType = "cycle.end"
	EventConverged  EventType = "run.converged"
	EventHalted     EventType = "run.halted"
)

// Event captures one progress event.
type Event struct {
	Type      EventType
	RunID     string
	Cycle     int
	Fact      *Fact
	Timestamp time.Time
	Payload   map[string]any
}

// EventEmitter receives progress events.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is a default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType EventType, runID string, cycle int, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		RunID:     runID,
		Cycle:     cycle,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
