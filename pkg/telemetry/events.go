package telemetry

import (
	"context"
	"log/slog"

	"github.com/jllopis/converge/pkg/core"
)

// LogEmitter writes engine events to a logger at debug level.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter returns an emitter backed by logger, or slog.Default when nil.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit implements core.EventEmitter.
func (e *LogEmitter) Emit(ctx context.Context, ev core.Event) {
	if !e.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := []slog.Attr{
		slog.String("event", string(ev.Type)),
		slog.String("run_id", ev.RunID),
		slog.Int("cycle", ev.Cycle),
	}
	if ev.Fact != nil {
		attrs = append(attrs,
			slog.String("fact_key", ev.Fact.Key.String()),
			slog.String("fact_id", ev.Fact.ID),
		)
	}
	for k, v := range ev.Payload {
		attrs = append(attrs, slog.Any(k, v))
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "engine event", attrs...)
}
