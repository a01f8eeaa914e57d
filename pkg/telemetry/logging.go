// Copyright 2026 © The Converge Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/converge/pkg/core"
)

// ConfigureSlog installs a default logger whose records carry the run id and
// the active span, when present in the context.
func ConfigureSlog(output io.Writer, level, format string) *slog.Logger {
	logger := slog.New(NewHandler(output, level, format))
	slog.SetDefault(logger)
	return logger
}

// NewHandler builds the text or json handler used by ConfigureSlog without
// touching the default logger.
func NewHandler(output io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &runHandler{next: slog.NewJSONHandler(output, opts)}
	}
	return &runHandler{next: slog.NewTextHandler(output, opts)}
}

// runHandler stamps run_id, trace_id and span_id unless the record or the
// logger already carries them.
type runHandler struct {
	next  slog.Handler
	bound map[string]bool
}

func (h *runHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *runHandler) Handle(ctx context.Context, record slog.Record) error {
	if ctx != nil {
		present := recordKeys(record, h.bound)
		if id, ok := core.RunID(ctx); ok && !present["run_id"] {
			record.AddAttrs(slog.String("run_id", id))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			if !present["trace_id"] {
				record.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
			}
			if !present["span_id"] {
				record.AddAttrs(slog.String("span_id", sc.SpanID().String()))
			}
		}
	}
	return h.next.Handle(ctx, record)
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]bool, len(h.bound)+len(attrs))
	for k := range h.bound {
		bound[k] = true
	}
	for _, a := range attrs {
		bound[a.Key] = true
	}
	return &runHandler{next: h.next.WithAttrs(attrs), bound: bound}
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	return &runHandler{next: h.next.WithGroup(name), bound: h.bound}
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	switch s := strings.ToLower(strings.TrimSpace(level)); s {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	default:
		if err := l.UnmarshalText([]byte(s)); err != nil {
			return slog.LevelInfo
		}
		return l
	}
}

func recordKeys(record slog.Record, bound map[string]bool) map[string]bool {
	keys := make(map[string]bool, record.NumAttrs()+len(bound))
	for k := range bound {
		keys[k] = true
	}
	record.Attrs(func(attr slog.Attr) bool {
		keys[attr.Key] = true
		return true
	})
	return keys
}
