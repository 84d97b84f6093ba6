// Package logger wraps slog.Handler with a toggle that lets debug-level
// records be silenced without re-configuring the logger.
package logger

import (
	"context"
	"log/slog"
)

// Handler wraps an underlying slog.Handler and drops Debug-level
// records unless *debug is true at call time.
type Handler struct {
	next  slog.Handler
	debug *bool
}

// NewHandler returns a Handler that forwards to next, gating Debug
// records on *debug.
func NewHandler(next slog.Handler, debug *bool) *Handler {
	return &Handler{next: next, debug: debug}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level == slog.LevelDebug {
		return *h.debug
	}
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	return h.next.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs), debug: h.debug}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), debug: h.debug}
}

var _ slog.Handler = (*Handler)(nil)
