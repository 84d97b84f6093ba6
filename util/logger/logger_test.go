package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, debug *bool) *slog.Logger {
	return slog.New(NewHandler(slog.NewTextHandler(buf, nil), debug))
}

func TestDebugRecordsSilencedWhenToggleOff(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	log := newTestLogger(&buf, &debug)

	log.Debug("hidden")
	log.Info("visible")

	got := buf.String()
	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Fatalf("output contains the debug record: %q", got)
	}
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Fatalf("output missing the info record: %q", got)
	}
}

func TestDebugRecordsEmittedWhenToggleOn(t *testing.T) {
	var buf bytes.Buffer
	debug := true
	log := newTestLogger(&buf, &debug)

	log.Debug("now visible")

	if !bytes.Contains(buf.Bytes(), []byte("now visible")) {
		t.Fatalf("output missing the debug record: %q", buf.String())
	}
}

func TestWithAttrsPreservesDebugGate(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(slog.NewTextHandler(&buf, nil), &debug)

	withAttrs := h.WithAttrs([]slog.Attr{slog.String("component", "eth")})
	if withAttrs.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("WithAttrs() handler should still gate debug records on the shared toggle")
	}

	debug = true
	if !withAttrs.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("WithAttrs() handler did not observe the toggle flipping on")
	}
}
