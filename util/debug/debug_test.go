package debug

import (
	"bytes"
	"testing"
)

func withCapture(t *testing.T, f uint32) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := out, flags
	SetOutput(&buf)
	SetFlags(f)
	t.Cleanup(func() {
		out, flags = prevOut, prevFlags
	})
	return &buf
}

func TestLogfGatedByFlag(t *testing.T) {
	buf := withCapture(t, FlagBus)

	Busf("bus trace %d", 1)
	Devf("device trace %d", 2)
	Eventf("event trace %d", 3)

	got := buf.String()
	if got != "bus trace 1\n" {
		t.Fatalf("output = %q, want only the bus trace line", got)
	}
}

func TestLogfAllFlagsActive(t *testing.T) {
	buf := withCapture(t, FlagBus|FlagDevice|FlagEvent)

	Busf("a")
	Devf("b")
	Eventf("c")

	want := "a\nb\nc\n"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

