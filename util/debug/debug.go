// Package debug provides per-device and per-bus trace logging gated by
// a bitmask.
package debug

import (
	"fmt"
	"io"
	"os"
)

// Flag values, OR'd together to select which trace categories are
// active.
const (
	FlagBus uint32 = 1 << iota
	FlagDevice
	FlagEvent
)

var (
	out   io.Writer = os.Stderr
	flags uint32
)

// SetOutput redirects trace output.
func SetOutput(w io.Writer) { out = w }

// SetFlags replaces the active trace category bitmask.
func SetFlags(f uint32) { flags = f }

// Busf writes a bus-category trace line if FlagBus is active.
func Busf(format string, args ...any) { logf(FlagBus, format, args...) }

// Devf writes a device-category trace line if FlagDevice is active.
func Devf(format string, args ...any) { logf(FlagDevice, format, args...) }

// Eventf writes an event-category trace line if FlagEvent is active.
func Eventf(format string, args ...any) { logf(FlagEvent, format, args...) }

func logf(flag uint32, format string, args ...any) {
	if flags&flag == 0 {
		return
	}
	fmt.Fprintf(out, format+"\n", args...)
}
