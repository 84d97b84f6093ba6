// Package todfmt formats the bus's microtick clock for display, the
// way a monitor command or trace line would report it.
package todfmt

import "fmt"

// Format renders a raw TOD_LO value as seconds.microticks, assuming
// clockRate microticks per second.
func Format(todLo uint32, clockRate uint32) string {
	if clockRate == 0 {
		return fmt.Sprintf("%d ticks", todLo)
	}
	secs := todLo / clockRate
	rem := todLo % clockRate
	return fmt.Sprintf("%d.%06ds", secs, rem)
}
