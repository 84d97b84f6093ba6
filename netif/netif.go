// Package netif abstracts the transport an ethernet device sends and
// receives frames over, so the device logic stays independent of
// whether frames travel over a real socket or stay in-process.
package netif

// Mode selects how an ethernet device discovers an inbound frame.
type Mode int

const (
	// ModePolled requires software to issue READNET and get an empty
	// result when nothing is pending.
	ModePolled Mode = iota
	// ModeInterrupt has the device itself poll the interface on a
	// fixed schedule and raise an interrupt when a frame arrives.
	ModeInterrupt
)

// Interface is the narrow contract an ethernet device drives. A frame
// is an opaque byte slice; Interface implementations do not interpret
// its contents.
type Interface interface {
	// SetMAC installs this interface's hardware address.
	SetMAC(mac [6]byte)
	// MAC returns the currently configured hardware address.
	MAC() [6]byte
	// Send transmits a frame. It returns an error only on a transport
	// failure, never because no peer is listening.
	Send(frame []byte) error
	// Receive returns the next queued inbound frame, if any.
	Receive() (frame []byte, ok bool)
	// Pending reports whether a frame is queued without consuming it.
	Pending() bool
}
