// Package device defines the contract every uMPS peripheral implements,
// the shared register file shape, and the narrow back-reference (Host)
// a device uses to reach the system bus.
package device

import "fmt"

// RegCount is the number of 32-bit registers every device exposes.
const RegCount = 4

// Common register indices.
const (
	RegStatus = 0
	RegCmd    = 1
	RegData0  = 2
	RegData1  = 3
)

// Common status values, shared by every device type.
const (
	StatusUninstalled  uint32 = 0
	StatusReady        uint32 = 1
	StatusIllegalOpErr uint32 = 2
	StatusBusy         uint32 = 3
)

// Common command values. Device-specific commands start at 2.
const (
	CmdReset uint32 = 0
	CmdAck   uint32 = 1
)

// MaxU32 is the sentinel used by the disk/flash sector caches to mean
// "no cached entry."
const MaxU32 uint32 = 0xFFFFFFFF

// Address identifies a device slot by its interrupt line and device
// number.
type Address struct {
	Line uint8 // 3..7
	Dev  uint8 // 0..7
}

func (a Address) String() string {
	return fmt.Sprintf("%d:%d", a.Line, a.Dev)
}

// Valid reports whether the address falls within the five interrupt
// lines and eight device slots per line the bus exposes.
func (a Address) Valid() bool {
	return a.Line >= 3 && a.Line <= 7 && a.Dev <= 7
}

// Signals is the observer callback registry a device uses to notify an
// external UI. Every field is optional; devices must nil-check before
// calling. Single-threaded dispatch means no synchronization is
// required.
type Signals struct {
	StatusChanged    func(description string)
	Transmitted      func(b byte)
	ConditionChanged func(working bool)
}

// EmitStatusChanged invokes the StatusChanged signal, if set.
func (s *Signals) EmitStatusChanged(description string) {
	if s != nil && s.StatusChanged != nil {
		s.StatusChanged(description)
	}
}

// EmitTransmitted invokes the Transmitted signal, if set.
func (s *Signals) EmitTransmitted(b byte) {
	if s != nil && s.Transmitted != nil {
		s.Transmitted(b)
	}
}

// EmitConditionChanged invokes the ConditionChanged signal, if set.
func (s *Signals) EmitConditionChanged(working bool) {
	if s != nil && s.ConditionChanged != nil {
		s.ConditionChanged(working)
	}
}

// Device is the contract the bus uses to drive every peripheral.
type Device interface {
	// ReadRegister returns the current value of register index (0..3).
	// Implementations must panic on an out-of-range index: it is a
	// fatal programming error in the caller, not a recoverable one.
	ReadRegister(index int) uint32

	// WriteRegister stores value into register index. Device-specific;
	// writes are typically ignored while the addressed sub-device is
	// busy.
	WriteRegister(index int, value uint32)

	// CompleteOp is invoked by the bus when the device's pending
	// completion event fires. It returns the index of the register it
	// mutated.
	CompleteOp() uint32

	// Input delivers data from an external source (only meaningful for
	// a terminal's receiver). Every other device panics.
	Input(s string)

	// IsBusy reports whether the device has a completion event
	// in flight.
	IsBusy() bool
}

// Host is the narrow, non-owning back-reference a device holds to the
// system bus: enough to schedule completions, raise/acknowledge its
// own interrupt line, read the clock, and perform DMA, without giving
// the device ownership of (or full access to) the bus.
type Host interface {
	// Schedule queues cb to fire at TODLO()+delay and returns that
	// absolute fire time.
	Schedule(addr Address, delay uint64, cb func() uint32) uint64

	// TODLO returns the low 32 bits of the bus's monotonic microtick
	// clock.
	TODLO() uint32

	// ClockRate returns the per-CPU clock-rate scalar (MHz) latencies
	// are multiplied by.
	ClockRate() uint32

	// IntReq asserts addr's pending-interrupt bit.
	IntReq(addr Address)

	// IntAck clears addr's pending-interrupt bit.
	IntAck(addr Address)

	// DMAWord performs a single-word DMA transfer between a device
	// buffer slot and physical memory. direction true = read from
	// memory into the device; false = write from the device to
	// memory. It returns true on an addressing failure.
	DMAWord(physAddr uint32, data uint32, read bool) (result uint32, failed bool)

	// DMABytes performs a variable-length DMA transfer, used by the
	// ethernet device. Same direction convention as DMAWord.
	DMABytes(physAddr uint32, data []byte, read bool) (out []byte, failed bool)
}

// NullDevice is the placeholder occupying any of the bus's 40 device
// slots not configured with a real device.
type NullDevice struct{}

func (NullDevice) ReadRegister(index int) uint32 {
	if index < 0 || index >= RegCount {
		panic("device: register index out of range")
	}
	return 0
}

func (NullDevice) WriteRegister(int, uint32) {}

func (NullDevice) CompleteOp() uint32 { return RegStatus }

func (NullDevice) Input(string) {
	panic("device: Input directed at a non-terminal device")
}

func (NullDevice) IsBusy() bool { return false }

var _ Device = NullDevice{}
