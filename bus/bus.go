// Package bus implements the uMPS system bus: the 5x8 device slot
// table, the monotonic microtick clock, interrupt-pending bitmaps per
// line, and DMA access to main memory. It implements device.Host so
// devices can reach it without the bus needing to import any concrete
// device package for that purpose — only for construction.
package bus

import (
	"fmt"

	"github.com/umps-sim/umps-core/device"
	"github.com/umps-sim/umps-core/event"
)

// Memory is the collaborator the bus DMAs against: word accessors that
// report an addressing failure as a boolean rather than an error.
type Memory interface {
	ReadWord(physAddr uint32) (uint32, bool)
	WriteWord(physAddr uint32, data uint32) bool
}

// SystemBus wires every configured device to a shared clock, event
// queue and interrupt state. It is itself the device.Host every device
// holds a reference to.
type SystemBus struct {
	devices   [device.NumLines][device.DevsPerLine]device.Device
	pending   [device.NumLines]uint8 // bit i = device_number i has a pending interrupt
	queue     *event.Queue
	mem       Memory
	clockRate uint32
	tod       uint64
}

// New returns a bus with every slot occupied by device.NullDevice,
// backed by mem for DMA and reporting clockRate (MHz) as the scalar
// device latencies are multiplied by.
func New(mem Memory, clockRate uint32) *SystemBus {
	b := &SystemBus{
		queue:     event.NewQueue(),
		mem:       mem,
		clockRate: clockRate,
	}
	for line := range b.devices {
		for slot := range b.devices[line] {
			b.devices[line][slot] = device.NullDevice{}
		}
	}
	return b
}

func lineIndex(addr device.Address) (int, error) {
	if !addr.Valid() {
		return 0, fmt.Errorf("bus: invalid device address %s", addr)
	}
	return int(addr.Line - device.MinLine), nil
}

// Install places dev at addr, replacing whatever previously occupied
// that slot.
func (b *SystemBus) Install(addr device.Address, dev device.Device) {
	line, err := lineIndex(addr)
	if err != nil {
		panic(err)
	}
	b.devices[line][addr.Dev] = dev
}

// Device returns the device installed at addr.
func (b *SystemBus) Device(addr device.Address) device.Device {
	line, err := lineIndex(addr)
	if err != nil {
		panic(err)
	}
	return b.devices[line][addr.Dev]
}

// ReadRegister reads register index of the device at addr.
func (b *SystemBus) ReadRegister(addr device.Address, index int) uint32 {
	return b.Device(addr).ReadRegister(index)
}

// WriteRegister writes register index of the device at addr.
func (b *SystemBus) WriteRegister(addr device.Address, index int, value uint32) {
	b.Device(addr).WriteRegister(index, value)
}

// PendingLine reports the device-number bitmap of pending interrupts on
// the given interrupt line, as software would read an interrupt status
// word.
func (b *SystemBus) PendingLine(line uint8) uint8 {
	if line < device.MinLine || line > device.MaxLine {
		panic("bus: interrupt line out of range")
	}
	return b.pending[line-device.MinLine]
}

// --- device.Host ---

func (b *SystemBus) Schedule(addr device.Address, delay uint64, cb func() uint32) uint64 {
	return b.queue.Schedule(b.tod, delay, event.Callback(cb))
}

func (b *SystemBus) TODLO() uint32 { return uint32(b.tod) }

func (b *SystemBus) ClockRate() uint32 { return b.clockRate }

func (b *SystemBus) IntReq(addr device.Address) {
	line, err := lineIndex(addr)
	if err != nil {
		panic(err)
	}
	b.pending[line] |= 1 << addr.Dev
}

func (b *SystemBus) IntAck(addr device.Address) {
	line, err := lineIndex(addr)
	if err != nil {
		panic(err)
	}
	b.pending[line] &^= 1 << addr.Dev
}

func (b *SystemBus) DMAWord(physAddr uint32, data uint32, read bool) (uint32, bool) {
	if read {
		return b.mem.ReadWord(physAddr)
	}
	failed := b.mem.WriteWord(physAddr, data)
	return 0, failed
}

// DMABytes transfers len(data) bytes starting at the byte address
// physAddr. Memory is word-addressed, so each byte is folded into (or
// extracted from) the 32-bit word containing it; a partial word at the
// end of the transfer is read-modify-written rather than truncated.
func (b *SystemBus) DMABytes(physAddr uint32, data []byte, read bool) ([]byte, bool) {
	if read {
		out := make([]byte, len(data))
		for i := range out {
			addr := physAddr + uint32(i)
			word, failed := b.mem.ReadWord(addr &^ 3)
			if failed {
				return nil, true
			}
			out[i] = byteFromWord(word, addr&3)
		}
		return out, false
	}
	for i, bt := range data {
		addr := physAddr + uint32(i)
		word, failed := b.mem.ReadWord(addr &^ 3)
		if failed {
			return nil, true
		}
		word = wordWithByte(word, addr&3, bt)
		if b.mem.WriteWord(addr&^3, word) {
			return nil, true
		}
	}
	return nil, false
}

// byteFromWord and wordWithByte address bytes within a word
// big-endian, matching block.Block's on-disk word encoding.
func byteFromWord(word uint32, offset uint32) byte {
	shift := (3 - offset) * 8
	return byte(word >> shift)
}

func wordWithByte(word uint32, offset uint32, b byte) uint32 {
	shift := (3 - offset) * 8
	mask := uint32(0xFF) << shift
	return (word &^ mask) | uint32(b)<<shift
}

// Run advances the simulated clock to until, dispatching every event
// due to fire along the way. It returns the number of events
// dispatched.
func (b *SystemBus) Run(until uint64) int {
	dispatched := 0
	for {
		next, ok := b.queue.NextFireTime()
		if !ok || next > until {
			if b.tod < until {
				b.tod = until
			}
			break
		}
		b.tod = next
		if _, fired := b.queue.RunDue(b.tod); fired {
			dispatched++
		}
	}
	return dispatched
}

// Tick advances the clock by exactly one microtick, dispatching any
// event due at the new time. Used by a CPU driving the bus one
// instruction at a time rather than jumping to the next event.
func (b *SystemBus) Tick() {
	b.tod++
	for {
		if _, fired := b.queue.RunDue(b.tod); !fired {
			break
		}
	}
}

var _ device.Host = (*SystemBus)(nil)
