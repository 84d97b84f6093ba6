// Package eth implements the uMPS ethernet device: MAC configuration,
// frame transmit/receive over a pluggable netif.Interface, and the
// polled/interrupt latch that lets software learn a frame has arrived
// without an active read.
package eth

import (
	"github.com/umps-sim/umps-core/device"
	"github.com/umps-sim/umps-core/netif"
)

// Device-specific command codes. CmdSetMAC is a modifier bit OR'd into
// CmdConfigure's low byte, not a command in its own right.
const (
	CmdReadConf  uint32 = 2
	CmdReadNet   uint32 = 3
	CmdWriteNet  uint32 = 4
	CmdConfigure uint32 = 5
	CmdSetMAC    uint32 = 0x80
)

// Device-specific status codes. DWRITERR is given explicitly; DREADERR
// is inferred for symmetry, required by the same fault-injection model.
const (
	StatusWriteErr uint32 = 6
	StatusReadErr  uint32 = 7
)

// ReadPending is OR'd into STATUS to signal a frame is queued, without
// otherwise changing the device's status meaning.
const ReadPending uint32 = 0x80
const readPendingMask uint32 = 0x7F

const (
	resetTicks    = 200
	readNetTicks  = 1220
	writeNetTicks = readNetTicks
	confNetTicks  = 40
)

// Eth is the uMPS ethernet device. DATA0 is always the physical memory
// address for WRITENET/READNET DMA; DATA1 carries the frame length for
// those two commands. For READCONF/CONFIGURE the same two registers
// instead carry the operating mode (DATA0 bits [23:16]) and the
// 48-bit MAC address (DATA0 bits [15:0] hold the high 2 bytes, DATA1
// holds the low 4 bytes).
type Eth struct {
	addr    device.Address
	host    device.Host
	signals *device.Signals
	working bool
	mode    netif.Mode
	iface   netif.Interface

	status uint32
	cmd    uint32
	data0  uint32
	data1  uint32
}

// New returns a ready ethernet device attached to addr, driving iface
// in the given mode.
func New(addr device.Address, host device.Host, signals *device.Signals, iface netif.Interface, mode netif.Mode) *Eth {
	e := &Eth{addr: addr, host: host, signals: signals, working: true, iface: iface, mode: mode, status: device.StatusReady}
	if mode == netif.ModeInterrupt {
		e.armPoll()
	}
	return e
}

// SetWorking toggles the fault-injection mode.
func (e *Eth) SetWorking(working bool) {
	if working != e.working {
		e.working = working
		e.signals.EmitConditionChanged(working)
	}
}

func (e *Eth) ReadRegister(index int) uint32 {
	switch index {
	case device.RegStatus:
		return e.status
	case device.RegCmd:
		return e.cmd
	case device.RegData0:
		return e.data0
	case device.RegData1:
		return e.data1
	default:
		panic("eth: register index out of range")
	}
}

func (e *Eth) IsBusy() bool {
	return (e.status & readPendingMask) == device.StatusBusy
}

func (e *Eth) Input(string) {
	panic("eth: Input directed at a non-terminal device")
}

// WriteRegister implements device.Device.
func (e *Eth) WriteRegister(index int, value uint32) {
	if e.IsBusy() {
		return
	}
	switch index {
	case device.RegCmd:
		e.cmd = value
		e.dispatch(value)
	case device.RegData0:
		e.data0 = value
	case device.RegData1:
		e.data1 = value
	}
}

func (e *Eth) dispatch(value uint32) {
	op := value & 0x7F
	setMAC := value&CmdSetMAC != 0
	switch op {
	case device.CmdReset:
		e.host.IntAck(e.addr)
		e.setStatus(device.StatusBusy)
		e.host.Schedule(e.addr, uint64(resetTicks*e.host.ClockRate()), e.CompleteOp)

	case device.CmdAck:
		e.host.IntAck(e.addr)
		e.setStatus(device.StatusReady)

	case CmdReadConf:
		e.host.IntAck(e.addr)
		e.setStatus(device.StatusBusy)
		e.host.Schedule(e.addr, uint64(confNetTicks*e.host.ClockRate()), e.CompleteOp)

	case CmdConfigure:
		e.host.IntAck(e.addr)
		mode := uint8(e.data0 >> 16)
		if mode == uint8(netif.ModeInterrupt) {
			e.mode = netif.ModeInterrupt
		} else {
			e.mode = netif.ModePolled
		}
		if setMAC {
			e.iface.SetMAC(macFromWords(e.data0, e.data1))
		}
		e.setStatus(device.StatusBusy)
		e.host.Schedule(e.addr, uint64(confNetTicks*e.host.ClockRate()), e.CompleteOp)

	case CmdReadNet:
		e.host.IntAck(e.addr)
		e.setStatus(device.StatusBusy)
		e.host.Schedule(e.addr, uint64(readNetTicks*e.host.ClockRate()), e.CompleteOp)

	case CmdWriteNet:
		e.host.IntAck(e.addr)
		e.setStatus(device.StatusBusy)
		e.host.Schedule(e.addr, uint64(writeNetTicks*e.host.ClockRate()), e.CompleteOp)

	default:
		e.setStatus(device.StatusIllegalOpErr)
		e.host.IntReq(e.addr)
	}
	e.signals.EmitStatusChanged("")
}

// setStatus replaces the low 7 bits of STATUS while preserving
// READPENDING.
func (e *Eth) setStatus(code uint32) {
	e.status = (e.status & ReadPending) | (code & readPendingMask)
}

// CompleteOp implements device.Device.
func (e *Eth) CompleteOp() uint32 {
	op := e.cmd & 0x7F
	switch op {
	case device.CmdReset:
		e.setStatus(device.StatusReady)
		e.status &^= ReadPending

	case CmdReadConf:
		e.data0 = uint32(e.mode) << 16
		hi, lo := macToWords(e.iface.MAC())
		e.data0 |= hi
		e.data1 = lo
		e.setStatus(device.StatusReady)

	case CmdConfigure:
		e.setStatus(device.StatusReady)

	case CmdReadNet:
		e.completeReadNet()

	case CmdWriteNet:
		e.completeWriteNet()
	}

	if e.mode == netif.ModeInterrupt && !e.IsBusy() {
		e.armPoll()
	}
	e.signals.EmitStatusChanged("")
	e.host.IntReq(e.addr)
	return device.RegStatus
}

// completeReadNet implements READNET: length 0 means no packet was
// queued (not an error); a DMA failure reports DREADERR with DATA1 set
// to the all-ones sentinel.
func (e *Eth) completeReadNet() {
	frame, ok := e.iface.Receive()
	if !ok {
		e.data1 = 0
		e.setStatus(device.StatusReady)
		e.status &^= ReadPending
		return
	}
	if !e.working {
		e.data1 = device.MaxU32
		e.setStatus(StatusReadErr)
		return
	}
	_, failed := e.host.DMABytes(e.data0, frame, false)
	if failed {
		e.data1 = device.MaxU32
		e.setStatus(StatusReadErr)
		return
	}
	e.data1 = uint32(len(frame))
	e.setStatus(device.StatusReady)
	if e.iface.Pending() {
		e.status |= ReadPending
	} else {
		e.status &^= ReadPending
	}
}

// completeWriteNet implements WRITENET: DATA1 bytes are DMA'd out of
// memory at DATA0 and handed to the transport.
func (e *Eth) completeWriteNet() {
	if !e.working {
		e.setStatus(StatusWriteErr)
		return
	}
	length := e.data1
	buf := make([]byte, length)
	out, failed := e.host.DMABytes(e.data0, buf, true)
	if failed || uint32(len(out)) != length {
		e.setStatus(StatusWriteErr)
		return
	}
	if err := e.iface.Send(out); err != nil {
		e.setStatus(StatusWriteErr)
		return
	}
	e.setStatus(device.StatusReady)
}

// armPoll schedules the next background poll in interrupt mode: the
// device checks the interface on a fixed interval and latches
// READPENDING (raising the interrupt line) the moment a frame is
// waiting, without consuming it. Once READPENDING is set, polling
// stops until the next command completion re-arms it.
func (e *Eth) armPoll() {
	e.host.Schedule(e.addr, uint64(device.PollNetTime*e.host.ClockRate()), e.poll)
}

func (e *Eth) poll() uint32 {
	if e.status&ReadPending == 0 && e.iface.Pending() {
		e.status |= ReadPending
		e.signals.EmitStatusChanged("")
		e.host.IntReq(e.addr)
	} else {
		e.armPoll()
	}
	return device.RegStatus
}

func macFromWords(data0, data1 uint32) [6]byte {
	var mac [6]byte
	mac[0] = byte(data0 >> 8)
	mac[1] = byte(data0)
	mac[2] = byte(data1 >> 24)
	mac[3] = byte(data1 >> 16)
	mac[4] = byte(data1 >> 8)
	mac[5] = byte(data1)
	return mac
}

func macToWords(mac [6]byte) (data0Low16, data1 uint32) {
	data0Low16 = uint32(mac[0])<<8 | uint32(mac[1])
	data1 = uint32(mac[2])<<24 | uint32(mac[3])<<16 | uint32(mac[4])<<8 | uint32(mac[5])
	return data0Low16, data1
}

var _ device.Device = (*Eth)(nil)
