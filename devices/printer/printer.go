// Package printer implements the uMPS printer device: a single-character
// writer to a per-device log file with fixed per-char latency.
package printer

import (
	"fmt"
	"os"

	"github.com/umps-sim/umps-core/device"
)

// Device-specific command and status codes.
const (
	CmdPrntChr uint32 = 2

	StatusPrntErr uint32 = 4
)

// Latency factors, in microticks, scaled by the clock rate.
const (
	resetTicks = 40
	charTicks  = 8
)

// Printer is the uMPS printer device.
type Printer struct {
	addr    device.Address
	host    device.Host
	signals *device.Signals

	regs    [device.RegCount]uint32
	working bool
	file    *os.File
}

// New opens logPath for writing and returns a ready (STATUS=READY)
// printer device attached to addr. The file is owned by the device and
// closed by Close.
func New(addr device.Address, host device.Host, signals *device.Signals, logPath string) (*Printer, error) {
	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("printer %s: cannot open log file: %w", addr, err)
	}
	p := &Printer{addr: addr, host: host, signals: signals, file: f, working: true}
	p.regs[device.RegStatus] = device.StatusReady
	return p, nil
}

// Close releases the backing log file.
func (p *Printer) Close() error {
	return p.file.Close()
}

// SetWorking toggles the fault-injection mode.
func (p *Printer) SetWorking(working bool) {
	if working != p.working {
		p.working = working
		p.signals.EmitConditionChanged(working)
	}
}

func (p *Printer) ReadRegister(index int) uint32 {
	if index < 0 || index >= device.RegCount {
		panic("printer: register index out of range")
	}
	return p.regs[index]
}

func (p *Printer) IsBusy() bool {
	return p.regs[device.RegStatus] == device.StatusBusy
}

func (p *Printer) Input(string) {
	panic("printer: Input directed at a non-terminal device")
}

// WriteRegister implements device.Device. Only COMMAND and DATA0 are
// writable, and only while the device is not busy.
func (p *Printer) WriteRegister(index int, value uint32) {
	if p.IsBusy() {
		return
	}

	switch index {
	case device.RegCmd:
		p.regs[device.RegCmd] = value
		switch value {
		case device.CmdReset:
			p.host.IntAck(p.addr)
			p.regs[device.RegStatus] = device.StatusBusy
			p.host.Schedule(p.addr, uint64(resetTicks*p.host.ClockRate()), p.completeOp)

		case device.CmdAck:
			p.host.IntAck(p.addr)
			p.regs[device.RegStatus] = device.StatusReady

		case CmdPrntChr:
			p.host.IntAck(p.addr)
			p.regs[device.RegStatus] = device.StatusBusy
			p.host.Schedule(p.addr, uint64(charTicks*p.host.ClockRate()), p.completeOp)

		default:
			p.regs[device.RegStatus] = device.StatusIllegalOpErr
			p.host.IntReq(p.addr)
		}
		p.signals.EmitStatusChanged(p.statusString())

	case device.RegData0:
		p.regs[device.RegData0] = value
	}
}

func (p *Printer) completeOp() uint32 {
	switch p.regs[device.RegCmd] {
	case device.CmdReset:
		// A reset always succeeds, even in "not working" mode.
		p.regs[device.RegStatus] = device.StatusReady

	case CmdPrntChr:
		if p.working {
			if _, err := p.file.Write([]byte{byte(p.regs[device.RegData0])}); err != nil {
				panic(fmt.Sprintf("printer %s: write failed: %v", p.addr, err))
			}
			p.regs[device.RegStatus] = device.StatusReady
		} else {
			p.regs[device.RegStatus] = StatusPrntErr
		}
	}

	p.signals.EmitStatusChanged(p.statusString())
	p.host.IntReq(p.addr)
	return device.RegStatus
}

func (p *Printer) CompleteOp() uint32 { return p.completeOp() }

func (p *Printer) statusString() string {
	switch p.regs[device.RegStatus] {
	case device.StatusBusy:
		return "busy"
	case device.StatusReady:
		return "idle"
	case device.StatusIllegalOpErr:
		return "illegal operation"
	case StatusPrntErr:
		return "print error"
	default:
		return "unknown"
	}
}

var _ device.Device = (*Printer)(nil)
