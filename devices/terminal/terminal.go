// Package terminal implements the uMPS terminal device: two
// independent sub-devices (receiver and transmitter) sharing one
// register file and one interrupt line, fed by external Input() and
// backed by a log file.
package terminal

import (
	"fmt"
	"os"

	"github.com/umps-sim/umps-core/device"
)

// Register indices, renamed from the common STATUS/COMMAND/DATA0/DATA1
// layout.
const (
	RegRecvStatus   = device.RegStatus
	RegRecvCommand  = device.RegCmd
	RegTransStatus  = device.RegData0
	RegTransCommand = device.RegData1
)

// Device-specific command codes. RX and TX reuse the same numbering.
const CmdChr uint32 = 2 // RECVCHR / TRANCHR

// Device-specific status codes. RECVERR mirrors TRANERR's value for
// symmetry, since every data-transferring op must fail with an
// appropriate error code under the fault-injection toggle.
const (
	StatusRecvErr  uint32 = 4
	StatusTranErr  uint32 = 4
	StatusReceived uint32 = 5
	StatusTransmitted uint32 = 5
)

const (
	resetTicks = 400
	charTicks  = 80
)

// Terminal is the uMPS terminal device.
type Terminal struct {
	addr    device.Address
	host    device.Host
	signals *device.Signals
	working bool
	log     *os.File

	recvStatus  uint32
	recvCmd     uint32
	recvPending bool
	recvCTime   uint64
	inbox       []byte

	transStatus  uint32
	transCmd     uint32
	transPending bool
	transCTime   uint64
}

// New opens logPath (mirroring both received and transmitted bytes)
// and returns a ready terminal device attached to addr.
func New(addr device.Address, host device.Host, signals *device.Signals, logPath string) (*Terminal, error) {
	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("terminal %s: cannot open log file: %w", addr, err)
	}
	return &Terminal{
		addr:        addr,
		host:        host,
		signals:     signals,
		working:     true,
		log:         f,
		recvStatus:  device.StatusReady,
		transStatus: device.StatusReady,
	}, nil
}

// Close releases the backing log file.
func (t *Terminal) Close() error { return t.log.Close() }

// SetWorking toggles the fault-injection mode, affecting both
// sub-devices.
func (t *Terminal) SetWorking(working bool) {
	if working != t.working {
		t.working = working
		t.signals.EmitConditionChanged(working)
	}
}

func (t *Terminal) ReadRegister(index int) uint32 {
	switch index {
	case RegRecvStatus:
		return t.recvStatus
	case RegRecvCommand:
		return t.recvCmd
	case RegTransStatus:
		return t.transStatus
	case RegTransCommand:
		return t.transCmd
	default:
		panic("terminal: register index out of range")
	}
}

func (t *Terminal) IsBusy() bool {
	return t.recvStatus == device.StatusBusy || t.transStatus == device.StatusBusy
}

// raiseRX/raiseTX/ackRX/ackTX implement the shared-line aggregation:
// each sub-device requests the line on its own completion, and the line
// is only acked when a side clears its own pending IRQ and the other
// side has none.
func (t *Terminal) raiseRX() {
	t.recvPending = true
	t.host.IntReq(t.addr)
}

func (t *Terminal) raiseTX() {
	t.transPending = true
	t.host.IntReq(t.addr)
}

func (t *Terminal) ackRX() {
	wasPending := t.recvPending
	t.recvPending = false
	if wasPending && !t.transPending {
		t.host.IntAck(t.addr)
	}
}

func (t *Terminal) ackTX() {
	wasPending := t.transPending
	t.transPending = false
	if wasPending && !t.recvPending {
		t.host.IntAck(t.addr)
	}
}

// WriteRegister implements device.Device. A write to RECV_COMMAND or
// TRANS_COMMAND is accepted only when that sub-device is not busy.
func (t *Terminal) WriteRegister(index int, value uint32) {
	switch index {
	case RegRecvCommand:
		t.writeRecvCommand(value)
	case RegTransCommand:
		t.writeTransCommand(value)
	}
}

func (t *Terminal) writeRecvCommand(value uint32) {
	if t.recvStatus == device.StatusBusy {
		return
	}
	t.recvCmd = value
	switch value {
	case device.CmdReset:
		t.ackRX()
		t.recvStatus = device.StatusBusy
		t.recvCTime = t.host.Schedule(t.addr, uint64(resetTicks*t.host.ClockRate()), t.CompleteOp)
	case device.CmdAck:
		t.ackRX()
		t.recvStatus = device.StatusReady
	case CmdChr:
		t.ackRX()
		t.recvStatus = device.StatusBusy
		t.recvCTime = t.host.Schedule(t.addr, uint64(charTicks*t.host.ClockRate()), t.CompleteOp)
	default:
		t.recvStatus = device.StatusIllegalOpErr
		t.raiseRX()
	}
	t.signals.EmitStatusChanged(t.statusString())
}

func (t *Terminal) writeTransCommand(value uint32) {
	if t.transStatus == device.StatusBusy {
		return
	}
	t.transCmd = value
	op := value & 0xFF
	switch op {
	case device.CmdReset:
		t.ackTX()
		t.transStatus = device.StatusBusy
		t.transCTime = t.host.Schedule(t.addr, uint64(resetTicks*t.host.ClockRate()), t.CompleteOp)
	case device.CmdAck:
		t.ackTX()
		t.transStatus = device.StatusReady
	case CmdChr:
		t.ackTX()
		t.transStatus = device.StatusBusy
		t.transCTime = t.host.Schedule(t.addr, uint64(charTicks*t.host.ClockRate()), t.CompleteOp)
	default:
		t.transStatus = device.StatusIllegalOpErr
		t.raiseTX()
	}
	t.signals.EmitStatusChanged(t.statusString())
}

// CompleteOp implements device.Device. RX and TX share this single
// callback, so when both sub-devices are BUSY (RX can be left BUSY by
// its own empty-inbox reschedule in completeRecv while a TX completion
// fires) the one actually due — the earlier recorded completion
// time — is completed; the other stays BUSY until its own event fires.
func (t *Terminal) CompleteOp() uint32 {
	recvBusy := t.recvStatus == device.StatusBusy
	transBusy := t.transStatus == device.StatusBusy
	switch {
	case recvBusy && transBusy:
		if t.transCTime < t.recvCTime {
			return t.completeTrans()
		}
		return t.completeRecv()
	case recvBusy:
		return t.completeRecv()
	default:
		return t.completeTrans()
	}
}

func (t *Terminal) completeRecv() uint32 {
	switch t.recvCmd {
	case device.CmdReset:
		// A reset always succeeds, even in "not working" mode.
		t.recvStatus = device.StatusReady
		t.raiseRX()

	case CmdChr:
		if len(t.inbox) == 0 {
			// Nothing to receive yet: stay busy and poll again.
			t.recvCTime = t.host.Schedule(t.addr, uint64(charTicks*t.host.ClockRate()), t.CompleteOp)
			return RegRecvStatus
		}
		b := t.inbox[0]
		t.inbox = t.inbox[1:]
		if t.working {
			t.recvStatus = uint32(b)<<8 | StatusReceived
		} else {
			t.recvStatus = StatusRecvErr
		}
		t.raiseRX()
	}
	t.signals.EmitStatusChanged(t.statusString())
	return RegRecvStatus
}

func (t *Terminal) completeTrans() uint32 {
	op := t.transCmd & 0xFF
	char := byte(t.transCmd >> 8)
	switch op {
	case device.CmdReset:
		t.transStatus = device.StatusReady
	case CmdChr:
		if t.working {
			if _, err := t.log.Write([]byte{char}); err != nil {
				panic(fmt.Sprintf("terminal %s: log write failed: %v", t.addr, err))
			}
			t.signals.EmitTransmitted(char)
			t.transStatus = uint32(char)<<8 | StatusTransmitted
		} else {
			t.transStatus = uint32(char)<<8 | StatusTranErr
		}
	}
	t.raiseTX()
	t.signals.EmitStatusChanged(t.statusString())
	return RegTransStatus
}

// Input appends str, followed by a newline, to the pending receive
// buffer: if the previous buffer had already been fully drained this
// replaces it, otherwise the new data is concatenated after the
// unread tail. The input is mirrored to the log.
func (t *Terminal) Input(s string) {
	t.inbox = append(t.inbox, []byte(s+"\n")...)
	if _, err := t.log.Write([]byte(s + "\n")); err != nil {
		panic(fmt.Sprintf("terminal %s: log write failed: %v", t.addr, err))
	}
}

func (t *Terminal) statusString() string {
	describe := func(s uint32) string {
		switch s & 0xFF {
		case device.StatusBusy:
			return "busy"
		case device.StatusReady:
			return "idle"
		case device.StatusIllegalOpErr:
			return "illegal operation"
		case StatusRecvErr:
			return "error"
		case StatusReceived:
			return "done"
		default:
			return "unknown"
		}
	}
	return "recv=" + describe(t.recvStatus) + " trans=" + describe(t.transStatus)
}

var _ device.Device = (*Terminal)(nil)
