package printer

import (
	"os"
	"testing"

	"github.com/umps-sim/umps-core/device"
)

// fakeHost is a minimal device.Host double that runs scheduled callbacks
// immediately when runAll is called, recording interrupt state.
type fakeHost struct {
	now       uint64
	clockRate uint32
	pending   []func() uint32
	irqAsserted bool
	irqAcked    int
}

func newFakeHost() *fakeHost { return &fakeHost{clockRate: 1} }

func (h *fakeHost) Schedule(addr device.Address, delay uint64, cb func() uint32) uint64 {
	h.pending = append(h.pending, cb)
	return h.now + delay
}

func (h *fakeHost) TODLO() uint32      { return uint32(h.now) }
func (h *fakeHost) ClockRate() uint32  { return h.clockRate }
func (h *fakeHost) IntReq(device.Address) { h.irqAsserted = true }
func (h *fakeHost) IntAck(device.Address) { h.irqAsserted = false; h.irqAcked++ }

func (h *fakeHost) DMAWord(physAddr uint32, data uint32, read bool) (uint32, bool) {
	return 0, false
}
func (h *fakeHost) DMABytes(physAddr uint32, data []byte, read bool) ([]byte, bool) {
	return nil, false
}

func (h *fakeHost) runAll() {
	for len(h.pending) > 0 {
		cb := h.pending[0]
		h.pending = h.pending[1:]
		cb()
	}
}

func newTestPrinter(t *testing.T) (*Printer, *fakeHost, string) {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/printer.out"
	host := newFakeHost()
	p, err := New(device.Address{Line: 6, Dev: 0}, host, &device.Signals{}, path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, host, path
}

func TestPrinterHappyPath(t *testing.T) {
	p, host, path := newTestPrinter(t)
	defer p.Close()

	if p.ReadRegister(device.RegStatus) != device.StatusReady {
		t.Fatalf("initial status = %d, want READY", p.ReadRegister(device.RegStatus))
	}

	p.WriteRegister(device.RegData0, 'A')
	p.WriteRegister(device.RegCmd, CmdPrntChr)

	if !p.IsBusy() {
		t.Fatal("device not busy immediately after PRNTCHR")
	}
	if host.irqAsserted {
		t.Fatal("IRQ asserted before completion")
	}

	host.runAll()

	if p.IsBusy() {
		t.Fatal("device still busy after completion")
	}
	if !host.irqAsserted {
		t.Fatal("IRQ not asserted after completion")
	}
	if got := p.ReadRegister(device.RegStatus); got != device.StatusReady {
		t.Fatalf("status after print = %d, want READY", got)
	}

	p.Close()
	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(out) != "A" {
		t.Fatalf("log contents = %q, want %q", out, "A")
	}
}

func TestPrinterIllegalOp(t *testing.T) {
	p, host, _ := newTestPrinter(t)
	defer p.Close()

	p.WriteRegister(device.RegCmd, 99)

	if p.ReadRegister(device.RegStatus) != device.StatusIllegalOpErr {
		t.Fatalf("status = %d, want ILLEGAL_OP_ERR", p.ReadRegister(device.RegStatus))
	}
	if !host.irqAsserted {
		t.Fatal("illegal command did not raise IRQ")
	}
	if p.IsBusy() {
		t.Fatal("illegal command must not leave the device busy")
	}
}

func TestPrinterNotWorkingFaultsCharWrite(t *testing.T) {
	p, host, _ := newTestPrinter(t)
	defer p.Close()

	p.SetWorking(false)
	p.WriteRegister(device.RegData0, 'Z')
	p.WriteRegister(device.RegCmd, CmdPrntChr)
	host.runAll()

	if got := p.ReadRegister(device.RegStatus); got != StatusPrntErr {
		t.Fatalf("status = %d, want PRNTERR", got)
	}
}

func TestPrinterResetAlwaysSucceedsWhenNotWorking(t *testing.T) {
	p, host, _ := newTestPrinter(t)
	defer p.Close()

	p.SetWorking(false)
	p.WriteRegister(device.RegCmd, device.CmdReset)
	host.runAll()

	if got := p.ReadRegister(device.RegStatus); got != device.StatusReady {
		t.Fatalf("status after RESET while not-working = %d, want READY", got)
	}
}

func TestPrinterWritesIgnoredWhileBusy(t *testing.T) {
	p, host, _ := newTestPrinter(t)
	defer p.Close()

	p.WriteRegister(device.RegData0, 'A')
	p.WriteRegister(device.RegCmd, CmdPrntChr)

	p.WriteRegister(device.RegCmd, device.CmdReset)
	if p.ReadRegister(device.RegCmd) != CmdPrntChr {
		t.Fatal("COMMAND register write accepted while device was busy")
	}

	host.runAll()
}

var _ device.Host = (*fakeHost)(nil)
