package disk

import (
	"os"
	"testing"

	"github.com/umps-sim/umps-core/block"
	"github.com/umps-sim/umps-core/device"
	"github.com/umps-sim/umps-core/diskparams"
)

type fakeHost struct {
	now       uint64
	clockRate uint32
	pending   []func() uint32
	mem       map[uint32]uint32
	irqCount  int
}

func newFakeHost() *fakeHost {
	return &fakeHost{clockRate: 1, mem: make(map[uint32]uint32)}
}

func (h *fakeHost) Schedule(addr device.Address, delay uint64, cb func() uint32) uint64 {
	h.pending = append(h.pending, cb)
	return h.now + delay
}
func (h *fakeHost) TODLO() uint32         { return uint32(h.now) }
func (h *fakeHost) ClockRate() uint32     { return h.clockRate }
func (h *fakeHost) IntReq(device.Address) { h.irqCount++ }
func (h *fakeHost) IntAck(device.Address) {}

func (h *fakeHost) DMAWord(physAddr uint32, data uint32, read bool) (uint32, bool) {
	if read {
		return h.mem[physAddr], false
	}
	h.mem[physAddr] = data
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

func makeImage(t *testing.T, params diskparams.Params) string {
	t.Helper()
	path := t.TempDir() + "/disk.img"
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	var hdr block.Block
	hdr.SetWord(0, diskparams.DiskFileID)
	hdr.SetWord(1, params.Cyl)
	hdr.SetWord(2, params.Head)
	hdr.SetWord(3, params.Sect)
	hdr.SetWord(4, params.RotTimeUs)
	hdr.SetWord(5, params.SeekTimeUs)
	hdr.SetWord(6, params.DataSectPercent)
	if hdr.Write(f, 0) {
		t.Fatal("failed writing header block")
	}

	blocksPerCyl := int64(params.Head * params.Sect)
	total := int64(params.Cyl) * blocksPerCyl
	dataOffset := int64(7) * block.WordLen
	var zero block.Block
	for i := int64(0); i < total; i++ {
		if zero.Write(f, dataOffset+i*int64(block.Size)*block.WordLen) {
			t.Fatalf("failed zeroing block %d", i)
		}
	}
	return path
}

func testParams() diskparams.Params {
	return diskparams.Params{
		Cyl: 4, Head: 2, Sect: 8,
		RotTimeUs: 16000, SeekTimeUs: 100, DataSectPercent: 80,
	}
}

func seekCmd(cyl uint32) uint32 { return CmdSeekCyl | cyl<<16 }
func ioCmd(op, head, sect uint32) uint32 {
	return op | sect<<8 | head<<16
}

func TestDiskSeekBounds(t *testing.T) {
	host := newFakeHost()
	path := makeImage(t, testParams())
	d, err := Open(device.Address{Line: 3, Dev: 0}, host, &device.Signals{}, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	d.WriteRegister(device.RegCmd, seekCmd(99))

	if got := d.ReadRegister(device.RegStatus); got != StatusSeekErr {
		t.Fatalf("status = %d, want SEEKERR", got)
	}
	if d.IsBusy() {
		t.Fatal("out-of-range seek must not leave the device busy")
	}
}

func TestDiskOutOfRangeHeadOrSectorReportsTransferError(t *testing.T) {
	host := newFakeHost()
	path := makeImage(t, testParams())
	d, err := Open(device.Address{Line: 3, Dev: 0}, host, &device.Signals{}, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	d.WriteRegister(device.RegCmd, ioCmd(CmdReadBlk, 0, 99))
	if got := d.ReadRegister(device.RegStatus); got != StatusReadErr {
		t.Fatalf("status after out-of-range READBLK = %d, want READERR", got)
	}
	if d.IsBusy() {
		t.Fatal("out-of-range READBLK must not leave the device busy")
	}

	d.WriteRegister(device.RegCmd, device.CmdAck)
	d.WriteRegister(device.RegCmd, ioCmd(CmdWriteBlk, 99, 0))
	if got := d.ReadRegister(device.RegStatus); got != StatusWriteErr {
		t.Fatalf("status after out-of-range WRITEBLK = %d, want WRITEERR", got)
	}
}

func TestDiskGeometryReportedInData1(t *testing.T) {
	host := newFakeHost()
	path := makeImage(t, testParams())
	d, err := Open(device.Address{Line: 3, Dev: 0}, host, &device.Signals{}, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	want := testParams().Cyl<<16 | testParams().Head<<8 | testParams().Sect
	if got := d.ReadRegister(device.RegData1); got != want {
		t.Fatalf("DATA1 = %#x, want %#x", got, want)
	}
}

func TestDiskSeekAndReadWrite(t *testing.T) {
	host := newFakeHost()
	path := makeImage(t, testParams())
	d, err := Open(device.Address{Line: 3, Dev: 0}, host, &device.Signals{}, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	d.WriteRegister(device.RegCmd, seekCmd(2))
	host.runAll()
	if got := d.ReadRegister(device.RegStatus); got != device.StatusReady {
		t.Fatalf("status after seek = %d, want READY", got)
	}

	for i := uint32(0); i < block.Size; i++ {
		host.mem[0x1000+i*4] = 0xCAFE0000 + i
	}
	d.WriteRegister(device.RegData0, 0x1000)
	d.WriteRegister(device.RegCmd, ioCmd(CmdWriteBlk, 0, 1))
	host.runAll()
	if got := d.ReadRegister(device.RegStatus); got != device.StatusReady {
		t.Fatalf("status after write = %d, want READY", got)
	}

	for i := uint32(0); i < block.Size; i++ {
		host.mem[0x2000+i*4] = 0
	}
	d.WriteRegister(device.RegData0, 0x2000)
	d.WriteRegister(device.RegCmd, ioCmd(CmdReadBlk, 0, 1))
	host.runAll()
	if got := d.ReadRegister(device.RegStatus); got != device.StatusReady {
		t.Fatalf("status after read = %d, want READY", got)
	}

	for i := uint32(0); i < block.Size; i++ {
		if host.mem[0x2000+i*4] != 0xCAFE0000+i {
			t.Fatalf("word %d = %#x, want %#x", i, host.mem[0x2000+i*4], 0xCAFE0000+i)
		}
	}
}

func TestDiskCacheHitSkipsRotationalLatency(t *testing.T) {
	host := newFakeHost()
	path := makeImage(t, testParams())
	d, err := Open(device.Address{Line: 3, Dev: 0}, host, &device.Signals{}, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	d.WriteRegister(device.RegData0, 0x1000)
	d.WriteRegister(device.RegCmd, ioCmd(CmdReadBlk, 0, 0))
	host.runAll()

	d.WriteRegister(device.RegData0, 0x2000)
	d.WriteRegister(device.RegCmd, ioCmd(CmdReadBlk, 0, 0))

	if got := d.transferLatency(0); got != uint64(device.DMATicks) {
		t.Fatalf("cached-block latency = %d, want %d (DMA-only)", got, device.DMATicks)
	}
	host.runAll()
}

func TestDiskNotWorkingFaultsReadAndWrite(t *testing.T) {
	host := newFakeHost()
	path := makeImage(t, testParams())
	d, err := Open(device.Address{Line: 3, Dev: 0}, host, &device.Signals{}, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()
	d.SetWorking(false)

	d.WriteRegister(device.RegData0, 0x1000)
	d.WriteRegister(device.RegCmd, ioCmd(CmdWriteBlk, 0, 0))
	host.runAll()
	if got := d.ReadRegister(device.RegStatus); got != StatusWriteErr {
		t.Fatalf("status = %d, want WRITEERR", got)
	}

	d.WriteRegister(device.RegCmd, device.CmdAck)
	d.WriteRegister(device.RegData0, 0x2000)
	d.WriteRegister(device.RegCmd, ioCmd(CmdReadBlk, 0, 0))
	host.runAll()
	if got := d.ReadRegister(device.RegStatus); got != StatusReadErr {
		t.Fatalf("status = %d, want READERR", got)
	}
}

func TestDiskResetAlwaysSucceedsWhenNotWorking(t *testing.T) {
	host := newFakeHost()
	path := makeImage(t, testParams())
	d, err := Open(device.Address{Line: 3, Dev: 0}, host, &device.Signals{}, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()
	d.SetWorking(false)

	d.WriteRegister(device.RegCmd, device.CmdReset)
	host.runAll()
	if got := d.ReadRegister(device.RegStatus); got != device.StatusReady {
		t.Fatalf("status after reset = %d, want READY", got)
	}
}

var _ device.Host = (*fakeHost)(nil)
