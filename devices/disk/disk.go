// Package disk implements the uMPS rotating-disk device: cylinder
// seeking, a one-sector cache, and block DMA transfers timed against
// the low 32 bits of the system clock. The on-disk image header it
// reads at Open time is parsed by diskparams.
package disk

import (
	"fmt"
	"os"

	"github.com/umps-sim/umps-core/block"
	"github.com/umps-sim/umps-core/device"
	"github.com/umps-sim/umps-core/diskparams"
)

// Device-specific command codes, packed into bits [7:0] of COMMAND.
const (
	CmdSeekCyl  uint32 = 2
	CmdReadBlk  uint32 = 3
	CmdWriteBlk uint32 = 4
)

// Device-specific status codes.
const (
	StatusSeekErr  uint32 = 4
	StatusReadErr  uint32 = 5
	StatusWriteErr uint32 = 6
	StatusDMAErr   uint32 = 7
)

const resetTicks = 400

// Disk is the uMPS disk device. COMMAND is a single bit-packed word:
// bits [7:0] = op, [15:8] = sector, [23:16] = head, [31:16] = cylinder
// (16-bit, valid only for SEEKCYL). DATA0 is the
// physical memory address DMA'd to or from; DATA1 is a read-only
// geometry word set once at Open time.
type Disk struct {
	addr    device.Address
	host    device.Host
	signals *device.Signals
	working bool

	params     diskparams.Params
	file       *os.File
	dataOffset int64 // word offset of block 0 in the image file

	status     uint32
	cmd        uint32
	data0      uint32
	data1      uint32
	currentCyl uint32

	cacheCyl, cacheHead, cacheSect uint32
	cache                          block.Block
}

// Open reads the disk image header from path and returns a ready disk
// device attached to addr.
func Open(addr device.Address, host device.Host, signals *device.Signals, path string) (*Disk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	params, wordOffset, ok := diskparams.Load(f)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("disk: bad image header: %s", path)
	}
	d := &Disk{
		addr:       addr,
		host:       host,
		signals:    signals,
		working:    true,
		params:     params,
		file:       f,
		dataOffset: int64(wordOffset),
		status:     device.StatusReady,
		data1:      params.Cyl<<16 | params.Head<<8 | params.Sect,
	}
	d.invalidateCache()
	return d, nil
}

func (d *Disk) invalidateCache() {
	d.cacheCyl, d.cacheHead, d.cacheSect = device.MaxU32, device.MaxU32, device.MaxU32
}

// Close releases the backing image file.
func (d *Disk) Close() error { return d.file.Close() }

// SetWorking toggles the fault-injection mode.
func (d *Disk) SetWorking(working bool) {
	if working != d.working {
		d.working = working
		d.signals.EmitConditionChanged(working)
	}
}

func (d *Disk) ReadRegister(index int) uint32 {
	switch index {
	case device.RegStatus:
		return d.status
	case device.RegCmd:
		return d.cmd
	case device.RegData0:
		return d.data0
	case device.RegData1:
		return d.data1
	default:
		panic("disk: register index out of range")
	}
}

func (d *Disk) IsBusy() bool { return d.status == device.StatusBusy }

func (d *Disk) Input(string) {
	panic("disk: Input directed at a non-terminal device")
}

// WriteRegister implements device.Device. Only COMMAND and DATA0 are
// writable; DATA1 is a read-only geometry report.
func (d *Disk) WriteRegister(index int, value uint32) {
	if d.IsBusy() {
		return
	}
	switch index {
	case device.RegCmd:
		d.cmd = value
		d.dispatch(value)
	case device.RegData0:
		d.data0 = value
	}
}

func (d *Disk) dispatch(value uint32) {
	op := value & 0xFF
	switch op {
	case device.CmdReset:
		d.host.IntAck(d.addr)
		d.status = device.StatusBusy
		delay := uint64(400+d.params.SeekTimeUs*d.currentCyl) * uint64(d.host.ClockRate())
		d.host.Schedule(d.addr, delay, d.CompleteOp)

	case device.CmdAck:
		d.host.IntAck(d.addr)
		d.status = device.StatusReady

	case CmdSeekCyl:
		d.host.IntAck(d.addr)
		target := (value >> 16) & 0xFFFF
		if target >= d.params.Cyl {
			d.status = StatusSeekErr
			d.host.IntReq(d.addr)
			d.signals.EmitStatusChanged("")
			return
		}
		d.status = device.StatusBusy
		dist := target
		if target < d.currentCyl {
			dist = d.currentCyl - target
		} else {
			dist = target - d.currentCyl
		}
		delay := uint64(d.params.SeekTimeUs) * uint64(dist) * uint64(d.host.ClockRate())
		d.host.Schedule(d.addr, delay, d.CompleteOp)

	case CmdReadBlk, CmdWriteBlk:
		d.host.IntAck(d.addr)
		sect := (value >> 8) & 0xFF
		head := (value >> 16) & 0xFF
		if head >= d.params.Head || sect >= d.params.Sect {
			if op == CmdReadBlk {
				d.status = StatusReadErr
			} else {
				d.status = StatusWriteErr
			}
			d.host.IntReq(d.addr)
			d.signals.EmitStatusChanged("")
			return
		}
		if op == CmdWriteBlk {
			if failed := d.dmaIn(d.data0); failed {
				d.status = StatusDMAErr
				d.invalidateCache()
				d.host.IntReq(d.addr)
				d.signals.EmitStatusChanged("")
				return
			}
		}
		d.status = device.StatusBusy
		d.host.Schedule(d.addr, d.transferLatency(sect), d.CompleteOp)

	default:
		d.status = device.StatusIllegalOpErr
		d.host.IntReq(d.addr)
	}
	d.signals.EmitStatusChanged("")
}

// transferLatency computes the rotational latency for a READBLK or
// WRITEBLK targeting sect, the sector extracted from COMMAND.
func (d *Disk) transferLatency(sect uint32) uint64 {
	head := (d.cmd >> 16) & 0xFF
	if d.cacheCyl == d.currentCyl && d.cacheHead == head && d.cacheSect == sect {
		return uint64(device.DMATicks)
	}
	sectTicks := uint64(d.params.RotTimeUs) * uint64(d.host.ClockRate()) / uint64(d.params.Sect)
	todNow := uint64(d.host.TODLO())
	currentSector := (todNow / sectTicks) % uint64(d.params.Sect)
	remainder := todNow % sectTicks
	offset := (uint64(sect) + uint64(d.params.Sect) - currentSector - 1) % uint64(d.params.Sect)
	return remainder + sectTicks*offset + sectTicks*uint64(d.params.DataSectPercent)/100 + uint64(device.DMATicks)
}

// CompleteOp implements device.Device. It dispatches on the last
// command issued, which the bus guarantees has not changed since
// WriteRegister scheduled this completion (writes are rejected while
// the device is busy).
func (d *Disk) CompleteOp() uint32 {
	op := d.cmd & 0xFF
	switch op {
	case device.CmdReset:
		d.status = device.StatusReady
		d.invalidateCache()
		d.signals.EmitStatusChanged("")
		d.host.IntReq(d.addr)
		return device.RegStatus

	case CmdSeekCyl:
		d.currentCyl = (d.cmd >> 16) & 0xFFFF
		d.status = device.StatusReady
		d.signals.EmitStatusChanged("")
		d.host.IntReq(d.addr)
		return device.RegStatus

	default:
		return d.completeTransfer()
	}
}

func (d *Disk) completeTransfer() uint32 {
	op := d.cmd & 0xFF
	sect := (d.cmd >> 8) & 0xFF
	head := (d.cmd >> 16) & 0xFF
	blockIdx := (d.currentCyl*d.params.Head+head)*d.params.Sect + sect
	byteOffset := (d.dataOffset + int64(blockIdx)*int64(block.Size)) * block.WordLen

	var status uint32
	switch op {
	case CmdReadBlk:
		if !d.working {
			status = StatusReadErr
			d.invalidateCache()
			break
		}
		if d.cacheCyl != d.currentCyl || d.cacheHead != head || d.cacheSect != sect {
			if d.cache.Read(d.file, byteOffset) {
				panic(fmt.Sprintf("disk %s: read failed at block %d", d.addr, blockIdx))
			}
		}
		if failed := d.dmaOut(d.data0); failed {
			status = StatusDMAErr
			d.invalidateCache()
		} else {
			status = device.StatusReady
			d.cacheCyl, d.cacheHead, d.cacheSect = d.currentCyl, head, sect
		}

	case CmdWriteBlk:
		// The source block was already DMA'd in at dispatch time
		// (pre-rotational); this only commits it to the image.
		if !d.working {
			status = StatusWriteErr
			d.invalidateCache()
			break
		}
		if d.cache.Write(d.file, byteOffset) {
			panic(fmt.Sprintf("disk %s: write failed at block %d", d.addr, blockIdx))
		}
		status = device.StatusReady
		d.cacheCyl, d.cacheHead, d.cacheSect = d.currentCyl, head, sect
	}

	d.status = status
	d.signals.EmitStatusChanged("")
	d.host.IntReq(d.addr)
	return device.RegStatus
}

func (d *Disk) dmaOut(memAddr uint32) (failed bool) {
	for i := 0; i < block.Size; i++ {
		if _, failed := d.host.DMAWord(memAddr+uint32(i*block.WordLen), d.cache.Word(i), false); failed {
			return true
		}
	}
	return false
}

func (d *Disk) dmaIn(memAddr uint32) (failed bool) {
	for i := 0; i < block.Size; i++ {
		word, failed := d.host.DMAWord(memAddr+uint32(i*block.WordLen), 0, true)
		if failed {
			return true
		}
		d.cache.SetWord(i, word)
	}
	return false
}

var _ device.Device = (*Disk)(nil)
