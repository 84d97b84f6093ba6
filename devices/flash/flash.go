// Package flash implements the uMPS flash-memory device: a flat array
// of fixed-size blocks behind a single-block cache, with read latency
// derived from the image's configured write time. The on-disk image
// header is parsed by flashparams.
package flash

import (
	"fmt"
	"os"

	"github.com/umps-sim/umps-core/block"
	"github.com/umps-sim/umps-core/device"
	"github.com/umps-sim/umps-core/flashparams"
)

// Device-specific command codes, packed into bits [7:0] of COMMAND.
const (
	CmdReadBlk  uint32 = 2
	CmdWriteBlk uint32 = 3
)

// Device-specific status codes.
const (
	StatusReadErr  uint32 = 4
	StatusWriteErr uint32 = 5
	StatusDMAErr   uint32 = 6
)

const resetTicks = 400

// Flash is the uMPS flash device. COMMAND packs the 24-bit target
// block index into bits [31:8]; DATA0 is the physical
// memory address DMA'd to or from; DATA1 is a read-only block-count
// report set once at Open time.
type Flash struct {
	addr    device.Address
	host    device.Host
	signals *device.Signals
	working bool

	params     flashparams.Params
	file       *os.File
	dataOffset int64 // word offset of block 0 in the image file

	status uint32
	cmd    uint32
	data0  uint32

	cacheValid bool
	cacheBlock uint32
	cache      block.Block
}

// Open reads the flash image header from path and returns a ready
// flash device attached to addr.
func Open(addr device.Address, host device.Host, signals *device.Signals, path string) (*Flash, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	params, wordOffset, ok := flashparams.Load(f)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("flash: bad image header: %s", path)
	}
	fl := &Flash{
		addr:       addr,
		host:       host,
		signals:    signals,
		working:    true,
		params:     params,
		file:       f,
		dataOffset: int64(wordOffset),
		status:     device.StatusReady,
	}
	return fl, nil
}

// Close releases the backing image file.
func (fl *Flash) Close() error { return fl.file.Close() }

// SetWorking toggles the fault-injection mode.
func (fl *Flash) SetWorking(working bool) {
	if working != fl.working {
		fl.working = working
		fl.signals.EmitConditionChanged(working)
	}
}

func (fl *Flash) ReadRegister(index int) uint32 {
	switch index {
	case device.RegStatus:
		return fl.status
	case device.RegCmd:
		return fl.cmd
	case device.RegData0:
		return fl.data0
	case device.RegData1:
		return fl.params.Blocks
	default:
		panic("flash: register index out of range")
	}
}

func (fl *Flash) IsBusy() bool { return fl.status == device.StatusBusy }

func (fl *Flash) Input(string) {
	panic("flash: Input directed at a non-terminal device")
}

// WriteRegister implements device.Device. Only COMMAND and DATA0 are
// writable; DATA1 is a read-only block-count report.
func (fl *Flash) WriteRegister(index int, value uint32) {
	if fl.IsBusy() {
		return
	}
	switch index {
	case device.RegCmd:
		fl.cmd = value
		fl.dispatch(value)
	case device.RegData0:
		fl.data0 = value
	}
}

func (fl *Flash) dispatch(value uint32) {
	op := value & 0xFF
	blockIdx := value >> 8
	switch op {
	case device.CmdReset:
		fl.host.IntAck(fl.addr)
		fl.status = device.StatusBusy
		fl.host.Schedule(fl.addr, uint64(resetTicks*fl.host.ClockRate()), fl.CompleteOp)

	case device.CmdAck:
		fl.host.IntAck(fl.addr)
		fl.status = device.StatusReady

	case CmdReadBlk:
		fl.host.IntAck(fl.addr)
		if blockIdx >= fl.params.Blocks {
			fl.status = StatusReadErr
			fl.host.IntReq(fl.addr)
			fl.signals.EmitStatusChanged("")
			return
		}
		fl.status = device.StatusBusy
		fl.host.Schedule(fl.addr, fl.readLatency(blockIdx), fl.CompleteOp)

	case CmdWriteBlk:
		fl.host.IntAck(fl.addr)
		if blockIdx >= fl.params.Blocks {
			fl.status = StatusWriteErr
			fl.host.IntReq(fl.addr)
			fl.signals.EmitStatusChanged("")
			return
		}
		// DMA in from memory first (pre-write), mirroring the disk
		// device's WRITEBLK ordering.
		if failed := fl.dmaIn(fl.data0); failed {
			fl.status = StatusDMAErr
			fl.cacheValid = false
			fl.host.IntReq(fl.addr)
			fl.signals.EmitStatusChanged("")
			return
		}
		fl.status = device.StatusBusy
		fl.host.Schedule(fl.addr, uint64(fl.params.WTimeUs)*uint64(fl.host.ClockRate())+uint64(device.DMATicks), fl.CompleteOp)

	default:
		fl.status = device.StatusIllegalOpErr
		fl.host.IntReq(fl.addr)
	}
	fl.signals.EmitStatusChanged("")
}

// readLatency computes a READBLK's latency: a cache hit costs only the
// fixed DMA transfer; a miss costs write_time_μs scaled by ReadRatio,
// plus the DMA transfer.
func (fl *Flash) readLatency(blockIdx uint32) uint64 {
	if fl.cacheValid && fl.cacheBlock == blockIdx {
		return uint64(device.DMATicks)
	}
	rate := uint64(fl.host.ClockRate())
	return uint64(fl.params.WTimeUs)*uint64(device.ReadRatio)*rate + uint64(device.DMATicks)
}

// CompleteOp implements device.Device.
func (fl *Flash) CompleteOp() uint32 {
	op := fl.cmd & 0xFF
	blockIdx := fl.cmd >> 8

	if op == device.CmdReset {
		fl.status = device.StatusReady
		fl.cacheValid = false
		fl.signals.EmitStatusChanged("")
		fl.host.IntReq(fl.addr)
		return device.RegStatus
	}

	byteOffset := (fl.dataOffset + int64(blockIdx)*int64(block.Size)) * block.WordLen

	var status uint32
	switch op {
	case CmdReadBlk:
		if !fl.working {
			status = StatusReadErr
			fl.cacheValid = false
			break
		}
		if !fl.cacheValid || fl.cacheBlock != blockIdx {
			if fl.cache.Read(fl.file, byteOffset) {
				panic(fmt.Sprintf("flash %s: read failed at block %d", fl.addr, blockIdx))
			}
		}
		if failed := fl.dmaOut(fl.data0); failed {
			status = StatusDMAErr
			fl.cacheValid = false
		} else {
			status = device.StatusReady
			fl.cacheValid = true
			fl.cacheBlock = blockIdx
		}

	case CmdWriteBlk:
		if !fl.working {
			status = StatusWriteErr
			fl.cacheValid = false
			break
		}
		if fl.cache.Write(fl.file, byteOffset) {
			panic(fmt.Sprintf("flash %s: write failed at block %d", fl.addr, blockIdx))
		}
		status = device.StatusReady
		fl.cacheValid = true
		fl.cacheBlock = blockIdx
	}

	fl.status = status
	fl.signals.EmitStatusChanged("")
	fl.host.IntReq(fl.addr)
	return device.RegStatus
}

func (fl *Flash) dmaOut(memAddr uint32) (failed bool) {
	for i := 0; i < block.Size; i++ {
		if _, failed := fl.host.DMAWord(memAddr+uint32(i*block.WordLen), fl.cache.Word(i), false); failed {
			return true
		}
	}
	return false
}

func (fl *Flash) dmaIn(memAddr uint32) (failed bool) {
	for i := 0; i < block.Size; i++ {
		word, failed := fl.host.DMAWord(memAddr+uint32(i*block.WordLen), 0, true)
		if failed {
			return true
		}
		fl.cache.SetWord(i, word)
	}
	return false
}

var _ device.Device = (*Flash)(nil)
