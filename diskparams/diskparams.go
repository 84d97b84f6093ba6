// Package diskparams parses the geometry/performance header of a disk
// image file.
package diskparams

import (
	"os"

	"github.com/umps-sim/umps-core/block"
)

// DiskFileID is the magic tag stored in word 0 of a disk image file.
const DiskFileID uint32 = 0x4469736B // "Disk"

// Number of parameter words following the magic tag.
const numParams = 6

// Bounds the image-producing tool enforces when writing a header.
const (
	MaxCyl  = 0x7FFF
	MaxHead = 16
	MaxSect = 64

	MinRPM = 3600
	MaxRPM = 20000

	MinDataSect = 20
	MaxDataSect = 90
)

// Params holds the six geometry/performance values read from an image
// file header.
type Params struct {
	Cyl       uint32
	Head      uint32
	Sect      uint32
	RotTimeUs uint32
	SeekTimeUs uint32
	DataSectPercent uint32
}

// Load rewinds file, validates the magic tag, and reads the parameter
// block. It returns the data-region start offset in words; an offset of
// 0 signals a bad magic tag (the caller must treat the file as
// unopenable).
func Load(file *os.File) (p Params, wordOffset int, ok bool) {
	var blk block.Block
	if _, err := file.Seek(0, 0); err != nil {
		return Params{}, 0, false
	}
	if blk.Read(file, 0) || blk.Word(0) != DiskFileID {
		return Params{}, 0, false
	}

	p.Cyl = blk.Word(1)
	p.Head = blk.Word(2)
	p.Sect = blk.Word(3)
	p.RotTimeUs = blk.Word(4)
	p.SeekTimeUs = blk.Word(5)
	p.DataSectPercent = blk.Word(6)

	if _, err := file.Seek(0, 0); err != nil {
		return Params{}, 0, false
	}
	return p, numParams + 1, true
}
