// Package flashparams parses the geometry/performance header of a flash
// device image file.
package flashparams

import (
	"os"

	"github.com/umps-sim/umps-core/block"
)

// FlashFileID is the magic tag stored in word 0 of a flash image file.
const FlashFileID uint32 = 0x464C4153 // "FLAS"

// CoreFileID is an optional magic tag some payloads begin with; when
// present it is skipped to preserve word alignment.
const CoreFileID uint32 = 0x434F5245 // "CORE"

const numParams = 2

// Bounds the image-producing tool enforces when writing a header.
const (
	MaxBlocks = 0xFFFFF
	MaxWTime  = 1_000_000
)

// Params holds the block count and average write time read from an
// image file header.
type Params struct {
	Blocks    uint32
	WTimeUs   uint32
}

// Load rewinds file, validates the magic tag, and reads the parameter
// block. It returns the data-region start offset in words; an offset of
// 0 signals a bad magic tag.
func Load(file *os.File) (p Params, wordOffset int, ok bool) {
	var blk block.Block
	if _, err := file.Seek(0, 0); err != nil {
		return Params{}, 0, false
	}
	if blk.Read(file, 0) || blk.Word(0) != FlashFileID {
		return Params{}, 0, false
	}

	p.Blocks = blk.Word(1)
	p.WTimeUs = blk.Word(2)

	if _, err := file.Seek(0, 0); err != nil {
		return Params{}, 0, false
	}
	return p, numParams + 1, true
}

// StripCoreTag reports how many words to skip at the start of a flash
// payload to preserve 4-byte alignment when it begins with the
// COREFILEID tag, e.g. when wrapping a raw core image.
func StripCoreTag(first uint32) int {
	if first == CoreFileID {
		return 1
	}
	return 0
}
