package device

// Timing and sizing constants shared across the device family.
const (
	// DMATicks is the fixed microtick cost of a single-block DMA
	// transfer.
	DMATicks uint32 = 30

	// PollNetTime is the microtick interval an ethernet device in
	// interrupt mode re-arms its poll at while idle.
	PollNetTime uint32 = 610

	// ReadRatio scales a flash device's write time into its (slower)
	// read time.
	ReadRatio uint32 = 2

	// PacketSize bounds a single ethernet frame DMA'd in one
	// WRITENET/READNET operation.
	PacketSize = 4096
)

// Interrupt line range the bus exposes: five lines, eight device slots
// each.
const (
	MinLine = 3
	MaxLine = 7
	NumLines = MaxLine - MinLine + 1

	MinDevNum = 0
	MaxDevNum = 7
	DevsPerLine = MaxDevNum - MinDevNum + 1
)
