package bus

// FlatMemory is a simple in-process Memory backed by a byte-addressed
// word array, sized to hold addresses up to size-1. It is the fixture
// used by bus and device tests; a real CPU core's memory model would
// implement Memory directly.
type FlatMemory struct {
	words []uint32
}

// NewFlatMemory returns a zeroed FlatMemory spanning sizeBytes bytes,
// rounded up to a whole number of words.
func NewFlatMemory(sizeBytes uint32) *FlatMemory {
	return &FlatMemory{words: make([]uint32, (sizeBytes+3)/4)}
}

func (m *FlatMemory) ReadWord(physAddr uint32) (uint32, bool) {
	idx := physAddr / 4
	if idx >= uint32(len(m.words)) {
		return 0, true
	}
	return m.words[idx], false
}

func (m *FlatMemory) WriteWord(physAddr uint32, data uint32) bool {
	idx := physAddr / 4
	if idx >= uint32(len(m.words)) {
		return true
	}
	m.words[idx] = data
	return false
}

var _ Memory = (*FlatMemory)(nil)
