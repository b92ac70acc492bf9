package sim

import "math/bits"

// slotBitmap tracks buffer slot occupancy, one bit per slot.
type slotBitmap struct {
	words []uint64
	size  int
}

func newSlotBitmap(size int) slotBitmap {
	return slotBitmap{words: make([]uint64, (size+63)/64), size: size}
}

func (b *slotBitmap) test(i int) bool {
	return b.words[i/64]&(uint64(1)<<(uint(i)%64)) != 0
}

// set marks slot i occupied and reports whether it was previously free.
func (b *slotBitmap) set(i int) bool {
	mask := uint64(1) << (uint(i) % 64)
	old := b.words[i/64]
	b.words[i/64] |= mask
	return old&mask == 0
}

// clear marks slot i free and reports whether it was previously occupied.
func (b *slotBitmap) clear(i int) bool {
	mask := uint64(1) << (uint(i) % 64)
	old := b.words[i/64]
	b.words[i/64] &^= mask
	return old&mask != 0
}

func (b *slotBitmap) count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}
