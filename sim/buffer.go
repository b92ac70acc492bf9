// Implements the Buffer, a fixed-capacity ring of request slots.
// Requests are admitted on arrival and extracted when a server frees up.

package sim

import (
	"fmt"
	"strings"
)

// Buffer is a bounded holding area with a rotating cursor.
//
// Insertion and extraction both scan slots in ring order starting at the cursor and
// leave the cursor just past the slot they touched, which spreads use across positions.
// On overflow the newest resident (largest GeneratedAt) is evicted, so the request that
// has waited longest is never displaced by a newer arrival.
type Buffer struct {
	slots    []*Request
	occupied slotBitmap
	count    int
	cursor   int
}

// NewBuffer creates an empty buffer. Panics if capacity < 1.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		panic(fmt.Sprintf("NewBuffer: capacity must be >= 1, got %d", capacity))
	}
	return &Buffer{
		slots:    make([]*Request, capacity),
		occupied: newSlotBitmap(capacity),
	}
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int { return len(b.slots) }

// Len returns the number of resident requests.
func (b *Buffer) Len() int { return b.count }

// Cursor returns the slot probed first by the next insertion or extraction scan.
func (b *Buffer) Cursor() int { return b.cursor }

// IsFull reports whether every slot is occupied.
func (b *Buffer) IsFull() bool { return b.count == len(b.slots) }

// IsEmpty reports whether no request is resident.
func (b *Buffer) IsEmpty() bool { return b.count == 0 }

// Admit places req into the buffer, evicting the newest resident if the buffer is full.
// The incoming request is always accepted; evicted is nil when no eviction was needed.
// The evicted request is marked rejected before it is returned.
func (b *Buffer) Admit(req *Request) (accepted bool, evicted *Request) {
	if b.IsFull() {
		evicted = b.evictNewest()
		evicted.markRejected()
	}
	req.markBuffered()
	b.insert(req)
	return true, evicted
}

// ExtractNext removes and returns the first resident found scanning from the cursor.
// Returns nil if the buffer is empty.
func (b *Buffer) ExtractNext() *Request {
	if b.IsEmpty() {
		return nil
	}
	n := len(b.slots)
	for i := 0; i < n; i++ {
		idx := (b.cursor + i) % n
		if b.occupied.test(idx) {
			req := b.vacate(idx)
			b.cursor = (idx + 1) % n
			return req
		}
	}
	panic(fmt.Sprintf("Buffer.ExtractNext: count=%d but no occupied slot found", b.count))
}

// Withdraw removes req from whichever slot holds it without moving the cursor.
// Used when an arriving request is dispatched straight to a free server.
// Returns false if req is not resident.
func (b *Buffer) Withdraw(req *Request) bool {
	for idx, r := range b.slots {
		if r == req && b.occupied.test(idx) {
			b.vacate(idx)
			return true
		}
	}
	return false
}

// evictNewest removes the resident with the strictly greatest GeneratedAt.
// Ties keep the lowest slot index. The cursor is left untouched.
func (b *Buffer) evictNewest() *Request {
	pos := -1
	for idx, r := range b.slots {
		if !b.occupied.test(idx) {
			continue
		}
		if pos == -1 || r.GeneratedAt > b.slots[pos].GeneratedAt {
			pos = idx
		}
	}
	if pos == -1 {
		panic(fmt.Sprintf("Buffer.evictNewest: count=%d but no resident found", b.count))
	}
	return b.vacate(pos)
}

func (b *Buffer) insert(req *Request) {
	n := len(b.slots)
	for i := 0; i < n; i++ {
		idx := (b.cursor + i) % n
		if !b.occupied.test(idx) {
			b.slots[idx] = req
			b.occupied.set(idx)
			b.count++
			b.cursor = (idx + 1) % n
			b.checkCount()
			return
		}
	}
	panic(fmt.Sprintf("Buffer.insert: no free slot (count=%d, capacity=%d)", b.count, n))
}

func (b *Buffer) vacate(idx int) *Request {
	if !b.occupied.clear(idx) {
		panic(fmt.Sprintf("Buffer.vacate: slot %d is not occupied", idx))
	}
	req := b.slots[idx]
	b.slots[idx] = nil
	b.count--
	b.checkCount()
	return req
}

func (b *Buffer) checkCount() {
	if b.count < 0 || b.count > len(b.slots) || b.count != b.occupied.count() {
		panic(fmt.Sprintf("Buffer: bookkeeping inconsistent (count=%d, occupied=%d, capacity=%d)",
			b.count, b.occupied.count(), len(b.slots)))
	}
}

func (b *Buffer) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for idx, r := range b.slots {
		if idx > 0 {
			sb.WriteString(" ")
		}
		if idx == b.cursor {
			sb.WriteString(">")
		}
		if b.occupied.test(idx) {
			sb.WriteString(r.Key())
		} else {
			sb.WriteString("_")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
