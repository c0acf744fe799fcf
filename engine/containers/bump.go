package containers

import "sync/atomic"

// BumpAllocator hands out monotonically increasing offsets inside a fixed
// capacity. Allocation is safe for concurrent use; Reset is not.
type BumpAllocator struct {
	capacity uint32
	next     atomic.Uint32
}

func NewBumpAllocator(capacity uint32) *BumpAllocator {
	return &BumpAllocator{capacity: capacity}
}

// Allocate reserves size units and returns the first one. ok is false when the
// remaining space is too small; nothing is reserved in that case.
func (b *BumpAllocator) Allocate(size uint32) (offset uint32, ok bool) {
	for {
		cur := b.next.Load()
		end := uint64(cur) + uint64(size)
		if end > uint64(b.capacity) {
			return 0, false
		}
		if b.next.CompareAndSwap(cur, uint32(end)) {
			return cur, true
		}
	}
}

func (b *BumpAllocator) Reset() {
	b.next.Store(0)
}

func (b *BumpAllocator) Used() uint32 {
	return b.next.Load()
}

func (b *BumpAllocator) Capacity() uint32 {
	return b.capacity
}
