package containers

import "sort"

// Range is a half-open span [Offset, Offset+Size).
type Range struct {
	Offset uint32
	Size   uint32
}

func (r Range) End() uint32 {
	return r.Offset + r.Size
}

// OffsetAllocator is a first-fit free-range allocator. Freed ranges are
// coalesced with their neighbours. Not safe for concurrent use.
type OffsetAllocator struct {
	capacity uint32
	used     uint32
	// sorted by Offset, never adjacent
	free []Range
}

func NewOffsetAllocator(capacity uint32) *OffsetAllocator {
	a := &OffsetAllocator{capacity: capacity}
	a.Reset()
	return a
}

// Allocate returns the lowest free offset with room for size units.
func (a *OffsetAllocator) Allocate(size uint32) (uint32, bool) {
	if size == 0 {
		return 0, false
	}
	for i, r := range a.free {
		if r.Size < size {
			continue
		}
		offset := r.Offset
		if r.Size == size {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = Range{Offset: r.Offset + size, Size: r.Size - size}
		}
		a.used += size
		return offset, true
	}
	return 0, false
}

// Free returns a previously allocated range.
func (a *OffsetAllocator) Free(offset, size uint32) {
	if size == 0 {
		return
	}
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].Offset > offset })
	r := Range{Offset: offset, Size: size}

	mergePrev := i > 0 && a.free[i-1].End() == r.Offset
	mergeNext := i < len(a.free) && r.End() == a.free[i].Offset
	switch {
	case mergePrev && mergeNext:
		a.free[i-1].Size += r.Size + a.free[i].Size
		a.free = append(a.free[:i], a.free[i+1:]...)
	case mergePrev:
		a.free[i-1].Size += r.Size
	case mergeNext:
		a.free[i] = Range{Offset: r.Offset, Size: r.Size + a.free[i].Size}
	default:
		a.free = append(a.free, Range{})
		copy(a.free[i+1:], a.free[i:])
		a.free[i] = r
	}
	a.used -= size
}

func (a *OffsetAllocator) Reset() {
	a.used = 0
	a.free = a.free[:0]
	if a.capacity > 0 {
		a.free = append(a.free, Range{Offset: 0, Size: a.capacity})
	}
}

func (a *OffsetAllocator) Used() uint32 {
	return a.used
}

func (a *OffsetAllocator) Capacity() uint32 {
	return a.capacity
}

// FreeRanges returns a copy of the current free list, lowest offset first.
func (a *OffsetAllocator) FreeRanges() []Range {
	return append([]Range(nil), a.free...)
}
