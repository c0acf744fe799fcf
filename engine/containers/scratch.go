package containers

import (
	"reflect"
	"sync"
)

// Scratch is a bump arena for transient per-call arrays. A Scratch belongs to
// one call at a time: acquire it at the top of the call and release it with
// defer so every exit path hands the memory back.
//
//	s := containers.AcquireScratch()
//	defer s.Release()
//	params := containers.Alloc[native.RootParameter](s, n)
//
// Slices returned by Alloc must not outlive Release.
type Scratch struct {
	arenas map[reflect.Type]resetter
}

type resetter interface {
	reset()
}

type typedArena[T any] struct {
	buf []T
	off int
}

func (a *typedArena[T]) reset() {
	clear(a.buf[:a.off])
	a.off = 0
}

const minScratchLen = 64

var scratchPool = sync.Pool{
	New: func() any {
		return &Scratch{arenas: make(map[reflect.Type]resetter)}
	},
}

func AcquireScratch() *Scratch {
	return scratchPool.Get().(*Scratch)
}

// Release resets every arena and returns the scratch to the pool.
func (s *Scratch) Release() {
	for _, a := range s.arenas {
		a.reset()
	}
	scratchPool.Put(s)
}

// Alloc returns a zeroed slice of n elements with len == cap == n.
func Alloc[T any](s *Scratch, n int) []T {
	key := reflect.TypeFor[T]()
	a, _ := s.arenas[key].(*typedArena[T])
	if a == nil {
		a = &typedArena[T]{}
		s.arenas[key] = a
	}
	if a.off+n > len(a.buf) {
		// earlier slices keep the old buffer alive until Release
		a.buf = make([]T, max(2*len(a.buf), a.off+n, minScratchLen))
		a.off = 0
	}
	out := a.buf[a.off : a.off+n : a.off+n]
	a.off += n
	return out
}
