package dx12

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-dx12/engine/containers"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

type ArenaKind int

const (
	// ArenaDefault picks the kind named in the device configuration.
	ArenaDefault ArenaKind = iota
	// ArenaLinear bump-allocates sets. Sets are only released together by
	// Reset or Destroy.
	ArenaLinear
	// ArenaHeap sub-allocates with a free-range allocator and supports
	// freeing individual sets.
	ArenaHeap
)

func (k ArenaKind) String() string {
	switch k {
	case ArenaLinear:
		return "linear"
	case ArenaHeap:
		return "heap"
	}
	return "default"
}

func parseArenaKind(s string) ArenaKind {
	if s == "heap" {
		return ArenaHeap
	}
	return ArenaLinear
}

// DefaultDescriptorsPerSet sizes an arena when NumDescriptors is left zero.
const DefaultDescriptorsPerSet = 16

type DescriptorArenaDesc struct {
	Label   string
	Kind    ArenaKind
	NumSets uint32
	// NumDescriptors is the view descriptor capacity shared by all sets.
	// Zero means NumSets * DefaultDescriptorsPerSet.
	NumDescriptors uint32
}

// DescriptorArena allocates sets of any layout out of one chunk.
//
// A linear arena may be allocated from concurrently; Reset and Destroy must
// not race with allocation. A heap arena is not safe for concurrent use.
type DescriptorArena struct {
	id    uuid.UUID
	label string
	kind  ArenaKind
	chunk *DescriptorChunk

	maxSets uint32

	// linear
	bump    *containers.BumpAllocator
	numSets atomic.Uint32
	mu      sync.Mutex
	sets    []*DescriptorSet

	// heap
	ranges *containers.OffsetAllocator
	live   map[uuid.UUID]*DescriptorSet
}

func newDescriptorArena(heaps *DescriptorHeapManager, desc *DescriptorArenaDesc, defaultKind ArenaKind) (*DescriptorArena, error) {
	if desc.NumSets == 0 {
		return nil, errors.Wrapf(ErrInvalidArenaDesc, "arena %q has no sets", desc.Label)
	}
	kind := desc.Kind
	if kind == ArenaDefault {
		kind = defaultKind
	}
	if kind != ArenaLinear && kind != ArenaHeap {
		return nil, errors.Wrapf(ErrInvalidArenaDesc, "arena %q has unknown kind %d", desc.Label, kind)
	}
	capacity := desc.NumDescriptors
	if capacity == 0 {
		total := uint64(desc.NumSets) * uint64(DefaultDescriptorsPerSet)
		if total > uint64(^uint32(0)) {
			return nil, errors.Wrapf(ErrOutOfDescriptorHeapSpace, "arena %q needs %d descriptors", desc.Label, total)
		}
		capacity = uint32(total)
	}
	chunk, err := heaps.AllocateResources(capacity)
	if err != nil {
		return nil, errors.Wrapf(err, "descriptor arena %q", desc.Label)
	}

	a := &DescriptorArena{
		id:      uuid.New(),
		label:   desc.Label,
		kind:    kind,
		chunk:   chunk,
		maxSets: desc.NumSets,
	}
	switch kind {
	case ArenaLinear:
		a.bump = containers.NewBumpAllocator(capacity)
	case ArenaHeap:
		a.ranges = containers.NewOffsetAllocator(capacity)
		a.live = make(map[uuid.UUID]*DescriptorSet)
	}
	core.LogDebug("descriptor arena %q created: %s, %d sets, %d descriptors", desc.Label, kind, desc.NumSets, capacity)
	return a, nil
}

func (a *DescriptorArena) ID() uuid.UUID {
	return a.id
}

func (a *DescriptorArena) Kind() ArenaKind {
	return a.kind
}

// Allocate places a set of layout in the arena.
func (a *DescriptorArena) Allocate(layout *DescriptorSetLayout) (*DescriptorSet, error) {
	if a.chunk == nil {
		return nil, errors.Wrapf(core.ErrAlreadyDestroyed, "descriptor arena %q", a.label)
	}
	if a.kind == ArenaLinear {
		return a.allocateLinear(layout)
	}
	return a.allocateHeap(layout)
}

func (a *DescriptorArena) allocateLinear(layout *DescriptorSetLayout) (*DescriptorSet, error) {
	if n := a.numSets.Add(1); n > a.maxSets {
		a.numSets.Add(^uint32(0))
		return nil, errors.Wrapf(ErrDescriptorPoolExhausted, "arena %q holds %d sets", a.label, a.maxSets)
	}
	offset, ok := a.bump.Allocate(layout.resourceNum)
	if !ok {
		a.numSets.Add(^uint32(0))
		return nil, errors.Wrapf(ErrDescriptorPoolExhausted, "arena %q: %d of %d descriptors used",
			a.label, a.bump.Used(), a.bump.Capacity())
	}
	s := a.newSet(layout, offset)
	a.mu.Lock()
	a.sets = append(a.sets, s)
	a.mu.Unlock()
	return s, nil
}

func (a *DescriptorArena) allocateHeap(layout *DescriptorSetLayout) (*DescriptorSet, error) {
	if uint32(len(a.live)) >= a.maxSets {
		return nil, errors.Wrapf(ErrDescriptorPoolExhausted, "arena %q holds %d sets", a.label, a.maxSets)
	}
	var offset uint32
	if layout.resourceNum > 0 {
		var ok bool
		if offset, ok = a.ranges.Allocate(layout.resourceNum); !ok {
			return nil, errors.Wrapf(ErrDescriptorPoolExhausted, "arena %q: no free run of %d descriptors",
				a.label, layout.resourceNum)
		}
	}
	s := a.newSet(layout, offset)
	a.live[s.id] = s
	return s, nil
}

func (a *DescriptorArena) newSet(layout *DescriptorSetLayout, offset uint32) *DescriptorSet {
	s := &DescriptorSet{
		id:                     uuid.New(),
		layout:                 layout,
		offset:                 offset,
		increment:              a.chunk.Increment(),
		DynamicConstantBuffers: make([]uint64, layout.NumDynamicBuffers()),
		Samplers:               make([]native.GPUDescriptorHandle, layout.NumSamplerTables()),
	}
	s.cpu, s.gpu = a.chunk.Handles(offset)
	return s
}

// Free releases one set of a heap arena. Linear arenas only release sets in
// bulk.
func (a *DescriptorArena) Free(set *DescriptorSet) error {
	if a.kind == ArenaLinear {
		return errors.Wrapf(core.ErrUnimplemented, "arena %q is linear, sets are released by Reset", a.label)
	}
	if _, ok := a.live[set.id]; !ok {
		return errors.Newf("descriptor set %s is not live in arena %q", set.id, a.label)
	}
	delete(a.live, set.id)
	if n := set.layout.resourceNum; n > 0 {
		a.ranges.Free(set.offset, n)
	}
	set.clearBindings()
	return nil
}

// LiveSets returns the identifiers of the sets currently allocated.
func (a *DescriptorArena) LiveSets() []uuid.UUID {
	if a.kind == ArenaLinear {
		a.mu.Lock()
		defer a.mu.Unlock()
		ids := make([]uuid.UUID, len(a.sets))
		for i, s := range a.sets {
			ids[i] = s.id
		}
		return ids
	}
	ids := make([]uuid.UUID, 0, len(a.live))
	for id := range a.live {
		ids = append(ids, id)
	}
	return ids
}

// Used reports how many descriptors of the arena's chunk are reserved.
func (a *DescriptorArena) Used() uint32 {
	if a.kind == ArenaLinear {
		return a.bump.Used()
	}
	return a.ranges.Used()
}

// Reset releases every set at once.
func (a *DescriptorArena) Reset() {
	if a.kind == ArenaLinear {
		a.bump.Reset()
		a.numSets.Store(0)
		a.mu.Lock()
		a.sets = a.sets[:0]
		a.mu.Unlock()
		return
	}
	a.ranges.Reset()
	clear(a.live)
}

func (a *DescriptorArena) Destroy() {
	if a.chunk == nil {
		return
	}
	a.Reset()
	a.chunk.Release()
	a.chunk = nil
}
