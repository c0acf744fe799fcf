package dx12

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-dx12/engine/containers"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

type DescriptorPoolDesc struct {
	Label   string
	Layout  *DescriptorSetLayout
	NumSets uint32
}

// DescriptorPool hands out sets of a single layout from one chunk reserved
// up front. Freed slots go back on a free list and are reused; every
// allocation gets its own handle, so a stale handle cannot free the slot's
// next owner. A pool is not safe for concurrent use.
type DescriptorPool struct {
	id     uuid.UUID
	label  string
	layout *DescriptorSetLayout
	chunk  *DescriptorChunk

	sets     []DescriptorSet
	owners   []uuid.UUID
	freeList *containers.RingQueue[uint32]

	dynamicBuffers []uint64
	samplers       []native.GPUDescriptorHandle
}

func newDescriptorPool(heaps *DescriptorHeapManager, desc *DescriptorPoolDesc) (*DescriptorPool, error) {
	if desc.Layout == nil || desc.NumSets == 0 {
		return nil, errors.Newf("descriptor pool %q needs a layout and at least one set", desc.Label)
	}
	l := desc.Layout
	p := &DescriptorPool{
		id:       uuid.New(),
		label:    desc.Label,
		layout:   l,
		sets:     make([]DescriptorSet, desc.NumSets),
		owners:   make([]uuid.UUID, desc.NumSets),
		freeList: containers.NewRingQueue[uint32](int(desc.NumSets)),
		// per-set arrays are carved out of two backing slices
		dynamicBuffers: make([]uint64, int(desc.NumSets)*l.NumDynamicBuffers()),
		samplers:       make([]native.GPUDescriptorHandle, int(desc.NumSets)*l.NumSamplerTables()),
	}
	if total := uint64(desc.NumSets) * uint64(l.resourceNum); total > 0 {
		if total > uint64(^uint32(0)) {
			return nil, errors.Wrapf(ErrOutOfDescriptorHeapSpace, "pool %q needs %d descriptors", desc.Label, total)
		}
		chunk, err := heaps.AllocateResources(uint32(total))
		if err != nil {
			return nil, errors.Wrapf(err, "descriptor pool %q", desc.Label)
		}
		p.chunk = chunk
	}

	nd, ns := l.NumDynamicBuffers(), l.NumSamplerTables()
	for i := range p.sets {
		s := &p.sets[i]
		s.layout = l
		s.slot = uint32(i)
		s.offset = uint32(i) * l.resourceNum
		if p.chunk != nil {
			s.cpu, s.gpu = p.chunk.Handles(s.offset)
			s.increment = p.chunk.Increment()
		}
		s.DynamicConstantBuffers = p.dynamicBuffers[i*nd : (i+1)*nd : (i+1)*nd]
		s.Samplers = p.samplers[i*ns : (i+1)*ns : (i+1)*ns]
		_ = p.freeList.Enqueue(uint32(i))
	}
	core.LogDebug("descriptor pool %q created: %d sets of %d descriptors", desc.Label, desc.NumSets, l.resourceNum)
	return p, nil
}

func (p *DescriptorPool) ID() uuid.UUID {
	return p.id
}

func (p *DescriptorPool) Layout() *DescriptorSetLayout {
	return p.layout
}

// Available reports how many sets can still be allocated.
func (p *DescriptorPool) Available() int {
	return p.freeList.Len()
}

func (p *DescriptorPool) Allocate() (*DescriptorSet, error) {
	slot, err := p.freeList.Dequeue()
	if err != nil {
		return nil, errors.Wrapf(ErrDescriptorPoolExhausted, "pool %q holds %d sets", p.label, len(p.sets))
	}
	s := p.sets[slot]
	s.id = uuid.New()
	p.owners[slot] = s.id
	return &s, nil
}

// Free returns set to the pool. Its descriptors are left as they are and are
// overwritten by the next owner.
func (p *DescriptorPool) Free(set *DescriptorSet) error {
	slot := set.slot
	if int(slot) >= len(p.sets) || set.id == uuid.Nil || p.owners[slot] != set.id {
		return errors.Newf("descriptor set %s is not allocated from pool %q", set.id, p.label)
	}
	p.owners[slot] = uuid.Nil
	set.clearBindings()
	return p.freeList.Enqueue(slot)
}

// Reset returns every set to the pool.
func (p *DescriptorPool) Reset() {
	p.freeList.Reset()
	for i := range p.sets {
		p.owners[i] = uuid.Nil
		p.sets[i].clearBindings()
		_ = p.freeList.Enqueue(uint32(i))
	}
}

func (p *DescriptorPool) Destroy() {
	if p.chunk != nil {
		p.chunk.Release()
		p.chunk = nil
	}
	p.freeList.Reset()
}
