package dx12

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/containers"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

// descriptorHeap is one native heap carved into chunks. The native heap is
// read-mostly; only the range allocator is locked.
type descriptorHeap struct {
	heapType  native.DescriptorHeapType
	native    native.DescriptorHeap
	increment uint32
	cpuStart  native.CPUDescriptorHandle
	gpuStart  native.GPUDescriptorHandle

	mu    sync.Mutex
	alloc *containers.OffsetAllocator
}

func newDescriptorHeap(dev native.Device, heapType native.DescriptorHeapType, count uint32, shaderVisible bool) (*descriptorHeap, error) {
	nh, err := dev.CreateDescriptorHeap(&native.DescriptorHeapDesc{
		Type:           heapType,
		NumDescriptors: count,
		ShaderVisible:  shaderVisible,
	})
	if err != nil {
		return nil, platformError(ErrDescriptorHeapCreate, err, "%s heap with %d descriptors", heapType, count)
	}
	return &descriptorHeap{
		heapType:  heapType,
		native:    nh,
		increment: dev.GetDescriptorHandleIncrementSize(heapType),
		cpuStart:  nh.CPUDescriptorHandleForHeapStart(),
		gpuStart:  nh.GPUDescriptorHandleForHeapStart(),
		alloc:     containers.NewOffsetAllocator(count),
	}, nil
}

func (h *descriptorHeap) allocate(count uint32) (*DescriptorChunk, error) {
	h.mu.Lock()
	offset, ok := h.alloc.Allocate(count)
	h.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(ErrOutOfDescriptorHeapSpace, "%d %s descriptors requested, %d of %d in use",
			count, h.heapType, h.used(), h.alloc.Capacity())
	}
	return &DescriptorChunk{
		heap:   h,
		offset: offset,
		count:  count,
		cpu:    h.cpuStart.Offset(offset, h.increment),
		gpu:    h.gpuStart.Offset(offset, h.increment),
	}, nil
}

func (h *descriptorHeap) free(offset, count uint32) {
	h.mu.Lock()
	h.alloc.Free(offset, count)
	h.mu.Unlock()
}

func (h *descriptorHeap) used() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alloc.Used()
}

// DescriptorChunk is a contiguous run of descriptors inside a heap. It is
// owned by exactly one pool, arena or view and released with its owner.
type DescriptorChunk struct {
	heap   *descriptorHeap
	offset uint32
	count  uint32
	cpu    native.CPUDescriptorHandle
	gpu    native.GPUDescriptorHandle
}

func (c *DescriptorChunk) Len() uint32 {
	return c.count
}

func (c *DescriptorChunk) Increment() uint32 {
	return c.heap.increment
}

// Handles returns the handle pair of the descriptor at index.
func (c *DescriptorChunk) Handles(index uint32) (native.CPUDescriptorHandle, native.GPUDescriptorHandle) {
	return c.cpu.Offset(index, c.heap.increment), c.gpu.Offset(index, c.heap.increment)
}

func (c *DescriptorChunk) Release() {
	if c.heap == nil {
		return
	}
	c.heap.free(c.offset, c.count)
	c.heap = nil
}

// DescriptorHeapManager owns the fixed-size heaps of a device: the
// shader-visible view and sampler heaps and a CPU-only staging heap for views
// that are copied into sets later.
type DescriptorHeapManager struct {
	resources *descriptorHeap
	samplers  *descriptorHeap
	staging   *descriptorHeap
}

func newDescriptorHeapManager(dev native.Device, cfg core.HeapConfig) (*DescriptorHeapManager, error) {
	resources, err := newDescriptorHeap(dev, native.DescriptorHeapTypeCbvSrvUav, cfg.ResourceDescriptors, true)
	if err != nil {
		return nil, err
	}
	samplers, err := newDescriptorHeap(dev, native.DescriptorHeapTypeSampler, cfg.SamplerDescriptors, true)
	if err != nil {
		resources.native.Release()
		return nil, err
	}
	staging, err := newDescriptorHeap(dev, native.DescriptorHeapTypeCbvSrvUav, cfg.StagingDescriptors, false)
	if err != nil {
		resources.native.Release()
		samplers.native.Release()
		return nil, err
	}
	core.LogDebug("descriptor heaps created: %d views, %d samplers, %d staging",
		cfg.ResourceDescriptors, cfg.SamplerDescriptors, cfg.StagingDescriptors)
	return &DescriptorHeapManager{resources: resources, samplers: samplers, staging: staging}, nil
}

// AllocateResources reserves count contiguous shader-visible view descriptors.
func (m *DescriptorHeapManager) AllocateResources(count uint32) (*DescriptorChunk, error) {
	return m.resources.allocate(count)
}

func (m *DescriptorHeapManager) AllocateSamplers(count uint32) (*DescriptorChunk, error) {
	return m.samplers.allocate(count)
}

func (m *DescriptorHeapManager) AllocateStaging(count uint32) (*DescriptorChunk, error) {
	return m.staging.allocate(count)
}

// ResourcesInUse reports how many shader-visible view descriptors are reserved.
func (m *DescriptorHeapManager) ResourcesInUse() uint32 {
	return m.resources.used()
}

func (m *DescriptorHeapManager) SamplersInUse() uint32 {
	return m.samplers.used()
}

func (m *DescriptorHeapManager) StagingInUse() uint32 {
	return m.staging.used()
}

func (m *DescriptorHeapManager) ResourceIncrement() uint32 {
	return m.resources.increment
}

func (m *DescriptorHeapManager) SamplerIncrement() uint32 {
	return m.samplers.increment
}

// ShaderVisibleHeaps returns the heaps a command list binds.
func (m *DescriptorHeapManager) ShaderVisibleHeaps() [2]native.DescriptorHeap {
	return [2]native.DescriptorHeap{m.resources.native, m.samplers.native}
}

func (m *DescriptorHeapManager) destroy() {
	for _, h := range []*descriptorHeap{m.resources, m.samplers, m.staging} {
		if h != nil && h.native != nil {
			h.native.Release()
			h.native = nil
		}
	}
}
