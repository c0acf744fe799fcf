// Package software is an in-memory native device. It validates descriptions
// the way the driver runtime does, records every descriptor written so tests
// can read it back, and completes queue work immediately unless suspended.
package software

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

const (
	maxShaderVisibleViews    = 1_000_000
	maxShaderVisibleSamplers = 2048
	maxStaticSamplers        = 2032

	cpuAddressBase uintptr = 0x10_0000
	gpuHandleBase  uint64  = 0x1_0000_0000
	gpuVABase      uint64  = 0x100_0000_0000
	heapGuardBytes uintptr = 0x1000
	resourceAlign  uint64  = 64 * 1024
)

var _ native.Device = (*Device)(nil)

var increments = map[native.DescriptorHeapType]uint32{
	native.DescriptorHeapTypeCbvSrvUav: 32,
	native.DescriptorHeapTypeSampler:   16,
	native.DescriptorHeapTypeRtv:       32,
	native.DescriptorHeapTypeDsv:       8,
}

type Device struct {
	nextCPU atomic.Uintptr
	nextGPU atomic.Uint64
	nextVA  atomic.Uint64

	mu    sync.RWMutex
	heaps []*DescriptorHeap
	views map[uintptr]View

	openEvents atomic.Int64
	released   atomic.Bool
}

func NewDevice() *Device {
	d := &Device{views: make(map[uintptr]View)}
	d.nextCPU.Store(cpuAddressBase)
	d.nextGPU.Store(gpuHandleBase)
	d.nextVA.Store(gpuVABase)
	return d
}

func (d *Device) GetDescriptorHandleIncrementSize(heapType native.DescriptorHeapType) uint32 {
	return increments[heapType]
}

func (d *Device) CreateDescriptorHeap(desc *native.DescriptorHeapDesc) (native.DescriptorHeap, error) {
	inc, ok := increments[desc.Type]
	if !ok || desc.NumDescriptors == 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "descriptor heap %s with %d descriptors", desc.Type, desc.NumDescriptors)
	}
	if desc.ShaderVisible {
		switch desc.Type {
		case native.DescriptorHeapTypeCbvSrvUav:
			if desc.NumDescriptors > maxShaderVisibleViews {
				return nil, errors.Wrapf(ErrOutOfMemory, "%d shader visible views", desc.NumDescriptors)
			}
		case native.DescriptorHeapTypeSampler:
			if desc.NumDescriptors > maxShaderVisibleSamplers {
				return nil, errors.Wrapf(ErrOutOfMemory, "%d shader visible samplers", desc.NumDescriptors)
			}
		default:
			return nil, errors.Wrapf(ErrInvalidArgument, "%s heaps cannot be shader visible", desc.Type)
		}
	}

	size := uintptr(desc.NumDescriptors) * uintptr(inc)
	h := &DescriptorHeap{device: d, desc: *desc, increment: inc}
	h.cpuStart = d.nextCPU.Add(size+heapGuardBytes) - size - heapGuardBytes
	if desc.ShaderVisible {
		h.gpuStart = d.nextGPU.Add(uint64(size)+uint64(heapGuardBytes)) - uint64(size) - uint64(heapGuardBytes)
	}

	d.mu.Lock()
	d.heaps = append(d.heaps, h)
	d.mu.Unlock()
	return h, nil
}

func (d *Device) CreateCommittedResource(heapType native.HeapType, desc *native.ResourceDesc, initialState native.ResourceStates) (native.Resource, error) {
	if desc.Width == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "resource width is zero")
	}
	r := &Resource{desc: *desc, heapType: heapType, state: initialState}
	switch desc.Dimension {
	case native.ResourceDimensionBuffer:
		if desc.Height > 1 || desc.Format != native.FormatUnknown {
			return nil, errors.Wrap(ErrInvalidArgument, "buffers are one dimensional and typeless")
		}
		size := (desc.Width + resourceAlign - 1) &^ (resourceAlign - 1)
		r.va = d.nextVA.Add(size) - size
	case native.ResourceDimensionTexture2D:
		if desc.Height == 0 || desc.Format == native.FormatUnknown {
			return nil, errors.Wrap(ErrInvalidArgument, "texture needs a height and a format")
		}
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "resource dimension %d", desc.Dimension)
	}
	return r, nil
}

func (d *Device) CreateCommandQueue(listType native.CommandListType) (native.CommandQueue, error) {
	switch listType {
	case native.CommandListTypeDirect, native.CommandListTypeCompute, native.CommandListTypeCopy:
		return &CommandQueue{listType: listType}, nil
	}
	return nil, errors.Wrapf(ErrInvalidArgument, "command list type %d", listType)
}

func (d *Device) Release() {
	d.released.Store(true)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.heaps = nil
	clear(d.views)
}

// HeapCount reports how many descriptor heaps are alive.
func (d *Device) HeapCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.heaps)
}

func (d *Device) releaseHeap(h *DescriptorHeap) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, other := range d.heaps {
		if other == h {
			d.heaps = append(d.heaps[:i], d.heaps[i+1:]...)
			break
		}
	}
	end := h.cpuStart + uintptr(h.desc.NumDescriptors)*uintptr(h.increment)
	for ptr := range d.views {
		if ptr >= h.cpuStart && ptr < end {
			delete(d.views, ptr)
		}
	}
}
