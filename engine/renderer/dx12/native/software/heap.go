package software

import (
	"fmt"

	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

type DescriptorHeap struct {
	device    *Device
	desc      native.DescriptorHeapDesc
	increment uint32
	cpuStart  uintptr
	gpuStart  uint64
}

func (h *DescriptorHeap) Desc() native.DescriptorHeapDesc {
	return h.desc
}

func (h *DescriptorHeap) CPUDescriptorHandleForHeapStart() native.CPUDescriptorHandle {
	return native.CPUDescriptorHandle{Ptr: h.cpuStart}
}

func (h *DescriptorHeap) GPUDescriptorHandleForHeapStart() native.GPUDescriptorHandle {
	return native.GPUDescriptorHandle{Ptr: h.gpuStart}
}

func (h *DescriptorHeap) Release() {
	h.device.releaseHeap(h)
}

func (h *DescriptorHeap) contains(ptr uintptr) bool {
	end := h.cpuStart + uintptr(h.desc.NumDescriptors)*uintptr(h.increment)
	return ptr >= h.cpuStart && ptr < end && (ptr-h.cpuStart)%uintptr(h.increment) == 0
}

type ViewKind int

const (
	ViewKindNone ViewKind = iota
	ViewKindCBV
	ViewKindSRV
	ViewKindUAV
	ViewKindSampler
)

func (k ViewKind) String() string {
	switch k {
	case ViewKindCBV:
		return "CBV"
	case ViewKindSRV:
		return "SRV"
	case ViewKindUAV:
		return "UAV"
	case ViewKindSampler:
		return "Sampler"
	}
	return "None"
}

// View is the content of one descriptor slot.
type View struct {
	Kind     ViewKind
	Resource native.Resource
	CBV      native.ConstantBufferViewDesc
	SRV      native.ShaderResourceViewDesc
	UAV      native.UnorderedAccessViewDesc
	Sampler  native.SamplerDesc
}

func (d *Device) heapFor(ptr uintptr) *DescriptorHeap {
	for _, h := range d.heaps {
		if h.contains(ptr) {
			return h
		}
	}
	return nil
}

// writeView stores v at dest. Writing outside a live heap, or into a heap of
// the wrong type, corrupts memory on real hardware and panics here.
func (d *Device) writeView(dest native.CPUDescriptorHandle, v View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.heapFor(dest.Ptr)
	if h == nil {
		panic(fmt.Sprintf("software: descriptor handle %#x is not inside a live heap", dest.Ptr))
	}
	wantSampler := v.Kind == ViewKindSampler
	if wantSampler != (h.desc.Type == native.DescriptorHeapTypeSampler) {
		panic(fmt.Sprintf("software: %s descriptor written into a %s heap", v.Kind, h.desc.Type))
	}
	d.views[dest.Ptr] = v
}

// View returns the descriptor stored at the handle.
func (d *Device) View(h native.CPUDescriptorHandle) (View, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.views[h.Ptr]
	return v, ok
}

func (d *Device) CreateConstantBufferView(desc *native.ConstantBufferViewDesc, dest native.CPUDescriptorHandle) {
	if desc.SizeInBytes%native.ConstantBufferAlignment != 0 {
		panic(fmt.Sprintf("software: constant buffer view size %d is not 256 byte aligned", desc.SizeInBytes))
	}
	d.writeView(dest, View{Kind: ViewKindCBV, CBV: *desc})
}

func (d *Device) CreateShaderResourceView(resource native.Resource, desc *native.ShaderResourceViewDesc, dest native.CPUDescriptorHandle) {
	d.writeView(dest, View{Kind: ViewKindSRV, Resource: resource, SRV: *desc})
}

func (d *Device) CreateUnorderedAccessView(resource native.Resource, counter native.Resource, desc *native.UnorderedAccessViewDesc, dest native.CPUDescriptorHandle) {
	d.writeView(dest, View{Kind: ViewKindUAV, Resource: resource, UAV: *desc})
}

func (d *Device) CreateSampler(desc *native.SamplerDesc, dest native.CPUDescriptorHandle) {
	d.writeView(dest, View{Kind: ViewKindSampler, Sampler: *desc})
}

func (d *Device) CopyDescriptorsSimple(numDescriptors uint32, dest, src native.CPUDescriptorHandle, heapType native.DescriptorHeapType) {
	inc := increments[heapType]
	for i := uint32(0); i < numDescriptors; i++ {
		s := src.Offset(i, inc)
		v, ok := d.View(s)
		if !ok {
			panic(fmt.Sprintf("software: copy from empty descriptor %#x", s.Ptr))
		}
		d.writeView(dest.Offset(i, inc), v)
	}
}
