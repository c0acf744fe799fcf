//go:build windows && !(js && wasm)

// Package win32 implements the native device contract over Direct3D 12.
package win32

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/wgpu/hal/dx12/d3d12"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

var _ native.Device = (*Device)(nil)

// ErrForeignObject is returned when an object created by another backend is
// passed in.
var ErrForeignObject = errors.New("object does not belong to the d3d12 backend")

type Options struct {
	// Debug enables the D3D12 debug layer before the device is created.
	Debug bool
	// MinFeatureLevel defaults to 11_0.
	MinFeatureLevel d3d12.D3D_FEATURE_LEVEL
}

type Device struct {
	lib      *d3d12.D3D12Lib
	raw      *d3d12.ID3D12Device
	released atomic.Bool
}

// NewDevice loads d3d12.dll and creates a device on the default adapter.
func NewDevice(opts Options) (*Device, error) {
	lib, err := d3d12.LoadD3D12()
	if err != nil {
		return nil, errors.Wrap(err, "load d3d12")
	}
	if opts.Debug {
		if dbg, err := lib.GetDebugInterface(); err == nil {
			dbg.EnableDebugLayer()
			dbg.Release()
		}
	}
	level := opts.MinFeatureLevel
	if level == 0 {
		level = d3d12.D3D_FEATURE_LEVEL_11_0
	}
	raw, err := lib.CreateDevice(nil, level)
	if err != nil {
		return nil, errors.Wrapf(err, "create device at feature level %#x", uint32(level))
	}
	return &Device{lib: lib, raw: raw}, nil
}

func (d *Device) GetDescriptorHandleIncrementSize(heapType native.DescriptorHeapType) uint32 {
	return d.raw.GetDescriptorHandleIncrementSize(d3d12.D3D12_DESCRIPTOR_HEAP_TYPE(heapType))
}

func (d *Device) CreateDescriptorHeap(desc *native.DescriptorHeapDesc) (native.DescriptorHeap, error) {
	hd := d3d12.D3D12_DESCRIPTOR_HEAP_DESC{
		Type:           d3d12.D3D12_DESCRIPTOR_HEAP_TYPE(desc.Type),
		NumDescriptors: desc.NumDescriptors,
		Flags:          d3d12.D3D12_DESCRIPTOR_HEAP_FLAG_NONE,
	}
	if desc.ShaderVisible {
		hd.Flags = d3d12.D3D12_DESCRIPTOR_HEAP_FLAG_SHADER_VISIBLE
	}
	raw, err := d.raw.CreateDescriptorHeap(&hd)
	if err != nil {
		return nil, errors.Wrapf(err, "%s heap of %d descriptors", desc.Type, desc.NumDescriptors)
	}
	return &DescriptorHeap{raw: raw, desc: *desc}, nil
}

func (d *Device) CreateCommittedResource(heapType native.HeapType, desc *native.ResourceDesc, initialState native.ResourceStates) (native.Resource, error) {
	props := d3d12.D3D12_HEAP_PROPERTIES{
		Type:                 d3d12.D3D12_HEAP_TYPE(heapType),
		CPUPageProperty:      d3d12.D3D12_CPU_PAGE_PROPERTY_UNKNOWN,
		MemoryPoolPreference: d3d12.D3D12_MEMORY_POOL_UNKNOWN,
	}
	rd := resourceDesc(desc)
	raw, err := d.raw.CreateCommittedResource(&props, d3d12.D3D12_HEAP_FLAG_NONE, &rd,
		d3d12.D3D12_RESOURCE_STATES(initialState), nil)
	if err != nil {
		return nil, err
	}
	return &Resource{raw: raw, desc: *desc}, nil
}

func (d *Device) CreateCommandQueue(listType native.CommandListType) (native.CommandQueue, error) {
	raw, err := d.raw.CreateCommandQueue(&d3d12.D3D12_COMMAND_QUEUE_DESC{
		Type:     d3d12.D3D12_COMMAND_LIST_TYPE(listType),
		Priority: int32(d3d12.D3D12_COMMAND_QUEUE_PRIORITY_NORMAL),
		Flags:    d3d12.D3D12_COMMAND_QUEUE_FLAG_NONE,
	})
	if err != nil {
		return nil, err
	}
	return &CommandQueue{raw: raw}, nil
}

func (d *Device) Release() {
	if d.released.Swap(true) {
		return
	}
	d.raw.Release()
}

func resourceDesc(desc *native.ResourceDesc) d3d12.D3D12_RESOURCE_DESC {
	return d3d12.D3D12_RESOURCE_DESC{
		Dimension:        d3d12.D3D12_RESOURCE_DIMENSION(desc.Dimension),
		Alignment:        desc.Alignment,
		Width:            desc.Width,
		Height:           desc.Height,
		DepthOrArraySize: desc.DepthOrArraySize,
		MipLevels:        desc.MipLevels,
		Format:           d3d12.DXGI_FORMAT(desc.Format),
		SampleDesc:       d3d12.DXGI_SAMPLE_DESC{Count: desc.SampleDesc.Count, Quality: desc.SampleDesc.Quality},
		Layout:           d3d12.D3D12_TEXTURE_LAYOUT(desc.Layout),
		Flags:            d3d12.D3D12_RESOURCE_FLAGS(desc.Flags),
	}
}

type DescriptorHeap struct {
	raw  *d3d12.ID3D12DescriptorHeap
	desc native.DescriptorHeapDesc
}

func (h *DescriptorHeap) Desc() native.DescriptorHeapDesc {
	return h.desc
}

func (h *DescriptorHeap) CPUDescriptorHandleForHeapStart() native.CPUDescriptorHandle {
	return native.CPUDescriptorHandle{Ptr: h.raw.GetCPUDescriptorHandleForHeapStart().Ptr}
}

func (h *DescriptorHeap) GPUDescriptorHandleForHeapStart() native.GPUDescriptorHandle {
	if !h.desc.ShaderVisible {
		return native.GPUDescriptorHandle{}
	}
	return native.GPUDescriptorHandle{Ptr: h.raw.GetGPUDescriptorHandleForHeapStart().Ptr}
}

// Raw exposes the heap for SetDescriptorHeaps.
func (h *DescriptorHeap) Raw() *d3d12.ID3D12DescriptorHeap {
	return h.raw
}

func (h *DescriptorHeap) Release() {
	if h.raw != nil {
		h.raw.Release()
		h.raw = nil
	}
}

type Resource struct {
	raw  *d3d12.ID3D12Resource
	desc native.ResourceDesc
}

func (r *Resource) Desc() native.ResourceDesc {
	return r.desc
}

func (r *Resource) GPUVirtualAddress() uint64 {
	if r.desc.Dimension != native.ResourceDimensionBuffer {
		return 0
	}
	return r.raw.GetGPUVirtualAddress()
}

func (r *Resource) Raw() *d3d12.ID3D12Resource {
	return r.raw
}

func (r *Resource) Release() {
	if r.raw != nil {
		r.raw.Release()
		r.raw = nil
	}
}

func rawResource(r native.Resource) (*d3d12.ID3D12Resource, error) {
	if r == nil {
		return nil, nil
	}
	res, ok := r.(*Resource)
	if !ok {
		return nil, errors.Wrapf(ErrForeignObject, "resource %T", r)
	}
	return res.raw, nil
}
