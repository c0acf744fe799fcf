//go:build windows && !(js && wasm)

package win32

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/gogpu/wgpu/hal/dx12/d3d12"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

var le = binary.LittleEndian

// uavDesc is D3D12_UNORDERED_ACCESS_VIEW_DESC with a union wide enough for
// D3D12_BUFFER_UAV, which the bindings truncate.
type uavDesc struct {
	Format        d3d12.DXGI_FORMAT
	ViewDimension d3d12.D3D12_UAV_DIMENSION
	Union         [32]byte
}

func cpuHandle(h native.CPUDescriptorHandle) d3d12.D3D12_CPU_DESCRIPTOR_HANDLE {
	return d3d12.D3D12_CPU_DESCRIPTOR_HANDLE{Ptr: h.Ptr}
}

// View creation has no error return in the native API; a foreign resource is a
// programming error.
func mustResource(r native.Resource) *d3d12.ID3D12Resource {
	raw, err := rawResource(r)
	if err != nil {
		panic(err)
	}
	return raw
}

func (d *Device) CreateConstantBufferView(desc *native.ConstantBufferViewDesc, dest native.CPUDescriptorHandle) {
	d.raw.CreateConstantBufferView(&d3d12.D3D12_CONSTANT_BUFFER_VIEW_DESC{
		BufferLocation: desc.BufferLocation,
		SizeInBytes:    desc.SizeInBytes,
	}, cpuHandle(dest))
}

func (d *Device) CreateShaderResourceView(resource native.Resource, desc *native.ShaderResourceViewDesc, dest native.CPUDescriptorHandle) {
	sd := d3d12.D3D12_SHADER_RESOURCE_VIEW_DESC{
		Format:                  d3d12.DXGI_FORMAT(desc.Format),
		ViewDimension:           d3d12.D3D12_SRV_DIMENSION(desc.ViewDimension),
		Shader4ComponentMapping: desc.Shader4ComponentMapping,
	}
	u := sd.Union[:]
	switch desc.ViewDimension {
	case native.SRVDimensionBuffer:
		le.PutUint64(u[0:], desc.Buffer.FirstElement)
		le.PutUint32(u[8:], desc.Buffer.NumElements)
		le.PutUint32(u[12:], desc.Buffer.StructureByteStride)
		le.PutUint32(u[16:], uint32(desc.Buffer.Flags))
	case native.SRVDimensionTexture2D:
		le.PutUint32(u[0:], desc.Texture.MostDetailedMip)
		le.PutUint32(u[4:], desc.Texture.MipLevels)
		le.PutUint32(u[8:], desc.Texture.PlaneSlice)
		le.PutUint32(u[12:], math.Float32bits(desc.Texture.ResourceMinLODClamp))
	case native.SRVDimensionTexture2DArray:
		le.PutUint32(u[0:], desc.Texture.MostDetailedMip)
		le.PutUint32(u[4:], desc.Texture.MipLevels)
		le.PutUint32(u[8:], desc.Texture.FirstArraySlice)
		le.PutUint32(u[12:], desc.Texture.ArraySize)
		le.PutUint32(u[16:], desc.Texture.PlaneSlice)
		le.PutUint32(u[20:], math.Float32bits(desc.Texture.ResourceMinLODClamp))
	}
	d.raw.CreateShaderResourceView(mustResource(resource), &sd, cpuHandle(dest))
}

func (d *Device) CreateUnorderedAccessView(resource, counter native.Resource, desc *native.UnorderedAccessViewDesc, dest native.CPUDescriptorHandle) {
	ud := uavDesc{
		Format:        d3d12.DXGI_FORMAT(desc.Format),
		ViewDimension: d3d12.D3D12_UAV_DIMENSION(desc.ViewDimension),
	}
	u := ud.Union[:]
	switch desc.ViewDimension {
	case native.UAVDimensionBuffer:
		le.PutUint64(u[0:], desc.Buffer.FirstElement)
		le.PutUint32(u[8:], desc.Buffer.NumElements)
		le.PutUint32(u[12:], desc.Buffer.StructureByteStride)
		le.PutUint64(u[16:], desc.Buffer.CounterOffsetInBytes)
		le.PutUint32(u[24:], uint32(desc.Buffer.Flags))
	case native.UAVDimensionTexture2D:
		le.PutUint32(u[0:], desc.Texture.MipSlice)
		le.PutUint32(u[4:], desc.Texture.PlaneSlice)
	case native.UAVDimensionTexture2DArray:
		le.PutUint32(u[0:], desc.Texture.MipSlice)
		le.PutUint32(u[4:], desc.Texture.FirstArraySlice)
		le.PutUint32(u[8:], desc.Texture.ArraySize)
		le.PutUint32(u[12:], desc.Texture.PlaneSlice)
	}
	d.raw.CreateUnorderedAccessView(mustResource(resource), mustResource(counter),
		(*d3d12.D3D12_UNORDERED_ACCESS_VIEW_DESC)(unsafe.Pointer(&ud)), cpuHandle(dest))
}

func (d *Device) CreateSampler(desc *native.SamplerDesc, dest native.CPUDescriptorHandle) {
	d.raw.CreateSampler(&d3d12.D3D12_SAMPLER_DESC{
		Filter:         d3d12.D3D12_FILTER(desc.Filter),
		AddressU:       d3d12.D3D12_TEXTURE_ADDRESS_MODE(desc.AddressU),
		AddressV:       d3d12.D3D12_TEXTURE_ADDRESS_MODE(desc.AddressV),
		AddressW:       d3d12.D3D12_TEXTURE_ADDRESS_MODE(desc.AddressW),
		MipLODBias:     desc.MipLODBias,
		MaxAnisotropy:  desc.MaxAnisotropy,
		ComparisonFunc: d3d12.D3D12_COMPARISON_FUNC(desc.ComparisonFunc),
		BorderColor:    desc.BorderColor,
		MinLOD:         desc.MinLOD,
		MaxLOD:         desc.MaxLOD,
	}, cpuHandle(dest))
}

func (d *Device) CopyDescriptorsSimple(numDescriptors uint32, dest, src native.CPUDescriptorHandle, heapType native.DescriptorHeapType) {
	d.raw.CopyDescriptorsSimple(numDescriptors, cpuHandle(dest), cpuHandle(src), d3d12.D3D12_DESCRIPTOR_HEAP_TYPE(heapType))
}
