package dx12

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native/software"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferKindsLayout() *metadata.DescriptorSetLayoutDesc {
	return &metadata.DescriptorSetLayoutDesc{
		Label: "buffers",
		Bindings: []metadata.DescriptorSetLayoutBinding{
			{Binding: 0, Kind: metadata.DescriptorKindUniformBuffer},
			{Binding: 1, Kind: metadata.DescriptorKindStructuredBuffer},
			{Binding: 2, Kind: metadata.DescriptorKindRWStructuredBuffer},
			{Binding: 3, Kind: metadata.DescriptorKindByteAddressBuffer},
			{Binding: 4, Kind: metadata.DescriptorKindRWByteAddressBuffer},
			{Binding: 5, Kind: metadata.DescriptorKindTexelBuffer},
			{Binding: 6, Kind: metadata.DescriptorKindRWTexelBuffer},
			{Binding: 7, Kind: metadata.DescriptorKindDynamicUniformBuffer},
			{Binding: 8, Kind: metadata.DescriptorKindDynamicUniformBuffer},
			{Binding: 9, Kind: metadata.DescriptorKindSampler},
			{Binding: 10, Kind: metadata.DescriptorKindTexture},
			{Binding: 11, Kind: metadata.DescriptorKindInputAttachment},
		},
	}
}

type writerFixture struct {
	d   *Device
	sw  *software.Device
	set *DescriptorSet
	buf *Buffer
}

func newWriterFixture(t *testing.T) *writerFixture {
	t.Helper()
	d, sw := newTestDevice(t)
	layout := mustSetLayout(t, d, bufferKindsLayout())
	pool, err := d.CreateDescriptorPool(&DescriptorPoolDesc{Layout: layout, NumSets: 2})
	require.NoError(t, err)
	// skip the first set so the base handle is not the heap start
	_, err = pool.Allocate()
	require.NoError(t, err)
	set, err := pool.Allocate()
	require.NoError(t, err)
	buf, err := d.CreateBuffer(&metadata.BufferDesc{
		Label: "data",
		Size:  1000,
		Usage: metadata.BufferUsageStorage | metadata.BufferUsageUniform,
	})
	require.NoError(t, err)
	return &writerFixture{d: d, sw: sw, set: set, buf: buf}
}

func (f *writerFixture) view(t *testing.T, binding uint32) software.View {
	t.Helper()
	info, ok := f.set.Layout().Binding(binding)
	require.True(t, ok)
	inc := f.d.heaps.ResourceIncrement()
	h := native.CPUDescriptorHandle{Ptr: f.set.CPUHandle().Ptr + uintptr(info.Layout.BaseOffset*inc)}
	v, ok := f.sw.View(h)
	require.True(t, ok, "binding %d has no view", binding)
	return v
}

func TestDescriptorWriter_DestinationHandles(t *testing.T) {
	f := newWriterFixture(t)
	writes := []DescriptorWrite{
		{Set: f.set, Binding: 3, Buffers: []BufferBinding{{Buffer: f.buf}}},
		{Set: f.set, Binding: 1, Buffers: []BufferBinding{{Buffer: f.buf, Stride: 8}}},
		{Set: f.set, Binding: 0, Buffers: []BufferBinding{{Buffer: f.buf}}},
	}
	f.d.UpdateDescriptorSets(writes)

	inc := uintptr(f.d.heaps.ResourceIncrement())
	for _, w := range writes {
		info, _ := f.set.Layout().Binding(w.Binding)
		want := f.set.CPUHandle().Ptr + (uintptr(info.Layout.BaseOffset)+uintptr(w.ArrayElement))*inc
		_, ok := f.sw.View(native.CPUDescriptorHandle{Ptr: want})
		assert.True(t, ok, "binding %d", w.Binding)
	}

	// the same writes in another order land in the same places
	g := newWriterFixture(t)
	for i := range writes {
		writes[i].Set = g.set
		writes[i].Buffers[0].Buffer = g.buf
	}
	g.d.UpdateDescriptorSets([]DescriptorWrite{writes[2], writes[0], writes[1]})
	for _, b := range []uint32{0, 1, 3} {
		assert.Equal(t, f.view(t, b).Kind, g.view(t, b).Kind)
	}
}

func TestDescriptorWriter_ConstantBufferAlignsSize(t *testing.T) {
	f := newWriterFixture(t)
	f.d.UpdateDescriptorSets([]DescriptorWrite{
		{Set: f.set, Binding: 0, Buffers: []BufferBinding{{Buffer: f.buf, Offset: 256, Size: 100}}},
	})
	v := f.view(t, 0)
	assert.Equal(t, software.ViewKindCBV, v.Kind)
	assert.Equal(t, f.buf.GPUVirtualAddress()+256, v.CBV.BufferLocation)
	assert.Equal(t, uint32(256), v.CBV.SizeInBytes)
}

func TestDescriptorWriter_StructuredBufferClampsToBuffer(t *testing.T) {
	f := newWriterFixture(t)
	f.d.UpdateDescriptorSets([]DescriptorWrite{
		{Set: f.set, Binding: 1, Buffers: []BufferBinding{{Buffer: f.buf, Offset: 800, Size: 4096, Stride: 16}}},
		{Set: f.set, Binding: 2, Buffers: []BufferBinding{{Buffer: f.buf, Stride: 100}}},
	})

	srv := f.view(t, 1)
	assert.Equal(t, software.ViewKindSRV, srv.Kind)
	assert.Equal(t, native.SRVDimensionBuffer, srv.SRV.ViewDimension)
	assert.Equal(t, uint64(50), srv.SRV.Buffer.FirstElement)
	assert.Equal(t, uint32(12), srv.SRV.Buffer.NumElements, "(1000-800)/16")
	assert.Equal(t, uint32(16), srv.SRV.Buffer.StructureByteStride)

	uav := f.view(t, 2)
	assert.Equal(t, software.ViewKindUAV, uav.Kind)
	assert.Equal(t, uint32(10), uav.UAV.Buffer.NumElements)
	assert.Same(t, f.buf.Native(), uav.Resource)
}

func TestDescriptorWriter_ByteAddressBuffersAreRaw(t *testing.T) {
	f := newWriterFixture(t)
	f.d.UpdateDescriptorSets([]DescriptorWrite{
		{Set: f.set, Binding: 3, Buffers: []BufferBinding{{Buffer: f.buf, Offset: 64, Size: 2000}}},
		{Set: f.set, Binding: 4, Buffers: []BufferBinding{{Buffer: f.buf, Offset: 0, Size: 40}}},
	})

	srv := f.view(t, 3)
	assert.Equal(t, native.FormatR32Typeless, srv.SRV.Format)
	assert.Equal(t, native.BufferViewFlagRaw, srv.SRV.Buffer.Flags)
	assert.Equal(t, uint64(16), srv.SRV.Buffer.FirstElement)
	assert.Equal(t, uint32(234), srv.SRV.Buffer.NumElements, "(1000-64)/4")

	uav := f.view(t, 4)
	assert.Equal(t, native.FormatR32Typeless, uav.UAV.Format)
	assert.Equal(t, native.BufferViewFlagRaw, uav.UAV.Buffer.Flags)
	assert.Equal(t, uint32(10), uav.UAV.Buffer.NumElements)
}

func TestDescriptorWriter_TexelBuffers(t *testing.T) {
	f := newWriterFixture(t)
	f.d.UpdateDescriptorSets([]DescriptorWrite{
		{Set: f.set, Binding: 5, TexelBuffers: []TexelBufferBinding{{Buffer: f.buf, Offset: 16, Size: 64, Format: gputypes.TextureFormatRGBA32Float}}},
		{Set: f.set, Binding: 6, TexelBuffers: []TexelBufferBinding{{Buffer: f.buf, Format: gputypes.TextureFormatR32Uint}}},
	})

	srv := f.view(t, 5)
	assert.Equal(t, native.FormatR32G32B32A32Float, srv.SRV.Format)
	assert.Equal(t, uint64(1), srv.SRV.Buffer.FirstElement)
	assert.Equal(t, uint32(4), srv.SRV.Buffer.NumElements)

	uav := f.view(t, 6)
	assert.Equal(t, native.FormatR32Uint, uav.UAV.Format)
	assert.Equal(t, uint32(250), uav.UAV.Buffer.NumElements)
}

func TestDescriptorWriter_DynamicBuffersAndSamplers(t *testing.T) {
	f := newWriterFixture(t)
	sampler, err := f.d.CreateSampler(gputypes.LinearSamplerDescriptor())
	require.NoError(t, err)

	f.d.UpdateDescriptorSets([]DescriptorWrite{
		{Set: f.set, Binding: 8, Buffers: []BufferBinding{{Buffer: f.buf, Offset: 512}}},
		{Set: f.set, Binding: 7, Buffers: []BufferBinding{{Buffer: f.buf, Offset: 256}}},
		{Set: f.set, Binding: 9, Samplers: []*Sampler{sampler}},
	})

	assert.Equal(t, []uint64{f.buf.GPUVirtualAddress() + 256, f.buf.GPUVirtualAddress() + 512}, f.set.DynamicConstantBuffers)
	require.Len(t, f.set.Samplers, 1)
	assert.Equal(t, sampler.GPUHandle(), f.set.Samplers[0])
}

func TestDescriptorWriter_TextureCopiedFromStaging(t *testing.T) {
	f := newWriterFixture(t)
	tex, err := f.d.CreateTexture(&metadata.TextureDesc{
		Label:  "albedo",
		Format: gputypes.TextureFormatRGBA8UnormSrgb,
		Width:  64,
		Height: 64,
		Usage:  metadata.TextureUsageSampled,
	})
	require.NoError(t, err)
	view, err := f.d.CreateTextureView(tex, &metadata.TextureViewDesc{Label: "albedo"})
	require.NoError(t, err)

	f.d.UpdateDescriptorSets([]DescriptorWrite{{Set: f.set, Binding: 10, Textures: []*TextureView{view}}})

	v := f.view(t, 10)
	assert.Equal(t, software.ViewKindSRV, v.Kind)
	assert.Equal(t, native.FormatR8G8B8A8UnormSrgb, v.SRV.Format)
	assert.Equal(t, native.SRVDimensionTexture2D, v.SRV.ViewDimension)
	assert.Equal(t, uint32(1), v.SRV.Texture.MipLevels)
	assert.Same(t, tex.Native(), v.Resource)
}

func TestDescriptorWriter_ProgrammerErrorsPanic(t *testing.T) {
	f := newWriterFixture(t)
	tex, err := f.d.CreateTexture(&metadata.TextureDesc{
		Format: gputypes.TextureFormatRGBA8Unorm, Width: 4, Height: 4, Usage: metadata.TextureUsageSampled,
	})
	require.NoError(t, err)
	view, err := f.d.CreateTextureView(tex, &metadata.TextureViewDesc{})
	require.NoError(t, err)

	assert.PanicsWithValue(t, "unimplemented: input attachment descriptors", func() {
		f.d.UpdateDescriptorSets([]DescriptorWrite{{Set: f.set, Binding: 11, Textures: []*TextureView{view}}})
	})
	assert.Panics(t, func() {
		f.d.UpdateDescriptorSets([]DescriptorWrite{{Set: f.set, Binding: 42, Buffers: []BufferBinding{{Buffer: f.buf}}}})
	})
	assert.Panics(t, func() {
		f.d.UpdateDescriptorSets([]DescriptorWrite{{Set: f.set, Binding: 0, ArrayElement: 1, Buffers: []BufferBinding{{Buffer: f.buf}}}})
	})
}
