package dx12

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima-dx12/engine/containers"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

// BufferBinding is a range of a buffer. A zero Size extends the range to the
// end of the buffer. Stride is the element size of structured buffers.
type BufferBinding struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
	Stride uint32
}

type TexelBufferBinding struct {
	Buffer *Buffer
	Offset uint64
	Size   uint64
	Format gputypes.TextureFormat
}

// DescriptorWrite updates consecutive array elements of one binding. Exactly
// one of the slices is read, chosen by the binding's kind.
type DescriptorWrite struct {
	Set          *DescriptorSet
	Binding      uint32
	ArrayElement uint32

	Samplers     []*Sampler
	Textures     []*TextureView
	Buffers      []BufferBinding
	TexelBuffers []TexelBufferBinding
}

func (w *DescriptorWrite) count(kind metadata.DescriptorKind) int {
	switch kind {
	case metadata.DescriptorKindSampler:
		return len(w.Samplers)
	case metadata.DescriptorKindTexture, metadata.DescriptorKindRWTexture, metadata.DescriptorKindInputAttachment:
		return len(w.Textures)
	case metadata.DescriptorKindTexelBuffer, metadata.DescriptorKindRWTexelBuffer:
		return len(w.TexelBuffers)
	default:
		return len(w.Buffers)
	}
}

// UpdateDescriptorSets applies writes in order. Writing a binding the set's
// layout does not have, or past the end of a binding, is a programming error
// and panics.
func (d *Device) UpdateDescriptorSets(writes []DescriptorWrite) {
	for i := range writes {
		d.writeDescriptors(&writes[i])
	}
}

func (d *Device) writeDescriptors(w *DescriptorWrite) {
	set := w.Set
	info, ok := set.layout.bindings[w.Binding]
	if !ok {
		panic(fmt.Sprintf("descriptor set layout %q has no binding %d", set.layout.label, w.Binding))
	}
	if info.IsStaticSampler {
		panic(fmt.Sprintf("binding %d of layout %q is a static sampler", w.Binding, set.layout.label))
	}
	n := w.count(info.Kind)
	if uint64(w.ArrayElement)+uint64(n) > uint64(info.Layout.Count) {
		panic(fmt.Sprintf("write of %d descriptors at element %d overflows binding %d of count %d",
			n, w.ArrayElement, w.Binding, info.Layout.Count))
	}

	switch info.Kind {
	case metadata.DescriptorKindDynamicUniformBuffer:
		idx := set.layout.dynamicBufferIndex(w.Binding)
		for i := range w.Buffers {
			b := &w.Buffers[i]
			set.DynamicConstantBuffers[idx+int(w.ArrayElement)+i] = b.Buffer.gpuVA + b.Offset
		}
		return

	case metadata.DescriptorKindSampler:
		idx := set.layout.samplerTableIndex(w.Binding)
		for i, s := range w.Samplers {
			set.Samplers[idx+int(w.ArrayElement)+i] = s.gpu
		}
		return

	case metadata.DescriptorKindInputAttachment:
		panic("unimplemented: input attachment descriptors")
	}

	for i := 0; i < n; i++ {
		dest := set.descriptorHandle(info.Layout.BaseOffset + w.ArrayElement + uint32(i))
		switch info.Kind {
		case metadata.DescriptorKindTexture, metadata.DescriptorKindRWTexture:
			view := w.Textures[i]
			if view.Storage() != (info.Kind == metadata.DescriptorKindRWTexture) {
				panic(fmt.Sprintf("binding %d is %s but view %q storage=%t",
					w.Binding, info.Kind, view.desc.Label, view.Storage()))
			}
			d.native.CopyDescriptorsSimple(1, dest, view.cpu, native.DescriptorHeapTypeCbvSrvUav)

		case metadata.DescriptorKindUniformBuffer:
			b := &w.Buffers[i]
			size := b.Size
			if size == 0 {
				size = remaining(b.Buffer, b.Offset)
			}
			d.native.CreateConstantBufferView(&native.ConstantBufferViewDesc{
				BufferLocation: b.Buffer.gpuVA + b.Offset,
				SizeInBytes:    uint32(containers.AlignUp(size, native.ConstantBufferAlignment)),
			}, dest)

		case metadata.DescriptorKindStructuredBuffer, metadata.DescriptorKindRWStructuredBuffer:
			b := &w.Buffers[i]
			if b.Stride == 0 {
				panic(fmt.Sprintf("structured buffer write to binding %d without a stride", w.Binding))
			}
			size := clampedSize(b)
			first, count := b.Offset/uint64(b.Stride), uint32(size/uint64(b.Stride))
			if info.Kind == metadata.DescriptorKindStructuredBuffer {
				d.native.CreateShaderResourceView(b.Buffer.native, &native.ShaderResourceViewDesc{
					Format:                  native.FormatUnknown,
					ViewDimension:           native.SRVDimensionBuffer,
					Shader4ComponentMapping: native.DefaultShader4ComponentMapping,
					Buffer:                  native.BufferSRV{FirstElement: first, NumElements: count, StructureByteStride: b.Stride},
				}, dest)
			} else {
				d.native.CreateUnorderedAccessView(b.Buffer.native, nil, &native.UnorderedAccessViewDesc{
					Format:        native.FormatUnknown,
					ViewDimension: native.UAVDimensionBuffer,
					Buffer:        native.BufferUAV{FirstElement: first, NumElements: count, StructureByteStride: b.Stride},
				}, dest)
			}

		case metadata.DescriptorKindByteAddressBuffer, metadata.DescriptorKindRWByteAddressBuffer:
			b := &w.Buffers[i]
			size := clampedSize(b)
			// raw views address 32 bit words
			first, count := b.Offset/4, uint32(size/4)
			if info.Kind == metadata.DescriptorKindByteAddressBuffer {
				d.native.CreateShaderResourceView(b.Buffer.native, &native.ShaderResourceViewDesc{
					Format:                  native.FormatR32Typeless,
					ViewDimension:           native.SRVDimensionBuffer,
					Shader4ComponentMapping: native.DefaultShader4ComponentMapping,
					Buffer:                  native.BufferSRV{FirstElement: first, NumElements: count, Flags: native.BufferViewFlagRaw},
				}, dest)
			} else {
				d.native.CreateUnorderedAccessView(b.Buffer.native, nil, &native.UnorderedAccessViewDesc{
					Format:        native.FormatR32Typeless,
					ViewDimension: native.UAVDimensionBuffer,
					Buffer:        native.BufferUAV{FirstElement: first, NumElements: count, Flags: native.BufferViewFlagRaw},
				}, dest)
			}

		case metadata.DescriptorKindTexelBuffer, metadata.DescriptorKindRWTexelBuffer:
			b := &w.TexelBuffers[i]
			format, err := textureFormat(b.Format)
			elem := texelSize(b.Format)
			if err != nil || elem == 0 {
				panic(fmt.Sprintf("texel buffer write to binding %d with format %s", w.Binding, b.Format))
			}
			size := b.Size
			if size == 0 {
				size = remaining(b.Buffer, b.Offset)
			}
			first, count := b.Offset/uint64(elem), uint32(size/uint64(elem))
			if info.Kind == metadata.DescriptorKindTexelBuffer {
				d.native.CreateShaderResourceView(b.Buffer.native, &native.ShaderResourceViewDesc{
					Format:                  format,
					ViewDimension:           native.SRVDimensionBuffer,
					Shader4ComponentMapping: native.DefaultShader4ComponentMapping,
					Buffer:                  native.BufferSRV{FirstElement: first, NumElements: count},
				}, dest)
			} else {
				d.native.CreateUnorderedAccessView(b.Buffer.native, nil, &native.UnorderedAccessViewDesc{
					Format:        format,
					ViewDimension: native.UAVDimensionBuffer,
					Buffer:        native.BufferUAV{FirstElement: first, NumElements: count},
				}, dest)
			}

		default:
			panic(fmt.Sprintf("binding %d has unknown descriptor kind %d", w.Binding, info.Kind))
		}
	}
}

func remaining(b *Buffer, offset uint64) uint64 {
	if offset >= b.desc.Size {
		return 0
	}
	return b.desc.Size - offset
}

// clampedSize limits a binding to what is left of its buffer.
func clampedSize(b *BufferBinding) uint64 {
	rest := remaining(b.Buffer, b.Offset)
	if b.Size == 0 {
		return rest
	}
	return min(b.Size, rest)
}
