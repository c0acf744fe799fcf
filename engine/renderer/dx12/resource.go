package dx12

import (
	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-dx12/engine/containers"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

type Buffer struct {
	id     uuid.UUID
	desc   metadata.BufferDesc
	native native.Resource
	gpuVA  uint64
}

func (b *Buffer) ID() uuid.UUID {
	return b.id
}

func (b *Buffer) Desc() metadata.BufferDesc {
	return b.desc
}

// Size is the size requested at creation. The allocation may be larger.
func (b *Buffer) Size() uint64 {
	return b.desc.Size
}

func (b *Buffer) GPUVirtualAddress() uint64 {
	return b.gpuVA
}

func (b *Buffer) Native() native.Resource {
	return b.native
}

func (b *Buffer) Destroy() {
	if b.native != nil {
		b.native.Release()
		b.native = nil
	}
}

type Texture struct {
	id     uuid.UUID
	desc   metadata.TextureDesc
	format native.Format
	native native.Resource
}

func (t *Texture) ID() uuid.UUID {
	return t.id
}

func (t *Texture) Desc() metadata.TextureDesc {
	return t.desc
}

func (t *Texture) Native() native.Resource {
	return t.native
}

func (t *Texture) Destroy() {
	if t.native != nil {
		t.native.Release()
		t.native = nil
	}
}

// TextureView is a view descriptor prepared in the CPU-only staging heap.
// Writing it into a set copies the descriptor.
type TextureView struct {
	texture *Texture
	desc    metadata.TextureViewDesc
	chunk   *DescriptorChunk
	cpu     native.CPUDescriptorHandle
}

func (v *TextureView) Texture() *Texture {
	return v.texture
}

func (v *TextureView) Desc() metadata.TextureViewDesc {
	return v.desc
}

// Storage reports whether the view is an unordered-access view.
func (v *TextureView) Storage() bool {
	return v.desc.Storage
}

func (v *TextureView) CPUHandle() native.CPUDescriptorHandle {
	return v.cpu
}

func (v *TextureView) Destroy() {
	if v.chunk != nil {
		v.chunk.Release()
		v.chunk = nil
	}
}

func heapTypeFor(loc metadata.MemoryLocation) (native.HeapType, native.ResourceStates) {
	switch loc {
	case metadata.MemoryLocationCpuToGpu:
		return native.HeapTypeUpload, native.ResourceStateGenericRead
	case metadata.MemoryLocationGpuToCpu:
		return native.HeapTypeReadback, native.ResourceStateCopyDest
	default:
		return native.HeapTypeDefault, native.ResourceStateCommon
	}
}

func bufferResourceDesc(desc *metadata.BufferDesc) native.ResourceDesc {
	size := desc.Size
	if desc.Usage&metadata.BufferUsageUniform != 0 {
		// constant buffer views cover whole 256 byte blocks
		size = containers.AlignUp(size, native.ConstantBufferAlignment)
	}
	rd := native.ResourceDesc{
		Dimension:        native.ResourceDimensionBuffer,
		Width:            size,
		Height:           1,
		DepthOrArraySize: 1,
		MipLevels:        1,
		Format:           native.FormatUnknown,
		SampleDesc:       native.SampleDesc{Count: 1},
		Layout:           native.TextureLayoutRowMajor,
	}
	if desc.Usage&metadata.BufferUsageStorage != 0 && desc.Location == metadata.MemoryLocationGpuOnly {
		rd.Flags |= native.ResourceFlagAllowUnorderedAccess
	}
	return rd
}

func textureResourceDesc(desc *metadata.TextureDesc) (native.ResourceDesc, native.Format, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return native.ResourceDesc{}, 0, errors.Newf("texture %q is %dx%d", desc.Label, desc.Width, desc.Height)
	}
	format, err := textureFormat(desc.Format)
	if err != nil {
		return native.ResourceDesc{}, 0, err
	}
	rd := native.ResourceDesc{
		Dimension:        native.ResourceDimensionTexture2D,
		Width:            uint64(desc.Width),
		Height:           desc.Height,
		DepthOrArraySize: uint16(max(desc.ArrayLayers, 1)),
		MipLevels:        uint16(max(desc.MipLevels, 1)),
		Format:           format,
		SampleDesc:       native.SampleDesc{Count: max(desc.SampleCount, 1)},
		Layout:           native.TextureLayoutUnknown,
	}
	if desc.Usage&metadata.TextureUsageRenderTarget != 0 {
		rd.Flags |= native.ResourceFlagAllowRenderTarget
	}
	if desc.Usage&metadata.TextureUsageStorage != 0 {
		rd.Flags |= native.ResourceFlagAllowUnorderedAccess
	}
	if desc.Usage&metadata.TextureUsageDepthStencil != 0 {
		if !desc.Format.HasDepth() {
			return native.ResourceDesc{}, 0, errors.Wrapf(ErrUnsupportedFormat,
				"depth-stencil texture %q has color format %s", desc.Label, desc.Format)
		}
		rd.Flags |= native.ResourceFlagAllowDepthStencil
		if desc.Usage&metadata.TextureUsageSampled != 0 {
			// sampled depth is created typeless and read through a colour view
			rd.Format = depthFormats[format][0]
		}
	}
	return rd, format, nil
}

func textureViewDescs(tex *Texture, desc *metadata.TextureViewDesc) (*native.ShaderResourceViewDesc, *native.UnorderedAccessViewDesc, error) {
	td := &tex.desc
	format := tex.format
	if desc.Format != gputypes.TextureFormatUndefined {
		f, err := textureFormat(desc.Format)
		if err != nil {
			return nil, nil, err
		}
		format = f
	}
	if pair, ok := depthFormats[format]; ok {
		format = pair[1]
	}

	mips := max(td.MipLevels, 1)
	layers := max(td.ArrayLayers, 1)
	if desc.BaseMipLevel >= mips || desc.BaseArrayLayer >= layers {
		return nil, nil, errors.Newf("view %q starts past the end of texture %q", desc.Label, td.Label)
	}
	mipCount := desc.MipLevelCount
	if mipCount == 0 {
		mipCount = mips - desc.BaseMipLevel
	}
	layerCount := desc.ArrayLayers
	if layerCount == 0 {
		layerCount = layers - desc.BaseArrayLayer
	}

	if desc.Storage {
		if td.Usage&metadata.TextureUsageStorage == 0 {
			return nil, nil, errors.Newf("storage view %q of texture %q without storage usage", desc.Label, td.Label)
		}
		uav := &native.UnorderedAccessViewDesc{
			Format:        format,
			ViewDimension: native.UAVDimensionTexture2D,
			Texture:       native.TextureUAV{MipSlice: desc.BaseMipLevel},
		}
		if layers > 1 {
			uav.ViewDimension = native.UAVDimensionTexture2DArray
			uav.Texture.FirstArraySlice = desc.BaseArrayLayer
			uav.Texture.ArraySize = layerCount
		}
		return nil, uav, nil
	}

	srv := &native.ShaderResourceViewDesc{
		Format:                  format,
		ViewDimension:           native.SRVDimensionTexture2D,
		Shader4ComponentMapping: native.DefaultShader4ComponentMapping,
		Texture: native.TextureSRV{
			MostDetailedMip: desc.BaseMipLevel,
			MipLevels:       mipCount,
		},
	}
	if layers > 1 {
		srv.ViewDimension = native.SRVDimensionTexture2DArray
		srv.Texture.FirstArraySlice = desc.BaseArrayLayer
		srv.Texture.ArraySize = layerCount
	}
	return srv, nil, nil
}
