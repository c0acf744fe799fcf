package dx12

import (
	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

// shaderVisibility narrows a stage set to the single stage the native API can
// restrict a root parameter to, or All.
func shaderVisibility(stages metadata.ShaderStageFlags) native.ShaderVisibility {
	switch stages {
	case metadata.ShaderStageVertex:
		return native.ShaderVisibilityVertex
	case metadata.ShaderStageHull:
		return native.ShaderVisibilityHull
	case metadata.ShaderStageDomain:
		return native.ShaderVisibilityDomain
	case metadata.ShaderStageGeometry:
		return native.ShaderVisibilityGeometry
	case metadata.ShaderStageFragment:
		return native.ShaderVisibilityPixel
	case metadata.ShaderStageAmplification:
		return native.ShaderVisibilityAmplification
	case metadata.ShaderStageMesh:
		return native.ShaderVisibilityMesh
	default:
		return native.ShaderVisibilityAll
	}
}

func descriptorRangeType(kind metadata.DescriptorKind) native.DescriptorRangeType {
	switch kind {
	case metadata.DescriptorKindSampler:
		return native.DescriptorRangeTypeSampler
	case metadata.DescriptorKindUniformBuffer, metadata.DescriptorKindDynamicUniformBuffer:
		return native.DescriptorRangeTypeCBV
	case metadata.DescriptorKindRWStructuredBuffer, metadata.DescriptorKindRWByteAddressBuffer,
		metadata.DescriptorKindRWTexelBuffer, metadata.DescriptorKindRWTexture:
		return native.DescriptorRangeTypeUAV
	default:
		return native.DescriptorRangeTypeSRV
	}
}

func compareFunc(c gputypes.CompareFunction, fallback native.ComparisonFunc) native.ComparisonFunc {
	if c == gputypes.CompareFunctionUndefined || c > gputypes.CompareFunctionAlways {
		return fallback
	}
	// both enumerations run Never..Always from 1 to 8
	return native.ComparisonFunc(c)
}

func addressMode(m gputypes.AddressMode) native.TextureAddressMode {
	switch m {
	case gputypes.AddressModeRepeat:
		return native.TextureAddressModeWrap
	case gputypes.AddressModeMirrorRepeat:
		return native.TextureAddressModeMirror
	default:
		return native.TextureAddressModeClamp
	}
}

func filterType(linear bool) native.Filter {
	if linear {
		return native.FilterTypeLinear
	}
	return native.FilterTypePoint
}

func samplerFilter(d *gputypes.SamplerDescriptor) native.Filter {
	comparison := d.Compare != gputypes.CompareFunctionUndefined
	if d.MaxAnisotropy > 1 {
		if comparison {
			return native.FilterComparisonAnisotropic
		}
		return native.FilterAnisotropic
	}
	return native.EncodeBasicFilter(
		filterType(d.MinFilter == gputypes.FilterModeLinear),
		filterType(d.MagFilter == gputypes.FilterModeLinear),
		filterType(d.MipmapFilter == gputypes.MipmapFilterModeLinear),
		comparison,
	)
}

func maxAnisotropy(v uint16) uint32 {
	return uint32(min(max(v, 1), 16))
}

func samplerDesc(d *gputypes.SamplerDescriptor) native.SamplerDesc {
	return native.SamplerDesc{
		Filter:         samplerFilter(d),
		AddressU:       addressMode(d.AddressModeU),
		AddressV:       addressMode(d.AddressModeV),
		AddressW:       addressMode(d.AddressModeW),
		MaxAnisotropy:  maxAnisotropy(d.MaxAnisotropy),
		ComparisonFunc: compareFunc(d.Compare, native.ComparisonFuncNever),
		MinLOD:         d.LodMinClamp,
		MaxLOD:         d.LodMaxClamp,
	}
}

func staticSamplerDesc(d *gputypes.SamplerDescriptor, register uint32, visibility native.ShaderVisibility) native.StaticSamplerDesc {
	return native.StaticSamplerDesc{
		Filter:           samplerFilter(d),
		AddressU:         addressMode(d.AddressModeU),
		AddressV:         addressMode(d.AddressModeV),
		AddressW:         addressMode(d.AddressModeW),
		MaxAnisotropy:    maxAnisotropy(d.MaxAnisotropy),
		ComparisonFunc:   compareFunc(d.Compare, native.ComparisonFuncNever),
		BorderColor:      native.StaticBorderColorTransparentBlack,
		MinLOD:           d.LodMinClamp,
		MaxLOD:           d.LodMaxClamp,
		ShaderRegister:   register,
		ShaderVisibility: visibility,
	}
}

var vertexFormats = map[gputypes.VertexFormat]native.Format{
	gputypes.VertexFormatUint8x2:      native.FormatR8G8Uint,
	gputypes.VertexFormatUint8x4:      native.FormatR8G8B8A8Uint,
	gputypes.VertexFormatSint8x2:      native.FormatR8G8Sint,
	gputypes.VertexFormatSint8x4:      native.FormatR8G8B8A8Sint,
	gputypes.VertexFormatUnorm8x2:     native.FormatR8G8Unorm,
	gputypes.VertexFormatUnorm8x4:     native.FormatR8G8B8A8Unorm,
	gputypes.VertexFormatSnorm8x2:     native.FormatR8G8Snorm,
	gputypes.VertexFormatSnorm8x4:     native.FormatR8G8B8A8Snorm,
	gputypes.VertexFormatUint16x2:     native.FormatR16G16Uint,
	gputypes.VertexFormatUint16x4:     native.FormatR16G16B16A16Uint,
	gputypes.VertexFormatSint16x2:     native.FormatR16G16Sint,
	gputypes.VertexFormatSint16x4:     native.FormatR16G16B16A16Sint,
	gputypes.VertexFormatUnorm16x2:    native.FormatR16G16Unorm,
	gputypes.VertexFormatUnorm16x4:    native.FormatR16G16B16A16Unorm,
	gputypes.VertexFormatSnorm16x2:    native.FormatR16G16Snorm,
	gputypes.VertexFormatSnorm16x4:    native.FormatR16G16B16A16Snorm,
	gputypes.VertexFormatFloat16x2:    native.FormatR16G16Float,
	gputypes.VertexFormatFloat16x4:    native.FormatR16G16B16A16Float,
	gputypes.VertexFormatFloat32:      native.FormatR32Float,
	gputypes.VertexFormatFloat32x2:    native.FormatR32G32Float,
	gputypes.VertexFormatFloat32x3:    native.FormatR32G32B32Float,
	gputypes.VertexFormatFloat32x4:    native.FormatR32G32B32A32Float,
	gputypes.VertexFormatUint32:       native.FormatR32Uint,
	gputypes.VertexFormatUint32x2:     native.FormatR32G32Uint,
	gputypes.VertexFormatUint32x3:     native.FormatR32G32B32Uint,
	gputypes.VertexFormatUint32x4:     native.FormatR32G32B32A32Uint,
	gputypes.VertexFormatSint32:       native.FormatR32Sint,
	gputypes.VertexFormatSint32x2:     native.FormatR32G32Sint,
	gputypes.VertexFormatSint32x3:     native.FormatR32G32B32Sint,
	gputypes.VertexFormatSint32x4:     native.FormatR32G32B32A32Sint,
	gputypes.VertexFormatUnorm1010102: native.FormatR10G10B10A2Unorm,
}

func vertexFormat(f gputypes.VertexFormat) (native.Format, error) {
	if nf, ok := vertexFormats[f]; ok {
		return nf, nil
	}
	return native.FormatUnknown, errors.Wrapf(ErrUnsupportedFormat, "vertex format %s", f)
}

var textureFormats = map[gputypes.TextureFormat]native.Format{
	gputypes.TextureFormatR8Unorm:              native.FormatR8Unorm,
	gputypes.TextureFormatR8Snorm:              native.FormatR8Snorm,
	gputypes.TextureFormatR8Uint:               native.FormatR8Uint,
	gputypes.TextureFormatR8Sint:               native.FormatR8Sint,
	gputypes.TextureFormatR16Unorm:             native.FormatR16Unorm,
	gputypes.TextureFormatR16Snorm:             native.FormatR16Snorm,
	gputypes.TextureFormatR16Uint:              native.FormatR16Uint,
	gputypes.TextureFormatR16Sint:              native.FormatR16Sint,
	gputypes.TextureFormatR16Float:             native.FormatR16Float,
	gputypes.TextureFormatRG8Unorm:             native.FormatR8G8Unorm,
	gputypes.TextureFormatRG8Snorm:             native.FormatR8G8Snorm,
	gputypes.TextureFormatRG8Uint:              native.FormatR8G8Uint,
	gputypes.TextureFormatRG8Sint:              native.FormatR8G8Sint,
	gputypes.TextureFormatR32Float:             native.FormatR32Float,
	gputypes.TextureFormatR32Uint:              native.FormatR32Uint,
	gputypes.TextureFormatR32Sint:              native.FormatR32Sint,
	gputypes.TextureFormatRG16Unorm:            native.FormatR16G16Unorm,
	gputypes.TextureFormatRG16Snorm:            native.FormatR16G16Snorm,
	gputypes.TextureFormatRG16Uint:             native.FormatR16G16Uint,
	gputypes.TextureFormatRG16Sint:             native.FormatR16G16Sint,
	gputypes.TextureFormatRG16Float:            native.FormatR16G16Float,
	gputypes.TextureFormatRGBA8Unorm:           native.FormatR8G8B8A8Unorm,
	gputypes.TextureFormatRGBA8UnormSrgb:       native.FormatR8G8B8A8UnormSrgb,
	gputypes.TextureFormatRGBA8Snorm:           native.FormatR8G8B8A8Snorm,
	gputypes.TextureFormatRGBA8Uint:            native.FormatR8G8B8A8Uint,
	gputypes.TextureFormatRGBA8Sint:            native.FormatR8G8B8A8Sint,
	gputypes.TextureFormatBGRA8Unorm:           native.FormatB8G8R8A8Unorm,
	gputypes.TextureFormatBGRA8UnormSrgb:       native.FormatB8G8R8A8UnormSrgb,
	gputypes.TextureFormatRGB10A2Uint:          native.FormatR10G10B10A2Uint,
	gputypes.TextureFormatRGB10A2Unorm:         native.FormatR10G10B10A2Unorm,
	gputypes.TextureFormatRG11B10Ufloat:        native.FormatR11G11B10Float,
	gputypes.TextureFormatRGB9E5Ufloat:         native.FormatR9G9B9E5SharedExp,
	gputypes.TextureFormatRG32Float:            native.FormatR32G32Float,
	gputypes.TextureFormatRG32Uint:             native.FormatR32G32Uint,
	gputypes.TextureFormatRG32Sint:             native.FormatR32G32Sint,
	gputypes.TextureFormatRGBA16Unorm:          native.FormatR16G16B16A16Unorm,
	gputypes.TextureFormatRGBA16Snorm:          native.FormatR16G16B16A16Snorm,
	gputypes.TextureFormatRGBA16Uint:           native.FormatR16G16B16A16Uint,
	gputypes.TextureFormatRGBA16Sint:           native.FormatR16G16B16A16Sint,
	gputypes.TextureFormatRGBA16Float:          native.FormatR16G16B16A16Float,
	gputypes.TextureFormatRGBA32Float:          native.FormatR32G32B32A32Float,
	gputypes.TextureFormatRGBA32Uint:           native.FormatR32G32B32A32Uint,
	gputypes.TextureFormatRGBA32Sint:           native.FormatR32G32B32A32Sint,
	gputypes.TextureFormatDepth16Unorm:         native.FormatD16Unorm,
	gputypes.TextureFormatDepth24Plus:          native.FormatD24UnormS8Uint,
	gputypes.TextureFormatDepth24PlusStencil8:  native.FormatD24UnormS8Uint,
	gputypes.TextureFormatDepth32Float:         native.FormatD32Float,
	gputypes.TextureFormatDepth32FloatStencil8: native.FormatD32FloatS8X24Uint,
	gputypes.TextureFormatBC1RGBAUnorm:         native.FormatBC1Unorm,
	gputypes.TextureFormatBC1RGBAUnormSrgb:     native.FormatBC1UnormSrgb,
	gputypes.TextureFormatBC2RGBAUnorm:         native.FormatBC2Unorm,
	gputypes.TextureFormatBC2RGBAUnormSrgb:     native.FormatBC2UnormSrgb,
	gputypes.TextureFormatBC3RGBAUnorm:         native.FormatBC3Unorm,
	gputypes.TextureFormatBC3RGBAUnormSrgb:     native.FormatBC3UnormSrgb,
	gputypes.TextureFormatBC4RUnorm:            native.FormatBC4Unorm,
	gputypes.TextureFormatBC4RSnorm:            native.FormatBC4Snorm,
	gputypes.TextureFormatBC5RGUnorm:           native.FormatBC5Unorm,
	gputypes.TextureFormatBC5RGSnorm:           native.FormatBC5Snorm,
	gputypes.TextureFormatBC6HRGBUfloat:        native.FormatBC6HUF16,
	gputypes.TextureFormatBC6HRGBFloat:         native.FormatBC6HSF16,
	gputypes.TextureFormatBC7RGBAUnorm:         native.FormatBC7Unorm,
	gputypes.TextureFormatBC7RGBAUnormSrgb:     native.FormatBC7UnormSrgb,
}

func textureFormat(f gputypes.TextureFormat) (native.Format, error) {
	if nf, ok := textureFormats[f]; ok {
		return nf, nil
	}
	return native.FormatUnknown, errors.Wrapf(ErrUnsupportedFormat, "texture format %s", f)
}

// depthFormats maps a depth format to the typeless format its resource is
// created with and the colour format a shader reads it through.
var depthFormats = map[native.Format][2]native.Format{
	native.FormatD16Unorm:          {native.FormatR16Typeless, native.FormatR16Unorm},
	native.FormatD24UnormS8Uint:    {native.FormatR24G8Typeless, native.FormatR24UnormX8Typeless},
	native.FormatD32Float:          {native.FormatR32Typeless, native.FormatR32Float},
	native.FormatD32FloatS8X24Uint: {native.FormatR32G8X24Typeless, native.FormatR32FloatX8X24Typeless},
}

// texelSize is the byte size of one element of a typed buffer view, or 0 for
// formats a buffer view cannot use.
func texelSize(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint:
		return 1
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint, gputypes.TextureFormatR16Float,
		gputypes.TextureFormatRG8Unorm, gputypes.TextureFormatRG8Snorm,
		gputypes.TextureFormatRG8Uint, gputypes.TextureFormatRG8Sint:
		return 2
	case gputypes.TextureFormatR32Float, gputypes.TextureFormatR32Uint, gputypes.TextureFormatR32Sint,
		gputypes.TextureFormatRG16Unorm, gputypes.TextureFormatRG16Snorm,
		gputypes.TextureFormatRG16Uint, gputypes.TextureFormatRG16Sint, gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8Snorm,
		gputypes.TextureFormatRGBA8Uint, gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGB10A2Uint,
		gputypes.TextureFormatRGB10A2Unorm, gputypes.TextureFormatRG11B10Ufloat:
		return 4
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint, gputypes.TextureFormatRG32Sint,
		gputypes.TextureFormatRGBA16Unorm, gputypes.TextureFormatRGBA16Snorm,
		gputypes.TextureFormatRGBA16Uint, gputypes.TextureFormatRGBA16Sint, gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint, gputypes.TextureFormatRGBA32Sint:
		return 16
	}
	return 0
}

func blendFactor(f gputypes.BlendFactor, fallback native.Blend) native.Blend {
	switch f {
	case gputypes.BlendFactorZero:
		return native.BlendZero
	case gputypes.BlendFactorOne:
		return native.BlendOne
	case gputypes.BlendFactorSrc:
		return native.BlendSrcColor
	case gputypes.BlendFactorOneMinusSrc:
		return native.BlendInvSrcColor
	case gputypes.BlendFactorSrcAlpha:
		return native.BlendSrcAlpha
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return native.BlendInvSrcAlpha
	case gputypes.BlendFactorDst:
		return native.BlendDestColor
	case gputypes.BlendFactorOneMinusDst:
		return native.BlendInvDestColor
	case gputypes.BlendFactorDstAlpha:
		return native.BlendDestAlpha
	case gputypes.BlendFactorOneMinusDstAlpha:
		return native.BlendInvDestAlpha
	case gputypes.BlendFactorSrcAlphaSaturated:
		return native.BlendSrcAlphaSat
	case gputypes.BlendFactorConstant:
		return native.BlendBlendFactor
	case gputypes.BlendFactorOneMinusConstant:
		return native.BlendInvBlendFactor
	}
	return fallback
}

// alphaBlendFactor maps colour factors to their alpha form; the alpha
// channel of a render target blend rejects *_COLOR factors.
func alphaBlendFactor(f gputypes.BlendFactor, fallback native.Blend) native.Blend {
	switch b := blendFactor(f, fallback); b {
	case native.BlendSrcColor:
		return native.BlendSrcAlpha
	case native.BlendInvSrcColor:
		return native.BlendInvSrcAlpha
	case native.BlendDestColor:
		return native.BlendDestAlpha
	case native.BlendInvDestColor:
		return native.BlendInvDestAlpha
	default:
		return b
	}
}

func blendOp(op gputypes.BlendOperation) native.BlendOp {
	if op == gputypes.BlendOperationUndefined || op > gputypes.BlendOperationMax {
		return native.BlendOpAdd
	}
	// Add, Subtract, ReverseSubtract, Min, Max share values 1..5
	return native.BlendOp(op)
}

func stencilOp(op gputypes.StencilOperation) native.StencilOp {
	switch op {
	case gputypes.StencilOperationZero:
		return native.StencilOpZero
	case gputypes.StencilOperationReplace:
		return native.StencilOpReplace
	case gputypes.StencilOperationInvert:
		return native.StencilOpInvert
	case gputypes.StencilOperationIncrementClamp:
		return native.StencilOpIncrSat
	case gputypes.StencilOperationDecrementClamp:
		return native.StencilOpDecrSat
	case gputypes.StencilOperationIncrementWrap:
		return native.StencilOpIncr
	case gputypes.StencilOperationDecrementWrap:
		return native.StencilOpDecr
	default:
		return native.StencilOpKeep
	}
}

func stencilFace(s gputypes.StencilFaceState) native.DepthStencilOpDesc {
	return native.DepthStencilOpDesc{
		StencilFailOp:      stencilOp(s.FailOp),
		StencilDepthFailOp: stencilOp(s.DepthFailOp),
		StencilPassOp:      stencilOp(s.PassOp),
		StencilFunc:        compareFunc(s.Compare, native.ComparisonFuncAlways),
	}
}

func cullMode(m gputypes.CullMode) native.CullMode {
	switch m {
	case gputypes.CullModeFront:
		return native.CullModeFront
	case gputypes.CullModeBack:
		return native.CullModeBack
	default:
		return native.CullModeNone
	}
}

func fillMode(m metadata.PolygonMode) native.FillMode {
	if m == metadata.PolygonModeLine {
		return native.FillModeWireframe
	}
	return native.FillModeSolid
}

// primitiveTopology splits a topology into the coarse class baked into the
// pipeline and the exact value set on the command list.
func primitiveTopology(t metadata.PrimitiveTopology, controlPoints uint32) (native.PrimitiveTopologyType, native.PrimitiveTopology, error) {
	switch t {
	case metadata.PrimitiveTopologyPointList:
		return native.PrimitiveTopologyTypePoint, native.PrimitiveTopologyPointList, nil
	case metadata.PrimitiveTopologyLineList:
		return native.PrimitiveTopologyTypeLine, native.PrimitiveTopologyLineList, nil
	case metadata.PrimitiveTopologyLineStrip:
		return native.PrimitiveTopologyTypeLine, native.PrimitiveTopologyLineStrip, nil
	case metadata.PrimitiveTopologyTriangleList:
		return native.PrimitiveTopologyTypeTriangle, native.PrimitiveTopologyTriangleList, nil
	case metadata.PrimitiveTopologyTriangleStrip:
		return native.PrimitiveTopologyTypeTriangle, native.PrimitiveTopologyTriangleStrip, nil
	case metadata.PrimitiveTopologyLineListAdjacency:
		return native.PrimitiveTopologyTypeLine, native.PrimitiveTopologyLineListAdj, nil
	case metadata.PrimitiveTopologyLineStripAdjacency:
		return native.PrimitiveTopologyTypeLine, native.PrimitiveTopologyLineStripAdj, nil
	case metadata.PrimitiveTopologyTriangleListAdjacency:
		return native.PrimitiveTopologyTypeTriangle, native.PrimitiveTopologyTriangleListAdj, nil
	case metadata.PrimitiveTopologyTriangleStripAdjacency:
		return native.PrimitiveTopologyTypeTriangle, native.PrimitiveTopologyTriangleStripAdj, nil
	case metadata.PrimitiveTopologyPatchList:
		if controlPoints == 0 || controlPoints > native.MaxPatchControlPoints {
			return 0, 0, errors.Wrapf(ErrInvalidTopology, "patch list with %d control points", controlPoints)
		}
		return native.PrimitiveTopologyTypePatch, native.PrimitiveTopologyPatchListBase + native.PrimitiveTopology(controlPoints), nil
	}
	return 0, 0, errors.Wrapf(ErrInvalidTopology, "topology %s", t)
}

func commandListType(q metadata.QueueType) native.CommandListType {
	switch q {
	case metadata.QueueTypeCompute:
		return native.CommandListTypeCompute
	case metadata.QueueTypeCopy:
		return native.CommandListTypeCopy
	default:
		return native.CommandListTypeDirect
	}
}
