package native

// CPUDescriptorHandle addresses a descriptor slot from the host.
type CPUDescriptorHandle struct {
	Ptr uintptr
}

func (h CPUDescriptorHandle) Offset(index, incrementSize uint32) CPUDescriptorHandle {
	return CPUDescriptorHandle{Ptr: h.Ptr + uintptr(index)*uintptr(incrementSize)}
}

// GPUDescriptorHandle addresses a descriptor slot of a shader-visible heap.
type GPUDescriptorHandle struct {
	Ptr uint64
}

func (h GPUDescriptorHandle) Offset(index, incrementSize uint32) GPUDescriptorHandle {
	return GPUDescriptorHandle{Ptr: h.Ptr + uint64(index)*uint64(incrementSize)}
}

type DescriptorHeapType uint32

const (
	DescriptorHeapTypeCbvSrvUav DescriptorHeapType = 0
	DescriptorHeapTypeSampler   DescriptorHeapType = 1
	DescriptorHeapTypeRtv       DescriptorHeapType = 2
	DescriptorHeapTypeDsv       DescriptorHeapType = 3
)

func (t DescriptorHeapType) String() string {
	switch t {
	case DescriptorHeapTypeCbvSrvUav:
		return "CBV_SRV_UAV"
	case DescriptorHeapTypeSampler:
		return "SAMPLER"
	case DescriptorHeapTypeRtv:
		return "RTV"
	case DescriptorHeapTypeDsv:
		return "DSV"
	}
	return "UNKNOWN"
}

type DescriptorHeapDesc struct {
	Type           DescriptorHeapType
	NumDescriptors uint32
	ShaderVisible  bool
}

type DescriptorRangeType uint32

const (
	DescriptorRangeTypeSRV     DescriptorRangeType = 0
	DescriptorRangeTypeUAV     DescriptorRangeType = 1
	DescriptorRangeTypeCBV     DescriptorRangeType = 2
	DescriptorRangeTypeSampler DescriptorRangeType = 3
)

func (t DescriptorRangeType) String() string {
	switch t {
	case DescriptorRangeTypeSRV:
		return "SRV"
	case DescriptorRangeTypeUAV:
		return "UAV"
	case DescriptorRangeTypeCBV:
		return "CBV"
	case DescriptorRangeTypeSampler:
		return "SAMPLER"
	}
	return "UNKNOWN"
}

type DescriptorRange struct {
	RangeType                         DescriptorRangeType
	NumDescriptors                    uint32
	BaseShaderRegister                uint32
	RegisterSpace                     uint32
	OffsetInDescriptorsFromTableStart uint32
}

type RootParameterType uint32

const (
	RootParameterTypeDescriptorTable RootParameterType = 0
	RootParameterType32BitConstants  RootParameterType = 1
	RootParameterTypeCBV             RootParameterType = 2
	RootParameterTypeSRV             RootParameterType = 3
	RootParameterTypeUAV             RootParameterType = 4
)

func (t RootParameterType) String() string {
	switch t {
	case RootParameterTypeDescriptorTable:
		return "DescriptorTable"
	case RootParameterType32BitConstants:
		return "32BitConstants"
	case RootParameterTypeCBV:
		return "CBV"
	case RootParameterTypeSRV:
		return "SRV"
	case RootParameterTypeUAV:
		return "UAV"
	}
	return "Unknown"
}

type ShaderVisibility uint32

const (
	ShaderVisibilityAll           ShaderVisibility = 0
	ShaderVisibilityVertex        ShaderVisibility = 1
	ShaderVisibilityHull          ShaderVisibility = 2
	ShaderVisibilityDomain        ShaderVisibility = 3
	ShaderVisibilityGeometry      ShaderVisibility = 4
	ShaderVisibilityPixel         ShaderVisibility = 5
	ShaderVisibilityAmplification ShaderVisibility = 6
	ShaderVisibilityMesh          ShaderVisibility = 7
)

type RootConstants struct {
	ShaderRegister uint32
	RegisterSpace  uint32
	Num32BitValues uint32
}

type RootDescriptor struct {
	ShaderRegister uint32
	RegisterSpace  uint32
}

// RootParameter is one root signature slot. Only the member selected by
// ParameterType is read.
type RootParameter struct {
	ParameterType    RootParameterType
	DescriptorTable  []DescriptorRange
	Constants        RootConstants
	Descriptor       RootDescriptor
	ShaderVisibility ShaderVisibility
}

// MaxRootSignatureDWords is the size limit of a root signature.
const MaxRootSignatureDWords = 64

// DWords returns how much of the root signature budget the parameter uses.
func (p *RootParameter) DWords() uint32 {
	switch p.ParameterType {
	case RootParameterTypeDescriptorTable:
		return 1
	case RootParameterType32BitConstants:
		return p.Constants.Num32BitValues
	default:
		return 2
	}
}

type Filter uint32

const (
	FilterMinMagMipPoint        Filter = 0
	FilterMinMagLinearMipPoint  Filter = 0x14
	FilterMinMagMipLinear       Filter = 0x15
	FilterAnisotropic           Filter = 0x55
	FilterComparisonBit         Filter = 0x80
	FilterComparisonAnisotropic Filter = 0xD5
	FilterTypePoint             Filter = 0
	FilterTypeLinear            Filter = 1
	filterTypeMask              Filter = 0x3
)

const (
	filterMinShift = 4
	filterMagShift = 2
	filterMipShift = 0
)

// EncodeBasicFilter packs min/mag/mip filter types the way the native API does.
func EncodeBasicFilter(min, mag, mip Filter, comparison bool) Filter {
	f := (min&filterTypeMask)<<filterMinShift | (mag&filterTypeMask)<<filterMagShift | (mip&filterTypeMask)<<filterMipShift
	if comparison {
		f |= FilterComparisonBit
	}
	return f
}

type TextureAddressMode uint32

const (
	TextureAddressModeWrap       TextureAddressMode = 1
	TextureAddressModeMirror     TextureAddressMode = 2
	TextureAddressModeClamp      TextureAddressMode = 3
	TextureAddressModeBorder     TextureAddressMode = 4
	TextureAddressModeMirrorOnce TextureAddressMode = 5
)

type ComparisonFunc uint32

const (
	ComparisonFuncNever        ComparisonFunc = 1
	ComparisonFuncLess         ComparisonFunc = 2
	ComparisonFuncEqual        ComparisonFunc = 3
	ComparisonFuncLessEqual    ComparisonFunc = 4
	ComparisonFuncGreater      ComparisonFunc = 5
	ComparisonFuncNotEqual     ComparisonFunc = 6
	ComparisonFuncGreaterEqual ComparisonFunc = 7
	ComparisonFuncAlways       ComparisonFunc = 8
)

type StaticBorderColor uint32

const (
	StaticBorderColorTransparentBlack StaticBorderColor = 0
	StaticBorderColorOpaqueBlack      StaticBorderColor = 1
	StaticBorderColorOpaqueWhite      StaticBorderColor = 2
)

type SamplerDesc struct {
	Filter         Filter
	AddressU       TextureAddressMode
	AddressV       TextureAddressMode
	AddressW       TextureAddressMode
	MipLODBias     float32
	MaxAnisotropy  uint32
	ComparisonFunc ComparisonFunc
	BorderColor    [4]float32
	MinLOD         float32
	MaxLOD         float32
}

type StaticSamplerDesc struct {
	Filter           Filter
	AddressU         TextureAddressMode
	AddressV         TextureAddressMode
	AddressW         TextureAddressMode
	MipLODBias       float32
	MaxAnisotropy    uint32
	ComparisonFunc   ComparisonFunc
	BorderColor      StaticBorderColor
	MinLOD           float32
	MaxLOD           float32
	ShaderRegister   uint32
	RegisterSpace    uint32
	ShaderVisibility ShaderVisibility
}

type RootSignatureFlags uint32

const (
	RootSignatureFlagNone                           RootSignatureFlags = 0
	RootSignatureFlagAllowInputAssemblerInputLayout RootSignatureFlags = 0x1
)

type RootSignatureDesc struct {
	Parameters     []RootParameter
	StaticSamplers []StaticSamplerDesc
	Flags          RootSignatureFlags
}

// DWords returns the total root signature cost of the parameters.
func (d *RootSignatureDesc) DWords() uint32 {
	var total uint32
	for i := range d.Parameters {
		total += d.Parameters[i].DWords()
	}
	return total
}

// Format mirrors DXGI_FORMAT.
type Format uint32

const (
	FormatUnknown               Format = 0
	FormatR32G32B32A32Float     Format = 2
	FormatR32G32B32A32Uint      Format = 3
	FormatR32G32B32A32Sint      Format = 4
	FormatR32G32B32Float        Format = 6
	FormatR32G32B32Uint         Format = 7
	FormatR32G32B32Sint         Format = 8
	FormatR16G16B16A16Float     Format = 10
	FormatR16G16B16A16Unorm     Format = 11
	FormatR16G16B16A16Uint      Format = 12
	FormatR16G16B16A16Snorm     Format = 13
	FormatR16G16B16A16Sint      Format = 14
	FormatR32G32Float           Format = 16
	FormatR32G32Uint            Format = 17
	FormatR32G32Sint            Format = 18
	FormatR32G8X24Typeless      Format = 19
	FormatD32FloatS8X24Uint     Format = 20
	FormatR32FloatX8X24Typeless Format = 21
	FormatR10G10B10A2Unorm      Format = 24
	FormatR10G10B10A2Uint       Format = 25
	FormatR11G11B10Float        Format = 26
	FormatR8G8B8A8Unorm         Format = 28
	FormatR8G8B8A8UnormSrgb     Format = 29
	FormatR8G8B8A8Uint          Format = 30
	FormatR8G8B8A8Snorm         Format = 31
	FormatR8G8B8A8Sint          Format = 32
	FormatR16G16Float           Format = 34
	FormatR16G16Unorm           Format = 35
	FormatR16G16Uint            Format = 36
	FormatR16G16Snorm           Format = 37
	FormatR16G16Sint            Format = 38
	FormatR32Typeless           Format = 39
	FormatD32Float              Format = 40
	FormatR32Float              Format = 41
	FormatR32Uint               Format = 42
	FormatR32Sint               Format = 43
	FormatR24G8Typeless         Format = 44
	FormatD24UnormS8Uint        Format = 45
	FormatR24UnormX8Typeless    Format = 46
	FormatR8G8Unorm             Format = 49
	FormatR8G8Uint              Format = 50
	FormatR8G8Snorm             Format = 51
	FormatR8G8Sint              Format = 52
	FormatR16Float              Format = 54
	FormatR16Typeless           Format = 53
	FormatD16Unorm              Format = 55
	FormatR16Unorm              Format = 56
	FormatR16Uint               Format = 57
	FormatR16Snorm              Format = 58
	FormatR16Sint               Format = 59
	FormatR8Unorm               Format = 61
	FormatR8Uint                Format = 62
	FormatR8Snorm               Format = 63
	FormatR8Sint                Format = 64
	FormatB8G8R8A8Unorm         Format = 87
	FormatB8G8R8A8UnormSrgb     Format = 91
	FormatR9G9B9E5SharedExp     Format = 67
	FormatBC1Unorm              Format = 71
	FormatBC1UnormSrgb          Format = 72
	FormatBC2Unorm              Format = 74
	FormatBC2UnormSrgb          Format = 75
	FormatBC3Unorm              Format = 77
	FormatBC3UnormSrgb          Format = 78
	FormatBC4Unorm              Format = 80
	FormatBC4Snorm              Format = 81
	FormatBC5Unorm              Format = 83
	FormatBC5Snorm              Format = 84
	FormatBC6HUF16              Format = 95
	FormatBC6HSF16              Format = 96
	FormatBC7Unorm              Format = 98
	FormatBC7UnormSrgb          Format = 99
)

type InputClassification uint32

const (
	InputClassificationPerVertexData   InputClassification = 0
	InputClassificationPerInstanceData InputClassification = 1
)

type InputElementDesc struct {
	SemanticName         string
	SemanticIndex        uint32
	Format               Format
	InputSlot            uint32
	AlignedByteOffset    uint32
	InputSlotClass       InputClassification
	InstanceDataStepRate uint32
}

type FillMode uint32

const (
	FillModeWireframe FillMode = 2
	FillModeSolid     FillMode = 3
)

type CullMode uint32

const (
	CullModeNone  CullMode = 1
	CullModeFront CullMode = 2
	CullModeBack  CullMode = 3
)

type RasterizerDesc struct {
	FillMode              FillMode
	CullMode              CullMode
	FrontCounterClockwise bool
	DepthBias             int32
	DepthBiasClamp        float32
	SlopeScaledDepthBias  float32
	DepthClipEnable       bool
	MultisampleEnable     bool
	AntialiasedLineEnable bool
	ForcedSampleCount     uint32
	ConservativeRaster    bool
}

type Blend uint32

const (
	BlendZero           Blend = 1
	BlendOne            Blend = 2
	BlendSrcColor       Blend = 3
	BlendInvSrcColor    Blend = 4
	BlendSrcAlpha       Blend = 5
	BlendInvSrcAlpha    Blend = 6
	BlendDestAlpha      Blend = 7
	BlendInvDestAlpha   Blend = 8
	BlendDestColor      Blend = 9
	BlendInvDestColor   Blend = 10
	BlendSrcAlphaSat    Blend = 11
	BlendBlendFactor    Blend = 14
	BlendInvBlendFactor Blend = 15
)

type BlendOp uint32

const (
	BlendOpAdd         BlendOp = 1
	BlendOpSubtract    BlendOp = 2
	BlendOpRevSubtract BlendOp = 3
	BlendOpMin         BlendOp = 4
	BlendOpMax         BlendOp = 5
)

const ColorWriteEnableAll uint8 = 0xF

// SimultaneousRenderTargetCount is the number of render target slots.
const SimultaneousRenderTargetCount = 8

type RenderTargetBlendDesc struct {
	BlendEnable           bool
	SrcBlend              Blend
	DestBlend             Blend
	BlendOp               BlendOp
	SrcBlendAlpha         Blend
	DestBlendAlpha        Blend
	BlendOpAlpha          BlendOp
	RenderTargetWriteMask uint8
}

type BlendDesc struct {
	AlphaToCoverageEnable  bool
	IndependentBlendEnable bool
	RenderTarget           [SimultaneousRenderTargetCount]RenderTargetBlendDesc
}

type DepthWriteMask uint32

const (
	DepthWriteMaskZero DepthWriteMask = 0
	DepthWriteMaskAll  DepthWriteMask = 1
)

type StencilOp uint32

const (
	StencilOpKeep    StencilOp = 1
	StencilOpZero    StencilOp = 2
	StencilOpReplace StencilOp = 3
	StencilOpIncrSat StencilOp = 4
	StencilOpDecrSat StencilOp = 5
	StencilOpInvert  StencilOp = 6
	StencilOpIncr    StencilOp = 7
	StencilOpDecr    StencilOp = 8
)

type DepthStencilOpDesc struct {
	StencilFailOp      StencilOp
	StencilDepthFailOp StencilOp
	StencilPassOp      StencilOp
	StencilFunc        ComparisonFunc
}

type DepthStencilDesc struct {
	DepthEnable      bool
	DepthWriteMask   DepthWriteMask
	DepthFunc        ComparisonFunc
	StencilEnable    bool
	StencilReadMask  uint8
	StencilWriteMask uint8
	FrontFace        DepthStencilOpDesc
	BackFace         DepthStencilOpDesc
}

type PrimitiveTopologyType uint32

const (
	PrimitiveTopologyTypeUndefined PrimitiveTopologyType = 0
	PrimitiveTopologyTypePoint     PrimitiveTopologyType = 1
	PrimitiveTopologyTypeLine      PrimitiveTopologyType = 2
	PrimitiveTopologyTypeTriangle  PrimitiveTopologyType = 3
	PrimitiveTopologyTypePatch     PrimitiveTopologyType = 4
)

// PrimitiveTopology is the fine-grained topology set on the command list.
type PrimitiveTopology uint32

const (
	PrimitiveTopologyUndefined        PrimitiveTopology = 0
	PrimitiveTopologyPointList        PrimitiveTopology = 1
	PrimitiveTopologyLineList         PrimitiveTopology = 2
	PrimitiveTopologyLineStrip        PrimitiveTopology = 3
	PrimitiveTopologyTriangleList     PrimitiveTopology = 4
	PrimitiveTopologyTriangleStrip    PrimitiveTopology = 5
	PrimitiveTopologyLineListAdj      PrimitiveTopology = 10
	PrimitiveTopologyLineStripAdj     PrimitiveTopology = 11
	PrimitiveTopologyTriangleListAdj  PrimitiveTopology = 12
	PrimitiveTopologyTriangleStripAdj PrimitiveTopology = 13
	// patch lists with N control points are PrimitiveTopologyPatchListBase + N
	PrimitiveTopologyPatchListBase PrimitiveTopology = 32
)

const MaxPatchControlPoints = 32

type IndexBufferStripCutValue uint32

const (
	IndexBufferStripCutValueDisabled   IndexBufferStripCutValue = 0
	IndexBufferStripCutValue0xFFFF     IndexBufferStripCutValue = 1
	IndexBufferStripCutValue0xFFFFFFFF IndexBufferStripCutValue = 2
)

type SampleDesc struct {
	Count   uint32
	Quality uint32
}

type GraphicsPipelineStateDesc struct {
	RootSignature         RootSignature
	VS                    []byte
	PS                    []byte
	DS                    []byte
	HS                    []byte
	GS                    []byte
	BlendState            BlendDesc
	SampleMask            uint32
	RasterizerState       RasterizerDesc
	DepthStencilState     DepthStencilDesc
	InputLayout           []InputElementDesc
	IBStripCutValue       IndexBufferStripCutValue
	PrimitiveTopologyType PrimitiveTopologyType
	NumRenderTargets      uint32
	RTVFormats            [SimultaneousRenderTargetCount]Format
	DSVFormat             Format
	SampleDesc            SampleDesc
	CachedPSO             []byte
}

type ComputePipelineStateDesc struct {
	RootSignature RootSignature
	CS            []byte
	CachedPSO     []byte
}

type ConstantBufferViewDesc struct {
	BufferLocation uint64
	SizeInBytes    uint32
}

// ConstantBufferAlignment is the required size alignment of a constant buffer view.
const ConstantBufferAlignment = 256

// DefaultShader4ComponentMapping maps RGBA to RGBA.
const DefaultShader4ComponentMapping = 0x1688

type SRVDimension uint32

const (
	SRVDimensionBuffer         SRVDimension = 1
	SRVDimensionTexture2D      SRVDimension = 4
	SRVDimensionTexture2DArray SRVDimension = 5
)

type UAVDimension uint32

const (
	UAVDimensionBuffer         UAVDimension = 1
	UAVDimensionTexture2D      UAVDimension = 4
	UAVDimensionTexture2DArray UAVDimension = 5
)

type BufferViewFlags uint32

const (
	BufferViewFlagNone BufferViewFlags = 0
	BufferViewFlagRaw  BufferViewFlags = 1
)

type BufferSRV struct {
	FirstElement        uint64
	NumElements         uint32
	StructureByteStride uint32
	Flags               BufferViewFlags
}

type TextureSRV struct {
	MostDetailedMip     uint32
	MipLevels           uint32
	FirstArraySlice     uint32
	ArraySize           uint32
	PlaneSlice          uint32
	ResourceMinLODClamp float32
}

type ShaderResourceViewDesc struct {
	Format                  Format
	ViewDimension           SRVDimension
	Shader4ComponentMapping uint32
	Buffer                  BufferSRV
	Texture                 TextureSRV
}

type BufferUAV struct {
	FirstElement         uint64
	NumElements          uint32
	StructureByteStride  uint32
	CounterOffsetInBytes uint64
	Flags                BufferViewFlags
}

type TextureUAV struct {
	MipSlice        uint32
	FirstArraySlice uint32
	ArraySize       uint32
	PlaneSlice      uint32
}

type UnorderedAccessViewDesc struct {
	Format        Format
	ViewDimension UAVDimension
	Buffer        BufferUAV
	Texture       TextureUAV
}

type HeapType uint32

const (
	HeapTypeDefault  HeapType = 1
	HeapTypeUpload   HeapType = 2
	HeapTypeReadback HeapType = 3
)

type ResourceDimension uint32

const (
	ResourceDimensionBuffer    ResourceDimension = 1
	ResourceDimensionTexture2D ResourceDimension = 3
)

type TextureLayout uint32

const (
	TextureLayoutUnknown  TextureLayout = 0
	TextureLayoutRowMajor TextureLayout = 1
)

type ResourceFlags uint32

const (
	ResourceFlagNone                 ResourceFlags = 0
	ResourceFlagAllowRenderTarget    ResourceFlags = 1
	ResourceFlagAllowDepthStencil    ResourceFlags = 2
	ResourceFlagAllowUnorderedAccess ResourceFlags = 4
)

type ResourceStates uint32

const (
	ResourceStateCommon      ResourceStates = 0
	ResourceStateCopyDest    ResourceStates = 0x400
	ResourceStateGenericRead ResourceStates = 0x1 | 0x2 | 0x40 | 0x80 | 0x200 | 0x800
)

type ResourceDesc struct {
	Dimension        ResourceDimension
	Alignment        uint64
	Width            uint64
	Height           uint32
	DepthOrArraySize uint16
	MipLevels        uint16
	Format           Format
	SampleDesc       SampleDesc
	Layout           TextureLayout
	Flags            ResourceFlags
}

type CommandListType uint32

const (
	CommandListTypeDirect  CommandListType = 0
	CommandListTypeCompute CommandListType = 2
	CommandListTypeCopy    CommandListType = 3
)

type MultipleFenceWaitFlags uint32

const (
	MultipleFenceWaitAll MultipleFenceWaitFlags = 0
	MultipleFenceWaitAny MultipleFenceWaitFlags = 1
)
