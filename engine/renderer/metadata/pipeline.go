package metadata

import "github.com/gogpu/gputypes"

/** @brief The bytecode container a shader binary is stored in. */
type ShaderFormat int

const (
	ShaderFormatDXIL ShaderFormat = iota
	ShaderFormatSPIRV
)

func (f ShaderFormat) String() string {
	switch f {
	case ShaderFormatDXIL:
		return "DXIL"
	case ShaderFormatSPIRV:
		return "SPIR-V"
	}
	return "Unknown"
}

/** @brief A compiled shader for exactly one stage. */
type ShaderBinary struct {
	Stage      ShaderStageFlags
	Format     ShaderFormat
	EntryPoint string
	Code       []byte
}

/**
 * @brief The full primitive topology, including adjacency and patch lists.
 *
 * Patch lists take their control point count from InputAssemblyState.
 */
type PrimitiveTopology int

const (
	PrimitiveTopologyPointList PrimitiveTopology = iota
	PrimitiveTopologyLineList
	PrimitiveTopologyLineStrip
	PrimitiveTopologyTriangleList
	PrimitiveTopologyTriangleStrip
	PrimitiveTopologyLineListAdjacency
	PrimitiveTopologyLineStripAdjacency
	PrimitiveTopologyTriangleListAdjacency
	PrimitiveTopologyTriangleStripAdjacency
	PrimitiveTopologyPatchList
)

func (t PrimitiveTopology) String() string {
	switch t {
	case PrimitiveTopologyPointList:
		return "PointList"
	case PrimitiveTopologyLineList:
		return "LineList"
	case PrimitiveTopologyLineStrip:
		return "LineStrip"
	case PrimitiveTopologyTriangleList:
		return "TriangleList"
	case PrimitiveTopologyTriangleStrip:
		return "TriangleStrip"
	case PrimitiveTopologyLineListAdjacency:
		return "LineListAdjacency"
	case PrimitiveTopologyLineStripAdjacency:
		return "LineStripAdjacency"
	case PrimitiveTopologyTriangleListAdjacency:
		return "TriangleListAdjacency"
	case PrimitiveTopologyTriangleStripAdjacency:
		return "TriangleStripAdjacency"
	case PrimitiveTopologyPatchList:
		return "PatchList"
	}
	return "Unknown"
}

/** @brief MaxVertexBindings is the number of vertex buffer slots a pipeline can read. */
const MaxVertexBindings = 16

/** @brief MaxColorAttachments is the number of render targets a pipeline can write. */
const MaxColorAttachments = 8

type VertexBufferLayout struct {
	Binding  uint32
	Stride   uint32
	StepMode gputypes.VertexStepMode
}

type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   gputypes.VertexFormat
	Offset   uint32
}

type VertexInputState struct {
	Buffers    []VertexBufferLayout
	Attributes []VertexAttribute
}

type InputAssemblyState struct {
	Topology           PrimitiveTopology
	PatchControlPoints uint32
	PrimitiveRestart   bool
}

type PolygonMode int

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
)

type RasterizerState struct {
	PolygonMode           PolygonMode
	CullMode              gputypes.CullMode
	FrontFace             gputypes.FrontFace
	DepthBias             int32
	DepthBiasClamp        float32
	SlopeScaledDepthBias  float32
	DepthClipEnable       bool
	ConservativeRaster    bool
	SampleCount           uint32
	AlphaToCoverageEnable bool
}

type DepthStencilState struct {
	DepthTestEnable  bool
	DepthWriteEnable bool
	DepthCompare     gputypes.CompareFunction

	StencilTestEnable bool
	StencilReadMask   uint8
	StencilWriteMask  uint8
	StencilFront      gputypes.StencilFaceState
	StencilBack       gputypes.StencilFaceState

	/** @brief Depth bounds are applied at draw time, not baked into the pipeline. */
	DepthBoundsTestEnable bool
	MinDepthBounds        float32
	MaxDepthBounds        float32
}

type ColorAttachmentBlend struct {
	BlendEnable bool
	Color       gputypes.BlendComponent
	Alpha       gputypes.BlendComponent
	WriteMask   gputypes.ColorWriteMask
}

type BlendState struct {
	Attachments []ColorAttachmentBlend
}

/** @brief Depth bounds resolved for a pipeline, to be set on the command list. */
type DepthBounds struct {
	Min float32
	Max float32
}
