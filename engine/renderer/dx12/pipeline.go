package dx12

import (
	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-dx12/engine/containers"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

// VertexSemanticName is the semantic every vertex attribute is bound
// through; the attribute location is the semantic index.
const VertexSemanticName = "ATTRIBUTE"

type GraphicsPipelineDesc struct {
	Label         string
	Layout        *PipelineLayout
	Shaders       []metadata.ShaderBinary
	VertexInput   metadata.VertexInputState
	InputAssembly metadata.InputAssemblyState
	Rasterizer    metadata.RasterizerState
	DepthStencil  metadata.DepthStencilState
	Blend         metadata.BlendState
	ColorFormats  []gputypes.TextureFormat
	// DepthStencilFormat is TextureFormatUndefined when there is no depth target.
	DepthStencilFormat gputypes.TextureFormat
}

type ComputePipelineDesc struct {
	Label  string
	Layout *PipelineLayout
	Shader metadata.ShaderBinary
}

// GraphicsPipeline carries the state the native pipeline object cannot hold
// and that has to be set on the command list when it is bound.
type GraphicsPipeline struct {
	id     uuid.UUID
	label  string
	layout *PipelineLayout
	native native.PipelineState

	vertexStrides [metadata.MaxVertexBindings]uint32
	topology      native.PrimitiveTopology
	depthBounds   *metadata.DepthBounds
}

func (p *GraphicsPipeline) ID() uuid.UUID {
	return p.id
}

func (p *GraphicsPipeline) Label() string {
	return p.label
}

func (p *GraphicsPipeline) Layout() *PipelineLayout {
	return p.layout
}

func (p *GraphicsPipeline) Native() native.PipelineState {
	return p.native
}

// VertexStrides is indexed by vertex buffer binding.
func (p *GraphicsPipeline) VertexStrides() [metadata.MaxVertexBindings]uint32 {
	return p.vertexStrides
}

func (p *GraphicsPipeline) Topology() native.PrimitiveTopology {
	return p.topology
}

// DepthBounds reports the bounds to set when the pipeline is bound. ok is
// false when the depth bounds test is disabled.
func (p *GraphicsPipeline) DepthBounds() (bounds metadata.DepthBounds, ok bool) {
	if p.depthBounds == nil {
		return metadata.DepthBounds{}, false
	}
	return *p.depthBounds, true
}

func (p *GraphicsPipeline) Destroy() {
	if p.native != nil {
		p.native.Release()
		p.native = nil
	}
}

type ComputePipeline struct {
	id     uuid.UUID
	label  string
	layout *PipelineLayout
	native native.PipelineState
}

func (p *ComputePipeline) ID() uuid.UUID {
	return p.id
}

func (p *ComputePipeline) Label() string {
	return p.label
}

func (p *ComputePipeline) Layout() *PipelineLayout {
	return p.layout
}

func (p *ComputePipeline) Native() native.PipelineState {
	return p.native
}

func (p *ComputePipeline) Destroy() {
	if p.native != nil {
		p.native.Release()
		p.native = nil
	}
}

// assignGraphicsStages places each binary in its stage slot.
func assignGraphicsStages(out *native.GraphicsPipelineStateDesc, shaders []metadata.ShaderBinary) error {
	for i := range shaders {
		sh := &shaders[i]
		if sh.Format != metadata.ShaderFormatDXIL {
			return errors.Wrapf(ErrUnsupportedShaderFormat, "%s shader is %s", sh.Stage, sh.Format)
		}
		var slot *[]byte
		switch sh.Stage {
		case metadata.ShaderStageVertex:
			slot = &out.VS
		case metadata.ShaderStageHull:
			slot = &out.HS
		case metadata.ShaderStageDomain:
			slot = &out.DS
		case metadata.ShaderStageGeometry:
			slot = &out.GS
		case metadata.ShaderStageFragment:
			slot = &out.PS
		case metadata.ShaderStageCompute:
			return errors.Wrap(ErrWrongPipelineType, "compute shader in a graphics pipeline")
		case metadata.ShaderStageAmplification, metadata.ShaderStageMesh:
			return errors.Wrapf(ErrMeshShadersUnimplemented, "%s shader", sh.Stage)
		default:
			return errors.Newf("shader %d has stage mask %s, expected a single stage", i, sh.Stage)
		}
		if *slot != nil {
			return errors.Newf("more than one %s shader", sh.Stage)
		}
		*slot = sh.Code
	}
	if len(out.VS) == 0 {
		return errors.Wrap(ErrMissingShaderStage, "graphics pipeline needs a vertex shader")
	}
	if (len(out.HS) == 0) != (len(out.DS) == 0) {
		return errors.Wrap(ErrMissingShaderStage, "hull and domain shaders come together")
	}
	return nil
}

// buildInputLayout flattens attributes into input elements and collects the
// per-binding strides the command list needs when vertex buffers are bound.
func buildInputLayout(s *containers.Scratch, in *metadata.VertexInputState) ([]native.InputElementDesc, [metadata.MaxVertexBindings]uint32, error) {
	var strides [metadata.MaxVertexBindings]uint32
	var declared [metadata.MaxVertexBindings]*metadata.VertexBufferLayout
	for i := range in.Buffers {
		b := &in.Buffers[i]
		if b.Binding >= metadata.MaxVertexBindings {
			return nil, strides, errors.Wrapf(ErrInvalidVertexInput, "vertex binding %d, limit is %d",
				b.Binding, metadata.MaxVertexBindings)
		}
		if declared[b.Binding] != nil {
			return nil, strides, errors.Wrapf(ErrInvalidVertexInput, "vertex binding %d declared twice", b.Binding)
		}
		declared[b.Binding] = b
		strides[b.Binding] = b.Stride
	}

	elements := containers.Alloc[native.InputElementDesc](s, len(in.Attributes))
	for i := range in.Attributes {
		a := &in.Attributes[i]
		if a.Binding >= metadata.MaxVertexBindings || declared[a.Binding] == nil {
			return nil, strides, errors.Wrapf(ErrInvalidVertexInput,
				"attribute %d reads undeclared binding %d", a.Location, a.Binding)
		}
		format, err := vertexFormat(a.Format)
		if err != nil {
			return nil, strides, errors.Wrapf(err, "attribute %d", a.Location)
		}
		el := native.InputElementDesc{
			SemanticName:      VertexSemanticName,
			SemanticIndex:     a.Location,
			Format:            format,
			InputSlot:         a.Binding,
			AlignedByteOffset: a.Offset,
			InputSlotClass:    native.InputClassificationPerVertexData,
		}
		if declared[a.Binding].StepMode == gputypes.VertexStepModeInstance {
			el.InputSlotClass = native.InputClassificationPerInstanceData
			el.InstanceDataStepRate = 1
		}
		elements[i] = el
	}
	return elements, strides, nil
}

func buildBlendDesc(rs *metadata.RasterizerState, bs *metadata.BlendState, targets int) native.BlendDesc {
	desc := native.BlendDesc{
		AlphaToCoverageEnable:  rs.AlphaToCoverageEnable,
		IndependentBlendEnable: targets > 1,
	}
	for i := range desc.RenderTarget {
		rt := &desc.RenderTarget[i]
		*rt = native.RenderTargetBlendDesc{
			SrcBlend:              native.BlendOne,
			DestBlend:             native.BlendZero,
			BlendOp:               native.BlendOpAdd,
			SrcBlendAlpha:         native.BlendOne,
			DestBlendAlpha:        native.BlendZero,
			BlendOpAlpha:          native.BlendOpAdd,
			RenderTargetWriteMask: native.ColorWriteEnableAll,
		}
		if i >= targets || i >= len(bs.Attachments) {
			continue
		}
		a := &bs.Attachments[i]
		rt.BlendEnable = a.BlendEnable
		rt.SrcBlend = blendFactor(a.Color.SrcFactor, native.BlendOne)
		rt.DestBlend = blendFactor(a.Color.DstFactor, native.BlendZero)
		rt.BlendOp = blendOp(a.Color.Operation)
		rt.SrcBlendAlpha = alphaBlendFactor(a.Alpha.SrcFactor, native.BlendOne)
		rt.DestBlendAlpha = alphaBlendFactor(a.Alpha.DstFactor, native.BlendZero)
		rt.BlendOpAlpha = blendOp(a.Alpha.Operation)
		rt.RenderTargetWriteMask = uint8(a.WriteMask) & native.ColorWriteEnableAll
	}
	return desc
}

func buildRasterizerDesc(rs *metadata.RasterizerState) native.RasterizerDesc {
	return native.RasterizerDesc{
		FillMode:              fillMode(rs.PolygonMode),
		CullMode:              cullMode(rs.CullMode),
		FrontCounterClockwise: rs.FrontFace == gputypes.FrontFaceCCW,
		DepthBias:             rs.DepthBias,
		DepthBiasClamp:        rs.DepthBiasClamp,
		SlopeScaledDepthBias:  rs.SlopeScaledDepthBias,
		DepthClipEnable:       rs.DepthClipEnable,
		MultisampleEnable:     rs.SampleCount > 1,
		ConservativeRaster:    rs.ConservativeRaster,
	}
}

func buildDepthStencilDesc(ds *metadata.DepthStencilState) native.DepthStencilDesc {
	desc := native.DepthStencilDesc{
		DepthEnable:      ds.DepthTestEnable,
		DepthWriteMask:   native.DepthWriteMaskZero,
		DepthFunc:        compareFunc(ds.DepthCompare, native.ComparisonFuncAlways),
		StencilEnable:    ds.StencilTestEnable,
		StencilReadMask:  ds.StencilReadMask,
		StencilWriteMask: ds.StencilWriteMask,
		FrontFace:        stencilFace(ds.StencilFront),
		BackFace:         stencilFace(ds.StencilBack),
	}
	if ds.DepthWriteEnable {
		desc.DepthWriteMask = native.DepthWriteMaskAll
	}
	return desc
}

// buildGraphicsPipeline translates desc into a native pipeline description
// plus the state kept on the pipeline object. Arrays in the returned
// description live in s.
func buildGraphicsPipeline(s *containers.Scratch, desc *GraphicsPipelineDesc) (*native.GraphicsPipelineStateDesc, *GraphicsPipeline, error) {
	if desc.Layout == nil {
		return nil, nil, errors.Newf("graphics pipeline %q has no layout", desc.Label)
	}
	if len(desc.ColorFormats) > metadata.MaxColorAttachments {
		return nil, nil, errors.Wrapf(ErrTooManyRenderTargets, "%d color targets, limit is %d",
			len(desc.ColorFormats), metadata.MaxColorAttachments)
	}

	out := &native.GraphicsPipelineStateDesc{
		RootSignature: desc.Layout.rootSignature,
		SampleMask:    ^uint32(0),
	}
	if err := assignGraphicsStages(out, desc.Shaders); err != nil {
		return nil, nil, err
	}

	inputLayout, strides, err := buildInputLayout(s, &desc.VertexInput)
	if err != nil {
		return nil, nil, err
	}
	out.InputLayout = inputLayout

	topologyType, topology, err := primitiveTopology(desc.InputAssembly.Topology, desc.InputAssembly.PatchControlPoints)
	if err != nil {
		return nil, nil, err
	}
	if (topologyType == native.PrimitiveTopologyTypePatch) != (len(out.HS) > 0) {
		return nil, nil, errors.Wrap(ErrInvalidTopology, "patch topology and tessellation shaders come together")
	}
	out.PrimitiveTopologyType = topologyType
	if desc.InputAssembly.PrimitiveRestart {
		out.IBStripCutValue = native.IndexBufferStripCutValue0xFFFFFFFF
	}

	for i, f := range desc.ColorFormats {
		nf, err := textureFormat(f)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "color target %d", i)
		}
		out.RTVFormats[i] = nf
	}
	out.NumRenderTargets = uint32(len(desc.ColorFormats))
	if desc.DepthStencilFormat != gputypes.TextureFormatUndefined {
		if !desc.DepthStencilFormat.HasDepth() {
			return nil, nil, errors.Wrapf(ErrUnsupportedFormat, "%s is not a depth format", desc.DepthStencilFormat)
		}
		if out.DSVFormat, err = textureFormat(desc.DepthStencilFormat); err != nil {
			return nil, nil, err
		}
	}

	out.SampleDesc = native.SampleDesc{Count: max(desc.Rasterizer.SampleCount, 1)}
	out.RasterizerState = buildRasterizerDesc(&desc.Rasterizer)
	out.DepthStencilState = buildDepthStencilDesc(&desc.DepthStencil)
	out.BlendState = buildBlendDesc(&desc.Rasterizer, &desc.Blend, len(desc.ColorFormats))

	p := &GraphicsPipeline{
		label:         desc.Label,
		layout:        desc.Layout,
		vertexStrides: strides,
		topology:      topology,
	}
	if desc.DepthStencil.DepthBoundsTestEnable {
		p.depthBounds = &metadata.DepthBounds{
			Min: desc.DepthStencil.MinDepthBounds,
			Max: desc.DepthStencil.MaxDepthBounds,
		}
	}
	return out, p, nil
}

func buildComputePipeline(desc *ComputePipelineDesc) (*native.ComputePipelineStateDesc, *ComputePipeline, error) {
	if desc.Layout == nil {
		return nil, nil, errors.Newf("compute pipeline %q has no layout", desc.Label)
	}
	sh := &desc.Shader
	if sh.Stage != metadata.ShaderStageCompute {
		return nil, nil, errors.Wrapf(ErrUnsupportedShaderFormat, "%s shader in a compute pipeline", sh.Stage)
	}
	if sh.Format != metadata.ShaderFormatDXIL {
		return nil, nil, errors.Wrapf(ErrUnsupportedShaderFormat, "compute shader is %s", sh.Format)
	}
	if len(sh.Code) == 0 {
		return nil, nil, errors.Wrap(ErrMissingShaderStage, "empty compute shader")
	}
	out := &native.ComputePipelineStateDesc{
		RootSignature: desc.Layout.rootSignature,
		CS:            sh.Code,
	}
	return out, &ComputePipeline{label: desc.Label, layout: desc.Layout}, nil
}
