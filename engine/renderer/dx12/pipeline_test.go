package dx12

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native/software"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPipelineCache struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	stores int
}

func newMemoryPipelineCache() *memoryPipelineCache {
	return &memoryPipelineCache{blobs: make(map[string][]byte)}
}

func (c *memoryPipelineCache) Load(label string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blobs[label]
}

func (c *memoryPipelineCache) Store(label string, blob []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blobs[label] = blob
	c.stores++
	return nil
}

func dxil(stage metadata.ShaderStageFlags, code []byte) metadata.ShaderBinary {
	return metadata.ShaderBinary{Stage: stage, Format: metadata.ShaderFormatDXIL, EntryPoint: "main", Code: code}
}

func meshPipelineDesc(layout *PipelineLayout) *GraphicsPipelineDesc {
	return &GraphicsPipelineDesc{
		Label:  "mesh",
		Layout: layout,
		Shaders: []metadata.ShaderBinary{
			dxil(metadata.ShaderStageVertex, vertexBytecode),
			dxil(metadata.ShaderStageFragment, fragmentBytecode),
		},
		VertexInput: metadata.VertexInputState{
			Buffers: []metadata.VertexBufferLayout{
				{Binding: 0, Stride: 32},
				{Binding: 3, Stride: 64, StepMode: gputypes.VertexStepModeInstance},
			},
			Attributes: []metadata.VertexAttribute{
				{Location: 0, Binding: 0, Format: gputypes.VertexFormatFloat32x3},
				{Location: 1, Binding: 0, Format: gputypes.VertexFormatFloat32x2, Offset: 12},
				{Location: 2, Binding: 3, Format: gputypes.VertexFormatFloat32x3},
			},
		},
		InputAssembly: metadata.InputAssemblyState{Topology: metadata.PrimitiveTopologyTriangleStrip, PrimitiveRestart: true},
		Rasterizer:    metadata.RasterizerState{CullMode: gputypes.CullModeBack, FrontFace: gputypes.FrontFaceCCW, DepthClipEnable: true},
		DepthStencil: metadata.DepthStencilState{
			DepthTestEnable:       true,
			DepthWriteEnable:      true,
			DepthCompare:          gputypes.CompareFunctionLess,
			DepthBoundsTestEnable: true,
			MinDepthBounds:        0.25,
			MaxDepthBounds:        0.75,
		},
		Blend: metadata.BlendState{Attachments: []metadata.ColorAttachmentBlend{{
			BlendEnable: true,
			Color:       gputypes.BlendComponent{SrcFactor: gputypes.BlendFactorSrcAlpha, DstFactor: gputypes.BlendFactorOneMinusSrcAlpha, Operation: gputypes.BlendOperationAdd},
			Alpha:       gputypes.BlendComponent{SrcFactor: gputypes.BlendFactorOne, DstFactor: gputypes.BlendFactorZero, Operation: gputypes.BlendOperationAdd},
			WriteMask:   gputypes.ColorWriteMaskAll,
		}}},
		ColorFormats:       []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		DepthStencilFormat: gputypes.TextureFormatDepth32Float,
	}
}

func TestCreateGraphicsPipeline(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustPipelineLayout(t, d, mustSetLayout(t, d, uniformAndTextureLayout()))

	p, err := d.CreateGraphicsPipeline(meshPipelineDesc(layout))
	require.NoError(t, err)
	assert.Same(t, layout, p.Layout())

	strides := p.VertexStrides()
	assert.Equal(t, uint32(32), strides[0])
	assert.Equal(t, uint32(64), strides[3])
	assert.Zero(t, strides[1])
	assert.Equal(t, native.PrimitiveTopologyTriangleStrip, p.Topology())
	bounds, ok := p.DepthBounds()
	require.True(t, ok)
	assert.Equal(t, metadata.DepthBounds{Min: 0.25, Max: 0.75}, bounds)

	nd := p.Native().(*software.PipelineState).GraphicsDesc()
	require.NotNil(t, nd)
	assert.Same(t, layout.RootSignature(), nd.RootSignature)
	assert.Equal(t, native.PrimitiveTopologyTypeTriangle, nd.PrimitiveTopologyType)
	assert.Equal(t, native.IndexBufferStripCutValue0xFFFFFFFF, nd.IBStripCutValue)
	assert.Equal(t, uint32(1), nd.NumRenderTargets)
	assert.Equal(t, native.FormatR8G8B8A8Unorm, nd.RTVFormats[0])
	assert.Equal(t, native.FormatD32Float, nd.DSVFormat)

	require.Len(t, nd.InputLayout, 3)
	for i, el := range nd.InputLayout {
		assert.Equal(t, VertexSemanticName, el.SemanticName)
		assert.Equal(t, uint32(i), el.SemanticIndex)
	}
	assert.Equal(t, native.FormatR32G32Float, nd.InputLayout[1].Format)
	assert.Equal(t, uint32(12), nd.InputLayout[1].AlignedByteOffset)
	assert.Equal(t, native.InputClassificationPerInstanceData, nd.InputLayout[2].InputSlotClass)
	assert.Equal(t, uint32(1), nd.InputLayout[2].InstanceDataStepRate)
	assert.Equal(t, uint32(3), nd.InputLayout[2].InputSlot)

	assert.Equal(t, native.CullModeBack, nd.RasterizerState.CullMode)
	assert.True(t, nd.RasterizerState.FrontCounterClockwise)
	assert.True(t, nd.DepthStencilState.DepthEnable)
	assert.Equal(t, native.DepthWriteMaskAll, nd.DepthStencilState.DepthWriteMask)
	assert.Equal(t, native.ComparisonFuncLess, nd.DepthStencilState.DepthFunc)

	rt := nd.BlendState.RenderTarget[0]
	assert.True(t, rt.BlendEnable)
	assert.Equal(t, native.BlendSrcAlpha, rt.SrcBlend)
	assert.Equal(t, native.BlendInvSrcAlpha, rt.DestBlend)
	assert.Equal(t, native.ColorWriteEnableAll, rt.RenderTargetWriteMask)
	assert.False(t, nd.BlendState.IndependentBlendEnable)
	assert.False(t, nd.BlendState.RenderTarget[1].BlendEnable)

	resolved, err := d.ResolveGraphicsPipeline(p.ID())
	require.NoError(t, err)
	assert.Same(t, p, resolved)
	d.DestroyGraphicsPipeline(p)
	_, err = d.ResolveGraphicsPipeline(p.ID())
	assert.True(t, errors.Is(err, core.ErrAlreadyDestroyed))
}

func TestCreateGraphicsPipeline_NoDepthBounds(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustPipelineLayout(t, d)
	desc := meshPipelineDesc(layout)
	desc.DepthStencil = metadata.DepthStencilState{}
	desc.DepthStencilFormat = gputypes.TextureFormatUndefined

	p, err := d.CreateGraphicsPipeline(desc)
	require.NoError(t, err)
	_, ok := p.DepthBounds()
	assert.False(t, ok)
	assert.Equal(t, native.FormatUnknown, p.Native().(*software.PipelineState).GraphicsDesc().DSVFormat)
}

func TestCreateGraphicsPipeline_Errors(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustPipelineLayout(t, d)

	tests := []struct {
		name   string
		modify func(*GraphicsPipelineDesc)
		want   error
	}{
		{
			name: "compute stage",
			modify: func(g *GraphicsPipelineDesc) {
				g.Shaders = append(g.Shaders, dxil(metadata.ShaderStageCompute, computeBytecode))
			},
			want: ErrWrongPipelineType,
		},
		{
			name: "spirv",
			modify: func(g *GraphicsPipelineDesc) {
				g.Shaders[1].Format = metadata.ShaderFormatSPIRV
			},
			want: ErrUnsupportedShaderFormat,
		},
		{
			name: "mesh shader",
			modify: func(g *GraphicsPipelineDesc) {
				g.Shaders[0].Stage = metadata.ShaderStageMesh
			},
			want: ErrMeshShadersUnimplemented,
		},
		{
			name: "no vertex shader",
			modify: func(g *GraphicsPipelineDesc) {
				g.Shaders = g.Shaders[1:]
			},
			want: ErrMissingShaderStage,
		},
		{
			name: "hull without domain",
			modify: func(g *GraphicsPipelineDesc) {
				g.Shaders = append(g.Shaders, dxil(metadata.ShaderStageHull, []byte("DXBC-hs")))
			},
			want: ErrMissingShaderStage,
		},
		{
			name: "too many render targets",
			modify: func(g *GraphicsPipelineDesc) {
				g.ColorFormats = make([]gputypes.TextureFormat, metadata.MaxColorAttachments+1)
			},
			want: ErrTooManyRenderTargets,
		},
		{
			name: "patch list without tessellation",
			modify: func(g *GraphicsPipelineDesc) {
				g.InputAssembly = metadata.InputAssemblyState{Topology: metadata.PrimitiveTopologyPatchList, PatchControlPoints: 3}
			},
			want: ErrInvalidTopology,
		},
		{
			name: "patch list with 33 control points",
			modify: func(g *GraphicsPipelineDesc) {
				g.InputAssembly = metadata.InputAssemblyState{Topology: metadata.PrimitiveTopologyPatchList, PatchControlPoints: 33}
			},
			want: ErrInvalidTopology,
		},
		{
			name: "attribute reads undeclared binding",
			modify: func(g *GraphicsPipelineDesc) {
				g.VertexInput.Attributes[0].Binding = 5
			},
			want: ErrInvalidVertexInput,
		},
		{
			name: "colour depth target",
			modify: func(g *GraphicsPipelineDesc) {
				g.DepthStencilFormat = gputypes.TextureFormatRGBA8Unorm
			},
			want: ErrUnsupportedFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := meshPipelineDesc(layout)
			tt.modify(desc)
			_, err := d.CreateGraphicsPipeline(desc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Equal(t, 1, d.LiveObjects(), "only the pipeline layout is live")
}

func TestCreateGraphicsPipeline_Tessellation(t *testing.T) {
	d, _ := newTestDevice(t)
	desc := meshPipelineDesc(mustPipelineLayout(t, d))
	desc.Shaders = append(desc.Shaders,
		dxil(metadata.ShaderStageHull, []byte("DXBC-hs")),
		dxil(metadata.ShaderStageDomain, []byte("DXBC-ds")))
	desc.InputAssembly = metadata.InputAssemblyState{Topology: metadata.PrimitiveTopologyPatchList, PatchControlPoints: 4}

	p, err := d.CreateGraphicsPipeline(desc)
	require.NoError(t, err)
	assert.Equal(t, native.PrimitiveTopologyPatchListBase+4, p.Topology())
	assert.Equal(t, native.PrimitiveTopologyTypePatch, p.Native().(*software.PipelineState).GraphicsDesc().PrimitiveTopologyType)
}

func TestCreateComputePipeline(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustPipelineLayout(t, d)

	p, err := d.CreateComputePipeline(&ComputePipelineDesc{
		Label:  "cull",
		Layout: layout,
		Shader: dxil(metadata.ShaderStageCompute, computeBytecode),
	})
	require.NoError(t, err)
	assert.Equal(t, computeBytecode, p.Native().(*software.PipelineState).ComputeDesc().CS)
	d.DestroyComputePipeline(p)
	_, err = d.ResolveComputePipeline(p.ID())
	assert.True(t, errors.Is(err, core.ErrAlreadyDestroyed))

	_, err = d.CreateComputePipeline(&ComputePipelineDesc{Layout: layout, Shader: dxil(metadata.ShaderStageVertex, vertexBytecode)})
	assert.True(t, errors.Is(err, ErrUnsupportedShaderFormat))

	spirv := dxil(metadata.ShaderStageCompute, computeBytecode)
	spirv.Format = metadata.ShaderFormatSPIRV
	_, err = d.CreateComputePipeline(&ComputePipelineDesc{Layout: layout, Shader: spirv})
	assert.True(t, errors.Is(err, ErrUnsupportedShaderFormat))

	_, err = d.CreateComputePipeline(&ComputePipelineDesc{Layout: layout, Shader: dxil(metadata.ShaderStageCompute, nil)})
	assert.True(t, errors.Is(err, ErrMissingShaderStage))
}

func TestPipelineCache_StoresAndReusesBlobs(t *testing.T) {
	d, _ := newTestDevice(t)
	cache := newMemoryPipelineCache()
	d.SetPipelineCache(cache)
	layout := mustPipelineLayout(t, d)

	_, err := d.CreateGraphicsPipeline(meshPipelineDesc(layout))
	require.NoError(t, err)
	require.Equal(t, 1, cache.stores)
	blob := cache.Load("mesh")
	require.NotEmpty(t, blob)

	p, err := d.CreateGraphicsPipeline(meshPipelineDesc(layout))
	require.NoError(t, err)
	assert.Equal(t, blob, p.Native().(*software.PipelineState).GraphicsDesc().CachedPSO)
	assert.Equal(t, 1, cache.stores, "a pipeline built from its blob is not stored again")
}

func TestPipelineCache_RejectedBlobRecompiles(t *testing.T) {
	d, _ := newTestDevice(t)
	cache := newMemoryPipelineCache()
	require.NoError(t, cache.Store("cull", []byte("stale")))
	d.SetPipelineCache(cache)

	p, err := d.CreateComputePipeline(&ComputePipelineDesc{
		Label:  "cull",
		Layout: mustPipelineLayout(t, d),
		Shader: dxil(metadata.ShaderStageCompute, computeBytecode),
	})
	require.NoError(t, err)
	assert.Nil(t, p.Native().(*software.PipelineState).ComputeDesc().CachedPSO)

	fresh, err := p.Native().CachedBlob()
	require.NoError(t, err)
	assert.Equal(t, fresh, cache.Load("cull"))
	assert.NotEqual(t, []byte("stale"), fresh)
}

func TestPipelineCache_UnlabelledPipelinesAreNotCached(t *testing.T) {
	d, _ := newTestDevice(t)
	cache := newMemoryPipelineCache()
	d.SetPipelineCache(cache)

	_, err := d.CreateComputePipeline(&ComputePipelineDesc{
		Layout: mustPipelineLayout(t, d),
		Shader: dxil(metadata.ShaderStageCompute, computeBytecode),
	})
	require.NoError(t, err)
	assert.Zero(t, cache.stores)
}
