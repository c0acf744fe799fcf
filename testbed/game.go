package testbed

import (
	"context"
	"embed"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima-dx12/engine"
	"github.com/spaghettifunk/anima-dx12/engine/assets/loaders"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

//go:embed shaders
var shaderFS embed.FS

type TestGame struct {
	*engine.Game
	out io.Writer
}

type gameState struct {
	shaders  *loaders.ShaderLoader
	perDraw  *dx12.DescriptorSetLayout
	layouts  []*dx12.DescriptorSetLayout
	twoSets  *dx12.PipelineLayout
	pipeline *dx12.GraphicsPipeline
	cull     *dx12.ComputePipeline
	buffers  []*dx12.Buffer
}

// NewTestGame builds the demo that walks the device through the reference
// binding scenarios and prints what it translated them into.
func NewTestGame(appConfig *engine.ApplicationConfig, out io.Writer) *TestGame {
	if out == nil {
		out = os.Stdout
	}
	if appConfig.Name == "" {
		appConfig.Name = "Anima DX12 testbed"
	}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: appConfig,
			State: &gameState{
				shaders: &loaders.ShaderLoader{FS: shaderFS},
			},
		},
		out: out,
	}
	tg.FnInitialize = tg.Initialize
	tg.FnRun = tg.Run
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) device() *dx12.Device {
	return g.Renderer.Device()
}

func (g *TestGame) Initialize() error {
	fmt.Fprintf(g.out, "backend: %s\n", g.Renderer.Backend())
	return nil
}

func (g *TestGame) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"A: set layout", g.setLayout},
		{"B: pipeline layout", g.pipelineLayout},
		{"C: empty fence wait", g.emptyWait},
		{"D: push constants", g.pushConstants},
		{"E: descriptor arrays", g.descriptorArrays},
		{"F: concurrent buffers", g.concurrentBuffers},
		{"pipelines", g.pipelines},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(g.out, "== %s\n", s.name)
		if err := s.fn(); err != nil {
			return errors.Wrapf(err, "scenario %s", s.name)
		}
	}
	return nil
}

func perDrawLayout() *metadata.DescriptorSetLayoutDesc {
	return &metadata.DescriptorSetLayoutDesc{
		Label: "per-draw",
		Bindings: []metadata.DescriptorSetLayoutBinding{
			{Binding: 0, Kind: metadata.DescriptorKindDynamicUniformBuffer, Count: 1, Visibility: metadata.ShaderStageVertex},
			{Binding: 1, Kind: metadata.DescriptorKindTexture, Count: 1, Visibility: metadata.ShaderStageFragment},
		},
	}
}

func (g *TestGame) setLayout() error {
	l, err := g.device().CreateDescriptorSetLayout(perDrawLayout())
	if err != nil {
		return err
	}
	g.state().perDraw = l
	g.state().layouts = append(g.state().layouts, l)

	fmt.Fprintf(g.out, "resource_num: %d\n", l.ResourceNum())
	fmt.Fprintf(g.out, "dynamic constant buffers: %d\n", len(l.DynamicBuffers()))
	for _, r := range l.Ranges() {
		fmt.Fprintf(g.out, "table range: %s register %d space %d offset %d\n",
			r.RangeType, r.BaseShaderRegister, r.RegisterSpace, r.OffsetInDescriptorsFromTableStart)
	}
	return nil
}

func (g *TestGame) pipelineLayout() error {
	d := g.device()
	second, err := d.CreateDescriptorSetLayout(perDrawLayout())
	if err != nil {
		return err
	}
	g.state().layouts = append(g.state().layouts, second)
	l, err := d.CreatePipelineLayout(&dx12.PipelineLayoutDesc{
		Label:      "two-sets",
		SetLayouts: []*dx12.DescriptorSetLayout{g.state().perDraw, second},
	})
	if err != nil {
		return err
	}
	g.state().twoSets = l

	fmt.Fprintf(g.out, "set_root_param_indices: %v\n", l.SetRootParamIndices())
	for set := 0; set < l.NumSets(); set++ {
		p := l.SetRootParameters(set)
		fmt.Fprintf(g.out, "set %d: root CBVs %v, table %d, sampler tables %v\n",
			set, p.DynamicBuffers, p.ResourceTable, p.SamplerTables)
	}
	fmt.Fprintf(g.out, "root parameters: %d\n", l.NumParameters())
	return nil
}

func (g *TestGame) emptyWait() error {
	res, err := g.device().WaitFences(nil, true, 0)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out, "wait_fences([]): %s\n", res)
	return nil
}

func (g *TestGame) pushConstants() error {
	d := g.device()
	_, err := d.CreatePipelineLayout(&dx12.PipelineLayoutDesc{
		Label:         "odd-push",
		PushConstants: []metadata.PushConstantRange{{Binding: 0, Size: 6, Visibility: metadata.ShaderStageVertex}},
	})
	if !errors.Is(err, dx12.ErrInvalidPushConstantBlockSize) {
		return errors.Newf("6-byte block: expected rejection, got %v", err)
	}
	fmt.Fprintf(g.out, "size 6: %v\n", err)

	l, err := d.CreatePipelineLayout(&dx12.PipelineLayoutDesc{
		Label:         "push",
		PushConstants: []metadata.PushConstantRange{{Binding: 0, Size: 8, Visibility: metadata.ShaderStageVertex}},
	})
	if err != nil {
		return err
	}
	defer d.DestroyPipelineLayout(l)
	for _, b := range l.PushConstants() {
		fmt.Fprintf(g.out, "size %d: root parameter %d with %d 32-bit values\n", b.Size, b.RootParameterIndex, b.Size/4)
	}
	return nil
}

func (g *TestGame) descriptorArrays() error {
	d := g.device()
	before := d.Heaps().ResourcesInUse()
	_, err := d.CreateDescriptorSetLayout(&metadata.DescriptorSetLayoutDesc{
		Label: "textures",
		Bindings: []metadata.DescriptorSetLayoutBinding{
			{Binding: 0, Kind: metadata.DescriptorKindTexture, Count: 4, Visibility: metadata.ShaderStageFragment},
		},
	})
	if !errors.Is(err, dx12.ErrDescriptorArraysUnimplemented) {
		return errors.Newf("count 4: expected rejection, got %v", err)
	}
	fmt.Fprintf(g.out, "count 4: %v\n", err)
	fmt.Fprintf(g.out, "descriptors in use: %d -> %d\n", before, d.Heaps().ResourcesInUse())
	return nil
}

func (g *TestGame) concurrentBuffers() error {
	const n = 2
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	bufs := make([]*dx12.Buffer, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		err := g.JobSystem.Submit(metadata.JobTask{
			Name: fmt.Sprintf("buffer-%d", i),
			Type: metadata.JobTypeDeviceObject,
			OnStart: func() error {
				b, err := g.device().CreateBuffer(&metadata.BufferDesc{
					Label:    fmt.Sprintf("constants-%d", i),
					Size:     4096,
					Usage:    metadata.BufferUsageUniform,
					Location: metadata.MemoryLocationCpuToGpu,
				})
				if err != nil {
					return err
				}
				bufs[i] = b
				return nil
			},
			OnFailure: func(err error) {
				mu.Lock()
				errs = errors.CombineErrors(errs, err)
				mu.Unlock()
			},
			OnCompletionCallback: wg.Done,
		})
		if err != nil {
			wg.Done()
			return err
		}
	}
	wg.Wait()
	if errs != nil {
		return errs
	}
	g.state().buffers = append(g.state().buffers, bufs...)
	for i, b := range bufs {
		fmt.Fprintf(g.out, "buffer %d: gpu address %#x\n", i, b.GPUVirtualAddress())
	}
	if bufs[0].GPUVirtualAddress() == bufs[1].GPUVirtualAddress() {
		return errors.New("buffers share a GPU address")
	}
	return nil
}

func (g *TestGame) pipelines() error {
	st := g.state()
	vs, err := st.shaders.Load("shaders/mesh.vs.cso")
	if err != nil {
		return err
	}
	ps, err := st.shaders.Load("shaders/mesh.ps.cso")
	if err != nil {
		return err
	}
	cs, err := st.shaders.Load("shaders/cull.cs.cso")
	if err != nil {
		return err
	}

	d := g.device()
	p, err := d.CreateGraphicsPipeline(&dx12.GraphicsPipelineDesc{
		Label:   "mesh",
		Layout:  st.twoSets,
		Shaders: []metadata.ShaderBinary{vs, ps},
		VertexInput: metadata.VertexInputState{
			Buffers: []metadata.VertexBufferLayout{{Binding: 0, Stride: 20}},
			Attributes: []metadata.VertexAttribute{
				{Location: 0, Binding: 0, Format: gputypes.VertexFormatFloat32x3},
				{Location: 1, Binding: 0, Format: gputypes.VertexFormatFloat32x2, Offset: 12},
			},
		},
		InputAssembly: metadata.InputAssemblyState{Topology: metadata.PrimitiveTopologyTriangleList},
		Rasterizer:    metadata.RasterizerState{CullMode: gputypes.CullModeBack, FrontFace: gputypes.FrontFaceCCW, DepthClipEnable: true},
		DepthStencil: metadata.DepthStencilState{
			DepthTestEnable:  true,
			DepthWriteEnable: true,
			DepthCompare:     gputypes.CompareFunctionLess,
		},
		Blend:              metadata.BlendState{Attachments: []metadata.ColorAttachmentBlend{{WriteMask: gputypes.ColorWriteMaskAll}}},
		ColorFormats:       []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		DepthStencilFormat: gputypes.TextureFormatDepth32Float,
	})
	if err != nil {
		return err
	}
	st.pipeline = p
	fmt.Fprintf(g.out, "graphics pipeline %q: topology %d\n", "mesh", p.Topology())

	c, err := d.CreateComputePipeline(&dx12.ComputePipelineDesc{Label: "cull", Layout: st.twoSets, Shader: cs})
	if err != nil {
		return err
	}
	st.cull = c
	fmt.Fprintf(g.out, "compute pipeline %q created\n", "cull")

	if cache := g.Renderer.PipelineCache(); cache != nil {
		labels, err := cache.Labels()
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "pipeline cache %s: %v\n", cache.Dir(), labels)
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	st := g.state()
	d := g.device()
	if st.pipeline != nil {
		d.DestroyGraphicsPipeline(st.pipeline)
	}
	if st.cull != nil {
		d.DestroyComputePipeline(st.cull)
	}
	for _, b := range st.buffers {
		b.Destroy()
	}
	if st.twoSets != nil {
		d.DestroyPipelineLayout(st.twoSets)
	}
	for _, l := range st.layouts {
		d.DestroyDescriptorSetLayout(l)
	}
	core.LogDebug("%d device objects still alive at shutdown", d.LiveObjects())
	return nil
}
