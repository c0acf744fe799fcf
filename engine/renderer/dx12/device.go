package dx12

import (
	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-dx12/engine/containers"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

// PipelineCache keeps opaque pipeline blobs by pipeline label. Load returns
// nil when nothing is cached.
type PipelineCache interface {
	Load(label string) []byte
	Store(label string, blob []byte) error
}

// Device owns the native device, its descriptor heaps, the sampler cache and
// one queue per queue type. Creation methods are safe for concurrent use.
type Device struct {
	label  string
	native native.Device

	heaps        *DescriptorHeapManager
	samplers     *samplerCache
	queues       map[metadata.QueueType]*Queue
	singleEvents *eventCache
	multiEvents  *eventCache

	defaultArena  ArenaKind
	pipelineCache PipelineCache

	setLayouts        *core.Registry[DescriptorSetLayout]
	pipelineLayouts   *core.Registry[PipelineLayout]
	graphicsPipelines *core.Registry[GraphicsPipeline]
	computePipelines  *core.Registry[ComputePipeline]
}

func NewDevice(dev native.Device, cfg *core.Config) (*Device, error) {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	heaps, err := newDescriptorHeapManager(dev, cfg.Heaps)
	if err != nil {
		return nil, err
	}
	d := &Device{
		label:             cfg.Device.Label,
		native:            dev,
		heaps:             heaps,
		samplers:          newSamplerCache(dev, heaps),
		queues:            make(map[metadata.QueueType]*Queue, 3),
		singleEvents:      newEventCache(dev),
		multiEvents:       newEventCache(dev),
		defaultArena:      parseArenaKind(cfg.Arena.DefaultKind),
		setLayouts:        core.NewRegistry[DescriptorSetLayout](),
		pipelineLayouts:   core.NewRegistry[PipelineLayout](),
		graphicsPipelines: core.NewRegistry[GraphicsPipeline](),
		computePipelines:  core.NewRegistry[ComputePipeline](),
	}
	for _, qt := range []metadata.QueueType{metadata.QueueTypeGraphics, metadata.QueueTypeCompute, metadata.QueueTypeCopy} {
		nq, err := dev.CreateCommandQueue(commandListType(qt))
		if err != nil {
			d.Destroy()
			return nil, platformError(ErrQueueCreate, err, "%s queue", qt)
		}
		d.queues[qt] = &Queue{queueType: qt, native: nq}
	}
	core.LogInfo("device %q created", d.label)
	return d, nil
}

func (d *Device) Label() string {
	return d.label
}

func (d *Device) Native() native.Device {
	return d.native
}

func (d *Device) Heaps() *DescriptorHeapManager {
	return d.heaps
}

func (d *Device) Queue(t metadata.QueueType) *Queue {
	return d.queues[t]
}

// SetPipelineCache installs the source of cached pipeline blobs used by
// later pipeline creation.
func (d *Device) SetPipelineCache(c PipelineCache) {
	d.pipelineCache = c
}

func (d *Device) CreateDescriptorSetLayout(desc *metadata.DescriptorSetLayoutDesc) (*DescriptorSetLayout, error) {
	l, err := newDescriptorSetLayout(desc)
	if err != nil {
		return nil, err
	}
	l.id = d.setLayouts.Acquire(l)
	core.LogDebug("descriptor set layout %q created: %d dynamic buffers, %d table ranges, %d sampler tables, %d static samplers",
		l.label, len(l.dynamicBuffers), len(l.ranges), len(l.samplerRanges), len(l.staticSamplers))
	return l, nil
}

func (d *Device) CreatePipelineLayout(desc *PipelineLayoutDesc) (*PipelineLayout, error) {
	s := containers.AcquireScratch()
	defer s.Release()

	rsDesc, layout, err := buildRootSignature(s, desc)
	if err != nil {
		return nil, err
	}
	rs, err := d.native.CreateRootSignature(&rsDesc)
	if err != nil {
		return nil, platformError(ErrRootSignatureCreate, err, "pipeline layout %q with %d parameters",
			desc.Label, len(rsDesc.Parameters))
	}
	layout.rootSignature = rs
	layout.id = d.pipelineLayouts.Acquire(layout)
	core.LogDebug("pipeline layout %q created: %d sets, %d root parameters, %d DWORDs",
		layout.label, len(layout.setLayouts), layout.numParameters, rsDesc.DWords())
	return layout, nil
}

func (d *Device) CreateDescriptorPool(desc *DescriptorPoolDesc) (*DescriptorPool, error) {
	return newDescriptorPool(d.heaps, desc)
}

func (d *Device) CreateDescriptorArena(desc *DescriptorArenaDesc) (*DescriptorArena, error) {
	return newDescriptorArena(d.heaps, desc, d.defaultArena)
}

func (d *Device) cachedPipeline(label string) []byte {
	if d.pipelineCache == nil || label == "" {
		return nil
	}
	return d.pipelineCache.Load(label)
}

// storePipeline saves the blob of a pipeline that was compiled without one.
func (d *Device) storePipeline(label string, ps native.PipelineState) {
	if d.pipelineCache == nil || label == "" {
		return
	}
	blob, err := ps.CachedBlob()
	if err == nil {
		err = d.pipelineCache.Store(label, blob)
	}
	if err != nil {
		core.LogWarn("pipeline %q not cached: %v", label, err)
	}
}

func (d *Device) CreateGraphicsPipeline(desc *GraphicsPipelineDesc) (*GraphicsPipeline, error) {
	s := containers.AcquireScratch()
	defer s.Release()

	nd, p, err := buildGraphicsPipeline(s, desc)
	if err != nil {
		return nil, err
	}
	nd.CachedPSO = d.cachedPipeline(desc.Label)
	ps, err := d.native.CreateGraphicsPipelineState(nd)
	if err != nil && nd.CachedPSO != nil {
		core.LogWarn("cached pipeline %q rejected, compiling from scratch: %v", desc.Label, err)
		nd.CachedPSO = nil
		ps, err = d.native.CreateGraphicsPipelineState(nd)
	}
	if err != nil {
		return nil, platformError(ErrPipelineCreate, err, "graphics pipeline %q", desc.Label)
	}
	if nd.CachedPSO == nil {
		d.storePipeline(desc.Label, ps)
	}
	p.native = ps
	p.id = d.graphicsPipelines.Acquire(p)
	core.LogDebug("graphics pipeline %q created", p.label)
	return p, nil
}

func (d *Device) CreateComputePipeline(desc *ComputePipelineDesc) (*ComputePipeline, error) {
	nd, p, err := buildComputePipeline(desc)
	if err != nil {
		return nil, err
	}
	nd.CachedPSO = d.cachedPipeline(desc.Label)
	ps, err := d.native.CreateComputePipelineState(nd)
	if err != nil && nd.CachedPSO != nil {
		core.LogWarn("cached pipeline %q rejected, compiling from scratch: %v", desc.Label, err)
		nd.CachedPSO = nil
		ps, err = d.native.CreateComputePipelineState(nd)
	}
	if err != nil {
		return nil, platformError(ErrPipelineCreate, err, "compute pipeline %q", desc.Label)
	}
	if nd.CachedPSO == nil {
		d.storePipeline(desc.Label, ps)
	}
	p.native = ps
	p.id = d.computePipelines.Acquire(p)
	core.LogDebug("compute pipeline %q created", p.label)
	return p, nil
}

func (d *Device) CreateFence(signalled bool) (*Fence, error) {
	f := &Fence{}
	if err := f.init(d.native, signalled); err != nil {
		return nil, platformError(ErrFenceCreate, err, "fence")
	}
	return f, nil
}

func (d *Device) CreateSemaphore() (*Semaphore, error) {
	s := &Semaphore{}
	if err := s.init(d.native, false); err != nil {
		return nil, platformError(ErrFenceCreate, err, "semaphore")
	}
	return s, nil
}

// CreateSampler returns the cached sampler for desc, creating it on first
// use.
func (d *Device) CreateSampler(desc gputypes.SamplerDescriptor) (*Sampler, error) {
	return d.samplers.get(&desc)
}

func (d *Device) CreateBuffer(desc *metadata.BufferDesc) (*Buffer, error) {
	if desc.Size == 0 {
		return nil, errors.Newf("buffer %q has zero size", desc.Label)
	}
	heapType, state := heapTypeFor(desc.Location)
	rd := bufferResourceDesc(desc)
	res, err := d.native.CreateCommittedResource(heapType, &rd, state)
	if err != nil {
		return nil, platformError(ErrResourceCreate, err, "buffer %q of %d bytes", desc.Label, desc.Size)
	}
	return &Buffer{
		id:     uuid.New(),
		desc:   *desc,
		native: res,
		gpuVA:  res.GPUVirtualAddress(),
	}, nil
}

func (d *Device) CreateTexture(desc *metadata.TextureDesc) (*Texture, error) {
	rd, format, err := textureResourceDesc(desc)
	if err != nil {
		return nil, err
	}
	res, err := d.native.CreateCommittedResource(native.HeapTypeDefault, &rd, native.ResourceStateCommon)
	if err != nil {
		return nil, platformError(ErrResourceCreate, err, "texture %q %dx%d %s",
			desc.Label, desc.Width, desc.Height, desc.Format)
	}
	return &Texture{id: uuid.New(), desc: *desc, format: format, native: res}, nil
}

// CreateTextureView prepares a view in the staging heap. The view is copied
// into descriptor sets by UpdateDescriptorSets.
func (d *Device) CreateTextureView(tex *Texture, desc *metadata.TextureViewDesc) (*TextureView, error) {
	srv, uav, err := textureViewDescs(tex, desc)
	if err != nil {
		return nil, err
	}
	chunk, err := d.heaps.AllocateStaging(1)
	if err != nil {
		return nil, errors.Wrapf(err, "texture view %q", desc.Label)
	}
	v := &TextureView{texture: tex, desc: *desc, chunk: chunk}
	v.cpu, _ = chunk.Handles(0)
	if uav != nil {
		d.native.CreateUnorderedAccessView(tex.native, nil, uav, v.cpu)
	} else {
		d.native.CreateShaderResourceView(tex.native, srv, v.cpu)
	}
	return v, nil
}

func (d *Device) ResolveDescriptorSetLayout(id uuid.UUID) (*DescriptorSetLayout, error) {
	return d.setLayouts.Resolve(id)
}

func (d *Device) ResolvePipelineLayout(id uuid.UUID) (*PipelineLayout, error) {
	return d.pipelineLayouts.Resolve(id)
}

func (d *Device) ResolveGraphicsPipeline(id uuid.UUID) (*GraphicsPipeline, error) {
	return d.graphicsPipelines.Resolve(id)
}

func (d *Device) ResolveComputePipeline(id uuid.UUID) (*ComputePipeline, error) {
	return d.computePipelines.Resolve(id)
}

// DestroyPipelineLayout releases the root signature and forgets the layout.
func (d *Device) DestroyPipelineLayout(l *PipelineLayout) {
	l.Destroy()
	_ = d.pipelineLayouts.Release(l.id)
}

func (d *Device) DestroyGraphicsPipeline(p *GraphicsPipeline) {
	p.Destroy()
	_ = d.graphicsPipelines.Release(p.id)
}

func (d *Device) DestroyComputePipeline(p *ComputePipeline) {
	p.Destroy()
	_ = d.computePipelines.Release(p.id)
}

// DestroyDescriptorSetLayout forgets the layout. Pipeline layouts and pools
// that still reference it keep it alive.
func (d *Device) DestroyDescriptorSetLayout(l *DescriptorSetLayout) {
	_ = d.setLayouts.Release(l.id)
}

// LiveObjects reports how many layouts and pipelines are still reachable.
func (d *Device) LiveObjects() int {
	return len(d.setLayouts.Live()) + len(d.pipelineLayouts.Live()) +
		len(d.graphicsPipelines.Live()) + len(d.computePipelines.Live())
}

// Destroy tears down the sampler cache, queues and heaps. Objects created
// from the device must be destroyed first.
func (d *Device) Destroy() {
	if d.native == nil {
		return
	}
	d.samplers.destroy()
	d.singleEvents.destroy()
	d.multiEvents.destroy()
	for _, q := range d.queues {
		q.release()
	}
	d.heaps.destroy()
	d.native.Release()
	d.native = nil
	core.LogInfo("device %q destroyed", d.label)
}
