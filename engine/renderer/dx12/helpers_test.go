package dx12

import (
	"sync"
	"testing"

	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native/software"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
	"github.com/stretchr/testify/require"
)

var (
	vertexBytecode   = []byte("DXBC-vs")
	fragmentBytecode = []byte("DXBC-ps")
	computeBytecode  = []byte("DXBC-cs")
)

func newTestDevice(t *testing.T) (*Device, *software.Device) {
	t.Helper()
	sw := software.NewDevice()
	cfg := core.DefaultConfig()
	cfg.Heaps.ResourceDescriptors = 1024
	cfg.Heaps.SamplerDescriptors = 64
	cfg.Heaps.StagingDescriptors = 256
	d, err := NewDevice(sw, cfg)
	require.NoError(t, err)
	t.Cleanup(d.Destroy)
	return d, sw
}

// faultyDevice is a software device whose creation calls can be made to fail
// by operation name: "pipeline", "resource" or "fence".
type faultyDevice struct {
	*software.Device

	mu       sync.Mutex
	failures map[string]error
}

func newFaultyTestDevice(t *testing.T) (*Device, *faultyDevice) {
	t.Helper()
	fd := &faultyDevice{Device: software.NewDevice(), failures: make(map[string]error)}
	d, err := NewDevice(fd, core.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(d.Destroy)
	return d, fd
}

func (f *faultyDevice) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

func (f *faultyDevice) failure(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[op]
}

func (f *faultyDevice) CreateGraphicsPipelineState(desc *native.GraphicsPipelineStateDesc) (native.PipelineState, error) {
	if err := f.failure("pipeline"); err != nil {
		return nil, err
	}
	return f.Device.CreateGraphicsPipelineState(desc)
}

func (f *faultyDevice) CreateComputePipelineState(desc *native.ComputePipelineStateDesc) (native.PipelineState, error) {
	if err := f.failure("pipeline"); err != nil {
		return nil, err
	}
	return f.Device.CreateComputePipelineState(desc)
}

func (f *faultyDevice) CreateCommittedResource(heapType native.HeapType, desc *native.ResourceDesc, initialState native.ResourceStates) (native.Resource, error) {
	if err := f.failure("resource"); err != nil {
		return nil, err
	}
	return f.Device.CreateCommittedResource(heapType, desc, initialState)
}

func (f *faultyDevice) CreateFence(initialValue uint64) (native.Fence, error) {
	if err := f.failure("fence"); err != nil {
		return nil, err
	}
	return f.Device.CreateFence(initialValue)
}

// uniformAndTextureLayout has a dynamic uniform buffer at register 0 and a
// texture at register 1.
func uniformAndTextureLayout() *metadata.DescriptorSetLayoutDesc {
	return &metadata.DescriptorSetLayoutDesc{
		Label: "per-draw",
		Bindings: []metadata.DescriptorSetLayoutBinding{
			{Binding: 0, Kind: metadata.DescriptorKindDynamicUniformBuffer, Visibility: metadata.ShaderStageVertex},
			{Binding: 1, Kind: metadata.DescriptorKindTexture, Count: 1, Visibility: metadata.ShaderStageFragment},
		},
	}
}

func mustSetLayout(t *testing.T, d *Device, desc *metadata.DescriptorSetLayoutDesc) *DescriptorSetLayout {
	t.Helper()
	l, err := d.CreateDescriptorSetLayout(desc)
	require.NoError(t, err)
	return l
}

func mustPipelineLayout(t *testing.T, d *Device, sets ...*DescriptorSetLayout) *PipelineLayout {
	t.Helper()
	l, err := d.CreatePipelineLayout(&PipelineLayoutDesc{Label: "test", SetLayouts: sets})
	require.NoError(t, err)
	return l
}
