package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native/software"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *PipelineCacheStore {
	t.Helper()
	s, err := NewPipelineCacheStore(filepath.Join(t.TempDir(), "pso"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPipelineCacheStore_StoreAndLoad(t *testing.T) {
	s := newStore(t)

	assert.Nil(t, s.Load("missing"))
	assert.Nil(t, s.Load(""))
	assert.Error(t, s.Store("", []byte("x")))

	blob := []byte("blob-v1")
	require.NoError(t, s.Store("shadow/opaque", blob))
	blob[0] = 'X'
	assert.Equal(t, []byte("blob-v1"), s.Load("shadow/opaque"))

	onDisk, err := os.ReadFile(filepath.Join(s.Dir(), "shadow%2Fopaque"+BlobExt))
	require.NoError(t, err)
	assert.Equal(t, []byte("blob-v1"), onDisk)

	labels, err := s.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"shadow/opaque"}, labels)
}

func TestPipelineCacheStore_LoadsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mesh"+BlobExt), []byte("warm"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	s, err := NewPipelineCacheStore(dir)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []byte("warm"), s.Load("mesh"))
	assert.True(t, s.cached("mesh"))
	labels, err := s.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"mesh"}, labels)
}

func TestPipelineCacheStore_ExternalWriteInvalidates(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Store("mesh", []byte("v1")))
	require.True(t, s.cached("mesh"))

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "mesh"+BlobExt), []byte("version-2"), 0o644))

	select {
	case label := <-s.Invalidations():
		assert.Equal(t, "mesh", label)
	case <-time.After(5 * time.Second):
		t.Fatal("no invalidation after external write")
	}
	assert.False(t, s.cached("mesh"))
	assert.Equal(t, []byte("version-2"), s.Load("mesh"))
}

func TestPipelineCacheStore_RemoveAndClose(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Store("a", []byte("1")))
	require.NoError(t, s.Remove("a"))
	assert.Nil(t, s.Load("a"))
	require.NoError(t, s.Remove("never-stored"))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Store("b", []byte("2")), ErrStoreClosed)
	assert.Nil(t, s.Load("b"))
	var drained []string
	for label := range s.Invalidations() {
		drained = append(drained, label)
	}
	assert.Equal(t, []string{"a"}, drained)
}

func TestPipelineCacheStore_BacksDevicePipelines(t *testing.T) {
	s := newStore(t)
	cfg := core.DefaultConfig()
	cfg.Heaps.ResourceDescriptors = 64
	cfg.Heaps.SamplerDescriptors = 16
	cfg.Heaps.StagingDescriptors = 16
	d, err := dx12.NewDevice(software.NewDevice(), cfg)
	require.NoError(t, err)
	defer d.Destroy()
	d.SetPipelineCache(s)

	layout, err := d.CreatePipelineLayout(&dx12.PipelineLayoutDesc{Label: "empty"})
	require.NoError(t, err)
	desc := &dx12.ComputePipelineDesc{
		Label:  "cull",
		Layout: layout,
		Shader: metadata.ShaderBinary{
			Stage:      metadata.ShaderStageCompute,
			Format:     metadata.ShaderFormatDXIL,
			EntryPoint: "main",
			Code:       []byte("DXBC-cs"),
		},
	}
	first, err := d.CreateComputePipeline(desc)
	require.NoError(t, err)
	blob := s.Load("cull")
	require.NotEmpty(t, blob)

	second, err := d.CreateComputePipeline(desc)
	require.NoError(t, err)
	assert.Equal(t, blob, second.Native().(*software.PipelineState).ComputeDesc().CachedPSO)
	assert.Empty(t, first.Native().(*software.PipelineState).ComputeDesc().CachedPSO)
}
