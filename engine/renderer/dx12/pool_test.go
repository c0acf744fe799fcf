package dx12

import (
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTextureLayout() *metadata.DescriptorSetLayoutDesc {
	return &metadata.DescriptorSetLayoutDesc{
		Label: "material",
		Bindings: []metadata.DescriptorSetLayoutBinding{
			{Binding: 0, Kind: metadata.DescriptorKindDynamicUniformBuffer},
			{Binding: 1, Kind: metadata.DescriptorKindTexture},
			{Binding: 2, Kind: metadata.DescriptorKindTexture},
			{Binding: 3, Kind: metadata.DescriptorKindSampler},
		},
	}
}

func TestDescriptorPool_ReservesOneChunk(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustSetLayout(t, d, twoTextureLayout())

	pool, err := d.CreateDescriptorPool(&DescriptorPoolDesc{Label: "materials", Layout: layout, NumSets: 4})
	require.NoError(t, err)
	assert.Equal(t, uint32(8), d.heaps.ResourcesInUse())

	inc := d.heaps.ResourceIncrement()
	var prev *DescriptorSet
	for i := 0; i < 4; i++ {
		s, err := pool.Allocate()
		require.NoError(t, err)
		assert.Len(t, s.DynamicConstantBuffers, 1)
		assert.Len(t, s.Samplers, 1)
		if prev != nil {
			assert.Equal(t, prev.CPUHandle().Ptr+uintptr(2*inc), s.CPUHandle().Ptr)
			assert.Equal(t, prev.GPUHandle().Ptr+uint64(2*inc), s.GPUHandle().Ptr)
		}
		prev = s
	}

	_, err = pool.Allocate()
	assert.ErrorIs(t, err, ErrDescriptorPoolExhausted)

	pool.Destroy()
	assert.Zero(t, d.heaps.ResourcesInUse())
}

func TestDescriptorPool_FreeAndReuse(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustSetLayout(t, d, twoTextureLayout())
	pool, err := d.CreateDescriptorPool(&DescriptorPoolDesc{Layout: layout, NumSets: 1})
	require.NoError(t, err)

	s, err := pool.Allocate()
	require.NoError(t, err)
	base := s.CPUHandle()
	s.DynamicConstantBuffers[0] = 0xdead

	require.NoError(t, pool.Free(s))
	assert.Error(t, pool.Free(s), "double free")
	assert.Equal(t, 1, pool.Available())

	again, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, base, again.CPUHandle())
	assert.Zero(t, again.DynamicConstantBuffers[0])

	pool.Reset()
	assert.Equal(t, 1, pool.Available())
}

func TestDescriptorPool_StaleHandleCannotFreeNextOwner(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustSetLayout(t, d, twoTextureLayout())
	pool, err := d.CreateDescriptorPool(&DescriptorPoolDesc{Layout: layout, NumSets: 1})
	require.NoError(t, err)

	first, err := pool.Allocate()
	require.NoError(t, err)
	require.NoError(t, pool.Free(first))

	second, err := pool.Allocate()
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, first.CPUHandle(), second.CPUHandle())

	assert.Error(t, pool.Free(first))
	assert.Zero(t, pool.Available(), "the slot still belongs to the second set")

	_, err = pool.Allocate()
	assert.ErrorIs(t, err, ErrDescriptorPoolExhausted)

	require.NoError(t, pool.Free(second))
	assert.Equal(t, 1, pool.Available())
}

func TestDescriptorPool_RejectsSetFromAnotherPool(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustSetLayout(t, d, twoTextureLayout())
	a, err := d.CreateDescriptorPool(&DescriptorPoolDesc{Layout: layout, NumSets: 1})
	require.NoError(t, err)
	b, err := d.CreateDescriptorPool(&DescriptorPoolDesc{Layout: layout, NumSets: 1})
	require.NoError(t, err)

	s, err := a.Allocate()
	require.NoError(t, err)
	assert.Error(t, b.Free(s))
	assert.Equal(t, 1, b.Available())
}

func TestDescriptorPool_OutOfHeapSpace(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustSetLayout(t, d, twoTextureLayout())

	_, err := d.CreateDescriptorPool(&DescriptorPoolDesc{Layout: layout, NumSets: 1000})
	assert.ErrorIs(t, err, ErrOutOfDescriptorHeapSpace)

	// recoverable: a smaller pool still fits
	_, err = d.CreateDescriptorPool(&DescriptorPoolDesc{Layout: layout, NumSets: 10})
	assert.NoError(t, err)
}

func TestDescriptorPool_LayoutWithoutTable(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustSetLayout(t, d, &metadata.DescriptorSetLayoutDesc{Bindings: []metadata.DescriptorSetLayoutBinding{
		{Binding: 0, Kind: metadata.DescriptorKindDynamicUniformBuffer},
	}})
	pool, err := d.CreateDescriptorPool(&DescriptorPoolDesc{Layout: layout, NumSets: 2})
	require.NoError(t, err)
	assert.Zero(t, d.heaps.ResourcesInUse())

	a, err := pool.Allocate()
	require.NoError(t, err)
	b, err := pool.Allocate()
	require.NoError(t, err)
	a.DynamicConstantBuffers[0] = 1
	assert.Zero(t, b.DynamicConstantBuffers[0], "sets do not share arrays")
}

func TestDescriptorArena_LinearConcurrentAllocate(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustSetLayout(t, d, twoTextureLayout())
	arena, err := d.CreateDescriptorArena(&DescriptorArenaDesc{Kind: ArenaLinear, NumSets: 64, NumDescriptors: 128})
	require.NoError(t, err)

	var wg sync.WaitGroup
	sets := make([]*DescriptorSet, 64)
	for i := range sets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := arena.Allocate(layout)
			assert.NoError(t, err)
			sets[i] = s
		}(i)
	}
	wg.Wait()

	seen := make(map[uintptr]bool)
	for _, s := range sets {
		require.NotNil(t, s)
		assert.False(t, seen[s.CPUHandle().Ptr], "overlapping sets")
		seen[s.CPUHandle().Ptr] = true
	}
	assert.Equal(t, uint32(128), arena.Used())
	assert.Len(t, arena.LiveSets(), 64)

	_, err = arena.Allocate(layout)
	assert.ErrorIs(t, err, ErrDescriptorPoolExhausted)
	assert.ErrorIs(t, arena.Free(sets[0]), core.ErrUnimplemented)

	arena.Reset()
	assert.Zero(t, arena.Used())
	_, err = arena.Allocate(layout)
	assert.NoError(t, err)
}

func TestDescriptorArena_HeapFreeCoalesces(t *testing.T) {
	d, _ := newTestDevice(t)
	layout := mustSetLayout(t, d, twoTextureLayout())
	arena, err := d.CreateDescriptorArena(&DescriptorArenaDesc{Kind: ArenaHeap, NumSets: 8, NumDescriptors: 6})
	require.NoError(t, err)

	a, err := arena.Allocate(layout)
	require.NoError(t, err)
	b, err := arena.Allocate(layout)
	require.NoError(t, err)
	c, err := arena.Allocate(layout)
	require.NoError(t, err)
	_, err = arena.Allocate(layout)
	assert.ErrorIs(t, err, ErrDescriptorPoolExhausted)

	require.NoError(t, arena.Free(a))
	require.NoError(t, arena.Free(b))
	assert.Error(t, arena.Free(b))
	assert.Equal(t, []uuid.UUID{c.ID()}, arena.LiveSets())

	wide := mustSetLayout(t, d, &metadata.DescriptorSetLayoutDesc{Bindings: []metadata.DescriptorSetLayoutBinding{
		{Binding: 0, Kind: metadata.DescriptorKindTexture},
		{Binding: 1, Kind: metadata.DescriptorKindTexture},
		{Binding: 2, Kind: metadata.DescriptorKindTexture},
		{Binding: 3, Kind: metadata.DescriptorKindTexture},
	}})
	w, err := arena.Allocate(wide)
	require.NoError(t, err, "freed neighbours merge into one run")
	assert.Equal(t, a.CPUHandle(), w.CPUHandle())
}

func TestDescriptorArena_DefaultCapacityOverflow(t *testing.T) {
	d, _ := newTestDevice(t)
	numSets := uint32(math.MaxUint32/DefaultDescriptorsPerSet) + 1

	_, err := d.CreateDescriptorArena(&DescriptorArenaDesc{Label: "huge", NumSets: numSets})
	require.ErrorIs(t, err, ErrOutOfDescriptorHeapSpace)
	assert.Contains(t, err.Error(), "huge")
	assert.Zero(t, d.heaps.ResourcesInUse())
}

func TestDescriptorArena_DefaultKindFromConfig(t *testing.T) {
	d, _ := newTestDevice(t)
	arena, err := d.CreateDescriptorArena(&DescriptorArenaDesc{NumSets: 2})
	require.NoError(t, err)
	assert.Equal(t, ArenaLinear, arena.Kind())
	assert.Equal(t, uint32(2*DefaultDescriptorsPerSet), d.heaps.ResourcesInUse())

	_, err = d.CreateDescriptorArena(&DescriptorArenaDesc{})
	assert.ErrorIs(t, err, ErrInvalidArenaDesc)

	arena.Destroy()
	assert.Zero(t, d.heaps.ResourcesInUse())
	_, err = arena.Allocate(mustSetLayout(t, d, twoTextureLayout()))
	assert.ErrorIs(t, err, core.ErrAlreadyDestroyed)
}
