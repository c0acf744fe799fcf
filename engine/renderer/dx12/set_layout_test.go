package dx12

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorSetLayout_UniformAndTexture(t *testing.T) {
	l, err := newDescriptorSetLayout(uniformAndTextureLayout())
	require.NoError(t, err)

	assert.Equal(t, uint32(1), l.ResourceNum())
	require.Len(t, l.DynamicBuffers(), 1)
	assert.Equal(t, native.RootParameterTypeCBV, l.dynamicBuffers[0].ParameterType)
	assert.Equal(t, uint32(0), l.dynamicBuffers[0].Descriptor.ShaderRegister)
	assert.Equal(t, native.ShaderVisibilityVertex, l.dynamicBuffers[0].ShaderVisibility)

	require.Len(t, l.Ranges(), 1)
	r := l.ranges[0]
	assert.Equal(t, native.DescriptorRangeTypeSRV, r.RangeType)
	assert.Equal(t, uint32(1), r.BaseShaderRegister)
	assert.Equal(t, uint32(0), r.OffsetInDescriptorsFromTableStart)
	assert.Equal(t, uint32(1), r.NumDescriptors)

	info, ok := l.Binding(1)
	require.True(t, ok)
	assert.Equal(t, BindingLayout{BaseOffset: 0, Count: 1}, info.Layout)
	assert.Equal(t, metadata.ShaderStageVertex|metadata.ShaderStageFragment, l.Visibility())
}

func TestDescriptorSetLayout_TableOffsetsRunInBindingOrder(t *testing.T) {
	kinds := []metadata.DescriptorKind{
		metadata.DescriptorKindUniformBuffer,
		metadata.DescriptorKindStructuredBuffer,
		metadata.DescriptorKindRWByteAddressBuffer,
		metadata.DescriptorKindTexelBuffer,
		metadata.DescriptorKindRWTexture,
	}
	desc := &metadata.DescriptorSetLayoutDesc{}
	for i, k := range kinds {
		desc.Bindings = append(desc.Bindings, metadata.DescriptorSetLayoutBinding{Binding: uint32(10 - i), Kind: k})
	}
	l, err := newDescriptorSetLayout(desc)
	require.NoError(t, err)

	want := []native.DescriptorRangeType{
		native.DescriptorRangeTypeCBV,
		native.DescriptorRangeTypeSRV,
		native.DescriptorRangeTypeUAV,
		native.DescriptorRangeTypeSRV,
		native.DescriptorRangeTypeUAV,
	}
	var maxEnd uint32
	for i, r := range l.ranges {
		assert.Equal(t, want[i], r.RangeType)
		assert.Equal(t, uint32(i), r.OffsetInDescriptorsFromTableStart)
		assert.Equal(t, uint32(10-i), r.BaseShaderRegister)
		if i > 0 {
			prev := l.ranges[i-1]
			assert.GreaterOrEqual(t, r.OffsetInDescriptorsFromTableStart,
				prev.OffsetInDescriptorsFromTableStart+prev.NumDescriptors)
		}
		maxEnd = max(maxEnd, r.OffsetInDescriptorsFromTableStart+r.NumDescriptors)
	}
	assert.Equal(t, maxEnd, l.ResourceNum())
	assert.Equal(t, uint32(len(kinds)), l.ResourceNum())
}

func TestDescriptorSetLayout_SamplerPartitions(t *testing.T) {
	desc := &metadata.DescriptorSetLayoutDesc{
		Bindings: []metadata.DescriptorSetLayoutBinding{
			{Binding: 0, Kind: metadata.DescriptorKindSampler, Visibility: metadata.ShaderStageFragment},
			{Binding: 1, Kind: metadata.DescriptorKindSampler},
			{
				Binding:        2,
				Kind:           metadata.DescriptorKindSampler,
				StaticSamplers: []gputypes.SamplerDescriptor{gputypes.LinearSamplerDescriptor()},
				Visibility:     metadata.ShaderStageFragment,
			},
		},
	}
	l, err := newDescriptorSetLayout(desc)
	require.NoError(t, err)

	assert.Zero(t, l.ResourceNum())
	assert.Empty(t, l.Ranges())
	require.Len(t, l.SamplerRanges(), 2)
	for i, r := range l.samplerRanges {
		assert.Equal(t, native.DescriptorRangeTypeSampler, r.RangeType)
		assert.Equal(t, uint32(1), r.NumDescriptors)
		assert.Equal(t, uint32(i), r.BaseShaderRegister)
	}
	assert.Equal(t, native.ShaderVisibilityPixel, l.samplerVis[0])
	assert.Equal(t, native.ShaderVisibilityAll, l.samplerVis[1])

	require.Len(t, l.StaticSamplers(), 1)
	ss := l.staticSamplers[0]
	assert.Equal(t, uint32(2), ss.ShaderRegister)
	assert.Equal(t, native.FilterMinMagMipLinear, ss.Filter)
	assert.Equal(t, native.ShaderVisibilityPixel, ss.ShaderVisibility)

	_, ok := l.Binding(2)
	assert.False(t, ok, "static samplers are not reported")
	info, ok := l.Binding(1)
	require.True(t, ok)
	assert.Equal(t, uint32(1), info.Layout.BaseOffset)
}

func TestDescriptorSetLayout_RejectsDescriptorArrays(t *testing.T) {
	for _, kind := range []metadata.DescriptorKind{
		metadata.DescriptorKindSampler,
		metadata.DescriptorKindDynamicUniformBuffer,
		metadata.DescriptorKindUniformBuffer,
		metadata.DescriptorKindTexture,
		metadata.DescriptorKindRWStructuredBuffer,
	} {
		t.Run(kind.String(), func(t *testing.T) {
			d, _ := newTestDevice(t)

			_, err := d.CreateDescriptorSetLayout(&metadata.DescriptorSetLayoutDesc{
				Bindings: []metadata.DescriptorSetLayoutBinding{{Binding: 0, Kind: kind, Count: 4}},
			})
			assert.ErrorIs(t, err, ErrDescriptorArraysUnimplemented)
			assert.Zero(t, d.heaps.ResourcesInUse())
			assert.Zero(t, d.heaps.SamplersInUse())
		})
	}
}

func TestDescriptorSetLayout_RejectsDuplicateBindings(t *testing.T) {
	_, err := newDescriptorSetLayout(&metadata.DescriptorSetLayoutDesc{
		Bindings: []metadata.DescriptorSetLayoutBinding{
			{Binding: 3, Kind: metadata.DescriptorKindTexture},
			{Binding: 3, Kind: metadata.DescriptorKindSampler},
		},
	})
	assert.ErrorIs(t, err, ErrDuplicateBinding)
}

func TestDescriptorSetLayout_RegisteredWithDevice(t *testing.T) {
	d, _ := newTestDevice(t)
	l := mustSetLayout(t, d, uniformAndTextureLayout())

	got, err := d.ResolveDescriptorSetLayout(l.ID())
	require.NoError(t, err)
	assert.Same(t, l, got)

	d.DestroyDescriptorSetLayout(l)
	_, err = d.ResolveDescriptorSetLayout(l.ID())
	assert.ErrorIs(t, err, core.ErrAlreadyDestroyed)
}
