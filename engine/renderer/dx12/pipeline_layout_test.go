package dx12

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native/software"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rootSignatureDesc(t *testing.T, l *PipelineLayout) native.RootSignatureDesc {
	t.Helper()
	rs, ok := l.RootSignature().(*software.RootSignature)
	require.True(t, ok)
	return rs.Desc()
}

func TestPipelineLayout_TwoSets(t *testing.T) {
	d, _ := newTestDevice(t)
	set := mustSetLayout(t, d, uniformAndTextureLayout())
	l := mustPipelineLayout(t, d, set, set)

	assert.Equal(t, []uint32{0, 2}, l.SetRootParamIndices())
	assert.Equal(t, uint32(4), l.NumParameters())

	desc := rootSignatureDesc(t, l)
	require.Len(t, desc.Parameters, 4)
	for set := 0; set < 2; set++ {
		cbv := desc.Parameters[2*set]
		assert.Equal(t, native.RootParameterTypeCBV, cbv.ParameterType)
		assert.Equal(t, uint32(set), cbv.Descriptor.RegisterSpace)

		table := desc.Parameters[2*set+1]
		assert.Equal(t, native.RootParameterTypeDescriptorTable, table.ParameterType)
		require.Len(t, table.DescriptorTable, 1)
		assert.Equal(t, uint32(set), table.DescriptorTable[0].RegisterSpace)
		assert.Equal(t, native.ShaderVisibilityPixel, table.ShaderVisibility)
	}
	assert.Equal(t, native.RootSignatureFlagAllowInputAssemblerInputLayout, desc.Flags)

	rp := l.SetRootParameters(1)
	assert.Equal(t, []uint32{2}, rp.DynamicBuffers)
	assert.Equal(t, 3, rp.ResourceTable)
	assert.Empty(t, rp.SamplerTables)

	// the set layout keeps its unpatched spaces
	assert.Zero(t, set.ranges[0].RegisterSpace)
}

func TestPipelineLayout_SetRootParamIndicesIncrease(t *testing.T) {
	d, _ := newTestDevice(t)
	layouts := []*DescriptorSetLayout{
		mustSetLayout(t, d, uniformAndTextureLayout()),
		mustSetLayout(t, d, &metadata.DescriptorSetLayoutDesc{Bindings: []metadata.DescriptorSetLayoutBinding{
			{Binding: 0, Kind: metadata.DescriptorKindSampler},
			{Binding: 1, Kind: metadata.DescriptorKindSampler},
			{Binding: 2, Kind: metadata.DescriptorKindStructuredBuffer},
		}}),
		mustSetLayout(t, d, &metadata.DescriptorSetLayoutDesc{Bindings: []metadata.DescriptorSetLayoutBinding{
			{Binding: 0, Kind: metadata.DescriptorKindDynamicUniformBuffer},
			{Binding: 1, Kind: metadata.DescriptorKindDynamicUniformBuffer},
		}}),
	}
	l := mustPipelineLayout(t, d, layouts...)

	idx := l.SetRootParamIndices()
	require.Len(t, idx, len(layouts))
	for i := 1; i < len(idx); i++ {
		assert.Greater(t, idx[i], idx[i-1])
	}
	assert.Equal(t, []uint32{0, 2, 5}, idx)

	// one table per sampler binding
	rp := l.SetRootParameters(1)
	assert.Equal(t, 2, rp.ResourceTable)
	assert.Equal(t, []uint32{3, 4}, rp.SamplerTables)

	desc := rootSignatureDesc(t, l)
	for _, i := range rp.SamplerTables {
		p := desc.Parameters[i]
		require.Len(t, p.DescriptorTable, 1)
		assert.Equal(t, native.DescriptorRangeTypeSampler, p.DescriptorTable[0].RangeType)
		assert.Equal(t, uint32(1), p.DescriptorTable[0].RegisterSpace)
	}
}

func TestPipelineLayout_PushConstants(t *testing.T) {
	d, _ := newTestDevice(t)
	set := mustSetLayout(t, d, uniformAndTextureLayout())

	_, err := d.CreatePipelineLayout(&PipelineLayoutDesc{
		SetLayouts:    []*DescriptorSetLayout{set},
		PushConstants: []metadata.PushConstantRange{{Binding: 0, Size: 6}},
	})
	assert.ErrorIs(t, err, ErrInvalidPushConstantBlockSize)

	_, err = d.CreatePipelineLayout(&PipelineLayoutDesc{
		PushConstants: []metadata.PushConstantRange{{Binding: 0, Size: 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidPushConstantBlockSize)

	l, err := d.CreatePipelineLayout(&PipelineLayoutDesc{
		SetLayouts:    []*DescriptorSetLayout{set},
		PushConstants: []metadata.PushConstantRange{{Binding: 0, Size: 8, Visibility: metadata.ShaderStageVertex}},
	})
	require.NoError(t, err)

	require.Len(t, l.PushConstants(), 1)
	pc := l.PushConstants()[0]
	assert.Equal(t, PushConstantBlock{Size: 8, RootParameterIndex: 2}, pc)

	p := rootSignatureDesc(t, l).Parameters[pc.RootParameterIndex]
	assert.Equal(t, native.RootParameterType32BitConstants, p.ParameterType)
	assert.Equal(t, uint32(2), p.Constants.Num32BitValues)
	assert.Equal(t, uint32(0), p.Constants.ShaderRegister)
	assert.Equal(t, uint32(PushConstantRegisterSpace), p.Constants.RegisterSpace)
	assert.Equal(t, native.ShaderVisibilityVertex, p.ShaderVisibility)
}

func TestPipelineLayout_StaticSamplersUseSetSpace(t *testing.T) {
	d, _ := newTestDevice(t)
	empty := mustSetLayout(t, d, &metadata.DescriptorSetLayoutDesc{})
	withStatic := mustSetLayout(t, d, &metadata.DescriptorSetLayoutDesc{Bindings: []metadata.DescriptorSetLayoutBinding{{
		Binding:        4,
		Kind:           metadata.DescriptorKindSampler,
		StaticSamplers: []gputypes.SamplerDescriptor{gputypes.DefaultSamplerDescriptor()},
	}}})
	l := mustPipelineLayout(t, d, empty, withStatic)

	desc := rootSignatureDesc(t, l)
	assert.Empty(t, desc.Parameters)
	require.Len(t, desc.StaticSamplers, 1)
	assert.Equal(t, uint32(4), desc.StaticSamplers[0].ShaderRegister)
	assert.Equal(t, uint32(1), desc.StaticSamplers[0].RegisterSpace)
	assert.Equal(t, native.FilterMinMagMipPoint, desc.StaticSamplers[0].Filter)
}

func TestPipelineLayout_TooManySets(t *testing.T) {
	d, _ := newTestDevice(t)
	set := mustSetLayout(t, d, &metadata.DescriptorSetLayoutDesc{})
	sets := make([]*DescriptorSetLayout, MaxDescriptorSets)
	for i := range sets {
		sets[i] = set
	}
	_, err := d.CreatePipelineLayout(&PipelineLayoutDesc{SetLayouts: sets})
	assert.ErrorIs(t, err, ErrTooManyDescriptorSets)

	_, err = d.CreatePipelineLayout(&PipelineLayoutDesc{SetLayouts: sets[:MaxDescriptorSets-1]})
	assert.NoError(t, err)
}

func TestPipelineLayout_NativeFailureIsPlatformError(t *testing.T) {
	d, _ := newTestDevice(t)
	set := mustSetLayout(t, d, &metadata.DescriptorSetLayoutDesc{Bindings: []metadata.DescriptorSetLayoutBinding{
		{Binding: 0, Kind: metadata.DescriptorKindDynamicUniformBuffer},
	}})
	// 33 root descriptors cost 66 DWORDs
	sets := make([]*DescriptorSetLayout, 33)
	for i := range sets {
		sets[i] = set
	}
	_, err := d.CreatePipelineLayout(&PipelineLayoutDesc{Label: "too-big", SetLayouts: sets})
	require.ErrorIs(t, err, ErrRootSignatureCreate)
	assert.ErrorIs(t, err, software.ErrRootSignatureTooLarge)
	assert.Contains(t, err.Error(), "too-big")
}
