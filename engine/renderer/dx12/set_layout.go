package dx12

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

// BindingLayout locates a binding inside its partition: the descriptor
// offset in the resource table, or the index among the layout's dynamic
// buffers or sampler tables.
type BindingLayout struct {
	BaseOffset uint32
	Count      uint32
}

type DescriptorBindingInfo struct {
	Kind            metadata.DescriptorKind
	IsStaticSampler bool
	Layout          BindingLayout
}

// DescriptorSetLayout is the native shape of one descriptor set. Register
// spaces are left at zero; the pipeline layout patches them with the set
// index. A layout is immutable and may be shared by any number of pipeline
// layouts and pools.
type DescriptorSetLayout struct {
	id    uuid.UUID
	label string

	bindings       map[uint32]DescriptorBindingInfo
	dynamicBuffers []native.RootParameter
	ranges         []native.DescriptorRange
	samplerRanges  []native.DescriptorRange
	samplerVis     []native.ShaderVisibility
	staticSamplers []native.StaticSamplerDesc

	tableVisibility metadata.ShaderStageFlags
	visibility      metadata.ShaderStageFlags
	resourceNum     uint32
}

func newDescriptorSetLayout(desc *metadata.DescriptorSetLayoutDesc) (*DescriptorSetLayout, error) {
	seen := make(map[uint32]struct{}, len(desc.Bindings))
	for i := range desc.Bindings {
		b := &desc.Bindings[i]
		if _, dup := seen[b.Binding]; dup {
			return nil, errors.Wrapf(ErrDuplicateBinding, "binding %d in layout %q", b.Binding, desc.Label)
		}
		seen[b.Binding] = struct{}{}
		if b.DescriptorCount() > 1 {
			return nil, errors.Wrapf(ErrDescriptorArraysUnimplemented,
				"binding %d (%s) has count %d", b.Binding, b.Kind, b.Count)
		}
		if len(b.StaticSamplers) > 1 {
			return nil, errors.Wrapf(ErrDescriptorArraysUnimplemented,
				"binding %d has %d static samplers", b.Binding, len(b.StaticSamplers))
		}
		if len(b.StaticSamplers) > 0 && b.Kind != metadata.DescriptorKindSampler {
			return nil, errors.Newf("binding %d: static samplers on a %s binding", b.Binding, b.Kind)
		}
	}

	l := &DescriptorSetLayout{
		label:    desc.Label,
		bindings: make(map[uint32]DescriptorBindingInfo, len(desc.Bindings)),
	}
	for i := range desc.Bindings {
		b := &desc.Bindings[i]
		l.visibility |= b.Visibility

		switch {
		case b.Kind == metadata.DescriptorKindDynamicUniformBuffer:
			l.bindings[b.Binding] = DescriptorBindingInfo{
				Kind:   b.Kind,
				Layout: BindingLayout{BaseOffset: uint32(len(l.dynamicBuffers)), Count: 1},
			}
			l.dynamicBuffers = append(l.dynamicBuffers, native.RootParameter{
				ParameterType:    native.RootParameterTypeCBV,
				Descriptor:       native.RootDescriptor{ShaderRegister: b.Binding},
				ShaderVisibility: shaderVisibility(b.Visibility),
			})

		case b.Kind == metadata.DescriptorKindSampler && len(b.StaticSamplers) > 0:
			l.bindings[b.Binding] = DescriptorBindingInfo{Kind: b.Kind, IsStaticSampler: true}
			l.staticSamplers = append(l.staticSamplers,
				staticSamplerDesc(&b.StaticSamplers[0], b.Binding, shaderVisibility(b.Visibility)))

		case b.Kind == metadata.DescriptorKindSampler:
			l.bindings[b.Binding] = DescriptorBindingInfo{
				Kind:   b.Kind,
				Layout: BindingLayout{BaseOffset: uint32(len(l.samplerRanges)), Count: 1},
			}
			l.samplerRanges = append(l.samplerRanges, native.DescriptorRange{
				RangeType:          native.DescriptorRangeTypeSampler,
				NumDescriptors:     1,
				BaseShaderRegister: b.Binding,
			})
			l.samplerVis = append(l.samplerVis, shaderVisibility(b.Visibility))

		default:
			offset := uint32(0)
			if n := len(l.ranges); n > 0 {
				last := l.ranges[n-1]
				offset = last.OffsetInDescriptorsFromTableStart + last.NumDescriptors
			}
			count := b.DescriptorCount()
			l.bindings[b.Binding] = DescriptorBindingInfo{
				Kind:   b.Kind,
				Layout: BindingLayout{BaseOffset: offset, Count: count},
			}
			l.ranges = append(l.ranges, native.DescriptorRange{
				RangeType:                         descriptorRangeType(b.Kind),
				NumDescriptors:                    count,
				BaseShaderRegister:                b.Binding,
				OffsetInDescriptorsFromTableStart: offset,
			})
			l.tableVisibility |= b.Visibility
			l.resourceNum = max(l.resourceNum, offset+count)
		}
	}
	return l, nil
}

func (l *DescriptorSetLayout) ID() uuid.UUID {
	return l.id
}

func (l *DescriptorSetLayout) Label() string {
	return l.label
}

// ResourceNum is the number of view descriptors each set of this layout
// occupies in the shader-visible heap.
func (l *DescriptorSetLayout) ResourceNum() uint32 {
	return l.resourceNum
}

// Binding returns the placement of a table, dynamic buffer or sampler-table
// binding. Static samplers live in the root signature and are not reported.
func (l *DescriptorSetLayout) Binding(binding uint32) (DescriptorBindingInfo, bool) {
	info, ok := l.bindings[binding]
	if !ok || info.IsStaticSampler {
		return DescriptorBindingInfo{}, false
	}
	return info, true
}

func (l *DescriptorSetLayout) Ranges() []native.DescriptorRange {
	return slices.Clone(l.ranges)
}

func (l *DescriptorSetLayout) DynamicBuffers() []native.RootParameter {
	return slices.Clone(l.dynamicBuffers)
}

func (l *DescriptorSetLayout) SamplerRanges() []native.DescriptorRange {
	return slices.Clone(l.samplerRanges)
}

func (l *DescriptorSetLayout) StaticSamplers() []native.StaticSamplerDesc {
	return slices.Clone(l.staticSamplers)
}

func (l *DescriptorSetLayout) Visibility() metadata.ShaderStageFlags {
	return l.visibility
}

func (l *DescriptorSetLayout) NumDynamicBuffers() int {
	return len(l.dynamicBuffers)
}

func (l *DescriptorSetLayout) NumSamplerTables() int {
	return len(l.samplerRanges)
}

// rootParameterCount is the number of root parameters the set contributes.
func (l *DescriptorSetLayout) rootParameterCount() int {
	n := len(l.dynamicBuffers) + len(l.samplerRanges)
	if len(l.ranges) > 0 {
		n++
	}
	return n
}

func (l *DescriptorSetLayout) dynamicBufferIndex(register uint32) int {
	return slices.IndexFunc(l.dynamicBuffers, func(p native.RootParameter) bool {
		return p.Descriptor.ShaderRegister == register
	})
}

func (l *DescriptorSetLayout) samplerTableIndex(register uint32) int {
	return slices.IndexFunc(l.samplerRanges, func(r native.DescriptorRange) bool {
		return r.BaseShaderRegister == register
	})
}
