package dx12

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-dx12/engine/containers"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

// PushConstantRegisterSpace is the register space of every push-constant
// block. Descriptor sets use spaces 0 through PushConstantRegisterSpace-1.
const PushConstantRegisterSpace = 1024

// MaxDescriptorSets is the largest number of sets a pipeline layout accepts.
const MaxDescriptorSets = PushConstantRegisterSpace

type PipelineLayoutDesc struct {
	Label         string
	SetLayouts    []*DescriptorSetLayout
	PushConstants []metadata.PushConstantRange
}

type PushConstantBlock struct {
	Size               uint32
	RootParameterIndex uint32
}

// SetRootParameters lists the root parameter indices one set binds through.
// ResourceTable is -1 when the set has no table.
type SetRootParameters struct {
	DynamicBuffers []uint32
	ResourceTable  int
	SamplerTables  []uint32
}

type PipelineLayout struct {
	id    uuid.UUID
	label string

	setLayouts          []*DescriptorSetLayout
	setRootParamIndices []uint32
	setParams           []SetRootParameters
	pushConstants       []PushConstantBlock
	numParameters       uint32

	rootSignature native.RootSignature
}

// buildRootSignature lays the sets out in order, each set's register space
// being its index, and appends push constants last. The returned description
// points into s and is only valid until s is released.
func buildRootSignature(s *containers.Scratch, desc *PipelineLayoutDesc) (native.RootSignatureDesc, *PipelineLayout, error) {
	if len(desc.SetLayouts) >= MaxDescriptorSets {
		return native.RootSignatureDesc{}, nil, errors.Wrapf(ErrTooManyDescriptorSets,
			"%d sets, register space %d is reserved for push constants", len(desc.SetLayouts), PushConstantRegisterSpace)
	}
	for i, pc := range desc.PushConstants {
		if pc.Size == 0 || pc.Size%4 != 0 {
			return native.RootSignatureDesc{}, nil, errors.Wrapf(ErrInvalidPushConstantBlockSize,
				"push constant block %d (register %d) is %d bytes", i, pc.Binding, pc.Size)
		}
	}

	numParams, numRanges, numStatic := len(desc.PushConstants), 0, 0
	for _, sl := range desc.SetLayouts {
		numParams += sl.rootParameterCount()
		numRanges += len(sl.ranges) + len(sl.samplerRanges)
		numStatic += len(sl.staticSamplers)
	}
	params := containers.Alloc[native.RootParameter](s, numParams)
	ranges := containers.Alloc[native.DescriptorRange](s, numRanges)
	statics := containers.Alloc[native.StaticSamplerDesc](s, numStatic)

	layout := &PipelineLayout{
		label:               desc.Label,
		setLayouts:          append([]*DescriptorSetLayout(nil), desc.SetLayouts...),
		setRootParamIndices: make([]uint32, len(desc.SetLayouts)),
		setParams:           make([]SetRootParameters, len(desc.SetLayouts)),
	}

	var p, r, st int
	for set, sl := range desc.SetLayouts {
		space := uint32(set)
		layout.setRootParamIndices[set] = uint32(p)
		sp := SetRootParameters{ResourceTable: -1}

		for _, db := range sl.dynamicBuffers {
			db.Descriptor.RegisterSpace = space
			params[p] = db
			sp.DynamicBuffers = append(sp.DynamicBuffers, uint32(p))
			p++
		}

		if len(sl.ranges) > 0 {
			table := ranges[r : r+len(sl.ranges)]
			copy(table, sl.ranges)
			for i := range table {
				table[i].RegisterSpace = space
			}
			r += len(table)
			params[p] = native.RootParameter{
				ParameterType:    native.RootParameterTypeDescriptorTable,
				DescriptorTable:  table,
				ShaderVisibility: shaderVisibility(sl.tableVisibility),
			}
			sp.ResourceTable = p
			p++
		}

		for i, sr := range sl.samplerRanges {
			sr.RegisterSpace = space
			ranges[r] = sr
			params[p] = native.RootParameter{
				ParameterType:    native.RootParameterTypeDescriptorTable,
				DescriptorTable:  ranges[r : r+1],
				ShaderVisibility: sl.samplerVis[i],
			}
			sp.SamplerTables = append(sp.SamplerTables, uint32(p))
			r++
			p++
		}

		for _, ss := range sl.staticSamplers {
			ss.RegisterSpace = space
			statics[st] = ss
			st++
		}
		layout.setParams[set] = sp
	}

	for _, pc := range desc.PushConstants {
		params[p] = native.RootParameter{
			ParameterType: native.RootParameterType32BitConstants,
			Constants: native.RootConstants{
				ShaderRegister: pc.Binding,
				RegisterSpace:  PushConstantRegisterSpace,
				Num32BitValues: pc.Size / 4,
			},
			ShaderVisibility: shaderVisibility(pc.Visibility),
		}
		layout.pushConstants = append(layout.pushConstants, PushConstantBlock{
			Size:               pc.Size,
			RootParameterIndex: uint32(p),
		})
		p++
	}
	layout.numParameters = uint32(p)

	return native.RootSignatureDesc{
		Parameters:     params,
		StaticSamplers: statics,
		Flags:          native.RootSignatureFlagAllowInputAssemblerInputLayout,
	}, layout, nil
}

func (l *PipelineLayout) ID() uuid.UUID {
	return l.id
}

func (l *PipelineLayout) Label() string {
	return l.label
}

// SetRootParamIndices returns, per set, the index of the first root
// parameter the set contributes.
func (l *PipelineLayout) SetRootParamIndices() []uint32 {
	return append([]uint32(nil), l.setRootParamIndices...)
}

func (l *PipelineLayout) SetRootParameters(set int) SetRootParameters {
	return l.setParams[set]
}

func (l *PipelineLayout) PushConstants() []PushConstantBlock {
	return append([]PushConstantBlock(nil), l.pushConstants...)
}

func (l *PipelineLayout) SetLayout(set int) *DescriptorSetLayout {
	return l.setLayouts[set]
}

func (l *PipelineLayout) NumSets() int {
	return len(l.setLayouts)
}

func (l *PipelineLayout) NumParameters() uint32 {
	return l.numParameters
}

func (l *PipelineLayout) RootSignature() native.RootSignature {
	return l.rootSignature
}

func (l *PipelineLayout) Destroy() {
	if l.rootSignature != nil {
		l.rootSignature.Release()
		l.rootSignature = nil
	}
}
