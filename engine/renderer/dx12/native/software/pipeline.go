package software

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

type RootSignature struct {
	desc native.RootSignatureDesc
}

// Desc returns the description the root signature was serialized from.
func (r *RootSignature) Desc() native.RootSignatureDesc {
	return r.desc
}

func (r *RootSignature) Release() {}

func (d *Device) CreateRootSignature(desc *native.RootSignatureDesc) (native.RootSignature, error) {
	if cost := desc.DWords(); cost > native.MaxRootSignatureDWords {
		return nil, errors.Wrapf(ErrRootSignatureTooLarge, "%d DWORDs", cost)
	}
	if len(desc.StaticSamplers) > maxStaticSamplers {
		return nil, errors.Wrapf(ErrInvalidArgument, "%d static samplers", len(desc.StaticSamplers))
	}
	for i := range desc.Parameters {
		if err := validateRootParameter(&desc.Parameters[i]); err != nil {
			return nil, errors.Wrapf(err, "root parameter %d", i)
		}
	}

	// the serialized blob owns its own copy of every table
	owned := native.RootSignatureDesc{
		Parameters:     slices.Clone(desc.Parameters),
		StaticSamplers: slices.Clone(desc.StaticSamplers),
		Flags:          desc.Flags,
	}
	for i := range owned.Parameters {
		owned.Parameters[i].DescriptorTable = slices.Clone(owned.Parameters[i].DescriptorTable)
	}
	return &RootSignature{desc: owned}, nil
}

func validateRootParameter(p *native.RootParameter) error {
	switch p.ParameterType {
	case native.RootParameterTypeDescriptorTable:
		if len(p.DescriptorTable) == 0 {
			return errors.Wrap(ErrInvalidArgument, "empty descriptor table")
		}
		samplers := p.DescriptorTable[0].RangeType == native.DescriptorRangeTypeSampler
		for _, r := range p.DescriptorTable {
			if (r.RangeType == native.DescriptorRangeTypeSampler) != samplers {
				return errors.Wrap(ErrInvalidArgument, "sampler ranges mixed with view ranges in one table")
			}
			if r.NumDescriptors == 0 {
				return errors.Wrap(ErrInvalidArgument, "descriptor range with zero descriptors")
			}
		}
	case native.RootParameterType32BitConstants:
		if p.Constants.Num32BitValues == 0 {
			return errors.Wrap(ErrInvalidArgument, "root constants with zero values")
		}
	case native.RootParameterTypeCBV, native.RootParameterTypeSRV, native.RootParameterTypeUAV:
	default:
		return errors.Wrapf(ErrInvalidArgument, "root parameter type %d", p.ParameterType)
	}
	if p.ShaderVisibility > native.ShaderVisibilityMesh {
		return errors.Wrapf(ErrInvalidArgument, "shader visibility %d", p.ShaderVisibility)
	}
	return nil
}

type PipelineState struct {
	graphics *native.GraphicsPipelineStateDesc
	compute  *native.ComputePipelineStateDesc
	blob     []byte
}

var pipelineBlobMagic = []byte("SWPSO1")

// pipelineBlob fingerprints the shader bytecode. A cached blob is accepted
// only for pipelines built from the same shaders.
func pipelineBlob(shaders ...[]byte) []byte {
	h := fnv.New64a()
	for _, s := range shaders {
		_, _ = h.Write(s)
		_, _ = h.Write([]byte{0})
	}
	return binary.LittleEndian.AppendUint64(slices.Clone(pipelineBlobMagic), h.Sum64())
}

func checkCachedBlob(cached, want []byte) error {
	if len(cached) > 0 && !bytes.Equal(cached, want) {
		return errors.Wrap(ErrInvalidArgument, "cached pipeline blob does not match the pipeline")
	}
	return nil
}

func (p *PipelineState) CachedBlob() ([]byte, error) {
	return slices.Clone(p.blob), nil
}

// GraphicsDesc returns the description of a graphics pipeline, or nil.
func (p *PipelineState) GraphicsDesc() *native.GraphicsPipelineStateDesc {
	return p.graphics
}

// ComputeDesc returns the description of a compute pipeline, or nil.
func (p *PipelineState) ComputeDesc() *native.ComputePipelineStateDesc {
	return p.compute
}

func (p *PipelineState) Release() {}

func (d *Device) CreateGraphicsPipelineState(desc *native.GraphicsPipelineStateDesc) (native.PipelineState, error) {
	if _, ok := desc.RootSignature.(*RootSignature); !ok {
		return nil, errors.Wrap(ErrForeignObject, "graphics pipeline root signature")
	}
	if len(desc.VS) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "graphics pipeline without a vertex shader")
	}
	if desc.NumRenderTargets > native.SimultaneousRenderTargetCount {
		return nil, errors.Wrapf(ErrInvalidArgument, "%d render targets", desc.NumRenderTargets)
	}
	for i := uint32(0); i < desc.NumRenderTargets; i++ {
		if desc.RTVFormats[i] == native.FormatUnknown {
			return nil, errors.Wrapf(ErrInvalidArgument, "render target %d has no format", i)
		}
	}
	if desc.PrimitiveTopologyType == native.PrimitiveTopologyTypeUndefined {
		return nil, errors.Wrap(ErrInvalidArgument, "undefined primitive topology type")
	}
	tessellated := len(desc.HS) > 0 || len(desc.DS) > 0
	if tessellated != (desc.PrimitiveTopologyType == native.PrimitiveTopologyTypePatch) {
		return nil, errors.Wrap(ErrInvalidArgument, "hull and domain shaders require patch topology")
	}
	for i, el := range desc.InputLayout {
		if el.SemanticName == "" {
			return nil, errors.Wrapf(ErrInvalidArgument, "input element %d has no semantic", i)
		}
		if el.InputSlot >= 16 {
			return nil, errors.Wrapf(ErrInvalidArgument, "input element %d reads slot %d", i, el.InputSlot)
		}
	}
	if desc.SampleDesc.Count == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "sample count is zero")
	}

	blob := pipelineBlob(desc.VS, desc.HS, desc.DS, desc.GS, desc.PS)
	if err := checkCachedBlob(desc.CachedPSO, blob); err != nil {
		return nil, err
	}

	owned := *desc
	owned.InputLayout = slices.Clone(desc.InputLayout)
	owned.CachedPSO = slices.Clone(desc.CachedPSO)
	return &PipelineState{graphics: &owned, blob: blob}, nil
}

func (d *Device) CreateComputePipelineState(desc *native.ComputePipelineStateDesc) (native.PipelineState, error) {
	if _, ok := desc.RootSignature.(*RootSignature); !ok {
		return nil, errors.Wrap(ErrForeignObject, "compute pipeline root signature")
	}
	if len(desc.CS) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "compute pipeline without a compute shader")
	}
	blob := pipelineBlob(desc.CS)
	if err := checkCachedBlob(desc.CachedPSO, blob); err != nil {
		return nil, err
	}

	owned := *desc
	owned.CachedPSO = slices.Clone(desc.CachedPSO)
	return &PipelineState{compute: &owned, blob: blob}, nil
}
