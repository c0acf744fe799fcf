//go:build windows && !(js && wasm)

package win32

import (
	"runtime"
	"syscall"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/wgpu/hal/dx12/d3d12"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"golang.org/x/sys/windows"
)

type RootSignature struct {
	raw *d3d12.ID3D12RootSignature
}

func (r *RootSignature) Release() {
	if r.raw != nil {
		r.raw.Release()
		r.raw = nil
	}
}

func (d *Device) CreateRootSignature(desc *native.RootSignatureDesc) (native.RootSignature, error) {
	params := make([]d3d12.D3D12_ROOT_PARAMETER, len(desc.Parameters))
	// range arrays must stay reachable until serialization returns
	ranges := make([][]d3d12.D3D12_DESCRIPTOR_RANGE, len(desc.Parameters))
	for i := range desc.Parameters {
		p := &desc.Parameters[i]
		params[i].ParameterType = d3d12.D3D12_ROOT_PARAMETER_TYPE(p.ParameterType)
		params[i].ShaderVisibility = d3d12.D3D12_SHADER_VISIBILITY(p.ShaderVisibility)
		switch p.ParameterType {
		case native.RootParameterTypeDescriptorTable:
			rs := make([]d3d12.D3D12_DESCRIPTOR_RANGE, len(p.DescriptorTable))
			for j, r := range p.DescriptorTable {
				rs[j] = d3d12.D3D12_DESCRIPTOR_RANGE{
					RangeType:                         d3d12.D3D12_DESCRIPTOR_RANGE_TYPE(r.RangeType),
					NumDescriptors:                    r.NumDescriptors,
					BaseShaderRegister:                r.BaseShaderRegister,
					RegisterSpace:                     r.RegisterSpace,
					OffsetInDescriptorsFromTableStart: r.OffsetInDescriptorsFromTableStart,
				}
			}
			ranges[i] = rs
			table := (*d3d12.D3D12_ROOT_DESCRIPTOR_TABLE)(unsafe.Pointer(&params[i].Union[0]))
			table.NumDescriptorRanges = uint32(len(rs))
			if len(rs) > 0 {
				table.DescriptorRanges = &rs[0]
			}
		case native.RootParameterType32BitConstants:
			*(*d3d12.D3D12_ROOT_CONSTANTS)(unsafe.Pointer(&params[i].Union[0])) = d3d12.D3D12_ROOT_CONSTANTS{
				ShaderRegister: p.Constants.ShaderRegister,
				RegisterSpace:  p.Constants.RegisterSpace,
				Num32BitValues: p.Constants.Num32BitValues,
			}
		default:
			*(*d3d12.D3D12_ROOT_DESCRIPTOR)(unsafe.Pointer(&params[i].Union[0])) = d3d12.D3D12_ROOT_DESCRIPTOR{
				ShaderRegister: p.Descriptor.ShaderRegister,
				RegisterSpace:  p.Descriptor.RegisterSpace,
			}
		}
	}

	samplers := make([]d3d12.D3D12_STATIC_SAMPLER_DESC, len(desc.StaticSamplers))
	for i, s := range desc.StaticSamplers {
		samplers[i] = d3d12.D3D12_STATIC_SAMPLER_DESC{
			Filter:           d3d12.D3D12_FILTER(s.Filter),
			AddressU:         d3d12.D3D12_TEXTURE_ADDRESS_MODE(s.AddressU),
			AddressV:         d3d12.D3D12_TEXTURE_ADDRESS_MODE(s.AddressV),
			AddressW:         d3d12.D3D12_TEXTURE_ADDRESS_MODE(s.AddressW),
			MipLODBias:       s.MipLODBias,
			MaxAnisotropy:    s.MaxAnisotropy,
			ComparisonFunc:   d3d12.D3D12_COMPARISON_FUNC(s.ComparisonFunc),
			BorderColor:      d3d12.D3D12_STATIC_BORDER_COLOR(s.BorderColor),
			MinLOD:           s.MinLOD,
			MaxLOD:           s.MaxLOD,
			ShaderRegister:   s.ShaderRegister,
			RegisterSpace:    s.RegisterSpace,
			ShaderVisibility: d3d12.D3D12_SHADER_VISIBILITY(s.ShaderVisibility),
		}
	}

	rsd := d3d12.D3D12_ROOT_SIGNATURE_DESC{Flags: d3d12.D3D12_ROOT_SIGNATURE_FLAGS(desc.Flags)}
	if len(params) > 0 {
		rsd.NumParameters = uint32(len(params))
		rsd.Parameters = &params[0]
	}
	if len(samplers) > 0 {
		rsd.NumStaticSamplers = uint32(len(samplers))
		rsd.StaticSamplers = &samplers[0]
	}

	blob, errBlob, err := d.lib.SerializeRootSignature(&rsd, d3d12.D3D_ROOT_SIGNATURE_VERSION_1_0)
	runtime.KeepAlive(ranges)
	if err != nil {
		if errBlob != nil {
			msg := blobString(errBlob)
			errBlob.Release()
			return nil, errors.Wrapf(err, "serialize root signature: %s", msg)
		}
		return nil, errors.Wrap(err, "serialize root signature")
	}
	defer blob.Release()

	raw, err := d.raw.CreateRootSignature(0, blob.GetBufferPointer(), blob.GetBufferSize())
	if err != nil {
		return nil, err
	}
	return &RootSignature{raw: raw}, nil
}

func blobString(b *d3d12.ID3DBlob) string {
	n := b.GetBufferSize()
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(b.GetBufferPointer()), n))
}

type PipelineState struct {
	raw *d3d12.ID3D12PipelineState
}

// pipelineStateVtbl mirrors ID3D12PipelineState up to GetCachedBlob, which
// the bindings do not expose.
type pipelineStateVtbl struct {
	QueryInterface          uintptr
	AddRef                  uintptr
	Release                 uintptr
	GetPrivateData          uintptr
	SetPrivateData          uintptr
	SetPrivateDataInterface uintptr
	SetName                 uintptr
	GetDevice               uintptr
	GetCachedBlob           uintptr
}

func (p *PipelineState) CachedBlob() ([]byte, error) {
	if p.raw == nil {
		return nil, errors.New("pipeline state released")
	}
	vtbl := *(**pipelineStateVtbl)(unsafe.Pointer(p.raw))
	var blob *d3d12.ID3DBlob
	ret, _, _ := syscall.SyscallN(vtbl.GetCachedBlob,
		uintptr(unsafe.Pointer(p.raw)),
		uintptr(unsafe.Pointer(&blob)),
	)
	if ret != 0 {
		return nil, errors.Wrap(d3d12.HRESULTError(ret), "GetCachedBlob")
	}
	defer blob.Release()
	n := blob.GetBufferSize()
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(blob.GetBufferPointer()), n))
	return out, nil
}

func (p *PipelineState) Raw() *d3d12.ID3D12PipelineState {
	return p.raw
}

func (p *PipelineState) Release() {
	if p.raw != nil {
		p.raw.Release()
		p.raw = nil
	}
}

func bytecode(code []byte) d3d12.D3D12_SHADER_BYTECODE {
	if len(code) == 0 {
		return d3d12.D3D12_SHADER_BYTECODE{}
	}
	return d3d12.D3D12_SHADER_BYTECODE{ShaderBytecode: unsafe.Pointer(&code[0]), BytecodeLength: uintptr(len(code))}
}

func cachedPSO(blob []byte) d3d12.D3D12_CACHED_PIPELINE_STATE {
	if len(blob) == 0 {
		return d3d12.D3D12_CACHED_PIPELINE_STATE{}
	}
	return d3d12.D3D12_CACHED_PIPELINE_STATE{CachedBlob: unsafe.Pointer(&blob[0]), CachedBlobSizeInBytes: uintptr(len(blob))}
}

func boolean(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func rawRootSignature(rs native.RootSignature) (*d3d12.ID3D12RootSignature, error) {
	r, ok := rs.(*RootSignature)
	if !ok {
		return nil, errors.Wrapf(ErrForeignObject, "root signature %T", rs)
	}
	return r.raw, nil
}

func (d *Device) CreateGraphicsPipelineState(desc *native.GraphicsPipelineStateDesc) (native.PipelineState, error) {
	root, err := rawRootSignature(desc.RootSignature)
	if err != nil {
		return nil, err
	}

	elements := make([]d3d12.D3D12_INPUT_ELEMENT_DESC, len(desc.InputLayout))
	names := make([]*byte, len(desc.InputLayout))
	for i, e := range desc.InputLayout {
		name, err := windows.BytePtrFromString(e.SemanticName)
		if err != nil {
			return nil, errors.Wrapf(err, "semantic %q", e.SemanticName)
		}
		names[i] = name
		elements[i] = d3d12.D3D12_INPUT_ELEMENT_DESC{
			SemanticName:         name,
			SemanticIndex:        e.SemanticIndex,
			Format:               d3d12.DXGI_FORMAT(e.Format),
			InputSlot:            e.InputSlot,
			AlignedByteOffset:    e.AlignedByteOffset,
			InputSlotClass:       d3d12.D3D12_INPUT_CLASSIFICATION(e.InputSlotClass),
			InstanceDataStepRate: e.InstanceDataStepRate,
		}
	}

	pd := d3d12.D3D12_GRAPHICS_PIPELINE_STATE_DESC{
		RootSignature: root,
		VS:            bytecode(desc.VS),
		PS:            bytecode(desc.PS),
		DS:            bytecode(desc.DS),
		HS:            bytecode(desc.HS),
		GS:            bytecode(desc.GS),
		SampleMask:    desc.SampleMask,
		RasterizerState: d3d12.D3D12_RASTERIZER_DESC{
			FillMode:              d3d12.D3D12_FILL_MODE(desc.RasterizerState.FillMode),
			CullMode:              d3d12.D3D12_CULL_MODE(desc.RasterizerState.CullMode),
			FrontCounterClockwise: boolean(desc.RasterizerState.FrontCounterClockwise),
			DepthBias:             desc.RasterizerState.DepthBias,
			DepthBiasClamp:        desc.RasterizerState.DepthBiasClamp,
			SlopeScaledDepthBias:  desc.RasterizerState.SlopeScaledDepthBias,
			DepthClipEnable:       boolean(desc.RasterizerState.DepthClipEnable),
			MultisampleEnable:     boolean(desc.RasterizerState.MultisampleEnable),
			AntialiasedLineEnable: boolean(desc.RasterizerState.AntialiasedLineEnable),
			ForcedSampleCount:     desc.RasterizerState.ForcedSampleCount,
			ConservativeRaster:    d3d12.D3D12_CONSERVATIVE_RASTERIZATION_MODE(boolean(desc.RasterizerState.ConservativeRaster)),
		},
		DepthStencilState: d3d12.D3D12_DEPTH_STENCIL_DESC{
			DepthEnable:      boolean(desc.DepthStencilState.DepthEnable),
			DepthWriteMask:   d3d12.D3D12_DEPTH_WRITE_MASK(desc.DepthStencilState.DepthWriteMask),
			DepthFunc:        d3d12.D3D12_COMPARISON_FUNC(desc.DepthStencilState.DepthFunc),
			StencilEnable:    boolean(desc.DepthStencilState.StencilEnable),
			StencilReadMask:  desc.DepthStencilState.StencilReadMask,
			StencilWriteMask: desc.DepthStencilState.StencilWriteMask,
			FrontFace:        stencilOp(desc.DepthStencilState.FrontFace),
			BackFace:         stencilOp(desc.DepthStencilState.BackFace),
		},
		IBStripCutValue:       d3d12.D3D12_INDEX_BUFFER_STRIP_CUT_VALUE(desc.IBStripCutValue),
		PrimitiveTopologyType: d3d12.D3D12_PRIMITIVE_TOPOLOGY_TYPE(desc.PrimitiveTopologyType),
		NumRenderTargets:      desc.NumRenderTargets,
		DSVFormat:             d3d12.DXGI_FORMAT(desc.DSVFormat),
		SampleDesc:            d3d12.DXGI_SAMPLE_DESC{Count: desc.SampleDesc.Count, Quality: desc.SampleDesc.Quality},
		CachedPSO:             cachedPSO(desc.CachedPSO),
	}
	if len(elements) > 0 {
		pd.InputLayout = d3d12.D3D12_INPUT_LAYOUT_DESC{InputElementDescs: &elements[0], NumElements: uint32(len(elements))}
	}
	pd.BlendState.AlphaToCoverageEnable = boolean(desc.BlendState.AlphaToCoverageEnable)
	pd.BlendState.IndependentBlendEnable = boolean(desc.BlendState.IndependentBlendEnable)
	for i, rt := range desc.BlendState.RenderTarget {
		pd.BlendState.RenderTarget[i] = d3d12.D3D12_RENDER_TARGET_BLEND_DESC{
			BlendEnable:           boolean(rt.BlendEnable),
			SrcBlend:              d3d12.D3D12_BLEND(rt.SrcBlend),
			DestBlend:             d3d12.D3D12_BLEND(rt.DestBlend),
			BlendOp:               d3d12.D3D12_BLEND_OP(rt.BlendOp),
			SrcBlendAlpha:         d3d12.D3D12_BLEND(rt.SrcBlendAlpha),
			DestBlendAlpha:        d3d12.D3D12_BLEND(rt.DestBlendAlpha),
			BlendOpAlpha:          d3d12.D3D12_BLEND_OP(rt.BlendOpAlpha),
			LogicOp:               d3d12.D3D12_LOGIC_OP_NOOP,
			RenderTargetWriteMask: rt.RenderTargetWriteMask,
		}
		pd.RTVFormats[i] = d3d12.DXGI_FORMAT(desc.RTVFormats[i])
	}

	raw, err := d.raw.CreateGraphicsPipelineState(&pd)
	runtime.KeepAlive(names)
	runtime.KeepAlive(elements)
	runtime.KeepAlive(desc)
	if err != nil {
		return nil, err
	}
	return &PipelineState{raw: raw}, nil
}

func (d *Device) CreateComputePipelineState(desc *native.ComputePipelineStateDesc) (native.PipelineState, error) {
	root, err := rawRootSignature(desc.RootSignature)
	if err != nil {
		return nil, err
	}
	raw, err := d.raw.CreateComputePipelineState(&d3d12.D3D12_COMPUTE_PIPELINE_STATE_DESC{
		RootSignature: root,
		CS:            bytecode(desc.CS),
		CachedPSO:     cachedPSO(desc.CachedPSO),
	})
	runtime.KeepAlive(desc)
	if err != nil {
		return nil, err
	}
	return &PipelineState{raw: raw}, nil
}

func stencilOp(s native.DepthStencilOpDesc) d3d12.D3D12_DEPTH_STENCILOP_DESC {
	return d3d12.D3D12_DEPTH_STENCILOP_DESC{
		StencilFailOp:      d3d12.D3D12_STENCIL_OP(s.StencilFailOp),
		StencilDepthFailOp: d3d12.D3D12_STENCIL_OP(s.StencilDepthFailOp),
		StencilPassOp:      d3d12.D3D12_STENCIL_OP(s.StencilPassOp),
		StencilFunc:        d3d12.D3D12_COMPARISON_FUNC(s.StencilFunc),
	}
}
