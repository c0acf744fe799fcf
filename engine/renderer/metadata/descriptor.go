package metadata

import "github.com/gogpu/gputypes"

/** @brief The kind of resource a descriptor binding exposes to shaders. */
type DescriptorKind uint8

const (
	DescriptorKindSampler DescriptorKind = iota
	/** @brief A uniform buffer whose offset is supplied per bind; lives in a root descriptor. */
	DescriptorKindDynamicUniformBuffer
	DescriptorKindUniformBuffer
	DescriptorKindStructuredBuffer
	DescriptorKindRWStructuredBuffer
	DescriptorKindByteAddressBuffer
	DescriptorKindRWByteAddressBuffer
	DescriptorKindTexelBuffer
	DescriptorKindRWTexelBuffer
	DescriptorKindTexture
	DescriptorKindRWTexture
	DescriptorKindInputAttachment
)

func (k DescriptorKind) String() string {
	switch k {
	case DescriptorKindSampler:
		return "Sampler"
	case DescriptorKindDynamicUniformBuffer:
		return "DynamicUniformBuffer"
	case DescriptorKindUniformBuffer:
		return "UniformBuffer"
	case DescriptorKindStructuredBuffer:
		return "StructuredBuffer"
	case DescriptorKindRWStructuredBuffer:
		return "RWStructuredBuffer"
	case DescriptorKindByteAddressBuffer:
		return "ByteAddressBuffer"
	case DescriptorKindRWByteAddressBuffer:
		return "RWByteAddressBuffer"
	case DescriptorKindTexelBuffer:
		return "TexelBuffer"
	case DescriptorKindRWTexelBuffer:
		return "RWTexelBuffer"
	case DescriptorKindTexture:
		return "Texture"
	case DescriptorKindRWTexture:
		return "RWTexture"
	case DescriptorKindInputAttachment:
		return "InputAttachment"
	default:
		return "Unknown"
	}
}

/** @brief Reports whether shaders may write through this kind. */
func (k DescriptorKind) IsWritable() bool {
	switch k {
	case DescriptorKindRWStructuredBuffer, DescriptorKindRWByteAddressBuffer,
		DescriptorKindRWTexelBuffer, DescriptorKindRWTexture:
		return true
	}
	return false
}

/** @brief A bit set of shader stages. */
type ShaderStageFlags uint32

const (
	ShaderStageVertex ShaderStageFlags = 1 << iota
	ShaderStageHull
	ShaderStageDomain
	ShaderStageGeometry
	ShaderStageFragment
	ShaderStageCompute
	ShaderStageAmplification
	ShaderStageMesh

	ShaderStageAllGraphics = ShaderStageVertex | ShaderStageHull | ShaderStageDomain |
		ShaderStageGeometry | ShaderStageFragment
	ShaderStageAll = ShaderStageAllGraphics | ShaderStageCompute |
		ShaderStageAmplification | ShaderStageMesh
)

func (s ShaderStageFlags) String() string {
	switch s {
	case ShaderStageVertex:
		return "Vertex"
	case ShaderStageHull:
		return "Hull"
	case ShaderStageDomain:
		return "Domain"
	case ShaderStageGeometry:
		return "Geometry"
	case ShaderStageFragment:
		return "Fragment"
	case ShaderStageCompute:
		return "Compute"
	case ShaderStageAmplification:
		return "Amplification"
	case ShaderStageMesh:
		return "Mesh"
	case ShaderStageAllGraphics:
		return "AllGraphics"
	case ShaderStageAll:
		return "All"
	default:
		return "Mixed"
	}
}

/**
 * @brief One binding of a descriptor set layout.
 *
 * Count of 0 or 1 describes a single descriptor. StaticSamplers is only
 * meaningful for sampler bindings and bakes the samplers into the pipeline
 * layout instead of a descriptor table.
 */
type DescriptorSetLayoutBinding struct {
	Binding        uint32
	Kind           DescriptorKind
	Count          uint32
	StaticSamplers []gputypes.SamplerDescriptor
	Visibility     ShaderStageFlags
}

/** @brief Returns the number of descriptors the binding occupies. */
func (b *DescriptorSetLayoutBinding) DescriptorCount() uint32 {
	if b.Count == 0 {
		return 1
	}
	return b.Count
}

type DescriptorSetLayoutDesc struct {
	Label    string
	Bindings []DescriptorSetLayoutBinding
}

/** @brief A push-constant block delivered as inline root constants. */
type PushConstantRange struct {
	/** @brief The shader register the block binds to. */
	Binding uint32
	/** @brief The size of the block in bytes. Must be a non-zero multiple of 4. */
	Size       uint32
	Visibility ShaderStageFlags
}
