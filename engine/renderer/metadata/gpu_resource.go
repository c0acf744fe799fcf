package metadata

import "github.com/gogpu/gputypes"

type QueueType int

const (
	QueueTypeGraphics QueueType = iota
	QueueTypeCompute
	QueueTypeCopy
)

func (q QueueType) String() string {
	switch q {
	case QueueTypeGraphics:
		return "graphics"
	case QueueTypeCompute:
		return "compute"
	case QueueTypeCopy:
		return "copy"
	}
	return "unknown"
}

/** @brief Where a resource's memory lives. */
type MemoryLocation int

const (
	MemoryLocationGpuOnly MemoryLocation = iota
	MemoryLocationCpuToGpu
	MemoryLocationGpuToCpu
)

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

type BufferDesc struct {
	Label    string
	Size     uint64
	Usage    BufferUsage
	Location MemoryLocation
}

type TextureUsage uint32

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageStorage
	TextureUsageRenderTarget
	TextureUsageDepthStencil
)

type TextureDesc struct {
	Label       string
	Format      gputypes.TextureFormat
	Width       uint32
	Height      uint32
	ArrayLayers uint32
	MipLevels   uint32
	SampleCount uint32
	Usage       TextureUsage
}

/** @brief A view over a subresource range. Zero counts mean "the rest". */
type TextureViewDesc struct {
	Label          string
	Format         gputypes.TextureFormat
	BaseMipLevel   uint32
	MipLevelCount  uint32
	BaseArrayLayer uint32
	ArrayLayers    uint32
	/** @brief Creates an unordered-access view instead of a shader-resource view. */
	Storage bool
}
