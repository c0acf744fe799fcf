// Package native is the contract between the device translation layer and a
// root-signature graphics API. A backend implements Device and the object
// interfaces below; callers never see the concrete backend types.
package native

import "time"

// Device creates native objects. Implementations must be safe for concurrent use.
type Device interface {
	CreateRootSignature(desc *RootSignatureDesc) (RootSignature, error)
	CreateGraphicsPipelineState(desc *GraphicsPipelineStateDesc) (PipelineState, error)
	CreateComputePipelineState(desc *ComputePipelineStateDesc) (PipelineState, error)

	CreateDescriptorHeap(desc *DescriptorHeapDesc) (DescriptorHeap, error)
	GetDescriptorHandleIncrementSize(heapType DescriptorHeapType) uint32

	CreateConstantBufferView(desc *ConstantBufferViewDesc, dest CPUDescriptorHandle)
	CreateShaderResourceView(resource Resource, desc *ShaderResourceViewDesc, dest CPUDescriptorHandle)
	CreateUnorderedAccessView(resource Resource, counter Resource, desc *UnorderedAccessViewDesc, dest CPUDescriptorHandle)
	CreateSampler(desc *SamplerDesc, dest CPUDescriptorHandle)
	CopyDescriptorsSimple(numDescriptors uint32, dest, src CPUDescriptorHandle, heapType DescriptorHeapType)

	CreateCommittedResource(heapType HeapType, desc *ResourceDesc, initialState ResourceStates) (Resource, error)

	CreateFence(initialValue uint64) (Fence, error)
	CreateCommandQueue(listType CommandListType) (CommandQueue, error)
	CreateEvent() (Event, error)
	// SetEventOnMultipleFenceCompletion sets event once any or all of the
	// fences reach their paired value.
	SetEventOnMultipleFenceCompletion(fences []Fence, values []uint64, flags MultipleFenceWaitFlags, event Event) error

	Release()
}

type RootSignature interface {
	Release()
}

type PipelineState interface {
	// CachedBlob serializes the compiled pipeline for a later
	// CachedPSO. The blob is only valid on the same driver.
	CachedBlob() ([]byte, error)
	Release()
}

type DescriptorHeap interface {
	Desc() DescriptorHeapDesc
	CPUDescriptorHandleForHeapStart() CPUDescriptorHandle
	// GPUDescriptorHandleForHeapStart is zero for heaps that are not shader visible.
	GPUDescriptorHandleForHeapStart() GPUDescriptorHandle
	Release()
}

type Resource interface {
	Desc() ResourceDesc
	GPUVirtualAddress() uint64
	Release()
}

// Fence is a monotonic 64-bit counter shared between host and device.
type Fence interface {
	CompletedValue() uint64
	SetEventOnCompletion(value uint64, event Event) error
	Signal(value uint64) error
	Release()
}

type CommandQueue interface {
	Signal(fence Fence, value uint64) error
	Wait(fence Fence, value uint64) error
	Release()
}

// Event is an auto-reset OS wait handle.
type Event interface {
	// Wait blocks until the event is set or timeout elapses. A negative
	// timeout waits forever. It reports false on timeout.
	Wait(timeout time.Duration) (bool, error)
	Close() error
}
