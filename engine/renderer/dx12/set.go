package dx12

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

// DescriptorSet is one instance of a layout. The base handles are fixed for
// the life of the set; writes only touch the descriptors behind them and the
// two resolved arrays.
type DescriptorSet struct {
	id        uuid.UUID
	layout    *DescriptorSetLayout
	offset    uint32
	slot      uint32
	cpu       native.CPUDescriptorHandle
	gpu       native.GPUDescriptorHandle
	increment uint32

	// DynamicConstantBuffers holds a GPU virtual address per dynamic uniform
	// buffer binding, in layout order.
	DynamicConstantBuffers []uint64
	// Samplers holds the shader-visible handle bound to each sampler table.
	Samplers []native.GPUDescriptorHandle
}

func (s *DescriptorSet) ID() uuid.UUID {
	return s.id
}

func (s *DescriptorSet) Layout() *DescriptorSetLayout {
	return s.layout
}

// CPUHandle is the first descriptor of the set's resource table.
func (s *DescriptorSet) CPUHandle() native.CPUDescriptorHandle {
	return s.cpu
}

// GPUHandle is bound as the set's resource table.
func (s *DescriptorSet) GPUHandle() native.GPUDescriptorHandle {
	return s.gpu
}

// descriptorHandle returns the destination of one descriptor in the table.
func (s *DescriptorSet) descriptorHandle(index uint32) native.CPUDescriptorHandle {
	return s.cpu.Offset(index, s.increment)
}

func (s *DescriptorSet) clearBindings() {
	clear(s.DynamicConstantBuffers)
	clear(s.Samplers)
}
