package software

import "github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"

type Resource struct {
	desc     native.ResourceDesc
	heapType native.HeapType
	state    native.ResourceStates
	va       uint64
}

func (r *Resource) Desc() native.ResourceDesc {
	return r.desc
}

// GPUVirtualAddress is zero for textures.
func (r *Resource) GPUVirtualAddress() uint64 {
	return r.va
}

func (r *Resource) HeapType() native.HeapType {
	return r.heapType
}

func (r *Resource) Release() {}
