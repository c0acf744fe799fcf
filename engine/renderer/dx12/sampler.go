package dx12

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

// Sampler is a descriptor in the shader-visible sampler heap. Samplers are
// owned by the device cache and live as long as the device.
type Sampler struct {
	desc  gputypes.SamplerDescriptor
	chunk *DescriptorChunk
	cpu   native.CPUDescriptorHandle
	gpu   native.GPUDescriptorHandle
}

func (s *Sampler) Desc() gputypes.SamplerDescriptor {
	return s.desc
}

func (s *Sampler) GPUHandle() native.GPUDescriptorHandle {
	return s.gpu
}

// samplerCache deduplicates samplers by description. Labels are not part of
// the key.
type samplerCache struct {
	dev   native.Device
	heaps *DescriptorHeapManager

	mu      sync.RWMutex
	entries map[gputypes.SamplerDescriptor]*Sampler
}

func newSamplerCache(dev native.Device, heaps *DescriptorHeapManager) *samplerCache {
	return &samplerCache{
		dev:     dev,
		heaps:   heaps,
		entries: make(map[gputypes.SamplerDescriptor]*Sampler),
	}
}

func (c *samplerCache) get(desc *gputypes.SamplerDescriptor) (*Sampler, error) {
	key := *desc
	key.Label = ""

	c.mu.RLock()
	s, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.entries[key]; ok {
		return s, nil
	}
	if c.entries == nil {
		return nil, errors.New("sampler cache is torn down")
	}
	chunk, err := c.heaps.AllocateSamplers(1)
	if err != nil {
		return nil, errors.Wrapf(ErrOutOfSamplers, "%d samplers cached: %v", len(c.entries), err)
	}
	s = &Sampler{desc: key, chunk: chunk}
	s.cpu, s.gpu = chunk.Handles(0)
	nd := samplerDesc(&key)
	c.dev.CreateSampler(&nd, s.cpu)
	c.entries[key] = s
	return s, nil
}

func (c *samplerCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *samplerCache) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.entries {
		s.chunk.Release()
	}
	c.entries = nil
}
