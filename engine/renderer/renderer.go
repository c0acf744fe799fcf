package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/assets"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12"
)

// Renderer ties a translation-layer device to the native backend chosen in the
// config and, when configured, to an on-disk pipeline cache.
type Renderer struct {
	backend BackendType
	device  *dx12.Device
	cache   *assets.PipelineCacheStore
}

func New(cfg *core.Config) (*Renderer, error) {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.Log.Level)

	backend, err := ParseBackendType(cfg.Device.Backend)
	if err != nil {
		return nil, err
	}
	nd, err := newNativeDevice(backend, cfg)
	if err != nil {
		core.LogError("failed to open %s backend: %v", backend, err)
		return nil, err
	}
	device, err := dx12.NewDevice(nd, cfg)
	if err != nil {
		nd.Release()
		return nil, err
	}

	r := &Renderer{backend: backend, device: device}
	if dir := cfg.Device.PipelineCacheDir; dir != "" {
		cache, err := assets.NewPipelineCacheStore(dir)
		if err != nil {
			device.Destroy()
			return nil, errors.Wrap(err, "open pipeline cache")
		}
		device.SetPipelineCache(cache)
		r.cache = cache
	}
	core.LogInfo("renderer ready on the %s backend", backend)
	return r, nil
}

func (r *Renderer) Backend() BackendType {
	return r.backend
}

func (r *Renderer) Device() *dx12.Device {
	return r.device
}

// PipelineCache is nil when no cache directory is configured.
func (r *Renderer) PipelineCache() *assets.PipelineCacheStore {
	return r.cache
}

func (r *Renderer) Shutdown() error {
	var err error
	if r.cache != nil {
		err = r.cache.Close()
		r.cache = nil
	}
	if r.device != nil {
		r.device.Destroy()
		r.device = nil
	}
	return err
}
