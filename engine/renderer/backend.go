package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native/software"
)

type BackendType uint8

const (
	// Software is the in-memory native device. It records every object it is
	// asked to create and never touches a GPU.
	Software BackendType = iota
	// D3D12 drives the real Direct3D 12 runtime. Windows only.
	D3D12
)

var ErrBackendUnavailable = errors.New("native backend not available on this platform")

func ParseBackendType(name string) (BackendType, error) {
	switch name {
	case "software":
		return Software, nil
	case "d3d12":
		return D3D12, nil
	}
	return 0, errors.Wrapf(core.ErrInvalidConfig, "unknown backend %q", name)
}

func (b BackendType) String() string {
	switch b {
	case Software:
		return "software"
	case D3D12:
		return "d3d12"
	}
	return "unknown"
}

// newNativeDevice opens the native device for b. The D3D12 variant lives in
// backend_windows.go.
func newNativeDevice(b BackendType, cfg *core.Config) (native.Device, error) {
	switch b {
	case Software:
		return software.NewDevice(), nil
	case D3D12:
		return newD3D12Device(cfg)
	}
	return nil, errors.Wrapf(ErrBackendUnavailable, "backend %d", b)
}
