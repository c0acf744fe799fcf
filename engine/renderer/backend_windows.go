//go:build windows

package renderer

import (
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native/win32"
)

func newD3D12Device(cfg *core.Config) (native.Device, error) {
	return win32.NewDevice(win32.Options{Debug: cfg.Device.Validation})
}
