//go:build !windows

package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/dx12/native"
)

func newD3D12Device(*core.Config) (native.Device, error) {
	return nil, errors.Wrap(ErrBackendUnavailable, "d3d12")
}
