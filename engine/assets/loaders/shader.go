package loaders

import (
	"encoding/binary"
	"io/fs"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
)

const (
	dxbcMagic  = "DXBC"
	spirvMagic = 0x07230203
)

var ErrUnknownShaderFile = errors.New("unknown shader file")

// stageSuffixes maps the second extension of a shader file name
// ("mesh.vs.cso") to its stage.
var stageSuffixes = map[string]metadata.ShaderStageFlags{
	"vs": metadata.ShaderStageVertex,
	"ps": metadata.ShaderStageFragment,
	"hs": metadata.ShaderStageHull,
	"ds": metadata.ShaderStageDomain,
	"gs": metadata.ShaderStageGeometry,
	"cs": metadata.ShaderStageCompute,
	"as": metadata.ShaderStageAmplification,
	"ms": metadata.ShaderStageMesh,
}

// ShaderLoader reads precompiled shader binaries. The format is taken from
// the file contents, the stage from the file name.
type ShaderLoader struct {
	FS         fs.FS
	EntryPoint string
}

func (sl *ShaderLoader) Load(name string) (metadata.ShaderBinary, error) {
	stage, err := stageOf(name)
	if err != nil {
		return metadata.ShaderBinary{}, err
	}
	data, err := fs.ReadFile(sl.FS, name)
	if err != nil {
		return metadata.ShaderBinary{}, errors.Wrapf(err, "read shader %s", name)
	}
	format, err := formatOf(data)
	if err != nil {
		return metadata.ShaderBinary{}, errors.Wrapf(err, "shader %s", name)
	}
	entry := sl.EntryPoint
	if entry == "" {
		entry = "main"
	}
	return metadata.ShaderBinary{Stage: stage, Format: format, EntryPoint: entry, Code: data}, nil
}

func stageOf(name string) (metadata.ShaderStageFlags, error) {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	stage, ok := stageSuffixes[strings.TrimPrefix(path.Ext(base), ".")]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownShaderFile, "no stage suffix in %q", name)
	}
	return stage, nil
}

func formatOf(data []byte) (metadata.ShaderFormat, error) {
	if len(data) < 4 {
		return 0, errors.Wrapf(ErrUnknownShaderFile, "%d bytes", len(data))
	}
	if string(data[:4]) == dxbcMagic {
		return metadata.ShaderFormatDXIL, nil
	}
	if binary.LittleEndian.Uint32(data) == spirvMagic {
		if len(data)%4 != 0 {
			return 0, errors.Wrapf(ErrUnknownShaderFile, "SPIR-V size %d is not a multiple of 4", len(data))
		}
		return metadata.ShaderFormatSPIRV, nil
	}
	return 0, errors.Wrapf(ErrUnknownShaderFile, "magic %x", data[:4])
}
