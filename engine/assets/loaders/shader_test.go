package loaders

import (
	"encoding/binary"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShaderLoader_Load(t *testing.T) {
	spirv := binary.LittleEndian.AppendUint32(nil, spirvMagic)
	spirv = binary.LittleEndian.AppendUint32(spirv, 0x00010500)
	sl := &ShaderLoader{FS: fstest.MapFS{
		"shaders/mesh.vs.cso":  {Data: []byte("DXBC-vertex")},
		"shaders/mesh.ps.cso":  {Data: []byte("DXBC-pixel")},
		"shaders/cull.cs.spv":  {Data: spirv},
		"shaders/odd.cs.spv":   {Data: append(spirv, 0)},
		"shaders/mesh.cso":     {Data: []byte("DXBC")},
		"shaders/junk.ps.cso":  {Data: []byte("nope")},
		"shaders/short.vs.cso": {Data: []byte("DX")},
	}}

	vs, err := sl.Load("shaders/mesh.vs.cso")
	require.NoError(t, err)
	assert.Equal(t, metadata.ShaderStageVertex, vs.Stage)
	assert.Equal(t, metadata.ShaderFormatDXIL, vs.Format)
	assert.Equal(t, "main", vs.EntryPoint)
	assert.Equal(t, []byte("DXBC-vertex"), vs.Code)

	ps, err := sl.Load("shaders/mesh.ps.cso")
	require.NoError(t, err)
	assert.Equal(t, metadata.ShaderStageFragment, ps.Stage)

	cs, err := sl.Load("shaders/cull.cs.spv")
	require.NoError(t, err)
	assert.Equal(t, metadata.ShaderStageCompute, cs.Stage)
	assert.Equal(t, metadata.ShaderFormatSPIRV, cs.Format)

	for _, name := range []string{"shaders/odd.cs.spv", "shaders/mesh.cso", "shaders/junk.ps.cso", "shaders/short.vs.cso"} {
		_, err := sl.Load(name)
		assert.True(t, errors.Is(err, ErrUnknownShaderFile), name)
	}
	_, err = sl.Load("shaders/missing.vs.cso")
	assert.Error(t, err)
}
