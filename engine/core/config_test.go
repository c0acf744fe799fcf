package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_OverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[device]
label = "editor"

[heaps]
resource_descriptors = 1024
sampler_descriptors = 64

[arena]
default_kind = "heap"

[log]
level = "debug"
`))
	require.NoError(t, err)

	assert.Equal(t, "editor", cfg.Device.Label)
	assert.Equal(t, "software", cfg.Device.Backend)
	assert.Equal(t, uint32(1024), cfg.Heaps.ResourceDescriptors)
	assert.Equal(t, uint32(64), cfg.Heaps.SamplerDescriptors)
	assert.Equal(t, uint32(16384), cfg.Heaps.StagingDescriptors)
	assert.Equal(t, "heap", cfg.Arena.DefaultKind)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseConfig_RejectsUnknownFields(t *testing.T) {
	_, err := ParseConfig([]byte("[device]\nflavour = \"spicy\"\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseConfig_RejectsSamplerHeapOverLimit(t *testing.T) {
	_, err := ParseConfig([]byte("[heaps]\nsampler_descriptors = 4096\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestParseConfig_RejectsUnknownArenaKind(t *testing.T) {
	_, err := ParseConfig([]byte("[arena]\ndefault_kind = \"ring\"\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoadConfig_RoundTripThroughFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.Label = "from-disk"
	data, err := cfg.Encode()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "device.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
