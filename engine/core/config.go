package core

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// Config is the on-disk device configuration.
type Config struct {
	Device DeviceConfig `toml:"device"`
	Heaps  HeapConfig   `toml:"heaps"`
	Arena  ArenaConfig  `toml:"arena"`
	Log    LogConfig    `toml:"log"`
}

type DeviceConfig struct {
	// Backend selects the native variant: "software" or "d3d12".
	Backend    string `toml:"backend"`
	Label      string `toml:"label"`
	Validation bool   `toml:"validation"`
	// PipelineCacheDir holds opaque pipeline-cache blobs. Empty disables the cache.
	PipelineCacheDir string `toml:"pipeline_cache_dir"`
}

type HeapConfig struct {
	// Shader-visible resource-view heap capacity.
	ResourceDescriptors uint32 `toml:"resource_descriptors"`
	// Shader-visible sampler heap capacity.
	SamplerDescriptors uint32 `toml:"sampler_descriptors"`
	// CPU-only heap holding texture views before they are copied into sets.
	StagingDescriptors uint32 `toml:"staging_descriptors"`
}

type ArenaConfig struct {
	// DefaultKind is "linear" or "heap".
	DefaultKind string `toml:"default_kind"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Hardware limits for the resource-binding tier every D3D12 device supports.
const (
	MaxResourceDescriptors uint32 = 1_000_000
	MaxSamplerDescriptors  uint32 = 2048
)

func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Backend:    "software",
			Label:      "device",
			Validation: true,
		},
		Heaps: HeapConfig{
			ResourceDescriptors: 65536,
			SamplerDescriptors:  MaxSamplerDescriptors,
			StagingDescriptors:  16384,
		},
		Arena: ArenaConfig{
			DefaultKind: "linear",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "decode config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Device.Backend {
	case "software", "d3d12":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown backend %q", c.Device.Backend)
	}
	switch c.Arena.DefaultKind {
	case "linear", "heap":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown arena kind %q", c.Arena.DefaultKind)
	}
	if c.Heaps.ResourceDescriptors == 0 || c.Heaps.ResourceDescriptors > MaxResourceDescriptors {
		return errors.Wrapf(ErrInvalidConfig, "resource_descriptors must be in [1, %d], got %d",
			MaxResourceDescriptors, c.Heaps.ResourceDescriptors)
	}
	if c.Heaps.SamplerDescriptors == 0 || c.Heaps.SamplerDescriptors > MaxSamplerDescriptors {
		return errors.Wrapf(ErrInvalidConfig, "sampler_descriptors must be in [1, %d], got %d",
			MaxSamplerDescriptors, c.Heaps.SamplerDescriptors)
	}
	if c.Heaps.StagingDescriptors == 0 {
		return errors.Wrap(ErrInvalidConfig, "staging_descriptors must be > 0")
	}
	return nil
}

// Encode renders the config back to TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
