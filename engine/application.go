package engine

type ApplicationConfig struct {
	// The application name used in logs.
	Name string
	// ConfigPath is a TOML device config. Empty uses core.DefaultConfig.
	ConfigPath string
	// Backend overrides the backend named in the config file, if set.
	Backend string
	// Workers is the size of the job system. Zero picks one per CPU.
	Workers int
}
