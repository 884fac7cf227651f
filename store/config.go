package store

// Config selects where the virtual offset and the session history live.
type Config struct {
	// Kind is "file" (plain text offset) or "sqlite".
	Kind       string `yaml:"kind"`
	OffsetPath string `yaml:"offset_path"`
	Path       string `yaml:"path"`
}

const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.Kind == "" {
		c.Kind = KindFile
	}
	if c.OffsetPath == "" {
		c.OffsetPath = "time_settings.txt"
	}
	if c.Path == "" {
		c.Path = "data/timesync.db"
	}
}
