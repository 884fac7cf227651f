package display

import "time"

// Config holds display loop configuration.
type Config struct {
	Interval time.Duration `yaml:"interval"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
}
