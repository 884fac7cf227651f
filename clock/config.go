package clock

import "time"

// ProbeConfig holds NTP drift probe configuration.
type ProbeConfig struct {
	Server  string        `yaml:"server"`
	Timeout time.Duration `yaml:"timeout"`
	// AfterSync logs the measured drift after every successful sync.
	AfterSync bool `yaml:"after_sync"`
}

// Defaults applies default values to the config.
func (c *ProbeConfig) Defaults() {
	if c.Server == "" {
		c.Server = defaultServer
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Options returns the probe options for the config.
func (c ProbeConfig) Options() []Option {
	return []Option{WithServer(c.Server), WithTimeout(c.Timeout)}
}
