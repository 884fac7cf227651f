package syncer

import "time"

// Config holds synchronization configuration.
type Config struct {
	DefaultServer   string          `yaml:"default_server"`
	Servers         []string        `yaml:"servers"`
	Simulate        bool            `yaml:"simulate"`
	SettleDelay     time.Duration   `yaml:"settle_delay"`
	RetryDelay      time.Duration   `yaml:"retry_delay"`
	SimulatedDelays []time.Duration `yaml:"simulated_delays"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.DefaultServer == "" {
		c.DefaultServer = "tempus1.gum.gov.pl"
	}
	if len(c.Servers) == 0 {
		c.Servers = []string{"tempus1.gum.gov.pl", "time.windows.com", "pool.ntp.org"}
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
	if len(c.SimulatedDelays) != stageCount {
		c.SimulatedDelays = []time.Duration{
			1 * time.Second,
			1 * time.Second,
			1500 * time.Millisecond,
			1 * time.Second,
			2 * time.Second,
		}
	}
}
