package config

import (
	"os"

	"github.com/tnicklin/time_sync/clock"
	"github.com/tnicklin/time_sync/display"
	"github.com/tnicklin/time_sync/logger"
	"github.com/tnicklin/time_sync/store"
	"github.com/tnicklin/time_sync/syncer"
	"github.com/tnicklin/time_sync/timeservice"
	"go.uber.org/config"
)

// AppConfig holds all application configuration.
type AppConfig struct {
	Logger  logger.Config      `yaml:"logger"`
	Probe   clock.ProbeConfig  `yaml:"probe"`
	Sync    syncer.Config      `yaml:"sync"`
	Service timeservice.Config `yaml:"service"`
	Store   store.Config       `yaml:"store"`
	Display display.Config     `yaml:"display"`
}

// Load reads configuration from the specified YAML files.
// Files are merged in order, with later files overriding earlier ones.
// Missing files are silently ignored.
func Load(files ...string) (*AppConfig, error) {
	opts := make([]config.YAMLOption, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			opts = append(opts, config.File(f))
		}
	}

	if len(opts) == 0 {
		return nil, os.ErrNotExist
	}

	provider, err := config.NewYAML(opts...)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := provider.Get(config.Root).Populate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration and applies every section's
// defaults. With no configuration file present it returns the defaults.
func LoadWithDefaults(files ...string) (*AppConfig, error) {
	cfg, err := Load(files...)
	if os.IsNotExist(err) {
		cfg, err = &AppConfig{}, nil
	}
	if err != nil {
		return nil, err
	}
	cfg.Defaults()
	return cfg, nil
}

// Defaults applies default values to every section.
func (c *AppConfig) Defaults() {
	c.Logger.Defaults()
	c.Probe.Defaults()
	c.Sync.Defaults()
	c.Service.Defaults()
	c.Store.Defaults()
	c.Display.Defaults()
}
