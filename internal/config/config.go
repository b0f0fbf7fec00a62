package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen = "127.0.0.1:15329"
	ServiceType   = "_dnschanger._tcp"
)

type Probe struct {
	Host    string        `yaml:"host,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Verify  bool          `yaml:"verify,omitempty"`
}

type Config struct {
	Catalog     string        `yaml:"catalog,omitempty"`
	Journal     string        `yaml:"journal,omitempty"` // "" disables the journal
	Backend     string        `yaml:"backend,omitempty"`
	Listen      string        `yaml:"listen,omitempty"`
	Advertise   bool          `yaml:"advertise,omitempty"`
	CallTimeout time.Duration `yaml:"call_timeout,omitempty"`
	LogLevel    string        `yaml:"log_level,omitempty"`
	Probe       Probe         `yaml:"probe,omitempty"`
}

func Default() Config {
	return Config{
		Catalog:     "dns_list.json",
		Journal:     "dnschanger.db",
		Backend:     "auto",
		Listen:      DefaultListen,
		CallTimeout: 15 * time.Second,
		LogLevel:    "info",
		Probe:       Probe{Host: "example.com", Timeout: 2 * time.Second},
	}
}

// Load reads a YAML config on top of the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Catalog == "" {
		return errors.New("config: catalog path must not be empty")
	}
	if c.CallTimeout < 0 {
		return errors.New("config: call_timeout must not be negative")
	}
	return nil
}
