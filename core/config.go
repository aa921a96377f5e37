package core

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Host kinds
const (
	HostRemote = "remote"
	HostSelf   = "self"
	HostDump   = "dump"
)

// DefaultInterval is the polling period of RunDriver
const DefaultInterval = 50 * time.Millisecond

var ErrConfig = errors.New("invalid config")

// Config selects the target and the symbol table describing it
type Config struct {
	// Host is remote (another process), self (this process) or dump
	Host string `yaml:"host"`

	PID     int    `yaml:"pid"`
	Name    string `yaml:"name"`
	DumpDir string `yaml:"dump_dir"`

	// Symbols is required by everything but raw memory access
	Symbols string `yaml:"symbols"`

	// Executable overrides the image hashed for identification
	Executable string `yaml:"executable"`

	Interval time.Duration `yaml:"interval"`
}

func LoadConfig(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w: %v", path, ErrConfig, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = HostRemote
		if c.DumpDir != "" && c.PID == 0 && c.Name == "" {
			c.Host = HostDump
		}
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
}

func (c Config) Validate() error {
	switch c.Host {
	case HostRemote:
		if c.PID <= 0 && c.Name == "" {
			return fmt.Errorf("%w: remote host needs a pid or a name", ErrConfig)
		}
	case HostDump:
		if c.DumpDir == "" {
			return fmt.Errorf("%w: dump host needs dump_dir", ErrConfig)
		}
	case HostSelf:
	default:
		return fmt.Errorf("%w: unknown host %q", ErrConfig, c.Host)
	}
	return nil
}
