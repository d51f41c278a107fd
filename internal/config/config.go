// Package config loads and validates the process-wide server configuration
// and the per-target pool configuration from YAML files, mirroring the
// two-file split the teacher proxy used for its own config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joao-brasil/connpool/pkg/target"
)

// ServerConfig holds the process-wide settings for cmd/poold.
type ServerConfig struct {
	InstanceID      string        `yaml:"instance_id"`
	HealthCheckPort int           `yaml:"health_check_port"`
	MetricsPort     int           `yaml:"metrics_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RegistryConfig holds the optional Redis-backed cross-instance registry
// settings. Registration is skipped entirely when Addr is empty.
type RegistryConfig struct {
	Addr              string        `yaml:"addr"`
	Password          string        `yaml:"password"`
	DB                int           `yaml:"db"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HeartbeatTTL      time.Duration `yaml:"heartbeat_ttl"`
}

// Config is the root configuration structure: the server, the optional
// registry, and the list of pool targets.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Registry RegistryConfig  `yaml:"registry"`
	Targets  []target.Target `yaml:"-"`
}

type serverFileConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Registry RegistryConfig `yaml:"registry"`
}

type targetsFileConfig struct {
	Targets []target.Target `yaml:"targets"`
}

// Load reads and parses the server and targets configuration files.
func Load(serverConfigPath, targetsConfigPath string) (*Config, error) {
	serverData, err := os.ReadFile(serverConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading server config %s: %w", serverConfigPath, err)
	}

	var serverFile serverFileConfig
	if err := yaml.Unmarshal(serverData, &serverFile); err != nil {
		return nil, fmt.Errorf("parsing server config %s: %w", serverConfigPath, err)
	}

	targetsData, err := os.ReadFile(targetsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading targets config %s: %w", targetsConfigPath, err)
	}

	var targetsFile targetsFileConfig
	if err := yaml.Unmarshal(targetsData, &targetsFile); err != nil {
		return nil, fmt.Errorf("parsing targets config %s: %w", targetsConfigPath, err)
	}

	cfg := &Config{
		Server:   serverFile.Server,
		Registry: serverFile.Registry,
		Targets:  targetsFile.Targets,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// validate checks mandatory fields.
func (c *Config) validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target must be configured")
	}
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("targets[%d].name is required", i)
		}
		if t.Driver == "" {
			return fmt.Errorf("targets[%d].driver is required", i)
		}
		if t.MaxConnectionsPerPartition == 0 {
			return fmt.Errorf("targets[%d].max_connections_per_partition is required", i)
		}
		if t.MinConnectionsPerPartition > t.MaxConnectionsPerPartition {
			return fmt.Errorf("targets[%d].min_connections_per_partition exceeds max", i)
		}
	}
	return nil
}

// applyDefaults fills in reasonable defaults for unset optional fields.
func (c *Config) applyDefaults() {
	if c.Server.HealthCheckPort == 0 {
		c.Server.HealthCheckPort = 8080
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.InstanceID == "" {
		hostname, _ := os.Hostname()
		c.Server.InstanceID = hostname
	}
	if c.Registry.Addr != "" {
		if c.Registry.HeartbeatInterval == 0 {
			c.Registry.HeartbeatInterval = 10 * time.Second
		}
		if c.Registry.HeartbeatTTL == 0 {
			c.Registry.HeartbeatTTL = 30 * time.Second
		}
	}

	for i := range c.Targets {
		t := &c.Targets[i]
		if t.PartitionCount == 0 {
			t.PartitionCount = 2
		}
		if t.AcquireIncrement == 0 {
			t.AcquireIncrement = 2
		}
		if t.IdleMaxAge == 0 {
			t.IdleMaxAge = 30 * time.Minute
		}
		if t.IdleConnectionTestPeriod == 0 {
			t.IdleConnectionTestPeriod = 60 * time.Second
		}
	}
}

// TargetByName returns the target configuration for a given name.
func (c *Config) TargetByName(name string) (*target.Target, bool) {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i], true
		}
	}
	return nil, false
}
