// Package config loads the YAML configuration for a kademlia-node
// daemon: the node's identity, its routing/lookup tunables, the
// transports and admin surface it exposes, and its logging setup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete daemon configuration.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Transport TransportConfig `yaml:"transport"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NodeConfig identifies this node and picks its identifier width.
type NodeConfig struct {
	IDHex      string `yaml:"id_hex"`      // hex-encoded identifier; if empty a random one is generated at each start and not saved
	IDWidth    int    `yaml:"id_width"`    // 160 or 256
	Network    uint64 `yaml:"network"`     // scopes this node's wire traffic
	Bootstrap  []string `yaml:"bootstrap"` // seed endpoint URIs tried on startup
}

// TransportConfig selects and configures the message transport.
type TransportConfig struct {
	Kind     string `yaml:"kind"`     // "udp", "quic", or "websocket"
	Listen   string `yaml:"listen"`   // local listen address
	Codec    string `yaml:"codec"`    // "json", "msgpack", or "protobuf"
	TLSCert  string `yaml:"tls_cert"` // QUIC TLS certificate
	TLSKey   string `yaml:"tls_key"`
}

// DiscoveryConfig holds the Kademlia tunables (pkg/kademlia.Config) plus
// LAN multicast bootstrap settings.
type DiscoveryConfig struct {
	K                     int           `yaml:"k"`
	Alpha                 int           `yaml:"alpha"`
	RequestTimeout        time.Duration `yaml:"request_timeout"`
	BucketRefreshInterval time.Duration `yaml:"bucket_refresh_interval"`
	RepublishInterval     time.Duration `yaml:"republish_interval"`
	ReplicateInterval     time.Duration `yaml:"replicate_interval"`
	ValueTTL              time.Duration `yaml:"value_ttl"`
	MaintenanceTick       time.Duration `yaml:"maintenance_tick"`
	MulticastGroup        string        `yaml:"multicast_group"` // empty disables LAN discovery
}

// AdminConfig configures the introspection HTTP API (read endpoints
// plus PUT /v1/store, which issues a STORE).
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig holds logging settings, matching pkg/logging's knobs.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	OutputFile string `yaml:"output_file"` // log file path (empty = stdout)
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// LoadConfig reads and validates a YAML configuration file, filling in
// defaults for anything left unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.setDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Node.IDWidth == 0 {
		c.Node.IDWidth = 160
	}

	if c.Transport.Kind == "" {
		c.Transport.Kind = "udp"
	}
	if c.Transport.Listen == "" {
		c.Transport.Listen = "0.0.0.0:9640"
	}
	if c.Transport.Codec == "" {
		c.Transport.Codec = "protobuf"
	}

	if c.Discovery.K == 0 {
		c.Discovery.K = 20
	}
	if c.Discovery.Alpha == 0 {
		c.Discovery.Alpha = 3
	}
	if c.Discovery.RequestTimeout == 0 {
		c.Discovery.RequestTimeout = 5 * time.Second
	}
	if c.Discovery.BucketRefreshInterval == 0 {
		c.Discovery.BucketRefreshInterval = time.Hour
	}
	if c.Discovery.RepublishInterval == 0 {
		c.Discovery.RepublishInterval = time.Hour
	}
	if c.Discovery.ReplicateInterval == 0 {
		c.Discovery.ReplicateInterval = time.Hour
	}
	if c.Discovery.ValueTTL == 0 {
		c.Discovery.ValueTTL = 24 * time.Hour
	}
	if c.Discovery.MaintenanceTick == 0 {
		c.Discovery.MaintenanceTick = time.Minute
	}

	if c.Admin.Listen == "" {
		c.Admin.Listen = "127.0.0.1:9641"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
}

func (c *Config) validate() error {
	if c.Node.IDWidth != 160 && c.Node.IDWidth != 256 {
		return fmt.Errorf("node.id_width must be 160 or 256, got %d", c.Node.IDWidth)
	}

	switch c.Transport.Kind {
	case "udp", "quic", "websocket":
	default:
		return fmt.Errorf("unsupported transport kind: %s", c.Transport.Kind)
	}
	if c.Transport.Kind == "quic" {
		if c.Transport.TLSCert == "" || c.Transport.TLSKey == "" {
			return fmt.Errorf("transport %s requires tls_cert and tls_key", c.Transport.Kind)
		}
	}

	switch c.Transport.Codec {
	case "json", "msgpack", "protobuf":
	default:
		return fmt.Errorf("unsupported codec: %s", c.Transport.Codec)
	}

	if c.Discovery.K < 1 {
		return fmt.Errorf("discovery.k must be positive")
	}
	if c.Discovery.Alpha < 1 {
		return fmt.Errorf("discovery.alpha must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}

// Default returns a complete configuration using only defaults, useful
// for generating a starting config file to hand-edit.
func Default() *Config {
	var c Config
	c.setDefaults()
	return &c
}

// WriteConfigFile writes a config struct to a YAML file.
func WriteConfigFile(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
