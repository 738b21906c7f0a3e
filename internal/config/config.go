// Package config provides TOML configuration file loading for the control API.
// The configuration file lives at ~/.compcontrol/config.toml by default, but can
// be overridden with the --config flag. Environment variables take precedence
// over file values, which matches how the service is deployed in containers
// (TABLE_NAME, KEY_TABLE_NAME, CONNECTION_BASE_URL, ALLOWED_COMMANDS, ...).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the service configuration.
// Field names use Go camelCase internally but map to snake_case in TOML files
// via struct tags. The envconfig tags carry the deployment environment names.
type Config struct {
	// Addr is the host:port the HTTP API listens on.
	// The external gateway (which terminates the WebSocket side) calls in here.
	// Default: 127.0.0.1:8080
	Addr string `toml:"addr" envconfig:"COMPCONTROL_ADDR"`

	// ConnectionsTable is the table (or key-prefix, for redis) holding
	// live connection records.
	// Default: connections
	ConnectionsTable string `toml:"connections_table" envconfig:"TABLE_NAME"`

	// KeysTable is the table (or key-prefix) holding issued API keys.
	// Default: keys
	KeysTable string `toml:"keys_table" envconfig:"KEY_TABLE_NAME"`

	// ConnectionBaseURL is the gateway's management endpoint used to push
	// payloads to connected peers. A payload for connection <id> is POSTed
	// to <ConnectionBaseURL>/<id>.
	ConnectionBaseURL string `toml:"connection_base_url" envconfig:"CONNECTION_BASE_URL"`

	// AllowedCommands is the fixed allow-list of dispatchable commands.
	// Default: sleep, hibernate, shutdown, lock
	AllowedCommands []string `toml:"allowed_commands" envconfig:"ALLOWED_COMMANDS"`

	// StoreType selects the storage backend: "sqlite" or "redis".
	// Default: sqlite
	StoreType string `toml:"store_type" envconfig:"COMPCONTROL_STORE"`

	// StorePath is the SQLite database path (store_type = "sqlite").
	// Default: ~/.compcontrol/compcontrol.db. Use ":memory:" for tests.
	StorePath string `toml:"store_path" envconfig:"COMPCONTROL_STORE_PATH"`

	// RedisURL is the redis connection URL (store_type = "redis").
	RedisURL string `toml:"redis_url" envconfig:"COMPCONTROL_REDIS_URL"`

	// BusType selects the change-event feed backend: "memory" or "kafka".
	// A single-instance deployment uses the in-process bus; multi-instance
	// deployments share the feed through Kafka.
	// Default: memory
	BusType string `toml:"bus_type" envconfig:"COMPCONTROL_BUS"`

	// KafkaBrokers is a comma-separated broker list (bus_type = "kafka").
	KafkaBrokers string `toml:"kafka_brokers" envconfig:"COMPCONTROL_KAFKA_BROKERS"`

	// KafkaGroup is the consumer group ID (bus_type = "kafka").
	// Default: compcontrol
	KafkaGroup string `toml:"kafka_group" envconfig:"COMPCONTROL_KAFKA_GROUP"`

	// KeepaliveIntervalSec is the keepalive sweep interval in seconds.
	// Default: 60
	KeepaliveIntervalSec int `toml:"keepalive_interval_sec" envconfig:"COMPCONTROL_KEEPALIVE_SEC"`

	// WarmupIntervalSec is the warm-up probe interval in seconds.
	// Default: 180
	WarmupIntervalSec int `toml:"warmup_interval_sec" envconfig:"COMPCONTROL_WARMUP_SEC"`

	// DeliveryTimeoutMs is the per-target delivery timeout in milliseconds.
	// A hung target must not stall the sweep for other targets.
	// Default: 2000
	DeliveryTimeoutMs int `toml:"delivery_timeout_ms" envconfig:"COMPCONTROL_DELIVERY_TIMEOUT_MS"`

	// DeliveryConcurrency bounds the parallel delivery fan-out.
	// Default: 8
	DeliveryConcurrency int `toml:"delivery_concurrency" envconfig:"COMPCONTROL_DELIVERY_CONCURRENCY"`

	// KeyIssuePerMinute rate-limits the /getkey endpoint.
	// Default: 10
	KeyIssuePerMinute int `toml:"key_issue_per_minute" envconfig:"COMPCONTROL_KEY_RATE"`

	// TLSEnable serves the API over HTTPS with a self-signed certificate.
	// Deployments behind the gateway keep this off and listen on loopback.
	// Default: false
	TLSEnable bool `toml:"tls_enable" envconfig:"COMPCONTROL_TLS"`

	// TLSCertPath is the certificate file (tls_enable = true).
	// Default: ~/.compcontrol/certs/api.crt, generated on first start.
	TLSCertPath string `toml:"tls_cert_path" envconfig:"COMPCONTROL_TLS_CERT"`

	// TLSKeyPath is the private key file (tls_enable = true).
	// Default: ~/.compcontrol/certs/api.key, generated on first start.
	TLSKeyPath string `toml:"tls_key_path" envconfig:"COMPCONTROL_TLS_KEY"`
}

// DefaultConfigPath returns the default config file location: ~/.compcontrol/config.toml.
// Returns an error only if the user's home directory cannot be determined.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".compcontrol", "config.toml"), nil
}

// DefaultStorePath returns the default SQLite database location.
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".compcontrol", "compcontrol.db"), nil
}

// Load reads configuration from the given TOML path, then applies environment
// variable overrides and defaults.
//
// Behavior:
//   - If path is empty, attempts to load from the default location
//     (~/.compcontrol/config.toml). Returns a default Config without error
//     if the default file doesn't exist.
//   - If path is specified, returns an error if the file doesn't exist.
//   - Returns an error if the file exists but cannot be parsed.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		// No explicit path: try default location, but don't error if missing.
		// This allows the service to start configured purely by environment.
		defaultPath, err := DefaultConfigPath()
		if err == nil {
			if _, err := os.Stat(defaultPath); err == nil {
				path = defaultPath
			}
		}
	} else {
		// Explicit path provided: error if file doesn't exist.
		// This matches user expectation: if they specify a config file, it should exist.
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	if path != "" {
		// Parse the TOML file. Any parse error is fatal since the user expects
		// the config to be applied.
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Environment variables win over file values.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills zero-valued fields with the package defaults.
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ConnectionsTable == "" {
		c.ConnectionsTable = DefaultConnectionsTable
	}
	if c.KeysTable == "" {
		c.KeysTable = DefaultKeysTable
	}
	if len(c.AllowedCommands) == 0 {
		c.AllowedCommands = append(c.AllowedCommands, DefaultAllowedCommands...)
	}
	if c.StoreType == "" {
		c.StoreType = DefaultStoreType
	}
	if c.StorePath == "" {
		if p, err := DefaultStorePath(); err == nil {
			c.StorePath = p
		}
	}
	if c.BusType == "" {
		c.BusType = DefaultBusType
	}
	if c.KafkaGroup == "" {
		c.KafkaGroup = DefaultKafkaGroup
	}
	if c.KeepaliveIntervalSec <= 0 {
		c.KeepaliveIntervalSec = DefaultKeepaliveIntervalSec
	}
	if c.WarmupIntervalSec <= 0 {
		c.WarmupIntervalSec = DefaultWarmupIntervalSec
	}
	if c.DeliveryTimeoutMs <= 0 {
		c.DeliveryTimeoutMs = DefaultDeliveryTimeoutMs
	}
	if c.DeliveryConcurrency <= 0 {
		c.DeliveryConcurrency = DefaultDeliveryConcurrency
	}
	if c.KeyIssuePerMinute <= 0 {
		c.KeyIssuePerMinute = DefaultKeyIssuePerMinute
	}
}
