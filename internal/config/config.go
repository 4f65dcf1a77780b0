// Package config loads server configuration from an optional YAML file with
// FSDB_* environment variables taking precedence over both the file and the
// built-in defaults.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConnectionMode selects the listener transport. The choice is exclusive and
// fixed for the lifetime of the process.
type ConnectionMode string

const (
	ModeUnixSocket ConnectionMode = "UNIX_SOCK"
	ModeTCP        ConnectionMode = "TCP"
)

type Config struct {
	// KeyExpiry is the idle window after which untouched streams are
	// deleted. Zero disables expiry entirely.
	KeyExpiry      Duration       `yaml:"key_expiry"`
	ConnectionMode ConnectionMode `yaml:"connection_mode"`
	UnixSockPath   string         `yaml:"unix_sock_path"`
	TCPHost        string         `yaml:"tcp_host"`
	TCPPort        int            `yaml:"tcp_port"`

	Observability ObservabilityConfig `yaml:"observability"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Health  HealthConfig  `yaml:"health"`
	Logging LoggingConfig `yaml:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

type HealthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Listen        string `yaml:"listen"`
	LivenessPath  string `yaml:"liveness_path"`
	ReadinessPath string `yaml:"readiness_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds the configuration from defaults, an optional YAML file, and the
// environment, in increasing order of precedence. path may be empty.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("FSDB_KEY_EXPIRY"); ok {
		secs, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("FSDB_KEY_EXPIRY: %w", err)
		}
		c.KeyExpiry = Duration(time.Duration(secs) * time.Second)
	}
	if v, ok := os.LookupEnv("FSDB_CONNECTION_MODE"); ok {
		c.ConnectionMode = ConnectionMode(v)
	}
	if v, ok := os.LookupEnv("FSDB_UNIX_SOCK_PATH"); ok {
		c.UnixSockPath = v
	}
	if v, ok := os.LookupEnv("FSDB_TCP_PORT"); ok {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("FSDB_TCP_PORT: %w", err)
		}
		c.TCPPort = int(port)
	}
	if v, ok := os.LookupEnv("FSDB_TCP_HOST"); ok {
		c.TCPHost = v
	}
	if v, ok := os.LookupEnv("FSDB_METRICS_LISTEN"); ok {
		c.Observability.Metrics.Listen = v
	}
	if v, ok := os.LookupEnv("FSDB_HEALTH_LISTEN"); ok {
		c.Observability.Health.Listen = v
	}
	if v, ok := os.LookupEnv("FSDB_LOG_LEVEL"); ok {
		c.Observability.Logging.Level = v
	}
	if v, ok := os.LookupEnv("FSDB_LOG_FORMAT"); ok {
		c.Observability.Logging.Format = v
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.ConnectionMode {
	case ModeUnixSocket:
		if c.UnixSockPath == "" {
			return fmt.Errorf("unix_sock_path is required in UNIX_SOCK mode")
		}
	case ModeTCP:
		if c.TCPHost == "" {
			return fmt.Errorf("tcp_host is required in TCP mode")
		}
		if c.TCPPort <= 0 || c.TCPPort > 65535 {
			return fmt.Errorf("tcp_port must be between 1 and 65535, got %d", c.TCPPort)
		}
	default:
		return fmt.Errorf("invalid connection mode %q (want UNIX_SOCK or TCP)", c.ConnectionMode)
	}

	if c.KeyExpiry < 0 {
		return fmt.Errorf("key_expiry must not be negative")
	}

	return nil
}

// TCPAddr returns the host:port string for TCP mode.
func (c *Config) TCPAddr() string {
	return net.JoinHostPort(c.TCPHost, strconv.Itoa(c.TCPPort))
}

// Duration wraps time.Duration for YAML unmarshaling of strings like "2m30s".
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
