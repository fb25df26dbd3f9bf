// Package config loads process configuration for the server and the CLI.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// .env files, then environment variables. Command-line flags are applied on
// top by the cli package.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvAddr          = "SECURESCOUT_ADDR"
	EnvStorage       = "SECURESCOUT_STORAGE"
	EnvDB            = "SECURESCOUT_DB"
	EnvValkey        = "SECURESCOUT_VALKEY"
	EnvValkeyPrefix  = "SECURESCOUT_VALKEY_PREFIX"
	EnvServer        = "SECURESCOUT_SERVER"
	EnvClientTimeout = "SECURESCOUT_CLIENT_TIMEOUT"
	EnvRateLimit     = "SECURESCOUT_RATE_LIMIT"
	EnvLogLevel      = "LOG_LEVEL"
)

// Config is the full process configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Client    ClientConfig    `yaml:"client"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	SeedDemo        bool          `yaml:"seed_demo"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects and configures the snapshot backend.
type StorageConfig struct {
	Driver       string `yaml:"driver"` // sqlite, valkey
	Path         string `yaml:"path"`
	ValkeyAddr   string `yaml:"valkey_addr"`
	ValkeyPrefix string `yaml:"valkey_prefix"`
}

// SimulatorConfig tunes the progress simulator.
type SimulatorConfig struct {
	StartDelay   time.Duration `yaml:"start_delay"`
	TickInterval time.Duration `yaml:"tick_interval"`
	MaxIncrement float64       `yaml:"max_increment"`
}

// ClientConfig configures the CLI's API client.
type ClientConfig struct {
	Server    string        `yaml:"server"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8000",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:       "sqlite",
			Path:         "securescout.db",
			ValkeyPrefix: "securescout:",
		},
		Simulator: SimulatorConfig{
			StartDelay:   500 * time.Millisecond,
			TickInterval: time.Second,
			MaxIncrement: 15,
		},
		Client: ClientConfig{
			Server:  "http://127.0.0.1:8000",
			Timeout: 30 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it. Missing .env files are ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables that are already set.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvAddr, &c.Server.Addr)
	str(EnvStorage, &c.Storage.Driver)
	str(EnvDB, &c.Storage.Path)
	str(EnvValkey, &c.Storage.ValkeyAddr)
	str(EnvValkeyPrefix, &c.Storage.ValkeyPrefix)
	str(EnvServer, &c.Client.Server)
	str(EnvLogLevel, &c.LogLevel)

	if v, ok := lookup(EnvClientTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvClientTimeout, err)
		}
		c.Client.Timeout = d
	}
	if v, ok := lookup(EnvRateLimit); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRateLimit, err)
		}
		c.Client.RateLimit = f
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case "valkey":
		if c.Storage.ValkeyAddr == "" {
			return fmt.Errorf("storage.valkey_addr is required for the valkey driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s (must be sqlite or valkey)", c.Storage.Driver)
	}
	if c.Simulator.TickInterval <= 0 {
		return fmt.Errorf("simulator.tick_interval must be positive")
	}
	if c.Simulator.StartDelay < 0 {
		return fmt.Errorf("simulator.start_delay must not be negative")
	}
	if c.Simulator.MaxIncrement <= 0 {
		return fmt.Errorf("simulator.max_increment must be positive")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be positive")
	}
	if c.Client.RateLimit < 0 {
		return fmt.Errorf("client.rate_limit must not be negative")
	}
	return nil
}
