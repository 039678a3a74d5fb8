package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store modes
const (
	StoreModeMemory = "memory"
	StoreModeRemote = "remote"
)

// Config holds all launcher configuration.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Launcher  LauncherConfig
	IPC       IPCConfig
	Crypto    CryptoConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds control API configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8800"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// StoreConfig holds networked store configuration.
type StoreConfig struct {
	Mode    string        `envconfig:"STORE_MODE" default:"memory"`
	Address string        `envconfig:"STORE_ADDR" default:"http://localhost:8801"`
	Timeout time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`
	// Serve exposes the agent's own store to other agents on ServeAddr.
	Serve     bool   `envconfig:"STORE_SERVE" default:"false"`
	ServeAddr string `envconfig:"STORE_SERVE_ADDR" default:"127.0.0.1:8801"`
}

// LauncherConfig holds lifecycle actor configuration.
type LauncherConfig struct {
	LocalConfigFile  string `envconfig:"LAUNCHER_LOCAL_CONFIG_FILE" default:"safe-launcher-local.config"`
	GlobalDirectory  string `envconfig:"LAUNCHER_GLOBAL_DIR" default:"safe-launcher-global"`
	GlobalConfigFile string `envconfig:"LAUNCHER_GLOBAL_CONFIG_FILE" default:"safe-launcher-global.config"`
	NonceLength      int    `envconfig:"LAUNCHER_NONCE_LENGTH" default:"32"`
	QueueSize        int    `envconfig:"LAUNCHER_QUEUE_SIZE" default:"64"`
}

// IPCConfig holds IPC server configuration.
type IPCConfig struct {
	ListenAddr string        `envconfig:"IPC_ADDR" default:"127.0.0.1:0"`
	TicketTTL  time.Duration `envconfig:"IPC_TICKET_TTL" default:"60s"`
}

// CryptoConfig holds crypto client configuration.
type CryptoConfig struct {
	KeyFile string `envconfig:"CRYPTO_KEY_FILE" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	switch c.Store.Mode {
	case StoreModeMemory, StoreModeRemote:
	default:
		return fmt.Errorf("invalid store mode %q", c.Store.Mode)
	}
	if c.Launcher.NonceLength <= 0 {
		return fmt.Errorf("nonce length must be positive, got %d", c.Launcher.NonceLength)
	}
	if c.Launcher.QueueSize < 0 {
		return fmt.Errorf("queue size must not be negative, got %d", c.Launcher.QueueSize)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8800",
			Host: "127.0.0.1",
		},
		Store: StoreConfig{
			Mode:      StoreModeMemory,
			Address:   "http://localhost:8801",
			Timeout:   10 * time.Second,
			ServeAddr: "127.0.0.1:8801",
		},
		Launcher: LauncherConfig{
			LocalConfigFile:  "safe-launcher-local.config",
			GlobalDirectory:  "safe-launcher-global",
			GlobalConfigFile: "safe-launcher-global.config",
			NonceLength:      32,
			QueueSize:        64,
		},
		IPC: IPCConfig{
			ListenAddr: "127.0.0.1:0",
			TicketTTL:  time.Minute,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}
