// Package config loads shelftrack configuration from YAML and the environment
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ValidBackends lists all supported store backends.
var ValidBackends = []string{BackendFile, BackendSQLite, BackendRedis, BackendMemory}

// Config is the root configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Engine  EngineConfig  `yaml:"engine"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// StoreConfig selects where the inventory document lives.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	SQLitePath  string `yaml:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisKey    string `yaml:"redis_key"`
	SaveTimeout string `yaml:"save_timeout"`
}

// EngineConfig tunes the assignment engine.
type EngineConfig struct {
	Debug                    bool        `yaml:"debug"`
	RollbackOnPersistFailure bool        `yaml:"rollback_on_persist_failure"`
	PersistRetry             RetryConfig `yaml:"persist_retry"`
}

// RetryConfig controls caller-side Flush retries after PersistFailed.
type RetryConfig struct {
	Attempts  int    `yaml:"attempts"`
	BaseDelay string `yaml:"base_delay"`
}

// ServerConfig holds listener ports.
type ServerConfig struct {
	GrpcPort    int `yaml:"grpc_port"`
	HTTPPort    int `yaml:"http_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// CatalogConfig points at the optional barcode allowlist.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:     BackendFile,
			Path:        "shelftrack.json",
			SQLitePath:  "shelftrack.db",
			RedisAddr:   "localhost:6379",
			RedisKey:    "shelftrack:inventory",
			SaveTimeout: "2s",
		},
		Engine: EngineConfig{
			RollbackOnPersistFailure: true,
			PersistRetry: RetryConfig{
				Attempts:  3,
				BaseDelay: "50ms",
			},
		},
		Server: ServerConfig{
			GrpcPort:    50051,
			HTTPPort:    8080,
			MetricsPort: 9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies SHELFTRACK_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHELFTRACK_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("SHELFTRACK_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("SHELFTRACK_SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv("SHELFTRACK_REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if v := os.Getenv("SHELFTRACK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SHELFTRACK_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v, err := strconv.ParseBool(os.Getenv("SHELFTRACK_DEBUG")); err == nil {
		c.Engine.Debug = v
	}
	if v, err := strconv.Atoi(os.Getenv("SHELFTRACK_GRPC_PORT")); err == nil {
		c.Server.GrpcPort = v
	}
	if v, err := strconv.Atoi(os.Getenv("SHELFTRACK_HTTP_PORT")); err == nil {
		c.Server.HTTPPort = v
	}
}

// GetSaveTimeout returns the store save timeout as a duration.
func (c *Config) GetSaveTimeout() time.Duration {
	d, err := time.ParseDuration(c.Store.SaveTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// GetRetryBaseDelay returns the persist retry base delay as a duration.
func (c *Config) GetRetryBaseDelay() time.Duration {
	d, err := time.ParseDuration(c.Engine.PersistRetry.BaseDelay)
	if err != nil || d <= 0 {
		return 50 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validBackend := false
	for _, b := range ValidBackends {
		if c.Store.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid store backend: %s (valid: %v)", c.Store.Backend, ValidBackends)
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the file backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis backend")
		}
	}

	if c.Store.SaveTimeout != "" {
		if _, err := time.ParseDuration(c.Store.SaveTimeout); err != nil {
			return fmt.Errorf("invalid store.save_timeout %q: %w", c.Store.SaveTimeout, err)
		}
	}
	if c.Engine.PersistRetry.Attempts < 0 {
		return fmt.Errorf("engine.persist_retry.attempts must not be negative")
	}

	for name, port := range map[string]int{
		"grpc_port":    c.Server.GrpcPort,
		"http_port":    c.Server.HTTPPort,
		"metrics_port": c.Server.MetricsPort,
	} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid server.%s: %d", name, port)
		}
	}

	return nil
}
