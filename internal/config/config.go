package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "MINDBREAKER_"

// FileEnv names the variable holding an optional YAML config path
const FileEnv = EnvPrefix + "CONFIG"

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application.
// Precedence is defaults, then the YAML file, then environment.
type Config struct {
	// Server
	Port       int    `env:"PORT" yaml:"port"`
	Bind       string `env:"BIND" yaml:"bind"`
	Debug      bool   `env:"DEBUG" yaml:"debug"`
	LogLevel   string `env:"LOG_LEVEL" yaml:"log_level"`
	LogFile    string `env:"LOG_FILE" yaml:"log_file"`
	CORSOrigin string `env:"CORS_ORIGIN" yaml:"cors_origin"`

	// Rate limiting, requests per second per client
	RateLimit int `env:"RATE_LIMIT" yaml:"rate_limit"`
	RateBurst int `env:"RATE_BURST" yaml:"rate_burst"`

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" yaml:"storage_driver"`
	DatabaseURL   string `env:"DATABASE_URL" yaml:"database_url"`
	SQLitePath    string `env:"SQLITE_PATH" yaml:"sqlite_path"`
	CacheSize     int    `env:"CACHE_SIZE" yaml:"cache_size"`

	// Auth
	JWTSecret string        `env:"JWT_SECRET" yaml:"-"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" yaml:"token_ttl"`

	// Events
	RabbitMQURL string `env:"RABBITMQ_URL" yaml:"rabbitmq_url"`
	Workers     int    `env:"WORKERS" yaml:"workers"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:          8080,
		Bind:          "0.0.0.0",
		LogLevel:      "info",
		CORSOrigin:    "*",
		RateLimit:     10,
		RateBurst:     20,
		StorageDriver: DriverSQLite,
		SQLitePath:    "mindbreaker.db",
		CacheSize:     512,
		TokenTTL:      24 * time.Hour,
		Workers:       4,
	}
}

// Load builds the configuration from defaults, the file named by
// MINDBREAKER_CONFIG if set, and the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	switch c.StorageDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New(EnvPrefix + "SQLITE_PATH must be set for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New(EnvPrefix + "DATABASE_URL must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.JWTSecret == "" && !c.Debug {
		return errors.New(EnvPrefix + "JWT_SECRET must be set in production")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return errors.New("rate limit must not be negative")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// Secret returns the JWT signing key. Debug builds without a configured
// secret fall back to a fixed development key.
func (c *Config) Secret() []byte {
	if c.JWTSecret == "" && c.Debug {
		return []byte("mindbreaker-development-secret")
	}
	return []byte(c.JWTSecret)
}
