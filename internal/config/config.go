// Package config loads the records service configuration from defaults, an
// optional YAML file, an optional .env file and RECORDS_* environment
// variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Audit     AuditConfig     `yaml:"audit"`
	Stats     StatsConfig     `yaml:"stats"`
	Security  SecurityConfig  `yaml:"security"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"RECORDS_SERVER_HOST"`
	Port            int           `yaml:"port" env:"RECORDS_SERVER_PORT"`
	Router          string        `yaml:"router" env:"RECORDS_SERVER_ROUTER"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"RECORDS_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"RECORDS_SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"RECORDS_SERVER_SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"RECORDS_SERVER_MAX_BODY_BYTES"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type StorageConfig struct {
	// Backend is one of memory, postgres or redis.
	Backend string `yaml:"backend" env:"RECORDS_STORAGE_BACKEND"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" env:"RECORDS_DATABASE_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"RECORDS_DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"RECORDS_DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"RECORDS_DATABASE_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"RECORDS_DATABASE_AUTO_MIGRATE"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"RECORDS_REDIS_ADDR"`
	Password string `yaml:"password" env:"RECORDS_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"RECORDS_REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"RECORDS_REDIS_PREFIX"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"RECORDS_LOG_LEVEL"`
	Format     string `yaml:"format" env:"RECORDS_LOG_FORMAT"`
	Output     string `yaml:"output" env:"RECORDS_LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"RECORDS_LOG_FILE_PREFIX"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" env:"RECORDS_RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"RECORDS_RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" env:"RECORDS_RATE_LIMIT_BURST"`
}

type CORSConfig struct {
	// AllowedOrigins is semicolon separated when set from the environment.
	AllowedOrigins []string `yaml:"allowed_origins" env:"RECORDS_CORS_ALLOWED_ORIGINS"`
}

type AuditConfig struct {
	File string `yaml:"file" env:"RECORDS_AUDIT_FILE"`
	Max  int    `yaml:"max" env:"RECORDS_AUDIT_MAX"`
}

type StatsConfig struct {
	Schedule string `yaml:"schedule" env:"RECORDS_STATS_SCHEDULE"`
}

type SecurityConfig struct {
	HashCost int `yaml:"hash_cost" env:"RECORDS_HASH_COST"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Router:          "mux",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Storage:   StorageConfig{Backend: "memory"},
		Database:  DatabaseConfig{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute},
		Redis:     RedisConfig{Prefix: "records"},
		Logging:   LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
		RateLimit: RateLimitConfig{Enabled: false, RequestsPerSecond: 50, Burst: 100},
		CORS:      CORSConfig{AllowedOrigins: []string{"*"}},
		Audit:     AuditConfig{Max: 200},
		Stats:     StatsConfig{Schedule: "@every 30s"},
		Security:  SecurityConfig{HashCost: 10},
	}
}

// Load builds the configuration. path may be empty, in which case
// RECORDS_CONFIG is consulted; if neither is set only defaults, .env and the
// environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("RECORDS_CONFIG"))
	}
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// ApplyEnv overlays RECORDS_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("failed to decode environment: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Router {
	case "mux", "chi", "gin":
	default:
		return fmt.Errorf("server.router %q must be one of mux, chi, gin", c.Server.Router)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres backend")
		}
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend %q must be one of memory, postgres, redis", c.Storage.Backend)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q must be json or text", c.Logging.Format)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit requires positive requests_per_second and burst when enabled")
	}
	return nil
}
