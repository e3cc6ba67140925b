// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no --config flag or env override is given.
const DefaultConfigPath = "config.yaml"

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // Listen port, default 8080.
}

// DatabaseConfig holds the persistence DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // PostgreSQL or SQLite DSN.
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret        string        `yaml:"secret"`         // HMAC signing secret for access tokens.
	RefreshSecret string        `yaml:"refresh-secret"` // HMAC signing secret for refresh tokens.
	AccessExpiry  time.Duration `yaml:"access-expiry"`  // Access token lifetime, default 15m.
	RefreshExpiry time.Duration `yaml:"refresh-expiry"` // Refresh token lifetime, default 168h.
}

// QRConfig holds QR payload signing settings.
type QRConfig struct {
	Secret string `yaml:"secret"` // Shared HMAC secret for QR payloads.
}

// RedisConfig holds the optional rule cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"` // Empty disables the cache.
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // logrus level name, default "info".
	File  string `yaml:"file"`  // Rotating log file path; empty logs to stderr only.
}

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	QR       QRConfig       `yaml:"qr"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ResolveConfigPath returns the effective config path, preferring the
// explicit argument, then FUELGUARD_CONFIG, then the default.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return filepath.Clean(trimmed)
	}
	if env := strings.TrimSpace(os.Getenv("FUELGUARD_CONFIG")); env != "" {
		return filepath.Clean(env)
	}
	return DefaultConfigPath
}

// Load reads the YAML config at path, applies defaults and environment
// overrides, and validates required settings. A missing file is not an
// error when the environment supplies the required values.
func Load(path string) (Config, error) {
	var cfg Config

	data, errRead := os.ReadFile(path)
	if errRead == nil {
		if errParse := yaml.Unmarshal(data, &cfg); errParse != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errParse)
		}
	} else if !os.IsNotExist(errRead) {
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, fmt.Errorf("config: missing database dsn")
	}
	if strings.TrimSpace(cfg.QR.Secret) == "" {
		return Config{}, fmt.Errorf("config: missing qr secret")
	}
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return Config{}, fmt.Errorf("config: missing jwt secret")
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if port, errParse := strconv.Atoi(v); errParse == nil {
			cfg.Server.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("DB_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_SECRET")); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")); v != "" {
		cfg.JWT.RefreshSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("QR_SECRET")); v != "" {
		cfg.QR.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
}

// applyDefaults fills zero values with working defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.JWT.AccessExpiry <= 0 {
		cfg.JWT.AccessExpiry = 15 * time.Minute
	}
	if cfg.JWT.RefreshExpiry <= 0 {
		cfg.JWT.RefreshExpiry = 7 * 24 * time.Hour
	}
	if strings.TrimSpace(cfg.JWT.RefreshSecret) == "" {
		cfg.JWT.RefreshSecret = cfg.JWT.Secret
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
}
