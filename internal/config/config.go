// Package config loads application configuration from an optional YAML file
// with environment variable overrides. Every knob has a development-friendly
// default except the JWT signing secret, which must be supplied.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Duration is a time.Duration that decodes YAML strings like "24h".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML decodes either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err == nil {
		parsed, errParse := time.ParseDuration(raw)
		if errParse != nil {
			return fmt.Errorf("config: invalid duration %q: %w", raw, errParse)
		}
		*d = Duration(parsed)
		return nil
	}
	var nanos int64
	if err := node.Decode(&nanos); err != nil {
		return fmt.Errorf("config: invalid duration value")
	}
	*d = Duration(nanos)
	return nil
}

// WindowLimit describes one rate-limit budget: at most Max requests per
// client within Window.
type WindowLimit struct {
	Window Duration `yaml:"window"`
	Max    int      `yaml:"max"`
}

// RateLimitConfig holds the per-surface rate-limit budgets.
type RateLimitConfig struct {
	Global     WindowLimit `yaml:"global"`     // All routes, per IP.
	Login      WindowLimit `yaml:"login"`      // POST /auth/login.
	Submission WindowLimit `yaml:"submission"` // POST /plants/submissions.
	Admin      WindowLimit `yaml:"admin"`      // Admin mutation routes.
}

// JWTConfig holds token signing parameters.
type JWTConfig struct {
	Secret string   `yaml:"secret"`
	Expiry Duration `yaml:"expiry"`
}

// LogConfig holds logging output parameters.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // Empty means stdout only.
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config is the full application configuration.
type Config struct {
	Environment    string          `yaml:"environment"`
	ListenAddr     string          `yaml:"listen_addr"`
	DatabaseDSN    string          `yaml:"database_dsn"`
	JWT            JWTConfig       `yaml:"jwt"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RedisAddr      string          `yaml:"redis_addr"` // Optional shared rate-limit store.
	TrustProxy     bool            `yaml:"trust_proxy"`
	MaxBodyBytes   int64           `yaml:"max_body_bytes"`
	StorageTimeout Duration        `yaml:"storage_timeout"`
	RateLimits     RateLimitConfig `yaml:"rate_limits"`
	Log            LogConfig       `yaml:"log"`
}

// Default returns the configuration used when no file or overrides apply.
func Default() Config {
	return Config{
		Environment:    EnvDevelopment,
		ListenAddr:     ":3000",
		DatabaseDSN:    "file:data/herbario.db",
		JWT:            JWTConfig{Expiry: Duration(24 * time.Hour)},
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxBodyBytes:   5 << 20,
		StorageTimeout: Duration(5 * time.Second),
		RateLimits: RateLimitConfig{
			Global:     WindowLimit{Window: Duration(15 * time.Minute), Max: 300},
			Login:      WindowLimit{Window: Duration(10 * time.Minute), Max: 20},
			Submission: WindowLimit{Window: Duration(10 * time.Minute), Max: 30},
			Admin:      WindowLimit{Window: Duration(5 * time.Minute), Max: 100},
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 28},
	}
}

// Load reads the configuration file at path (when it exists), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errParse := yaml.Unmarshal(data, &cfg); errParse != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, errParse)
			}
		case os.IsNotExist(errRead):
			// Defaults plus environment overrides.
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	applyEnvOverrides(&cfg)

	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise fail at request time.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("config: jwt secret is required (set HERBARIO_JWT_SECRET)")
	}
	if c.JWT.Expiry <= 0 {
		return fmt.Errorf("config: jwt expiry must be positive")
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("config: database dsn is required")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("config: at least one allowed origin is required")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: max body bytes must be positive")
	}
	return nil
}

// Production reports whether the process runs with production hardening.
func (c Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvProduction)
}

// applyEnvOverrides layers HERBARIO_* environment variables over the config.
func applyEnvOverrides(cfg *Config) {
	if v := envString("HERBARIO_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := envString("HERBARIO_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := envString("HERBARIO_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := envString("HERBARIO_JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := envString("HERBARIO_JWT_EXPIRES_IN"); v != "" {
		if d, errParse := time.ParseDuration(v); errParse == nil && d > 0 {
			cfg.JWT.Expiry = Duration(d)
		}
	}
	if v := envString("HERBARIO_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}
	if v := envString("HERBARIO_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := envString("HERBARIO_TRUST_PROXY"); v != "" {
		cfg.TrustProxy = v == "true" || v == "1"
	}
	if v := envString("HERBARIO_UPLOAD_MAX_BYTES"); v != "" {
		if n, errParse := strconv.ParseInt(v, 10, 64); errParse == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if v := envString("HERBARIO_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := envString("HERBARIO_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
