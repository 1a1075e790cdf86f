// Package config loads the service configuration: built-in defaults, an
// optional YAML file layered over them, and environment variables (RSLAB
// prefix) winning over both.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Firestore FirestoreConfig `yaml:"firestore" envconfig:"FIRESTORE"`
	License   LicenseConfig   `yaml:"license" envconfig:"LICENSE"`
	Assets    AssetsConfig    `yaml:"assets" envconfig:"ASSETS"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains auth, CORS, and rate limiting settings.
type SecurityConfig struct {
	// AuthSecret signs and verifies bearer tokens (HS256).
	AuthSecret     string          `yaml:"auth_secret" envconfig:"AUTH_SECRET"`
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig controls the per-client verify rate limiter.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig controls the slog logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// FirestoreConfig locates the backing document store.
type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id" envconfig:"PROJECT_ID"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
}

// LicenseConfig contains license engine policy knobs.
type LicenseConfig struct {
	// SigningSecret keys the HMAC over verification payloads. Empty
	// disables signing.
	SigningSecret string `yaml:"signing_secret" envconfig:"SIGNING_SECRET"`
	// RequireRevokeReason enforces a reason on every revocation.
	RequireRevokeReason bool `yaml:"require_revoke_reason" envconfig:"REQUIRE_REVOKE_REASON"`
}

// AssetsConfig locates the S3-compatible bucket holding the licensed plugin
// build.
type AssetsConfig struct {
	Endpoint  string `yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKey string `yaml:"access_key" envconfig:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" envconfig:"SECRET_KEY"`
	Bucket    string `yaml:"bucket" envconfig:"BUCKET"`
	PluginKey string `yaml:"plugin_key" envconfig:"PLUGIN_KEY"`
	UseSSL    bool   `yaml:"use_ssl" envconfig:"USE_SSL"`
}

// Load layers configuration sources lowest to highest precedence: built-in
// defaults, then a config.yaml in the working directory when present, then
// RSLAB_* environment variables. The struct tags carry no envconfig
// defaults, so envconfig.Process touches only fields whose variable is
// actually set and never reverts file-loaded values.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(configFilePath()); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("RSLAB", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func configFilePath() string {
	for _, location := range []string{"config.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return "config.yaml"
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive when enabled")
	}
	return nil
}

// Default returns the built-in defaults Load starts from.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"https://rstudiolab.online"},
			RateLimit:      RateLimitConfig{Enabled: true, RPS: 20, Burst: 40},
		},
		Logging: LoggingConfig{Level: "info", Output: "stdout", FilePath: "logs/licensed.log"},
		License: LicenseConfig{RequireRevokeReason: true},
		Assets: AssetsConfig{
			Bucket:    "rslab-plugin",
			PluginKey: "plugin.rbxmx",
			UseSSL:    true,
		},
	}
}
