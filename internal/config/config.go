package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperengineering/pulse/internal/types"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Database   DatabaseConfig    `yaml:"database"`
	Auth       AuthConfig        `yaml:"auth"`
	Worker     WorkerConfig      `yaml:"worker"`
	Alerts     AlertsConfig      `yaml:"alerts"`
	Lock       LockConfig        `yaml:"lock"`
	Archive    ArchiveConfig     `yaml:"archive"`
	Coach      CoachConfig       `yaml:"coach"`
	Log        LogConfig         `yaml:"log"`
	Categories map[string]string `yaml:"categories"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	TickInterval   Duration `yaml:"tick_interval"`
	StatusInterval Duration `yaml:"status_interval"`
}

// AlertsConfig contains delivered-alert log settings.
type AlertsConfig struct {
	// Retention is how long read alerts are kept. Zero keeps them forever.
	Retention Duration `yaml:"retention"`
}

// LockConfig selects the tick lock. An empty RedisAddr uses an in-process
// lock.
type LockConfig struct {
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"-"` // env-only, never in YAML
	RedisDB       int      `yaml:"redis_db"`
	TTL           Duration `yaml:"ttl"`
	Key           string   `yaml:"key"`
}

// ArchiveConfig contains S3-compatible storage settings for pruned alerts.
// An empty Bucket discards pruned alerts.
type ArchiveConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"-"` // env-only, never in YAML
	SecretKey string `yaml:"-"` // env-only, never in YAML
	UseSSL    *bool  `yaml:"use_ssl"`
}

// CoachConfig contains the check-in phrasing model settings. An empty APIKey
// uses the built-in phrasing.
type CoachConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
	Model  string `yaml:"model"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CategoryMap returns the built-in specialist table with configured entries
// layered on top.
func (c *Config) CategoryMap() types.CategoryMap {
	m := make(types.CategoryMap, len(types.DefaultCategories)+len(c.Categories))
	for k, v := range types.DefaultCategories {
		m[k] = v
	}
	for k, v := range c.Categories {
		m[types.ScheduleType(k)] = v
	}
	return m
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
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

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAuth(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOffline loads configuration like Load but does not require an API key.
// Used by commands that operate on the database without serving HTTP.
func LoadOffline() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("PULSE_CONFIG_PATH", "config/pulse.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateAuth(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/pulse.db",
		},
		Worker: WorkerConfig{
			TickInterval:   Duration(60 * time.Second),
			StatusInterval: Duration(1 * time.Hour),
		},
		Alerts: AlertsConfig{
			Retention: Duration(30 * 24 * time.Hour),
		},
		Lock: LockConfig{
			TTL: Duration(30 * time.Second),
			Key: "pulse:tick",
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
		},
		Coach: CoachConfig{
			Model: "gpt-4o-mini",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("PULSE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	envDuration("PULSE_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("PULSE_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("PULSE_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Database
	if v := os.Getenv("PULSE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Auth
	if v := os.Getenv("PULSE_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Worker
	envDuration("PULSE_TICK_INTERVAL", &cfg.Worker.TickInterval)
	envDuration("PULSE_STATUS_INTERVAL", &cfg.Worker.StatusInterval)

	// Alerts
	envDuration("PULSE_ALERT_RETENTION", &cfg.Alerts.Retention)

	// Lock
	if v := os.Getenv("PULSE_REDIS_ADDR"); v != "" {
		cfg.Lock.RedisAddr = v
	}
	if v := os.Getenv("PULSE_REDIS_PASSWORD"); v != "" {
		cfg.Lock.RedisPassword = v
	}
	if v := os.Getenv("PULSE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lock.RedisDB = n
		}
	}
	envDuration("PULSE_LOCK_TTL", &cfg.Lock.TTL)

	// Archive
	if v := os.Getenv("PULSE_ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("PULSE_S3_ENDPOINT"); v != "" {
		cfg.Archive.Endpoint = v
	}
	if v := os.Getenv("PULSE_S3_REGION"); v != "" {
		cfg.Archive.Region = v
	}
	if v := os.Getenv("PULSE_S3_ACCESS_KEY"); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := os.Getenv("PULSE_S3_SECRET_KEY"); v != "" {
		cfg.Archive.SecretKey = v
	}
	if v := os.Getenv("PULSE_S3_USE_SSL"); v != "" {
		useSSL := v == "true" || v == "1"
		cfg.Archive.UseSSL = &useSSL
	}

	// Coach (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Coach.APIKey = v
	}
	if v := os.Getenv("PULSE_COACH_MODEL"); v != "" {
		cfg.Coach.Model = v
	}

	// Log
	if v := os.Getenv("PULSE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PULSE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks that configuration values are consistent.
func (c *Config) validate() error {
	if c.Worker.TickInterval <= 0 {
		return errors.New("worker.tick_interval must be positive")
	}
	if c.Worker.StatusInterval <= 0 {
		return errors.New("worker.status_interval must be positive")
	}
	if c.Alerts.Retention < 0 {
		return errors.New("alerts.retention must not be negative")
	}
	if c.Lock.RedisAddr != "" && c.Lock.TTL <= 0 {
		return errors.New("lock.ttl must be positive when lock.redis_addr is set")
	}
	if c.Archive.Bucket != "" && c.Archive.Endpoint == "" {
		return errors.New("archive.endpoint is required when archive.bucket is set")
	}
	for k := range c.Categories {
		if !types.ScheduleType(k).Valid() {
			return fmt.Errorf("categories: unknown schedule type %q", k)
		}
	}
	return nil
}

// validateAuth checks that the API key is set.
// In dev mode (PULSE_DEV_MODE=true), API key validation is skipped.
func (c *Config) validateAuth() error {
	if os.Getenv("PULSE_DEV_MODE") == "true" {
		return nil
	}

	if c.Auth.APIKey == "" {
		return errors.New("PULSE_API_KEY is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
