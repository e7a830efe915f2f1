package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Port           string `yaml:"port"`
	DatabaseDriver string `yaml:"database_driver"`
	DatabaseURL    string `yaml:"database_url"`

	SenderEmail     string `yaml:"sender_email"`
	SendGridAPIKey  string `yaml:"sendgrid_api_key"`
	ResendAPIKey    string `yaml:"resend_api_key"`
	SlackWebhookURL string `yaml:"slack_webhook_url"`
	JWTSecret       string `yaml:"jwt_secret"`

	Schedule        string        `yaml:"schedule"`
	MaxConcurrency  int           `yaml:"max_concurrency"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	SendTimeout     time.Duration `yaml:"send_timeout"`
	SendRatePerSec  int           `yaml:"send_rate_per_sec"`
	OutageThreshold time.Duration `yaml:"outage_threshold"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	Features Features `yaml:"features"`
}

func Default() Config {
	return Config{
		Port:            "8080",
		DatabaseDriver:  DriverPostgres,
		Schedule:        "@every 1m",
		MaxConcurrency:  16,
		ProbeTimeout:    10 * time.Second,
		SendTimeout:     10 * time.Second,
		SendRatePerSec:  5,
		OutageThreshold: 15 * time.Minute,
		LogLevel:        "info",
		Features:        DefaultFeatures(),
	}
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	envString("PORT", &c.Port)
	envString("DATABASE_DRIVER", &c.DatabaseDriver)
	envString("DATABASE_URL", &c.DatabaseURL)
	envString("SENDER_EMAIL", &c.SenderEmail)
	envString("SENDGRID_API_KEY", &c.SendGridAPIKey)
	envString("RESEND_API_KEY", &c.ResendAPIKey)
	envString("SLACK_WEBHOOK_URL", &c.SlackWebhookURL)
	envString("JWT_SECRET", &c.JWTSecret)
	envString("CHECK_SCHEDULE", &c.Schedule)
	envString("LOG_LEVEL", &c.LogLevel)
	envFlag("LOG_PRETTY", &c.LogPretty)

	if err := envInt("MAX_CONCURRENCY", &c.MaxConcurrency); err != nil {
		return err
	}
	if err := envInt("SEND_RATE_PER_SEC", &c.SendRatePerSec); err != nil {
		return err
	}
	if err := envDuration("SEND_TIMEOUT", &c.SendTimeout); err != nil {
		return err
	}
	if err := envDuration("OUTAGE_THRESHOLD", &c.OutageThreshold); err != nil {
		return err
	}
	c.Features.applyEnv()
	return nil
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for driver %q", c.DatabaseDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.DatabaseDriver)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency)
	}
	if c.ProbeTimeout <= 0 || c.SendTimeout <= 0 {
		return fmt.Errorf("probe and send timeouts must be positive")
	}
	if c.SendRatePerSec <= 0 {
		return fmt.Errorf("send_rate_per_sec must be positive, got %d", c.SendRatePerSec)
	}
	return nil
}

// CanSend reports whether an outbound email transport is configured.
func (c Config) CanSend() bool {
	return c.SenderEmail != "" && (c.SendGridAPIKey != "" || c.ResendAPIKey != "")
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
