package goIdentity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the build-time wiring of an Engine. Runtime policy (TTLs,
// provider credentials, domain lists, JWT) lives in settings.Settings and can
// change without a restart.
type Config struct {
	Redis    RedisConfig
	Database DatabaseConfig
	AMQP     AMQPConfig
	Password PasswordConfig
	Settings SettingsConfig
	TOTP     TOTPConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
REDIS CONFIG
====================================
*/

type RedisConfig struct {
	Addr     string `env:"GOIDENTITY_REDIS_ADDR"`
	Password string `env:"GOIDENTITY_REDIS_PASSWORD"`
	DB       int    `env:"GOIDENTITY_REDIS_DB"`
	// KeyPrefix namespaces every key the engine writes.
	KeyPrefix string `env:"GOIDENTITY_REDIS_PREFIX"`
}

/*
====================================
DATABASE CONFIG
====================================
*/

type DatabaseConfig struct {
	// Path of the SQLite database file used by the reference store.
	Path          string `env:"GOIDENTITY_DB_PATH"`
	MigrateOnOpen bool   `env:"GOIDENTITY_DB_MIGRATE"`
}

/*
====================================
AMQP CONFIG
====================================
*/

// AMQPConfig points the reference producer at an AMQP 1.0 broker. An empty
// URL disables publishing.
type AMQPConfig struct {
	URL      string `env:"GOIDENTITY_AMQP_URL"`
	Username string `env:"GOIDENTITY_AMQP_USERNAME"`
	Password string `env:"GOIDENTITY_AMQP_PASSWORD"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Memory      uint32 `env:"GOIDENTITY_ARGON2_MEMORY"` // in KiB
	Time        uint32 `env:"GOIDENTITY_ARGON2_TIME"`
	Parallelism uint8  `env:"GOIDENTITY_ARGON2_PARALLELISM"`
	SaltLength  uint32 `env:"GOIDENTITY_ARGON2_SALT_LENGTH"`
	KeyLength   uint32 `env:"GOIDENTITY_ARGON2_KEY_LENGTH"`
}

/*
====================================
SETTINGS CONFIG
====================================
*/

type SettingsConfig struct {
	// Key is the redis key holding the JSON settings document.
	Key             string        `env:"GOIDENTITY_SETTINGS_KEY"`
	RefreshInterval time.Duration `env:"GOIDENTITY_SETTINGS_REFRESH"`
}

/*
====================================
TOTP CONFIG
====================================
*/

type TOTPConfig struct {
	Issuer    string `env:"GOIDENTITY_TOTP_ISSUER"`
	Digits    int    `env:"GOIDENTITY_TOTP_DIGITS"`
	Period    int    `env:"GOIDENTITY_TOTP_PERIOD"`
	Algorithm string `env:"GOIDENTITY_TOTP_ALGORITHM"`
	Skew      int    `env:"GOIDENTITY_TOTP_SKEW"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool `env:"GOIDENTITY_AUDIT_ENABLED"`
	BufferSize int  `env:"GOIDENTITY_AUDIT_BUFFER"`
	DropIfFull bool `env:"GOIDENTITY_AUDIT_DROP_IF_FULL"`
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool `env:"GOIDENTITY_METRICS_ENABLED"`
	EnableLatencyHistograms bool `env:"GOIDENTITY_METRICS_LATENCY"`
}

func defaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Database: DatabaseConfig{
			Path:          "goidentity.db",
			MigrateOnOpen: true,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Settings: SettingsConfig{
			Key:             "config:AUTH",
			RefreshInterval: 30 * time.Second,
		},
		TOTP: TOTPConfig{
			Issuer:    "goIdentity",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// DefaultConfig returns the configuration Builder starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

// LoadConfigFromEnv overlays GOIDENTITY_* environment variables on the
// defaults. Unset variables keep their default.
func LoadConfigFromEnv() (Config, error) {
	cfg := defaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Password.Memory < 8*1024 {
		return errors.New("argon2 memory must be at least 8 MiB")
	}
	if c.Password.Time < 1 || c.Password.Parallelism < 1 {
		return errors.New("argon2 time and parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("argon2 salt and key length must be >= 16")
	}
	if strings.TrimSpace(c.Settings.Key) == "" {
		return errors.New("settings key must not be empty")
	}
	if c.Settings.RefreshInterval < time.Second {
		return errors.New("settings refresh interval must be >= 1s")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("totp digits must be between 6 and 8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be > 0")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 3 {
		return errors.New("totp skew must be between 0 and 3")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be > 0")
	}
	if c.AMQP.URL != "" && !strings.HasPrefix(c.AMQP.URL, "amqp://") && !strings.HasPrefix(c.AMQP.URL, "amqps://") {
		return errors.New("amqp url must use amqp:// or amqps://")
	}
	return nil
}
