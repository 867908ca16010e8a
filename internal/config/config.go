// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DevelopmentSecret signs tokens outside production when JWT_SECRET is unset.
const DevelopmentSecret = "propverse-development-secret"

// ErrMissingSecret is returned when production runs without JWT_SECRET.
var ErrMissingSecret = errors.New("JWT_SECRET must be set when APP_ENV=production")

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver          string
	DataDir         string
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig holds token settings.
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	// DevSecret is true when Secret fell back to DevelopmentSecret.
	DevSecret bool
}

// EventsConfig configures the optional RabbitMQ integration. An empty URL
// disables it.
type EventsConfig struct {
	RabbitMQURL string
	Consume     bool
}

// Config holds all configuration
type Config struct {
	Env           string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	LogLevel      string
	MetricsPrefix string
	SeedAmenities bool
	Storage       StorageConfig
	JWT           JWTConfig
	Events        EventsConfig
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("READ_TIMEOUT", "10s")
	v.SetDefault("WRITE_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_PREFIX", "propverse")
	v.SetDefault("SEED_AMENITIES", true)
	v.SetDefault("STORAGE_DRIVER", DriverFile)
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION", 86400)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("EVENTS_CONSUME", false)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:           strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		Port:          v.GetString("APP_PORT"),
		ReadTimeout:   v.GetDuration("READ_TIMEOUT"),
		WriteTimeout:  v.GetDuration("WRITE_TIMEOUT"),
		LogLevel:      strings.ToLower(v.GetString("LOG_LEVEL")),
		MetricsPrefix: v.GetString("METRICS_PREFIX"),
		SeedAmenities: v.GetBool("SEED_AMENITIES"),
		Storage: StorageConfig{
			Driver:          strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			DataDir:         v.GetString("DATA_DIR"),
			DSN:             v.GetString("DATABASE_DSN"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: time.Duration(v.GetInt64("JWT_EXPIRATION")) * time.Second,
		},
		Events: EventsConfig{
			RabbitMQURL: v.GetString("RABBITMQ_URL"),
			Consume:     v.GetBool("EVENTS_CONSUME"),
		},
	}
	if !strings.HasPrefix(cfg.Port, ":") && !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	if cfg.JWT.Secret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		cfg.JWT.Secret = DevelopmentSecret
		cfg.JWT.DevSecret = true
	}
	if cfg.JWT.Expiration <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION must be a positive number of seconds, got %d", v.GetInt64("JWT_EXPIRATION"))
	}

	switch cfg.Storage.Driver {
	case DriverFile:
	case DriverSQLite:
		if cfg.Storage.DSN == "" {
			cfg.Storage.DSN = "propverse.db"
		}
	case DriverPostgres:
		if cfg.Storage.DSN == "" {
			return nil, errors.New("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (want file, sqlite or postgres)", cfg.Storage.Driver)
	}

	return cfg, nil
}

// LogFields returns the non-secret settings for the startup log line.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Env),
		zap.String("port", c.Port),
		zap.String("storage_driver", c.Storage.Driver),
		zap.String("data_dir", c.Storage.DataDir),
		zap.Duration("token_ttl", c.JWT.Expiration),
		zap.Bool("events_enabled", c.Events.RabbitMQURL != ""),
		zap.Bool("events_consume", c.Events.Consume),
	}
}
