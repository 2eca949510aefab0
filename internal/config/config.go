// Package config loads application settings from the environment and an
// optional .env file using viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envFile = ".env"

// DefaultSessionSecret is only meant for local development.
const DefaultSessionSecret = "secret_key_here"

// S3Config holds object storage settings for the s3 upload backend.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Config holds runtime settings.
type Config struct {
	AppEnv         string
	AppPort        string
	LogLevel       string
	DatabaseDriver string
	DatabaseDSN    string
	AdminUsername  string
	AdminPassword  string
	UploadBackend  string
	UploadDir      string
	S3             S3Config
	SessionSecret  string
	SessionTTL     time.Duration
	RabbitMQURL    string
	LoginRateLimit int
	MaxUploadMB    int
}

// New returns a viper instance with defaults applied, environment variables
// bound and, when present, a .env file from the working directory merged in.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg("could not read env file")
		}
	}
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "ulasan.db")
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("UPLOAD_BACKEND", "local")
	v.SetDefault("UPLOAD_DIR", "static")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("SESSION_SECRET", DefaultSessionSecret)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOGIN_RATE_LIMIT", 10)
	v.SetDefault("MAX_UPLOAD_MB", 10)
}

// Load reads a Config out of v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppEnv:         v.GetString("APP_ENV"),
		AppPort:        v.GetString("APP_PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		AdminUsername:  v.GetString("ADMIN_USERNAME"),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
		UploadBackend:  strings.ToLower(v.GetString("UPLOAD_BACKEND")),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		S3: S3Config{
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Prefix:    v.GetString("S3_PREFIX"),
		},
		SessionSecret:  v.GetString("SESSION_SECRET"),
		SessionTTL:     v.GetDuration("SESSION_TTL"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		LoginRateLimit: v.GetInt("LOGIN_RATE_LIMIT"),
		MaxUploadMB:    v.GetInt("MAX_UPLOAD_MB"),
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	switch cfg.UploadBackend {
	case "local":
		if cfg.UploadDir == "" {
			return Config{}, errors.New("UPLOAD_DIR must not be empty")
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			return Config{}, errors.New("S3_BUCKET is required when UPLOAD_BACKEND=s3")
		}
	default:
		return Config{}, fmt.Errorf("unsupported UPLOAD_BACKEND %q", cfg.UploadBackend)
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET must not be empty")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.SessionSecret == DefaultSessionSecret && !cfg.IsDevelopment() {
		log.Warn().Msg("SESSION_SECRET is the development default")
	}
	if (cfg.AdminUsername == "") != (cfg.AdminPassword == "") {
		log.Warn().Msg("ADMIN_USERNAME and ADMIN_PASSWORD must both be set; admin seeding disabled")
	}
	return cfg, nil
}

// IsDevelopment reports whether APP_ENV selects a development setup.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

// AdminConfigured reports whether both admin credentials are present.
func (c Config) AdminConfigured() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}
