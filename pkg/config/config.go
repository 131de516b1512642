package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers understood by repositories.Open.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	JWTSecret string        `mapstructure:"JWT_SECRET" validate:"required,min=8"`
	JWTExpire time.Duration `mapstructure:"JWT_EXPIRE" validate:"required"`

	StoreDriver string `mapstructure:"STORE_DRIVER" validate:"required,oneof=file memory sqlite postgres"`
	DataDir     string `mapstructure:"DATA_DIR" validate:"required_if=StoreDriver file"`
	DatabaseDSN string `mapstructure:"DATABASE_DSN" validate:"required_if=StoreDriver sqlite,required_if=StoreDriver postgres"`

	UploadDir      string `mapstructure:"UPLOAD_DIR" validate:"required"`
	MaxUploadBytes int    `mapstructure:"MAX_UPLOAD_BYTES" validate:"gte=1024"`

	CORSOrigins     string        `mapstructure:"CORS_ORIGINS"`
	RateLimitMax    int           `mapstructure:"RATE_LIMIT_MAX" validate:"gte=0"`
	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL" validate:"omitempty,url"`

	ActiveWindow time.Duration `mapstructure:"ACTIVE_WINDOW" validate:"required"`
}

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	keys = []string{
		"APP_ENV", "HTTP_ADDR", "SHUTDOWN_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT",
		"JWT_SECRET", "JWT_EXPIRE",
		"STORE_DRIVER", "DATA_DIR", "DATABASE_DSN",
		"UPLOAD_DIR", "MAX_UPLOAD_BYTES",
		"CORS_ORIGINS", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"RABBITMQ_URL",
		"ACTIVE_WINDOW",
	}
)

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("JWT_EXPIRE", "168h")
	v.SetDefault("STORE_DRIVER", DriverFile)
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("MAX_UPLOAD_BYTES", 5*1024*1024)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ACTIVE_WINDOW", "720h")
}

// Load reads .env files when present, applies defaults, binds env vars,
// reads an optional config.yaml and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates configuration from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	c.StoreDriver = strings.ToLower(c.StoreDriver)

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

// AllowedOrigins splits CORS_ORIGINS into the comma list Fiber's CORS middleware expects.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
