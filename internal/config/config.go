package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Storage StorageConfig `mapstructure:"storage"`
	Payment PaymentConfig `mapstructure:"payment"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type StorageConfig struct {
	Backend       string `mapstructure:"backend"` // memory | redis | sqlite | postgres
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	ConnString    string `mapstructure:"conn_string"`
}

type PaymentConfig struct {
	StageDwell  time.Duration `mapstructure:"stage_dwell"`
	FailureRate float64       `mapstructure:"failure_rate"`
}

// LoadConfig reads configuration from a .env file, environment variables and
// defaults, in that order of precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	v.SetDefault("app.port", ":3000")
	v.SetDefault("app.env", "local")

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.sqlite_path", "payments.db")
	v.SetDefault("storage.conn_string", "")

	v.SetDefault("payment.stage_dwell", "6s")
	v.SetDefault("payment.failure_rate", 0.1)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "storage.backend", "storage.redis_addr", "storage.redis_password",
		"storage.redis_db", "storage.sqlite_path", "storage.conn_string")
	bindEnv(v, "payment.stage_dwell", "payment.failure_rate")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	switch cfg.Storage.Backend {
	case "memory", "redis", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "postgres" && cfg.Storage.ConnString == "" {
		return nil, fmt.Errorf("storage.conn_string is required for the postgres backend")
	}
	if cfg.Payment.FailureRate < 0 || cfg.Payment.FailureRate > 1 {
		return nil, fmt.Errorf("payment.failure_rate must be between 0 and 1")
	}

	return &cfg, nil
}

func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			slog.Warn("could not bind env var", "key", key, "error", err)
		}
	}
}
