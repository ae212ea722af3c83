package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TASKFLOW_DATABASE_URL for database.url.
const EnvPrefix = "TASKFLOW"

// defaults lists every configuration key together with its default value.
// A nil value marks a key that has no default but must still be bound to
// the environment.
var defaults = map[string]any{
	"server.port":                 8080,
	"server.log_level":            "info",
	"server.shutdown_timeout":     "10s",
	"database.url":                nil,
	"database.max_open_conns":     10,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  "5m",
	"redis.addr":                  "localhost:6379",
	"redis.password":              nil,
	"redis.db":                    0,
	"queue.driver":                "redis",
	"queue.name":                  "task-processing",
	"queue.concurrency":           10,
	"queue.max_retry":             3,
	"auth.jwt_secret":             nil,
	"auth.token_lifetime_minutes": 60,
	"rate_limit.requests":         100,
	"rate_limit.window":           "60s",
	"scheduler.enabled":           true,
	"scheduler.overdue_cron":      "0 * * * *",
	"scheduler.batch_size":        100,
	"worker.enabled":              true,
}

// Load configuration from environment variables and an optional config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the config file at path instead of
// searching the working directory. A missing file at an explicit path is an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		if value != nil {
			v.SetDefault(key, value)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about, so keys
	// without defaults have to be bound explicitly.
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tag constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
