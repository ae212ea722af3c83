package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required" yaml:"database"`
	Redis     RedisConfig     `mapstructure:"redis"      validate:"required" yaml:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"      validate:"required" yaml:"queue"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required" yaml:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required" yaml:"rate_limit"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"                      yaml:"scheduler"`
	Worker    WorkerConfig    `mapstructure:"worker"                         yaml:"worker"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"                  yaml:"port"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"   yaml:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"                                    yaml:"shutdown_timeout"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url" yaml:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gt=0"         yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"        yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"        yaml:"conn_max_lifetime"`
}

// RedisConfig locates the Redis instance backing the notification queue.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"     validate:"required,hostname_port" yaml:"addr"`
	Password string `mapstructure:"password"                                   yaml:"password"`
	DB       int    `mapstructure:"db"       validate:"gte=0,lte=15"           yaml:"db"`
}

// Queue drivers. The memory driver dispatches events in-process and needs no Redis.
const (
	QueueDriverRedis  = "redis"
	QueueDriverMemory = "memory"
)

// QueueConfig controls how status notifications are enqueued and consumed.
type QueueConfig struct {
	Driver      string `mapstructure:"driver"      validate:"required,oneof=redis memory" yaml:"driver"`
	Name        string `mapstructure:"name"        validate:"required" yaml:"name"`
	Concurrency int    `mapstructure:"concurrency" validate:"gt=0"     yaml:"concurrency"`
	MaxRetry    int    `mapstructure:"max_retry"   validate:"gte=0"    yaml:"max_retry"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32" yaml:"jwt_secret"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"            yaml:"token_lifetime_minutes"`
}

// RateLimitConfig bounds how many API requests one client may make per window.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"gt=0" yaml:"requests"`
	Window   time.Duration `mapstructure:"window"   validate:"gt=0" yaml:"window"`
}

// SchedulerConfig controls the periodic overdue-task scan.
type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"      yaml:"enabled"`
	OverdueCron string `mapstructure:"overdue_cron" validate:"required_if=Enabled true" yaml:"overdue_cron"`
	BatchSize   int    `mapstructure:"batch_size"   validate:"gte=0"                     yaml:"batch_size"`
}

// WorkerConfig controls the in-process queue consumer.
type WorkerConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Redacted returns a copy of the configuration that is safe to print.
func (c Config) Redacted() Config {
	const mask = "[REDACTED]"
	if c.Auth.JWTSecret != "" {
		c.Auth.JWTSecret = mask
	}
	if c.Redis.Password != "" {
		c.Redis.Password = mask
	}
	if c.Database.URL != "" {
		c.Database.URL = mask
	}
	return c
}
