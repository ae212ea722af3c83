package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/phrazzld/taskflow/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisClientOpt converts the Redis configuration into asynq connection options.
func RedisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewRedisClient opens a plain Redis client for the same instance asynq uses.
// It backs the health check, which asynq does not expose.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping reports whether Redis answers within ctx.
func Ping(ctx context.Context, client redis.UniversalClient) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
