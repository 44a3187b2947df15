package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/payhub/internal/infrastructure/config"
	"github.com/cassiomorais/payhub/pkg/retry"
	"github.com/redis/go-redis/v9"
)

// NewClient creates a new Redis client, retrying the initial ping with
// backoff so the service survives a slow Redis start.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	retryCfg := retry.DefaultConfig()
	if cfg.ConnectRetries > 0 {
		retryCfg.MaxAttempts = cfg.ConnectRetries
	}
	if cfg.ConnectRetryDelay > 0 {
		retryCfg.InitialDelay = cfg.ConnectRetryDelay
	}

	if err := retry.Do(ctx, retryCfg, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
