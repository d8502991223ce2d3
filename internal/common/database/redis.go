// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"expert-router/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient holds the connection pool behind personalization snapshots.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis builds the pool from cfg. Nothing is dialed until the first command.
func NewRedis(cfg config.RedisConfig) *RedisClient {
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdle,
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	return &RedisClient{Client: redis.NewClient(opts)}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
