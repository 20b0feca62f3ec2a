package db

import (
	"context"
	"fmt"
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis. It returns nil, nil when no URL is
// configured so callers can run single-instance without it.
func NewRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}
