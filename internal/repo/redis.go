package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:user:"
	pushChannelPrefix = "push:user:"
	// PushChannelPattern matches every per-user push channel.
	PushChannelPattern = pushChannelPrefix + "*"

	DefaultPresenceTTL = 2 * time.Minute
)

// RedisRepository tracks which users hold a live connection on any instance
// and carries pushes between instances.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	return &RedisRepository{
		client: client,
		ttl:    ttl,
	}
}

func presenceKey(userID string) string { return presenceKeyPrefix + userID }

// PushChannel is the pub/sub channel for userID.
func PushChannel(userID string) string { return pushChannelPrefix + userID }

// UserFromChannel extracts the user id from a push channel name.
func UserFromChannel(channel string) (string, bool) {
	userID, ok := strings.CutPrefix(channel, pushChannelPrefix)
	return userID, ok && userID != ""
}

// MarkOnline counts one more connection for userID.
func (r *RedisRepository) MarkOnline(ctx context.Context, userID string) error {
	key := presenceKey(userID)
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark %s online: %w", userID, err)
	}
	return nil
}

// MarkOffline drops one connection for userID and clears the key at zero.
func (r *RedisRepository) MarkOffline(ctx context.Context, userID string) error {
	key := presenceKey(userID)
	n, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to mark %s offline: %w", userID, err)
	}
	if n <= 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear presence for %s: %w", userID, err)
		}
	}
	return nil
}

// Touch extends the presence TTL for a user that is still connected.
func (r *RedisRepository) Touch(ctx context.Context, userID string) error {
	return r.client.Expire(ctx, presenceKey(userID), r.ttl).Err()
}

func (r *RedisRepository) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Get(ctx, presenceKey(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read presence for %s: %w", userID, err)
	}
	return n > 0, nil
}

// Publish sends ev to every instance subscribed to userID's channel and
// returns the number of subscribers that received it.
func (r *RedisRepository) Publish(ctx context.Context, userID string, ev model.Event) (int64, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}
	n, err := r.client.Publish(ctx, PushChannel(userID), data).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish to %s: %w", userID, err)
	}
	return n, nil
}

// SubscribePushes subscribes to every user's push channel.
func (r *RedisRepository) SubscribePushes(ctx context.Context) *redis.PubSub {
	return r.client.PSubscribe(ctx, PushChannelPattern)
}
