package memory

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"expert-router/internal/models"
)

const snapshotKeyPrefix = "personalization:"

// RedisSnapshotStore keeps each personalization as one JSON value.
type RedisSnapshotStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisSnapshotStore creates a store; ttl 0 keeps snapshots forever.
func NewRedisSnapshotStore(client redis.Cmdable, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(key string) string {
	return snapshotKeyPrefix + key
}

func (r *RedisSnapshotStore) Load(ctx context.Context, key string) (*models.AgentPersonalization, error) {
	data, err := r.client.Get(ctx, snapshotKey(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var p models.AgentPersonalization
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &p, nil
}

func (r *RedisSnapshotStore) Save(ctx context.Context, p *models.AgentPersonalization) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey(p.Key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisSnapshotStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, snapshotKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
