package batchstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"product-catalog/internal/domain"
	"product-catalog/internal/importer"
)

// Redis stores snapshots as JSON so any API instance can answer status
// requests for batches started elsewhere.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(id string) string {
	return "import:batch:" + id
}

func (r *Redis) Save(ctx context.Context, s importer.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(s.ID), data, r.ttl).Err()
}

func (r *Redis) Get(ctx context.Context, id string) (importer.Snapshot, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return importer.Snapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return importer.Snapshot{}, err
	}
	var s importer.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return importer.Snapshot{}, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return s, nil
}
