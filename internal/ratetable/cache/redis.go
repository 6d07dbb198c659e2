package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/railzwaylabs/ratebook/internal/metrics"
	ratetabledomain "github.com/railzwaylabs/ratebook/internal/ratetable/domain"
	"github.com/redis/go-redis/v9"
)

const (
	backendRedis = "redis"
	redisPrefix  = "ratebook:snapshot:"
)

// Redis stores snapshots as snappy-compressed JSON so every API instance
// shares one copy and sees invalidations immediately.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, productType string, version int) (*ratetabledomain.Snapshot, bool, error) {
	raw, err := r.client.Get(ctx, redisPrefix+key(productType, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observe(backendRedis, "miss")
			return nil, false, nil
		}
		observe(backendRedis, "error")
		return nil, false, err
	}

	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		observe(backendRedis, "error")
		return nil, false, fmt.Errorf("decode cached snapshot: %w", err)
	}
	var snap ratetabledomain.Snapshot
	if err := json.Unmarshal(decoded, &snap); err != nil {
		observe(backendRedis, "error")
		return nil, false, fmt.Errorf("unmarshal cached snapshot: %w", err)
	}
	observe(backendRedis, "hit")
	return &snap, true, nil
}

func (r *Redis) Set(ctx context.Context, snap *ratetabledomain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisPrefix+key(snap.Table.ProductType, snap.Table.Version), snappy.Encode(nil, payload), r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, productType string, version int) error {
	metrics.SnapshotCacheInvalidations.WithLabelValues(backendRedis).Inc()
	return r.client.Del(ctx, redisPrefix+key(productType, version)).Err()
}
