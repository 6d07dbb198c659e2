package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/railzwaylabs/ratebook/internal/config"
	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const resultCachePrefix = "ratebook:result:"

// ResultCache short-circuits repeated preview ratings keyed by input hash.
// Results are a pure function of the hashed input, so entries never need
// invalidating; they only expire.
type ResultCache interface {
	Get(ctx context.Context, inputHash string) (*ratingdomain.RatingResult, bool, error)
	Set(ctx context.Context, inputHash string, result *ratingdomain.RatingResult) error
}

type ResultCacheParams struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

func NewResultCache(p ResultCacheParams) ResultCache {
	if !p.Cfg.Cache.ResultCacheEnabled {
		return noopResultCache{}
	}
	if p.Redis == nil {
		p.Log.Warn("result cache enabled without redis, disabling")
		return noopResultCache{}
	}
	return NewRedisResultCache(p.Redis, p.Cfg.Cache.ResultTTL)
}

type noopResultCache struct{}

func (noopResultCache) Get(context.Context, string) (*ratingdomain.RatingResult, bool, error) {
	return nil, false, nil
}

func (noopResultCache) Set(context.Context, string, *ratingdomain.RatingResult) error { return nil }

type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisResultCache(client *redis.Client, ttl time.Duration) *RedisResultCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisResultCache{client: client, ttl: ttl}
}

func (c *RedisResultCache) Get(ctx context.Context, inputHash string) (*ratingdomain.RatingResult, bool, error) {
	raw, err := c.client.Get(ctx, resultCachePrefix+inputHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	var result ratingdomain.RatingResult
	if err := json.Unmarshal(decoded, &result); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached result: %w", err)
	}
	return &result, true, nil
}

func (c *RedisResultCache) Set(ctx context.Context, inputHash string, result *ratingdomain.RatingResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, resultCachePrefix+inputHash, snappy.Encode(nil, payload), c.ttl).Err()
}
